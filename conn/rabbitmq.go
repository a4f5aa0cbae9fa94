/*
 * Copyright (c) 2023 ivfzhou
 * backend is licensed under Mulan PSL v2.
 * You can use this software according to the terms and conditions of the Mulan PSL v2.
 * You may obtain a copy of Mulan PSL v2 at:
 *          http://license.coscl.org.cn/MulanPSL2
 * THIS SOFTWARE IS PROVIDED ON AN "AS IS" BASIS, WITHOUT WARRANTIES OF ANY KIND,
 * EITHER EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO NON-INFRINGEMENT,
 * MERCHANTABILITY OR FIT FOR A PARTICULAR PURPOSE.
 * See the Mulan PSL v2 for more details.
 */

package conn

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"gitee.com/CloudFileManager/backend/log"
)

var (
	rabbitMQConn *amqp.Connection
	rabbitMQCh   *amqp.Channel
	rabbitMQLock sync.Mutex
)

// InitialRabbitMQ 初始化RabbitMQ连接并声明交换机，地址为空时不启用
func InitialRabbitMQ(ctx context.Context, uri, exchange string) {
	if len(uri) <= 0 {
		log.Warn(ctx, "rabbitmq not configured")
		return
	}
	c, err := amqp.Dial(uri)
	if err != nil {
		log.Fatal(ctx, "dial rabbitmq error", err)
	}
	ch, err := c.Channel()
	if err != nil {
		log.Fatal(ctx, "open rabbitmq channel error", err)
	}
	if err = ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		log.Fatal(ctx, "declare rabbitmq exchange error", err)
	}
	rabbitMQConn, rabbitMQCh = c, ch
	log.Info(ctx, "rabbitmq connected", exchange)
}

// PublishRabbitMQ 发布消息，未启用时忽略
func PublishRabbitMQ(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	rabbitMQLock.Lock()
	defer rabbitMQLock.Unlock()
	if rabbitMQCh == nil {
		return nil
	}
	return rabbitMQCh.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
}

// RabbitMQEnabled 是否启用RabbitMQ
func RabbitMQEnabled() bool {
	return rabbitMQCh != nil
}

// CloseRabbitMQClient 关闭RabbitMQ连接
func CloseRabbitMQClient(ctx context.Context) {
	rabbitMQLock.Lock()
	defer rabbitMQLock.Unlock()
	if rabbitMQCh != nil {
		log.ErrorIf(ctx, rabbitMQCh.Close())
		rabbitMQCh = nil
	}
	if rabbitMQConn != nil {
		log.ErrorIf(ctx, rabbitMQConn.Close())
		rabbitMQConn = nil
	}
}
