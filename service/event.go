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

package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"gitee.com/CloudFileManager/backend/conn"
	"gitee.com/CloudFileManager/backend/ctxs"
	"gitee.com/CloudFileManager/backend/log"
)

// 事件类型
const (
	EventType_Created = "created"
)

const notifyTimeout = 5 * time.Second

// Event 文件变更事件
type Event struct {
	Id         string    `json:"id"`
	Type       string    `json:"type"`
	OwnerId    string    `json:"ownerId"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Notifier 文件变更通知
type Notifier interface {
	// Notify 发送通知，不阻塞调用方，失败只记录日志
	Notify(ctx context.Context, e *Event)
}

// NewNotifier 启用RabbitMQ时发送到主题交换机，否则不发送
func NewNotifier(exchange string) Notifier {
	if !conn.RabbitMQEnabled() {
		return nopNotifier{}
	}
	return &rabbitMQNotifier{exchange: exchange}
}

type rabbitMQNotifier struct {
	exchange string
}

func (n *rabbitMQNotifier) Notify(ctx context.Context, e *Event) {
	if len(e.Id) <= 0 {
		e.Id = uuid.NewString()
	}
	body, err := json.Marshal(e)
	if err != nil {
		log.Error(ctx, "marshal event error", err)
		return
	}

	// 脱离请求上下文异步发送
	go func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		err := conn.PublishRabbitMQ(ctx, n.exchange, "file."+e.Type, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.Id,
			Timestamp:    e.OccurredAt,
			Body:         body,
		})
		if err != nil {
			log.Error(ctx, "publish file event error", e.Type, e.Path, err)
		}
	}(ctxs.CloneCtx(ctx))
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, *Event) {}
