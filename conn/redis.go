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

// Package conn 外部服务连接
package conn

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"gitee.com/CloudFileManager/backend/log"
)

// 缓存键
const (
	CacheKey_SessionFmt     = "cfm:session:%s"
	CacheKey_AntiShakeHash  = "cfm:anti:shake:hash"
	CacheKey_OrphanCleanFmt = "cfm:cron:orphan:clean:%s"
)

var redisClient *redis.Client

// InitialRedis 初始化Redis连接，地址为空时不启用
func InitialRedis(ctx context.Context, addr, passwd string, db int) {
	if len(addr) <= 0 {
		log.Warn(ctx, "redis not configured")
		return
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     passwd,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal(ctx, "ping redis error", err)
	}
	redisClient = client
	log.Info(ctx, "redis connected", addr)
}

// GetRedisClient 获取Redis客户端，未启用时返回nil
func GetRedisClient(_ context.Context) *redis.Client {
	return redisClient
}

// SetRedisClient 替换Redis客户端
func SetRedisClient(c *redis.Client) {
	redisClient = c
}

// CloseRedisClient 关闭Redis连接
func CloseRedisClient(ctx context.Context) {
	if redisClient == nil {
		return
	}
	log.ErrorIf(ctx, redisClient.Close())
}
