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

// Package ctxs 请求上下文携带的信息
package ctxs

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type ctxKey int

const (
	requestIdKey ctxKey = iota
	requestPathKey
	userIdKey
	clientIPKey
)

// NewCtx 新建一个带请求Id的上下文，用于非请求场景（启动、定时任务）
func NewCtx(name string) context.Context {
	rid := name + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	return WithRequestId(context.Background(), rid)
}

// CloneCtx 复制上下文中的值，但不继承取消信号和截止时间
func CloneCtx(ctx context.Context) context.Context {
	nctx := context.Background()
	if v := RequestId(ctx); len(v) > 0 {
		nctx = WithRequestId(nctx, v)
	}
	if v := RequestPath(ctx); len(v) > 0 {
		nctx = WithRequestPath(nctx, v)
	}
	if v := UserId(ctx); len(v) > 0 {
		nctx = WithUserId(nctx, v)
	}
	if v := ClientIP(ctx); len(v) > 0 {
		nctx = WithClientIP(nctx, v)
	}
	return nctx
}

// WithRequestId 设置请求Id
func WithRequestId(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIdKey, rid)
}

// RequestId 获取请求Id
func RequestId(ctx context.Context) string {
	v, _ := ctx.Value(requestIdKey).(string)
	return v
}

// WithRequestPath 设置请求路径
func WithRequestPath(ctx context.Context, p string) context.Context {
	return context.WithValue(ctx, requestPathKey, p)
}

// RequestPath 获取请求路径
func RequestPath(ctx context.Context) string {
	v, _ := ctx.Value(requestPathKey).(string)
	return v
}

// WithUserId 设置当前请求的用户
func WithUserId(ctx context.Context, userId string) context.Context {
	return context.WithValue(ctx, userIdKey, userId)
}

// UserId 获取当前请求的用户，未登录返回空串
func UserId(ctx context.Context) string {
	v, _ := ctx.Value(userIdKey).(string)
	return v
}

// WithClientIP 设置请求来源IP
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP 获取请求来源IP
func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey).(string)
	return v
}
