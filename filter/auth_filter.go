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

package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"gitee.com/CloudFileManager/backend/conn"
	"gitee.com/CloudFileManager/backend/consts"
	"gitee.com/CloudFileManager/backend/ctxs"
	"gitee.com/CloudFileManager/backend/errs"
	"gitee.com/CloudFileManager/backend/log"
	"gitee.com/CloudFileManager/backend/util"
)

// SessionInfo 浏览器会话信息，存放于Redis
type SessionInfo struct {
	UserId  string `json:"userId"`
	LoginIP string `json:"loginIP"`
}

// AuthFilter 鉴权，支持 Bearer JWT 凭证和浏览器会话Cookie
func AuthFilter(jwtSecret string) gin.HandlerFunc {
	secret := []byte(jwtSecret)
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var userId string
		var err error
		if auth := c.Request.Header.Get("Authorization"); len(auth) > 0 {
			userId, err = parseBearer(auth, secret)
		} else {
			userId, err = lookupSession(c)
		}
		if err != nil {
			util.FailByErr(c, err)
			return
		}

		ctx = ctxs.WithUserId(ctx, userId)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// parseBearer 解析JWT凭证，主题为用户
func parseBearer(auth string, secret []byte) (string, error) {
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) || len(secret) <= 0 {
		return "", errs.ErrNoAuth
	}
	token, err := jwt.Parse(auth[len(prefix):], func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", errs.ErrNoAuth.Wrap(err)
	}
	if !token.Valid {
		return "", errs.ErrNoAuth
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || len(subject) <= 0 {
		return "", errs.ErrNoAuth
	}
	return subject, nil
}

// lookupSession 从Redis获取会话信息
func lookupSession(c *gin.Context) (string, error) {
	ctx := c.Request.Context()

	// 获取会话
	sessionCookie, err := c.Request.Cookie(consts.SessionKey)
	if err != nil {
		// 不存在会话凭证
		if errors.Is(err, http.ErrNoCookie) {
			return "", errs.ErrNoAuth
		}
		log.Error(ctx, "obtain cookie error", err)
		return "", errs.NewSystemBusyErr(err)
	}
	client := conn.GetRedisClient(ctx)
	if client == nil {
		return "", errs.ErrNoAuth
	}

	// 获取会话信息
	key := fmt.Sprintf(conn.CacheKey_SessionFmt, sessionCookie.Value)
	sessionStr, err := client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", errs.ErrNoAuth
		}
		log.Error(ctx, "obtain redis key error", err)
		return "", errs.NewSystemBusyErr(err)
	}
	var session SessionInfo
	if err = json.Unmarshal([]byte(sessionStr), &session); err != nil || len(session.UserId) <= 0 {
		// 删除非法会话
		log.Warn(ctx, "illegal session", sessionStr)
		log.ErrorIf(ctx, client.Del(ctx, key).Err())
		return "", errs.ErrNoAuth
	}

	// 校验IP
	if len(session.LoginIP) > 0 && session.LoginIP != ctxs.ClientIP(ctx) {
		log.Warn(ctx, "session ip changed", session.LoginIP)
		return "", errs.ErrNoAuth
	}
	return session.UserId, nil
}
