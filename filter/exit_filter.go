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
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"gitee.com/CloudFileManager/backend/log"
	"gitee.com/CloudFileManager/backend/util"
)

// ExitFilter 进程关闭后拒绝新请求，返回503
func ExitFilter(ctx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		select {
		case <-ctx.Done():
			log.Warn(c.Request.Context(), "server is shutting down, reject", c.Request.Method, c.Request.URL.Path)
			util.Fail(c, http.StatusServiceUnavailable, "server is shutting down")
		default:
			c.Next()
		}
	}
}
