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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"gitee.com/CloudFileManager/backend/conn"
	"gitee.com/CloudFileManager/backend/ctxs"
	"gitee.com/CloudFileManager/backend/errs"
	"gitee.com/CloudFileManager/backend/log"
	"gitee.com/CloudFileManager/backend/util"
)

const antiShakeMinPeriod = 800 * time.Millisecond

var antiShakeScript = redis.NewScript(`
-- 防抖使用的Redis Hash键
local key = KEYS[1];
local field = KEYS[2]..KEYS[3];
-- 获取当前时间
local nowArr = redis.call('time');
local curAccessTime = tonumber(nowArr[1]) * 1000 + math.floor(tonumber(nowArr[2]) / 1000);
-- 获取用户该请求的上次请求时间
local lastAccessTime = tonumber(redis.call('hget', key, field) or 0);
-- 比较与本次请求时间
local delta = curAccessTime - lastAccessTime;
local limit = tonumber(ARGV[1] or 0);
if (delta >= 0 and delta < limit) or (delta < 0 and delta > -limit) then
	return 0;
end
-- 通过校验更新时间值
redis.call('hset', key, field, curAccessTime);
return 1;
`)

// AntiShakeFilter 请求防抖过滤器，未启用Redis时放行
func AntiShakeFilter(c *gin.Context) {
	ctx := c.Request.Context()
	client := conn.GetRedisClient(ctx)
	if client == nil {
		c.Next()
		return
	}

	// 执行Redis脚本
	keys := []string{conn.CacheKey_AntiShakeHash, ctxs.UserId(ctx), ctxs.RequestPath(ctx)}
	b, err := antiShakeScript.Run(ctx, client, keys, antiShakeMinPeriod.Milliseconds()).Bool()
	if err != nil {
		log.Error(ctx, "exec redis anti shake script error", err)
		util.FailByErr(c, errs.NewSystemBusyErr(err))
		return
	}
	// 丢掉请求
	if !b {
		util.FailByErr(c, errs.ErrTooManyRequest)
		return
	}

	c.Next()
}
