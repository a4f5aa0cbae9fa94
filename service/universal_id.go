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
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"gitee.com/CloudFileManager/backend/conn"
	"gitee.com/CloudFileManager/backend/errs"
	"gitee.com/CloudFileManager/backend/log"
)

const (
	IdScope_File = "file"

	cacheKey_GenIdFmt = "cfm:gen:id:%s"
)

// GenerateId 生成唯一id，启用Redis时登记防重
func GenerateId(ctx context.Context, scope string) (string, error) {
	client := conn.GetRedisClient(ctx)
	for {
		id := strings.ReplaceAll(time.Now().Format("200601")+uuid.NewString(), "-", "")
		if client == nil {
			return id, nil
		}
		result, err := client.SAdd(ctx, fmt.Sprintf(cacheKey_GenIdFmt, scope), id).Result()
		if err != nil {
			log.Error(ctx, err)
			return "", errs.NewSystemBusyErr(err)
		}
		if result > 0 {
			return id, nil
		}
		time.Sleep(time.Second)
	}
}

// NewUploadToken 生成上传凭证，两个随机UUID的十六进制拼接
func NewUploadToken() string {
	a, b := uuid.New(), uuid.New()
	return strings.ReplaceAll(a.String()+b.String(), "-", "")
}
