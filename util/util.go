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

// Package util 通用工具
package util

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"gitee.com/CloudFileManager/backend/errs"
	"gitee.com/CloudFileManager/backend/log"
)

// ErrorMessageHeader 错误信息响应头，访问日志读取
const ErrorMessageHeader = "X-CFM-Error-Message"

type successRsp struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type failRsp struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, &successRsp{Success: true, Data: data})
}

// SuccessMsg 成功响应，附带提示
func SuccessMsg(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, &successRsp{Success: true, Message: msg})
}

// Fail 失败响应
func Fail(c *gin.Context, status int, msg string) {
	c.Header(ErrorMessageHeader, url.QueryEscape(msg))
	code := errs.Code_SystemBusy
	switch status {
	case http.StatusBadRequest:
		code = errs.Code_ParamsError
	case http.StatusUnauthorized:
		code = errs.Code_NoAuth
	case http.StatusForbidden:
		code = errs.Code_Unauthorized
	case http.StatusTooManyRequests:
		code = errs.Code_TooManyRequest
	case http.StatusServiceUnavailable:
		code = errs.Code_ShuttingDown
	}
	c.AbortWithStatusJSON(status, &failRsp{Code: code, Message: msg})
}

// FailByErr 按业务错误响应
func FailByErr(c *gin.Context, err error) {
	e := errs.As(err)
	if e.HTTPStatus >= http.StatusInternalServerError && e.WrappedErr != nil {
		log.Error(c.Request.Context(), e.WrappedErr)
	}
	c.Header(ErrorMessageHeader, url.QueryEscape(e.Msg))
	c.AbortWithStatusJSON(e.HTTPStatus, &failRsp{Code: e.Code, Message: e.Msg, Data: e.Data})
}

// CloseIO 关闭流，失败打印日志
func CloseIO(ctx context.Context, c io.Closer) {
	if c == nil {
		return
	}
	log.ErrorIf(ctx, c.Close())
}

// DoThreeTimesIfErr 出错时重试，最多三次
func DoThreeTimesIfErr(fn func() error) (err error) {
	for i := 0; i < 3; i++ {
		if err = fn(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
	}
	return err
}
