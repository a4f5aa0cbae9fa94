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

// Package errs 业务错误定义
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// 错误码
const (
	Code_ParamsError        = "params_error"
	Code_SystemBusy         = "system_busy"
	Code_InvalidSession     = "invalid_session"
	Code_Unauthorized       = "unauthorized"
	Code_SessionExpired     = "session_expired"
	Code_InvalidChunkNumber = "invalid_chunk_number"
	Code_IncompleteUpload   = "incomplete_upload"
	Code_AssemblyError      = "assembly_error"
	Code_SizeMismatch       = "size_mismatch"
	Code_FileExists         = "file_exists"
	Code_FileNotExists      = "file_not_exists"
	Code_InvalidPath        = "invalid_path"
	Code_NoAuth             = "no_auth"
	Code_TooManyRequest     = "too_many_request"
	Code_ShuttingDown       = "shutting_down"
)

// Error 业务错误，携带响应状态码
type Error struct {
	HTTPStatus int
	Code       string
	Msg        string
	Data       any
	WrappedErr error
}

var (
	// ErrInvalidSession 上传会话不存在
	ErrInvalidSession = &Error{HTTPStatus: http.StatusNotFound, Code: Code_InvalidSession, Msg: "upload session not found"}
	// ErrUnauthorized 会话不属于当前用户
	ErrUnauthorized = &Error{HTTPStatus: http.StatusForbidden, Code: Code_Unauthorized, Msg: "unauthorized"}
	// ErrSessionExpired 会话已过期
	ErrSessionExpired = &Error{HTTPStatus: http.StatusGone, Code: Code_SessionExpired, Msg: "upload session expired"}
	// ErrInvalidChunkNumber 分片序号越界
	ErrInvalidChunkNumber = &Error{HTTPStatus: http.StatusBadRequest, Code: Code_InvalidChunkNumber, Msg: "invalid chunk number"}
	// ErrAssembly 合并分片失败
	ErrAssembly = &Error{HTTPStatus: http.StatusInternalServerError, Code: Code_AssemblyError, Msg: "failed to assemble file"}
	// ErrSizeMismatch 合并后大小与声明不一致
	ErrSizeMismatch = &Error{HTTPStatus: http.StatusUnprocessableEntity, Code: Code_SizeMismatch, Msg: "assembled size does not match declared size"}
	// ErrFileExists 目标文件已存在
	ErrFileExists = &Error{HTTPStatus: http.StatusConflict, Code: Code_FileExists, Msg: "file already exists"}
	// ErrFileNotExists 文件不存在
	ErrFileNotExists = &Error{HTTPStatus: http.StatusNotFound, Code: Code_FileNotExists, Msg: "file not exists"}
	// ErrInvalidPath 非法路径
	ErrInvalidPath = &Error{HTTPStatus: http.StatusBadRequest, Code: Code_InvalidPath, Msg: "invalid path"}
	// ErrNoAuth 未登录
	ErrNoAuth = &Error{HTTPStatus: http.StatusUnauthorized, Code: Code_NoAuth, Msg: "please login first"}
	// ErrTooManyRequest 请求过于频繁
	ErrTooManyRequest = &Error{HTTPStatus: http.StatusTooManyRequests, Code: Code_TooManyRequest, Msg: "too many request"}
)

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.WrappedErr != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.WrappedErr)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap 获取包裹的错误
func (e *Error) Unwrap() error {
	return e.WrappedErr
}

// Is 同错误码即视为同一错误
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap 复制错误并包裹原因
func (e *Error) Wrap(err error) *Error {
	ne := *e
	ne.WrappedErr = err
	return &ne
}

// NewParamsErr 参数错误
func NewParamsErr(err error) *Error {
	return &Error{
		HTTPStatus: http.StatusBadRequest,
		Code:       Code_ParamsError,
		Msg:        "params error",
		WrappedErr: err,
	}
}

// NewParamsErrMsg 参数错误，附带提示
func NewParamsErrMsg(msg string) *Error {
	return &Error{
		HTTPStatus: http.StatusBadRequest,
		Code:       Code_ParamsError,
		Msg:        msg,
	}
}

// NewSystemBusyErr 系统错误
func NewSystemBusyErr(err error) *Error {
	return &Error{
		HTTPStatus: http.StatusInternalServerError,
		Code:       Code_SystemBusy,
		Msg:        "system busy",
		WrappedErr: err,
	}
}

// NewIncompleteUploadErr 分片未全部上传
func NewIncompleteUploadErr(remaining int) *Error {
	return &Error{
		HTTPStatus: http.StatusConflict,
		Code:       Code_IncompleteUpload,
		Msg:        fmt.Sprintf("upload incomplete, %d chunks remaining", remaining),
		Data:       map[string]int{"remaining": remaining},
	}
}

// As 转换为业务错误，未知错误视为系统错误
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewSystemBusyErr(err)
}
