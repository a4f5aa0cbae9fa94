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

// Package delivery 文件下载，支持单段Range请求
package delivery

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrRangeNotSatisfiable 请求范围无法满足
var ErrRangeNotSatisfiable = errors.New("range not satisfiable")

// ByteRange 闭区间 [Start, End]
type ByteRange struct {
	Start int64
	End   int64
}

// Length 范围长度
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ParseRange 解析Range头，只处理第一段 bytes=start-end 或 bytes=start-。
// 头为空时返回nil。后缀范围、其他单位与格式错误均视为无法满足。
func ParseRange(header string, size int64) (*ByteRange, error) {
	header = strings.TrimSpace(header)
	if len(header) <= 0 {
		return nil, nil
	}
	const prefix = "bytes="
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return nil, ErrRangeNotSatisfiable
	}
	byteRange := header[len(prefix):]
	if i := strings.IndexByte(byteRange, ','); i >= 0 {
		byteRange = byteRange[:i]
	}
	byteRange = strings.TrimSpace(byteRange)
	startStr, endStr, ok := strings.Cut(byteRange, "-")
	if !ok || len(startStr) <= 0 {
		return nil, ErrRangeNotSatisfiable
	}
	start, err := parseOffset(startStr)
	if err != nil {
		return nil, err
	}
	end := size - 1
	if len(endStr) > 0 {
		if end, err = parseOffset(endStr); err != nil {
			return nil, err
		}
	}
	if start > end || end >= size {
		return nil, ErrRangeNotSatisfiable
	}
	return &ByteRange{Start: start, End: end}, nil
}

func parseOffset(s string) (int64, error) {
	s = strings.TrimSpace(s)
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, ErrRangeNotSatisfiable
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrRangeNotSatisfiable
	}
	return v, nil
}
