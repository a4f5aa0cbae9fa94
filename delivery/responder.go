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

package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"gitee.com/CloudFileManager/backend/errs"
	"gitee.com/CloudFileManager/backend/log"
	"gitee.com/CloudFileManager/backend/util"
)

const streamBufferSize = 32 * 1024

// Request 下载请求
type Request struct {
	// Path 已校验过的文件绝对路径
	Path string
	// Name 下载文件名
	Name string
	// Attachment 是否以附件形式下载
	Attachment bool
	// Range 请求头Range的值
	Range string
	// HeadOnly 只返回响应头
	HeadOnly bool
}

// Responder 文件下载响应
type Responder struct {
	metrics *Metrics
}

// NewResponder 创建下载响应器
func NewResponder(metrics *Metrics) *Responder {
	return &Responder{metrics: metrics}
}

// Serve 输出文件。写出响应头之前的失败以错误返回，由调用方响应；之后的失败只记录日志。
func (r *Responder) Serve(ctx context.Context, w http.ResponseWriter, req *Request) error {
	// 打开文件
	f, err := os.Open(req.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return errs.ErrFileNotExists
		}
		r.metrics.record(outcome_Failed, 0)
		return errs.NewSystemBusyErr(pkgerrors.Wrap(err, "open file"))
	}
	defer util.CloseIO(ctx, f)
	info, err := f.Stat()
	if err != nil {
		r.metrics.record(outcome_Failed, 0)
		return errs.NewSystemBusyErr(pkgerrors.Wrap(err, "stat file"))
	}
	if !info.Mode().IsRegular() {
		return errs.ErrFileNotExists
	}
	size := info.Size()

	// 公共响应头
	h := w.Header()
	h.Set("Content-Type", ContentType(req.Name))
	h.Set("Content-Disposition", ContentDisposition(req.Name, req.Attachment))
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Accept-Ranges", "bytes")
	h.Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))

	// 解析范围
	br, err := ParseRange(req.Range, size)
	if err != nil {
		h.Del("Content-Disposition")
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		r.metrics.record(outcome_Unsatisfied, 0)
		log.Info(ctx, "range not satisfiable", req.Range, size)
		return nil
	}
	status, outcome := http.StatusOK, outcome_Full
	start, length := int64(0), size
	if br != nil {
		status, outcome = http.StatusPartialContent, outcome_Partial
		start, length = br.Start, br.Length()
		h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", br.Start, br.End, size))
	}
	h.Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(status)
	if req.HeadOnly {
		r.metrics.record(outcome_Head, 0)
		return nil
	}

	// 输出内容
	src := &ctxReader{ctx: ctx, r: io.NewSectionReader(f, start, length)}
	sent, err := io.CopyBuffer(w, src, make([]byte, streamBufferSize))
	if err != nil {
		r.metrics.record(outcome_Aborted, sent)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			log.Info(ctx, "transfer aborted by client", req.Path, sent, length)
		} else {
			log.Warn(ctx, "transfer aborted", req.Path, sent, length, err)
		}
		return nil
	}
	r.metrics.record(outcome, sent)
	return nil
}

// ctxReader 上下文取消后停止读取
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
