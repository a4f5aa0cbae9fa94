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

package upload

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"gitee.com/CloudFileManager/backend/errs"
	"gitee.com/CloudFileManager/backend/log"
	"gitee.com/CloudFileManager/backend/storage"
)

const copyBufferSize = 32 * 1024

// 分片结果
const (
	chunkOutcome_Stored    = "stored"
	chunkOutcome_Duplicate = "duplicate"
	chunkOutcome_Rejected  = "rejected"
	chunkOutcome_Failed    = "failed"
)

// ChunkRequest 分片上传请求
type ChunkRequest struct {
	Token   string
	OwnerId string
	Ordinal int
	// Size 分片大小，未知时为-1
	Size    int64
	Payload io.Reader
}

// ChunkResult 分片上传结果
type ChunkResult struct {
	ChunkNumber int
	Uploaded    int
	Total       int
	IsComplete  bool
}

// Receiver 分片接收
type Receiver struct {
	store        *Store
	maxChunkSize int64
	metrics      *Metrics
}

// NewReceiver 创建分片接收器
func NewReceiver(store *Store, maxChunkSize int64, metrics *Metrics) *Receiver {
	return &Receiver{store: store, maxChunkSize: maxChunkSize, metrics: metrics}
}

// Lookup 获取会话并校验归属和有效期，过期会话会被移除
func (r *Receiver) Lookup(ctx context.Context, token, ownerId string) (*Session, error) {
	sess, ok := r.store.Get(token)
	if !ok {
		return nil, errs.ErrInvalidSession
	}
	if sess.OwnerId != ownerId {
		log.Warn(ctx, "upload session owner mismatch", token, sess.OwnerId)
		return nil, errs.ErrUnauthorized
	}
	if sess.Expired(r.store.Now()) {
		r.store.Expire(token)
		return nil, errs.ErrSessionExpired
	}
	return sess, nil
}

// Receive 校验并保存一个分片，重复的分片直接返回成功
func (r *Receiver) Receive(ctx context.Context, req *ChunkRequest) (*ChunkResult, error) {
	// 校验会话
	sess, err := r.Lookup(ctx, req.Token, req.OwnerId)
	if err != nil {
		r.metrics.recordChunk(chunkOutcome_Rejected, 0)
		return nil, err
	}
	if req.Ordinal < 0 || req.Ordinal >= sess.ChunkCount {
		r.metrics.recordChunk(chunkOutcome_Rejected, 0)
		return nil, errs.ErrInvalidChunkNumber
	}
	if req.Size > r.maxChunkSize {
		r.metrics.recordChunk(chunkOutcome_Rejected, 0)
		return nil, errs.NewParamsErrMsg("chunk too large")
	}
	switch sess.State() {
	case State_Init, State_Receiving:
	default:
		r.metrics.recordChunk(chunkOutcome_Rejected, 0)
		return nil, errs.ErrInvalidSession
	}

	// 已接收的分片不再写入
	if sess.HasChunk(req.Ordinal) {
		r.metrics.recordChunk(chunkOutcome_Duplicate, 0)
		return r.result(sess, req.Ordinal), nil
	}

	// 写入暂存目录
	written, err := r.persist(ctx, sess, req)
	if err != nil {
		return nil, err
	}

	// 记录分片
	var uploaded int
	err = r.store.Update(req.Token, func(s *Session) error {
		if s.state != State_Init && s.state != State_Receiving {
			return errs.ErrInvalidSession
		}
		uploaded = s.recordChunk(req.Ordinal)
		return nil
	})
	if errors.Is(err, ErrSessionNotFound) {
		err = errs.ErrInvalidSession
	}
	if err != nil {
		r.metrics.recordChunk(chunkOutcome_Rejected, 0)
		return nil, err
	}
	r.metrics.recordChunk(chunkOutcome_Stored, written)
	log.Debug(ctx, "chunk stored", req.Token, req.Ordinal, written)
	return &ChunkResult{
		ChunkNumber: req.Ordinal,
		Uploaded:    uploaded,
		Total:       sess.ChunkCount,
		IsComplete:  uploaded == sess.ChunkCount,
	}, nil
}

func (r *Receiver) result(sess *Session, ordinal int) *ChunkResult {
	uploaded := sess.ReceivedCount()
	return &ChunkResult{
		ChunkNumber: ordinal,
		Uploaded:    uploaded,
		Total:       sess.ChunkCount,
		IsComplete:  uploaded == sess.ChunkCount,
	}
}

// persist 先写临时文件再改名为 chunk_<n>，同序号并发写入以最后一次为准
func (r *Receiver) persist(ctx context.Context, sess *Session, req *ChunkRequest) (int64, error) {
	target := sess.ChunkPath(req.Ordinal)
	for _, p := range []string{sess.ScratchDir, target} {
		if err := storage.Revalidate(sess.TenantRoot, p); err != nil {
			log.Warn(ctx, "scratch path changed during session", req.Token, p, err)
			r.metrics.recordChunk(chunkOutcome_Rejected, 0)
			return 0, err
		}
	}
	// 暂存目录由初始化创建，不存在说明会话已被取消或淘汰
	tmp, err := os.CreateTemp(sess.ScratchDir, filepath.Base(target)+".*.tmp")
	if err != nil {
		if os.IsNotExist(err) {
			r.metrics.recordChunk(chunkOutcome_Rejected, 0)
			return 0, errs.ErrInvalidSession
		}
		r.metrics.recordChunk(chunkOutcome_Failed, 0)
		return 0, errs.NewSystemBusyErr(errors.Wrap(err, "create chunk temp file"))
	}
	tmpName := tmp.Name()
	removeTmp := func() {
		if err := os.Remove(tmpName); err != nil && !os.IsNotExist(err) {
			log.Error(ctx, "remove chunk temp file error", err)
		}
	}

	buf := make([]byte, copyBufferSize)
	written, err := io.CopyBuffer(tmp, io.LimitReader(req.Payload, r.maxChunkSize+1), buf)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		removeTmp()
		r.metrics.recordChunk(chunkOutcome_Failed, 0)
		return 0, errs.NewSystemBusyErr(errors.Wrap(err, "write chunk"))
	}
	if written > r.maxChunkSize {
		removeTmp()
		r.metrics.recordChunk(chunkOutcome_Rejected, 0)
		return 0, errs.NewParamsErrMsg("chunk too large")
	}
	if err = os.Rename(tmpName, target); err != nil {
		removeTmp()
		r.metrics.recordChunk(chunkOutcome_Failed, 0)
		return 0, errs.NewSystemBusyErr(errors.Wrap(err, "rename chunk"))
	}
	return written, nil
}
