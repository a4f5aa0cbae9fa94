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
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"gitee.com/CloudFileManager/backend/consts"
	"gitee.com/CloudFileManager/backend/ctxs"
	"gitee.com/CloudFileManager/backend/errs"
	"gitee.com/CloudFileManager/backend/log"
	"gitee.com/CloudFileManager/backend/model"
	"gitee.com/CloudFileManager/backend/protocol"
	"gitee.com/CloudFileManager/backend/storage"
	"gitee.com/CloudFileManager/backend/upload"
)

// UploadConf 上传限制
type UploadConf struct {
	ChunkSize     int64
	MaxChunkSize  int64
	MaxFileSize   int64
	MaxChunkCount int
	SessionTTL    time.Duration
}

// UploadService 分片上传流程：初始化、上传分片、完成、取消
type UploadService struct {
	conf      UploadConf
	resolver  *storage.Resolver
	store     *upload.Store
	receiver  *upload.Receiver
	assembler *upload.Assembler
	catalog   Catalog
	notifier  Notifier
	group     singleflight.Group
}

// NewUploadService 创建上传服务
func NewUploadService(conf UploadConf, resolver *storage.Resolver, store *upload.Store, assembler *upload.Assembler,
	catalog Catalog, notifier Notifier, metrics *upload.Metrics) *UploadService {
	if catalog == nil {
		catalog = nopCatalog{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &UploadService{
		conf:      conf,
		resolver:  resolver,
		store:     store,
		receiver:  upload.NewReceiver(store, conf.MaxChunkSize, metrics),
		assembler: assembler,
		catalog:   catalog,
		notifier:  notifier,
	}
}

// Init 初始化分片上传
func (s *UploadService) Init(ctx context.Context, req *protocol.InitUploadReq) (*protocol.InitUploadRsp, error) {
	ownerId := ctxs.UserId(ctx)

	// 校验参数
	if err := s.checkInitReq(req); err != nil {
		log.Warn(ctx, err)
		return nil, err
	}

	// 解析目标路径
	tenantRoot, err := s.resolver.TenantRoot(ownerId)
	if err != nil {
		return nil, err
	}
	target, err := storage.JoinWithinRoot(tenantRoot, path.Join("/", req.CurrentPath, req.FileName))
	if err != nil {
		return nil, err
	}
	if target == tenantRoot || inScratchArea(tenantRoot, target) {
		return nil, errs.ErrInvalidPath
	}
	if _, err = os.Lstat(target); err == nil {
		return nil, errs.ErrFileExists
	} else if !os.IsNotExist(err) {
		log.Error(ctx, err)
		return nil, errs.NewSystemBusyErr(err)
	}

	// 创建会话
	now := s.store.Now()
	token := NewUploadToken()
	sess := upload.NewSession(token, ownerId, req.FileName, req.FileSize, req.ChunkCount, tenantRoot, target, now,
		s.conf.SessionTTL)
	if req.LastModified > 0 {
		mt := time.UnixMilli(req.LastModified)
		sess.SourceModifiedAt = &mt
	}
	if err = sess.Validate(); err != nil {
		log.Warn(ctx, err)
		return nil, errs.NewParamsErr(err)
	}
	if err = os.MkdirAll(sess.ScratchDir, 0o755); err != nil {
		log.Error(ctx, err)
		return nil, errs.NewSystemBusyErr(errors.Wrap(err, "create scratch dir"))
	}
	if err = s.store.Create(token, sess); err != nil {
		log.Error(ctx, err)
		log.ErrorIf(ctx, os.RemoveAll(sess.ScratchDir))
		return nil, errs.NewSystemBusyErr(err)
	}
	sess.MarkReceiving()
	log.Info(ctx, "upload session created", token, req.FileName, req.FileSize, req.ChunkCount)

	return &protocol.InitUploadRsp{
		UploadToken: token,
		ChunkSize:   s.conf.ChunkSize,
		ExpiresAt:   sess.ExpiresAt.UnixMilli(),
	}, nil
}

func (s *UploadService) checkInitReq(req *protocol.InitUploadReq) error {
	name := req.FileName
	switch {
	case len(name) <= 0 || len(name) > consts.MaxFileNameLength:
		return errs.NewParamsErrMsg("invalid file name")
	case name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00"):
		return errs.NewParamsErrMsg("invalid file name")
	case strings.ContainsRune(req.CurrentPath, 0):
		return errs.NewParamsErrMsg("invalid current path")
	case req.FileSize < 0 || req.FileSize > s.conf.MaxFileSize:
		return errs.NewParamsErrMsg("invalid file size")
	case req.ChunkCount <= 0 || req.ChunkCount > s.conf.MaxChunkCount:
		return errs.NewParamsErrMsg("invalid chunk count")
	case req.FileSize > int64(req.ChunkCount)*s.conf.MaxChunkSize:
		return errs.NewParamsErrMsg("chunk count too small for file size")
	case req.LastModified < 0:
		return errs.NewParamsErrMsg("invalid last modified")
	}
	return nil
}

// UploadChunk 上传一个分片
func (s *UploadService) UploadChunk(ctx context.Context, token string, ordinal int, size int64,
	payload io.Reader) (*protocol.UploadChunkRsp, error) {
	if len(token) != consts.UploadTokenLength {
		return nil, errs.ErrInvalidSession
	}
	rsp, err := s.receiver.Receive(ctx, &upload.ChunkRequest{
		Token:   token,
		OwnerId: ctxs.UserId(ctx),
		Ordinal: ordinal,
		Size:    size,
		Payload: payload,
	})
	if err != nil {
		return nil, err
	}
	return &protocol.UploadChunkRsp{
		ChunkNumber:    rsp.ChunkNumber,
		UploadedChunks: rsp.Uploaded,
		TotalChunks:    rsp.Total,
		IsComplete:     rsp.IsComplete,
	}, nil
}

// Complete 合并分片，同一凭证的并发请求只执行一次
func (s *UploadService) Complete(ctx context.Context, token string) (*protocol.CompleteUploadRsp, error) {
	// 校验请求，是同一人
	if _, err := s.receiver.Lookup(ctx, token, ctxs.UserId(ctx)); err != nil {
		return nil, err
	}
	v, err, shared := s.group.Do(token, func() (any, error) {
		return s.complete(ctx, token)
	})
	if shared {
		log.Info(ctx, "complete request shared", token)
	}
	if err != nil {
		return nil, err
	}
	return v.(*protocol.CompleteUploadRsp), nil
}

func (s *UploadService) complete(ctx context.Context, token string) (*protocol.CompleteUploadRsp, error) {
	ownerId := ctxs.UserId(ctx)
	sess, err := s.receiver.Lookup(ctx, token, ownerId)
	if err != nil {
		return nil, err
	}

	// 校验分片齐全并切换状态
	remaining, ok := sess.BeginComplete()
	if !ok {
		if remaining > 0 {
			return nil, errs.NewIncompleteUploadErr(remaining)
		}
		return nil, errs.ErrInvalidSession
	}
	// 删除会话缓存信息
	defer s.store.Delete(token)

	// 合并与登记不受请求取消影响
	dctx := ctxs.CloneCtx(ctx)
	artifact, err := s.assembler.Assemble(dctx, sess)
	sess.Finish(err == nil)
	if err != nil {
		log.Error(ctx, "assemble upload error", token, err)
		return nil, err
	}

	relPath, err := filepath.Rel(sess.TenantRoot, artifact.Path)
	if err != nil {
		return nil, errs.NewSystemBusyErr(err)
	}
	relPath = "/" + filepath.ToSlash(relPath)
	now := time.Now()
	modifiedAt := now
	if sess.SourceModifiedAt != nil {
		modifiedAt = *sess.SourceModifiedAt
	}

	// 记录文件，失败不回滚
	fileId, err := GenerateId(dctx, IdScope_File)
	if err == nil {
		err = s.catalog.RecordFile(dctx, &model.TFile{
			FileId:     fileId,
			OwnerId:    ownerId,
			Name:       sess.FileName,
			Path:       relPath,
			Size:       artifact.Size,
			Digest:     artifact.Digest,
			ModifiedAt: modifiedAt,
		})
	}
	if err != nil {
		log.Error(ctx, "record uploaded file error", relPath, err)
	}
	s.notifier.Notify(ctx, &Event{
		Id:         fileId,
		Type:       EventType_Created,
		OwnerId:    ownerId,
		Path:       relPath,
		Size:       artifact.Size,
		Digest:     artifact.Digest,
		OccurredAt: now,
	})
	log.Info(ctx, "upload completed", token, relPath, artifact.Size, artifact.Digest)

	return &protocol.CompleteUploadRsp{
		FileName: sess.FileName,
		FileSize: artifact.Size,
		Path:     relPath,
		Digest:   artifact.Digest,
	}, nil
}

// Abort 取消上传，凭证不存在也视为成功
func (s *UploadService) Abort(ctx context.Context, token string) error {
	sess, ok := s.store.Get(token)
	if !ok {
		return nil
	}
	if sess.OwnerId != ctxs.UserId(ctx) {
		log.Warn(ctx, "abort upload session of other owner", token)
		return errs.ErrUnauthorized
	}
	// 合并中的会话由合并流程删除
	if !sess.MarkAborted() {
		log.Info(ctx, "abort ignored, session completing", token)
		return nil
	}
	s.store.Delete(token)
	log.Info(ctx, "upload session aborted", token)
	return nil
}

// Status 查询上传进度，用于断点续传
func (s *UploadService) Status(ctx context.Context, token string) (*protocol.UploadStatusRsp, error) {
	sess, err := s.receiver.Lookup(ctx, token, ctxs.UserId(ctx))
	if err != nil {
		return nil, err
	}
	missing := sess.Missing()
	return &protocol.UploadStatusRsp{
		UploadedChunks: sess.ChunkCount - len(missing),
		TotalChunks:    sess.ChunkCount,
		Missing:        missing,
		ExpiresAt:      sess.ExpiresAt.UnixMilli(),
	}, nil
}

// inScratchArea 是否位于分片暂存目录
func inScratchArea(tenantRoot, p string) bool {
	return storage.Within(filepath.Join(tenantRoot, consts.ScratchDirName), p)
}
