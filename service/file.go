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
	"path"
	"path/filepath"

	"gitee.com/CloudFileManager/backend/ctxs"
	"gitee.com/CloudFileManager/backend/delivery"
	"gitee.com/CloudFileManager/backend/errs"
	"gitee.com/CloudFileManager/backend/protocol"
	"gitee.com/CloudFileManager/backend/storage"
)

// FileService 文件下载
type FileService struct {
	resolver  *storage.Resolver
	responder *delivery.Responder
}

// NewFileService 创建文件服务
func NewFileService(resolver *storage.Resolver, responder *delivery.Responder) *FileService {
	return &FileService{resolver: resolver, responder: responder}
}

// ResolveDownload 解析当前用户的下载路径
func (s *FileService) ResolveDownload(ctx context.Context, req *protocol.File_DownloadReq) (*delivery.Request, error) {
	// 校验参数
	if len(req.Path) <= 0 {
		return nil, errs.NewParamsErrMsg("path required")
	}
	tenantRoot, err := s.resolver.TenantRoot(ctxs.UserId(ctx))
	if err != nil {
		return nil, err
	}
	p, err := storage.JoinWithinRoot(tenantRoot, path.Clean("/"+req.Path))
	if err != nil {
		return nil, err
	}
	if p == tenantRoot || inScratchArea(tenantRoot, p) {
		return nil, errs.ErrInvalidPath
	}
	return &delivery.Request{
		Path:       p,
		Name:       filepath.Base(p),
		Attachment: req.Attachment,
	}, nil
}

// Responder 下载响应器
func (s *FileService) Responder() *delivery.Responder {
	return s.responder
}
