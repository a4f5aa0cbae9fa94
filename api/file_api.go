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

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gitee.com/CloudFileManager/backend/errs"
	"gitee.com/CloudFileManager/backend/log"
	"gitee.com/CloudFileManager/backend/protocol"
	"gitee.com/CloudFileManager/backend/service"
	"gitee.com/CloudFileManager/backend/util"
)

// FileAPI 文件下载接口
type FileAPI struct {
	svc *service.FileService
}

// NewFileAPI 创建文件下载接口
func NewFileAPI(svc *service.FileService) *FileAPI {
	return &FileAPI{svc: svc}
}

// Download godoc
//
//	@Summary	下载，支持单段Range请求
//	@Tags		file-api
//	@produce	octet-stream
//	@Param		Authorization	header	string	true	"jwt凭证"
//	@Param		Range			header	string	false	"bytes=start-end"
//	@Param		path			query	string	true	"文件路径"
//	@Param		attachment		query	bool	false	"以附件形式下载"
//	@Success	200
//	@Success	206
//	@Failure	416
//	@Router		/api/file/download [get]
func (a *FileAPI) Download(c *gin.Context) {
	ctx := c.Request.Context()

	// 获取请求参数
	var req protocol.File_DownloadReq
	if err := c.ShouldBindQuery(&req); err != nil {
		log.Warn(ctx, err)
		util.FailByErr(c, errs.NewParamsErr(err))
		return
	}

	// 调用下游
	dreq, err := a.svc.ResolveDownload(ctx, &req)
	if err != nil {
		util.FailByErr(c, err)
		return
	}
	dreq.Range = c.GetHeader("Range")
	dreq.HeadOnly = c.Request.Method == http.MethodHead
	if err = a.svc.Responder().Serve(ctx, c.Writer, dreq); err != nil {
		util.FailByErr(c, err)
	}
}
