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
	"strconv"

	"github.com/gin-gonic/gin"

	"gitee.com/CloudFileManager/backend/errs"
	"gitee.com/CloudFileManager/backend/log"
	"gitee.com/CloudFileManager/backend/protocol"
	"gitee.com/CloudFileManager/backend/service"
	"gitee.com/CloudFileManager/backend/util"
)

// UploadAPI 文件分片上传接口
type UploadAPI struct {
	svc *service.UploadService
}

// NewUploadAPI 创建分片上传接口
func NewUploadAPI(svc *service.UploadService) *UploadAPI {
	return &UploadAPI{svc: svc}
}

// Init godoc
//
//	@Summary	初始化分片上传
//	@Tags		upload-api
//	@Accept		json
//	@Produce	json
//	@Param		Authorization	header		string					true	"jwt凭证"
//	@Param		reqBody			body		protocol.InitUploadReq	true	"reqBody"
//	@Success	200				{object}	protocol.InitUploadRsp
//	@Router		/api/upload/init [post]
func (a *UploadAPI) Init(c *gin.Context) {
	ctx := c.Request.Context()

	// 获取请求参数
	var req protocol.InitUploadReq
	err := c.ShouldBind(&req)
	if err != nil {
		log.Warn(ctx, err)
		util.FailByErr(c, errs.NewParamsErr(err))
		return
	}

	// 调用下游
	rsp, err := a.svc.Init(ctx, &req)
	if err != nil {
		util.FailByErr(c, err)
		return
	}

	util.Success(c, rsp)
}

// UploadChunk godoc
//
//	@Summary	上传分片
//	@Tags		upload-api
//	@Accept		mpfd
//	@Produce	json
//	@Param		Authorization	header		string	true	"jwt凭证"
//	@Param		chunk			formData	file	true	"分片"
//	@Param		uploadToken		formData	string	true	"上传凭证"
//	@Param		chunkNumber		formData	integer	true	"分片序号"
//	@Success	200				{object}	protocol.UploadChunkRsp
//	@Router		/api/upload/chunk [post]
func (a *UploadAPI) UploadChunk(c *gin.Context) {
	ctx := c.Request.Context()

	// 获取请求参数
	multipartForm, err := c.MultipartForm()
	if err != nil {
		log.Warn(ctx, err)
		util.FailByErr(c, errs.NewParamsErr(err))
		return
	}
	files := multipartForm.File["chunk"]
	if len(files) != 1 {
		util.FailByErr(c, errs.NewParamsErrMsg("chunk required"))
		return
	}
	tokens := multipartForm.Value["uploadToken"]
	if len(tokens) != 1 {
		util.FailByErr(c, errs.NewParamsErrMsg("uploadToken required"))
		return
	}
	chunkNumbers := multipartForm.Value["chunkNumber"]
	if len(chunkNumbers) != 1 {
		util.FailByErr(c, errs.NewParamsErrMsg("chunkNumber required"))
		return
	}
	chunkNumber, err := strconv.Atoi(chunkNumbers[0])
	if err != nil {
		util.FailByErr(c, errs.NewParamsErr(err))
		return
	}
	file := files[0]
	fileObj, err := file.Open()
	if err != nil {
		log.Error(ctx, err)
		util.FailByErr(c, errs.NewSystemBusyErr(err))
		return
	}
	defer util.CloseIO(ctx, fileObj)

	// 调用下游
	rsp, err := a.svc.UploadChunk(ctx, tokens[0], chunkNumber, file.Size, fileObj)
	if err != nil {
		util.FailByErr(c, err)
		return
	}

	util.Success(c, rsp)
}

// Complete godoc
//
//	@Summary	完成上传，合并分片
//	@Tags		upload-api
//	@Accept		json
//	@Produce	json
//	@Param		Authorization	header		string					true	"jwt凭证"
//	@Param		reqBody			body		protocol.UploadTokenReq	true	"reqBody"
//	@Success	200				{object}	protocol.CompleteUploadRsp
//	@Router		/api/upload/complete [post]
func (a *UploadAPI) Complete(c *gin.Context) {
	ctx := c.Request.Context()

	// 获取请求参数
	var req protocol.UploadTokenReq
	if err := c.ShouldBind(&req); err != nil {
		log.Warn(ctx, err)
		util.FailByErr(c, errs.NewParamsErr(err))
		return
	}

	// 调用下游
	rsp, err := a.svc.Complete(ctx, req.UploadToken)
	if err != nil {
		util.FailByErr(c, err)
		return
	}

	util.Success(c, rsp)
}

// Abort godoc
//
//	@Summary	取消上传
//	@Tags		upload-api
//	@Accept		json
//	@Produce	json
//	@Param		Authorization	header		string					true	"jwt凭证"
//	@Param		reqBody			body		protocol.UploadTokenReq	true	"reqBody"
//	@Success	200				{object}	nil
//	@Router		/api/upload/abort [post]
func (a *UploadAPI) Abort(c *gin.Context) {
	ctx := c.Request.Context()

	// 获取请求参数
	var req protocol.UploadTokenReq
	if err := c.ShouldBind(&req); err != nil {
		log.Warn(ctx, err)
		util.FailByErr(c, errs.NewParamsErr(err))
		return
	}

	// 调用下游
	if err := a.svc.Abort(ctx, req.UploadToken); err != nil {
		util.FailByErr(c, err)
		return
	}

	util.SuccessMsg(c, "已取消")
}

// Status godoc
//
//	@Summary	查询上传进度
//	@Tags		upload-api
//	@Produce	json
//	@Param		Authorization	header		string	true	"jwt凭证"
//	@Param		uploadToken		query		string	true	"上传凭证"
//	@Success	200				{object}	protocol.UploadStatusRsp
//	@Router		/api/upload/status [get]
func (a *UploadAPI) Status(c *gin.Context) {
	ctx := c.Request.Context()

	// 获取请求参数
	var req protocol.UploadTokenReq
	if err := c.ShouldBindQuery(&req); err != nil {
		log.Warn(ctx, err)
		util.FailByErr(c, errs.NewParamsErr(err))
		return
	}

	// 调用下游
	rsp, err := a.svc.Status(ctx, req.UploadToken)
	if err != nil {
		util.FailByErr(c, err)
		return
	}

	util.Success(c, rsp)
}
