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

package protocol

// InitUploadReq 初始化分片上传请求参数
type InitUploadReq struct {
	FileName    string `json:"fileName" form:"fileName"`
	FileSize    int64  `json:"fileSize" form:"fileSize"`
	ChunkCount  int    `json:"chunkCount" form:"chunkCount"`
	CurrentPath string `json:"currentPath" form:"currentPath"`
	// LastModified 源文件修改时间，毫秒时间戳
	LastModified int64 `json:"lastModified" form:"lastModified"`
}

// InitUploadRsp 初始化分片上传响应数据
type InitUploadRsp struct {
	UploadToken string `json:"uploadToken"`
	ChunkSize   int64  `json:"chunkSize"`
	// ExpiresAt 会话过期时间，毫秒时间戳
	ExpiresAt int64 `json:"expiresAt"`
}

// UploadChunkRsp 上传分片响应数据
type UploadChunkRsp struct {
	ChunkNumber    int  `json:"chunkNumber"`
	UploadedChunks int  `json:"uploadedChunks"`
	TotalChunks    int  `json:"totalChunks"`
	IsComplete     bool `json:"isComplete"`
}

// UploadTokenReq 携带上传凭证的请求参数
type UploadTokenReq struct {
	UploadToken string `json:"uploadToken" form:"uploadToken"`
}

// CompleteUploadRsp 完成上传响应数据
type CompleteUploadRsp struct {
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	Path     string `json:"path"`
	Digest   string `json:"digest"`
}

// UploadStatusRsp 上传进度响应数据
type UploadStatusRsp struct {
	UploadedChunks int   `json:"uploadedChunks"`
	TotalChunks    int   `json:"totalChunks"`
	Missing        []int `json:"missing"`
	ExpiresAt      int64 `json:"expiresAt"`
}
