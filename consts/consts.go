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

package consts

const (
	// SessionKey 浏览器会话Cookie键名
	SessionKey = "cfm_session"
	// RequestIdHeader 请求Id头
	RequestIdHeader = "X-CFM-Request-Id"
	// ScratchDirName 分片暂存目录名，位于租户根目录下
	ScratchDirName = ".chunks"
	// ChunkFilePrefix 分片文件名前缀
	ChunkFilePrefix = "chunk_"
	// UploadTokenLength 上传凭证长度
	UploadTokenLength = 64
	// MaxFileNameLength 文件名最大长度
	MaxFileNameLength = 255
)
