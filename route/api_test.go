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

package route

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitee.com/CloudFileManager/backend/api"
	"gitee.com/CloudFileManager/backend/delivery"
	"gitee.com/CloudFileManager/backend/protocol"
	"gitee.com/CloudFileManager/backend/service"
	"gitee.com/CloudFileManager/backend/storage"
	"gitee.com/CloudFileManager/backend/upload"
)

const testSecret = "route-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	token  string
	cancel context.CancelFunc
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	resolver, err := storage.NewResolver(t.TempDir())
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	uploadMetrics, err := upload.NewMetrics(reg)
	require.NoError(t, err)
	deliveryMetrics, err := delivery.NewMetrics(reg)
	require.NoError(t, err)
	store, err := upload.NewStore(10, upload.WithMetrics(uploadMetrics))
	require.NoError(t, err)

	uploadService := service.NewUploadService(service.UploadConf{
		ChunkSize:     4,
		MaxChunkSize:  4,
		MaxFileSize:   1 << 20,
		MaxChunkCount: 100,
		SessionTTL:    time.Hour,
	}, resolver, store, upload.NewAssembler(uploadMetrics), nil, nil, uploadMetrics)
	fileService := service.NewFileService(resolver, delivery.NewResponder(deliveryMetrics))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	router := InitialRouter(ctx, &Options{
		UploadAPI: api.NewUploadAPI(uploadService),
		FileAPI:   api.NewFileAPI(fileService),
		JWTSecret: testSecret,
		Gatherer:  reg,
	})
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "alice"}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)
	return &testServer{t: t, router: router, token: token, cancel: cancel}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) postJSON(path string, body any) *httptest.ResponseRecorder {
	data, err := json.Marshal(body)
	require.NoError(s.t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *testServer) postChunk(token string, ordinal int, payload []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(s.t, mw.WriteField("uploadToken", token))
	require.NoError(s.t, mw.WriteField("chunkNumber", strconv.Itoa(ordinal)))
	fw, err := mw.CreateFormFile("chunk", "blob")
	require.NoError(s.t, err)
	_, err = fw.Write(payload)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/upload/chunk", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) (*envelope, *T) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if !env.Success || len(env.Data) <= 0 {
		return &env, nil
	}
	v := new(T)
	require.NoError(t, json.Unmarshal(env.Data, v))
	return &env, v
}

func TestUploadAndDownload(t *testing.T) {
	s := newTestServer(t)
	content := []byte("hello, chunked world")
	chunks := [][]byte{content[:4], content[4:8], content[8:12], content[12:16], content[16:]}

	// 初始化
	w := s.postJSON("/api/upload/init", &protocol.InitUploadReq{
		FileName:    "hello.txt",
		FileSize:    int64(len(content)),
		ChunkCount:  len(chunks),
		CurrentPath: "/docs",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, initRsp := decode[protocol.InitUploadRsp](t, w)
	require.NotNil(t, initRsp)
	require.Len(t, initRsp.UploadToken, 64)
	assert.EqualValues(t, 4, initRsp.ChunkSize)

	// 乱序上传，最后一个分片之前合并失败
	for _, i := range []int{4, 1, 3, 0} {
		w = s.postChunk(initRsp.UploadToken, i, chunks[i])
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w = s.postJSON("/api/upload/complete", &protocol.UploadTokenReq{UploadToken: initRsp.UploadToken})
	assert.Equal(t, http.StatusConflict, w.Code)
	env, _ := decode[struct{}](t, w)
	assert.Equal(t, "incomplete_upload", env.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/upload/status?uploadToken="+initRsp.UploadToken, nil)
	w = s.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	_, status := decode[protocol.UploadStatusRsp](t, w)
	require.NotNil(t, status)
	assert.Equal(t, []int{2}, status.Missing)

	w = s.postChunk(initRsp.UploadToken, 2, chunks[2])
	require.Equal(t, http.StatusOK, w.Code)
	_, chunkRsp := decode[protocol.UploadChunkRsp](t, w)
	require.NotNil(t, chunkRsp)
	assert.True(t, chunkRsp.IsComplete)

	w = s.postJSON("/api/upload/complete", &protocol.UploadTokenReq{UploadToken: initRsp.UploadToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, done := decode[protocol.CompleteUploadRsp](t, w)
	require.NotNil(t, done)
	assert.EqualValues(t, len(content), done.FileSize)
	assert.Len(t, done.Digest, 64)

	// 会话已结束
	w = s.postChunk(initRsp.UploadToken, 0, chunks[0])
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 完整下载
	query := "/api/file/download?path=" + url.QueryEscape("/docs/hello.txt")
	w = s.do(httptest.NewRequest(http.MethodGet, query, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, content, w.Body.Bytes())
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))

	// 部分下载
	req = httptest.NewRequest(http.MethodGet, query, nil)
	req.Header.Set("Range", "bytes=7-11")
	w = s.do(req)
	require.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "chunk", w.Body.String())
	assert.Equal(t, fmt.Sprintf("bytes 7-11/%d", len(content)), w.Header().Get("Content-Range"))

	req = httptest.NewRequest(http.MethodGet, query, nil)
	req.Header.Set("Range", "bytes=100-")
	w = s.do(req)
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
	assert.Equal(t, fmt.Sprintf("bytes */%d", len(content)), w.Header().Get("Content-Range"))

	w = s.do(httptest.NewRequest(http.MethodHead, query, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, strconv.Itoa(len(content)), w.Header().Get("Content-Length"))
	assert.Zero(t, w.Body.Len())

	// 重复上传同名文件
	w = s.postJSON("/api/upload/init", &protocol.InitUploadReq{
		FileName: "hello.txt", FileSize: 1, ChunkCount: 1, CurrentPath: "/docs",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAbortUpload(t *testing.T) {
	s := newTestServer(t)
	w := s.postJSON("/api/upload/init", &protocol.InitUploadReq{FileName: "a.bin", FileSize: 8, ChunkCount: 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, initRsp := decode[protocol.InitUploadRsp](t, w)
	require.NotNil(t, initRsp)

	w = s.postJSON("/api/upload/abort", &protocol.UploadTokenReq{UploadToken: initRsp.UploadToken})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.postChunk(initRsp.UploadToken, 0, []byte("abcd"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterRejectsAnonymous(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/upload/status?uploadToken=x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cfm_upload")
}

func TestRouterShuttingDown(t *testing.T) {
	s := newTestServer(t)
	s.cancel()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
