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
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitee.com/CloudFileManager/backend/errs"
)

const testFileSize = 1000

func newTestFile(t *testing.T) (string, []byte) {
	t.Helper()
	data := make([]byte, testFileSize)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path, data
}

func newTestResponder(t *testing.T) *Responder {
	t.Helper()
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return NewResponder(metrics)
}

func TestServeFull(t *testing.T) {
	path, data := newTestFile(t)
	w := httptest.NewRecorder()
	err := newTestResponder(t).Serve(context.Background(), w, &Request{Path: path, Name: "data.bin"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, data, w.Body.Bytes())
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	assert.Equal(t, fmt.Sprint(testFileSize), w.Header().Get("Content-Length"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, defaultContentType, w.Header().Get("Content-Type"))
	assert.Empty(t, w.Header().Get("Content-Range"))
}

func TestServeFirstHalf(t *testing.T) {
	path, data := newTestFile(t)
	w := httptest.NewRecorder()
	req := &Request{Path: path, Name: "data.bin", Range: fmt.Sprintf("bytes=0-%d", testFileSize/2-1)}
	require.NoError(t, newTestResponder(t).Serve(context.Background(), w, req))

	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, data[:testFileSize/2], w.Body.Bytes())
	assert.Equal(t, fmt.Sprintf("bytes 0-%d/%d", testFileSize/2-1, testFileSize), w.Header().Get("Content-Range"))
	assert.Equal(t, fmt.Sprint(testFileSize/2), w.Header().Get("Content-Length"))
}

func TestServeOpenEndedAndMultiRange(t *testing.T) {
	path, data := newTestFile(t)
	responder := newTestResponder(t)

	w := httptest.NewRecorder()
	require.NoError(t, responder.Serve(context.Background(), w, &Request{Path: path, Name: "d", Range: "bytes=990-"}))
	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, data[990:], w.Body.Bytes())

	w = httptest.NewRecorder()
	require.NoError(t, responder.Serve(context.Background(), w,
		&Request{Path: path, Name: "d", Range: "bytes=10-19,30-39"}))
	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, data[10:20], w.Body.Bytes())
	assert.Equal(t, "bytes 10-19/1000", w.Header().Get("Content-Range"))
}

func TestServeUnsatisfiable(t *testing.T) {
	path, _ := newTestFile(t)
	responder := newTestResponder(t)
	for _, rng := range []string{
		fmt.Sprintf("bytes=%d-%d", testFileSize, testFileSize), "bytes=-100", "bytes=20-10", "bytes=0-1000",
	} {
		w := httptest.NewRecorder()
		require.NoError(t, responder.Serve(context.Background(), w, &Request{Path: path, Name: "d", Range: rng}))
		assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code, rng)
		assert.Equal(t, fmt.Sprintf("bytes */%d", testFileSize), w.Header().Get("Content-Range"), rng)
		assert.Empty(t, w.Body.Bytes(), rng)
	}
}

func TestServeHead(t *testing.T) {
	path, _ := newTestFile(t)
	w := httptest.NewRecorder()
	req := &Request{Path: path, Name: "page.html", Range: "bytes=0-9", HeadOnly: true}
	require.NoError(t, newTestResponder(t).Serve(context.Background(), w, req))

	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "10", w.Header().Get("Content-Length"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Empty(t, w.Body.Bytes())
}

func TestServeCanceled(t *testing.T) {
	path, _ := newTestFile(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := httptest.NewRecorder()
	require.NoError(t, newTestResponder(t).Serve(ctx, w, &Request{Path: path, Name: "d"}))
	assert.Empty(t, w.Body.Bytes())
}

func TestServeMissing(t *testing.T) {
	w := httptest.NewRecorder()
	err := newTestResponder(t).Serve(context.Background(), w,
		&Request{Path: filepath.Join(t.TempDir(), "absent"), Name: "absent"})
	assert.ErrorIs(t, err, errs.ErrFileNotExists)

	err = newTestResponder(t).Serve(context.Background(), w, &Request{Path: t.TempDir(), Name: "dir"})
	assert.ErrorIs(t, err, errs.ErrFileNotExists)
}
