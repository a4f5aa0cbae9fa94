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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitee.com/CloudFileManager/backend/delivery"
	"gitee.com/CloudFileManager/backend/errs"
	"gitee.com/CloudFileManager/backend/protocol"
	"gitee.com/CloudFileManager/backend/storage"
)

func TestResolveDownload(t *testing.T) {
	resolver, err := storage.NewResolver(t.TempDir())
	require.NoError(t, err)
	svc := NewFileService(resolver, delivery.NewResponder(nil))
	ctx := userCtx("user1")
	root, err := resolver.TenantRoot("user1")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))

	req, err := svc.ResolveDownload(ctx, &protocol.File_DownloadReq{Path: "docs/报告.pdf", Attachment: true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "docs", "报告.pdf"), req.Path)
	assert.Equal(t, "报告.pdf", req.Name)
	assert.True(t, req.Attachment)

	req, err = svc.ResolveDownload(ctx, &protocol.File_DownloadReq{Path: "../user2/secret.txt"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "user2", "secret.txt"), req.Path)

	for _, p := range []string{"/", ".chunks/abc/chunk_0", "docs/.."} {
		_, err = svc.ResolveDownload(ctx, &protocol.File_DownloadReq{Path: p})
		assert.ErrorIs(t, err, errs.ErrInvalidPath, p)
	}
	_, err = svc.ResolveDownload(ctx, &protocol.File_DownloadReq{})
	require.Error(t, err)
	assert.Equal(t, errs.Code_ParamsError, errs.As(err).Code)

	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))
	_, err = svc.ResolveDownload(ctx, &protocol.File_DownloadReq{Path: "escape/x"})
	assert.ErrorIs(t, err, errs.ErrInvalidPath)
}
