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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitee.com/CloudFileManager/backend/errs"
)

func newTestReceiver(t *testing.T, clock *fakeClock) (*Store, *Receiver, string) {
	t.Helper()
	store, err := NewStore(10, WithClock(clock.Now))
	require.NoError(t, err)
	return store, NewReceiver(store, 8, nil), newTestTenant(t)
}

func chunkReq(token, owner string, ordinal int, payload string) *ChunkRequest {
	return &ChunkRequest{
		Token:   token,
		OwnerId: owner,
		Ordinal: ordinal,
		Size:    int64(len(payload)),
		Payload: strings.NewReader(payload),
	}
}

func TestReceiverReceive(t *testing.T) {
	clock := newFakeClock()
	store, receiver, root := newTestReceiver(t, clock)
	sess := newTestSession(t, root, 0, 3, 9, clock.Now())
	require.NoError(t, store.Create(sess.Token, sess))
	ctx := context.Background()

	rsp, err := receiver.Receive(ctx, chunkReq(sess.Token, "user1", 2, "ccc"))
	require.NoError(t, err)
	assert.Equal(t, &ChunkResult{ChunkNumber: 2, Uploaded: 1, Total: 3, IsComplete: false}, rsp)
	data, err := os.ReadFile(sess.ChunkPath(2))
	require.NoError(t, err)
	assert.Equal(t, "ccc", string(data))

	// 重复上传不改写
	rsp, err = receiver.Receive(ctx, chunkReq(sess.Token, "user1", 2, "zzz"))
	require.NoError(t, err)
	assert.Equal(t, 1, rsp.Uploaded)
	data, err = os.ReadFile(sess.ChunkPath(2))
	require.NoError(t, err)
	assert.Equal(t, "ccc", string(data))

	_, err = receiver.Receive(ctx, chunkReq(sess.Token, "user1", 0, "aaa"))
	require.NoError(t, err)
	rsp, err = receiver.Receive(ctx, chunkReq(sess.Token, "user1", 1, "bbb"))
	require.NoError(t, err)
	assert.True(t, rsp.IsComplete)
	assert.Equal(t, 3, rsp.Uploaded)

	entries, err := os.ReadDir(sess.ScratchDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestReceiverRejections(t *testing.T) {
	clock := newFakeClock()
	store, receiver, root := newTestReceiver(t, clock)
	sess := newTestSession(t, root, 0, 2, 6, clock.Now())
	require.NoError(t, store.Create(sess.Token, sess))
	ctx := context.Background()

	_, err := receiver.Receive(ctx, chunkReq(testToken(9), "user1", 0, "a"))
	assert.ErrorIs(t, err, errs.ErrInvalidSession)

	_, err = receiver.Receive(ctx, chunkReq(sess.Token, "user2", 0, "a"))
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	_, err = receiver.Receive(ctx, chunkReq(sess.Token, "user1", 2, "a"))
	assert.ErrorIs(t, err, errs.ErrInvalidChunkNumber)
	_, err = receiver.Receive(ctx, chunkReq(sess.Token, "user1", -1, "a"))
	assert.ErrorIs(t, err, errs.ErrInvalidChunkNumber)

	_, err = receiver.Receive(ctx, chunkReq(sess.Token, "user1", 0, "123456789"))
	require.Error(t, err)
	assert.Equal(t, errs.Code_ParamsError, errs.As(err).Code)

	// 声明大小未知时按实际读取的长度判断
	req := chunkReq(sess.Token, "user1", 0, "123456789")
	req.Size = -1
	_, err = receiver.Receive(ctx, req)
	require.Error(t, err)
	assert.Equal(t, errs.Code_ParamsError, errs.As(err).Code)
	assert.False(t, sess.HasChunk(0))
	entries, err := os.ReadDir(sess.ScratchDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReceiverExpired(t *testing.T) {
	clock := newFakeClock()
	store, receiver, root := newTestReceiver(t, clock)
	sess := newTestSession(t, root, 0, 2, 6, clock.Now())
	require.NoError(t, store.Create(sess.Token, sess))
	ctx := context.Background()

	clock.Advance(25 * time.Hour)
	// 归属校验先于过期校验
	_, err := receiver.Receive(ctx, chunkReq(sess.Token, "user2", 0, "abc"))
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	_, err = receiver.Receive(ctx, chunkReq(sess.Token, "user1", 0, "abc"))
	assert.ErrorIs(t, err, errs.ErrSessionExpired)
	assert.NoDirExists(t, sess.ScratchDir)

	_, err = receiver.Receive(ctx, chunkReq(sess.Token, "user1", 0, "abc"))
	assert.ErrorIs(t, err, errs.ErrInvalidSession)
}

func TestReceiverRejectsWhileCompleting(t *testing.T) {
	clock := newFakeClock()
	store, receiver, root := newTestReceiver(t, clock)
	sess := newTestSession(t, root, 0, 1, 3, clock.Now())
	require.NoError(t, store.Create(sess.Token, sess))
	ctx := context.Background()

	_, err := receiver.Receive(ctx, chunkReq(sess.Token, "user1", 0, "abc"))
	require.NoError(t, err)
	_, ok := sess.BeginComplete()
	require.True(t, ok)

	_, err = receiver.Receive(ctx, chunkReq(sess.Token, "user1", 0, "abc"))
	assert.ErrorIs(t, err, errs.ErrInvalidSession)
}

func TestReceiverConcurrent(t *testing.T) {
	clock := newFakeClock()
	store, receiver, root := newTestReceiver(t, clock)
	const n = 8
	sess := newTestSession(t, root, 0, n, n*4, clock.Now())
	require.NoError(t, store.Create(sess.Token, sess))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			wg.Add(1)
			go func(ordinal int) {
				defer wg.Done()
				payload := bytes.Repeat([]byte{byte('a' + ordinal)}, 4)
				_, err := receiver.Receive(ctx, chunkReq(sess.Token, "user1", ordinal, string(payload)))
				assert.NoError(t, err)
			}(i)
		}
	}
	wg.Wait()

	assert.Equal(t, n, sess.ReceivedCount())
	for i := 0; i < n; i++ {
		data, err := os.ReadFile(sess.ChunkPath(i))
		require.NoError(t, err)
		assert.Equal(t, bytes.Repeat([]byte{byte('a' + i)}, 4), data)
	}
	entries, err := os.ReadDir(sess.ScratchDir)
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

func TestReceiverRejectsSwappedScratchDir(t *testing.T) {
	clock := newFakeClock()
	store, receiver, root := newTestReceiver(t, clock)
	sess := newTestSession(t, root, 0, 2, 6, clock.Now())
	require.NoError(t, store.Create(sess.Token, sess))

	// .chunks 被换成指向外部的符号链接
	outside := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(outside, sess.Token), 0o755))
	scratchRoot := filepath.Dir(sess.ScratchDir)
	require.NoError(t, os.RemoveAll(scratchRoot))
	require.NoError(t, os.Symlink(outside, scratchRoot))

	_, err := receiver.Receive(context.Background(), chunkReq(sess.Token, "user1", 0, "abc"))
	assert.ErrorIs(t, err, errs.ErrInvalidPath)
	entries, err := os.ReadDir(filepath.Join(outside, sess.Token))
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.False(t, sess.HasChunk(0))
}

func TestReceiverMissingScratchDir(t *testing.T) {
	clock := newFakeClock()
	store, receiver, root := newTestReceiver(t, clock)
	sess := newTestSession(t, root, 0, 2, 6, clock.Now())
	require.NoError(t, store.Create(sess.Token, sess))

	// 取消与写入并发时，暂存目录已被删除
	require.NoError(t, os.RemoveAll(sess.ScratchDir))
	_, err := receiver.Receive(context.Background(), chunkReq(sess.Token, "user1", 0, "abc"))
	assert.ErrorIs(t, err, errs.ErrInvalidSession)
	assert.NoDirExists(t, sess.ScratchDir)
}
