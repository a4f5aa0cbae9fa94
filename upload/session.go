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

// Package upload 分片上传会话、分片接收与合并
package upload

import (
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"gitee.com/CloudFileManager/backend/consts"
	"gitee.com/CloudFileManager/backend/storage"
)

// State 会话状态
type State string

// 会话状态
const (
	State_Init       State = "INIT"
	State_Receiving  State = "RECEIVING"
	State_Completing State = "COMPLETING"
	State_Done       State = "DONE"
	State_Failed     State = "FAILED"
	State_Aborted    State = "ABORTED"
)

// Session 一次分片上传的会话
type Session struct {
	Token            string
	OwnerId          string
	FileName         string
	DeclaredSize     int64
	ChunkCount       int
	TenantRoot       string
	ScratchDir       string
	TargetPath       string
	CreatedAt        time.Time
	ExpiresAt        time.Time
	SourceModifiedAt *time.Time

	mu         sync.Mutex
	received   map[int]struct{}
	state      State
	lastAccess time.Time
}

// NewSession 创建会话，分片暂存目录为 <tenantRoot>/.chunks/<token>
func NewSession(token, ownerId, fileName string, declaredSize int64, chunkCount int, tenantRoot, targetPath string,
	now time.Time, ttl time.Duration) *Session {
	return &Session{
		Token:        token,
		OwnerId:      ownerId,
		FileName:     fileName,
		DeclaredSize: declaredSize,
		ChunkCount:   chunkCount,
		TenantRoot:   tenantRoot,
		ScratchDir:   ScratchDirOf(tenantRoot, token),
		TargetPath:   targetPath,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		received:     make(map[int]struct{}, chunkCount),
		state:        State_Init,
		lastAccess:   now,
	}
}

// ScratchDirOf 会话的分片暂存目录
func ScratchDirOf(tenantRoot, token string) string {
	return filepath.Join(tenantRoot, consts.ScratchDirName, token)
}

// Validate 校验会话字段完整且路径未逃逸
func (s *Session) Validate() error {
	switch {
	case s == nil:
		return errors.New("nil session")
	case len(s.Token) != consts.UploadTokenLength:
		return errors.New("invalid token")
	case len(s.OwnerId) <= 0:
		return errors.New("missing owner")
	case len(s.FileName) <= 0 || len(s.FileName) > consts.MaxFileNameLength:
		return errors.New("invalid file name")
	case s.DeclaredSize < 0:
		return errors.New("negative size")
	case s.ChunkCount <= 0:
		return errors.New("invalid chunk count")
	case len(s.TenantRoot) <= 0 || !filepath.IsAbs(s.TenantRoot):
		return errors.New("invalid tenant root")
	case s.ScratchDir != ScratchDirOf(s.TenantRoot, s.Token):
		return errors.New("invalid scratch dir")
	case len(s.TargetPath) <= 0 || s.TargetPath == s.TenantRoot || !storage.Within(s.TenantRoot, s.TargetPath):
		return errors.New("invalid target path")
	case s.CreatedAt.IsZero() || !s.ExpiresAt.After(s.CreatedAt):
		return errors.New("invalid expiry")
	case s.received == nil:
		return errors.New("missing received set")
	}
	return nil
}

// Expired 会话是否已过期
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ChunkPath 分片文件路径
func (s *Session) ChunkPath(ordinal int) string {
	return filepath.Join(s.ScratchDir, consts.ChunkFilePrefix+strconv.Itoa(ordinal))
}

// State 当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastAccess 最近访问时间
func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// ReceivedCount 已接收分片数
func (s *Session) ReceivedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

// HasChunk 是否已接收该分片
func (s *Session) HasChunk(ordinal int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.received[ordinal]
	return ok
}

// Missing 未接收的分片序号，升序
func (s *Session) Missing() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	missing := make([]int, 0, s.ChunkCount-len(s.received))
	for i := 0; i < s.ChunkCount; i++ {
		if _, ok := s.received[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

// Received 已接收的分片序号，升序
func (s *Session) Received() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]int, 0, len(s.received))
	for k := range s.received {
		list = append(list, k)
	}
	sort.Ints(list)
	return list
}

// recordChunk 记录分片，返回已接收数量。调用方持有锁。
func (s *Session) recordChunk(ordinal int) int {
	s.received[ordinal] = struct{}{}
	if s.state == State_Init {
		s.state = State_Receiving
	}
	return len(s.received)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

// MarkReceiving 会话就绪，开始接收分片
func (s *Session) MarkReceiving() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == State_Init {
		s.state = State_Receiving
	}
}

// BeginComplete 校验分片齐全后切换为合并中，返回仍缺失的数量
func (s *Session) BeginComplete() (remaining int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining = s.ChunkCount - len(s.received)
	if remaining > 0 {
		return remaining, false
	}
	if s.state != State_Init && s.state != State_Receiving {
		return 0, false
	}
	s.state = State_Completing
	return 0, true
}

// Finish 合并结束，设置终态
func (s *Session) Finish(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if success {
		s.state = State_Done
	} else {
		s.state = State_Failed
	}
}

// MarkAborted 标记为已取消，合并中的会话不可取消
func (s *Session) MarkAborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == State_Completing {
		return false
	}
	s.state = State_Aborted
	return true
}
