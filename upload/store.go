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
	"context"
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/ivfzhou/cron/v3"

	"gitee.com/CloudFileManager/backend/ctxs"
	"gitee.com/CloudFileManager/backend/log"
)

var (
	// ErrSessionExists 凭证已存在
	ErrSessionExists = errors.New("upload session already exists")
	// ErrSessionNotFound 会话不存在
	ErrSessionNotFound = errors.New("upload session not found")
)

// 会话移除原因
const (
	removal_Deleted  = "deleted"
	removal_Expired  = "expired"
	removal_Evicted  = "evicted"
	removal_Invalid  = "invalid"
	removal_Overflow = "overflow"
)

// StoreOption 会话仓库选项
type StoreOption func(*Store)

// WithClock 注入时钟
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// WithMetrics 注入指标
func WithMetrics(m *Metrics) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

// Store 上传会话仓库，按最近访问排序，超出容量时淘汰最久未访问的会话
type Store struct {
	capacity int
	cache    *lru.Cache[string, *Session]
	now      func() time.Time
	metrics  *Metrics
	cron     *cron.Cron
}

// NewStore 创建会话仓库，capacity为软上限，硬上限为其两倍
func NewStore(capacity int, opts ...StoreOption) (*Store, error) {
	if capacity <= 0 {
		return nil, errors.New("store capacity must be positive")
	}
	s := &Store{capacity: capacity, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	cache, err := lru.NewWithEvict[string, *Session](capacity*2, s.onEvict)
	if err != nil {
		return nil, errors.Wrap(err, "new session lru")
	}
	s.cache = cache
	return s, nil
}

// onEvict 所有移除路径都经过这里，删除分片暂存目录
func (s *Store) onEvict(token string, sess *Session) {
	ctx := ctxs.WithUserId(ctxs.NewCtx("session-evict"), sess.OwnerId)
	if err := os.RemoveAll(sess.ScratchDir); err != nil {
		log.Errorf(ctx, "remove scratch dir of session %s error %v", token, err)
	}
	s.metrics.setSessions(s.cache.Len())
}

// Now 当前时间
func (s *Store) Now() time.Time {
	return s.now()
}

// Create 新增会话，凭证已存在时返回 ErrSessionExists
func (s *Store) Create(token string, sess *Session) error {
	if sess == nil || sess.Token != token {
		return errors.New("session token mismatch")
	}
	if err := sess.Validate(); err != nil {
		return errors.Wrap(err, "validate session")
	}
	sess.touch(s.now())
	found, evicted := s.cache.ContainsOrAdd(token, sess)
	if found {
		return ErrSessionExists
	}
	if evicted {
		s.metrics.recordRemoval(removal_Overflow)
	}
	if s.cache.Len() > s.capacity {
		s.evictOldest(s.evictBatch(s.capacity))
	}
	s.metrics.setSessions(s.cache.Len())
	return nil
}

// Get 获取会话并刷新访问时间，校验不通过的会话视为不存在并移除
func (s *Store) Get(token string) (*Session, bool) {
	sess, ok := s.cache.Get(token)
	if !ok {
		return nil, false
	}
	if err := sess.Validate(); err != nil {
		log.Errorf(ctxs.NewCtx("session-get"), "drop invalid session %s: %v", token, err)
		s.metrics.recordRemoval(removal_Invalid)
		s.cache.Remove(token)
		return nil, false
	}
	sess.touch(s.now())
	return sess, true
}

// Update 在会话锁内执行fn，fn中不可调用会加锁的会话方法
func (s *Store) Update(token string, fn func(*Session) error) error {
	sess, ok := s.Get(token)
	if !ok {
		return ErrSessionNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return fn(sess)
}

// Delete 移除会话及其暂存目录
func (s *Store) Delete(token string) bool {
	if !s.cache.Contains(token) {
		return false
	}
	s.metrics.recordRemoval(removal_Deleted)
	return s.cache.Remove(token)
}

// Expire 移除过期会话
func (s *Store) Expire(token string) bool {
	if !s.cache.Contains(token) {
		return false
	}
	s.metrics.recordRemoval(removal_Expired)
	return s.cache.Remove(token)
}

// Has 会话是否存在，不刷新访问时间
func (s *Store) Has(token string) bool {
	return s.cache.Contains(token)
}

// Len 会话数量
func (s *Store) Len() int {
	return s.cache.Len()
}

// Tokens 所有会话凭证，按最久未访问到最近访问排序
func (s *Store) Tokens() []string {
	return s.cache.Keys()
}

// Sweep 清理过期会话，仍超出容量时淘汰剩余会话中最久未访问的一成
func (s *Store) Sweep() (expired, evicted int) {
	now := s.now()
	for _, token := range s.cache.Keys() {
		sess, ok := s.cache.Peek(token)
		if !ok {
			continue
		}
		if sess.Expired(now) && s.Expire(token) {
			expired++
		}
	}
	if n := s.cache.Len(); n > s.capacity {
		evicted = s.evictOldest(s.evictBatch(n))
	}
	return expired, evicted
}

func (s *Store) evictBatch(n int) int {
	batch := n / 10
	if batch < 1 {
		batch = 1
	}
	return batch
}

func (s *Store) evictOldest(n int) int {
	evicted := 0
	for i := 0; i < n; i++ {
		token, _, ok := s.cache.RemoveOldest()
		if !ok {
			break
		}
		evicted++
		s.metrics.recordRemoval(removal_Evicted)
		log.Warn(ctxs.NewCtx("session-evict"), "evict upload session", token)
	}
	return evicted
}

// Start 按周期清理会话
func (s *Store) Start(ctx context.Context, interval time.Duration) error {
	if interval < time.Second {
		interval = time.Second
	}
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func(time.Time) {
		cctx := ctxs.NewCtx("session-sweep")
		defer func() {
			if p := recover(); p != nil {
				log.Errorf(cctx, "sweep upload session panic %v %s", p, log.GetStack())
			}
		}()
		expired, evicted := s.Sweep()
		if expired > 0 || evicted > 0 {
			log.Infof(cctx, "sweep upload session expired %d evicted %d remain %d", expired, evicted, s.Len())
		}
	})
	if err != nil {
		return errors.Wrap(err, "add sweep job")
	}
	s.cron = c
	c.Start()
	log.Info(ctx, "upload session sweeper started", interval)
	return nil
}

// Close 停止周期清理
func (s *Store) Close(ctx context.Context) {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	log.Info(ctx, "upload session sweeper stopped")
}
