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

// Package cron 定时任务
package cron

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/ivfzhou/cron/v3"

	"gitee.com/CloudFileManager/backend/conn"
	"gitee.com/CloudFileManager/backend/consts"
	"gitee.com/CloudFileManager/backend/ctxs"
	"gitee.com/CloudFileManager/backend/log"
	"gitee.com/CloudFileManager/backend/upload"
)

var c *cron.Cron

// OrphanCleaner 清理没有对应会话的分片暂存目录（进程重启后遗留）
type OrphanCleaner struct {
	root  string
	store *upload.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewOrphanCleaner 创建遗留分片清理任务，仅清理修改时间早于ttl的目录
func NewOrphanCleaner(root string, store *upload.Store, ttl time.Duration) *OrphanCleaner {
	return &OrphanCleaner{root: root, store: store, ttl: ttl, now: time.Now}
}

// InitialCron 初始化定时任务
func InitialCron(ctx context.Context, cleaner *OrphanCleaner) {
	c = cron.New(cron.WithSeconds())
	if _, err := c.AddFunc("0 0 2 * * *", cronWrapper("OrphanScratchCleaner", cleaner.Run)); err != nil {
		log.Fatal(ctx, err)
	}
	c.Start()
	log.Info(ctx, "init cron success")
}

// CloseCron 停止定时任务，等待运行中的任务结束
func CloseCron(ctx context.Context) {
	if c == nil {
		return
	}
	<-c.Stop().Done()
	log.Info(ctx, "cron stopped")
}

// Run 执行一次清理
func (o *OrphanCleaner) Run(ctx context.Context, cronName string, runTime time.Time) {
	if redisClient := conn.GetRedisClient(ctx); redisClient != nil {
		// 多实例共享存储时只由一个实例清理
		b, err := redisClient.SetNX(ctx,
			fmt.Sprintf(conn.CacheKey_OrphanCleanFmt, runTime.Format("20060102150405")),
			cronName, 5*time.Minute).Result()
		log.ErrorIf(ctx, err)
		if !b {
			return
		}
	}
	removed, err := o.Clean(ctx)
	if err != nil {
		log.Error(ctx, err)
	}
	if removed > 0 {
		log.Infof(ctx, "removed %d orphan scratch dir", removed)
	}
}

// Clean 删除遗留分片目录，返回删除数量
func (o *OrphanCleaner) Clean(ctx context.Context) (int, error) {
	dirs, err := filepath.Glob(filepath.Join(o.root, "*", consts.ScratchDirName, "*"))
	if err != nil {
		return 0, errors.Wrap(err, "glob scratch dir")
	}
	deadline := o.now().Add(-o.ttl)
	removed := 0
	for _, dir := range dirs {
		token := filepath.Base(dir)
		if o.store != nil && o.store.Has(token) {
			continue
		}
		info, err := os.Lstat(dir)
		if err != nil || !info.IsDir() || info.ModTime().After(deadline) {
			continue
		}
		if err = os.RemoveAll(dir); err != nil {
			log.Errorf(ctx, "remove orphan scratch dir %s error %v", dir, err)
			continue
		}
		removed++
	}
	return removed, nil
}

func cronWrapper(cronName string, fn func(ctx context.Context, cronName string, runTime time.Time)) func(time.Time) {
	return func(t time.Time) {
		ctx := ctxs.NewCtx(cronName)
		defer func() {
			if p := recover(); p != nil {
				log.Errorf(ctx, "run cron panic %v %s", p, log.GetStack())
			}
		}()
		fn(ctx, cronName, t)
	}
}
