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
	"context"

	"gitee.com/CloudFileManager/backend/conn"
	"gitee.com/CloudFileManager/backend/ctxs"
	"gitee.com/CloudFileManager/backend/errs"
	"gitee.com/CloudFileManager/backend/log"
	"gitee.com/CloudFileManager/backend/model"
)

// Catalog 文件目录，记录上传完成的文件
type Catalog interface {
	RecordFile(ctx context.Context, f *model.TFile) error
}

// NewCatalog 启用MySQL时写数据库，否则不记录
func NewCatalog(ctx context.Context) Catalog {
	if conn.GetMySQLClient(ctx) == nil {
		return nopCatalog{}
	}
	return dbCatalog{}
}

type dbCatalog struct{}

// RecordFile 数据库新增文件信息实体
func (dbCatalog) RecordFile(ctx context.Context, f *model.TFile) error {
	err := conn.GetMySQLClient(ctx).Create(f).Error
	if err != nil {
		log.ErrorIf(ctx, conn.GetMySQLClient(ctxs.CloneCtx(ctx)).Table(f.TableName()).AutoMigrate(&model.TFile{}))
		err = conn.GetMySQLClient(ctx).Create(f).Error
		if err != nil {
			return errs.NewSystemBusyErr(err)
		}
	}
	return nil
}

type nopCatalog struct{}

func (nopCatalog) RecordFile(context.Context, *model.TFile) error { return nil }
