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

// Package model 数据库实体
package model

import "time"

// TFile 已上传完成的文件
type TFile struct {
	Id         uint      `gorm:"primaryKey;autoIncrement"`
	FileId     string    `gorm:"type:char(38);uniqueIndex;not null"`
	OwnerId    string    `gorm:"type:varchar(64);index;not null"`
	Name       string    `gorm:"type:varchar(255);not null"`
	Path       string    `gorm:"type:varchar(1024);not null"`
	Size       int64     `gorm:"not null"`
	Digest     string    `gorm:"type:char(64);not null"`
	ModifiedAt time.Time `gorm:"not null"`
	CreateTime time.Time `gorm:"autoCreateTime"`
	UpdateTime time.Time `gorm:"autoUpdateTime"`
}

// TableName 表名
func (*TFile) TableName() string {
	return "t_file"
}
