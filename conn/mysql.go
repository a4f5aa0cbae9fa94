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

package conn

import (
	"context"
	"net"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gitee.com/CloudFileManager/backend/log"
	"gitee.com/CloudFileManager/backend/model"
)

var mysqlClient *gorm.DB

// InitialMySQL 初始化MySQL连接，主机为空时不启用
func InitialMySQL(ctx context.Context, user, passwd, host, port, db string, maxIdle, maxOpen int) {
	if len(host) <= 0 {
		log.Warn(ctx, "mysql not configured")
		return
	}
	if len(port) <= 0 {
		port = "3306"
	}
	cfg := mysqlDriver.NewConfig()
	cfg.User = user
	cfg.Passwd = passwd
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = db
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Params = map[string]string{"charset": "utf8mb4"}

	client, err := gorm.Open(mysql.Open(cfg.FormatDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatal(ctx, "open mysql error", err)
	}
	sqlDB, err := client.DB()
	if err != nil {
		log.Fatal(ctx, "obtain sql db error", err)
	}
	if maxIdle > 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	mysqlClient = client
	log.Info(ctx, "mysql connected", cfg.Addr)
}

// GetMySQLClient 获取MySQL客户端，未启用时返回nil
func GetMySQLClient(ctx context.Context) *gorm.DB {
	if mysqlClient == nil {
		return nil
	}
	return mysqlClient.WithContext(ctx)
}

// AutoMigrateAllTable 同步表结构
func AutoMigrateAllTable(ctx context.Context) error {
	if mysqlClient == nil {
		return nil
	}
	return mysqlClient.WithContext(ctx).AutoMigrate(&model.TFile{})
}

// CloseMysqlClient 关闭MySQL连接
func CloseMysqlClient(ctx context.Context) {
	if mysqlClient == nil {
		return
	}
	sqlDB, err := mysqlClient.DB()
	if err != nil {
		log.Error(ctx, err)
		return
	}
	log.ErrorIf(ctx, sqlDB.Close())
}
