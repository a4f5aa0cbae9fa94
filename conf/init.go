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

// Package conf 配置
package conf

import (
	"time"

	"github.com/go-ini/ini"
)

// Conf 配置
var Conf Data

// Data 配置
type Data struct {
	ServeAddr string `ini:"serveAddr"`
	Swagger   bool   `ini:"swagger"`
	Log       `ini:"log"`
	Redis     `ini:"redis"`
	MySQL     `ini:"mysql"`
	RabbitMQ  `ini:"rabbitmq"`
	Storage   `ini:"storage"`
	Upload    `ini:"upload"`
	Auth      `ini:"auth"`
}

// Log 日志配置
type Log struct {
	LogDir   string        `ini:"logDir"`
	Module   string        `ini:"module"`
	MaxAge   time.Duration `ini:"maxAge"`
	Rotation time.Duration `ini:"rotation"`
	Debug    bool          `ini:"debug"`
}

// Redis Redis连接配置，Addr为空时不启用
type Redis struct {
	Addr   string `ini:"addr"`
	Passwd string `ini:"passwd"`
	DB     int    `ini:"db"`
}

// MySQL MySQL连接配置，Host为空时不启用
type MySQL struct {
	User    string `ini:"user"`
	Passwd  string `ini:"passwd"`
	Host    string `ini:"host"`
	Port    string `ini:"port"`
	DB      string `ini:"db"`
	MaxIdea int    `ini:"maxIdea"`
	MaxOpen int    `ini:"maxOpen"`
}

// RabbitMQ RabbitMQ相关配置，URI为空时不启用
type RabbitMQ struct {
	URI      string `ini:"uri"`
	Exchange string `ini:"exchange"`
}

// Storage 文件存储配置
type Storage struct {
	Root string `ini:"root"`
}

// Upload 分片上传配置
type Upload struct {
	ChunkSize     int64         `ini:"chunkSize"`
	MaxChunkSize  int64         `ini:"maxChunkSize"`
	MaxFileSize   int64         `ini:"maxFileSize"`
	MaxChunkCount int           `ini:"maxChunkCount"`
	SessionTTL    time.Duration `ini:"sessionTTL"`
	SweepInterval time.Duration `ini:"sweepInterval"`
	Capacity      int           `ini:"capacity"`
}

// Auth 鉴权配置
type Auth struct {
	JWTSecret string `ini:"jwtSecret"`
}

const (
	defaultServeAddr     = ":8080"
	defaultStorageRoot   = "data"
	defaultChunkSize     = 5 << 20
	defaultMaxChunkSize  = 16 << 20
	defaultMaxFileSize   = 10 << 30
	defaultMaxChunkCount = 10000
	defaultSessionTTL    = 24 * time.Hour
	defaultSweepInterval = 30 * time.Minute
	defaultCapacity      = 1000
	defaultExchange      = "cfm.file"
)

// InitialConf 初始化配置
func InitialConf(file string) {
	data, err := Load(file)
	if err != nil {
		panic(err)
	}
	Conf = *data
}

// Load 读取配置文件
func Load(file string) (*Data, error) {
	if len(file) <= 0 {
		file = "config.ini"
	}
	f, err := ini.Load(file)
	if err != nil {
		return nil, err
	}
	data := &Data{}
	if err = f.StrictMapTo(data); err != nil {
		return nil, err
	}
	data.fillDefault()
	return data, nil
}

func (d *Data) fillDefault() {
	if len(d.ServeAddr) <= 0 {
		d.ServeAddr = defaultServeAddr
	}
	if len(d.Storage.Root) <= 0 {
		d.Storage.Root = defaultStorageRoot
	}
	if len(d.RabbitMQ.Exchange) <= 0 {
		d.RabbitMQ.Exchange = defaultExchange
	}
	u := &d.Upload
	if u.ChunkSize <= 0 {
		u.ChunkSize = defaultChunkSize
	}
	if u.MaxChunkSize <= 0 {
		u.MaxChunkSize = defaultMaxChunkSize
	}
	if u.MaxChunkSize < u.ChunkSize {
		u.MaxChunkSize = u.ChunkSize
	}
	if u.MaxFileSize <= 0 {
		u.MaxFileSize = defaultMaxFileSize
	}
	if u.MaxChunkCount <= 0 {
		u.MaxChunkCount = defaultMaxChunkCount
	}
	if u.SessionTTL <= 0 {
		u.SessionTTL = defaultSessionTTL
	}
	if u.SweepInterval <= 0 {
		u.SweepInterval = defaultSweepInterval
	}
	if u.Capacity <= 0 {
		u.Capacity = defaultCapacity
	}
}
