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

// Package route 路由
package route

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"gitee.com/CloudFileManager/backend/api"
	"gitee.com/CloudFileManager/backend/filter"
)

// Options 路由依赖
type Options struct {
	UploadAPI *api.UploadAPI
	FileAPI   *api.FileAPI
	JWTSecret string
	// Gatherer 指标来源，为空时使用默认注册器
	Gatherer prometheus.Gatherer
	// Swagger 是否开放接口文档
	Swagger bool
}

// InitialRouter 初始化路由
func InitialRouter(ctx context.Context, opts *Options) *gin.Engine {
	r := gin.New()
	r.Use(filter.ExitFilter(ctx), filter.LogfmtFilter, filter.Recover)
	r.HandleMethodNotAllowed = true

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	initAPIRoute(r.Group("/api", filter.AuthFilter(opts.JWTSecret)), opts)
	return r
}

func initAPIRoute(r *gin.RouterGroup, opts *Options) {
	// 分片上传
	upload := opts.UploadAPI
	uploadGroup := r.Group("/upload")
	uploadGroup.POST("/init", filter.AntiShakeFilter, upload.Init)
	uploadGroup.POST("/chunk", upload.UploadChunk)
	uploadGroup.POST("/complete", upload.Complete)
	uploadGroup.POST("/abort", upload.Abort)
	uploadGroup.GET("/status", upload.Status)

	// 文件下载
	file := opts.FileAPI
	fileGroup := r.Group("/file")
	fileGroup.GET("/download", file.Download)
	fileGroup.HEAD("/download", file.Download)
}
