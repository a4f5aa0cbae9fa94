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

package main

import (
	_ "gitee.com/CloudFileManager/backend/docs"

	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"gitee.com/CloudFileManager/backend/api"
	"gitee.com/CloudFileManager/backend/conf"
	"gitee.com/CloudFileManager/backend/conn"
	"gitee.com/CloudFileManager/backend/cron"
	"gitee.com/CloudFileManager/backend/ctxs"
	"gitee.com/CloudFileManager/backend/delivery"
	"gitee.com/CloudFileManager/backend/log"
	"gitee.com/CloudFileManager/backend/route"
	"gitee.com/CloudFileManager/backend/service"
	"gitee.com/CloudFileManager/backend/storage"
	"gitee.com/CloudFileManager/backend/upload"
)

var configFile = pflag.StringP("config", "c", "config.ini", "配置文件路径")

func init() {
	var err error
	time.Local, err = time.LoadLocation("Asia/Shanghai")
	if err != nil {
		panic(err)
	}
}

func main() {
	pflag.Parse()
	conf.InitialConf(*configFile)
	log.InitialLog(conf.Conf.Log.LogDir, conf.Conf.Log.Module, conf.Conf.Log.MaxAge, conf.Conf.Log.Rotation,
		conf.Conf.Log.Debug)

	initCtx := ctxs.NewCtx("init")
	conn.InitialRedis(initCtx, conf.Conf.Redis.Addr, conf.Conf.Redis.Passwd, conf.Conf.Redis.DB)
	conn.InitialMySQL(initCtx, conf.Conf.MySQL.User, conf.Conf.MySQL.Passwd, conf.Conf.MySQL.Host,
		conf.Conf.MySQL.Port, conf.Conf.MySQL.DB, conf.Conf.MySQL.MaxIdea, conf.Conf.MySQL.MaxOpen)
	conn.InitialRabbitMQ(initCtx, conf.Conf.RabbitMQ.URI, conf.Conf.RabbitMQ.Exchange)
	log.FatalIfError(initCtx, conn.AutoMigrateAllTable(initCtx))

	resolver, err := storage.NewResolver(conf.Conf.Storage.Root)
	log.FatalIfError(initCtx, err)
	uploadMetrics, err := upload.NewMetrics(prometheus.DefaultRegisterer)
	log.FatalIfError(initCtx, err)
	deliveryMetrics, err := delivery.NewMetrics(prometheus.DefaultRegisterer)
	log.FatalIfError(initCtx, err)

	uc := conf.Conf.Upload
	store, err := upload.NewStore(uc.Capacity, upload.WithMetrics(uploadMetrics))
	log.FatalIfError(initCtx, err)
	log.FatalIfError(initCtx, store.Start(initCtx, uc.SweepInterval))
	cron.InitialCron(initCtx, cron.NewOrphanCleaner(resolver.Root(), store, uc.SessionTTL))

	uploadService := service.NewUploadService(service.UploadConf{
		ChunkSize:     uc.ChunkSize,
		MaxChunkSize:  uc.MaxChunkSize,
		MaxFileSize:   uc.MaxFileSize,
		MaxChunkCount: uc.MaxChunkCount,
		SessionTTL:    uc.SessionTTL,
	}, resolver, store, upload.NewAssembler(uploadMetrics), service.NewCatalog(initCtx),
		service.NewNotifier(conf.Conf.RabbitMQ.Exchange), uploadMetrics)
	fileService := service.NewFileService(resolver, delivery.NewResponder(deliveryMetrics))

	ctx, cancel := context.WithCancel(ctxs.NewCtx("main"))
	router := route.InitialRouter(ctx, &route.Options{
		UploadAPI: api.NewUploadAPI(uploadService),
		FileAPI:   api.NewFileAPI(fileService),
		JWTSecret: conf.Conf.Auth.JWTSecret,
		Swagger:   conf.Conf.Swagger,
	})
	server := &http.Server{
		Addr:              conf.Conf.ServeAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info(ctx, "start serve", conf.Conf.ServeAddr)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(ctx, err)
		}
	}()

	// 监听关闭信号
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	log.Warn(ctx, "exiting server")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(ctxs.NewCtx("shutdown"), 10*time.Second)
	defer shutdownCancel()
	log.ErrorIf(shutdownCtx, server.Shutdown(shutdownCtx))
	store.Close(shutdownCtx)
	cron.CloseCron(shutdownCtx)
	conn.CloseRabbitMQClient(shutdownCtx)
	conn.CloseMysqlClient(shutdownCtx)
	conn.CloseRedisClient(shutdownCtx)
	log.Info(shutdownCtx, "server exit")
}
