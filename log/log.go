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

// Package log 日志
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"

	"gitee.com/CloudFileManager/backend/ctxs"
)

var logger = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(newFormatter())
	l.SetLevel(logrus.InfoLevel)
	return l
}

func newFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		DisableColors:    true,
		FullTimestamp:    true,
		TimestampFormat:  "2006-01-02 15:04:05.000",
		QuoteEmptyFields: true,
	}
}

// InitialLog 初始化日志，logDir为空时只输出到标准输出
func InitialLog(logDir, module string, maxAge, rotation time.Duration, debugMode bool) {
	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
	}
	if len(logDir) <= 0 {
		return
	}
	if len(module) <= 0 {
		module = "backend"
	}
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	if rotation <= 0 {
		rotation = 24 * time.Hour
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		panic(err)
	}

	// 按级别分文件滚动
	writers := lfshook.WriterMap{}
	for _, lv := range []logrus.Level{logrus.DebugLevel, logrus.InfoLevel, logrus.WarnLevel, logrus.ErrorLevel,
		logrus.FatalLevel, logrus.PanicLevel} {
		w, err := newRotateWriter(logDir, module, lv.String(), maxAge, rotation)
		if err != nil {
			panic(err)
		}
		writers[lv] = w
	}
	logger.AddHook(lfshook.NewHook(writers, newFormatter()))
}

func newRotateWriter(dir, module, level string, maxAge, rotation time.Duration) (io.Writer, error) {
	name := filepath.Join(dir, fmt.Sprintf("%s.%s.log", module, level))
	return rotatelogs.New(name+".%Y%m%d%H",
		rotatelogs.WithLinkName(name),
		rotatelogs.WithMaxAge(maxAge),
		rotatelogs.WithRotationTime(rotation),
	)
}

// SetOutput 设置标准输出目的地
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func entry(ctx context.Context) *logrus.Entry {
	fields := logrus.Fields{}
	if ctx != nil {
		if v := ctxs.RequestId(ctx); len(v) > 0 {
			fields["requestId"] = v
		}
		if v := ctxs.UserId(ctx); len(v) > 0 {
			fields["userId"] = v
		}
		if v := ctxs.RequestPath(ctx); len(v) > 0 {
			fields["path"] = v
		}
	}
	return logger.WithFields(fields)
}

// Debug 调试日志
func Debug(ctx context.Context, args ...any) {
	entry(ctx).Debug(join(args))
}

// Info 信息日志
func Info(ctx context.Context, args ...any) {
	entry(ctx).Info(join(args))
}

// Infof 格式化信息日志
func Infof(ctx context.Context, format string, args ...any) {
	entry(ctx).Infof(format, args...)
}

// Warn 警告日志
func Warn(ctx context.Context, args ...any) {
	entry(ctx).Warn(join(args))
}

// Warnf 格式化警告日志
func Warnf(ctx context.Context, format string, args ...any) {
	entry(ctx).Warnf(format, args...)
}

// Error 错误日志
func Error(ctx context.Context, args ...any) {
	entry(ctx).Error(join(args))
}

// Errorf 格式化错误日志
func Errorf(ctx context.Context, format string, args ...any) {
	entry(ctx).Errorf(format, args...)
}

// ErrorIf 错误不为空则打印
func ErrorIf(ctx context.Context, err error) {
	if err != nil {
		entry(ctx).Error(err.Error())
	}
}

// Fatal 打印日志并退出
func Fatal(ctx context.Context, args ...any) {
	entry(ctx).Fatal(join(args))
}

// FatalIfError 错误不为空则打印并退出
func FatalIfError(ctx context.Context, err error) {
	if err != nil {
		entry(ctx).Fatal(err.Error())
	}
}

// GetStack 获取调用栈
func GetStack() string {
	return string(debug.Stack())
}

func join(args []any) string {
	ss := make([]string, 0, len(args))
	for _, v := range args {
		ss = append(ss, fmt.Sprint(v))
	}
	return strings.Join(ss, " ")
}
