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
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/zeebo/blake3"

	"gitee.com/CloudFileManager/backend/errs"
	"gitee.com/CloudFileManager/backend/log"
	"gitee.com/CloudFileManager/backend/storage"
	"gitee.com/CloudFileManager/backend/util"
)

const assembleTempPattern = "assemble.*.part"

// Artifact 合并完成的文件
type Artifact struct {
	Path   string
	Size   int64
	Digest string
}

// Assembler 分片合并
type Assembler struct {
	metrics *Metrics
}

// NewAssembler 创建合并器
func NewAssembler(metrics *Metrics) *Assembler {
	return &Assembler{metrics: metrics}
}

// Assemble 按序号顺序合并分片到目标路径，调用方需保证分片齐全
func (a *Assembler) Assemble(ctx context.Context, sess *Session) (artifact *Artifact, err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		var size int64
		if err != nil {
			result = errs.As(err).Code
		} else {
			size = artifact.Size
		}
		a.metrics.recordAssemble(result, time.Since(start), size)
	}()

	// 校验路径，会话期间路径上可能出现符号链接
	if sess.TargetPath == sess.TenantRoot {
		return nil, errs.ErrInvalidPath
	}
	if err = a.revalidate(ctx, sess); err != nil {
		return nil, err
	}
	if _, err = os.Lstat(sess.TargetPath); err == nil {
		return nil, errs.ErrFileExists
	}
	if err = os.MkdirAll(filepath.Dir(sess.TargetPath), 0o755); err != nil {
		return nil, errs.ErrAssembly.Wrap(errors.Wrap(err, "create target dir"))
	}

	// 写入暂存目录下的临时文件，下载接口不可见
	tmp, err := os.CreateTemp(sess.ScratchDir, assembleTempPattern)
	if err != nil {
		return nil, errs.ErrAssembly.Wrap(errors.Wrap(err, "create temp file"))
	}
	tmpName := tmp.Name()
	tmpMoved := false
	defer func() {
		if tmpMoved {
			return
		}
		if rerr := os.Remove(tmpName); rerr != nil && !os.IsNotExist(rerr) {
			log.Error(ctx, "remove assemble temp file error", rerr)
		}
	}()

	hasher := blake3.New()
	written, err := a.concat(ctx, sess, io.MultiWriter(tmp, hasher))
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, errs.ErrAssembly.Wrap(err)
	}
	if written != sess.DeclaredSize {
		log.Warnf(ctx, "assembled size %d not equal declared %d", written, sess.DeclaredSize)
		return nil, errs.ErrSizeMismatch
	}

	// 发布，不覆盖已存在的文件
	if err = a.revalidate(ctx, sess); err != nil {
		return nil, err
	}
	if tmpMoved, err = publish(tmpName, sess.TargetPath); err != nil {
		return nil, err
	}

	if sess.SourceModifiedAt != nil {
		mt := *sess.SourceModifiedAt
		if cerr := os.Chtimes(sess.TargetPath, mt, mt); cerr != nil {
			log.Warn(ctx, "replay modified time error", cerr)
		}
	}

	return &Artifact{
		Path:   sess.TargetPath,
		Size:   written,
		Digest: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

func (a *Assembler) revalidate(ctx context.Context, sess *Session) error {
	for _, p := range []string{sess.TargetPath, sess.ScratchDir} {
		if err := storage.Revalidate(sess.TenantRoot, p); err != nil {
			log.Warn(ctx, "upload path changed during session", sess.Token, p, err)
			return err
		}
	}
	return nil
}

func (a *Assembler) concat(ctx context.Context, sess *Session, w io.Writer) (int64, error) {
	buf := make([]byte, copyBufferSize)
	var total int64
	for i := 0; i < sess.ChunkCount; i++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := copyChunk(ctx, sess.ChunkPath(i), w, buf)
		total += n
		if err != nil {
			return total, errors.Wrapf(err, "copy chunk %d", i)
		}
	}
	return total, nil
}

func copyChunk(ctx context.Context, path string, w io.Writer, buf []byte) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer util.CloseIO(ctx, f)
	return io.CopyBuffer(w, f, buf)
}

// publish 硬链接到目标，不支持硬链接时退化为改名。返回临时文件是否已被改名。
func publish(tmpName, target string) (bool, error) {
	err := os.Link(tmpName, target)
	if err == nil {
		return false, nil
	}
	if os.IsExist(err) {
		return false, errs.ErrFileExists
	}

	// 退化为改名，改名前再检查一次
	if _, serr := os.Lstat(target); serr == nil {
		return false, errs.ErrFileExists
	}
	if rerr := os.Rename(tmpName, target); rerr != nil {
		return false, errs.ErrAssembly.Wrap(errors.Wrap(rerr, "rename temp file"))
	}
	return true, nil
}
