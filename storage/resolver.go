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

// Package storage 租户文件存储路径解析
package storage

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"gitee.com/CloudFileManager/backend/errs"
)

var principalRegexp = regexp.MustCompile(`^[A-Za-z0-9_@.\-]{1,64}$`)

// Resolver 用户到租户根目录的映射
type Resolver struct {
	root string
}

// NewResolver 创建解析器，根目录不存在时创建
func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "abs storage root")
	}
	if err = os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, "create storage root")
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, errors.Wrap(err, "canonicalize storage root")
	}
	return &Resolver{root: canon}, nil
}

// Root 存储根目录
func (r *Resolver) Root() string {
	return r.root
}

// TenantRoot 获取用户的租户根目录，不存在时创建
func (r *Resolver) TenantRoot(principal string) (string, error) {
	if !principalRegexp.MatchString(principal) || principal == "." || principal == ".." {
		return "", errs.ErrInvalidPath
	}
	dir := filepath.Join(r.root, principal)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.NewSystemBusyErr(errors.Wrap(err, "create tenant root"))
	}
	canon, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", errs.NewSystemBusyErr(errors.Wrap(err, "canonicalize tenant root"))
	}
	if !Within(r.root, canon) || canon == r.root {
		return "", errs.ErrInvalidPath
	}
	return canon, nil
}

// JoinWithinRoot 拼接相对路径，结果必须落在root内（含root自身）
// root 需为规范路径。符号链接解析后逃逸出root的同样拒绝。
func JoinWithinRoot(root, rel string) (string, error) {
	if strings.ContainsRune(rel, 0) {
		return "", errs.ErrInvalidPath
	}
	joined := filepath.Join(root, filepath.FromSlash(rel))
	canon, err := canonicalize(joined)
	if err != nil {
		return "", errs.NewSystemBusyErr(err)
	}
	if !Within(root, canon) {
		return "", errs.ErrInvalidPath
	}
	return canon, nil
}

// Revalidate 重新解析此前得到的规范路径，root或其下路径被换成符号链接时拒绝
func Revalidate(root, p string) error {
	canonRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return errs.NewSystemBusyErr(errors.Wrap(err, "canonicalize root"))
	}
	if canonRoot != root || !Within(root, p) {
		return errs.ErrInvalidPath
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return errs.ErrInvalidPath
	}
	canon, err := JoinWithinRoot(root, filepath.ToSlash(rel))
	if err != nil {
		return err
	}
	if canon != p {
		return errs.ErrInvalidPath
	}
	return nil
}

// Within 判断path是否在root内，两者都需为规范路径
func Within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}

// canonicalize 解析最深的已存在祖先的符号链接，再拼回不存在的部分
func canonicalize(p string) (string, error) {
	var rest []string
	cur := p
	for {
		if _, err := os.Lstat(cur); err == nil {
			break
		} else if !os.IsNotExist(err) {
			return "", errors.Wrap(err, "stat path")
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		rest = append(rest, filepath.Base(cur))
		cur = parent
	}
	resolved, err := filepath.EvalSymlinks(cur)
	if err != nil {
		return "", errors.Wrap(err, "eval symlinks")
	}
	for i := len(rest) - 1; i >= 0; i-- {
		resolved = filepath.Join(resolved, rest[i])
	}
	return resolved, nil
}
