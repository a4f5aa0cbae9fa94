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

package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("a.PDF"))
	assert.Equal(t, "image/png", ContentType("dir/x.png"))
	assert.Equal(t, defaultContentType, ContentType("noext"))
	assert.Equal(t, defaultContentType, ContentType("x.unknown"))
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, `inline; filename="a.pdf"; filename*=UTF-8''a.pdf`, ContentDisposition("a.pdf", false))
	assert.Equal(t, `attachment; filename="a.pdf"; filename*=UTF-8''a.pdf`, ContentDisposition("a.pdf", true))
	assert.Equal(t, `attachment; filename="index.html"; filename*=UTF-8''index.html`,
		ContentDisposition("index.html", false))
	assert.True(t, ForceAttachment("run.SH"))
	assert.False(t, ForceAttachment("photo.jpg"))

	assert.Equal(t, `inline; filename="__.pdf"; filename*=UTF-8''%E6%8A%A5%E5%91%8A.pdf`,
		ContentDisposition("报告.pdf", false))
	assert.Equal(t, `inline; filename="a_b c.txt"; filename*=UTF-8''a%22b%20c.txt`,
		ContentDisposition(`a"b c.txt`, false))
}
