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
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	const size = 100
	cases := []struct {
		header string
		want   *ByteRange
	}{
		{"", nil},
		{"bytes=0-49", &ByteRange{Start: 0, End: 49}},
		{"bytes=10-", &ByteRange{Start: 10, End: 99}},
		{"bytes=99-99", &ByteRange{Start: 99, End: 99}},
		{"bytes=0-1,5-6", &ByteRange{Start: 0, End: 1}},
		{"Bytes= 3-4", &ByteRange{Start: 3, End: 4}},
	}
	for _, c := range cases {
		got, err := ParseRange(c.header, size)
		require.NoError(t, err, c.header)
		assert.Equal(t, c.want, got, c.header)
	}

	for _, header := range []string{
		"bytes=100-100", "bytes=100-", "bytes=50-10", "bytes=0-100", "bytes=-5", "items=0-1",
		"bytes=a-b", "bytes=5", "bytes=", "bytes=+1-2", "bytes=-",
	} {
		_, err := ParseRange(header, size)
		assert.ErrorIs(t, err, ErrRangeNotSatisfiable, header)
	}

	_, err := ParseRange("bytes=0-", 0)
	assert.ErrorIs(t, err, ErrRangeNotSatisfiable)
}

func TestByteRangeLength(t *testing.T) {
	assert.EqualValues(t, 1, ByteRange{Start: 5, End: 5}.Length())
	assert.EqualValues(t, 50, ByteRange{Start: 0, End: 49}.Length())
}
