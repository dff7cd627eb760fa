// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package diskio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildKMPTable(t *testing.T) {
	table := buildKMPTable([]byte("ababaa"))
	require.Equal(t, []int{0, 0, 1, 2, 3, 1}, table)
}

func FuzzBuildKMPTable(f *testing.F) {
	f.Add([]byte("ababaa"))
	f.Fuzz(func(t *testing.T, substr []byte) {
		if len(substr) == 0 {
			t.Skip()
		}
		table := buildKMPTable(substr)
		require.Equal(t, len(substr), len(table), "length")
		for j, val := range table {
			matchLen := j + 1
			assert.Equalf(t, substr[:val], substr[matchLen-val:matchLen],
				"for table[%d]=%d", j, val)
		}
	})
}

func naiveIndexAll(str, substr []byte) []int64 {
	var matches []int64
	for i := range str {
		if bytes.HasPrefix(str[i:], substr) {
			matches = append(matches, int64(i))
		}
	}
	return matches
}

func TestFindAll(t *testing.T) {
	str := []byte("abababab")
	substr := []byte("aba")
	got, err := FindAll(bytes.NewReader(str), substr)
	require.NoError(t, err)
	assert.Equal(t, naiveIndexAll(str, substr), got)
}

func FuzzFindAll(f *testing.F) {
	f.Add([]byte("abababab"), []byte("aba"))
	f.Fuzz(func(t *testing.T, str, substr []byte) {
		if len(substr) == 0 {
			t.Skip()
		}
		exp := naiveIndexAll(str, substr)
		act, err := FindAll(bytes.NewReader(str), substr)
		require.NoError(t, err)
		assert.Equal(t, exp, act)
	})
}
