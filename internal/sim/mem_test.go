// Copyright 2026 sysyc Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReadWriteRoundTrip(t *testing.T) {
	m := NewMemory(0x1000, 256)
	require.NoError(t, m.Write(0x1008, 4, 0xdeadbeef))
	v, err := m.Read(0x1008, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xdeadbeef), v)
}

func TestMemoryReadWriteByteAndHalfword(t *testing.T) {
	m := NewMemory(0x1000, 256)
	require.NoError(t, m.Write(0x1000, 1, 0xab))
	v, err := m.Read(0x1000, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xab), v)

	require.NoError(t, m.Write(0x1010, 2, 0x1234))
	v, err = m.Read(0x1010, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1234), v)
}

func TestMemoryOutOfBoundsErrors(t *testing.T) {
	m := NewMemory(0x1000, 16)
	_, err := m.Read(0x2000, 4)
	assert.Error(t, err)
	_, err = m.Read(0xFF0, 4) // below base
	assert.Error(t, err)
}

func TestMemoryFetchInstRejectsZeroPC(t *testing.T) {
	m := NewMemory(0x1000, 16)
	_, err := m.FetchInst(0)
	assert.Error(t, err)
}

func TestMemoryLoadImageTruncatesOversizedImage(t *testing.T) {
	m := NewMemory(0x1000, 4)
	m.LoadImage([]byte{1, 2, 3, 4, 5, 6})
	v, err := m.Read(0x1000, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x04030201), v)
}

func TestMemoryLoadImageCopiesAtBase(t *testing.T) {
	m := NewMemory(0x1000, 16)
	m.LoadImage([]byte{0x13, 0, 0, 0})
	inst, err := m.FetchInst(0x1000)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x13), inst)
}
