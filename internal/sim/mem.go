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
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// Memory is the guest's flat physical address space, backed by a single
// byte slice indexed by (addr - Base).
type Memory struct {
	Base uint64
	data []byte
}

// NewMemory allocates a zeroed guest address space of size bytes starting
// at base.
func NewMemory(base uint64, size int) *Memory {
	return &Memory{Base: base, data: make([]byte, size)}
}

func (m *Memory) offset(addr uint64, length int) (int, error) {
	if addr < m.Base || addr+uint64(length) > m.Base+uint64(len(m.data)) {
		return 0, errors.Errorf("sim: invalid address 0x%x", addr)
	}
	return int(addr - m.Base), nil
}

// Read loads length (1, 2, 4, or 8) bytes at addr, little-endian,
// zero-extended into a uint64.
func (m *Memory) Read(addr uint64, length int) (uint64, error) {
	off, err := m.offset(addr, length)
	if err != nil {
		return 0, err
	}
	switch length {
	case 1:
		return uint64(m.data[off]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(m.data[off:])), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(m.data[off:])), nil
	case 8:
		return binary.LittleEndian.Uint64(m.data[off:]), nil
	default:
		return 0, errors.Errorf("sim: invalid read length %d", length)
	}
}

// Write stores the low length bytes of value at addr, little-endian.
func (m *Memory) Write(addr uint64, length int, value uint64) error {
	off, err := m.offset(addr, length)
	if err != nil {
		return err
	}
	switch length {
	case 1:
		m.data[off] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(m.data[off:], uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(m.data[off:], uint32(value))
	case 8:
		binary.LittleEndian.PutUint64(m.data[off:], value)
	default:
		return errors.Errorf("sim: invalid write length %d", length)
	}
	return nil
}

// FetchInst reads the 32-bit instruction word at pc.
func (m *Memory) FetchInst(pc uint64) (uint32, error) {
	v, err := m.Read(pc, 4)
	return uint32(v), err
}

// LoadImage copies a raw flat binary image to the start of the address
// space, truncating it with a warning if it doesn't fit.
func (m *Memory) LoadImage(image []byte) {
	n := len(image)
	if n > len(m.data) {
		fmt.Println("sim: warning: image truncated to fit guest memory")
		n = len(m.data)
	}
	copy(m.data[:n], image[:n])
}

// LoadELF loads every non-empty PT_LOAD segment of an ELF image at its
// linked virtual address.
func (m *Memory) LoadELF(raw []byte) (entry uint64, err error) {
	f, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return 0, errors.Wrap(err, "sim: parse elf")
	}
	defer f.Close()

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Filesz == 0 {
			continue
		}
		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err != nil {
			return 0, errors.Wrap(err, "sim: read segment")
		}
		off, err := m.offset(prog.Vaddr, len(data))
		if err != nil {
			return 0, errors.Wrap(err, "sim: segment out of bounds")
		}
		copy(m.data[off:], data)
	}
	return f.Entry, nil
}
