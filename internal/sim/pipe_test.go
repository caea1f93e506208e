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
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func asm(words ...uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return buf
}

func TestPipelineLoadUseHazardStallsAndForwards(t *testing.T) {
	prog := asm(
		encI(64, 0, 0, 5, encOpImm),    // addi x5, x0, 64   (address)
		encI(42, 0, 0, 6, encOpImm),    // addi x6, x0, 42   (value)
		encS(0, 6, 5, 2, encOpStore),   // sw x6, 0(x5)
		encI(0, 5, 2, 7, encOpLoad),    // lw x7, 0(x5)
		encR(0, 7, 7, 0, 8, encOpOp),   // add x8, x7, x7    (uses load result immediately)
		0x00100073,                     // ebreak
	)
	mem := NewMemory(0, 4096)
	mem.LoadImage(prog)
	p := NewPipeline(mem)
	p.Run(0, false)

	assert.Equal(t, uint64(84), p.CPU.Reg[8])
	assert.Greater(t, p.DataHazardCount, int64(0), "load-use hazard must cost at least one stall cycle")
}

func TestPipelineBranchMispredictionSquashesWrongPath(t *testing.T) {
	prog := asm(
		encI(1, 0, 0, 5, encOpImm),        // addi x5, x0, 1
		encI(1, 0, 0, 6, encOpImm),        // addi x6, x0, 1
		encB(12, 6, 5, 0, encOpBranch),    // beq x5, x6, +12  -> target = pc(8)+12 = 20
		encI(999, 0, 0, 7, encOpImm),      // addi x7, x0, 999  (wrong-path, must be squashed)
		encI(888, 0, 0, 7, encOpImm),      // addi x7, x0, 888  (wrong-path, must be squashed)
		encI(7, 0, 0, 8, encOpImm),        // addi x8, x0, 7    (branch target)
		0x00100073,                        // ebreak
	)
	mem := NewMemory(0, 4096)
	mem.LoadImage(prog)
	p := NewPipeline(mem)
	p.Run(0, false)

	assert.Equal(t, uint64(0), p.CPU.Reg[7], "squashed wrong-path instructions must never write back")
	assert.Equal(t, uint64(7), p.CPU.Reg[8])
	assert.Greater(t, p.BranchCount, int64(0))
}

func TestPipelineStraightLineArithmetic(t *testing.T) {
	prog := asm(
		encI(10, 0, 0, 5, encOpImm),  // addi x5, x0, 10
		encI(20, 0, 0, 6, encOpImm),  // addi x6, x0, 20
		encR(0, 6, 5, 0, 7, encOpOp), // add x7, x5, x6
		0x00100073,                   // ebreak
	)
	mem := NewMemory(0, 4096)
	mem.LoadImage(prog)
	p := NewPipeline(mem)
	cycles := p.Run(0, false)

	assert.Equal(t, uint64(30), p.CPU.Reg[7])
	assert.True(t, p.CPU.Halted)
	assert.Greater(t, cycles, int64(0))
}

func TestPipelineRegisterZeroAlwaysReadsZero(t *testing.T) {
	prog := asm(
		encI(5, 0, 0, 0, encOpImm), // addi x0, x0, 5 (a no-op write to x0)
		0x00100073,
	)
	mem := NewMemory(0, 4096)
	mem.LoadImage(prog)
	p := NewPipeline(mem)
	p.Run(0, false)
	assert.Equal(t, uint64(0), p.CPU.Reg[0])
}
