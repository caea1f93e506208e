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

// Package loopstack tracks the (continue-target, break-target) basic
// block pair of each loop currently being lowered.
package loopstack

import "github.com/llir/llvm/ir"

type entry struct {
	continueTarget *ir.Block
	breakTarget    *ir.Block
}

// Stack is a stack of loop targets, pushed on `while` entry and popped on
// exit, consulted by `break`/`continue` lowering.
type Stack struct {
	entries []entry
}

func New() *Stack { return &Stack{} }

func (s *Stack) Push(continueTarget, breakTarget *ir.Block) {
	s.entries = append(s.entries, entry{continueTarget, breakTarget})
}

func (s *Stack) Pop() {
	s.entries = s.entries[:len(s.entries)-1]
}

func (s *Stack) Empty() bool { return len(s.entries) == 0 }

// Top returns the innermost loop's (continue, break) targets.
func (s *Stack) Top() (continueTarget, breakTarget *ir.Block) {
	e := s.entries[len(s.entries)-1]
	return e.continueTarget, e.breakTarget
}
