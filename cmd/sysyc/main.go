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
package main

import (
	"fmt"
	"os"

	"github.com/llir/llvm/ir"
	"github.com/spf13/cobra"

	"github.com/sysy-tools/sysyc/internal/codegen"
	"github.com/sysy-tools/sysyc/internal/irgen"
	"github.com/sysy-tools/sysyc/internal/parser"
	"github.com/sysy-tools/sysyc/internal/sim"
)

var verbose bool

var command = &cobra.Command{
	Use:  "sysyc source [-o output]",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		koopa, _ := cmd.PersistentFlags().GetBool("koopa")
		riscv, _ := cmd.PersistentFlags().GetBool("riscv")
		simMode, _ := cmd.PersistentFlags().GetBool("sim")
		output, _ := cmd.PersistentFlags().GetString("output")
		memSize, _ := cmd.PersistentFlags().GetInt64("mem-size")
		memBase, _ := cmd.PersistentFlags().GetUint64("mem-base")
		maxCycles, _ := cmd.PersistentFlags().GetInt64("max-cycles")
		trace, _ := cmd.PersistentFlags().GetBool("trace")

		if err := run(args[0], koopa, riscv, simMode, output, memBase, memSize, maxCycles, trace); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func run(input string, koopa, riscv, simMode bool, output string, memBase uint64, memSize, maxCycles int64, trace bool) error {
	switch {
	case koopa:
		mod, err := compile(input)
		if err != nil {
			return err
		}
		return writeOutput(output, mod.String())
	case riscv:
		mod, err := compile(input)
		if err != nil {
			return err
		}
		asm, err := codegen.Emit(mod)
		if err != nil {
			return fmt.Errorf("sysyc: codegen: %w", err)
		}
		return writeOutput(output, asm)
	case simMode:
		return runSim(input, memBase, memSize, maxCycles, trace)
	default:
		return fmt.Errorf("sysyc: exactly one of -koopa, -riscv, -sim must be set")
	}
}

func compile(path string) (*ir.Module, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sysyc: %w", err)
	}
	cu, err := parser.Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("sysyc: %s: %w", path, err)
	}
	mod, err := irgen.New().Lower(cu)
	if err != nil {
		return nil, fmt.Errorf("sysyc: %s: %w", path, err)
	}
	return mod, nil
}

func runSim(path string, memBase uint64, memSize, maxCycles int64, trace bool) error {
	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("sysyc: %w", err)
	}
	if memBase == 0 {
		memBase = sim.DefaultMemBase
	}
	if memSize == 0 {
		memSize = sim.DefaultMemSize
	}
	mem := sim.NewMemory(memBase, int(memSize))
	if len(image) >= 4 && string(image[:4]) == "\x7fELF" {
		entry, err := mem.LoadELF(image)
		if err != nil {
			return fmt.Errorf("sysyc: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "sysyc: entry point 0x%x\n", entry)
		}
	} else {
		mem.LoadImage(image)
	}

	pipe := sim.NewPipeline(mem)
	pipe.Run(maxCycles, trace)
	if pipe.CPU.ExitCode != 0 {
		os.Exit(1)
	}
	return nil
}

func writeOutput(output, text string) error {
	if output == "" {
		_, err := fmt.Print(text)
		return err
	}
	return os.WriteFile(output, []byte(text), 0o644)
}

func init() {
	command.PersistentFlags().BoolP("koopa", "", false, "print the lowered IR as text")
	command.PersistentFlags().BoolP("riscv", "", false, "emit RV32I assembly")
	command.PersistentFlags().BoolP("sim", "", false, "load and run the input under the pipeline simulator")
	command.PersistentFlags().StringP("output", "o", "", "output file (stdout if unset)")
	command.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "if set, increase verbosity level")
	command.PersistentFlags().Int64("mem-size", 0, "simulator guest address space size in bytes (default matches original_source's 128MiB)")
	command.PersistentFlags().Uint64("mem-base", 0, "simulator guest base address")
	command.PersistentFlags().Int64("max-cycles", 0, "stop the simulator after this many cycles (0 = unbounded)")
	command.PersistentFlags().Bool("trace", false, "print pipeline state every cycle")
}

func main() {
	// The mode flags are also accepted with a single dash (-koopa, -riscv,
	// -sim), the spelling used in the usage error above.
	for i, a := range os.Args[1:] {
		switch a {
		case "-koopa", "-riscv", "-sim":
			os.Args[i+1] = "-" + a
		}
	}
	if err := command.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
