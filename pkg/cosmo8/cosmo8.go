// Package cosmo8 is the Runner API: it binds pkg/asm and pkg/vm together
// the way the teacher's cmd/interp wires pkg/asm and pkg/vm, but as a
// reusable library call instead of a one-shot binary.
package cosmo8

import (
	"context"

	"github.com/cosmo8/cosmo8/pkg/asm"
	"github.com/cosmo8/cosmo8/pkg/vm"
)

// Parse translates source into a Program and its instruction count. It is
// a thin re-export of asm.Parse so callers who only need to parse (e.g.
// for scoring) don't have to import pkg/asm directly.
func Parse(source string) (asm.Program, int, error) {
	return asm.Parse(source)
}

// RunProgram parses source, constructs a Machine seeded with inputs, runs
// it to HLT, and returns the ordered output values. Ports are discarded at
// this boundary — callers who need the full (port, value) log should
// construct a vm.Machine directly and inspect its Outputs field instead of
// going through RunProgram.
func RunProgram(ctx context.Context, source string, inputs []int16) ([]int16, error) {
	program, _, err := asm.Parse(source)
	if err != nil {
		return nil, err
	}
	machine := vm.NewMachine(program, inputs)
	if err := machine.Run(ctx, nil); err != nil {
		return nil, err
	}
	values := make([]int16, len(machine.Outputs))
	for i, pv := range machine.Outputs {
		values[i] = pv.Value
	}
	return values, nil
}
