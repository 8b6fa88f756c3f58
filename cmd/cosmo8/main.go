// Command cosmo8 is the standalone Cosmo-8 simulator binary (SPEC_FULL.md
// §7 invocation surface): it assembles a source file, runs it against an
// input stream, and reports outputs and stats.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"gopkg.in/urfave/cli.v2"

	"github.com/cosmo8/cosmo8/pkg/asm"
	"github.com/cosmo8/cosmo8/pkg/cosmo8"
	"github.com/cosmo8/cosmo8/pkg/vm"
)

func main() {
	flag.Set("logtostderr", "true")
	defer glog.Flush()

	app := &cli.App{
		Name:  "cosmo8",
		Usage: "assemble and run a Cosmo-8 program",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "input",
				Usage: "comma-separated decimal input values",
			},
			&cli.BoolFlag{
				Name:    "v",
				Aliases: []string{"verbose"},
				Usage:   "trace each fetch/execute step via glog",
			},
			&cli.BoolFlag{
				Name:    "d",
				Aliases: []string{"debug"},
				Usage:   "pause for input before each step",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		cli.ShowAppHelp(c)
		return cli.Exit("", 1)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %s\n", err)
		return cli.Exit("", 1)
	}

	inputs, err := readInputs(c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %s\n", err)
		return cli.Exit("", 1)
	}

	program, count, err := cosmo8.Parse(string(source))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %s\n", err)
		return cli.Exit("", 1)
	}

	machine := vm.NewMachine(program, inputs)
	trace := traceFunc(c.Bool("v"), c.Bool("d"))
	if err := machine.Run(context.Background(), trace); err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %s\n", err)
		return cli.Exit("", 1)
	}

	for _, pv := range machine.Outputs {
		fmt.Println(pv.Value)
	}
	fmt.Fprintf(os.Stderr, "Instruction count: %d\n", count)
	fmt.Fprintf(os.Stderr, "Cycles used: %d\n", machine.Cycles)
	return nil
}

// traceFunc builds the per-step vm.Trace hook for -v/-d, or nil when
// neither flag is set so Run's hot loop pays nothing for tracing.
func traceFunc(verbose, debug bool) vm.Trace {
	if !verbose && !debug {
		return nil
	}
	return func(ip int, instr asm.Instruction, m *vm.Machine) {
		if verbose {
			glog.Infof("ip=%d %s [Z=%t C=%t N=%t]", ip, vm.Disassemble(instr), m.FlagZ, m.FlagC, m.FlagN)
		}
		if debug {
			glog.Infof("paused...")
			fmt.Scanln()
		}
	}
}

// readInputs implements SPEC_FULL.md §7: prefer --input; otherwise, if
// stdin is not a terminal, read a whitespace/comma-separated integer list
// from it; otherwise the input list is empty. An explicitly-set but empty
// --input ("") yields an empty list without touching stdin, the same
// distinction sim.py's main() draws with "args.input is not None" — hence
// c.IsSet rather than a zero-value check on c.String.
func readInputs(c *cli.Context) ([]int16, error) {
	if c.IsSet("input") {
		return parseIntList(c.String("input"))
	}

	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return nil, nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var raw strings.Builder
	for scanner.Scan() {
		raw.WriteString(scanner.Text())
		raw.WriteByte(' ')
	}
	if strings.TrimSpace(raw.String()) == "" {
		return nil, nil
	}
	return parseIntList(raw.String())
}

func parseIntList(s string) ([]int16, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	values := make([]int16, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(f), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid input value %q: %w", f, err)
		}
		values = append(values, int16(v))
	}
	return values, nil
}
