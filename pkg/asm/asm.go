// Package asm is the Cosmo-8 two-pass assembler: it translates assembly
// source text into a normalized, operand-decoded Program, resolving labels
// into absolute instruction indices along the way.
//
// See the documentation of the vm package for the instruction set and the
// exact fetch/execute semantics the decoded Program is executed with.
package asm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Program is an ordered, 0-indexed sequence of decoded instructions.
type Program []Instruction

// MaxProgramLength is the hard cap on the number of instructions a single
// program may contain.
const MaxProgramLength = 256

// The following errors may be returned by Parse.
var (
	// ErrProgramTooLarge indicates the source assembled to more than
	// MaxProgramLength instructions.
	ErrProgramTooLarge = errors.New("asm: program too large")

	// ErrUndefinedLabel indicates a jump-class mnemonic's target is
	// neither a known label nor an integer literal.
	ErrUndefinedLabel = errors.New("asm: undefined label")

	// ErrMalformedOperand indicates an operand token could not be
	// decoded into the shape its opcode requires (REDESIGN FLAG: the
	// original implementation deferred this to runtime; pre-decoding
	// operands at parse time means arity/shape mismatches surface here
	// instead, without changing which program text is accepted).
	ErrMalformedOperand = errors.New("asm: malformed operand")
)

// lexedLine is one non-empty, comment-stripped, whitespace-trimmed line.
type lexedLine struct {
	text   string
	lineno int
}

// startLexing runs a goroutine that splits source into lines, strips
// comments and surrounding whitespace, and drops blank lines, sending the
// survivors on the returned channel. Mirrors the teacher's own
// lexer-goroutine-feeding-a-channel shape (pkg/asm.StartAssembler's use of
// StartLexing/StartParsing).
func startLexing(source string) <-chan lexedLine {
	out := make(chan lexedLine)
	go func() {
		defer close(out)
		for i, raw := range strings.Split(source, "\n") {
			line := stripComment(raw)
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			out <- lexedLine{text: line, lineno: i + 1}
		}
	}()
	return out
}

func stripComment(line string) string {
	if idx := strings.IndexAny(line, ";#"); idx >= 0 {
		line = line[:idx]
	}
	return line
}

// rawInstr is a line split into an uppercased mnemonic and its verbatim
// operand tokens, before label resolution or operand decoding.
type rawInstr struct {
	mnemonic string
	operands []string
	lineno   int
}

// normalized is what startNormalizing sends down its channel: either a
// label definition or a raw instruction line.
type normalized struct {
	label string // non-empty when this line was a label definition
	instr *rawInstr
}

// startNormalizing consumes lexed lines and classifies each as a label
// definition or an instruction line, splitting instruction lines on runs
// of commas/whitespace and uppercasing the mnemonic.
func startNormalizing(in <-chan lexedLine) <-chan normalized {
	out := make(chan normalized)
	go func() {
		defer close(out)
		for ll := range in {
			if label, ok := labelName(ll.text); ok {
				out <- normalized{label: label}
				continue
			}
			tokens := splitTokens(ll.text)
			out <- normalized{instr: &rawInstr{
				mnemonic: strings.ToUpper(tokens[0]),
				operands: tokens[1:],
				lineno:   ll.lineno,
			}}
		}
	}()
	return out
}

// labelName reports whether line is a bare "IDENT:" label definition and,
// if so, returns IDENT.
func labelName(line string) (string, bool) {
	if !strings.HasSuffix(line, ":") {
		return "", false
	}
	name := line[:len(line)-1]
	if name == "" || strings.ContainsAny(name, " \t,") {
		return "", false
	}
	return name, true
}

func splitTokens(line string) []string {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	return fields
}

// Parse translates source into a Program plus its instruction count (the
// count is returned separately because callers outside this package use
// it as a scoring signal unrelated to runtime cycle count). Parse is a
// pure function: it performs no I/O, and the same source always yields
// the same Program.
func Parse(source string) (Program, int, error) {
	lexed := startLexing(source)
	lines := startNormalizing(lexed)

	labels := make(map[string]int)
	var raws []*rawInstr
	for n := range lines {
		if n.instr == nil {
			labels[n.label] = len(raws)
			continue
		}
		raws = append(raws, n.instr)
	}

	if len(raws) > MaxProgramLength {
		return nil, 0, fmt.Errorf("%w: %d instructions (max %d)",
			ErrProgramTooLarge, len(raws), MaxProgramLength)
	}

	program := make(Program, len(raws))
	for i, r := range raws {
		instr, err := buildInstruction(r, labels)
		if err != nil {
			return nil, 0, err
		}
		program[i] = instr
	}
	return program, len(program), nil
}

// buildInstruction resolves one raw instruction line into a decoded
// Instruction. Unknown mnemonics are never rejected here (spec: "the
// parser does not reject it"); they become OpUnknown and are left for the
// machine to refuse at dispatch time.
func buildInstruction(r *rawInstr, labels map[string]int) (Instruction, error) {
	op, known := mnemonicToOpcode[r.mnemonic]
	if !known {
		return Instruction{Op: OpUnknown, Unknown: r.mnemonic, Line: r.lineno}, nil
	}

	instr := Instruction{Op: op, Line: r.lineno}

	if jumpClass[op] {
		if len(r.operands) < 1 {
			return Instruction{}, fmt.Errorf("%w: %s requires a jump target (line %d)",
				ErrMalformedOperand, r.mnemonic, r.lineno)
		}
		target, err := resolveJumpTarget(r.operands[0], labels, r.lineno)
		if err != nil {
			return Instruction{}, err
		}
		instr.Target = target
		return instr, nil
	}

	switch op {
	case OpHLT, OpNOP, OpRET:
		// no operands

	case OpMOV, OpNOT:
		if err := arity(r, 2); err != nil {
			return Instruction{}, err
		}
		rd, err := registerIndex(r.operands[0])
		if err != nil {
			return Instruction{}, wrapOperandErr(err, r)
		}
		a, err := decodeSrc(r.operands[1])
		if err != nil {
			return Instruction{}, wrapOperandErr(err, r)
		}
		instr.Rd = Operand{Kind: KindRegister, Reg: rd}
		instr.A = a

	case OpADD, OpSUB, OpMUL, OpMOD, OpAND, OpOR, OpXOR, OpSHL, OpSHR:
		if err := arity(r, 3); err != nil {
			return Instruction{}, err
		}
		rd, err := registerIndex(r.operands[0])
		if err != nil {
			return Instruction{}, wrapOperandErr(err, r)
		}
		a, err := decodeSrc(r.operands[1])
		if err != nil {
			return Instruction{}, wrapOperandErr(err, r)
		}
		b, err := decodeSrc(r.operands[2])
		if err != nil {
			return Instruction{}, wrapOperandErr(err, r)
		}
		instr.Rd = Operand{Kind: KindRegister, Reg: rd}
		instr.A = a
		instr.B = b

	case OpCMP:
		if err := arity(r, 2); err != nil {
			return Instruction{}, err
		}
		a, err := decodeSrc(r.operands[0])
		if err != nil {
			return Instruction{}, wrapOperandErr(err, r)
		}
		b, err := decodeSrc(r.operands[1])
		if err != nil {
			return Instruction{}, wrapOperandErr(err, r)
		}
		instr.A = a
		instr.B = b

	case OpLOAD:
		if err := arity(r, 2); err != nil {
			return Instruction{}, err
		}
		rd, err := registerIndex(r.operands[0])
		if err != nil {
			return Instruction{}, wrapOperandErr(err, r)
		}
		mem, err := decodeMemOperand(r.operands[1])
		if err != nil {
			return Instruction{}, wrapOperandErr(err, r)
		}
		instr.Rd = Operand{Kind: KindRegister, Reg: rd}
		instr.A = mem

	case OpSTORE:
		if err := arity(r, 2); err != nil {
			return Instruction{}, err
		}
		mem, err := decodeMemOperand(r.operands[0])
		if err != nil {
			return Instruction{}, wrapOperandErr(err, r)
		}
		rs, err := registerIndex(r.operands[1])
		if err != nil {
			return Instruction{}, wrapOperandErr(err, r)
		}
		instr.A = mem
		instr.B = Operand{Kind: KindRegister, Reg: rs}

	case OpPUSH:
		if err := arity(r, 1); err != nil {
			return Instruction{}, err
		}
		a, err := decodeSrc(r.operands[0])
		if err != nil {
			return Instruction{}, wrapOperandErr(err, r)
		}
		instr.A = a

	case OpPOP:
		if err := arity(r, 1); err != nil {
			return Instruction{}, err
		}
		rd, err := registerIndex(r.operands[0])
		if err != nil {
			return Instruction{}, wrapOperandErr(err, r)
		}
		instr.Rd = Operand{Kind: KindRegister, Reg: rd}

	case OpREAD:
		if err := arity(r, 2); err != nil {
			return Instruction{}, err
		}
		rd, err := registerIndex(r.operands[0])
		if err != nil {
			return Instruction{}, wrapOperandErr(err, r)
		}
		port, err := strconv.Atoi(r.operands[1])
		if err != nil {
			return Instruction{}, wrapOperandErr(err, r)
		}
		instr.Rd = Operand{Kind: KindRegister, Reg: rd}
		instr.Port = port

	case OpWRITE:
		if err := arity(r, 2); err != nil {
			return Instruction{}, err
		}
		port, err := strconv.Atoi(r.operands[0])
		if err != nil {
			return Instruction{}, wrapOperandErr(err, r)
		}
		rs, err := registerIndex(r.operands[1])
		if err != nil {
			return Instruction{}, wrapOperandErr(err, r)
		}
		instr.Port = port
		instr.A = Operand{Kind: KindRegister, Reg: rs}
	}

	return instr, nil
}

func arity(r *rawInstr, want int) error {
	if len(r.operands) != want {
		return fmt.Errorf("%w: %s wants %d operand(s), got %d (line %d)",
			ErrMalformedOperand, r.mnemonic, want, len(r.operands), r.lineno)
	}
	return nil
}

func wrapOperandErr(err error, r *rawInstr) error {
	return fmt.Errorf("%w: %s: %s (line %d)", ErrMalformedOperand, r.mnemonic, err.Error(), r.lineno)
}

func isIntLiteral(tok string) bool {
	if tok == "" {
		return false
	}
	i := 0
	if tok[0] == '-' {
		i = 1
	}
	if i >= len(tok) {
		return false
	}
	for ; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return false
		}
	}
	return true
}

func resolveJumpTarget(tok string, labels map[string]int, lineno int) (int, error) {
	if idx, ok := labels[tok]; ok {
		return idx, nil
	}
	if isIntLiteral(tok) {
		return strconv.Atoi(tok)
	}
	return 0, fmt.Errorf("%w: %q (line %d)", ErrUndefinedLabel, tok, lineno)
}
