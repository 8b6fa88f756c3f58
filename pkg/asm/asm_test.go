package asm

import (
	"errors"
	"strings"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestParseBasicProgram(t *testing.T) {
	source := "MOV R0, 5\nWRITE 0, R0\nHLT"
	program, count, err := Parse(source)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, count == 3, "expected 3 instructions, got %d", count)
	assert(t, program[0].Op == OpMOV, "expected MOV, got %v", program[0].Op)
	assert(t, program[1].Op == OpWRITE, "expected WRITE, got %v", program[1].Op)
	assert(t, program[2].Op == OpHLT, "expected HLT, got %v", program[2].Op)
}

func TestParseCommentsAndWhitespace(t *testing.T) {
	clean := "MOV R0, 5\nWRITE 0, R0\nHLT"
	noisy := "  MOV   R0,5   ; load five\n\n# a full comment line\n\tWRITE 0, R0 # emit it\nHLT   \n"
	p1, c1, err1 := Parse(clean)
	p2, c2, err2 := Parse(noisy)
	assert(t, err1 == nil && err2 == nil, "unexpected errors: %v %v", err1, err2)
	assert(t, c1 == c2, "instruction counts differ: %d vs %d", c1, c2)
	for i := range p1 {
		assert(t, p1[i].Op == p2[i].Op, "instruction %d differs: %v vs %v", i, p1[i].Op, p2[i].Op)
	}
}

func TestLabelPositionPreserving(t *testing.T) {
	source := "MOV R0, 1\nloop:\nADD R0, R0, 1\nJNZ loop\nHLT"
	withLabel, _, err := Parse(source)
	assert(t, err == nil, "unexpected error: %v", err)
	// JNZ should target the ADD instruction, index 1.
	assert(t, withLabel[2].Op == OpJNZ, "expected JNZ at index 2")
	assert(t, withLabel[2].Target == 1, "expected target 1, got %d", withLabel[2].Target)

	// Inserting a new label before instruction 1 must not change the
	// index of instructions at or after it.
	source2 := "MOV R0, 1\nother:\nloop:\nADD R0, R0, 1\nJNZ loop\nHLT"
	withExtra, _, err := Parse(source2)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, withExtra[2].Target == 1, "expected target 1, got %d", withExtra[2].Target)
}

func TestProgramTooLarge(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 257; i++ {
		b.WriteString("NOP\n")
	}
	_, _, err := Parse(b.String())
	assert(t, errors.Is(err, ErrProgramTooLarge), "expected ErrProgramTooLarge, got %v", err)
}

func TestProgramAtLimitIsFine(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 256; i++ {
		b.WriteString("NOP\n")
	}
	_, count, err := Parse(b.String())
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, count == 256, "expected 256, got %d", count)
}

func TestUndefinedLabel(t *testing.T) {
	_, _, err := Parse("JMP nowhere\nHLT")
	assert(t, errors.Is(err, ErrUndefinedLabel), "expected ErrUndefinedLabel, got %v", err)
}

func TestJumpToIntegerLiteral(t *testing.T) {
	program, _, err := Parse("JMP 0\nHLT")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, program[0].Target == 0, "expected target 0, got %d", program[0].Target)
}

func TestNegativeJumpLiteral(t *testing.T) {
	program, _, err := Parse("JMP -1\nHLT")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, program[0].Target == -1, "expected target -1, got %d", program[0].Target)
}

func TestWideImmediateLiteralIsCanonicalizedNotRejected(t *testing.T) {
	// 4000000000 mod 65536 == 10240; the grammar bounds literal sign, not
	// magnitude, so this must canonicalize rather than fail to parse.
	program, _, err := Parse("MOV R0, 4000000000\nHLT")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, program[0].A.Imm == 10240, "expected 10240, got %d", program[0].A.Imm)
}

func TestUnknownMnemonicParsesButIsTagged(t *testing.T) {
	program, count, err := Parse("FROB R0, R1\nHLT")
	assert(t, err == nil, "unknown mnemonics must not be a parse error: %v", err)
	assert(t, count == 2, "expected 2 instructions, got %d", count)
	assert(t, program[0].Op == OpUnknown, "expected OpUnknown, got %v", program[0].Op)
	assert(t, program[0].Unknown == "FROB", "expected mnemonic FROB, got %q", program[0].Unknown)
}

func TestIndirectAndDirectMemoryOperandsDistinguished(t *testing.T) {
	program, _, err := Parse("LOAD R0, [R1]\nLOAD R1, 10\nHLT")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, program[0].A.Kind == KindIndirectReg, "expected indirect operand")
	assert(t, program[0].A.Reg == 1, "expected register 1, got %d", program[0].A.Reg)
	assert(t, program[1].A.Kind == KindDirectAddr, "expected direct operand")
	assert(t, program[1].A.Addr == 10, "expected address 10, got %d", program[1].A.Addr)
}

func TestCaseInsensitiveMnemonicAndRegister(t *testing.T) {
	program, _, err := Parse("mov r0, 5\nHLT")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, program[0].Op == OpMOV, "expected OpMOV, got %v", program[0].Op)
	assert(t, program[0].Rd.Reg == 0, "expected register 0, got %d", program[0].Rd.Reg)
}

func TestLabelsAreCaseSensitive(t *testing.T) {
	_, _, err := Parse("Loop:\nNOP\nJMP loop\nHLT")
	assert(t, errors.Is(err, ErrUndefinedLabel), "expected ErrUndefinedLabel for case mismatch, got %v", err)
}

func TestMalformedOperandArity(t *testing.T) {
	_, _, err := Parse("ADD R0, R1\nHLT")
	assert(t, errors.Is(err, ErrMalformedOperand), "expected ErrMalformedOperand, got %v", err)
}
