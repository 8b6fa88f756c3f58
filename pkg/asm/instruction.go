package asm

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

var sixteenBits = big.NewInt(1 << 16)

// Opcode identifies a mnemonic from the closed Cosmo-8 instruction set.
// Any mnemonic outside this set parses into OpUnknown rather than being
// rejected by the parser (see asm.go); the machine is the one that
// refuses it, with ErrUnknownInstruction, at dispatch time.
type Opcode int

const (
	OpUnknown Opcode = iota
	OpHLT
	OpNOP
	OpMOV
	OpADD
	OpSUB
	OpMUL
	OpMOD
	OpAND
	OpOR
	OpXOR
	OpNOT
	OpSHL
	OpSHR
	OpCMP
	OpLOAD
	OpSTORE
	OpJMP
	OpJZ
	OpJNZ
	OpJN
	OpJC
	OpCALL
	OpRET
	OpPUSH
	OpPOP
	OpREAD
	OpWRITE
)

var mnemonicToOpcode = map[string]Opcode{
	"HLT":   OpHLT,
	"NOP":   OpNOP,
	"MOV":   OpMOV,
	"ADD":   OpADD,
	"SUB":   OpSUB,
	"MUL":   OpMUL,
	"MOD":   OpMOD,
	"AND":   OpAND,
	"OR":    OpOR,
	"XOR":   OpXOR,
	"NOT":   OpNOT,
	"SHL":   OpSHL,
	"SHR":   OpSHR,
	"CMP":   OpCMP,
	"LOAD":  OpLOAD,
	"STORE": OpSTORE,
	"JMP":   OpJMP,
	"JZ":    OpJZ,
	"JNZ":   OpJNZ,
	"JN":    OpJN,
	"JC":    OpJC,
	"CALL":  OpCALL,
	"RET":   OpRET,
	"PUSH":  OpPUSH,
	"POP":   OpPOP,
	"READ":  OpREAD,
	"WRITE": OpWRITE,
}

// jumpClass is the set of mnemonics whose first operand is a jump target
// that the parser must resolve against the label table or reject.
var jumpClass = map[Opcode]bool{
	OpJMP:  true,
	OpJZ:   true,
	OpJNZ:  true,
	OpJN:   true,
	OpJC:   true,
	OpCALL: true,
}

func (op Opcode) String() string {
	for name, code := range mnemonicToOpcode {
		if code == op {
			return name
		}
	}
	return "UNKNOWN"
}

// OperandKind tags the shape of a decoded Operand.
type OperandKind int

const (
	KindRegister OperandKind = iota
	KindImmediate
	KindDirectAddr
	KindIndirectReg
)

// Operand is a pre-decoded instruction argument (SPEC_FULL.md §4 "Operand
// representation": decode once at parse time instead of re-parsing the
// raw token on every execution step).
type Operand struct {
	Kind OperandKind
	// Reg holds the register index for KindRegister/KindIndirectReg.
	Reg int
	// Imm holds the canonical signed value for KindImmediate.
	Imm int16
	// Addr holds the direct memory address for KindDirectAddr.
	Addr int
}

// Instruction is one normalized, operand-decoded program line. Jump
// targets (Target) are absolute instruction indices resolved by the
// parser's label pass; they are ints rather than Operands since a jump
// target is never a register or memory reference.
type Instruction struct {
	Op      Opcode
	Rd      Operand // destination register (MOV/ADD/.../LOAD/POP/READ)
	A       Operand // first source operand (ADD/SUB/.../CMP/NOT/SHL/SHR/PUSH/WRITE)
	B       Operand // second source operand (ADD/SUB/.../SHL/SHR amount)
	Target  int     // resolved jump/call target (JMP/JZ/JNZ/JN/JC/CALL)
	Port    int     // port tag (READ/WRITE)
	Unknown string  // original mnemonic, set only when Op == OpUnknown
	Line    int     // 1-based source line, for diagnostics
}

func registerIndex(tok string) (int, error) {
	if len(tok) < 2 || (tok[0] != 'R' && tok[0] != 'r') {
		return 0, fmt.Errorf("not a register: %q", tok)
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil || n < 0 || n > 7 {
		return 0, fmt.Errorf("invalid register: %q", tok)
	}
	return n, nil
}

func isRegisterToken(tok string) bool {
	return len(tok) >= 2 && (tok[0] == 'R' || tok[0] == 'r')
}

// decodeSrc decodes a source operand: a register reference or a signed
// decimal immediate (spec.md §4.2.3 "_resolve_src").
func decodeSrc(tok string) (Operand, error) {
	if isRegisterToken(tok) {
		idx, err := registerIndex(tok)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: KindRegister, Reg: idx}, nil
	}
	n, ok := new(big.Int).SetString(tok, 10)
	if !ok {
		return Operand{}, fmt.Errorf("invalid operand: %q", tok)
	}
	return Operand{Kind: KindImmediate, Imm: s16big(n)}, nil
}

// decodeMemOperand decodes a LOAD/STORE address operand: either a bare
// integer literal (direct address) or a bracketed register (indirect).
func decodeMemOperand(tok string) (Operand, error) {
	if strings.HasPrefix(tok, "[") && strings.HasSuffix(tok, "]") {
		idx, err := registerIndex(tok[1 : len(tok)-1])
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: KindIndirectReg, Reg: idx}, nil
	}
	addr, err := strconv.Atoi(tok)
	if err != nil {
		return Operand{}, fmt.Errorf("invalid memory operand: %q", tok)
	}
	return Operand{Kind: KindDirectAddr, Addr: addr}, nil
}

func s16(v int32) int16 {
	u := uint32(v) & 0xFFFF
	return int16(int32(u<<16) >> 16)
}

// s16big canonicalizes an arbitrary-magnitude decimal literal into the
// signed 16-bit representative spec.md's numeric model defines, the same
// way vm.s16 does for runtime values — the grammar (spec.md §6.1) puts no
// bound on literal width, so immediates are parsed with math/big rather
// than truncated to whatever fits in an int32.
func s16big(n *big.Int) int16 {
	r := new(big.Int).Mod(n, sixteenBits)
	return int16(uint16(r.Uint64()))
}
