package cosmo8

import (
	"context"
	"errors"
	"testing"

	"github.com/cosmo8/cosmo8/pkg/asm"
)

func TestRunProgramReturnsOrderedValues(t *testing.T) {
	values, err := RunProgram(context.Background(), "READ R0, 0\nREAD R1, 0\nADD R2, R0, R1\nWRITE 0, R2\nHLT", []int16{10, 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 1 || values[0] != 30 {
		t.Fatalf("expected [30], got %v", values)
	}
}

func TestRunProgramPropagatesParseErrors(t *testing.T) {
	_, err := RunProgram(context.Background(), "JMP nowhere\nHLT", nil)
	if !errors.Is(err, asm.ErrUndefinedLabel) {
		t.Fatalf("expected ErrUndefinedLabel, got %v", err)
	}
}

func TestParseExposesInstructionCount(t *testing.T) {
	_, count, err := Parse("NOP\nNOP\nHLT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3, got %d", count)
	}
}
