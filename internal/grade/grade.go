// Package grade scores a recovered digit sequence against the sequence the
// child was asked to repeat.
package grade

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// Outcome classifies an answer.
type Outcome string

const (
	// OutcomeExact means the answer equals the expected sequence.
	OutcomeExact Outcome = "exact"

	// OutcomePrefix means the answer starts with the expected sequence and
	// carries extra trailing digits, typically recogniser echo of the
	// prompt. It counts as correct.
	OutcomePrefix Outcome = "prefix"

	// OutcomeMismatch means the answer contains digits but differs.
	OutcomeMismatch Outcome = "mismatch"

	// OutcomeNoAnswer means no digits were recovered.
	OutcomeNoAnswer Outcome = "no_answer"
)

// Outcomes lists every outcome in a stable order.
var Outcomes = []Outcome{OutcomeExact, OutcomePrefix, OutcomeMismatch, OutcomeNoAnswer}

// Result is the verdict for a single answer.
type Result struct {
	Correct bool    `json:"correct"`
	Outcome Outcome `json:"outcome"`
}

// Compare grades got against expected. Exact and prefix matches are correct.
func Compare(expected, got []int) Result {
	switch {
	case len(got) == 0:
		return Result{Outcome: OutcomeNoAnswer}
	case slices.Equal(expected, got):
		return Result{Correct: true, Outcome: OutcomeExact}
	case len(expected) > 0 && len(got) > len(expected) && slices.Equal(got[:len(expected)], expected):
		return Result{Correct: true, Outcome: OutcomePrefix}
	default:
		return Result{Outcome: OutcomeMismatch}
	}
}

// ErrInvalidSequence is returned by [ParseSequence] for input that is not a
// list of digits.
var ErrInvalidSequence = errors.New("grade: invalid digit sequence")

// ParseSequence reads an expected sequence written either as a bare run
// ("4957") or with separators ("4 9 5 7", "4,9,5,7", "4-9-5-7").
func ParseSequence(s string) ([]int, error) {
	out := []int{}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			out = append(out, int(r-'0'))
		case unicode.IsSpace(r) || strings.ContainsRune(",-", r):
		default:
			return nil, fmt.Errorf("%w: unexpected %q", ErrInvalidSequence, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no digits in %q", ErrInvalidSequence, s)
	}
	return out, nil
}

// Format renders seq as a bare run of digits.
func Format(seq []int) string {
	var b strings.Builder
	for _, d := range seq {
		b.WriteByte(byte('0' + d))
	}
	return b.String()
}

// CheckSequence reports an error wrapping [ErrInvalidSequence] when seq is
// empty or holds a value outside [0, 9].
func CheckSequence(seq []int) error {
	if len(seq) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidSequence)
	}
	for i, d := range seq {
		if d < 0 || d > 9 {
			return fmt.Errorf("%w: element %d is %d", ErrInvalidSequence, i, d)
		}
	}
	return nil
}
