package evalset

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/digitspan/internal/grade"
)

// ParseFunc converts a transcript into digits. [digits.Parse] and
// (*digits.Normalizer).Parse both satisfy it.
type ParseFunc func(transcript, language string) []int

// CaseResult is the outcome of one case.
type CaseResult struct {
	Case  Case
	Got   []int
	Pass  bool
	Grade grade.Result
}

// Report holds the results of a run in case-file order.
type Report struct {
	Results []CaseResult
}

// Passed returns the number of passing cases.
func (r *Report) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Pass {
			n++
		}
	}
	return n
}

// Failed returns the number of failing cases.
func (r *Report) Failed() int { return len(r.Results) - r.Passed() }

// OK reports whether every case passed.
func (r *Report) OK() bool { return r.Failed() == 0 }

// Run evaluates cases with parse, at most concurrency at a time. A case
// passes when the recovered digits equal Expected exactly. concurrency < 1
// means no limit.
//
// Run returns early with ctx's error if ctx is cancelled.
func Run(ctx context.Context, parse ParseFunc, cases []Case, concurrency int) (*Report, error) {
	results := make([]CaseResult, len(cases))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, c := range cases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			got := parse(c.Transcript, c.Language)
			results[i] = CaseResult{
				Case:  c,
				Got:   got,
				Pass:  slices.Equal(got, c.Expected),
				Grade: grade.Compare(c.Expected, got),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evalset: run: %w", err)
	}
	return &Report{Results: results}, nil
}
