package evalset_test

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/MrWong99/digitspan/internal/digits"
	"github.com/MrWong99/digitspan/internal/evalset"
	"github.com/MrWong99/digitspan/internal/grade"
)

func TestLoad_RepositoryCases(t *testing.T) {
	t.Parallel()

	cases, err := evalset.Load("../../testdata/cases.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cases) == 0 {
		t.Fatal("Load returned no cases")
	}

	report, err := evalset.Run(context.Background(), digits.Parse, cases, 4)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, res := range report.Results {
		if !res.Pass {
			t.Errorf("case %q: got %v, want %v", res.Case.Name, res.Got, res.Case.Expected)
		}
	}
}

func TestLoadFromReader(t *testing.T) {
	t.Parallel()

	const doc = `
cases:
  - name: one
    transcript: four nine
    language: en
    expected: [4, 9]
  - name: none
    transcript: hello
    expected: []
`
	cases, err := evalset.LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("got %d cases, want 2", len(cases))
	}
	if !slices.Equal(cases[0].Expected, []int{4, 9}) {
		t.Errorf("cases[0].Expected = %v", cases[0].Expected)
	}
	if cases[1].Expected == nil || len(cases[1].Expected) != 0 {
		t.Errorf("cases[1].Expected = %#v, want empty non-nil", cases[1].Expected)
	}
}

func TestLoadFromReader_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"empty document", "", "no cases"},
		{"unknown field", "cases:\n  - name: a\n    expected: [1]\n    colour: red\n", "colour"},
		{"missing name", "cases:\n  - transcript: x\n    expected: [1]\n", "name is required"},
		{"missing expected", "cases:\n  - name: a\n    transcript: x\n", "expected is required"},
		{"out of range", "cases:\n  - name: a\n    expected: [12]\n", "not a digit"},
		{"duplicate", "cases:\n  - name: a\n    expected: [1]\n  - name: a\n    expected: [2]\n", "duplicate name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := evalset.LoadFromReader(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := evalset.Load("does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRun_PreservesOrderAndCountsFailures(t *testing.T) {
	t.Parallel()

	cases := []evalset.Case{
		{Name: "a", Transcript: "one", Expected: []int{1}},
		{Name: "b", Transcript: "two", Expected: []int{3}},
		{Name: "c", Transcript: "nothing", Expected: []int{}},
		{Name: "d", Transcript: "4 9 4 9", Expected: []int{4, 9}},
	}
	report, err := evalset.Run(context.Background(), digits.Parse, cases, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Results) != len(cases) {
		t.Fatalf("got %d results, want %d", len(report.Results), len(cases))
	}
	for i, res := range report.Results {
		if res.Case.Name != cases[i].Name {
			t.Errorf("results[%d] is %q, want %q", i, res.Case.Name, cases[i].Name)
		}
	}
	if report.Passed() != 2 || report.Failed() != 2 || report.OK() {
		t.Errorf("Passed=%d Failed=%d OK=%v, want 2, 2, false", report.Passed(), report.Failed(), report.OK())
	}
	if got := report.Results[3].Grade.Outcome; got != grade.OutcomePrefix {
		t.Errorf("results[3] outcome = %q, want %q", got, grade.OutcomePrefix)
	}
}

func TestRun_ConcurrencyLimit(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	parse := func(string, string) []int {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		defer inFlight.Add(-1)
		return []int{}
	}

	cases := make([]evalset.Case, 20)
	for i := range cases {
		cases[i] = evalset.Case{Name: string(rune('a' + i)), Expected: []int{}}
	}
	if _, err := evalset.Run(context.Background(), parse, cases, 3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p := peak.Load(); p > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", p)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []evalset.Case{{Name: "a", Expected: []int{}}}
	_, err := evalset.Run(ctx, digits.Parse, cases, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestReport_Render(t *testing.T) {
	t.Parallel()

	report := &evalset.Report{Results: []evalset.CaseResult{
		{Case: evalset.Case{Name: "good", Language: "en", Expected: []int{4, 9}}, Got: []int{4, 9}, Pass: true, Grade: grade.Result{Correct: true, Outcome: grade.OutcomeExact}},
		{Case: evalset.Case{Name: "bad", Expected: []int{1}}, Got: []int{}, Grade: grade.Result{Outcome: grade.OutcomeNoAnswer}},
	}}

	var buf bytes.Buffer
	if err := report.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"NAME", "good", "[4 9]", "PASS", "bad", "FAIL", "no_answer", "1/2 passed", "1 failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
