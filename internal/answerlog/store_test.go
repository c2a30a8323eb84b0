package answerlog_test

import (
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/digitspan/internal/answerlog"
	"github.com/MrWong99/digitspan/internal/grade"
	"github.com/MrWong99/digitspan/internal/server"
)

func TestFileStore_SaveAnswer(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "answers.jsonl")
	fs := answerlog.NewFileStore(path)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := fs.SaveAnswer(server.Answer{
		Time:       at,
		Route:      "POST /v1/grade",
		Language:   "hi",
		Transcript: "चार नौ",
		Expected:   []int{4, 9},
		Digits:     []int{4, 9},
		Verdict:    grade.Result{Correct: true, Outcome: grade.OutcomeExact},
	})
	if err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}
	if err := fs.SaveAnswer(server.Answer{Route: "POST /v1/recognize", Verdict: grade.Result{Outcome: grade.OutcomeNoAnswer}}); err != nil {
		t.Fatalf("second SaveAnswer: %v", err)
	}

	recs, err := answerlog.ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	first := recs[0]
	if !first.Timestamp.Equal(at) || first.Language != "hi" || first.Transcript != "चार नौ" {
		t.Errorf("first record = %+v", first)
	}
	if !slices.Equal(first.Digits, []int{4, 9}) || !first.Correct || first.Outcome != grade.OutcomeExact {
		t.Errorf("first verdict = %+v", first)
	}
	if recs[1].Timestamp.IsZero() {
		t.Error("zero Time was not stamped")
	}
	if recs[1].Outcome != grade.OutcomeNoAnswer {
		t.Errorf("second outcome = %q", recs[1].Outcome)
	}
}

func TestFileStore_Concurrent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "answers.jsonl")
	fs := answerlog.NewFileStore(path)

	const n = 50
	var wg sync.WaitGroup
	for range n {
		wg.Go(func() {
			if err := fs.SaveAnswer(server.Answer{Digits: []int{1, 2, 3}}); err != nil {
				t.Errorf("SaveAnswer: %v", err)
			}
		})
	}
	wg.Wait()

	recs, err := answerlog.ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(recs) != n {
		t.Errorf("got %d records, want %d", len(recs), n)
	}
}

func TestFileStore_UnwritablePath(t *testing.T) {
	t.Parallel()
	fs := answerlog.NewFileStore(filepath.Join(t.TempDir(), "missing", "answers.jsonl"))
	if err := fs.SaveAnswer(server.Answer{}); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestReadAll_Corrupt(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "answers.jsonl")
	if err := os.WriteFile(path, []byte("{\"route\":\"a\"}\nnot json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	recs, err := answerlog.ReadAll(path)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if len(recs) != 1 {
		t.Errorf("got %d records before the error, want 1", len(recs))
	}
}
