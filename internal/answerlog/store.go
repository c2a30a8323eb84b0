// Package answerlog keeps an append-only JSON-lines record of graded
// answers, one object per line, for offline review of recognition quality.
package answerlog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/MrWong99/digitspan/internal/grade"
	"github.com/MrWong99/digitspan/internal/server"
)

// Compile-time interface check.
var _ server.AnswerLog = (*FileStore)(nil)

// Record is a single line of the log.
type Record struct {
	Timestamp  time.Time     `json:"timestamp"`
	Route      string        `json:"route"`
	Language   string        `json:"language"`
	Transcript string        `json:"transcript"`
	Expected   []int         `json:"expected"`
	Digits     []int         `json:"digits"`
	Correct    bool          `json:"correct"`
	Outcome    grade.Outcome `json:"outcome"`
}

// FileStore appends records to a file. Safe for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a FileStore writing to path. The file is created on
// the first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file the store appends to.
func (fs *FileStore) Path() string { return fs.path }

// SaveAnswer appends a to the file.
func (fs *FileStore) SaveAnswer(a server.Answer) error {
	ts := a.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	data, err := json.Marshal(Record{
		Timestamp:  ts,
		Route:      a.Route,
		Language:   a.Language,
		Transcript: a.Transcript,
		Expected:   a.Expected,
		Digits:     a.Digits,
		Correct:    a.Verdict.Correct,
		Outcome:    a.Verdict.Outcome,
	})
	if err != nil {
		return fmt.Errorf("answerlog: marshal: %w", err)
	}
	data = append(data, '\n')

	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.OpenFile(fs.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("answerlog: open %q: %w", fs.path, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("answerlog: write: %w", err)
	}
	return nil
}

// ReadAll decodes every record in the file at path, in write order.
func ReadAll(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("answerlog: open %q: %w", path, err)
	}
	defer f.Close()

	var out []Record
	dec := json.NewDecoder(f)
	for dec.More() {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return out, fmt.Errorf("answerlog: decode record %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
