// Package evalset loads regression cases for the transcript normalizer and
// runs them.
//
// A case file is YAML:
//
//	cases:
//	  - name: dual segment hindi
//	    transcript: "youSaid:\nचार नौyouSaid:\nपाँच सात"
//	    language: hi
//	    expected: [4, 9, 5, 7]
//
// An empty expected list (expected: []) asserts that nothing is recovered.
package evalset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Case is one transcript with its expected digits.
type Case struct {
	Name       string `yaml:"name"`
	Transcript string `yaml:"transcript"`
	Language   string `yaml:"language"`
	Expected   []int  `yaml:"expected"`
}

type file struct {
	Cases []Case `yaml:"cases"`
}

// Load reads and validates the case file at path.
func Load(path string) ([]Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("evalset: open %q: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader decodes and validates cases from r. Unknown fields are
// rejected.
func LoadFromReader(r io.Reader) ([]Case, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("evalset: read: %w", err)
	}
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("evalset: decode: %w", err)
	}
	if err := Validate(f.Cases); err != nil {
		return nil, err
	}
	return f.Cases, nil
}

// Validate checks every case and returns all problems joined.
func Validate(cases []Case) error {
	if len(cases) == 0 {
		return errors.New("evalset: no cases")
	}
	var errs []error
	seen := make(map[string]int, len(cases))
	for i, c := range cases {
		prefix := fmt.Sprintf("cases[%d]", i)
		if c.Name == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", prefix))
		} else if j, dup := seen[c.Name]; dup {
			errs = append(errs, fmt.Errorf("%s: duplicate name %q (first at cases[%d])", prefix, c.Name, j))
		} else {
			seen[c.Name] = i
		}
		if c.Expected == nil {
			errs = append(errs, fmt.Errorf("%s: expected is required (use [] for no digits)", prefix))
		}
		for k, d := range c.Expected {
			if d < 0 || d > 9 {
				errs = append(errs, fmt.Errorf("%s: expected[%d] = %d is not a digit", prefix, k, d))
			}
		}
	}
	return errors.Join(errs...)
}
