// Package phonetic recovers misspelled English number words ("sevn",
// "fiev", "nien") that the exact lexicon pass left behind.
//
// A token is a candidate for a number word when their Double Metaphone codes
// overlap. Among candidates the word with the highest Jaro-Winkler similarity
// wins, provided the score reaches the configured threshold. Tokens that are
// not plain ASCII letters, or shorter than three letters, are never touched,
// and only number words of four or more letters are used as targets: the
// short homophones ("to", "oh", "for") are too easy to hit by accident.
//
// The [Matcher] implements [digits.Recoverer] and is read-only after
// construction, so it is safe for concurrent use.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/digitspan/internal/digits/lexicon"
)

const (
	defaultThreshold = 0.85
	minTokenRunes    = 3
	minTargetRunes   = 4
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithThreshold sets the minimum Jaro-Winkler score for a match.
// Default: 0.85.
func WithThreshold(threshold float64) Option {
	return func(m *Matcher) {
		if threshold > 0 && threshold <= 1 {
			m.threshold = threshold
		}
	}
}

type target struct {
	word  string
	digit string
	codes map[string]struct{}
}

// Matcher maps misspelled tokens to digits.
type Matcher struct {
	threshold float64
	targets   []target
}

// New returns a [Matcher] over the English number words.
func New(opts ...Option) *Matcher {
	m := &Matcher{threshold: defaultThreshold}
	for _, o := range opts {
		o(m)
	}
	table := lexicon.ForLanguage(string(lexicon.English))
	for _, w := range lexicon.Keys(string(lexicon.English)) {
		if len(w) < minTargetRunes {
			continue
		}
		m.targets = append(m.targets, target{word: w, digit: table[w], codes: codes(w)})
	}
	return m
}

// Threshold returns the configured similarity threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Recover returns the digit for the number word most similar to token.
func (m *Matcher) Recover(token string) (string, bool) {
	_, digit, _, ok := m.Match(token)
	return digit, ok
}

// Match is like Recover but also reports the matched word and its score.
// When ok is false the other return values are zero.
func (m *Matcher) Match(token string) (word, digit string, score float64, ok bool) {
	tok := strings.ToLower(strings.TrimSpace(token))
	if len(tok) < minTokenRunes || !isLetters(tok) {
		return "", "", 0, false
	}
	in := codes(tok)
	for _, t := range m.targets {
		if !overlap(in, t.codes) {
			continue
		}
		s := matchr.JaroWinkler(tok, t.word, false)
		if s >= m.threshold && s > score {
			word, digit, score = t.word, t.digit, s
		}
	}
	if word == "" {
		return "", "", 0, false
	}
	return word, digit, score, true
}

func codes(word string) map[string]struct{} {
	out := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(word)
	if p != "" {
		out[p] = struct{}{}
	}
	if s != "" {
		out[s] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for c := range a {
		if _, ok := b[c]; ok {
			return true
		}
	}
	return false
}

func isLetters(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}
