// Package digits converts free-form speech-to-text output into the ordered
// sequence of digits a child spoke during a "repeat these numbers" test.
//
// Recognisers are noisy. A single transcript may carry UI artefacts such as
// "you said:", punctuation, spelling variants ("too", "for"), Devanagari or
// Kannada number words, words glued together without a space, or a bare run
// of digits. [Parse] pushes the text through a fixed, linear sequence of
// stages:
//
//  1. Guard against empty input.
//  2. Lowercase, join lines, normalise to NFC, map native numerals to ASCII.
//  3. Strip recogniser artefacts ("you said", "transcript", ...).
//  4. Strip quotes and turn punctuation into spaces.
//  5. Strip the Hindi anusvara, chandrabindu and visarga marks.
//  6. Collapse whitespace.
//  7. Substitute number words with digits, longest word first, word
//     boundaries before substrings.
//  8. Hindi and Kannada only: split run-on number words and substitute again.
//  9. Collect single-digit tokens.
//  10. When step 9 finds nothing, scrape raw digit characters instead.
//
// Parse never fails. Every failure mode (silence, noise, an unknown script)
// yields an empty, non-nil slice, which callers treat as "no usable answer".
package digits

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/MrWong99/digitspan/internal/digits/lexicon"
)

// Strategy names the extraction path that produced a result.
type Strategy string

const (
	// StrategyNone means no digits were recovered.
	StrategyNone Strategy = "none"

	// StrategyTokens is the primary path: single-digit tokens after
	// lexical substitution.
	StrategyTokens Strategy = "tokens"

	// StrategySpaced is the first fallback: space-separated digits scraped
	// from the text after every other character was blanked out.
	StrategySpaced Strategy = "spaced"

	// StrategyRun is the last fallback: a run of digits with no separators,
	// split into individual characters.
	StrategyRun Strategy = "run"
)

// Result is the outcome of a single [Normalizer.Analyze] call.
type Result struct {
	// Digits is the recovered sequence, each element in [0, 9]. Never nil.
	Digits []int

	// Language is the lexicon that was applied.
	Language lexicon.Language

	// Strategy is the extraction path that produced Digits.
	Strategy Strategy

	// Cleaned is the text after substitution, as seen by extraction.
	Cleaned string
}

// Recoverer maps a leftover token that no lexicon word matched to a digit.
// It is an optional stage between substitution and extraction.
//
// Implementations must be safe for concurrent use.
type Recoverer interface {
	Recover(token string) (digit string, ok bool)
}

// Observer receives every [Result] produced by a [Normalizer] together with
// the time the pass took. It must not retain or modify Result.Digits.
type Observer func(res Result, took time.Duration)

// Option configures a [Normalizer].
type Option func(*Normalizer)

// WithRecovery enables a misspelling-recovery stage. Disabled by default.
func WithRecovery(r Recoverer) Option {
	return func(n *Normalizer) {
		n.recoverer = r
	}
}

// WithObserver registers fn to be called with every result.
func WithObserver(fn Observer) Option {
	return func(n *Normalizer) {
		n.observer = fn
	}
}

// Normalizer holds the compiled substitution rules for every supported
// language. It is read-only after [New] returns and safe for concurrent use.
type Normalizer struct {
	rules     map[lexicon.Language]*ruleSet
	recoverer Recoverer
	observer  Observer
}

// New compiles the substitution rules for all languages and returns a ready
// [Normalizer].
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		rules: make(map[lexicon.Language]*ruleSet, len(lexicon.Languages)),
	}
	for _, lang := range lexicon.Languages {
		n.rules[lang] = compileRules(lang)
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

var defaultNormalizer = New()

// Parse converts transcript into digits using the lexicon for language.
// Unknown languages fall back to English. The result is never nil.
func Parse(transcript, language string) []int {
	return defaultNormalizer.Parse(transcript, language)
}

// Parse converts transcript into digits using the lexicon for language.
func (n *Normalizer) Parse(transcript, language string) []int {
	return n.Analyze(transcript, language).Digits
}

// Analyze is like [Normalizer.Parse] but also reports which extraction path
// succeeded and the text it operated on.
func (n *Normalizer) Analyze(transcript, language string) Result {
	if n.observer == nil {
		return n.analyze(transcript, lexicon.ParseLanguage(language))
	}
	start := time.Now()
	res := n.analyze(transcript, lexicon.ParseLanguage(language))
	n.observer(res, time.Since(start))
	return res
}

func (n *Normalizer) analyze(transcript string, lang lexicon.Language) Result {
	res := Result{Digits: []int{}, Language: lang, Strategy: StrategyNone}
	if strings.TrimSpace(transcript) == "" {
		return res
	}

	s := clean(transcript)

	rs := n.rules[lang]
	s = rs.substitute(s)
	if rs.splitting {
		s = rs.split(s)
		s = rs.substituteAnchored(s)
	}
	if n.recoverer != nil {
		s = recoverTokens(s, n.recoverer)
	}
	res.Cleaned = s

	if d := extractTokens(s); len(d) > 0 {
		res.Digits, res.Strategy = d, StrategyTokens
		return res
	}
	if d, strategy := extractFallback(s); len(d) > 0 {
		res.Digits, res.Strategy = d, strategy
	}
	return res
}

// artifactPattern matches recogniser prefixes anywhere in the text. A raw
// transcript may contain several of them when the UI re-rendered mid-answer.
var artifactPattern = regexp.MustCompile(
	`(?i)(?:you\s*said|user\s*said|transcript|result|speech|recognized|output|text|listening|heard):?\s*`,
)

var (
	quoteStripper = strings.NewReplacer(
		`"`, "", `'`, "", "`", "",
		"“", "", "”", "", "‘", "", "’", "",
	)
	punctuationBlanker = strings.NewReplacer(
		".", " ", ",", " ", "!", " ", "?", " ", ":", " ", ";", " ",
		"(", " ", ")", " ", "[", " ", "]", " ", "{", " ", "}", " ",
	)
	// anusvara, chandrabindu, visarga
	markStripper = strings.NewReplacer("ं", "", "ँ", "", "ः", "")
)

// clean runs stages 2 through 6.
func clean(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
	s = norm.NFC.String(s)
	s = asciiNumerals(s)
	s = artifactPattern.ReplaceAllLiteralString(s, " ")
	s = quoteStripper.Replace(s)
	s = punctuationBlanker.Replace(s)
	s = markStripper.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// asciiNumerals rewrites Devanagari and Kannada numerals as ASCII digits.
func asciiNumerals(s string) string {
	return strings.Map(func(r rune) rune {
		if d, ok := lexicon.NativeDigit(r); ok {
			return rune(d)
		}
		return r
	}, s)
}

// normalizeKey applies the same character-level cleaning to a lexicon key
// that [clean] applies to transcripts, so keys spelled with a stripped mark
// can still match.
func normalizeKey(k string) string {
	return markStripper.Replace(norm.NFC.String(strings.ToLower(k)))
}

func recoverTokens(s string, r Recoverer) string {
	tokens := strings.Fields(s)
	for i, tok := range tokens {
		if isDigitToken(tok) {
			continue
		}
		if d, ok := r.Recover(tok); ok {
			tokens[i] = d
		}
	}
	return strings.Join(tokens, " ")
}

// extractTokens is stage 9.
func extractTokens(s string) []int {
	var out []int
	for _, tok := range strings.Fields(s) {
		if isDigitToken(tok) {
			out = append(out, int(tok[0]-'0'))
		}
	}
	return out
}

// extractFallback is stage 10.
func extractFallback(s string) ([]int, Strategy) {
	scraped := strings.Map(func(r rune) rune {
		if isDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)
	fields := strings.Fields(scraped)
	if len(fields) == 0 {
		return nil, StrategyNone
	}

	var spaced []int
	for _, f := range fields {
		if isDigitToken(f) {
			spaced = append(spaced, int(f[0]-'0'))
		}
	}
	if len(spaced) > 0 {
		return spaced, StrategySpaced
	}

	// Every field is made of ASCII digits at this point.
	run := strings.Join(fields, "")
	out := make([]int, 0, len(run))
	for i := 0; i < len(run); i++ {
		out = append(out, int(run[i]-'0'))
	}
	return out, StrategyRun
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isDigitToken(tok string) bool {
	return len(tok) == 1 && isDigit(rune(tok[0]))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
