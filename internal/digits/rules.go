package digits

import (
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/digitspan/internal/digits/lexicon"
)

// rule is the compiled form of one lexicon entry.
type rule struct {
	key         string
	replacement string // the digit padded with spaces

	// anchored matches key between ASCII word boundaries, mirroring the
	// recogniser-side tokenisation of Latin text.
	anchored *regexp.Regexp

	// substring is true for multi-rune keys outside ASCII. Go's \b is
	// ASCII-only, so a Devanagari or Kannada key is never bounded and must
	// fall back to plain substring replacement.
	substring bool

	// token is true for single-rune keys outside ASCII. A lone Indic
	// consonant occurs inside ordinary words ("छ" in "अच्छा"), so it only
	// matches as a whole whitespace-separated token.
	token bool

	// split matches one ASCII word character immediately followed by key.
	// Nil for single-rune keys.
	split *regexp.Regexp
}

type ruleSet struct {
	rules     []rule // longest key first
	splitting bool
}

func compileRules(lang lexicon.Language) *ruleSet {
	table := make(map[string]string)
	for k, d := range lexicon.ForLanguage(string(lang)) {
		nk := normalizeKey(k)
		if nk == "" {
			continue
		}
		if _, dup := table[nk]; !dup {
			table[nk] = d
		}
	}

	keys := lexicon.SortLongestFirst(slices.Collect(maps.Keys(table)))
	rs := &ruleSet{
		rules:     make([]rule, 0, len(keys)),
		splitting: lang == lexicon.Hindi || lang == lexicon.Kannada,
	}
	for _, k := range keys {
		quoted := regexp.QuoteMeta(k)
		single := utf8.RuneCountInString(k) == 1
		r := rule{
			key:         k,
			replacement: " " + table[k] + " ",
			anchored:    regexp.MustCompile(`(?i)\b` + quoted + `\b`),
			substring:   !isASCII(k) && !single,
			token:       !isASCII(k) && single,
		}
		if !single {
			r.split = regexp.MustCompile(`(?i)(\w)(` + quoted + `)`)
		}
		rs.rules = append(rs.rules, r)
	}
	return rs
}

// substitute is stage 7. Each key is tried against the text as it stands
// after all longer keys have been applied.
func (rs *ruleSet) substitute(s string) string {
	for i := range rs.rules {
		r := &rs.rules[i]
		switch {
		case r.anchored.MatchString(s):
			s = r.anchored.ReplaceAllLiteralString(s, r.replacement)
		case r.substring && strings.Contains(s, r.key):
			s = strings.ReplaceAll(s, r.key, r.replacement)
		case r.token:
			s = r.replaceTokens(s)
		}
	}
	return s
}

// substituteAnchored repeats the word-boundary half of stage 7.
func (rs *ruleSet) substituteAnchored(s string) string {
	for i := range rs.rules {
		r := &rs.rules[i]
		s = r.anchored.ReplaceAllLiteralString(s, r.replacement)
		if r.token {
			s = r.replaceTokens(s)
		}
	}
	return s
}

// replaceTokens swaps every field of s that equals the key for its digit.
func (r *rule) replaceTokens(s string) string {
	if !strings.Contains(s, r.key) {
		return s
	}
	fields := strings.Fields(s)
	changed := false
	for i, f := range fields {
		if f == r.key {
			fields[i] = strings.TrimSpace(r.replacement)
			changed = true
		}
	}
	if !changed {
		return s
	}
	return strings.Join(fields, " ")
}

// split is the first half of stage 8: "charnau" becomes "char nau".
func (rs *ruleSet) split(s string) string {
	for i := range rs.rules {
		if re := rs.rules[i].split; re != nil {
			s = re.ReplaceAllString(s, "${1} ${2}")
		}
	}
	return s
}
