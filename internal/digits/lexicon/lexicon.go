// Package lexicon holds the spoken-number vocabulary used to turn digit words
// into digits.
//
// There is one table per supported language. English is always active; the
// Hindi and Kannada tables are layered on top of it when their language is
// selected. The key sets are disjoint by script (or agree on the digit where
// a transliteration is shared), so the merge order does not matter.
//
// The tables are static and never exposed directly. [ForLanguage] returns a
// fresh copy on every call.
package lexicon

import (
	"maps"
	"slices"
	"strings"
	"unicode/utf8"
)

// Language selects which vocabulary is layered on top of English.
type Language string

const (
	English Language = "en"
	Hindi   Language = "hi"
	Kannada Language = "kn"
)

// Languages lists every supported language in a stable order.
var Languages = []Language{English, Hindi, Kannada}

// IsValid reports whether l is a supported language.
func (l Language) IsValid() bool {
	switch l {
	case English, Hindi, Kannada:
		return true
	}
	return false
}

// ParseLanguage maps an arbitrary language tag to a supported [Language].
// Unknown, empty, or malformed tags fall back to [English].
func ParseLanguage(s string) Language {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if l.IsValid() {
		return l
	}
	return English
}

var english = map[string]string{
	"zero":  "0",
	"oh":    "0",
	"o":     "0",
	"one":   "1",
	"won":   "1",
	"two":   "2",
	"too":   "2",
	"to":    "2",
	"three": "3",
	"four":  "4",
	"for":   "4",
	"five":  "5",
	"six":   "6",
	"sex":   "6",
	"seven": "7",
	"eight": "8",
	"ate":   "8",
	"nine":  "9",
	"nein":  "9",
}

var hindi = map[string]string{
	// 0
	"शून्य":   "0",
	"सुन्ना":  "0",
	"सुन्या":  "0",
	"ज़ीरो":   "0",
	"जीरो":    "0",
	"sunya":   "0",
	"shunya":  "0",
	"shoonya": "0",
	"zero":    "0",
	// 1
	"एक":  "1",
	"ek":  "1",
	"ekk": "1",
	"aek": "1",
	// 2
	"दो":  "2",
	"do":  "2",
	"doh": "2",
	// 3
	"तीन":  "3",
	"teen": "3",
	"tin":  "3",
	// 4
	"चार":   "4",
	"char":  "4",
	"chaar": "4",
	// 5
	"पांच":   "5",
	"पाँच":   "5",
	"पाच":    "5",
	"paanch": "5",
	"panch":  "5",
	"pach":   "5",
	// 6
	"छह":    "6",
	"छः":    "6",
	"छे":    "6",
	"छै":    "6",
	"chhah": "6",
	"chhe":  "6",
	"chah":  "6",
	"che":   "6",
	// 7
	"सात":  "7",
	"saat": "7",
	"sat":  "7",
	// 8
	"आठ":   "8",
	"aath": "8",
	"aat":  "8",
	"ath":  "8",
	// 9
	"नौ":  "9",
	"नो":  "9",
	"nau": "9",
	"nou": "9",
	"nao": "9",
}

var kannada = map[string]string{
	// 0
	"ಸೊನ್ನೆ": "0",
	"ಶೂನ್ಯ":  "0",
	"sonne":  "0",
	"sonna":  "0",
	"shunya": "0",
	"soonya": "0",
	// 1
	"ಒಂದು": "1",
	"ondu": "1",
	// 2
	"ಎರಡು":   "2",
	"eradu":  "2",
	"yeradu": "2",
	// 3
	"ಮೂರು":  "3",
	"mooru": "3",
	"muru":  "3",
	// 4
	"ನಾಲ್ಕು": "4",
	"naalku": "4",
	"nalku":  "4",
	// 5
	"ಐದು":  "5",
	"aidu": "5",
	"aydu": "5",
	// 6
	"ಆರು":  "6",
	"aaru": "6",
	"aru":  "6",
	// 7
	"ಏಳು":  "7",
	"elu":  "7",
	"yelu": "7",
	"eelu": "7",
	// 8
	"ಎಂಟು":  "8",
	"entu":  "8",
	"yentu": "8",
	// 9
	"ಒಂಬತ್ತು":  "9",
	"ombattu":  "9",
	"ombathu":  "9",
	"ombhattu": "9",
}

// ForLanguage returns the complete word-to-digit map for language: English
// for "en" and for any unrecognised tag, English plus Hindi for "hi", and
// English plus Kannada for "kn". The map is a copy owned by the caller.
func ForLanguage(language string) map[string]string {
	out := maps.Clone(english)
	switch ParseLanguage(language) {
	case Hindi:
		maps.Copy(out, hindi)
	case Kannada:
		maps.Copy(out, kannada)
	}
	return out
}

// Keys returns the active keys for language ordered longest first, measured
// in runes. Keys of equal length are ordered lexically so that substitution
// is deterministic.
func Keys(language string) []string {
	return SortLongestFirst(slices.Collect(maps.Keys(ForLanguage(language))))
}

// SortLongestFirst sorts keys in place, longest first, and returns them.
func SortLongestFirst(keys []string) []string {
	slices.SortFunc(keys, func(a, b string) int {
		la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
		if la != lb {
			return lb - la
		}
		return strings.Compare(a, b)
	})
	return keys
}

// NativeDigit reports the ASCII digit for a Devanagari or Kannada numeral.
func NativeDigit(r rune) (byte, bool) {
	switch {
	case r >= '०' && r <= '९':
		return byte('0' + (r - '०')), true
	case r >= '೦' && r <= '೯':
		return byte('0' + (r - '೦')), true
	}
	return 0, false
}
