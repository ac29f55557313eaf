// Package textnorm expands text into a speakable form before phonemization:
// quote and bracket canonicalization, CJK punctuation, titles, numbers,
// money, ranges, possessives, initials and acronyms. Normalize is idempotent
// on already-normalized text.
package textnorm

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	whitespaceRE   = regexp.MustCompile(`[^\S \n]`)
	multiSpaceRE   = regexp.MustCompile(`  +`)
	newlineSpaceRE = regexp.MustCompile(`\n +\n`)
	doctorRE       = regexp.MustCompile(`\bD[Rr]\.( [A-Z])`)
	misterRE       = regexp.MustCompile(`\bMr\.`)
	misterCapsRE   = regexp.MustCompile(`\bMR\.( [A-Z])`)
	missRE         = regexp.MustCompile(`\bMs\.`)
	missCapsRE     = regexp.MustCompile(`\bMS\.( [A-Z])`)
	mrsRE          = regexp.MustCompile(`\bMrs\.`)
	mrsCapsRE      = regexp.MustCompile(`\bMRS\.( [A-Z])`)
	etcRE          = regexp.MustCompile(`\betc\.`)
	yeahRE         = regexp.MustCompile(`(?i)\b(y)eah?\b`)
	pointNumRE     = regexp.MustCompile(`\d*\.\d+`)
	commaNumRE     = regexp.MustCompile(`(\d),(\d)`)
	rangeRE        = regexp.MustCompile(`(\d)-(\d)`)
	sAfterNumRE    = regexp.MustCompile(`(\d)S`)
	moneyRE        = regexp.MustCompile(`(?i)[$£]\d+(?:\.\d+)?(?: hundred| thousand| (?:[bm]|tr)illion)*\b|[$£]\d+\.\d\d?\b`)
	bareNumRE      = regexp.MustCompile(`\b\d+\b`)
	possessiveRE   = regexp.MustCompile(`([BCDFGHJ-NP-TV-Z])'?s\b`)
	xPossessiveRE  = regexp.MustCompile(`X'S\b`)
	initialsRE     = regexp.MustCompile(`(?:[A-Za-z]\.){2,} [a-z]`)
	acronymRE      = regexp.MustCompile(`(?i)([A-Z])\.([A-Z])`)
)

var cjkPunct = strings.NewReplacer(
	"、", ", ",
	"。", ". ",
	"！", "! ",
	"，", ", ",
	"：", ": ",
	"；", "; ",
	"？", "? ",
)

// Normalize rewrites text for the given espeak language code.
func Normalize(text, language string) string {
	text = replaceQuotes(text)
	text = strings.ReplaceAll(text, "«", "“")
	text = strings.ReplaceAll(text, "»", "”")
	text = strings.ReplaceAll(text, "“", `"`)
	text = strings.ReplaceAll(text, "”", `"`)
	text = strings.ReplaceAll(text, "(", "«")
	text = strings.ReplaceAll(text, ")", "»")

	text = cjkPunct.Replace(text)

	text = whitespaceRE.ReplaceAllString(text, " ")
	text = multiSpaceRE.ReplaceAllString(text, " ")
	for {
		next := newlineSpaceRE.ReplaceAllString(text, "\n\n")
		if next == text {
			break
		}
		text = next
	}

	text = doctorRE.ReplaceAllString(text, "Doctor$1")
	text = misterRE.ReplaceAllString(text, "Mister")
	text = misterCapsRE.ReplaceAllString(text, "Mister$1")
	text = missRE.ReplaceAllString(text, "Miss")
	text = missCapsRE.ReplaceAllString(text, "Miss$1")
	text = mrsRE.ReplaceAllString(text, "Mrs")
	text = mrsCapsRE.ReplaceAllString(text, "Mrs$1")
	text = replaceEtc(text)
	text = yeahRE.ReplaceAllString(text, "${1}e'a")

	text = pointNumRE.ReplaceAllStringFunc(text, func(m string) string {
		return expandDecimal(m, language)
	})
	text = replaceOverlapping(text, commaNumRE, "$1$2")
	text = replaceOverlapping(text, rangeRE, "$1 "+toWord(language)+" $2")
	text = sAfterNumRE.ReplaceAllString(text, "$1 S")

	text = moneyRE.ReplaceAllStringFunc(text, func(m string) string {
		switch {
		case strings.HasPrefix(m, "$"):
			return fmt.Sprintf("%s %s", currencyWord(language, "dollar"), ExpandNumber(m[1:], language))
		case strings.HasPrefix(m, "£"):
			return fmt.Sprintf("%s %s", currencyWord(language, "pound"), ExpandNumber(m[len("£"):], language))
		default:
			return m
		}
	})

	text = bareNumRE.ReplaceAllStringFunc(text, func(m string) string {
		return ExpandNumber(m, language)
	})

	text = possessiveRE.ReplaceAllString(text, "$1'S")
	text = xPossessiveRE.ReplaceAllString(text, "X's")

	text = initialsRE.ReplaceAllStringFunc(text, func(m string) string {
		return strings.ReplaceAll(m, ".", "-")
	})
	text = replaceOverlapping(text, acronymRE, "$1-$2")

	return strings.TrimSpace(text)
}

// replaceQuotes turns curly single quotes into straight quotes, preserving
// apostrophes: a quote between letters (or starting a contraction suffix) is
// an apostrophe, everything else is a double quote.
func replaceQuotes(text string) string {
	runes := []rune(text)
	var b strings.Builder
	for i, r := range runes {
		if r != '‘' && r != '’' {
			b.WriteRune(r)
			continue
		}
		prevLetter := i > 0 && unicode.IsLetter(runes[i-1])
		nextLetter := i+1 < len(runes) && unicode.IsLetter(runes[i+1])
		if prevLetter && nextLetter {
			b.WriteRune('\'')
		} else {
			b.WriteRune('"')
		}
	}
	return b.String()
}

// replaceEtc strips the period from "etc." unless a capitalized word follows,
// which marks a sentence boundary.
func replaceEtc(text string) string {
	idxs := etcRE.FindAllStringIndex(text, -1)
	if idxs == nil {
		return text
	}
	var b strings.Builder
	last := 0
	for _, loc := range idxs {
		b.WriteString(text[last:loc[0]])
		rest := text[loc[1]:]
		if len(rest) >= 2 && rest[0] == ' ' && rest[1] >= 'A' && rest[1] <= 'Z' {
			b.WriteString(text[loc[0]:loc[1]])
		} else {
			b.WriteString("etc")
		}
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// replaceOverlapping reapplies a capture-group rewrite until it stops
// matching, which emulates zero-width lookarounds for adjacent hits like
// "1,2,3" or "U.S.A".
func replaceOverlapping(text string, re *regexp.Regexp, repl string) string {
	for {
		next := re.ReplaceAllString(text, repl)
		if next == text {
			return text
		}
		text = next
	}
}

func toWord(language string) string {
	switch {
	case strings.HasPrefix(language, "es"):
		return "a"
	case strings.HasPrefix(language, "fr"):
		return "à"
	case strings.HasPrefix(language, "de"):
		return "bis"
	default:
		return "to"
	}
}

func currencyWord(language, unit string) string {
	switch {
	case strings.HasPrefix(language, "es"):
		if unit == "dollar" {
			return "dólar"
		}
		return "libra"
	case strings.HasPrefix(language, "fr"):
		if unit == "dollar" {
			return "dollar"
		}
		return "livre"
	case strings.HasPrefix(language, "de"):
		if unit == "dollar" {
			return "Dollar"
		}
		return "Pfund"
	default:
		return unit
	}
}
