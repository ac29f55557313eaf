package phoneme

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrPhonemize wraps any failure to turn text into phonemes.
var ErrPhonemize = errors.New("phonemize failed")

// Phonemizer converts normalized text in a given espeak language code to an
// IPA phoneme string ready for Tokenize.
type Phonemizer interface {
	Phonemize(ctx context.Context, text, lang string) (string, error)
}

// postProcess applies the model-specific phoneme rewrites shared by every
// backend, then filters the result down to the token vocabulary.
func postProcess(ps, lang string) string {
	// The model was trained with its own name pronounced a particular way.
	ps = strings.ReplaceAll(ps, "kəkˈoːɹoʊ", "kˈoʊkəɹoʊ")
	ps = strings.ReplaceAll(ps, "kəkˈɔːɹəʊ", "kˈəʊkəɹəʊ")

	ps = strings.ReplaceAll(ps, "ʲ", "j")
	ps = strings.ReplaceAll(ps, "r", "ɹ")
	ps = strings.ReplaceAll(ps, "x", "k")
	ps = strings.ReplaceAll(ps, "ɬ", "l")

	ps = spaceBeforeHundred(ps)
	ps = attachFinalZ(ps)
	if lang == "en-us" {
		ps = fixNinety(ps)
	}

	var b strings.Builder
	for _, r := range ps {
		if InVocab(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// spaceBeforeHundred inserts a space between a number word and a directly
// appended "hundred" ("wˈʌnhˈʌndɹɪd" reads badly without the gap).
func spaceBeforeHundred(ps string) string {
	const hundred = "hˈʌndɹɪd"
	var b strings.Builder
	rest := ps
	for {
		i := strings.Index(rest, hundred)
		if i < 0 {
			b.WriteString(rest)
			return b.String()
		}
		prefix := rest[:i]
		b.WriteString(prefix)
		if prev, ok := lastRune(prefix); ok && isHundredJoiner(prev) {
			b.WriteByte(' ')
		}
		b.WriteString(hundred)
		rest = rest[i+len(hundred):]
	}
}

func isHundredJoiner(r rune) bool {
	return (r >= 'a' && r <= 'z') || r == 'ɹ' || r == 'ː'
}

func lastRune(s string) (rune, bool) {
	var last rune
	ok := false
	for _, r := range s {
		last = r
		ok = true
	}
	return last, ok
}

// attachFinalZ glues a detached plural/possessive "z" back onto the word it
// belongs to when it sits before punctuation or end of string.
func attachFinalZ(ps string) string {
	var b strings.Builder
	runes := []rune(ps)
	for i := 0; i < len(runes); i++ {
		if runes[i] == ' ' && i+1 < len(runes) && runes[i+1] == 'z' {
			next := i + 2
			if next >= len(runes) || isBoundaryAfterZ(runes[next]) {
				b.WriteRune('z')
				i++
				continue
			}
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

func isBoundaryAfterZ(r rune) bool {
	return strings.ContainsRune(";:,.!?¡¿—…\"«»“” ", r)
}

// fixNinety rewrites "nˈaɪnti" to "nˈaɪndi" (flapped t) unless the vowel is
// long, which marks a different word.
func fixNinety(ps string) string {
	const ninety = "nˈaɪnti"
	var b strings.Builder
	rest := ps
	for {
		i := strings.Index(rest, ninety)
		if i < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:i])
		after := rest[i+len(ninety):]
		if strings.HasPrefix(after, "ː") {
			b.WriteString(ninety)
		} else {
			b.WriteString("nˈaɪndi")
		}
		rest = after
	}
}

// ResolveLanguage validates an espeak language code, falling back to en-us
// for anything the map does not carry.
func ResolveLanguage(lang string) string {
	if SupportedLanguage(lang) {
		return lang
	}
	if mapped, ok := languageMap[strings.ToLower(lang)]; ok {
		return mapped
	}
	return FallbackLanguage
}

func wrapPhonemize(err error) error {
	return fmt.Errorf("%w: %v", ErrPhonemize, err)
}
