package phoneme

import (
	"context"
	"strings"
	"unicode"
)

// rulePhonemizer is a deterministic grapheme-to-phoneme fallback. It covers a
// small dictionary of common English words and degrades to letter-level
// mapping, which is enough to exercise the pipeline without espeak installed.
type rulePhonemizer struct{}

// NewRulePhonemizer returns the built-in dictionary/letter phonemizer.
func NewRulePhonemizer() Phonemizer {
	return rulePhonemizer{}
}

var wordPhonemes = map[string]string{
	"hello": "həˈloʊ", "world": "wɜːrld", "can": "kæn", "you": "juː",
	"add": "æd", "cheese": "tʃiːz", "to": "tuː", "my": "maɪ",
	"shopping": "ˈʃɑːpɪŋ", "list": "lɪst", "the": "ðə", "a": "ə",
	"an": "æn", "and": "ænd", "or": "ɔːr", "but": "bʌt", "for": "fɔːr",
	"with": "wɪð", "from": "frʌm", "into": "ˈɪntuː", "on": "ɑːn",
	"at": "æt", "by": "baɪ", "up": "ʌp", "out": "aʊt", "down": "daʊn",
	"over": "ˈoʊvər", "under": "ˈʌndər", "through": "θruː",
	"between": "bɪˈtwiːn", "among": "əˈmʌŋ", "above": "əˈbʌv",
	"below": "bɪˈloʊ", "inside": "ɪnˈsaɪd", "outside": "ˌaʊtˈsaɪd",
}

var letterPhonemes = map[rune]string{
	'a': "æ", 'b': "b", 'c': "k", 'd': "d", 'e': "ɛ", 'f': "f", 'g': "ɡ",
	'h': "h", 'i': "ɪ", 'j': "dʒ", 'k': "k", 'l': "l", 'm': "m", 'n': "n",
	'o': "ɑ", 'p': "p", 'q': "kw", 'r': "ɹ", 's': "s", 't': "t", 'u': "ʌ",
	'v': "v", 'w': "w", 'x': "ks", 'y': "j", 'z': "z",
}

func (rulePhonemizer) Phonemize(ctx context.Context, text, lang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", wrapPhonemize(err)
	}

	var out []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		trailing := trailingPunct(word)
		clean := strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) })
		if clean == "" {
			if trailing != "" {
				out = append(out, trailing)
			}
			continue
		}

		var ph string
		if known, ok := wordPhonemes[clean]; ok {
			ph = known
		} else {
			var b strings.Builder
			for _, r := range clean {
				if mapped, ok := letterPhonemes[r]; ok {
					b.WriteString(mapped)
				} else {
					b.WriteRune(r)
				}
			}
			ph = b.String()
		}
		out = append(out, ph+trailing)
	}

	return postProcess(strings.Join(out, " "), lang), nil
}

func trailingPunct(word string) string {
	var b strings.Builder
	runes := []rune(word)
	for i := len(runes) - 1; i >= 0; i-- {
		r := runes[i]
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			break
		}
		if InVocab(r) {
			b.WriteRune(r)
		}
	}
	// collected in reverse order
	collected := []rune(b.String())
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return string(collected)
}
