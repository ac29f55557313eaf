package textnorm

import (
	"strings"
	"testing"
)

func TestNormalizeTitles(t *testing.T) {
	got := Normalize("Dr. Smith met Mr. Jones and Mrs. Lee.", "en-us")
	for _, want := range []string{"Doctor Smith", "Mister Jones", "Mrs Lee"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
}

func TestNormalizeEtc(t *testing.T) {
	if got := Normalize("apples, pears, etc. are fruit", "en-us"); !strings.Contains(got, "etc are") {
		t.Fatalf("expected period dropped, got %q", got)
	}
	if got := Normalize("apples, etc. Then more.", "en-us"); !strings.Contains(got, "etc. Then") {
		t.Fatalf("expected sentence boundary kept, got %q", got)
	}
}

func TestNormalizeNumbers(t *testing.T) {
	cases := []struct {
		in, lang, want string
	}{
		{"I have 3 cats", "en-us", "I have three cats"},
		{"in 1985 it rained", "en-us", "in nineteen eighty-five it rained"},
		{"pi is 3.14", "en-us", "pi is three point one four"},
		{"pages 1-3", "en-us", "pages one to three"},
		{"tengo 35 gatos", "es", "tengo treinta y cinco gatos"},
		{"il a 71 ans", "fr-fr", "il a soixante et onze ans"},
		{"es sind 42 Grad", "de", "es sind zweiundvierzig Grad"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in, tc.lang); got != tc.want {
			t.Fatalf("Normalize(%q, %q) = %q, want %q", tc.in, tc.lang, got, tc.want)
		}
	}
}

func TestNormalizeMoney(t *testing.T) {
	got := Normalize("it costs $20 today", "en-us")
	if got != "it costs dollar twenty today" {
		t.Fatalf("unexpected money expansion: %q", got)
	}
}

func TestNormalizeCommaNumbers(t *testing.T) {
	got := Normalize("1,000 birds", "en-us")
	if got != "one thousand birds" {
		t.Fatalf("unexpected comma number expansion: %q", got)
	}
}

func TestNormalizeCJKPunctuation(t *testing.T) {
	got := Normalize("你好。很好！", "zh")
	if !strings.Contains(got, ".") || !strings.Contains(got, "!") {
		t.Fatalf("expected ASCII punctuation, got %q", got)
	}
	if strings.ContainsAny(got, "。！") {
		t.Fatalf("expected CJK punctuation replaced, got %q", got)
	}
}

func TestNormalizeQuotes(t *testing.T) {
	got := Normalize("it’s ‘fine’ he said", "en-us")
	if !strings.Contains(got, "it's") {
		t.Fatalf("expected apostrophe preserved, got %q", got)
	}
	if !strings.Contains(got, `"fine"`) {
		t.Fatalf("expected curly quotes straightened, got %q", got)
	}
}

func TestNormalizeAcronyms(t *testing.T) {
	got := Normalize("the U.S.A is big", "en-us")
	if !strings.Contains(got, "U-S-A") {
		t.Fatalf("expected acronym dashes, got %q", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once := Normalize("Dr. Smith paid $20 in 1985.", "en-us")
	twice := Normalize(once, "en-us")
	if once != twice {
		t.Fatalf("normalization not idempotent: %q vs %q", once, twice)
	}
}

func TestExpandNumberUnsupportedLanguage(t *testing.T) {
	if got := ExpandNumber("42", "ja"); got != "42" {
		t.Fatalf("expected passthrough for unsupported language, got %q", got)
	}
}

func TestExpandDecimalZeroInteger(t *testing.T) {
	if got := expandDecimal(".5", "en-us"); got != "zero point five" {
		t.Fatalf("unexpected decimal expansion: %q", got)
	}
}
