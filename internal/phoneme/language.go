package phoneme

import (
	"sort"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
)

// languageMap translates ISO 639 codes to the espeak-ng language codes the
// phonemizer understands.
var languageMap = map[string]string{
	"en": "en-us", "eng": "en-us", "en-us": "en-us", "en-gb": "en-gb",
	"en-uk": "en-gb", "en-au": "en-gb", "en-ca": "en-us", "en-ie": "en-gb",
	"en-in": "en-gb", "en-nz": "en-gb", "en-za": "en-gb",

	"zh": "zh", "zho": "zh", "chi": "zh", "zh-cn": "zh", "zh-tw": "zh-tw",
	"zh-hk": "zh-yue", "yue": "zh-yue", "wuu": "zh", "cmn": "zh",

	"ja": "ja", "jpn": "ja",
	"ko": "ko", "kor": "ko",

	"de": "de", "deu": "de", "ger": "de", "de-at": "de", "de-ch": "de",
	"fr": "fr-fr", "fra": "fr-fr", "fre": "fr-fr", "fr-fr": "fr-fr",
	"fr-ca": "fr-ca", "fr-be": "fr-fr", "fr-ch": "fr-fr",
	"it": "it", "ita": "it",
	"es": "es", "spa": "es", "es-es": "es", "es-mx": "es-la", "es-ar": "es-la",
	"es-co": "es-la", "es-cl": "es-la", "es-la": "es-la",
	"pt": "pt-pt", "por": "pt-pt", "pt-pt": "pt-pt", "pt-br": "pt-br",
	"ru": "ru", "rus": "ru",
	"pl": "pl", "pol": "pl",
	"nl": "nl", "nld": "nl", "dut": "nl",
	"sv": "sv", "swe": "sv",
	"tr": "tr", "tur": "tr",
	"el": "el", "ell": "el", "gre": "el",
	"cs": "cs", "ces": "cs", "cze": "cs",
	"hu": "hu", "hun": "hu",
	"fi": "fi", "fin": "fi",
	"ro": "ro", "ron": "ro", "rum": "ro",
	"da": "da", "dan": "da",

	"hi": "hi", "hin": "hi",
	"bn": "bn", "ben": "bn",
	"vi": "vi", "vie": "vi",
	"th": "th", "tha": "th",

	"ar": "ar", "ara": "ar",
	"fa": "fa", "fas": "fa", "per": "fa",
	"he": "he", "heb": "he",
}

// FallbackLanguage is used whenever detection cannot commit to an answer.
const FallbackLanguage = "en-us"

// DetectLanguage guesses the espeak language code for the text. It is total:
// ok=false only means the caller should use its configured fallback; the
// returned code is always usable. Short texts, symbol-heavy texts, and
// low-confidence detections all collapse to the fallback since a wrong voice
// is worse than a default one.
func DetectLanguage(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 10 {
		return FallbackLanguage, false
	}

	alphas := 0
	for _, r := range trimmed {
		if unicode.IsLetter(r) {
			alphas++
		}
	}
	if alphas < len(trimmed)/3 {
		return FallbackLanguage, false
	}

	info := whatlanggo.Detect(trimmed)
	code := whatlanggo.LangToStringShort(info.Lang)
	if code == "" {
		code = whatlanggo.LangToString(info.Lang)
	}
	if code == "" {
		return FallbackLanguage, false
	}

	if info.Confidence < minConfidence(code) {
		return FallbackLanguage, false
	}

	if espeak, ok := languageMap[code]; ok {
		return espeak, true
	}
	return FallbackLanguage, false
}

// minConfidence sets per-script thresholds: CJK scripts are distinctive,
// Latin-script languages are easy to confuse with each other, and unique
// alphabets sit in between.
func minConfidence(code string) float64 {
	switch code {
	case "zh", "ja", "ko":
		return 0.3
	case "en", "de", "fr", "es", "it", "pt", "nl":
		return 0.5
	case "ru", "ar", "he", "hi", "bn", "th":
		return 0.4
	default:
		return 0.5
	}
}

// SupportedLanguage reports whether code is a known espeak target.
func SupportedLanguage(code string) bool {
	for _, v := range languageMap {
		if v == code {
			return true
		}
	}
	return false
}

// SupportedLanguages lists the espeak language codes, sorted and deduplicated.
func SupportedLanguages() []string {
	seen := make(map[string]struct{})
	var langs []string
	for _, v := range languageMap {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		langs = append(langs, v)
	}
	sort.Strings(langs)
	return langs
}

// PrimaryLanguages maps the well-supported language codes to display names.
func PrimaryLanguages() map[string]string {
	return map[string]string{
		"en-us": "English (US)",
		"en-gb": "English (UK)",
		"zh":    "Chinese (Mandarin)",
		"ja":    "Japanese",
		"de":    "German",
		"fr-fr": "French",
		"es":    "Spanish",
		"pt-pt": "Portuguese",
		"ru":    "Russian",
		"ko":    "Korean",
	}
}
