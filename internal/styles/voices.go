package styles

import "strings"

// defaultVoices maps language codes to styles in the standard voice archive.
var defaultVoices = map[string]string{
	"en-us": "af_sky",
	"en-gb": "bf_emma",
	"en-au": "bf_emma",
	"en-ca": "af_sky",
	"en-nz": "bf_emma",
	"en-ie": "bf_emma",
	"en-za": "bf_emma",
	"en-in": "bf_emma",

	"en-us-male": "am_liam",
	"en-gb-male": "bm_george",

	"zh":     "zf_xiaoxiao",
	"zh-cn":  "zf_xiaoxiao",
	"zh-tw":  "zf_xiaoxiao",
	"zh-yue": "zf_xiaoxiao",

	"ja":  "jf_alpha",
	"jpn": "jf_alpha",
	"ko":  "jf_alpha",
	"kor": "jf_alpha",

	"de":    "bf_emma",
	"fr-fr": "af_sarah.4+af_nicole.6",
	"es":    "ef_dora",
	"es-es": "ef_dora",
	"es-mx": "ef_dora",
	"es-ar": "ef_dora",
	"es-la": "ef_dora",
	"it":    "af_sarah.4+af_nicole.6",
	"pt-pt": "pf_dora",
	"pt-br": "pf_dora",
	"ru":    "af_sarah.4+af_nicole.6",

	"es-male":    "em_alex",
	"es-es-male": "em_alex",
	"pt-male":    "pm_alex",
	"pt-pt-male": "pm_alex",
	"pt-br-male": "pm_alex",
	"nl":         "am_liam",
	"sv":         "am_liam",
	"da":         "am_liam",
	"fi":         "am_liam",
	"no":         "am_liam",

	"default":      "af_sky",
	"default-male": "am_liam",
}

// customVoices maps language codes to styles in the full-locale custom
// voice archive.
var customVoices = map[string]string{
	"en-us": "en_eey",
	"en-gb": "en_bft",
	"en-au": "en_bft",
	"en-ca": "en_eey",
	"en-nz": "en_bft",
	"en-ie": "en_bft",
	"en-za": "en_bft",
	"en-in": "en_bft",

	"en-us-male": "en_erb",
	"en-gb-male": "en_erb",

	"zh":     "zh_awb",
	"zh-cn":  "zh_awb",
	"zh-tw":  "zh_awb",
	"zh-yue": "zh_awb",

	"ja":  "ja_fay",
	"jpn": "ja_fay",
	"ko":  "ko_fay",
	"kor": "ko_fay",

	"de":  "de_hft",
	"deu": "de_hft",

	"fr-fr": "fr_cft",
	"fr":    "fr_cft",
	"fra":   "fr_cft",
	"fr-ca": "fr_cft",

	"es":    "es_faz",
	"spa":   "es_faz",
	"es-es": "es_faz",
	"es-la": "es_faz",

	"pt-pt": "pt_eey",
	"pt":    "pt_eey",
	"pt-br": "pt_eey",

	"ru":  "ru_erb",
	"rus": "ru_erb",

	"it": "fr_cft",
	"pl": "de_hft",
	"nl": "de_hft",
	"sv": "de_hft",
	"cs": "de_hft",
	"fi": "de_hft",

	"vi": "ja_fay",
	"th": "ja_fay",
	"hi": "en_bft",
	"bn": "en_bft",

	"ar": "en_eey",
	"he": "en_eey",
	"fa": "en_eey",

	"default": "en_eey",
}

// VoiceForLanguage returns the table voice for a language code. Exact match
// first, then the base language (with per-family canonical variants), then
// the table's default entry.
func VoiceForLanguage(language string, custom bool) string {
	table := defaultVoices
	if custom {
		table = customVoices
	}

	if voice, ok := table[language]; ok {
		return voice
	}

	if base, _, found := strings.Cut(language, "-"); found && base != "" {
		if voice, ok := table[base]; ok {
			return voice
		}
		canonical := map[string]string{
			"en": "en-us",
			"zh": "zh-cn",
			"fr": "fr-fr",
			"es": "es-es",
			"pt": "pt-pt",
		}
		if variant, ok := canonical[base]; ok {
			if voice, ok := table[variant]; ok {
				return voice
			}
		}
	}

	if voice, ok := table["default"]; ok {
		return voice
	}
	return "af_sarah.4+af_nicole.6"
}
