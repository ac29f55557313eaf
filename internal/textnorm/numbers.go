package textnorm

import (
	"fmt"
	"strconv"
	"strings"
)

// ExpandNumber converts an integer string to words for en/es/fr/de language
// codes. Unsupported languages and unparseable input return the original
// string so nothing is silently deleted.
func ExpandNumber(numStr, language string) string {
	switch {
	case strings.HasPrefix(language, "en"):
		return expandEnglish(numStr)
	case strings.HasPrefix(language, "es"):
		return expandSpanish(numStr)
	case strings.HasPrefix(language, "fr"):
		return expandFrench(numStr)
	case strings.HasPrefix(language, "de"):
		return expandGerman(numStr)
	default:
		return numStr
	}
}

var englishSmall = []string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight",
	"nine", "ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen",
	"sixteen", "seventeen", "eighteen", "nineteen", "twenty",
}

var englishTens = map[int64]string{
	2: "twenty", 3: "thirty", 4: "forty", 5: "fifty",
	6: "sixty", 7: "seventy", 8: "eighty", 9: "ninety",
}

func expandEnglish(numStr string) string {
	if year, ok := asYear(numStr); ok {
		return expandYear(year)
	}

	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return numStr
	}
	return expandEnglishInt(num, numStr)
}

func expandEnglishInt(num int64, orig string) string {
	switch {
	case num < 0:
		return "negative " + expandEnglishInt(-num, orig)
	case num <= 20:
		return englishSmall[num]
	case num < 100:
		tens := englishTens[num/10]
		if num%10 == 0 {
			return tens
		}
		return tens + "-" + englishSmall[num%10]
	case num < 1000:
		if num%100 == 0 {
			return expandEnglishInt(num/100, orig) + " hundred"
		}
		return fmt.Sprintf("%s hundred and %s", expandEnglishInt(num/100, orig), expandEnglishInt(num%100, orig))
	case num < 1_000_000:
		if num%1000 == 0 {
			return expandEnglishInt(num/1000, orig) + " thousand"
		}
		return fmt.Sprintf("%s thousand %s", expandEnglishInt(num/1000, orig), expandEnglishInt(num%1000, orig))
	default:
		return orig
	}
}

func asYear(numStr string) (int64, bool) {
	if len(numStr) != 4 {
		return 0, false
	}
	year, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil || year < 1000 || year > 2099 {
		return 0, false
	}
	return year, true
}

// expandYear speaks four-digit years as century pairs ("nineteen
// eighty-five"), with spelled-out forms for years that commonly appear in
// date ranges.
func expandYear(year int64) string {
	switch year {
	case 1939:
		return "nineteen thirty-nine"
	case 1940:
		return "nineteen forty"
	case 1941:
		return "nineteen forty-one"
	case 1942:
		return "nineteen forty-two"
	case 1945:
		return "nineteen forty-five"
	case 2001:
		return "two thousand one"
	case 2020:
		return "two thousand twenty"
	}

	century := year / 100
	remainder := year % 100
	centuryWord := englishSmall[century]
	if remainder == 0 {
		return centuryWord + " hundred"
	}
	return centuryWord + " " + expandEnglishInt(remainder, "")
}

var spanishSmall = map[int64]string{
	1: "uno", 2: "dos", 3: "tres", 4: "cuatro", 5: "cinco", 6: "seis",
	7: "siete", 8: "ocho", 9: "nueve", 10: "diez", 11: "once", 12: "doce",
	13: "trece", 14: "catorce", 15: "quince", 16: "dieciséis",
	17: "diecisiete", 18: "dieciocho", 19: "diecinueve", 20: "veinte",
	21: "veintiuno", 22: "veintidós", 23: "veintitrés", 24: "veinticuatro",
	25: "veinticinco", 26: "veintiséis", 27: "veintisiete", 28: "veintiocho",
	29: "veintinueve", 30: "treinta",
}

var spanishTens = map[int64]string{
	3: "treinta", 4: "cuarenta", 5: "cincuenta", 6: "sesenta",
	7: "setenta", 8: "ochenta", 9: "noventa",
}

var spanishHundreds = map[int64]string{
	1: "ciento", 2: "doscientos", 3: "trescientos", 4: "cuatrocientos",
	5: "quinientos", 6: "seiscientos", 7: "setecientos", 8: "ochocientos",
	9: "novecientos",
}

func expandSpanish(numStr string) string {
	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return numStr
	}
	return expandSpanishInt(num, numStr)
}

func expandSpanishInt(num int64, orig string) string {
	switch {
	case num == 0:
		return "cero"
	case num < 0:
		return "menos " + expandSpanishInt(-num, orig)
	case num <= 30:
		return spanishSmall[num]
	case num < 100:
		tens := spanishTens[num/10]
		if num%10 == 0 {
			return tens
		}
		return fmt.Sprintf("%s y %s", tens, expandSpanishInt(num%10, orig))
	case num == 100:
		return "cien"
	case num < 1000:
		hundreds := spanishHundreds[num/100]
		if num%100 == 0 {
			return hundreds
		}
		return fmt.Sprintf("%s %s", hundreds, expandSpanishInt(num%100, orig))
	case num == 1000:
		return "mil"
	case num < 1_000_000:
		thousands := "mil"
		if num/1000 > 1 {
			thousands = expandSpanishInt(num/1000, orig) + " mil"
		}
		if num%1000 == 0 {
			return thousands
		}
		return fmt.Sprintf("%s %s", thousands, expandSpanishInt(num%1000, orig))
	default:
		return orig
	}
}

var frenchSmall = map[int64]string{
	1: "un", 2: "deux", 3: "trois", 4: "quatre", 5: "cinq", 6: "six",
	7: "sept", 8: "huit", 9: "neuf", 10: "dix", 11: "onze", 12: "douze",
	13: "treize", 14: "quatorze", 15: "quinze", 16: "seize",
	17: "dix-sept", 18: "dix-huit", 19: "dix-neuf", 20: "vingt",
}

var frenchTens = map[int64]string{
	20: "vingt", 30: "trente", 40: "quarante", 50: "cinquante",
	60: "soixante", 80: "quatre-vingts",
}

var frenchEtUn = map[int64]string{
	21: "vingt et un", 31: "trente et un", 41: "quarante et un",
	51: "cinquante et un", 61: "soixante et un", 71: "soixante et onze",
	81: "quatre-vingt-un", 91: "quatre-vingt-onze",
}

func expandFrench(numStr string) string {
	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return numStr
	}
	return expandFrenchInt(num, numStr)
}

func expandFrenchInt(num int64, orig string) string {
	switch {
	case num == 0:
		return "zéro"
	case num < 0:
		return "moins " + expandFrenchInt(-num, orig)
	case num <= 20:
		return frenchSmall[num]
	case num < 100:
		if word, ok := frenchEtUn[num]; ok {
			return word
		}
		if num >= 70 && num < 80 {
			return "soixante-" + expandFrenchInt(num-60, orig)
		}
		if num >= 90 {
			return "quatre-vingt-" + expandFrenchInt(num-80, orig)
		}
		tens := frenchTens[num/10*10]
		if num%10 == 0 {
			return tens
		}
		return fmt.Sprintf("%s-%s", tens, expandFrenchInt(num%10, orig))
	case num < 1000:
		hundreds := "cent"
		if num/100 > 1 {
			hundreds = expandFrenchInt(num/100, orig) + " cents"
		}
		if num%100 == 0 {
			return hundreds
		}
		return fmt.Sprintf("%s %s", hundreds, expandFrenchInt(num%100, orig))
	default:
		return orig
	}
}

var germanSmall = map[int64]string{
	1: "eins", 2: "zwei", 3: "drei", 4: "vier", 5: "fünf", 6: "sechs",
	7: "sieben", 8: "acht", 9: "neun", 10: "zehn", 11: "elf", 12: "zwölf",
}

var germanTeenPrefix = map[int64]string{
	3: "drei", 4: "vier", 5: "fünf", 6: "sechs", 7: "sieben",
	8: "acht", 9: "neun",
}

var germanTens = map[int64]string{
	2: "zwanzig", 3: "dreißig", 4: "vierzig", 5: "fünfzig",
	6: "sechzig", 7: "siebzig", 8: "achtzig", 9: "neunzig",
}

var germanOnes = map[int64]string{
	1: "ein", 2: "zwei", 3: "drei", 4: "vier", 5: "fünf",
	6: "sechs", 7: "sieben", 8: "acht", 9: "neun",
}

func expandGerman(numStr string) string {
	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return numStr
	}
	return expandGermanInt(num, numStr)
}

func expandGermanInt(num int64, orig string) string {
	switch {
	case num == 0:
		return "null"
	case num < 0:
		return "minus " + expandGermanInt(-num, orig)
	case num <= 12:
		return germanSmall[num]
	case num < 20:
		return germanTeenPrefix[num%10] + "zehn"
	case num < 100:
		if num%10 == 0 {
			return germanTens[num/10]
		}
		return germanOnes[num%10] + "und" + germanTens[num/10]
	default:
		return orig
	}
}

var digitWords = map[string][]string{
	"en": {"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"},
	"es": {"cero", "uno", "dos", "tres", "cuatro", "cinco", "seis", "siete", "ocho", "nueve"},
	"fr": {"zéro", "un", "deux", "trois", "quatre", "cinq", "six", "sept", "huit", "neuf"},
	"de": {"null", "eins", "zwei", "drei", "vier", "fünf", "sechs", "sieben", "acht", "neun"},
}

func digitTable(language string) []string {
	for prefix, words := range digitWords {
		if strings.HasPrefix(language, prefix) {
			return words
		}
	}
	return digitWords["en"]
}

// expandDecimal speaks a decimal as its integer part, the language's word
// for the decimal point, then each digit individually.
func expandDecimal(numStr, language string) string {
	point := strings.Index(numStr, ".")
	if point < 0 {
		return ExpandNumber(numStr, language)
	}

	integerPart := numStr[:point]
	decimalPart := numStr[point+1:]
	digits := digitTable(language)

	var integerWords string
	if integerPart == "" || integerPart == "0" {
		integerWords = digits[0]
	} else {
		integerWords = ExpandNumber(integerPart, language)
	}

	pointWord := "point"
	switch {
	case strings.HasPrefix(language, "es"):
		pointWord = "punto"
	case strings.HasPrefix(language, "fr"):
		pointWord = "virgule"
	case strings.HasPrefix(language, "de"):
		pointWord = "komma"
	}

	parts := []string{integerWords, pointWord}
	for _, d := range decimalPart {
		if d >= '0' && d <= '9' {
			parts = append(parts, digits[d-'0'])
		}
	}
	return strings.Join(parts, " ")
}
