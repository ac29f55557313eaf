package phoneme

// The token table matches the kokoro model's symbol inventory: a pad symbol,
// punctuation (space included), ASCII letters, then the IPA set. IDs are
// assigned by position, so the order below is load-bearing.
const (
	padSymbol   = "$"
	punctuation = ";:,.!?¡¿—…\"«»“” "
	letters     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	lettersIPA  = "ɑɐɒæɓʙβɔɕçɗɖðʤəɘɚɛɜɝɞɟʄɡɠɢʛɦɧħɥʜɨɪʝɭɬɫɮʟɱɯɰŋɳɲɴøɵɸθœɶʘɹɺɾɻʀʁɽʂʃʈʧʉʊʋⱱʌɣɤʍχʎʏʑʐʒʔʡʕʢǀǁǂǃˈˌːˑʼʴʰʱʲʷˠˤ˞↓↑→↗↘'̩'ᵻ"
)

var vocab = buildVocab()

func buildVocab() map[rune]int64 {
	m := make(map[rune]int64)
	id := int64(0)
	for _, set := range []string{padSymbol, punctuation, letters, lettersIPA} {
		for _, r := range set {
			if _, ok := m[r]; ok {
				continue
			}
			m[r] = id
			id++
		}
	}
	return m
}

// Tokenize maps a phoneme string to model token IDs. Runes outside the
// vocabulary are dropped rather than erroring; the phonemizer has already
// filtered its output, so drops here only happen on raw caller input.
func Tokenize(phonemes string) []int64 {
	tokens := make([]int64, 0, len(phonemes))
	for _, r := range phonemes {
		if id, ok := vocab[r]; ok {
			tokens = append(tokens, id)
		}
	}
	return tokens
}

// InVocab reports whether the rune has a token ID.
func InVocab(r rune) bool {
	_, ok := vocab[r]
	return ok
}

// VocabSize returns the number of symbols in the token table.
func VocabSize() int {
	return len(vocab)
}
