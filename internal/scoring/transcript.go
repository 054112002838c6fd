// Package scoring compares a transcript or extracted text against a reference.
package scoring

import (
	"strings"
	"unicode"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"
)

// Score holds error rates in [0, n] and a similarity in [0, 1].
type Score struct {
	WER             float64 `json:"wer"`
	CER             float64 `json:"cer"`
	Similarity      float64 `json:"similarity"`
	ReferenceWords  int     `json:"reference_words"`
	HypothesisWords int     `json:"hypothesis_words"`
}

// Compare scores hypothesis against reference after normalization
// (lower case, punctuation removed, whitespace collapsed).
func Compare(reference, hypothesis string) Score {
	ref := Normalize(reference)
	hyp := Normalize(hypothesis)
	refWords := strings.Fields(ref)
	hypWords := strings.Fields(hyp)

	s := Score{
		ReferenceWords:  len(refWords),
		HypothesisWords: len(hypWords),
	}

	switch {
	case len(refWords) == 0 && len(hypWords) == 0:
		s.Similarity = 1
		return s
	case len(refWords) == 0:
		s.WER = float64(len(hypWords))
		s.CER = float64(len([]rune(hyp)))
		return s
	}

	s.WER, _ = wer.WER(refWords, hypWords)

	dist := levenshtein.Distance(ref, hyp)
	refLen := len([]rune(ref))
	s.CER = float64(dist) / float64(refLen)

	longest := refLen
	if n := len([]rune(hyp)); n > longest {
		longest = n
	}
	s.Similarity = 1 - float64(dist)/float64(longest)
	return s
}

// Normalize lower-cases text, drops punctuation and collapses whitespace.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case r == '\'':
			// keep contractions intact
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
