// Package textnorm resolves adversarial text obfuscation before any rule or
// content matching happens. Both the rule compiler and the policy evaluator
// run their inputs through Normalize so that "саs1no" and "casino" always look
// the same to downstream matchers.
//
// Normalize is a pure function: no network calls, no shared state, and it
// never fails. Obfuscation it cannot resolve passes through untouched.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MutationKind identifies which pipeline stage produced a mutation.
type MutationKind string

const (
	MutationNFKC      MutationKind = "nfkc"
	MutationHomoglyph MutationKind = "homoglyph"
	MutationLeetspeak MutationKind = "leetspeak"
	MutationEmoji     MutationKind = "emoji"
	MutationZeroWidth MutationKind = "zero_width"
	MutationFragment  MutationKind = "fragment"
	MutationSlang     MutationKind = "slang"
)

// Mutation records a single resolved obfuscation. Span is the rune offset
// range [start, end) of Original within the text the stage received.
type Mutation struct {
	Kind     MutationKind `json:"kind"`
	Original string       `json:"original"`
	Resolved string       `json:"resolved"`
	Span     [2]int       `json:"span"`
}

// NormalizedText is the immutable result of a Normalize call.
// ObfuscationScore is the fraction of input characters touched by any
// mutation; callers treat deliberate obfuscation of sensitive terms as a
// signal in its own right, not something to discard.
type NormalizedText struct {
	Text             string     `json:"text"`
	Mutations        []Mutation `json:"mutations"`
	ObfuscationScore float64    `json:"obfuscation_score"`
}

// Touched reports whether any stage mutated the input.
func (n NormalizedText) Touched() bool { return len(n.Mutations) > 0 }

// stage is a single pipeline step. Each stage returns the transformed text
// plus zero or more mutation records.
type stage func(string) (string, []Mutation)

// pipeline is the ordered list of normalization stages. Order matters:
// character-level resolution runs before word-level reassembly so that
// fragment joining sees clean letters.
var pipeline = []stage{
	applyNFKC,
	applyHomoglyphs,
	applyLeetspeak,
	applyEmoji,
	stripZeroWidth,
	reassembleFragments,
	applySlang,
}

// Normalize runs the full obfuscation-resolution pipeline over raw input.
// Deterministic: identical input always yields an identical NormalizedText.
func Normalize(raw string) NormalizedText {
	text := raw
	var mutations []Mutation

	for _, s := range pipeline {
		out, muts := s(text)
		mutations = append(mutations, muts...)
		text = out
	}

	return NormalizedText{
		Text:             text,
		Mutations:        mutations,
		ObfuscationScore: obfuscationScore(raw, mutations),
	}
}

// obfuscationScore is the fraction of input runes covered by mutation spans,
// clamped to [0, 1].
func obfuscationScore(raw string, mutations []Mutation) float64 {
	total := utf8.RuneCountInString(raw)
	if total == 0 {
		return 0
	}
	touched := 0
	for _, m := range mutations {
		touched += utf8.RuneCountInString(m.Original)
	}
	score := float64(touched) / float64(total)
	if score > 1 {
		score = 1
	}
	return score
}

// applyNFKC performs Unicode NFKC compatibility normalization. Per-rune
// mutations are recorded first (fullwidth letters, ligatures), then the whole
// string is folded once more to collapse combining sequences.
func applyNFKC(text string) (string, []Mutation) {
	var b strings.Builder
	b.Grow(len(text))
	var muts []Mutation

	pos := 0
	for _, r := range text {
		folded := norm.NFKC.String(string(r))
		if folded != string(r) {
			muts = append(muts, Mutation{
				Kind:     MutationNFKC,
				Original: string(r),
				Resolved: folded,
				Span:     [2]int{pos, pos + 1},
			})
		}
		b.WriteString(folded)
		pos++
	}

	return norm.NFKC.String(b.String()), muts
}

func applyHomoglyphs(text string) (string, []Mutation) {
	var b strings.Builder
	b.Grow(len(text))
	var muts []Mutation

	pos := 0
	for _, r := range text {
		if mapped, ok := homoglyphTable[r]; ok {
			muts = append(muts, Mutation{
				Kind:     MutationHomoglyph,
				Original: string(r),
				Resolved: string(mapped),
				Span:     [2]int{pos, pos + 1},
			})
			b.WriteRune(mapped)
		} else {
			b.WriteRune(r)
		}
		pos++
	}

	return b.String(), muts
}

var reWord = regexp.MustCompile(`\S+`)

// applyLeetspeak decodes leetspeak word by word. A decoded word is accepted
// only when decoding reveals a sensitive term that was not visible before;
// this keeps "Turn 1" from becoming "Turn I".
func applyLeetspeak(text string) (string, []Mutation) {
	var muts []Mutation

	out := replaceWords(text, func(word string, span [2]int) string {
		if !hasLeetMix(word) {
			return word
		}
		decoded := decodeLeetWord(word)
		if decoded == word || !sensitiveTerms[strings.ToLower(decoded)] {
			return word
		}
		muts = append(muts, Mutation{
			Kind:     MutationLeetspeak,
			Original: word,
			Resolved: decoded,
			Span:     span,
		})
		return decoded
	})

	return out, muts
}

// hasLeetMix reports whether a word mixes letters with leet substitution
// characters. Pure numbers and pure words are skipped.
func hasLeetMix(word string) bool {
	hasLetter, hasLeet := false, false
	for _, r := range word {
		if unicode.IsLetter(r) {
			hasLetter = true
		} else if _, ok := leetTable[r]; ok {
			hasLeet = true
		}
	}
	return hasLetter && hasLeet
}

func decodeLeetWord(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	for _, r := range word {
		if mapped, ok := leetTable[r]; ok {
			b.WriteRune(mapped)
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func applyEmoji(text string) (string, []Mutation) {
	var b strings.Builder
	b.Grow(len(text))
	var muts []Mutation

	pos := 0
	for _, r := range text {
		if token, ok := emojiTable[r]; ok {
			muts = append(muts, Mutation{
				Kind:     MutationEmoji,
				Original: string(r),
				Resolved: token,
				Span:     [2]int{pos, pos + 1},
			})
			// Pad with spaces so the token never glues onto a neighbor word.
			b.WriteString(" " + token + " ")
		} else {
			b.WriteRune(r)
		}
		pos++
	}

	return collapseSpaces(b.String()), muts
}

func stripZeroWidth(text string) (string, []Mutation) {
	var b strings.Builder
	b.Grow(len(text))
	var muts []Mutation

	pos := 0
	for _, r := range text {
		if zeroWidthRunes[r] {
			muts = append(muts, Mutation{
				Kind:     MutationZeroWidth,
				Original: string(r),
				Resolved: "",
				Span:     [2]int{pos, pos + 1},
			})
		} else {
			b.WriteRune(r)
		}
		pos++
	}

	return b.String(), muts
}

// reFragmented matches runs of three or more single alphanumeric characters
// separated by spaces, dots, hyphens or asterisks: "s e x", "p.o.k.e.r".
var reFragmented = regexp.MustCompile(`(?i)\b(?:[a-z0-9][ .\-*]){2,}[a-z0-9]\b`)

// reassembleFragments joins deliberately fragmented words back together.
func reassembleFragments(text string) (string, []Mutation) {
	var muts []Mutation

	out := reFragmented.ReplaceAllStringFunc(text, func(frag string) string {
		joined := joinFragment(frag)
		// Short runs like "a b c" are only rejoined when they spell a term we
		// care about; longer runs are obfuscation regardless.
		if utf8.RuneCountInString(joined) < 4 && !sensitiveTerms[strings.ToLower(joined)] {
			return frag
		}
		start := utf8.RuneCountInString(text[:strings.Index(text, frag)])
		muts = append(muts, Mutation{
			Kind:     MutationFragment,
			Original: frag,
			Resolved: joined,
			Span:     [2]int{start, start + utf8.RuneCountInString(frag)},
		})
		return joined
	})

	return out, muts
}

func joinFragment(frag string) string {
	var b strings.Builder
	for _, r := range frag {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func applySlang(text string) (string, []Mutation) {
	var muts []Mutation

	out := replaceWords(text, func(word string, span [2]int) string {
		key := strings.ToLower(strings.Trim(word, ".,!?;:\"'"))
		resolved, ok := slangTable[key]
		if !ok {
			return word
		}
		muts = append(muts, Mutation{
			Kind:     MutationSlang,
			Original: word,
			Resolved: resolved,
			Span:     span,
		})
		return resolved
	})

	return out, muts
}

// replaceWords applies fn to every whitespace-separated token, giving it the
// token's rune-offset span. fn returns the replacement (or the input word
// unchanged).
func replaceWords(text string, fn func(word string, span [2]int) string) string {
	idxs := reWord.FindAllStringIndex(text, -1)
	if len(idxs) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, idx := range idxs {
		b.WriteString(text[last:idx[0]])
		word := text[idx[0]:idx[1]]
		span := [2]int{
			utf8.RuneCountInString(text[:idx[0]]),
			utf8.RuneCountInString(text[:idx[1]]),
		}
		b.WriteString(fn(word, span))
		last = idx[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
