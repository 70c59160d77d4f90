package textnorm

// Static lookup tables for the normalization pipeline. Tables are intentionally
// conservative: a substitution that is not in a table passes through unresolved
// rather than guessing.

// homoglyphTable maps Unicode lookalike characters to their Latin equivalents.
// Covers the Cyrillic, Greek, IPA and fullwidth ranges most commonly used to
// slip sensitive words past keyword filters.
var homoglyphTable = map[rune]rune{
	// Cyrillic lowercase
	'а': 'a', 'е': 'e', 'і': 'i', 'о': 'o', 'р': 'p', 'с': 'c', 'у': 'y', 'х': 'x', 'ѕ': 's', 'ј': 'j',
	// Cyrillic uppercase
	'А': 'A', 'В': 'B', 'С': 'C', 'Е': 'E', 'Н': 'H', 'І': 'I', 'К': 'K', 'М': 'M', 'О': 'O', 'Р': 'P', 'Т': 'T', 'Х': 'X',
	// Greek
	'α': 'a', 'β': 'b', 'ε': 'e', 'η': 'n', 'ι': 'i', 'κ': 'k', 'ν': 'v', 'ρ': 'p', 'τ': 't', 'υ': 'u', 'χ': 'x',
	// IPA
	'ɑ': 'a', 'ɡ': 'g', 'ɩ': 'i', 'ɪ': 'i',
	// Math/letterlike symbols
	'ℓ': 'l',
}

// leetTable maps leetspeak characters to letters. Applied per word and only
// accepted when the decoded word lands in the sensitive-term lexicon, so
// "Turn 1" never becomes "Turn I".
var leetTable = map[rune]rune{
	'0': 'o', '1': 'i', '3': 'e', '4': 'a', '5': 's', '6': 'g', '7': 't', '8': 'b',
	'@': 'a', '$': 's', '!': 'i', '+': 't', '|': 'i',
}

// emojiTable maps emoji to the semantic token they stand in for. Only emoji
// with an established substitution meaning in youth slang are listed.
var emojiTable = map[rune]string{
	'🎰': "casino",
	'🎲': "gambling",
	'🃏': "poker",
	'🍆': "sex",
	'🍑': "sex",
	'💦': "sex",
	'🔞': "adult",
	'💊': "drugs",
	'💉': "drugs",
	'🌿': "weed",
	'🍁': "weed",
	'🔫': "gun",
	'🔪': "knife",
	'💣': "bomb",
	'💀': "death",
}

// zeroWidthRunes are invisible characters stripped from input. Their presence
// between letters is a classic fragmentation trick ("s​e​x").
var zeroWidthRunes = map[rune]bool{
	'\u200b': true, // zero-width space
	'\u200c': true, // zero-width non-joiner
	'\u200d': true, // zero-width joiner
	'\u2060': true, // word joiner
	'\ufeff': true, // BOM
	'\u00ad': true, // soft hyphen
	'\u180e': true, // Mongolian vowel separator
}

// slangTable maps coded or euphemistic terms to their plain meaning.
// Word-level, exact match after lowercasing.
var slangTable = map[string]string{
	"unalive":    "kill",
	"sewerslide": "suicide",
	"kys":        "kill yourself",
	"asl":        "age sex location",
	"420":        "cannabis",
	"pr0n":       "porn",
	"gewd":       "good",
	"seggs":      "sex",
	"sn0w":       "cocaine",
	"lewds":      "nude photos",
}

// sensitiveTerms is the acceptance lexicon for leetspeak decoding and fragment
// reassembly scoring. A decoded word outside this set is treated as noise.
var sensitiveTerms = map[string]bool{
	"sex": true, "porn": true, "nude": true, "nudes": true, "naked": true,
	"casino": true, "gambling": true, "gamble": true, "bet": true, "bets": true,
	"betting": true, "poker": true, "slots": true, "lottery": true,
	"drugs": true, "weed": true, "cocaine": true, "meth": true, "pills": true,
	"gun": true, "guns": true, "weapon": true, "weapons": true, "knife": true,
	"kill": true, "suicide": true, "cutting": true, "die": true,
	"hate": true, "nazi": true,
	"secret": true, "meet": true, "meetup": true, "address": true,
	"snapchat": true, "telegram": true, "whatsapp": true, "discord": true,
}
