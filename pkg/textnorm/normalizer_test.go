package textnorm

import (
	"reflect"
	"strings"
	"testing"
)

func TestNormalize_PlainTextUntouched(t *testing.T) {
	got := Normalize("trending music videos")
	if got.Text != "trending music videos" {
		t.Errorf("plain text changed: %q", got.Text)
	}
	if got.Touched() {
		t.Errorf("expected no mutations, got %v", got.Mutations)
	}
	if got.ObfuscationScore != 0 {
		t.Errorf("expected zero obfuscation score, got %f", got.ObfuscationScore)
	}
}

func TestNormalize_Homoglyphs(t *testing.T) {
	// Cyrillic а, е, о lookalikes
	got := Normalize("саsіno")
	if !strings.Contains(got.Text, "casino") {
		t.Errorf("homoglyphs not resolved: %q", got.Text)
	}
	if !got.Touched() {
		t.Error("expected homoglyph mutations")
	}
	for _, m := range got.Mutations {
		if m.Kind != MutationHomoglyph {
			t.Errorf("unexpected mutation kind %s", m.Kind)
		}
	}
}

func TestNormalize_LeetspeakOnlySensitive(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		decoded bool
	}{
		{"s3x", "sex", true},
		{"g4mbl1ng", "gambling", true},
		{"c4sino", "casino", true},
		// Leet decode must not fire on benign text with digits.
		{"Turn 1", "Turn 1", false},
		{"room 237", "room 237", false},
	}

	for _, tc := range tests {
		got := Normalize(tc.in)
		if !strings.Contains(got.Text, tc.want) {
			t.Errorf("Normalize(%q) = %q, want substring %q", tc.in, got.Text, tc.want)
		}
		hasLeet := false
		for _, m := range got.Mutations {
			if m.Kind == MutationLeetspeak {
				hasLeet = true
			}
		}
		if hasLeet != tc.decoded {
			t.Errorf("Normalize(%q) leet mutation = %v, want %v", tc.in, hasLeet, tc.decoded)
		}
	}
}

func TestNormalize_Emoji(t *testing.T) {
	got := Normalize("wanna play 🎰 tonight")
	if !strings.Contains(got.Text, "casino") {
		t.Errorf("emoji not substituted: %q", got.Text)
	}
}

func TestNormalize_ZeroWidthStripped(t *testing.T) {
	got := Normalize("s​ex")
	if !strings.Contains(got.Text, "sex") {
		t.Errorf("zero-width not stripped: %q", got.Text)
	}
	if got.ObfuscationScore == 0 {
		t.Error("expected nonzero obfuscation score")
	}
}

func TestNormalize_AllInvisibleRunesStripped(t *testing.T) {
	tests := []struct {
		name string
		sep  rune
	}{
		{"zero-width space", '\u200b'},
		{"zero-width non-joiner", '\u200c'},
		{"zero-width joiner", '\u200d'},
		{"word joiner", '\u2060'},
		{"byte-order mark", '\ufeff'},
		{"soft hyphen", '\u00ad'},
		{"mongolian vowel separator", '\u180e'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := "cas" + string(tt.sep) + "ino"
			got := Normalize(in)
			if !strings.Contains(got.Text, "casino") {
				t.Errorf("Normalize(%q) = %q, separator survived", in, got.Text)
			}
		})
	}
}

func TestNormalize_FragmentReassembly(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"let's talk about s e x okay", "sex"},
		{"p.o.k.e.r tips", "poker"},
		{"g-a-m-b-l-i-n-g", "gambling"},
	}
	for _, tc := range tests {
		got := Normalize(tc.in)
		if !strings.Contains(got.Text, tc.want) {
			t.Errorf("Normalize(%q) = %q, want substring %q", tc.in, got.Text, tc.want)
		}
	}
}

func TestNormalize_Slang(t *testing.T) {
	got := Normalize("asl and keep it secret")
	if !strings.Contains(got.Text, "age sex location") {
		t.Errorf("slang not resolved: %q", got.Text)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	in := "саs1no 🎰 s e x​ asl"
	first := Normalize(in)
	for i := 0; i < 5; i++ {
		again := Normalize(in)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Normalize not deterministic: %+v vs %+v", first, again)
		}
	}
}

func TestNormalize_UnknownObfuscationPassesThrough(t *testing.T) {
	// Base64 payloads are not this layer's job; they pass through unchanged.
	in := "aWdub3JlIGFsbA=="
	got := Normalize(in)
	if got.Text != in {
		t.Errorf("unknown obfuscation should pass through, got %q", got.Text)
	}
}

func TestNormalize_EmptyInput(t *testing.T) {
	got := Normalize("")
	if got.Text != "" || got.ObfuscationScore != 0 || got.Touched() {
		t.Errorf("empty input should be a no-op, got %+v", got)
	}
}

func TestObfuscationScore_Bounds(t *testing.T) {
	got := Normalize("ѕех") // fully homoglyph-obfuscated
	if got.ObfuscationScore < 0 || got.ObfuscationScore > 1 {
		t.Errorf("score out of bounds: %f", got.ObfuscationScore)
	}
}
