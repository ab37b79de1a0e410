package lexicon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_Sizes(t *testing.T) {
	l := Default()

	tests := []struct {
		class Class
		want  int
	}{
		{Positive, 33},
		{Negative, 18},
		{Negation, 10},
		{Intensifier, 10},
		{Diminisher, 6},
	}

	for _, tt := range tests {
		if got := l.Len(tt.class); got != tt.want {
			t.Errorf("%s: expected %d words, got %d", tt.class, tt.want, got)
		}
	}
}

func TestDefault_Membership(t *testing.T) {
	l := Default()

	tests := []struct {
		class Class
		word  string
		want  bool
	}{
		{Positive, "вкусно", true},
		{Positive, "превосходно", false},
		{Negative, "долго", true},
		{Negative, "не советую", true},
		{Negation, "не", true},
		{Negation, "ни", true},
		{Intensifier, "очень", true},
		{Diminisher, "чуть-чуть", true},
		{Positive, "Вкусно", false}, // callers lowercase first
	}

	for _, tt := range tests {
		if got := l.Has(tt.class, tt.word); got != tt.want {
			t.Errorf("Has(%s, %q) = %v, want %v", tt.class, tt.word, got, tt.want)
		}
	}
}

func TestNew_RejectsOverlappingClasses(t *testing.T) {
	_, err := New(map[Class][]string{
		Positive: {"класс"},
		Negative: {"класс"},
	})
	if err == nil {
		t.Fatal("expected error for word in two classes")
	}
}

func TestNew_RejectsUnknownClass(t *testing.T) {
	_, err := New(map[Class][]string{"sarcasm": {"ну да"}})
	if err == nil {
		t.Fatal("expected error for unknown class")
	}
}

func TestNew_NormalizesWords(t *testing.T) {
	l, err := New(map[Class][]string{Positive: {"  Огонь ", ""}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !l.Has(Positive, "огонь") {
		t.Error("expected lowercased, trimmed word")
	}
	if l.Len(Positive) != 1 {
		t.Errorf("expected empty words to be skipped, got %d words", l.Len(Positive))
	}
}

func TestExtend_DoesNotMutateReceiver(t *testing.T) {
	base := Default()
	before := base.Len(Positive)

	ext, err := base.Extend(map[Class][]string{Positive: {"огонь"}})
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}

	if base.Len(Positive) != before {
		t.Errorf("receiver changed: %d -> %d", before, base.Len(Positive))
	}
	if !ext.Has(Positive, "огонь") {
		t.Error("expected extended lexicon to contain new word")
	}
	if !ext.Has(Positive, "вкусно") {
		t.Error("expected extended lexicon to keep default words")
	}
}

func TestLoadWithOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	content := "positive:\n  - огонь\nnegative:\n  - пресно\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := LoadWithOverlay(path)
	if err != nil {
		t.Fatalf("LoadWithOverlay failed: %v", err)
	}
	if !l.Has(Positive, "огонь") || !l.Has(Negative, "пресно") {
		t.Error("expected overlay words to be merged")
	}
}

func TestLoadWithOverlay_Conflict(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	if err := os.WriteFile(path, []byte("negative:\n  - вкусно\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadWithOverlay(path); err == nil {
		t.Error("expected error when overlay moves a word to another class")
	}
}

func TestLoadWithOverlay_EmptyPath(t *testing.T) {
	l, err := LoadWithOverlay("")
	if err != nil {
		t.Fatalf("LoadWithOverlay failed: %v", err)
	}
	if l.Len(Positive) != Default().Len(Positive) {
		t.Error("expected default lexicon for empty path")
	}
}

func TestLoadWithOverlay_Missing(t *testing.T) {
	if _, err := LoadWithOverlay("no_such_lexicon.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFingerprint(t *testing.T) {
	a := Default()
	b := Default()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical lexicons must share a fingerprint")
	}

	extended, err := a.Extend(map[Class][]string{Positive: {"огонь"}})
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	if extended.Fingerprint() == a.Fingerprint() {
		t.Error("extended lexicon must change the fingerprint")
	}

	// Same word in a different class is a different lexicon.
	pos, _ := New(map[Class][]string{Positive: {"огонь"}})
	neg, _ := New(map[Class][]string{Negative: {"огонь"}})
	if pos.Fingerprint() == neg.Fingerprint() {
		t.Error("class membership must affect the fingerprint")
	}
}
