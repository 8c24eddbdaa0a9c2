package textutil

import (
	"math"
	"testing"
)

func TestCosineSimilarityNil(t *testing.T) {
	tests := []struct {
		name string
		a    *Fingerprint
		b    *Fingerprint
		want float64
	}{
		{"both nil", nil, nil, 0},
		{"a nil", nil, NewFingerprint("Terry Pratchett"), 0},
		{"b nil", NewFingerprint("Terry Pratchett"), nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarityIdenticalIgnoresCase(t *testing.T) {
	got := CosineSimilarity(NewFingerprint("Brandon Sanderson"), NewFingerprint("brandon SANDERSON"))
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("CosineSimilarity(identical) = %v, want 1.0", got)
	}
}

func TestCosineSimilarityDisjoint(t *testing.T) {
	got := CosineSimilarity(NewFingerprint("Ursula Le Guin"), NewFingerprint("Iain Banks"))
	if got != 0 {
		t.Errorf("CosineSimilarity(disjoint) = %v, want 0", got)
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := NewFingerprint("Neil Gaiman")
	b := NewFingerprint("Neil Richard Gaiman")

	ab := CosineSimilarity(a, b)
	ba := CosineSimilarity(b, a)
	if ab != ba {
		t.Errorf("CosineSimilarity not symmetric: (%v, %v)", ab, ba)
	}
	if ab <= 0 || ab >= 1 {
		t.Errorf("CosineSimilarity(partial) = %v, want between 0 and 1", ab)
	}
}

func TestNewFingerprintNormCalculation(t *testing.T) {
	// "dumas dumas alexandre" -> dumas:2, alexandre:1
	fp := NewFingerprint("Dumas Dumas Alexandre")
	if fp == nil {
		t.Fatal("expected fingerprint")
	}
	if math.Abs(fp.norm-math.Sqrt(5)) > 0.0001 {
		t.Errorf("norm = %v, want %v", fp.norm, math.Sqrt(5))
	}
}

func TestNewFingerprintOnlyInitials(t *testing.T) {
	if fp := NewFingerprint("J. R. R."); fp != nil {
		t.Error("expected nil for text with only initials")
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple", "Terry Pratchett", []string{"terry", "pratchett"}},
		{"drops initials", "J. R. R. Tolkien", []string{"tolkien"}},
		{"keeps short surnames", "Ursula K. Le Guin", []string{"ursula", "le", "guin"}},
		{"accented letters", "Émile Zola", []string{"émile", "zola"}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBestMatch(t *testing.T) {
	candidates := []string{"Terry Brooks", "Terry Pratchett", "Terry Goodkind"}
	idx, score := BestMatch("terry pratchett", candidates)
	if idx != 1 {
		t.Fatalf("BestMatch index = %d, want 1", idx)
	}
	if math.Abs(score-1) > 1e-9 {
		t.Fatalf("BestMatch score = %v, want 1", score)
	}
	if idx, _ := BestMatch("Octavia Butler", candidates); idx != -1 {
		t.Fatalf("expected no match, got %d", idx)
	}
}
