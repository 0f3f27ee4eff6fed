package variety

import "testing"

func TestSeed_Deterministic(t *testing.T) {
	a := Seed(12, "Name: Ana\nAge: 34")
	b := Seed(12, "Name: Ana\nAge: 34")
	if a != b {
		t.Fatalf("expected identical seeds, got %d and %d", a, b)
	}
	if Seed(13, "Name: Ana\nAge: 34") == a && Seed(12, "Name: Ana\nAge: 35") == a {
		t.Errorf("expected seed to depend on both id and text")
	}
}

func TestPick(t *testing.T) {
	palette := []string{"a", "b", "c"}
	tests := []struct {
		seed, offset uint32
		want         string
	}{
		{0, 0, "a"},
		{1, 0, "b"},
		{2, 1, "a"},
		{4294967295, 1, "b"}, // (2^32-1 + 1) mod 3 == 1 without overflow
	}
	for _, tt := range tests {
		if got := Pick(palette, tt.seed, tt.offset); got != tt.want {
			t.Errorf("Pick(seed=%d, offset=%d) = %q, want %q", tt.seed, tt.offset, got, tt.want)
		}
	}
	if got := Pick(nil, 5, 0); got != "" {
		t.Errorf("expected empty string for empty palette, got %q", got)
	}
}

func TestSelect_Reproducible(t *testing.T) {
	for id := 1; id <= 50; id++ {
		text := "case text"
		first := DefaultPalette.SelectFor(id, text)
		second := DefaultPalette.SelectFor(id, text)
		if first != second {
			t.Fatalf("case %d: selections differ: %+v vs %+v", id, first, second)
		}
	}
}

func TestSelect_ClashSubstitutesFallback(t *testing.T) {
	p := Palette{
		Backgrounds:    []string{"off-white"},
		ClothingColors: []string{"white"},
		Clashes:        map[string][]string{"off-white": {"white"}},
		Fallback:       "navy",
	}
	s := p.Select(123)
	if s.ClothingColor != "navy" || !s.Substituted {
		t.Errorf("expected fallback navy, got %+v", s)
	}
}

func TestSelect_NoClashKeepsPick(t *testing.T) {
	p := Palette{
		Backgrounds:    []string{"off-white"},
		ClothingColors: []string{"teal"},
		Clashes:        map[string][]string{"off-white": {"white"}},
		Fallback:       "navy",
	}
	if s := p.Select(7); s.ClothingColor != "teal" || s.Substituted {
		t.Errorf("expected teal without substitution, got %+v", s)
	}
}

func TestDefaultPalette_NeverClashesAfterSelection(t *testing.T) {
	for seed := uint32(0); seed < 500; seed++ {
		s := DefaultPalette.Select(seed)
		if DefaultPalette.clashes(s.Background, s.ClothingColor) {
			t.Fatalf("seed %d: %q clashes with %q", seed, s.ClothingColor, s.Background)
		}
		if s.Background == "" || s.ClothingColor == "" {
			t.Fatalf("seed %d: empty selection %+v", seed, s)
		}
	}
}
