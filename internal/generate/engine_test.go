package generate

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/epicvibe/platform/internal/epicvibe"
)

func TestGenerateEmptyDescriptionUsesFallbackTables(t *testing.T) {
	e := NewSeeded(1, DefaultOptions())

	for range 50 {
		d, err := e.Generate(context.Background(), Request{Type: "Racing", Style: "Cyberpunk"})
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		prefix, suffix, ok := strings.Cut(d.Title, " ")
		if !ok {
			t.Fatalf("title %q has no space", d.Title)
		}
		if !slices.Contains(stylePrefixes["Cyberpunk"], prefix) {
			t.Errorf("prefix %q not a Cyberpunk prefix", prefix)
		}
		if !slices.Contains(typeSuffixes["Racing"], suffix) {
			t.Errorf("suffix %q not a Racing suffix", suffix)
		}
	}
}

func TestTitleUnknownStyleAndType(t *testing.T) {
	e := NewSeeded(2, DefaultOptions())
	if got := e.Title("", "Sports", "Watercolor"); got != "Epic Vibe" {
		t.Errorf("title = %q, want %q", got, "Epic Vibe")
	}
}

func TestGenerateOmittedStyleAndTypeTitle(t *testing.T) {
	e := NewSeeded(5, DefaultOptions())
	d, err := e.Generate(context.Background(), Request{Description: "a fun one"})
	if err != nil {
		t.Fatal(err)
	}
	if d.Title != "Epic Vibe" {
		t.Errorf("title = %q, want %q", d.Title, "Epic Vibe")
	}
	if d.Type != "" || d.Style != "" {
		t.Errorf("type/style = %q/%q, want both empty", d.Type, d.Style)
	}
	if d.Assets.MainImage == "" || d.Code.MainScript == "" {
		t.Error("assets and code should still be built from the fallback templates")
	}
}

func TestTitleKeywords(t *testing.T) {
	e := NewSeeded(3, DefaultOptions())

	for range 50 {
		got := e.Title("a game with dragons", "RPG", "Neon")
		kw, suffix, _ := strings.Cut(got, " ")
		if kw != "Dragons" {
			t.Errorf("keyword = %q, want Dragons", kw)
		}
		if !slices.Contains(keywordSuffixes, suffix) {
			t.Errorf("suffix %q not in keyword suffixes", suffix)
		}
	}
}

func TestTitleCustomStopWords(t *testing.T) {
	e := NewSeeded(4, Options{StopWords: []string{"dragons"}, MinKeywordLen: 4})
	got := e.Title("dragons", "RPG", "Neon")
	prefix, _, _ := strings.Cut(got, " ")
	if !slices.Contains(stylePrefixes["Neon"], prefix) {
		t.Errorf("title %q should fall back when every word is a stop-word", got)
	}
}

func TestAssets(t *testing.T) {
	tests := []struct {
		gameType   string
		characters int
		levels     int
	}{
		{"Racing", 1, 3},
		{"RPG", 3, 2},
		{"Puzzle", 1, 5},
		{"Rhythm", 1, 2},
		{"Unknown", 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.gameType, func(t *testing.T) {
			a := Assets("desc", "Pixel Art", tt.gameType)
			if len(a.Characters) != tt.characters {
				t.Errorf("characters = %d, want %d", len(a.Characters), tt.characters)
			}
			if len(a.Levels) != tt.levels {
				t.Errorf("levels = %d, want %d", len(a.Levels), tt.levels)
			}
			if !strings.Contains(a.MainImage, "/252525/56FF83/") {
				t.Errorf("main image %q missing Pixel Art palette", a.MainImage)
			}
		})
	}
}

func TestAssetsDeterministic(t *testing.T) {
	a := Assets("Race through a neon megacity at night", "Unknown", "Racing")
	b := Assets("Race through a neon megacity at night", "Unknown", "Racing")
	if a.MainImage != b.MainImage || !slices.Equal(a.Levels, b.Levels) {
		t.Error("assets differ for identical input")
	}
	want := "https://placehold.co/1200x600/252525/31CCCC/png?text=Race+through+a+neon+..."
	if a.MainImage != want {
		t.Errorf("main image = %q, want %q", a.MainImage, want)
	}
}

func TestMechanicsComplexity(t *testing.T) {
	e := NewSeeded(5, DefaultOptions())
	ctx := context.Background()

	simple, _ := e.Generate(ctx, Request{Description: "x", Type: "Puzzle", Complexity: epicvibe.ComplexitySimple})
	advanced, _ := e.Generate(ctx, Request{Description: "x", Type: "Puzzle", Complexity: epicvibe.ComplexityAdvanced})

	tt := typeTemplate("Puzzle")
	if len(simple.Mechanics) != len(tt.Mechanics) {
		t.Errorf("simple mechanics = %d, want %d", len(simple.Mechanics), len(tt.Mechanics))
	}
	if len(advanced.Mechanics) != len(tt.Mechanics)+len(tt.AdvancedMechanics) {
		t.Errorf("advanced mechanics = %d", len(advanced.Mechanics))
	}
	for _, m := range advanced.Mechanics {
		p := m.Parameters
		if p.Speed < 0 || p.Speed >= 100 || p.Power < 0 || p.Power >= 100 || p.Duration < 0 || p.Duration >= 60 {
			t.Errorf("mechanic %s parameters out of range: %+v", m.Name, p)
		}
	}
	if len(typeTemplate("Puzzle").Mechanics) != len(tt.Mechanics) {
		t.Error("template mechanics slice was mutated")
	}
}

func TestGenerateDefaults(t *testing.T) {
	e := NewSeeded(6, DefaultOptions())
	d, err := e.Generate(context.Background(), Request{Description: "shoot the stars"})
	if err != nil {
		t.Fatal(err)
	}
	if d.Type != "" || d.Style != "" || d.Complexity != epicvibe.ComplexitySimple {
		t.Errorf("defaults = %q/%q/%q", d.Type, d.Style, d.Complexity)
	}
	if len(d.Hash) != 26 {
		t.Errorf("hash %q length %d", d.Hash, len(d.Hash))
	}
	if d.Code.EntryPoint != "index.js" || len(d.Code.Files) != len(codeFiles) {
		t.Errorf("code descriptor = %+v", d.Code)
	}
	if !strings.Contains(d.Code.MainScript, "style: 'Cyberpunk'") {
		t.Errorf("main script not rendered from templates:\n%s", d.Code.MainScript)
	}
}

func TestGenerateSameSeedSameDraft(t *testing.T) {
	req := Request{Description: "escape the haunted lighthouse", Type: "RPG", Style: "Neon"}
	a, _ := NewSeeded(42, DefaultOptions()).Generate(context.Background(), req)
	b, _ := NewSeeded(42, DefaultOptions()).Generate(context.Background(), req)
	if a.Title != b.Title || a.Hash != b.Hash {
		t.Errorf("drafts differ: %q/%q vs %q/%q", a.Title, a.Hash, b.Title, b.Hash)
	}
}

func TestGenerateDelayHonorsContext(t *testing.T) {
	e := NewSeeded(7, Options{Delay: time.Minute})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := e.Generate(ctx, Request{Description: "x"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}
