// Package generate builds mock game drafts from a free-text description using
// static genre and style templates.
package generate

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
	"sync"
	"text/template"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/epicvibe/platform/internal/epicvibe"
)

type Request struct {
	Description string
	Type        string
	Style       string
	Complexity  epicvibe.Complexity
}

// Draft is the generated payload before it is attached to a creator.
type Draft struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Type        string                  `json:"gameType"`
	Style       string                  `json:"gameStyle"`
	Complexity  epicvibe.Complexity     `json:"complexity"`
	Assets      epicvibe.Assets         `json:"assets"`
	Mechanics   []epicvibe.Mechanic     `json:"mechanics"`
	Code        epicvibe.CodeDescriptor `json:"code"`
	Hash        string                  `json:"hash"`
	GeneratedAt time.Time               `json:"generatedAt"`
}

type Options struct {
	// StopWords are dropped from the description before picking a title
	// keyword. Nil means the built-in list.
	StopWords []string
	// MinKeywordLen is the shortest word, in runes, usable as a keyword.
	MinKeywordLen int
	// Delay simulates model latency.
	Delay time.Duration
}

func DefaultOptions() Options {
	return Options{StopWords: defaultStopWords, MinKeywordLen: 4}
}

// Engine is safe for concurrent use. All randomness comes from the injected
// source so a fixed seed reproduces the same drafts.
type Engine struct {
	mu   sync.Mutex
	rnd  *rand.Rand
	stop map[string]struct{}
	opts Options
	now  func() time.Time
}

func New(rnd *rand.Rand, opts Options) *Engine {
	if opts.StopWords == nil {
		opts.StopWords = defaultStopWords
	}
	if opts.MinKeywordLen <= 0 {
		opts.MinKeywordLen = 4
	}
	stop := make(map[string]struct{}, len(opts.StopWords))
	for _, w := range opts.StopWords {
		stop[strings.ToLower(w)] = struct{}{}
	}
	return &Engine{
		rnd:  rnd,
		stop: stop,
		opts: opts,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// NewSeeded returns an engine backed by a PCG source with the given seed.
func NewSeeded(seed uint64, opts Options) *Engine {
	return New(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), opts)
}

// Generate never fails on input; it returns an error only when ctx ends
// during the simulated delay.
func (e *Engine) Generate(ctx context.Context, req Request) (Draft, error) {
	if e.opts.Delay > 0 {
		t := time.NewTimer(e.opts.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return Draft{}, ctx.Err()
		case <-t.C:
		}
	}

	if req.Complexity == "" {
		req.Complexity = epicvibe.ComplexitySimple
	}

	// Type and style pass through as given; only the templates behind the
	// code and mechanics fall back to the first entry.
	tt := typeTemplate(req.Type)
	st := styleTemplate(req.Style)
	now := e.now()

	code, err := renderCode(tt, st, req.Complexity, now)
	if err != nil {
		return Draft{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return Draft{
		Title:       e.title(req.Description, req.Type, req.Style),
		Description: req.Description,
		Type:        req.Type,
		Style:       req.Style,
		Complexity:  req.Complexity,
		Assets:      Assets(req.Description, req.Style, req.Type),
		Mechanics:   e.mechanics(tt, req.Complexity),
		Code:        code,
		Hash:        e.hash(),
		GeneratedAt: now,
	}, nil
}

// Title picks a title for a description. It is exported for callers that only
// need a name.
func (e *Engine) Title(description, gameType, style string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.title(description, gameType, style)
}

func (e *Engine) title(description, gameType, style string) string {
	keywords := e.keywords(description)
	if len(keywords) > 0 {
		kw := keywords[e.rnd.IntN(len(keywords))]
		return capitalize(kw) + " " + e.pick(keywordSuffixes)
	}

	prefix, suffix := defaultPrefix, defaultSuffix
	if p, ok := stylePrefixes[style]; ok {
		prefix = e.pick(p)
	}
	if s, ok := typeSuffixes[gameType]; ok {
		suffix = e.pick(s)
	}
	return prefix + " " + suffix
}

func (e *Engine) keywords(description string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(description)) {
		if utf8.RuneCountInString(w) < e.opts.MinKeywordLen {
			continue
		}
		if _, ok := e.stop[w]; ok {
			continue
		}
		out = append(out, w)
	}
	return out
}

func (e *Engine) mechanics(tt TypeTemplate, c epicvibe.Complexity) []epicvibe.Mechanic {
	names := tt.Mechanics
	if c == epicvibe.ComplexityAdvanced {
		names = append(names[:len(names):len(names)], tt.AdvancedMechanics...)
	}

	out := make([]epicvibe.Mechanic, 0, len(names))
	for _, n := range names {
		out = append(out, epicvibe.Mechanic{
			Name:        n,
			Description: fmt.Sprintf("Implementation of %s game mechanic", n),
			Parameters: epicvibe.MechanicParameters{
				Speed:    e.rnd.IntN(100),
				Power:    e.rnd.IntN(100),
				Duration: e.rnd.IntN(60),
			},
		})
	}
	return out
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// hash is a display identifier, not a digest of anything.
func (e *Engine) hash() string {
	b := make([]byte, 26)
	for i := range b {
		b[i] = base36[e.rnd.IntN(len(base36))]
	}
	return string(b)
}

func (e *Engine) pick(options []string) string {
	return options[e.rnd.IntN(len(options))]
}

// Assets builds the placeholder asset set for a style and type. The result
// depends only on its arguments.
func Assets(description, style, gameType string) epicvibe.Assets {
	img := func(size, text string) string { return Placeholder(style, size, text) }

	characters := 1
	if gameType == "RPG" {
		characters = 3
	}
	levels := 2
	switch gameType {
	case "Racing":
		levels = 3
	case "Puzzle":
		levels = 5
	}

	a := epicvibe.Assets{
		MainImage: img("1200x600", url.QueryEscape(bannerText(description))),
		UI: epicvibe.UIAssets{
			Buttons: img("200x100", "UI+Elements"),
			HUD:     img("600x100", "Game+HUD"),
		},
		Sound: epicvibe.SoundAssets{
			Background: "background.mp3",
			Effects:    []string{"effect1.mp3", "effect2.mp3"},
		},
	}
	for i := range characters {
		a.Characters = append(a.Characters, img("300x400", fmt.Sprintf("Character+%d", i+1)))
	}
	for i := range levels {
		a.Levels = append(a.Levels, img("600x400", fmt.Sprintf("Level+%d", i+1)))
	}
	return a
}

// Placeholder is a placehold.co image URL in the style's palette. text must
// already be query-escaped.
func Placeholder(style, size, text string) string {
	return fmt.Sprintf("https://placehold.co/%s/%s/png?text=%s", size, styleTemplate(style).palette, text)
}

// bannerText is the first 20 runes of the description, ellipsized.
func bannerText(description string) string {
	r := []rune(description)
	if len(r) > 20 {
		return string(r[:20]) + "..."
	}
	return description
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

var mainScript = template.Must(template.New("main").Funcs(template.FuncMap{
	"join":   strings.Join,
	"quoted": quoted,
}).Parse(`// Generated EpicVibe Game: {{.Generated}}
import { initGame, createScene, loadAssets } from './engine/core.js';
import { {{join .Type.Mechanics ", "}} } from './engine/mechanics.js';
import { {{join .Style.Assets ", "}} } from './assets/index.js';

// Initialize game environment
const game = initGame({
  type: '{{.Type.Type}}',
  style: '{{.Style.Style}}',
  complexity: '{{.Complexity}}',
  mechanics: [{{quoted .Type.Mechanics}}],
  assets: [{{quoted .Style.Assets}}]
});

// Set up game scene
const scene = createScene(game);
scene.setBackground('{{.Style.Background}}');

// Load game assets
loadAssets(game, () => {
  game.start();
});
`))

func quoted(items []string) string {
	q := make([]string, len(items))
	for i, it := range items {
		q[i] = "'" + it + "'"
	}
	return strings.Join(q, ", ")
}

func renderCode(tt TypeTemplate, st StyleTemplate, c epicvibe.Complexity, now time.Time) (epicvibe.CodeDescriptor, error) {
	var buf bytes.Buffer
	err := mainScript.Execute(&buf, struct {
		Generated  string
		Type       TypeTemplate
		Style      StyleTemplate
		Complexity epicvibe.Complexity
	}{now.Format(time.RFC3339), tt, st, c})
	if err != nil {
		return epicvibe.CodeDescriptor{}, fmt.Errorf("rendering main script: %w", err)
	}
	return epicvibe.CodeDescriptor{
		EntryPoint: "index.js",
		MainScript: buf.String(),
		Files:      append([]string(nil), codeFiles...),
	}, nil
}
