package generate

import "slices"

// TypeTemplate describes a game genre the engine can generate.
type TypeTemplate struct {
	Type              string   `json:"id"`
	Description       string   `json:"description"`
	Difficulty        string   `json:"difficulty"`
	Mechanics         []string `json:"mechanics"`
	AdvancedMechanics []string `json:"advancedMechanics,omitempty"`
}

// StyleTemplate describes a visual style.
type StyleTemplate struct {
	Style       string   `json:"id"`
	Description string   `json:"description"`
	Colors      []string `json:"colors"`
	Background  string   `json:"background"`
	Assets      []string `json:"assets"`

	// palette is the placehold.co "background/foreground" color pair.
	palette string
}

var typeTemplates = []TypeTemplate{
	{
		Type:              "Racing",
		Description:       "High-speed races through neon-lit tracks with drifting and boosts.",
		Difficulty:        "Medium",
		Mechanics:         []string{"acceleration", "steering", "drifting", "boost"},
		AdvancedMechanics: []string{"slipstream", "weatherEffects", "vehicleDamage"},
	},
	{
		Type:              "RPG",
		Description:       "Story-driven adventures with characters, quests, and progression.",
		Difficulty:        "Hard",
		Mechanics:         []string{"movement", "dialogue", "inventory", "combat"},
		AdvancedMechanics: []string{"skillTree", "crafting", "partySystem"},
	},
	{
		Type:              "Puzzle",
		Description:       "Brain-teasing levels built around logic and pattern matching.",
		Difficulty:        "Easy",
		Mechanics:         []string{"tileSwap", "patternMatch", "timer"},
		AdvancedMechanics: []string{"hintSystem", "levelEditor"},
	},
	{
		Type:              "Rhythm",
		Description:       "Hit notes in time with the beat and chain combos.",
		Difficulty:        "Medium",
		Mechanics:         []string{"beatDetection", "noteHighway", "comboCounter"},
		AdvancedMechanics: []string{"dynamicTempo", "multiTrack"},
	},
}

var styleTemplates = []StyleTemplate{
	{
		Style:       "Cyberpunk",
		Description: "Dark dystopian cityscapes under teal neon.",
		Colors:      []string{"#252525", "#31CCCC", "#FF56B1"},
		Background:  "city_night",
		Assets:      []string{"neonSigns", "hoverCars", "rainParticles"},
		palette:     "252525/31CCCC",
	},
	{
		Style:       "Retro Synthwave",
		Description: "Eighties sunsets, chrome, and pink grid horizons.",
		Colors:      []string{"#252525", "#FF56B1", "#7B2FFF"},
		Background:  "sunset_grid",
		Assets:      []string{"palmTrees", "chromeText", "gridFloor"},
		palette:     "252525/FF56B1",
	},
	{
		Style:       "Pixel Art",
		Description: "Chunky sprites and limited palettes from the 8-bit era.",
		Colors:      []string{"#252525", "#56FF83", "#FFDD00"},
		Background:  "pixel_sky",
		Assets:      []string{"spriteSheet", "tileSet", "pixelFont"},
		palette:     "252525/56FF83",
	},
	{
		Style:       "Neon",
		Description: "Glowing outlines on black with bright electric accents.",
		Colors:      []string{"#252525", "#FFDD00", "#31CCCC"},
		Background:  "void_glow",
		Assets:      []string{"glowLines", "lightTrails", "bloomFX"},
		palette:     "252525/FFDD00",
	},
}

var (
	keywordSuffixes = []string{"Vibe", "Pulse", "Rush", "Epic", "Flux", "Wave", "Drift", "Saga", "Quest"}

	stylePrefixes = map[string][]string{
		"Cyberpunk":       {"Neon", "Cyber", "Digital", "Synth"},
		"Retro Synthwave": {"Retro", "Wave", "Synth", "Arcade"},
		"Pixel Art":       {"Pixel", "Bit", "Dot", "Block"},
		"Neon":            {"Glow", "Neon", "Bright", "Flux"},
	}

	typeSuffixes = map[string][]string{
		"Racing": {"Drift", "Racer", "Speed", "Drive"},
		"RPG":    {"Quest", "Chronicles", "Legend", "Saga"},
		"Puzzle": {"Logic", "Mind", "Enigma", "Riddle"},
		"Rhythm": {"Beat", "Tempo", "Pulse", "Groove"},
	}
)

const (
	defaultPrefix = "Epic"
	defaultSuffix = "Vibe"
)

var defaultStopWords = []string{"game", "with", "that", "this", "have", "about"}

var codeFiles = []string{
	"engine/core.js",
	"engine/mechanics.js",
	"assets/index.js",
	"assets/sprites.js",
	"assets/sounds.js",
	"assets/maps.js",
	"styles/main.css",
}

// Types returns the supported game types in display order.
func Types() []TypeTemplate {
	return slices.Clone(typeTemplates)
}

// Styles returns the supported visual styles in display order.
func Styles() []StyleTemplate {
	return slices.Clone(styleTemplates)
}

// typeTemplate falls back to the first template for unknown types.
func typeTemplate(name string) TypeTemplate {
	for _, t := range typeTemplates {
		if t.Type == name {
			return t
		}
	}
	return typeTemplates[0]
}

func styleTemplate(name string) StyleTemplate {
	for _, s := range styleTemplates {
		if s.Style == name {
			return s
		}
	}
	return styleTemplates[0]
}
