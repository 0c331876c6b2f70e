// Package emoji maps grocery item names to a display glyph.
package emoji

import "strings"

// Fallback is shown for names with no known glyph.
const Fallback = "🛒"

var glyphs = map[string]string{
	"apple":        "🍎",
	"avocado":      "🥑",
	"bacon":        "🥓",
	"bagel":        "🥯",
	"banana":       "🍌",
	"beer":         "🍺",
	"bread":        "🍞",
	"broccoli":     "🥦",
	"butter":       "🧈",
	"cake":         "🍰",
	"carrot":       "🥕",
	"cheese":       "🧀",
	"cherry":       "🍒",
	"chicken":      "🍗",
	"chocolate":    "🍫",
	"coffee":       "☕",
	"cookie":       "🍪",
	"corn":         "🌽",
	"croissant":    "🥐",
	"cucumber":     "🥒",
	"egg":          "🥚",
	"fish":         "🐟",
	"garlic":       "🧄",
	"grape":        "🍇",
	"honey":        "🍯",
	"ice cream":    "🍨",
	"juice":        "🧃",
	"lemon":        "🍋",
	"lettuce":      "🥬",
	"mango":        "🥭",
	"meat":         "🥩",
	"melon":        "🍈",
	"milk":         "🥛",
	"mushroom":     "🍄",
	"noodle":       "🍜",
	"onion":        "🧅",
	"orange":       "🍊",
	"pasta":        "🍝",
	"peach":        "🍑",
	"pear":         "🍐",
	"pepper":       "🫑",
	"pineapple":    "🍍",
	"pizza":        "🍕",
	"potato":       "🥔",
	"rice":         "🍚",
	"salt":         "🧂",
	"sandwich":     "🥪",
	"shrimp":       "🦐",
	"soap":         "🧼",
	"steak":        "🥩",
	"strawberry":   "🍓",
	"tea":          "🍵",
	"toilet paper": "🧻",
	"tomato":       "🍅",
	"water":        "💧",
	"watermelon":   "🍉",
	"wine":         "🍷",
	"yogurt":       "🥣",
}

// Lookup returns the glyph for name. Matching is case-insensitive, tolerates
// simple plurals and falls back to the last word ("whole milk" → milk).
func Lookup(name string) string {
	key := normalize(name)
	if key == "" {
		return Fallback
	}
	if g, ok := match(key); ok {
		return g
	}
	if i := strings.LastIndexByte(key, ' '); i >= 0 {
		if g, ok := match(key[i+1:]); ok {
			return g
		}
	}
	return Fallback
}

func match(key string) (string, bool) {
	if g, ok := glyphs[key]; ok {
		return g, true
	}
	for _, singular := range singulars(key) {
		if g, ok := glyphs[singular]; ok {
			return g, true
		}
	}
	return "", false
}

func singulars(key string) []string {
	var out []string
	switch {
	case strings.HasSuffix(key, "ies"):
		out = append(out, strings.TrimSuffix(key, "ies")+"y")
	case strings.HasSuffix(key, "oes"):
		out = append(out, strings.TrimSuffix(key, "es"))
	}
	if strings.HasSuffix(key, "es") {
		out = append(out, strings.TrimSuffix(key, "es"))
	}
	if strings.HasSuffix(key, "s") {
		out = append(out, strings.TrimSuffix(key, "s"))
	}
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
