// Package palette holds the named color schemes letters are styled with.
package palette

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultKey names the palette used when a request does not pick one.
const DefaultKey = "earthy_vintage"

// CustomKey selects caller-supplied colors.
const CustomKey = "custom"

const customMood = "custom color scheme"

// Palette is a named color scheme with the mood the prompt asks for.
type Palette struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Colors      []string `json:"colors"`
	Mood        string   `json:"mood"`
}

var order = []string{
	"earthy_vintage",
	"ocean_breeze",
	"autumn_harvest",
	"spring_garden",
	"modern_minimal",
	"sunset_desert",
	"bright_blue",
}

var palettes = map[string]Palette{
	"earthy_vintage": {
		Name:        "Earthy Vintage",
		Description: "Warm beige, deep forest greens, rich browns, orange sunset, charcoal black, and cream white",
		Colors:      []string{"warm beige", "deep forest green", "rich brown", "warm orange", "charcoal black", "cream white"},
		Mood:        "organic, vintage illustration style with earthy tones",
	},
	"ocean_breeze": {
		Name:        "Ocean Breeze",
		Description: "Deep navy, seafoam green, sandy beige, coral pink, white",
		Colors:      []string{"deep navy blue", "seafoam green", "sandy beige", "coral pink", "crisp white"},
		Mood:        "coastal, fresh, maritime style",
	},
	"autumn_harvest": {
		Name:        "Autumn Harvest",
		Description: "Burnt orange, golden yellow, deep red, warm brown, cream",
		Colors:      []string{"burnt orange", "golden yellow", "deep burgundy red", "warm chestnut brown", "cream"},
		Mood:        "cozy autumn harvest style with warm fall colors",
	},
	"spring_garden": {
		Name:        "Spring Garden",
		Description: "Soft pink, sage green, lavender, butter yellow, white",
		Colors:      []string{"soft blush pink", "sage green", "gentle lavender", "butter yellow", "pure white"},
		Mood:        "fresh spring garden style with soft pastels",
	},
	"modern_minimal": {
		Name:        "Modern Minimal",
		Description: "Charcoal gray, soft blue, warm white, accent black",
		Colors:      []string{"charcoal gray", "soft slate blue", "warm white", "deep black"},
		Mood:        "clean, modern, minimalist style",
	},
	"sunset_desert": {
		Name:        "Sunset Desert",
		Description: "Terracotta, dusty rose, sage green, golden yellow, cream",
		Colors:      []string{"terracotta orange", "dusty rose", "desert sage green", "golden yellow", "warm cream"},
		Mood:        "southwestern desert sunset style",
	},
	"bright_blue": {
		Name:        "Bright Blue",
		Description: "Vibrant electric blue, bright yellow, lime green, orange, white",
		Colors:      []string{"vibrant electric blue", "bright sunny yellow", "lime green", "vibrant orange", "crisp white"},
		Mood:        "energetic, bright, and youthful with electric blue focus",
	},
}

// Keys returns the palette keys in display order.
func Keys() []string {
	return append([]string(nil), order...)
}

// All returns a copy of every named palette keyed by its key.
func All() map[string]Palette {
	out := make(map[string]Palette, len(palettes))
	for k, p := range palettes {
		out[k] = p.clone()
	}
	return out
}

// Lookup returns the named palette.
func Lookup(key string) (Palette, bool) {
	p, ok := palettes[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return Palette{}, false
	}
	return p.clone(), true
}

// Known reports whether key is a named palette or the custom selector.
func Known(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == CustomKey {
		return true
	}
	_, ok := palettes[key]
	return ok
}

// Custom builds a palette from comma separated colors. An empty mood falls
// back to a generic description.
func Custom(colors, mood string) Palette {
	var list []string
	for _, c := range strings.Split(colors, ",") {
		if c = strings.TrimSpace(c); c != "" {
			list = append(list, c)
		}
	}
	mood = strings.TrimSpace(mood)
	if mood == "" {
		mood = customMood
	}
	return Palette{
		Name:        "Custom",
		Description: strings.TrimSpace(colors),
		Colors:      list,
		Mood:        mood,
	}
}

// Resolve picks the palette for a request. Custom with no colors, or an
// unknown key, resolves to the default palette.
func Resolve(key string, customColors []string) Palette {
	if strings.EqualFold(strings.TrimSpace(key), CustomKey) {
		if len(customColors) > 0 {
			return Custom(strings.Join(customColors, ", "), "")
		}
		key = DefaultKey
	}
	if p, ok := Lookup(key); ok {
		return p
	}
	p, _ := Lookup(DefaultKey)
	return p
}

// Guidance renders the prompt fragment describing p. It starts with a space
// so it can be appended to a sentence; an empty palette yields "".
func Guidance(p Palette) string {
	if len(p.Colors) == 0 {
		return ""
	}
	return " Use this specific color palette: " + strings.Join(p.Colors, ", ") + ". Style it with " + p.Mood + "."
}

// DisplayName turns a palette key such as "ocean_breeze" into "Ocean Breeze".
func DisplayName(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

func (p Palette) clone() Palette {
	p.Colors = append([]string(nil), p.Colors...)
	return p
}
