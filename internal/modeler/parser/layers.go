package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"plan-modeler/internal/modeler/models"
)

// ============================================================
// Floor levels
// ============================================================

var floorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)FLOOR[-_](-?\d+)`),
	regexp.MustCompile(`(?i)(-?\d+)[-_]FLOOR`),
	regexp.MustCompile(`(?i)LEVEL[-_](-?\d+)`),
	regexp.MustCompile(`(?i)(-?\d+)[-_]LEVEL`),
}

// FloorLevel extracts the floor number from a layer name such as
// "FLOOR-1", "2_floor", "Level_0" or "3-LEVEL".
func FloorLevel(layer string) (int, bool) {
	for _, re := range floorPatterns {
		m := re.FindStringSubmatch(layer)
		if len(m) < 2 {
			continue
		}
		level, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return level, true
	}
	return 0, false
}

// LevelOrDefault returns the detected floor level, or 0.
func LevelOrDefault(layer string) int {
	level, _ := FloorLevel(layer)
	return level
}

// ============================================================
// Opening vocabulary
// ============================================================

// Vocabulary lists the case-insensitive substrings that mark door and
// window blocks and layers.
type Vocabulary struct {
	Door    []string `yaml:"door"`
	Window  []string `yaml:"window"`
	Opening []string `yaml:"opening"`
}

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Door:    []string{"DOOR", "TUER", "PORTE", "PUERTA"},
		Window:  []string{"WINDOW", "WIN", "FENSTER", "FENETRE", "VENTANA"},
		Opening: []string{"OPENING"},
	}
}

// ClassifyName returns the opening kind a block or layer name refers to.
// Door keywords win over window keywords.
func (v Vocabulary) ClassifyName(name string) (models.OpeningKind, bool) {
	upper := fold(name)
	if containsAny(upper, v.Door) {
		return models.OpeningDoor, true
	}
	if containsAny(upper, v.Window) {
		return models.OpeningWindow, true
	}
	return "", false
}

// IsOpeningLayer reports whether a layer may hold opening rectangles.
func (v Vocabulary) IsOpeningLayer(layer string) bool {
	upper := fold(layer)
	return containsAny(upper, v.Door) || containsAny(upper, v.Window) || containsAny(upper, v.Opening)
}

func containsAny(upper string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(upper, fold(k)) {
			return true
		}
	}
	return false
}

// fold upper-cases s and strips diacritics, so "Fenêtre" matches FENETRE.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(out)
}
