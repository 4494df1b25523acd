// Package wod turns raw OCR or plain workout text into a structured
// models.ParsedWod. Parsing is a best-effort heuristic: it never fails and
// never discards a line.
package wod

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/claude/wodocr/internal/models"
	"github.com/google/uuid"
)

const (
	// DefaultBlockTitle names the block synthesized for text that has no header.
	DefaultBlockTitle = "Bloque detectado"

	// DefaultMovementName replaces a movement whose name is empty after cleaning.
	DefaultMovementName = "Movimiento"

	minTitleLength = 6
	bulletCutset   = " \t-–—•*·"
)

var (
	lineBreakRe = regexp.MustCompile(`\r\n|\r|\n`)

	repsRe     = regexp.MustCompile(`(?i)^(\d+)(?:\s*reps?\b|\s+)`)
	distanceRe = regexp.MustCompile(`(?i)(\d+)\s*m\b`)
	caloriesRe = regexp.MustCompile(`(?i)(\d+)\s*cal\p{L}*`)
	loadRe     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(kgs?|lbs?)\b`)
	durationRe = regexp.MustCompile(`(?i)(\d+)\s*s(?:ecs?)?\b`)
	syncRe     = regexp.MustCompile(`(?i)sync|synchro|pareja|compartido|altern`)
	maxRe      = regexp.MustCompile(`(?i)\bmax\b`)
)

// newBlockID generates block identifiers. They are unique per process and
// carry no meaning across sessions.
var newBlockID = uuid.NewString

// Parse converts raw workout text into a ParsedWod. Empty or whitespace-only
// input yields a ParsedWod with no title and no blocks.
func Parse(raw string) models.ParsedWod {
	lines := cleanLines(raw)
	if len(lines) == 0 {
		return models.ParsedWod{Blocks: []models.ParsedBlock{}}
	}

	var title string
	if utf8.RuneCountInString(lines[0]) > minTitleLength {
		title = lines[0]
	}

	acc := accumulator{blocks: []models.ParsedBlock{}}
	for _, line := range lines {
		acc = classify(line).apply(acc, line)
	}

	return models.ParsedWod{Title: title, Blocks: acc.blocks}
}

// ParseReader reads all of r and parses it.
func ParseReader(r io.Reader) (models.ParsedWod, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.ParsedWod{}, fmt.Errorf("reading workout text: %w", err)
	}
	return Parse(string(data)), nil
}

// cleanLines splits on any newline convention, strips bullets and dashes
// from both ends of each line and drops lines that end up empty.
func cleanLines(raw string) []string {
	var lines []string
	for _, l := range lineBreakRe.Split(raw, -1) {
		l = strings.Trim(l, bulletCutset)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// accumulator is the walk state folded over the lines. The current block is
// always the last one. Each step receives the previous value and returns the
// next; earlier values are discarded.
type accumulator struct {
	blocks []models.ParsedBlock
}

func newBlock(title string, typ models.BlockType) models.ParsedBlock {
	return models.ParsedBlock{
		ID:        newBlockID(),
		BlockType: typ,
		Title:     title,
		Scenarios: []models.ParsedScenario{{Code: "A", Movements: []models.ParsedMovement{}}},
	}
}

func (a accumulator) ensureBlock() accumulator {
	if len(a.blocks) == 0 {
		a.blocks = append(a.blocks, newBlock(DefaultBlockTitle, models.BlockUnknown))
	}
	return a
}

func (a accumulator) startBlock(line string) accumulator {
	b := newBlock(strings.TrimSpace(strings.ReplaceAll(line, ":", "")), blockTypeOf(line))

	if m := roundsRe.FindStringSubmatch(line); m != nil {
		b.Rounds = atoiPtr(m[1])
	}
	if m := onOffRe.FindStringSubmatch(line); m != nil {
		b.WorkSeconds = minutesToSeconds(m[1])
		b.RestSeconds = minutesToSeconds(m[2])
	}

	a.blocks = append(a.blocks, b)
	return a
}

func (a accumulator) addScenarioLine(line string) accumulator {
	m := scenarioRe.FindStringSubmatch(line)
	if m == nil {
		return a.addMovementLine(line)
	}
	a = a.ensureBlock()
	code := strings.ToUpper(m[1])
	movements := parseMovements(m[2])

	b := &a.blocks[len(a.blocks)-1]
	idx := -1
	for i, s := range b.Scenarios {
		if s.Code == code {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.Scenarios = append(b.Scenarios, models.ParsedScenario{Code: code, Movements: []models.ParsedMovement{}})
		idx = len(b.Scenarios) - 1
	}
	b.Scenarios[idx].Movements = append(b.Scenarios[idx].Movements, movements...)

	// Any marker flags the block as split. Three-way splits are not
	// distinguished and also end up as A_B.
	b.Pattern = models.PatternAB
	return a
}

func (a accumulator) addMovementLine(line string) accumulator {
	a = a.ensureBlock()
	b := &a.blocks[len(a.blocks)-1]
	b.Scenarios[0].Movements = append(b.Scenarios[0].Movements, parseMovements(line)...)
	return a
}

// parseMovements splits a compound line on "+" and parses each segment.
func parseMovements(line string) []models.ParsedMovement {
	var out []models.ParsedMovement
	for _, seg := range strings.Split(line, "+") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		out = append(out, parseSegment(seg))
	}
	return out
}

// parseSegment extracts every quantity it can find. The regexes are
// independent: one number may feed more than one field.
func parseSegment(seg string) models.ParsedMovement {
	var mv models.ParsedMovement
	var spans [][]int

	if loc := repsRe.FindStringSubmatchIndex(seg); loc != nil {
		mv.Reps = atoiPtr(seg[loc[2]:loc[3]])
		spans = append(spans, loc[:2])
	}
	if loc := distanceRe.FindStringSubmatchIndex(seg); loc != nil {
		mv.DistanceMeters = atoiPtr(seg[loc[2]:loc[3]])
		spans = append(spans, loc[:2])
	}
	if loc := caloriesRe.FindStringSubmatchIndex(seg); loc != nil {
		mv.Calories = atoiPtr(seg[loc[2]:loc[3]])
		spans = append(spans, loc[:2])
	}
	if loc := loadRe.FindStringSubmatchIndex(seg); loc != nil {
		if v, err := strconv.ParseFloat(seg[loc[2]:loc[3]], 64); err == nil {
			mv.Load = &v
			mv.LoadUnit = strings.ToLower(seg[loc[4]:loc[5]])
		}
		spans = append(spans, loc[:2])
	}
	if loc := durationRe.FindStringSubmatchIndex(seg); loc != nil {
		mv.DurationSeconds = atoiPtr(seg[loc[2]:loc[3]])
		spans = append(spans, loc[:2])
	}
	if syncRe.MatchString(seg) {
		mv.Mode = models.ModeSync
	}

	mv.NameRaw = displayName(seg, spans)
	return mv
}

// displayName removes the quantity spans and the "max" descriptor from seg.
func displayName(seg string, spans [][]int) string {
	drop := make([]bool, len(seg))
	for _, sp := range spans {
		for i := sp[0]; i < sp[1]; i++ {
			drop[i] = true
		}
	}
	var b strings.Builder
	for i := 0; i < len(seg); i++ {
		if drop[i] {
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(seg[i])
	}

	name := maxRe.ReplaceAllString(b.String(), " ")
	name = strings.Trim(strings.Join(strings.Fields(name), " "), bulletCutset)
	if name == "" {
		return DefaultMovementName
	}
	return name
}

func atoiPtr(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func minutesToSeconds(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	n *= 60
	return &n
}
