package wod

import (
	"regexp"

	"github.com/claude/wodocr/internal/models"
)

var (
	// onOffRe matches the interval idiom "3 on 1 off" (values in minutes).
	onOffRe = regexp.MustCompile(`(?i)(\d+)\s*on\s*(\d+)\s*off`)

	// roundsRe matches "5 rounds", "3 ROUND".
	roundsRe = regexp.MustCompile(`(?i)(\d+)\s*rounds?`)

	// scenarioRe matches "A) ...", "b: ...", "C) ..." and captures the remainder.
	scenarioRe = regexp.MustCompile(`(?i)^([abc])[):]\s*(.*)$`)
)

// blockTypeRule maps a header keyword to a block type. Order is precedence:
// the first matching rule wins.
type blockTypeRule struct {
	re  *regexp.Regexp
	typ models.BlockType
}

var blockTypeRules = []blockTypeRule{
	{regexp.MustCompile(`(?i)amrap`), models.BlockAMRAP},
	{regexp.MustCompile(`(?i)emom`), models.BlockEMOM},
	{regexp.MustCompile(`(?i)for\s*time`), models.BlockForTime},
	{onOffRe, models.BlockIntervals},
	{regexp.MustCompile(`(?i)round`), models.BlockRounds},
}

// blockTypeOf returns the block type implied by a header line, or
// BlockUnknown when no header keyword is present.
func blockTypeOf(line string) models.BlockType {
	for _, r := range blockTypeRules {
		if r.re.MatchString(line) {
			return r.typ
		}
	}
	return models.BlockUnknown
}

func isHeader(line string) bool {
	return blockTypeOf(line) != models.BlockUnknown
}

func isScenarioMarker(line string) bool {
	return scenarioRe.MatchString(line)
}

// lineRule classifies a cleaned line and folds it into the accumulator.
type lineRule struct {
	name  string
	match func(line string) bool
	apply func(acc accumulator, line string) accumulator
}

// lineRules is checked top to bottom; the last rule always matches.
var lineRules = []lineRule{
	{name: "header", match: isHeader, apply: accumulator.startBlock},
	{name: "scenario", match: isScenarioMarker, apply: accumulator.addScenarioLine},
	{name: "movements", match: func(string) bool { return true }, apply: accumulator.addMovementLine},
}

func classify(line string) lineRule {
	for _, r := range lineRules {
		if r.match(line) {
			return r
		}
	}
	return lineRules[len(lineRules)-1]
}
