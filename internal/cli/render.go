package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/claude/wodocr/internal/ingest"
	"github.com/claude/wodocr/internal/models"
	"github.com/fatih/color"
)

var blockLabels = map[models.BlockType]string{
	models.BlockForTime:   "FOR TIME",
	models.BlockAMRAP:     "AMRAP",
	models.BlockEMOM:      "EMOM",
	models.BlockIntervals: "INTERVALS",
	models.BlockRounds:    "ROUNDS",
	models.BlockUnknown:   "BLOCK",
}

// renderResult prints a human-readable tree. names maps catalog ids to
// names and may be nil, in which case matched movements show only the id.
func renderResult(w io.Writer, res *ingest.Result, names map[int64]string) {
	title := color.New(color.FgGreen, color.Bold).SprintFunc()
	header := color.New(color.FgCyan, color.Bold).SprintFunc()
	scenario := color.New(color.FgMagenta).SprintFunc()
	matched := color.New(color.FgGreen).SprintFunc()
	unmatched := color.New(color.FgRed).SprintFunc()
	warn := color.New(color.FgYellow, color.Bold).SprintFunc()
	dim := color.New(color.FgHiBlack).SprintFunc()

	tree := res.Parsed
	if res.Matched != nil {
		tree = *res.Matched
	}

	if tree.Title != "" {
		fmt.Fprintln(w, title(tree.Title))
	}

	for i, b := range tree.Blocks {
		fmt.Fprintf(w, "\n[%d] %s%s\n", i+1, header(blockLabels[b.BlockType]), dim(blockDetails(b)))
		for _, s := range b.Scenarios {
			indent := "  "
			if len(b.Scenarios) > 1 || s.Code != "A" {
				fmt.Fprintf(w, "  %s\n", scenario(s.Code+")"))
				indent = "    "
			}
			for _, m := range s.Movements {
				line := indent + "- " + movementLine(m)
				switch {
				case res.Matched == nil:
				case m.MovementID != nil:
					line += "  " + matched("→ "+catalogLabel(*m.MovementID, m.MatchConfidence, names))
				default:
					line += "  " + unmatched("→ ?")
				}
				fmt.Fprintln(w, line)
			}
		}
	}

	fmt.Fprintln(w)
	for _, msg := range res.Warnings {
		fmt.Fprintln(w, warn("! "+msg))
	}
	summary := fmt.Sprintf("%d blocks, %d movements", res.Blocks, res.Movements)
	if res.Matched != nil {
		summary += fmt.Sprintf(", %d unmatched (catalog: %d)", res.Unmatched, res.CatalogSize)
	}
	fmt.Fprintln(w, dim(summary))
}

func blockDetails(b models.ParsedBlock) string {
	var parts []string
	if b.Title != "" {
		parts = append(parts, strconv.Quote(b.Title))
	}
	if b.Rounds != nil {
		parts = append(parts, fmt.Sprintf("rounds=%d", *b.Rounds))
	}
	if b.WorkSeconds != nil {
		parts = append(parts, fmt.Sprintf("work=%ds", *b.WorkSeconds))
	}
	if b.RestSeconds != nil {
		parts = append(parts, fmt.Sprintf("rest=%ds", *b.RestSeconds))
	}
	if b.Pattern != models.PatternNone {
		parts = append(parts, "pattern="+string(b.Pattern))
	}
	if len(parts) == 0 {
		return ""
	}
	return "  " + strings.Join(parts, " ")
}

func movementLine(m models.ParsedMovement) string {
	var q []string
	if m.Reps != nil {
		q = append(q, fmt.Sprintf("%dx", *m.Reps))
	}
	if m.Calories != nil {
		q = append(q, fmt.Sprintf("%dcal", *m.Calories))
	}
	if m.DistanceMeters != nil {
		q = append(q, fmt.Sprintf("%dm", *m.DistanceMeters))
	}
	if m.DurationSeconds != nil {
		q = append(q, fmt.Sprintf("%ds", *m.DurationSeconds))
	}
	if m.Load != nil {
		q = append(q, strconv.FormatFloat(*m.Load, 'f', -1, 64)+m.LoadUnit)
	}

	line := m.NameRaw
	if len(q) > 0 {
		line = strings.Join(q, " ") + " " + line
	}
	if m.Mode != "" && m.Mode != models.ModeIndividual {
		line += " (" + string(m.Mode) + ")"
	}
	return line
}

func catalogLabel(id int64, confidence *float64, names map[int64]string) string {
	label := fmt.Sprintf("#%d", id)
	if name, ok := names[id]; ok {
		label = fmt.Sprintf("%s (#%d)", name, id)
	}
	if confidence != nil {
		label += fmt.Sprintf(" %.2f", *confidence)
	}
	return label
}
