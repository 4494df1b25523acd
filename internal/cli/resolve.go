package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (a *app) resolveCommand() *cobra.Command {
	var (
		offline   bool
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "resolve <name...>",
		Short: "Show which catalog movement a free-text name resolves to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, cleanup, err := a.provider(cmd.Context(), offline, threshold, cmd.Flags().Changed("threshold"))
			defer cleanup()
			if err != nil {
				return err
			}

			name := strings.Join(args, " ")
			res := p.Resolve(name)
			w := cmd.OutOrStdout()

			if res.MovementID == nil {
				fmt.Fprintf(w, "%q %s\n", name, color.New(color.FgRed, color.Bold).Sprint("→ no match"))
				return nil
			}

			verdict := color.New(color.FgGreen).Sprint("accepted")
			if res.Confidence < p.Threshold() {
				verdict = color.New(color.FgYellow).Sprintf("below threshold %.2f", p.Threshold())
			}
			fmt.Fprintf(w, "%q → %s (#%d) confidence %.2f via %s, %s\n",
				name, color.New(color.Bold).Sprint(res.Name), *res.MovementID, res.Confidence, res.Strategy, verdict)
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the cached catalog without contacting the source")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Override matcher.threshold (0..1)")
	return cmd
}
