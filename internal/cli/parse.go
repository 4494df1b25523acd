package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/claude/wodocr/internal/ingest"
	"github.com/claude/wodocr/internal/models"
	"github.com/spf13/cobra"
)

type parseOptions struct {
	noMatch   bool
	asJSON    bool
	offline   bool
	threshold float64
	server    string
	apiKey    string
}

func (o *parseOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&o.offline, "offline", false, "Use the cached catalog without contacting the source")
	cmd.Flags().Float64Var(&o.threshold, "threshold", 0, "Override matcher.threshold (0..1)")
	cmd.Flags().StringVar(&o.server, "server", "", "Send to a running wodocr server instead of processing locally")
	cmd.Flags().StringVar(&o.apiKey, "api-key", os.Getenv("WODOCR_AUTH_API_KEY"), "API key for --server endpoints that require one")
}

func (a *app) parseCommand() *cobra.Command {
	opts := &parseOptions{}
	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Parse workout text into blocks, scenarios and movements",
		Long: `Parse workout text (OCR output or typed) and match each movement against
the catalog. Reads stdin when no file is given or the file is "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			if opts.server != "" {
				path := "/api/v1/wod/scan"
				if opts.noMatch {
					path = "/api/v1/wod/parse"
				}
				res, err := newRemoteClient(opts.server, opts.apiKey).postText(cmd.Context(), path, text)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), res, nil, opts.asJSON)
			}

			if opts.noMatch {
				p := ingest.NewProvider(nil, nil, nil, a.logger())
				return a.print(cmd.OutOrStdout(), p.Parse(text), nil, opts.asJSON)
			}

			p, store, cleanup, err := a.provider(cmd.Context(), opts.offline, opts.threshold, cmd.Flags().Changed("threshold"))
			defer cleanup()
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), p.Process(text), movementNames(store.Movements()), opts.asJSON)
		},
	}
	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.noMatch, "no-match", false, "Only parse; skip catalog matching")
	return cmd
}

func (a *app) scanCommand() *cobra.Command {
	opts := &parseOptions{}
	cmd := &cobra.Command{
		Use:   "scan <image>",
		Short: "OCR a whiteboard photo, then parse and match it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading image: %w", err)
			}
			filename := filepath.Base(args[0])

			if opts.server != "" {
				res, err := newRemoteClient(opts.server, opts.apiKey).postImage(cmd.Context(), filename, image)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), res, nil, opts.asJSON)
			}

			p, store, cleanup, err := a.provider(cmd.Context(), opts.offline, opts.threshold, cmd.Flags().Changed("threshold"))
			defer cleanup()
			if err != nil {
				return err
			}
			res, err := p.ProcessImage(cmd.Context(), filename, image)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), res, movementNames(store.Movements()), opts.asJSON)
		},
	}
	opts.register(cmd)
	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(data), nil
}

func (a *app) print(w io.Writer, res *ingest.Result, names map[int64]string, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	renderResult(w, res, names)
	return nil
}

func movementNames(movements []models.Movement) map[int64]string {
	names := make(map[int64]string, len(movements))
	for _, m := range movements {
		names[m.ID] = m.Name
	}
	return names
}
