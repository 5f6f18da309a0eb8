package cli

import (
	"fmt"

	"spcrud-cli/internal/docs"
	"spcrud-cli/internal/tui"

	"github.com/spf13/cobra"
)

const docsRenderWidth = 80

func newDocsCmd(app *App) *cobra.Command {
	var raw, render bool

	cmd := &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show built-in documentation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				topics := []map[string]any{}
				for _, t := range docs.Topics() {
					topics = append(topics, map[string]any{"topic": t, "title": docs.Title(t)})
				}
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"topics": topics}})
			}

			topic := args[0]
			body, ok := docs.Get(topic)
			if !ok {
				return writeErr(cmd, unknownTopicError{topic: topic})
			}

			switch {
			case render:
				_, err := fmt.Fprintln(cmd.OutOrStdout(), tui.RenderMarkdown(body, docsRenderWidth))
				return err
			case raw:
				_, err := fmt.Fprint(cmd.OutOrStdout(), body)
				return err
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"topic":    topic,
				"title":    docs.Title(topic),
				"markdown": body,
			}})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print raw markdown (no JSON envelope)")
	cmd.Flags().BoolVar(&render, "render", false, "Render markdown for the terminal")
	return cmd
}
