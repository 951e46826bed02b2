package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shotreel/internal/shots"
)

func newStoryboardCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "storyboard <prompt>",
		Short: "Plan a new storyboard from a prompt, replacing the current shots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			return ctx.withWorkspace(true, func(ws *workspace) error {
				list, err := planStoryboard(cmd, ws, prompt)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, shotViews(list))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Planned %d shots\n", len(list))
				fmt.Fprintln(cmd.OutOrStdout(), renderShotTable(list, shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the planned shots as JSON")
	return cmd
}

// planStoryboard generates a storyboard and stores it as the workspace's
// shot list together with its themes.
func planStoryboard(cmd *cobra.Command, ws *workspace, prompt string) ([]shots.Shot, error) {
	reqCtx := commandCtx(cmd)
	board, err := ws.storyboardGenerator().Generate(reqCtx, prompt)
	if err != nil {
		return nil, fmt.Errorf("plan storyboard: %w", err)
	}
	themes, err := board.Themes()
	if err != nil {
		return nil, err
	}
	list, err := ws.store.Replace(reqCtx, board.Shots())
	if err != nil {
		return nil, fmt.Errorf("store storyboard: %w", err)
	}
	if err := ws.store.SaveThemes(reqCtx, themes); err != nil {
		return nil, fmt.Errorf("store themes: %w", err)
	}
	return list, nil
}
