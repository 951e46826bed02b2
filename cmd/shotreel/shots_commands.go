package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shotreel/internal/shots"
)

type shotView struct {
	ID             string   `json:"id"`
	Number         int      `json:"shotNumber"`
	Status         string   `json:"status"`
	Description    string   `json:"description"`
	VisualElements []string `json:"visualElements,omitempty"`
	DurationFrames int      `json:"duration"`
	VideoURL       string   `json:"videoUrl,omitempty"`
	Error          string   `json:"error,omitempty"`
	HasCode        bool     `json:"hasCode"`
}

func shotViews(list []shots.Shot) []shotView {
	views := make([]shotView, 0, len(list))
	for _, shot := range list {
		views = append(views, shotView{
			ID:             shot.ID,
			Number:         shot.Number,
			Status:         string(shot.Status),
			Description:    shot.Description,
			VisualElements: shot.VisualElements,
			DurationFrames: shot.DurationFrames,
			VideoURL:       shot.VideoURL,
			Error:          shot.Error,
			HasCode:        shot.HasCode(),
		})
	}
	return views
}

func renderShotTable(list []shots.Shot, colorize bool) string {
	if len(list) == 0 {
		return "No shots"
	}
	rows := make([][]string, 0, len(list))
	for _, shot := range list {
		detail := shot.VideoURL
		if shot.Error != "" {
			detail = truncate(shot.Error, 60)
		}
		rows = append(rows, []string{
			strconv.Itoa(shot.Number),
			colorizeStatus(shot.Status, colorize),
			formatSeconds(shot.DurationFrames),
			truncate(shot.Description, 48),
			detail,
		})
	}
	return renderTable(
		[]string{"#", "Status", "Length", "Description", "Video / Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func newShotsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "shots",
		Aliases: []string{"ls"},
		Short:   "List the shots of the current storyboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(false, func(ws *workspace) error {
				list, err := ws.store.List(commandCtx(cmd))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, shotViews(list))
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderShotTable(list, shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print shots as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var codeOnly bool

	cmd := &cobra.Command{
		Use:   "show <shot>",
		Short: "Show a shot's details and generated code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(false, func(ws *workspace) error {
				shot, err := resolveShot(commandCtx(cmd), ws.store, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if codeOnly {
					fmt.Fprintln(out, shot.Code)
					return nil
				}
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader(fmt.Sprintf("Shot %d", shot.Number), colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Status", shotStatusKind(shot.Status), shotStatusLabel(shot.Status), colorize))
				fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "ID:", shot.ID)
				fmt.Fprintf(out, "%s%-*s %s (%d frames)\n", statusIndent, statusLabelWidth, "Length:", formatSeconds(shot.DurationFrames), shot.DurationFrames)
				fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Description:", shot.Description)
				for i, element := range shot.VisualElements {
					fmt.Fprintf(out, "%s%-*s %d. %s\n", statusIndent, statusLabelWidth, "", i+1, element)
				}
				if shot.VideoURL != "" {
					fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Video:", shot.VideoURL)
				}
				if shot.Error != "" {
					fmt.Fprintln(out, renderStatusLine("Error", statusError, shot.Error, colorize))
				}
				if shot.HasCode() {
					fmt.Fprintln(out)
					fmt.Fprintln(out, shot.Code)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&codeOnly, "code", false, "Print only the generated code")
	return cmd
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <shot>",
		Short: "Remove a shot and renumber the rest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(true, func(ws *workspace) error {
				reqCtx := commandCtx(cmd)
				shot, err := resolveShot(reqCtx, ws.store, args[0])
				if err != nil {
					return err
				}
				if err := ws.store.Delete(reqCtx, shot.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed shot %d\n", shot.Number)
				return nil
			})
		},
	}
}

func newDescribeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <shot> <description>",
		Short: "Replace a shot's description; regenerate it to apply the change",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := strings.Join(args[1:], " ")
			return ctx.withWorkspace(true, func(ws *workspace) error {
				reqCtx := commandCtx(cmd)
				target, err := resolveShot(reqCtx, ws.store, args[0])
				if err != nil {
					return err
				}
				shot, err := ws.store.UpdateDescription(reqCtx, target.ID, description)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated shot %d: %s\n", shot.Number, shot.Description)
				return nil
			})
		},
	}
}

func newReorderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <shot>...",
		Short: "Reorder shots; list every shot in its new position",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(true, func(ws *workspace) error {
				reqCtx := commandCtx(cmd)
				ids := make([]string, 0, len(args))
				for _, arg := range args {
					shot, err := resolveShot(reqCtx, ws.store, arg)
					if err != nil {
						return err
					}
					ids = append(ids, shot.ID)
				}
				if err := ws.store.Reorder(reqCtx, ids); err != nil {
					return err
				}
				list, err := ws.store.List(reqCtx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderShotTable(list, shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}
}
