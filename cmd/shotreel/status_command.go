package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shotreel/internal/preflight"
	"shotreel/internal/shots"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show storyboard progress and, with --check, service readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(false, func(ws *workspace) error {
				reqCtx := commandCtx(cmd)
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				status, err := ws.manager(reqCtx).Status(reqCtx)
				if err != nil {
					return err
				}
				themes, err := ws.store.Themes(reqCtx)
				if err != nil {
					return err
				}

				for _, line := range renderSectionHeader("Storyboard", colorize) {
					fmt.Fprintln(out, line)
				}
				if themes.Title != "" {
					fmt.Fprintln(out, renderStatusLine("Title", statusInfo, themes.Title, colorize))
				}
				total := 0
				for _, st := range shots.AllStatuses() {
					count := status.Counts[st]
					total += count
					if count == 0 {
						continue
					}
					fmt.Fprintln(out, renderStatusLine(shotStatusLabel(st), shotStatusKind(st), fmt.Sprintf("%d", count), colorize))
				}
				if total == 0 {
					fmt.Fprintln(out, renderStatusLine("Shots", statusWarn, "none; run `shotreel storyboard <prompt>`", colorize))
				}

				if !check {
					return nil
				}
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Services", colorize) {
					fmt.Fprintln(out, line)
				}
				results := append(preflight.RunAll(reqCtx, ws.cfg), preflight.CheckNotificationsFromConfig(ws.cfg))
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
						if r.Name == "Notifications" {
							kind = statusInfo
						}
					}
					fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Also check the LLM, render backend and data directories")
	return cmd
}
