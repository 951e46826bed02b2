package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shotreel/internal/logging"
	"shotreel/internal/render"
	"shotreel/internal/shots"
	"shotreel/internal/workflow"
)

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var stitchAfter bool

	cmd := &cobra.Command{
		Use:   "create <prompt>",
		Short: "Plan a storyboard, then generate and render every shot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			return ctx.withWorkspace(true, func(ws *workspace) error {
				out := cmd.OutOrStdout()
				list, err := planStoryboard(cmd, ws, prompt)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Planned %d shots; generating and rendering...\n", len(list))

				reqCtx := commandCtx(cmd)
				mgr := ws.manager(reqCtx)
				summary, err := mgr.GenerateAndRender(reqCtx)
				if err != nil {
					return err
				}
				printSummary(out, summary)
				if !stitchAfter {
					return nil
				}
				if summary.Failed > 0 || summary.Complete != summary.Total {
					return errors.New("not stitching: some shots failed; fix them and run `shotreel stitch`")
				}
				return runStitch(cmd, mgr)
			})
		},
	}

	cmd.Flags().BoolVar(&stitchAfter, "stitch", false, "Stitch the final video when every shot renders")
	return cmd
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate fresh code for every unfinished shot and render it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(true, func(ws *workspace) error {
				reqCtx := commandCtx(cmd)
				summary, err := ws.manager(reqCtx).GenerateAndRender(reqCtx)
				if err != nil {
					return err
				}
				printSummary(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Render every shot whose code is ready",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(true, func(ws *workspace) error {
				reqCtx := commandCtx(cmd)
				summary, err := ws.manager(reqCtx).RenderReady(reqCtx)
				if err != nil {
					return err
				}
				printSummary(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <shot>",
		Short: "Render a shot again with its existing code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(true, func(ws *workspace) error {
				reqCtx := commandCtx(cmd)
				target, err := resolveShot(reqCtx, ws.store, args[0])
				if err != nil {
					return err
				}
				shot, err := ws.manager(reqCtx).RetryRender(reqCtx, target.ID)
				if err != nil {
					return err
				}
				printShotOutcome(cmd.OutOrStdout(), shot.Number, string(shot.Status), shot.VideoURL, shot.Error)
				return nil
			})
		},
	}
}

func newRegenerateCommand(ctx *commandContext) *cobra.Command {
	var renderAfter bool

	cmd := &cobra.Command{
		Use:   "regenerate <shot> <edit>",
		Short: "Rewrite a shot's code from an edit request",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			edit := strings.Join(args[1:], " ")
			return ctx.withWorkspace(true, func(ws *workspace) error {
				reqCtx := commandCtx(cmd)
				target, err := resolveShot(reqCtx, ws.store, args[0])
				if err != nil {
					return err
				}
				mgr := ws.manager(reqCtx)
				shot, err := mgr.Regenerate(reqCtx, target.ID, edit)
				if err != nil {
					return err
				}
				if renderAfter {
					shot, err = mgr.RetryRender(reqCtx, shot.ID)
					if err != nil {
						return err
					}
				}
				printShotOutcome(cmd.OutOrStdout(), shot.Number, string(shot.Status), shot.VideoURL, shot.Error)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&renderAfter, "render", false, "Render the shot after regenerating it")
	return cmd
}

func newStitchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stitch",
		Short: "Combine every completed shot into the final video",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(true, func(ws *workspace) error {
				return runStitch(cmd, ws.manager(commandCtx(cmd)))
			})
		},
	}
}

func runStitch(cmd *cobra.Command, mgr *workflow.Manager) error {
	errOut := cmd.ErrOrStderr()
	sampler := logging.NewProgressSampler(10)
	url, err := mgr.Stitch(commandCtx(cmd), func(fraction float64) {
		if sampler.ShouldLog(fraction*100, "stitch") {
			fmt.Fprintf(errOut, "Stitching: %3.0f%%\n", fraction*100)
		}
	})
	if err != nil {
		if render.IsConfigError(err) {
			return fmt.Errorf("stitch: %w (%s)", err, notConfiguredHint)
		}
		return fmt.Errorf("stitch: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Final video: %s\n", url)
	return nil
}

const notConfiguredHint = "render backend not configured; set render.base_url and render.api_token in the config file"

func printSummary(out io.Writer, summary workflow.Summary) {
	fmt.Fprintf(out, "%d of %d shots rendered, %d failed in %s\n",
		summary.Complete, summary.Total, summary.Failed, summary.Duration.Round(time.Second))
	fmt.Fprintln(out, renderShotTable(summary.Shots, shouldColorize(out)))
	for _, shot := range summary.Shots {
		if shot.Status == shots.StatusError && render.IsNotConfiguredMessage(shot.Error) {
			fmt.Fprintf(out, "Hint: %s\n", notConfiguredHint)
			return
		}
	}
}

func printShotOutcome(out io.Writer, number int, status, url, message string) {
	switch {
	case url != "":
		fmt.Fprintf(out, "Shot %d %s: %s\n", number, status, url)
	case message != "":
		fmt.Fprintf(out, "Shot %d %s: %s\n", number, status, message)
	default:
		fmt.Fprintf(out, "Shot %d %s\n", number, status)
	}
	if url == "" && render.IsNotConfiguredMessage(message) {
		fmt.Fprintf(out, "Hint: %s\n", notConfiguredHint)
	}
}
