// Package stitch combines rendered shots into the final video.
package stitch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"shotreel/internal/codegen"
	"shotreel/internal/logging"
	"shotreel/internal/render"
	"shotreel/internal/services"
	"shotreel/internal/shots"
)

// TransitionFrames is the crossfade length between consecutive shots.
const TransitionFrames = 15

// Stitcher submits compositions and waits for the combined render.
type Stitcher struct {
	client   *render.Client
	maxPolls int
	logger   *slog.Logger
}

// New builds a stitcher that polls at most maxPolls times.
func New(client *render.Client, maxPolls int, logger *slog.Logger) *Stitcher {
	if maxPolls <= 0 {
		maxPolls = render.StitchMaxPolls
	}
	return &Stitcher{
		client:   client,
		maxPolls: maxPolls,
		logger:   logging.NewComponentLogger(logger, "stitch"),
	}
}

// BuildComposition orders shots by number and computes the composition
// length, which overlaps each pair of neighbours by TransitionFrames.
func BuildComposition(list []shots.Shot) (render.Composition, error) {
	if len(list) == 0 {
		return render.Composition{}, services.Wrap(services.ErrValidation, "stitch", "compose", "no shots to stitch", nil)
	}
	sorted := append([]shots.Shot(nil), list...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	comp := render.Composition{
		Segments:         make([]render.Segment, 0, len(sorted)),
		TransitionFrames: TransitionFrames,
		FramesPerSecond:  shots.FramesPerSecond,
	}
	for _, shot := range sorted {
		if !shot.HasCode() {
			return render.Composition{}, services.Wrap(services.ErrValidation, "stitch", "compose",
				fmt.Sprintf("shot %d has no code", shot.Number), nil)
		}
		if shot.DurationFrames <= 0 {
			return render.Composition{}, services.Wrap(services.ErrValidation, "stitch", "compose",
				fmt.Sprintf("shot %d has non-positive duration", shot.Number), nil)
		}
		comp.Segments = append(comp.Segments, render.Segment{
			ShotID:         shot.ID,
			Number:         shot.Number,
			Code:           codegen.CleanCode(shot.Code),
			DurationFrames: shot.DurationFrames,
		})
		comp.TotalFrames += shot.DurationFrames
	}
	comp.TotalFrames -= TransitionFrames * (len(sorted) - 1)
	return comp, nil
}

// Stitch renders the shots as one video and returns its URL.
func (s *Stitcher) Stitch(ctx context.Context, list []shots.Shot, onProgress render.ProgressFunc) (string, error) {
	comp, err := BuildComposition(list)
	if err != nil {
		return "", err
	}
	ctx = services.WithStage(ctx, "stitch")
	logger := logging.WithContext(ctx, s.logger)

	logger.Info("stitching shots",
		logging.Int("shot_count", len(comp.Segments)),
		logging.Int("total_frames", comp.TotalFrames),
	)
	url, err := s.client.SubmitCompositionAndAwait(ctx, comp, s.maxPolls, onProgress)
	if err != nil {
		if !render.IsConfigError(err) {
			logging.ErrorWithContext(logger, "stitch failed", "stitch_failed",
				logging.String("reason", render.Message(err)),
				logging.String(logging.FieldErrorHint, "check the render backend and retry the stitch"),
			)
		}
		return "", err
	}
	return url, nil
}
