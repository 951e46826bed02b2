package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"shotreel/internal/shots"
)

// resolveShot finds a shot by 1-based number or by id.
func resolveShot(ctx context.Context, store *shots.Store, arg string) (shots.Shot, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return shots.Shot{}, errors.New("shot number or id is required")
	}

	if number, err := strconv.Atoi(arg); err == nil {
		list, err := store.List(ctx)
		if err != nil {
			return shots.Shot{}, err
		}
		for _, shot := range list {
			if shot.Number == number {
				return shot, nil
			}
		}
		return shots.Shot{}, fmt.Errorf("shot %d not found (%d shots exist)", number, len(list))
	}

	shot, err := store.Get(ctx, arg)
	if err != nil {
		return shots.Shot{}, err
	}
	if shot == nil {
		return shots.Shot{}, fmt.Errorf("shot %s not found", arg)
	}
	return *shot, nil
}

func formatSeconds(frames int) string {
	return strconv.FormatFloat(float64(frames)/shots.FramesPerSecond, 'f', 1, 64) + "s"
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
