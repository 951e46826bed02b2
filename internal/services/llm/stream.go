package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"shotreel/internal/logging"
)

const streamDoneMarker = "[DONE]"

type streamChunk struct {
	Choices []struct {
		Delta        chatResponseMessage `json:"delta"`
		FinishReason string              `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

// Stream issues a streaming chat completion and calls onDelta with each
// content fragment in arrival order. It returns once the provider signals
// completion. Connection failures are retried until the first fragment has
// been delivered; after that any failure is returned as-is.
func (c *Client) Stream(ctx context.Context, systemPrompt, userPrompt string, onDelta func(string) error) error {
	if onDelta == nil {
		return errors.New("llm stream: delta callback required")
	}
	payload, err := c.buildRequest("llm stream", systemPrompt, userPrompt)
	if err != nil {
		return err
	}
	payload.Stream = true
	payload.Temperature = 0.7

	return c.withRetry(ctx, "llm stream", func() error {
		delivered, err := c.streamOnce(ctx, payload, onDelta)
		if err != nil && delivered {
			return errNoRetry{err: err}
		}
		return err
	})
}

func (c *Client) streamOnce(ctx context.Context, payload chatRequest, onDelta func(string) error) (bool, error) {
	req, err := c.newRequest(ctx, payload)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	delivered := false
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Comment lines (": OPENROUTER PROCESSING") keep the connection alive.
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == streamDoneMarker {
			return delivered, nil
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.logger.Debug("skipping malformed stream chunk",
				logging.Error(err),
				logging.String("chunk", truncateChunk(data)),
			)
			continue
		}
		if chunk.Error != nil {
			return delivered, errors.New("llm stream: api error: " + strings.TrimSpace(chunk.Error.Message))
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			delivered = true
			if err := onDelta(choice.Delta.Content); err != nil {
				return delivered, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return delivered, fmt.Errorf("llm stream: read: %w", err)
	}
	if !delivered {
		return false, &emptyContentError{Op: "llm stream", Snippet: "<stream closed>"}
	}
	return delivered, nil
}

func truncateChunk(data string) string {
	const limit = 120
	if len(data) <= limit {
		return data
	}
	return data[:limit] + "..."
}
