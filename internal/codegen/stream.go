package codegen

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"shotreel/internal/logging"
)

// Event types carried on the code stream.
const (
	EventCode  = "code"
	EventError = "error"
	EventDone  = "done"
)

const eventPrefix = "data: "

// ErrIncompleteStream reports a stream that ended before its done event.
var ErrIncompleteStream = errors.New("code stream ended without done marker")

// Event is one line of the code stream.
type Event struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// StreamError is an error event received on the code stream.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string { return e.Message }

// EventWriter emits code stream events as "data: {json}" lines separated
// by a blank line. It is safe for concurrent use.
type EventWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEventWriter wraps w.
func NewEventWriter(w io.Writer) *EventWriter {
	return &EventWriter{w: w}
}

// Code emits a code fragment.
func (ew *EventWriter) Code(fragment string) error {
	return ew.write(Event{Type: EventCode, Content: fragment})
}

// Fail emits a terminal error event.
func (ew *EventWriter) Fail(message string) error {
	return ew.write(Event{Type: EventError, Content: message})
}

// Done emits the completion marker.
func (ew *EventWriter) Done() error {
	return ew.write(Event{Type: EventDone})
}

func (ew *EventWriter) write(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	ew.mu.Lock()
	defer ew.mu.Unlock()
	if _, err := io.WriteString(ew.w, eventPrefix+string(payload)+"\n\n"); err != nil {
		return fmt.Errorf("write %s event: %w", ev.Type, err)
	}
	return nil
}

// Accumulate reads a code stream and returns the concatenated code. Code
// events append, an error event aborts with a *StreamError, and the done
// event ends the stream. Lines that are not valid events are logged and
// skipped. Reaching EOF before done returns ErrIncompleteStream.
func Accumulate(ctx context.Context, r io.Reader, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	var code strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), 4<<20)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		var ev Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			logger.Debug("skipping malformed stream line",
				logging.String("line", truncate(payload, 120)),
				logging.Error(err),
			)
			continue
		}
		switch ev.Type {
		case EventCode:
			code.WriteString(ev.Content)
		case EventError:
			message := strings.TrimSpace(ev.Content)
			if message == "" {
				message = "code generation failed"
			}
			return "", &StreamError{Message: message}
		case EventDone:
			return code.String(), nil
		default:
			logger.Debug("skipping unknown stream event", logging.String("event", ev.Type))
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read code stream: %w", err)
	}
	return "", ErrIncompleteStream
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
