package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// Server-sent event types on the /event channel.
const (
	eventPartDelta = "message.part.delta"
	eventPart      = "message.part"
	eventComplete  = "message.complete"
)

// eventEnvelope is the JSON payload of one SSE data frame.
type eventEnvelope struct {
	Type  string `json:"type"`
	Delta *struct {
		Text string `json:"text"`
	} `json:"delta"`
	Part *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"part"`
}

// readEventStream consumes SSE frames from r and forwards text
// fragments until the server signals message completion, r ends, or ctx
// is cancelled. Frames that do not parse as the expected envelope are
// skipped, not fatal.
func readEventStream(ctx context.Context, r io.Reader, fragments chan<- string) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}

		var event eventEnvelope
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}

		switch event.Type {
		case eventPartDelta:
			if event.Delta != nil && event.Delta.Text != "" {
				if !send(ctx, fragments, event.Delta.Text) {
					return
				}
			}
		case eventPart:
			if event.Part != nil && event.Part.Type == "text" && event.Part.Text != "" {
				if !send(ctx, fragments, event.Part.Text) {
					return
				}
			}
		case eventComplete:
			return
		}
	}
}

// send delivers one fragment unless the consumer has gone away.
func send(ctx context.Context, fragments chan<- string, text string) bool {
	select {
	case fragments <- text:
		return true
	case <-ctx.Done():
		return false
	}
}
