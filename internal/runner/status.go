package runner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/stagehand-dev/stagehand/internal/domain"
)

type MessageType string

const (
	MsgRunStarted    MessageType = "run_started"
	MsgStepStarted   MessageType = "step_started"
	MsgStepCompleted MessageType = "step_completed"
	MsgStepFailed    MessageType = "step_failed"
	MsgRunCompleted  MessageType = "run_completed"
)

// StatusMessage is one line of the JSON-lines progress stream.
type StatusMessage struct {
	Type      MessageType        `json:"type"`
	RunID     string             `json:"run_id,omitempty"`
	StepID    string             `json:"step_id,omitempty"`
	Status    string             `json:"status,omitempty"`
	Error     string             `json:"error,omitempty"`
	ErrorKind domain.FailureKind `json:"error_kind,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// StatusWriter emits run progress as JSON lines, one message per
// event, so a supervising process can follow along.
type StatusWriter struct {
	enc *json.Encoder
}

func NewStatusWriter(w io.Writer) *StatusWriter {
	return &StatusWriter{enc: json.NewEncoder(w)}
}

func (s *StatusWriter) RunStarted(runID string) {
	s.write(StatusMessage{Type: MsgRunStarted, RunID: runID})
}

func (s *StatusWriter) StepStarted(runID, stepID string) {
	s.write(StatusMessage{Type: MsgStepStarted, RunID: runID, StepID: stepID})
}

func (s *StatusWriter) StepFinished(runID string, result *domain.StepResult) {
	msg := StatusMessage{
		RunID:  runID,
		StepID: result.StepID,
		Status: string(result.Status),
	}
	if result.Status == domain.StepFailed {
		msg.Type = MsgStepFailed
		msg.Error = result.Error
		msg.ErrorKind = result.ErrorKind
	} else {
		msg.Type = MsgStepCompleted
	}
	s.write(msg)
}

func (s *StatusWriter) RunCompleted(runID string, status domain.RunStatus) {
	s.write(StatusMessage{Type: MsgRunCompleted, RunID: runID, Status: string(status)})
}

func (s *StatusWriter) write(msg StatusMessage) {
	msg.Timestamp = time.Now()
	_ = s.enc.Encode(msg)
}

// ParseStatusStream decodes a captured JSON-lines stream back into
// messages.
func ParseStatusStream(data []byte) ([]StatusMessage, error) {
	var msgs []StatusMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var msg StatusMessage
		if err := dec.Decode(&msg); err != nil {
			return msgs, fmt.Errorf("failed to decode status message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
