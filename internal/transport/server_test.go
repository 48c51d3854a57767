package transport_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stagehand-dev/stagehand/internal/domain"
	"github.com/stagehand-dev/stagehand/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, handler http.Handler) *transport.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return transport.NewClient(srv.URL, 5*time.Second)
}

func TestAlive(t *testing.T) {
	client := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	assert.True(t, client.Alive(context.Background()))
}

func TestAlive_DownServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := transport.NewClient(srv.URL, time.Second)

	assert.False(t, client.Alive(context.Background()))
}

func TestCreateSession(t *testing.T) {
	client := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/session", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"id": "sess-42"})
	}))

	id, err := client.CreateSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-42", id)
}

func TestCreateSession_MissingID(t *testing.T) {
	client := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ok"}`)
	}))

	_, err := client.CreateSession(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.FailTransport, domain.KindOf(err))
}

func TestSendMessage_PartsResponse(t *testing.T) {
	client := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/session/s1/message", r.URL.Path)

		var body struct {
			Parts []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"parts"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Parts, 1)
		assert.Equal(t, "text", body.Parts[0].Type)
		assert.Equal(t, "hi", body.Parts[0].Text)

		fmt.Fprint(w, `{"parts": [{"type": "text", "text": "Hello"}, {"type": "tool", "text": "skip"}, {"type": "text", "text": " world"}]}`)
	}))

	got, err := client.SendMessage(context.Background(), "s1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", got)
}

func TestSendMessage_HTTPError(t *testing.T) {
	client := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session expired", http.StatusGone)
	}))

	_, err := client.SendMessage(context.Background(), "s1", "hi")
	require.Error(t, err)
	assert.Equal(t, domain.FailTransport, domain.KindOf(err))
	assert.Contains(t, err.Error(), "410")
	assert.Contains(t, err.Error(), "session expired")
}

func TestExtractMessageText(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"parts", `{"parts": [{"type": "text", "text": "a"}, {"type": "text", "text": "b"}]}`, "ab"},
		{"flat text", `{"text": "plain"}`, "plain"},
		{"empty flat text", `{"text": ""}`, ""},
		{"unknown shape", `{"weird": true}`, `{"weird": true}`},
		{"not json", `plain prose`, "plain prose"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, transport.ExtractMessageText([]byte(tc.body)))
		})
	}
}

func sseHandler(t *testing.T, frames []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/session/s1/prompt_async":
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/event":
			require.Equal(t, "s1", r.URL.Query().Get("session"))
			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)
			for _, frame := range frames {
				fmt.Fprintf(w, "data: %s\n\n", frame)
				flusher.Flush()
			}
		default:
			http.NotFound(w, r)
		}
	})
}

func TestStreamMessage_YieldsDeltasUntilComplete(t *testing.T) {
	client := newBackend(t, sseHandler(t, []string{
		`{"type": "message.part.delta", "delta": {"text": "Hel"}}`,
		`{"type": "message.part.delta", "delta": {"text": "lo"}}`,
		`{"type": "message.complete"}`,
		`{"type": "message.part.delta", "delta": {"text": "never seen"}}`,
	}))

	fragments, err := client.StreamMessage(context.Background(), "s1", "say hello")
	require.NoError(t, err)

	var got []string
	for f := range fragments {
		got = append(got, f)
	}
	assert.Equal(t, []string{"Hel", "lo"}, got)
}

func TestStreamMessage_WholePartsAndGarbageFrames(t *testing.T) {
	client := newBackend(t, sseHandler(t, []string{
		`not json at all`,
		`{"type": "message.part", "part": {"type": "text", "text": "full part"}}`,
		`{"type": "message.part", "part": {"type": "tool", "text": "skipped"}}`,
		`{"type": "message.complete"}`,
	}))

	fragments, err := client.StreamMessage(context.Background(), "s1", "go")
	require.NoError(t, err)

	var got []string
	for f := range fragments {
		got = append(got, f)
	}
	assert.Equal(t, []string{"full part"}, got)
}

func TestStreamMessage_AbandonedConsumerDoesNotBlock(t *testing.T) {
	// An endless stream the consumer walks away from.
	client := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session/s1/prompt_async":
			w.WriteHeader(http.StatusOK)
		case "/event":
			flusher := w.(http.Flusher)
			for i := 0; ; i++ {
				if _, err := fmt.Fprintf(w, "data: {\"type\": \"message.part.delta\", \"delta\": {\"text\": \"chunk\"}}\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	fragments, err := client.StreamMessage(ctx, "s1", "go")
	require.NoError(t, err)

	<-fragments // take one fragment, then walk away
	cancel()

	// The producer must close the channel shortly after cancellation.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, open := <-fragments:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("producer did not shut down after consumer cancelled")
		}
	}
}

func TestStreamMessage_AsyncPostFailure(t *testing.T) {
	client := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such session", http.StatusNotFound)
	}))

	_, err := client.StreamMessage(context.Background(), "s1", "go")
	require.Error(t, err)
	assert.Equal(t, domain.FailTransport, domain.KindOf(err))
}
