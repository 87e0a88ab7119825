// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeberg.org/oliverandrich/identity-recovery/internal/events"
	"codeberg.org/oliverandrich/identity-recovery/internal/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readEvent reads one SSE event (up to the blank line) and returns its lines.
func readEvent(t *testing.T, r *bufio.Reader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			return lines
		}
		lines = append(lines, line)
	}
}

func TestEvents_Stream(t *testing.T) {
	d := events.NewDispatcher()
	h := handlers.New(nil, nil, d)
	srv := httptest.NewServer(newEcho(h))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/admin/events?name="+events.PostGetUserRecoveryData, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	assert.Equal(t, []string{"event: connected", "data: ok"}, readEvent(t, r))
	require.Equal(t, 1, d.SubscriberCount())

	require.NoError(t, d.HandleEvent(context.Background(), events.Event{
		Name:       events.PreGetUserRecoveryData,
		Properties: map[string]any{events.PropUserName: "ignored"},
	}))
	require.NoError(t, d.HandleEvent(context.Background(), events.Event{
		Name: events.PostGetUserRecoveryData,
		Properties: map[string]any{
			events.PropUserName:         "alice",
			events.PropConfirmationCode: "s3cret",
		},
	}))

	lines := readEvent(t, r)
	require.Len(t, lines, 2)
	assert.Equal(t, "event: "+events.PostGetUserRecoveryData, lines[0])
	assert.Contains(t, lines[1], `"user-name":"alice"`)
	assert.NotContains(t, lines[1], "s3cret")

	cancel()
	assert.Eventually(t, func() bool { return d.SubscriberCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestEvents_Heartbeat(t *testing.T) {
	d := events.NewDispatcher()
	h := handlers.New(nil, nil, d)
	h.SetHeartbeat(10 * time.Millisecond)
	srv := httptest.NewServer(newEcho(h))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/admin/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	readEvent(t, r)
	assert.Equal(t, []string{": heartbeat"}, readEvent(t, r))
}

func TestEvents_Disabled(t *testing.T) {
	e := newEcho(handlers.New(nil, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/admin/events", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
