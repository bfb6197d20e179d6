package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// pushTimeout bounds a single background push.
const pushTimeout = 5 * time.Second

// labelSanitize replaces characters Loki does not accept in label values.
var labelSanitize = regexp.MustCompile(`[^a-zA-Z0-9_\-:]`)

type lokiPush struct {
	Streams []lokiStream `json:"streams"`
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"` // [timestamp_ns, line]
}

// lokiLine is the JSON log line for one event.
type lokiLine struct {
	Action   string `json:"action"`
	Channel  string `json:"channel"`
	Provider string `json:"provider,omitempty"`
	Reason   string `json:"reason,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	At       string `json:"at"`
}

// LokiSink pushes decision events to Grafana Loki. LogDecision pushes in the background;
// failures are logged and dropped.
type LokiSink struct {
	pushURL string
	client  *http.Client
	job     string
	wg      sync.WaitGroup
}

// NewLokiSink returns a sink pushing to baseURL (e.g. http://localhost:3100). A nil client
// uses http.DefaultClient.
func NewLokiSink(baseURL, job string, client *http.Client) (*LokiSink, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("audit: loki base URL is empty")
	}
	if client == nil {
		client = http.DefaultClient
	}
	if job == "" {
		job = "next-auth-practice"
	}
	return &LokiSink{
		pushURL: strings.TrimSuffix(baseURL, "/") + "/loki/api/v1/push",
		client:  client,
		job:     job,
	}, nil
}

// LogDecision implements DecisionLogger. The push does not inherit ctx cancellation.
func (s *LokiSink) LogDecision(_ context.Context, e Event) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := s.Push(ctx, e); err != nil {
			log.Printf("audit: loki push failed: %v", err)
		}
	}()
}

// Push sends e synchronously.
func (s *LokiSink) Push(ctx context.Context, e Event) error {
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	line, err := json.Marshal(lokiLine{
		Action:   e.Action,
		Channel:  e.Channel,
		Provider: e.Provider,
		Reason:   e.Reason,
		UserID:   e.UserID,
		At:       at.Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	labels := map[string]string{"job": s.job}
	for k, v := range map[string]string{"action": e.Action, "channel": e.Channel, "provider": e.Provider} {
		if v = labelSanitize.ReplaceAllString(strings.TrimSpace(v), "_"); v != "" {
			labels[k] = v
		}
	}
	payload, err := json.Marshal(lokiPush{Streams: []lokiStream{{
		Stream: labels,
		Values: [][]string{{strconv.FormatInt(at.UnixNano(), 10), string(line)}},
	}}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.pushURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("audit: loki push returned %s", resp.Status)
	}
	return nil
}

// Close waits for in-flight pushes or until ctx ends.
func (s *LokiSink) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Multi fans each event out to every logger in order.
type Multi []DecisionLogger

// LogDecision implements DecisionLogger.
func (m Multi) LogDecision(ctx context.Context, e Event) {
	for _, l := range m {
		if l != nil {
			l.LogDecision(ctx, e)
		}
	}
}
