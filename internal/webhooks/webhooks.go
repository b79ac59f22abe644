// Package webhooks notifies external endpoints about applied dashboard
// mutations.
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultTimeout     = 500 * time.Millisecond
	defaultConcurrency = 4
)

// Event is the webhook payload for one applied mutation.
type Event struct {
	Action string          `json:"action"`
	Target string          `json:"target"`
	Params json.RawMessage `json:"params"`
	At     string          `json:"at"`
}

// Dispatcher posts events to a fixed set of endpoints. Deliveries run in the
// background; Wait blocks until they finish.
type Dispatcher struct {
	urls   []string
	client *http.Client
	logger *slog.Logger
	wg     sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClient replaces the HTTP client.
func WithClient(client *http.Client) Option {
	return func(d *Dispatcher) { d.client = client }
}

// WithLogger sets the logger for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// New creates a dispatcher for urls. Blank and duplicate entries are dropped.
// URLs may contain {action} and {target} placeholders.
func New(urls []string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client: &http.Client{Timeout: defaultTimeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	seen := make(map[string]struct{}, len(urls))
	for _, raw := range urls {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		d.urls = append(d.urls, trimmed)
	}
	return d
}

// URLs returns the configured endpoint templates.
func (d *Dispatcher) URLs() []string {
	return d.urls
}

// Targets resolves the endpoint templates for ev, skipping anything that is
// not an absolute http or https URL.
func (d *Dispatcher) Targets(ev Event) []string {
	seen := make(map[string]struct{}, len(d.urls))
	var targets []string

	for _, raw := range d.urls {
		templated := strings.TrimSpace(applyTemplate(raw, ev))
		templated = strings.TrimRight(templated, "/")
		if templated == "" {
			continue
		}
		if !isValidWebhookURL(templated) {
			d.logger.Warn("skipping invalid webhook url", "url", templated)
			continue
		}
		if _, ok := seen[templated]; ok {
			continue
		}
		seen[templated] = struct{}{}
		targets = append(targets, templated)
	}
	return targets
}

// Notify delivers ev to every target in the background.
func (d *Dispatcher) Notify(ctx context.Context, ev Event) {
	targets := d.Targets(ev)
	if len(targets) == 0 {
		return
	}

	body, err := json.Marshal(ev)
	if err != nil {
		d.logger.Warn("failed to encode webhook payload", "error", err)
		return
	}

	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.dispatch(ctx, targets, body)
	}()
}

// Wait blocks until every pending delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func applyTemplate(raw string, ev Event) string {
	result := strings.ReplaceAll(raw, "{action}", url.PathEscape(ev.Action))
	result = strings.ReplaceAll(result, "{target}", url.PathEscape(ev.Target))
	return result
}

func isValidWebhookURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}

func (d *Dispatcher) dispatch(ctx context.Context, targets []string, body []byte) {
	workers := min(defaultConcurrency, len(targets))

	jobs := make(chan string)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for endpoint := range jobs {
				d.send(ctx, endpoint, body)
			}
		}()
	}

	for _, endpoint := range targets {
		jobs <- endpoint
	}
	close(jobs)
	wg.Wait()
}

func (d *Dispatcher) send(ctx context.Context, endpoint string, body []byte) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		d.logger.Warn("failed to build webhook request", "url", endpoint, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("webhook request failed", "url", endpoint, "error", err)
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		d.logger.Warn("webhook rejected", "url", endpoint, "status", resp.StatusCode)
	}
}
