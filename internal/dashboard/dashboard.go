// Package dashboard implements the request surface: one read entry point
// (Get) and one write entry point (Post). Both always return a payload; errors
// and panics become {"error": message} and are never propagated.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lherron/pipeboard/internal/domain"
	"github.com/lherron/pipeboard/internal/metrics"
	"github.com/lherron/pipeboard/internal/store"
	"github.com/lherron/pipeboard/internal/webhooks"
)

// Action names accepted by the entry points.
const (
	ActionGetData                  = "getData"
	ActionUpdateRequirementStatus  = "updateRequirementStatus"
	ActionUpdateTechnologyProgress = "updateTechnologyProgress"
	ActionAddSignoff               = "addSignoff"
	ActionRemoveSignoff            = "removeSignoff"
	ActionSaveDiagram              = "saveDiagram"
)

// InvalidAction is the error message for unrecognized actions.
const InvalidAction = "Invalid action"

const (
	entryGet  = "get"
	entryPost = "post"
)

var errInvalidAction = errors.New(InvalidAction)

// Response is the JSON payload returned by both entry points.
type Response map[string]any

// Error returns the error message carried by r, if any.
func (r Response) Error() (string, bool) {
	msg, ok := r["error"].(string)
	return msg, ok
}

// Service dispatches actions to the store. Calls are serialized.
type Service struct {
	mu       sync.Mutex
	store    *store.Store
	variant  domain.Variant
	logger   *slog.Logger
	metrics  metrics.Recorder
	notifier Notifier
	now      func() time.Time
}

// Notifier is told about every mutation that succeeded.
type Notifier interface {
	Notify(ctx context.Context, ev webhooks.Event)
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the recorder for request outcomes.
func WithMetrics(rec metrics.Recorder) Option {
	return func(s *Service) { s.metrics = rec }
}

// WithNotifier sets the receiver of applied-mutation events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// New creates a service for the given variant.
func New(st *store.Store, variant domain.Variant, opts ...Option) *Service {
	s := &Service{
		store:   st,
		variant: variant,
		logger:  slog.Default(),
		metrics: metrics.Nop{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Variant returns the variant the service was built for.
func (s *Service) Variant() domain.Variant {
	return s.variant
}

// Get handles the read entry point.
func (s *Service) Get(ctx context.Context, action string) Response {
	return s.handle(ctx, entryGet, action, func() (Response, error) {
		if action != ActionGetData {
			return nil, errInvalidAction
		}
		tree, err := s.store.Tree(ctx, s.variant)
		if err != nil {
			return nil, err
		}
		return Response{"success": true, "data": tree.Roots()}, nil
	})
}

// Post handles the write entry point. body is a JSON object whose "action"
// field selects the mutation; the remaining fields are its parameters.
func (s *Service) Post(ctx context.Context, body []byte) Response {
	if !gjson.ValidBytes(body) {
		return s.handle(ctx, entryPost, "", func() (Response, error) {
			return nil, errors.New("invalid JSON body")
		})
	}
	params := gjson.ParseBytes(lastKeyWins(body))
	action := params.Get("action").String()

	return s.handle(ctx, entryPost, action, func() (Response, error) {
		if !s.allows(action) {
			return nil, errInvalidAction
		}
		resp, err := s.mutate(ctx, action, params)
		if err == nil && s.notifier != nil {
			s.notifier.Notify(ctx, webhooks.Event{
				Action: action,
				Target: target(params),
				Params: json.RawMessage(params.Raw),
				At:     domain.FormatSignedAt(s.now()),
			})
		}
		return resp, err
	})
}

// lastKeyWins rewrites a JSON object so each key appears once, holding its
// last value. Bodies that are not objects are returned unchanged.
func lastKeyWins(body []byte) []byte {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return body
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return body
	}
	return bytes.TrimRight(buf.Bytes(), "\n")
}

// target names the row a mutation addressed.
func target(params gjson.Result) string {
	for _, key := range []string{"id", "requirementId", "clientId"} {
		if v := params.Get(key).String(); v != "" {
			return v
		}
	}
	return ""
}

func (s *Service) allows(action string) bool {
	switch action {
	case ActionUpdateRequirementStatus, ActionUpdateTechnologyProgress:
		return true
	case ActionAddSignoff, ActionRemoveSignoff, ActionSaveDiagram:
		return s.variant == domain.VariantFull
	default:
		return false
	}
}

func (s *Service) mutate(ctx context.Context, action string, params gjson.Result) (Response, error) {
	ok := Response{"success": true}

	switch action {
	case ActionUpdateRequirementStatus:
		err := s.store.Requirements.UpdateStatus(ctx, params.Get("id").String(), params.Get("status").String())
		return ok, err

	case ActionUpdateTechnologyProgress:
		err := s.store.Technologies.UpdateProgress(ctx, params.Get("id").String(), params.Get("progress").Value())
		return ok, err

	case ActionAddSignoff:
		signoff, err := s.store.Signoffs.Add(ctx, params.Get("requirementId").String(), params.Get("personName").String())
		if err != nil {
			return nil, err
		}
		return Response{"success": true, "signoff": signoff}, nil

	case ActionRemoveSignoff:
		err := s.store.Signoffs.Remove(ctx, params.Get("id").String())
		return ok, err

	case ActionSaveDiagram:
		var payload json.RawMessage
		if data := params.Get("diagramData"); data.Exists() {
			payload = json.RawMessage(data.Raw)
		}
		err := s.store.Diagrams.Save(ctx, params.Get("clientId").String(), payload)
		return ok, err
	}
	return nil, errInvalidAction
}

// handle serializes fn, converts its error or panic into an error payload and
// records the outcome.
func (s *Service) handle(ctx context.Context, entry, action string, fn func() (Response, error)) (resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	outcome := metrics.OutcomeSuccess

	defer func() {
		if r := recover(); r != nil {
			outcome = metrics.OutcomeError
			s.logger.Error("handler panic", "entry", entry, "action", action, "panic", r)
			resp = Response{"error": fmt.Sprint(r)}
		}
		s.metrics.Observe(ctx, entry, action, outcome, time.Since(start))
	}()

	resp, err := fn()
	switch {
	case errors.Is(err, errInvalidAction):
		outcome = metrics.OutcomeInvalid
		s.logger.Warn("invalid action", "entry", entry, "action", action)
		return Response{"error": InvalidAction}
	case err != nil:
		outcome = metrics.OutcomeError
		s.logger.Warn("action failed", "entry", entry, "action", action, "error", err)
		return Response{"error": err.Error()}
	}

	s.logger.Debug("action handled", "entry", entry, "action", action, "duration", time.Since(start))
	return resp
}
