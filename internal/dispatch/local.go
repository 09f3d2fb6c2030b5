package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/outcome"
	"github.com/iyhunko/product-catalog/internal/resource"
)

// Local invokes in-process handlers. Payloads are marshaled to JSON first so
// local and remote calls share one decode path.
type Local struct {
	mu       sync.RWMutex
	handlers map[model.Kind]resource.Operations
}

// NewLocal creates a Local dispatcher over handlers.
func NewLocal(handlers map[model.Kind]resource.Operations) *Local {
	l := &Local{handlers: make(map[model.Kind]resource.Operations, len(handlers))}
	for k, h := range handlers {
		l.handlers[k] = h
	}
	return l
}

// Register sets or replaces the handler for kind.
func (l *Local) Register(kind model.Kind, h resource.Operations) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[kind] = h
}

// Handles reports whether kind has a handler.
func (l *Local) Handles(kind model.Kind) bool {
	_, ok := l.handler(kind)
	return ok
}

func (l *Local) handler(kind model.Kind) (resource.Operations, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h, ok := l.handlers[kind]
	return h, ok
}

func (l *Local) Invoke(ctx context.Context, req Request) outcome.Outcome {
	h, ok := l.handler(req.Kind)
	if !ok {
		slog.ErrorContext(ctx, "no local handler", slog.String("kind", req.Kind.String()))
		return outcome.Internal()
	}

	body, err := marshalPayload(req.Payload)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal payload", slog.String("kind", req.Kind.String()), slog.Any("err", err))
		return outcome.Internal()
	}

	switch req.Op {
	case outcome.OpCreate:
		return h.Create(ctx, req.Key, body)
	case outcome.OpRead:
		switch {
		case req.Item != 0:
			return h.ReadItem(ctx, req.Key, req.Item, req.Query)
		case req.Key == 0:
			return h.List(ctx, req.Query)
		}
		return h.Read(ctx, req.Key, req.Query)
	case outcome.OpUpdate:
		if req.Item != 0 {
			return h.UpdateItem(ctx, req.Key, req.Item, body)
		}
		return h.Update(ctx, req.Key, body)
	case outcome.OpDelete:
		if req.Item != 0 {
			return h.DeleteItem(ctx, req.Key, req.Item)
		}
		return h.Delete(ctx, req.Key)
	}

	slog.ErrorContext(ctx, "unknown operation", slog.String("kind", req.Kind.String()), slog.String("op", string(req.Op)))
	return outcome.Internal()
}

func marshalPayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	case []byte:
		return p, nil
	}
	return json.Marshal(payload)
}
