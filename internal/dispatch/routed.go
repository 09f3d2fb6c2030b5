package dispatch

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iyhunko/product-catalog/internal/metrics"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/outcome"
)

const (
	routeLocal  = "local"
	routeRemote = "remote"
)

// Routed sends each request to the remote dispatcher when its kind is
// configured as remote and to the local one otherwise.
type Routed struct {
	local   Dispatcher
	remote  Dispatcher
	remotes map[model.Kind]bool
}

// NewRouted creates a Routed dispatcher. remoteKinds are served by remote.
func NewRouted(local, remote Dispatcher, remoteKinds ...model.Kind) *Routed {
	r := &Routed{local: local, remote: remote, remotes: make(map[model.Kind]bool, len(remoteKinds))}
	for _, k := range remoteKinds {
		r.remotes[k] = true
	}
	return r
}

// IsRemote reports whether kind is routed to the remote dispatcher.
func (r *Routed) IsRemote(kind model.Kind) bool {
	return r.remotes[kind]
}

func (r *Routed) Invoke(ctx context.Context, req Request) outcome.Outcome {
	route, d := routeLocal, r.local
	if r.IsRemote(req.Kind) {
		route, d = routeRemote, r.remote
	}
	if d == nil {
		slog.ErrorContext(ctx, "no dispatcher for kind",
			slog.String("kind", req.Kind.String()),
			slog.String("route", route),
		)
		return outcome.Internal()
	}

	o := d.Invoke(ctx, req)
	metrics.DispatchOutcomes.WithLabelValues(req.Kind.String(), string(req.Op), route, strconv.Itoa(o.StatusCode)).Inc()
	if o.StatusCode >= http.StatusInternalServerError {
		slog.WarnContext(ctx, "dispatched operation failed",
			slog.String("kind", req.Kind.String()),
			slog.String("op", string(req.Op)),
			slog.String("route", route),
			slog.Int64("key", req.Key),
			slog.Int("status", o.StatusCode),
		)
	}
	return o
}
