// Package app wires stores, handlers, dispatchers and services into the
// catalog one process serves.
package app

import (
	"slices"

	"github.com/iyhunko/product-catalog/internal/dispatch"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/resource"
	"github.com/iyhunko/product-catalog/internal/service"
)

// Options configure a Catalog.
type Options struct {
	// Stores holds one store per kind served in this process. Every other
	// kind is reached through Remote.
	Stores map[model.Kind]repository.Store
	// Remote serves the kinds without a local store. It may be nil when
	// every kind the process depends on is local.
	Remote dispatch.Dispatcher
	// Publisher receives product notifications. It may be nil.
	Publisher service.Publisher
}

// Catalog is the set of operations one process serves.
type Catalog struct {
	Dispatcher *dispatch.Routed
	Products   *service.ProductService
	local      *dispatch.Local
	handlers   map[model.Kind]resource.Operations
}

// NewCatalog builds handlers for every kind in opts.Stores and routes every
// other kind to opts.Remote.
func NewCatalog(opts Options) *Catalog {
	local := dispatch.NewLocal(nil)

	var remoteKinds []model.Kind
	for _, kind := range model.Kinds {
		if _, ok := opts.Stores[kind]; !ok {
			remoteKinds = append(remoteKinds, kind)
		}
	}
	routed := dispatch.NewRouted(local, opts.Remote, remoteKinds...)

	lookup := func(kind model.Kind) resource.Lookup {
		if store, ok := opts.Stores[kind]; ok {
			table, _ := model.TableFor(kind)
			return resource.StoreLookup(store, table)
		}
		return dispatch.Lookup(routed, kind)
	}

	handlers := make(map[model.Kind]resource.Operations, len(opts.Stores))
	for kind, store := range opts.Stores {
		table, ok := model.TableFor(kind)
		if !ok {
			continue
		}
		var options []resource.Option
		if table.Shape != model.ShapeRoot {
			options = append(options, resource.WithParent(lookup(model.KindSkus)))
		}
		if kind == model.KindInventory {
			options = append(options, resource.WithReference("store_id", lookup(model.KindStores)))
		}
		handlers[kind] = resource.NewHandler(table, store, options...)
	}
	if reviews, ok := handlers[model.KindReviews]; ok {
		handlers[model.KindReviews] = service.NewReviewService(reviews, routed)
	}
	for kind, h := range handlers {
		local.Register(kind, h)
	}

	return &Catalog{
		Dispatcher: routed,
		Products:   service.NewProductService(routed, opts.Publisher),
		local:      local,
		handlers:   handlers,
	}
}

// Handler returns the operations served locally for kind.
func (c *Catalog) Handler(kind model.Kind) (resource.Operations, bool) {
	h, ok := c.handlers[kind]
	return h, ok
}

// Kinds returns the locally served kinds in declaration order.
func (c *Catalog) Kinds() []model.Kind {
	var kinds []model.Kind
	for _, kind := range model.Kinds {
		if c.local.Handles(kind) {
			kinds = append(kinds, kind)
		}
	}
	return slices.Clip(kinds)
}
