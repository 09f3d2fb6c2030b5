package model

import (
	"errors"
	"fmt"
)

// Kind names one entity type of the catalog. It doubles as the URL segment
// under which the entity is served.
type Kind string

const (
	KindProducts    Kind = "products"
	KindSkus        Kind = "skus"
	KindAssets      Kind = "assets"
	KindDescription Kind = "description"
	KindInventory   Kind = "inventory"
	KindPrice       Kind = "price"
	KindRating      Kind = "rating"
	KindReviews     Kind = "reviews"
	KindStores      Kind = "stores"
)

// ErrUnknownKind is returned when a name does not match any entity kind.
var ErrUnknownKind = errors.New("unknown kind")

// Components are the sub-resources a composite product create requires,
// in the order their outcomes take precedence.
var Components = []Kind{KindAssets, KindDescription, KindInventory, KindPrice, KindRating}

// Kinds lists every kind backed by a table.
var Kinds = []Kind{KindSkus, KindAssets, KindDescription, KindInventory, KindPrice, KindRating, KindReviews, KindStores}

var dependencies = map[Kind][]Kind{
	KindProducts:    {KindSkus, KindAssets, KindDescription, KindInventory, KindPrice, KindRating, KindReviews, KindStores},
	KindAssets:      {KindSkus},
	KindDescription: {KindSkus},
	KindInventory:   {KindSkus, KindStores},
	KindPrice:       {KindSkus},
	KindRating:      {KindSkus},
	KindReviews:     {KindSkus, KindRating},
}

// ParseKind resolves a kind from its name.
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	if k == KindProducts {
		return k, nil
	}
	if _, ok := tables[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return k, nil
}

// Dependencies returns the kinds k calls into while serving requests.
func (k Kind) Dependencies() []Kind {
	return dependencies[k]
}

func (k Kind) String() string {
	return string(k)
}
