package model

import "slices"

// ColumnType tells stores how to normalize a scanned value.
type ColumnType int

const (
	Integer ColumnType = iota
	Text
	Decimal
	Timestamp
	UUID
)

// Shape describes how rows of a table are addressed.
type Shape int

const (
	// ShapeRoot rows are addressed by their own key (skus, stores).
	ShapeRoot Shape = iota
	// ShapeSingle tables hold at most one row per sku.
	ShapeSingle
	// ShapeList tables hold many rows per sku, each addressed by an item column.
	ShapeList
)

const (
	ColumnSkuID   = "sku_id"
	ColumnCreated = "created"
	ColumnUpdated = "updated"
)

// Row is one record as exchanged with stores: column name to value.
type Row map[string]any

type Column struct {
	Name string
	Type ColumnType
}

// Table declares everything stores, handlers and the query compiler need to
// know about an entity: its columns, keys, ordering and allow-lists.
type Table struct {
	Name   string
	Kind   Kind
	Shape  Shape
	Key    string
	Serial bool
	Parent string
	Item   string
	Order  string

	Columns []Column
	Unique  [][]string

	// Masked columns are never projected.
	Masked []string
	// Hidden columns are never eligible for filtering.
	Hidden []string
	// Required columns must be present on create.
	Required []string
}

var tables = map[Kind]Table{
	KindSkus: {
		Name:    "sku",
		Kind:    KindSkus,
		Shape:   ShapeRoot,
		Key:     ColumnSkuID,
		Order:   ColumnSkuID,
		Columns: columns(ColumnSkuID, Integer),
		Hidden:  []string{ColumnCreated, ColumnUpdated},
	},
	KindStores: {
		Name:  "store",
		Kind:  KindStores,
		Shape: ShapeRoot,
		Key:   "store_id",
		Order: "store_id",
		Columns: columns(
			"address", Text,
			"city", Text,
			"latitude", Decimal,
			"longitude", Decimal,
			"name", Text,
			"state", Text,
			"store_id", Integer,
			"zip_code", Text,
		),
		Hidden:   []string{ColumnCreated, ColumnUpdated},
		Required: []string{"address", "city", "latitude", "longitude", "name", "state", "zip_code"},
	},
	KindAssets: {
		Name:   "asset",
		Kind:   KindAssets,
		Shape:  ShapeList,
		Key:    "asset_id",
		Serial: true,
		Parent: ColumnSkuID,
		Item:   "asset_id",
		Order:  "asset_id",
		Columns: columns(
			"asset_id", Integer,
			ColumnSkuID, Integer,
			"tag", Text,
			"url", Text,
		),
		Unique:   [][]string{{ColumnSkuID, "tag", "url"}},
		Masked:   []string{ColumnSkuID},
		Hidden:   []string{ColumnCreated, ColumnSkuID, ColumnUpdated},
		Required: []string{"tag", "url"},
	},
	KindDescription: {
		Name:   "description",
		Kind:   KindDescription,
		Shape:  ShapeSingle,
		Key:    ColumnSkuID,
		Parent: ColumnSkuID,
		Order:  ColumnSkuID,
		Columns: columns(
			"brand", Text,
			"country", Text,
			"name", Text,
			"region", Text,
			"size", Text,
			ColumnSkuID, Integer,
			"style", Text,
			"summary", Text,
			"type", Text,
			"units", Text,
		),
		Masked:   []string{ColumnSkuID},
		Hidden:   []string{ColumnCreated, ColumnSkuID, ColumnUpdated},
		Required: []string{"brand", "country", "name", "region", "size", "summary", "type", "units"},
	},
	KindInventory: {
		Name:   "inventory",
		Kind:   KindInventory,
		Shape:  ShapeList,
		Key:    "inventory_id",
		Serial: true,
		Parent: ColumnSkuID,
		Item:   "store_id",
		Order:  "inventory_id",
		Columns: columns(
			"inventory_id", Integer,
			"quantity", Integer,
			ColumnSkuID, Integer,
			"store_id", Integer,
		),
		Unique:   [][]string{{ColumnSkuID, "store_id"}},
		Masked:   []string{"inventory_id", ColumnSkuID},
		Hidden:   []string{ColumnCreated, "inventory_id", ColumnSkuID, ColumnUpdated},
		Required: []string{"quantity", "store_id"},
	},
	KindPrice: {
		Name:   "price",
		Kind:   KindPrice,
		Shape:  ShapeSingle,
		Key:    ColumnSkuID,
		Parent: ColumnSkuID,
		Order:  ColumnSkuID,
		Columns: columns(
			"retail", Decimal,
			"sale", Decimal,
			ColumnSkuID, Integer,
		),
		Masked:   []string{ColumnSkuID},
		Hidden:   []string{ColumnCreated, ColumnSkuID, ColumnUpdated},
		Required: []string{"retail"},
	},
	KindRating: {
		Name:   "rating",
		Kind:   KindRating,
		Shape:  ShapeSingle,
		Key:    ColumnSkuID,
		Parent: ColumnSkuID,
		Order:  ColumnSkuID,
		Columns: columns(
			"count", Integer,
			"score", Decimal,
			ColumnSkuID, Integer,
		),
		Masked:   []string{ColumnSkuID},
		Hidden:   []string{ColumnCreated, ColumnSkuID, ColumnUpdated},
		Required: []string{"count", "score"},
	},
	KindReviews: {
		Name:   "review",
		Kind:   KindReviews,
		Shape:  ShapeList,
		Key:    "review_id",
		Serial: true,
		Parent: ColumnSkuID,
		Item:   "review_id",
		Order:  "review_id",
		Columns: columns(
			"author", Text,
			"review_id", Integer,
			"score", Decimal,
			ColumnSkuID, Integer,
			"summary", Text,
			"user_id", UUID,
		),
		Masked:   []string{ColumnSkuID},
		Hidden:   []string{ColumnCreated, ColumnSkuID, ColumnUpdated},
		Required: []string{"author", "score", "summary"},
	},
}

// columns builds a column list from name/type pairs and appends the audit
// timestamps every table carries.
func columns(pairs ...any) []Column {
	cols := make([]Column, 0, len(pairs)/2+2)
	for i := 0; i+1 < len(pairs); i += 2 {
		cols = append(cols, Column{Name: pairs[i].(string), Type: pairs[i+1].(ColumnType)})
	}
	cols = append(cols,
		Column{Name: ColumnCreated, Type: Timestamp},
		Column{Name: ColumnUpdated, Type: Timestamp},
	)
	return cols
}

// TableFor returns the table declaration backing kind k.
func TableFor(k Kind) (Table, bool) {
	t, ok := tables[k]
	return t, ok
}

// Names returns all column names in declaration order.
func (t Table) Names() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// Has reports whether name is a column of t.
func (t Table) Has(name string) bool {
	_, ok := t.TypeOf(name)
	return ok
}

// TypeOf returns the declared type of a column.
func (t Table) TypeOf(name string) (ColumnType, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c.Type, true
		}
	}
	return 0, false
}

// Projectable returns the columns a read may return.
func (t Table) Projectable() []string {
	return t.without(t.Masked)
}

// Filterable returns the columns a read may filter on.
func (t Table) Filterable() []string {
	return t.without(t.Hidden)
}

func (t Table) without(excluded []string) []string {
	var names []string
	for _, c := range t.Columns {
		if !slices.Contains(excluded, c.Name) {
			names = append(names, c.Name)
		}
	}
	return names
}
