package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Mode selects which completeness rule Decode applies.
type Mode int

const (
	// ModeCreate requires every column in Table.Required.
	ModeCreate Mode = iota
	// ModeUpdate requires at least one writable column.
	ModeUpdate
)

// ErrInvalidInput is returned for malformed or incomplete payloads.
var ErrInvalidInput = errors.New("invalid input")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

var inputs = map[Kind]func() Input{
	KindAssets:      func() Input { return &AssetInput{} },
	KindDescription: func() Input { return &DescriptionInput{} },
	KindInventory:   func() Input { return &InventoryInput{} },
	KindPrice:       func() Input { return &PriceInput{} },
	KindRating:      func() Input { return &RatingInput{} },
	KindReviews:     func() Input { return &ReviewInput{} },
	KindStores:      func() Input { return &StoreInput{} },
}

// Decode parses and validates a request body for kind k. List tables accept
// either one object or an array of objects; other tables accept one object.
// The returned rows carry only the columns present in the payload.
func Decode(k Kind, raw json.RawMessage, mode Mode) ([]Row, error) {
	table, ok := TableFor(k)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, k)
	}
	newInput, ok := inputs[k]
	if !ok {
		return nil, fmt.Errorf("%w: %s accepts no payload", ErrInvalidInput, k)
	}

	items, err := split(raw, table.Shape == ShapeList)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(items))
	for i, item := range items {
		in := newInput()
		if err := json.Unmarshal(item, in); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrInvalidInput, i, err)
		}
		if err := validate.Struct(in); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrInvalidInput, i, err)
		}
		row := in.Row()
		if err := complete(table, row, mode); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func split(raw json.RawMessage, many bool) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidInput)
	}
	switch trimmed[0] {
	case '{':
		return []json.RawMessage{trimmed}, nil
	case '[':
		if !many {
			return nil, fmt.Errorf("%w: expected an object", ErrInvalidInput)
		}
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("%w: empty list", ErrInvalidInput)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("%w: expected an object or a list", ErrInvalidInput)
	}
}

func complete(t Table, row Row, mode Mode) error {
	if mode == ModeCreate {
		for _, col := range t.Required {
			if _, ok := row[col]; !ok {
				return fmt.Errorf("%w: %s is required", ErrInvalidInput, col)
			}
		}
		return nil
	}
	for col := range row {
		if col != t.Key && col != t.Item {
			return nil
		}
	}
	return fmt.Errorf("%w: nothing to update", ErrInvalidInput)
}

// AcceptsPayload reports whether kind k is written from a request body.
func AcceptsPayload(k Kind) bool {
	_, ok := inputs[k]
	return ok
}
