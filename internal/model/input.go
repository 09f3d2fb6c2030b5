package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Scores and prices travel as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Input is a decoded, validated request record for one table.
type Input interface {
	Row() Row
}

type AssetInput struct {
	AssetID *int64  `json:"asset_id" validate:"omitempty,gt=0"`
	Tag     *string `json:"tag" validate:"omitempty,min=1,max=128"`
	URL     *string `json:"url" validate:"omitempty,min=1,max=512"`
}

func (in AssetInput) Row() Row {
	row := Row{}
	set(row, "asset_id", in.AssetID)
	set(row, "tag", in.Tag)
	set(row, "url", in.URL)
	return row
}

type DescriptionInput struct {
	Brand   *string `json:"brand" validate:"omitempty,max=128"`
	Country *string `json:"country" validate:"omitempty,max=128"`
	Name    *string `json:"name" validate:"omitempty,max=256"`
	Region  *string `json:"region" validate:"omitempty,max=128"`
	Size    *string `json:"size" validate:"omitempty,max=64"`
	Style   *string `json:"style" validate:"omitempty,max=128"`
	Summary *string `json:"summary" validate:"omitempty,max=2048"`
	Type    *string `json:"type" validate:"omitempty,max=64"`
	Units   *string `json:"units" validate:"omitempty,max=64"`
}

func (in DescriptionInput) Row() Row {
	row := Row{}
	set(row, "brand", in.Brand)
	set(row, "country", in.Country)
	set(row, "name", in.Name)
	set(row, "region", in.Region)
	set(row, "size", in.Size)
	set(row, "style", in.Style)
	set(row, "summary", in.Summary)
	set(row, "type", in.Type)
	set(row, "units", in.Units)
	return row
}

type InventoryInput struct {
	StoreID  *int64 `json:"store_id" validate:"omitempty,gt=0"`
	Quantity *int64 `json:"quantity" validate:"omitempty,gte=0"`
}

func (in InventoryInput) Row() Row {
	row := Row{}
	set(row, "store_id", in.StoreID)
	set(row, "quantity", in.Quantity)
	return row
}

type PriceInput struct {
	Retail *decimal.Decimal `json:"retail" validate:"omitempty,gte=0"`
	Sale   *decimal.Decimal `json:"sale" validate:"omitempty,gte=0"`
}

func (in PriceInput) Row() Row {
	row := Row{}
	set(row, "retail", in.Retail)
	set(row, "sale", in.Sale)
	return row
}

type RatingInput struct {
	Count *int64           `json:"count" validate:"omitempty,gte=0"`
	Score *decimal.Decimal `json:"score" validate:"omitempty,gte=0,lte=5"`
}

func (in RatingInput) Row() Row {
	row := Row{}
	set(row, "count", in.Count)
	set(row, "score", in.Score)
	return row
}

type ReviewInput struct {
	ReviewID *int64           `json:"review_id" validate:"omitempty,gt=0"`
	Author   *string          `json:"author" validate:"omitempty,min=1,max=128"`
	Score    *decimal.Decimal `json:"score" validate:"omitempty,gte=0,lte=5"`
	Summary  *string          `json:"summary" validate:"omitempty,max=2048"`
	UserID   *uuid.UUID       `json:"user_id"`
}

func (in ReviewInput) Row() Row {
	row := Row{}
	set(row, "review_id", in.ReviewID)
	set(row, "author", in.Author)
	set(row, "score", in.Score)
	set(row, "summary", in.Summary)
	if in.UserID != nil {
		row["user_id"] = in.UserID.String()
	}
	return row
}

type StoreInput struct {
	Address   *string          `json:"address" validate:"omitempty,max=256"`
	City      *string          `json:"city" validate:"omitempty,max=128"`
	Latitude  *decimal.Decimal `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *decimal.Decimal `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Name      *string          `json:"name" validate:"omitempty,max=256"`
	State     *string          `json:"state" validate:"omitempty,max=64"`
	ZipCode   *string          `json:"zip_code" validate:"omitempty,max=16"`
}

func (in StoreInput) Row() Row {
	row := Row{}
	set(row, "address", in.Address)
	set(row, "city", in.City)
	set(row, "latitude", in.Latitude)
	set(row, "longitude", in.Longitude)
	set(row, "name", in.Name)
	set(row, "state", in.State)
	set(row, "zip_code", in.ZipCode)
	return row
}

func set[T any](row Row, column string, v *T) {
	if v != nil {
		row[column] = *v
	}
}
