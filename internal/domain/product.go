package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlaceholderImageURL is shown for products without an uploaded image.
const PlaceholderImageURL = "/static/placeholder.png"

type Product struct {
	ID          string          `json:"id"`
	CategoryID  string          `json:"categoryId"`
	Category    *Category       `json:"category,omitempty"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	Tags        []Tag           `json:"tags,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ImageURL returns the stored image location or the placeholder.
func (p Product) ImageURL() string {
	if p.Image == "" {
		return PlaceholderImageURL
	}
	return p.Image
}
