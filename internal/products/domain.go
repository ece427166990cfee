// Package products manages the digital-pin catalogue: standalone cards,
// grouped collections, and the themes collections are displayed with.
package products

import "time"

// Product types.
const (
	TypeGrouped = "grouped"
	TypeSingle  = "single"
)

// Image is a logo reference.
type Image struct {
	URL string `json:"url" yaml:"url"`
	Alt string `json:"alt" yaml:"alt"`
}

// BannerImage is the header picture of a theme.
type BannerImage struct {
	URL    string `json:"url" yaml:"url"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

// PartialImage is a decoration placed on top of the banner.
type PartialImage struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	URL    string `json:"url" yaml:"url"`
	X      int    `json:"x" yaml:"x"`
	Y      int    `json:"y" yaml:"y"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

// ColorEntry assigns a value to one of the known colour keys.
type ColorEntry struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Theme styles a grouped product.
type Theme struct {
	ID        string         `json:"id" yaml:"id"`
	Name      string         `json:"name" yaml:"name"`
	Colors    []ColorEntry   `json:"colors" yaml:"colors"`
	Banner    *BannerImage   `json:"banner,omitempty" yaml:"banner"`
	Partials  []PartialImage `json:"partials" yaml:"partials"`
	CreatedAt time.Time      `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt" yaml:"updatedAt"`
}

// Color returns the value of key, falling back to the key's default.
func (t Theme) Color(key string) string {
	for _, c := range t.Colors {
		if c.Key == key {
			return c.Value
		}
	}
	return DefaultColor(key)
}

// SingleProduct is one purchasable card.
type SingleProduct struct {
	ID               string    `json:"id" yaml:"id"`
	Name             string    `json:"name" yaml:"name"`
	Description      string    `json:"description" yaml:"description"`
	Price            float64   `json:"price" yaml:"price"`
	IsActive         bool      `json:"isActive" yaml:"isActive"`
	Logo             *Image    `json:"logo,omitempty" yaml:"logo"`
	GroupedProductID string    `json:"groupedProductId,omitempty" yaml:"groupedProductId"`
	CreatedAt        time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// GroupedProduct is a themed collection of single products.
type GroupedProduct struct {
	ID             string          `json:"id" yaml:"id"`
	Name           string          `json:"name" yaml:"name"`
	Description    string          `json:"description" yaml:"description"`
	IsActive       bool            `json:"isActive" yaml:"isActive"`
	Logo           *Image          `json:"logo,omitempty" yaml:"logo"`
	ThemeID        string          `json:"themeId" yaml:"themeId"`
	Theme          Theme           `json:"theme" yaml:"-"`
	SingleProducts []SingleProduct `json:"singleProducts" yaml:"-"`
	CreatedAt      time.Time       `json:"createdAt" yaml:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt" yaml:"updatedAt"`
}

// Product is the catalogue listing entry: a grouped product or a single
// product that belongs to no group.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	IsActive    bool            `json:"isActive"`
	Grouped     *GroupedProduct `json:"groupedProduct,omitempty"`
	Single      *SingleProduct  `json:"singleProduct,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Price is the single product price, or the lowest active denomination of a
// group. Groups without singles have no price.
func (p Product) Price() *float64 {
	if p.Single != nil {
		price := p.Single.Price
		return &price
	}
	if p.Grouped == nil {
		return nil
	}
	var lowest *float64
	for _, s := range p.Grouped.SingleProducts {
		if lowest == nil || s.Price < *lowest {
			price := s.Price
			lowest = &price
		}
	}
	return lowest
}

// ThemeInput describes a new theme.
type ThemeInput struct {
	Name     string `validate:"required,max=120"`
	Colors   []ColorEntry
	Banner   *BannerImage
	Partials []PartialImage
}

// ThemePatch changes a theme. Nil fields keep their current value.
type ThemePatch struct {
	Name     *string
	Colors   []ColorEntry
	Banner   *BannerImage
	Partials []PartialImage
}

// GroupedInput describes a new grouped product and its theme.
type GroupedInput struct {
	Name        string `validate:"required,max=120"`
	Description string `validate:"max=500"`
	Logo        *Image
	Theme       ThemeInput
}

// SingleInput describes a new single product.
type SingleInput struct {
	Name             string  `validate:"required,max=120"`
	Description      string  `validate:"max=500"`
	Price            float64 `validate:"gt=0"`
	Logo             *Image
	GroupedProductID string
}
