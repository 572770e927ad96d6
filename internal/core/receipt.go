package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Food           Category = "Food"
	Utilities      Category = "Utilities"
	Shopping       Category = "Shopping"
	Transportation Category = "Transportation"
	Entertainment  Category = "Entertainment"
	Healthcare     Category = "Healthcare"
	Others         Category = "Others"
)

// Fallback labels applied when an extraction or manual entry omits them.
const (
	UnknownStore = "Unknown Store"
	UnknownItem  = "Unknown Item"
)

type (
	// Category is one of the seven fixed spending buckets.
	Category string

	// ReceiptItem is a single line on a receipt. It has no identity of its
	// own; it lives and dies with its parent receipt.
	ReceiptItem struct {
		Name     string          `json:"name"`
		Price    decimal.Decimal `json:"price"`
		Quantity int             `json:"quantity"`
		Category Category        `json:"category,omitempty"`
	}

	// Receipt is the canonical record of one purchase event.
	Receipt struct {
		ID             string          `json:"id"`
		UserID         string          `json:"user_id"`
		StoreName      string          `json:"store_name"`
		Date           time.Time       `json:"date"`
		TotalAmount    decimal.Decimal `json:"total_amount"`
		Subtotal       decimal.Decimal `json:"subtotal"`
		TaxAmount      decimal.Decimal `json:"tax_amount"`
		DiscountAmount decimal.Decimal `json:"discount_amount"`
		Items          []ReceiptItem   `json:"items"`
		ImageURL       string          `json:"image_url,omitempty"`
		CreatedAt      time.Time       `json:"created_at"`
		UpdatedAt      time.Time       `json:"updated_at"`
	}
)

// Categories lists every valid category in declaration order.
var Categories = []Category{
	Food,
	Utilities,
	Shopping,
	Transportation,
	Entertainment,
	Healthcare,
	Others,
}

var (
	ErrEmptyUserID   = errors.New("empty user id")
	ErrEmptyID       = errors.New("empty receipt id")
	ErrNegativeTotal = errors.New("negative total amount")
)

// ParseCategory resolves free text against the closed category set.
// Matching is case-insensitive: exact first, then prefix ("ent" resolves to
// Entertainment). Returns false when the text matches nothing.
func ParseCategory(s string) (Category, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", false
	}
	lower := strings.ToLower(trimmed)
	for _, c := range Categories {
		if lower == strings.ToLower(string(c)) {
			return c, true
		}
	}
	for _, c := range Categories {
		if strings.HasPrefix(strings.ToLower(string(c)), lower) {
			return c, true
		}
	}
	return "", false
}

// IsValid reports whether c is one of the seven declared categories.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// LineTotal returns price multiplied by quantity.
func (i ReceiptItem) LineTotal() decimal.Decimal {
	qty := i.Quantity
	if qty < 1 {
		qty = 1
	}
	return i.Price.Mul(decimal.NewFromInt(int64(qty)))
}

func (r Receipt) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return ErrEmptyUserID
	}
	if r.TotalAmount.IsNegative() {
		return ErrNegativeTotal
	}
	return nil
}

// Touch stamps the mutation time, truncated to seconds so the value survives
// a serialize/parse round trip unchanged.
func (r *Receipt) Touch(now time.Time) {
	r.UpdatedAt = now.UTC().Truncate(time.Second)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = r.UpdatedAt
	}
}
