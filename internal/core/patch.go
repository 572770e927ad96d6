package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptPatch carries a partial update. Nil fields are left untouched when
// the patch is applied, so the same value works against both the remote row
// and a cached copy.
type ReceiptPatch struct {
	StoreName      *string          `json:"store_name,omitempty"`
	Date           *time.Time       `json:"date,omitempty"`
	TotalAmount    *decimal.Decimal `json:"total_amount,omitempty"`
	Subtotal       *decimal.Decimal `json:"subtotal,omitempty"`
	TaxAmount      *decimal.Decimal `json:"tax_amount,omitempty"`
	DiscountAmount *decimal.Decimal `json:"discount_amount,omitempty"`
	Items          *[]ReceiptItem   `json:"items,omitempty"`
	ImageURL       *string          `json:"image_url,omitempty"`
}

// Apply merges the patch onto r and returns the result. ID, UserID and
// CreatedAt are immutable; UpdatedAt is the caller's responsibility.
func (p ReceiptPatch) Apply(r Receipt) Receipt {
	if p.StoreName != nil {
		r.StoreName = *p.StoreName
	}
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.TotalAmount != nil {
		r.TotalAmount = *p.TotalAmount
	}
	if p.Subtotal != nil {
		r.Subtotal = *p.Subtotal
	}
	if p.TaxAmount != nil {
		r.TaxAmount = *p.TaxAmount
	}
	if p.DiscountAmount != nil {
		r.DiscountAmount = *p.DiscountAmount
	}
	if p.Items != nil {
		r.Items = append([]ReceiptItem(nil), (*p.Items)...)
	}
	if p.ImageURL != nil {
		r.ImageURL = *p.ImageURL
	}
	return r
}

// IsEmpty reports whether the patch changes nothing.
func (p ReceiptPatch) IsEmpty() bool {
	return p.StoreName == nil && p.Date == nil && p.TotalAmount == nil &&
		p.Subtotal == nil && p.TaxAmount == nil && p.DiscountAmount == nil &&
		p.Items == nil && p.ImageURL == nil
}
