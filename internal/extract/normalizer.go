// Package extract turns raw model output into canonical receipts.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"scontrino/internal/category"
	"scontrino/internal/core"
)

// Normalizer validates and coerces the loosely-typed extraction payload into
// a partial core.Receipt. It is a pure transform apart from the call into the
// categorization engine; the clock is injected so tests stay deterministic.
type Normalizer struct {
	engine *category.Engine
	clock  func() time.Time
}

func NewNormalizer(engine *category.Engine, clock func() time.Time) *Normalizer {
	if clock == nil {
		clock = time.Now
	}
	return &Normalizer{engine: engine, clock: clock}
}

// Normalize parses raw into a partial receipt. ID, UserID and the bookkeeping
// timestamps are left for the stores to assign.
//
// The payload may arrive wrapped in a markdown code fence; stripping that is
// the only unwrapping tolerance. A payload that still fails to parse as an
// object, or that carries an explicit error field, yields
// core.ErrInvalidExtraction.
func (n *Normalizer) Normalize(raw []byte) (core.Receipt, error) {
	stripped := StripCodeFences(string(raw))

	var payload map[string]any
	if err := json.Unmarshal([]byte(stripped), &payload); err != nil {
		return core.Receipt{}, fmt.Errorf("%w: parse object: %v", core.ErrInvalidExtraction, err)
	}
	if reason, ok := extractionError(payload); ok {
		return core.Receipt{}, fmt.Errorf("%w: %s", core.ErrInvalidExtraction, reason)
	}
	if err := validatePayload(payload); err != nil {
		return core.Receipt{}, fmt.Errorf("%w: %v", core.ErrInvalidExtraction, err)
	}

	now := n.clock().UTC().Truncate(time.Second)

	r := core.Receipt{
		StoreName:      stringField(payload, "storeName", core.UnknownStore),
		Date:           dateField(payload, "date", now),
		TotalAmount:    amountField(payload, "totalAmount"),
		TaxAmount:      amountField(payload, "taxAmount"),
		DiscountAmount: amountField(payload, "discountAmount"),
	}

	if sub, ok := presentAmount(payload, "subtotal"); ok {
		r.Subtotal = sub
	} else {
		// Best effort, not re-validated against the items.
		r.Subtotal = r.TotalAmount.Sub(r.TaxAmount).Add(r.DiscountAmount)
	}

	r.Items = n.mapItems(payload["items"])

	return r, nil
}

// mapItems coerces the raw items array. Every item that ends up without a
// valid category is classified by the engine, independently of its siblings.
func (n *Normalizer) mapItems(raw any) []core.ReceiptItem {
	list, ok := raw.([]any)
	if !ok {
		return []core.ReceiptItem{}
	}

	items := make([]core.ReceiptItem, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item := core.ReceiptItem{
			Name:     stringField(m, "name", core.UnknownItem),
			Price:    amountField(m, "price"),
			Quantity: quantityField(m, "quantity"),
		}
		if c, ok := core.ParseCategory(stringField(m, "category", "")); ok {
			item.Category = c
		}
		items = append(items, item)
	}

	return n.engine.CategorizeItems(items)
}

// extractionError reports whether the payload signals its own invalidity.
func extractionError(payload map[string]any) (string, bool) {
	v, ok := payload["error"]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case bool:
		if t {
			return "payload flagged as error", true
		}
		return "", false
	case string:
		if strings.TrimSpace(t) != "" {
			return t, true
		}
		return "", false
	default:
		return fmt.Sprintf("error field of type %T", v), true
	}
}

// StripCodeFences removes a surrounding markdown code fence, with or without
// a language tag. Text without a fence passes through untouched.
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag line (```json).
		first := strings.TrimSpace(trimmed[:idx])
		if first == "" || !strings.ContainsAny(first, "{}[]") {
			trimmed = trimmed[idx+1:]
		}
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func stringField(m map[string]any, key, fallback string) string {
	if v, ok := m[key].(string); ok {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return fallback
}

// amountField coerces a number-ish value to a non-negative decimal,
// defaulting absent or invalid amounts to zero.
func amountField(m map[string]any, key string) decimal.Decimal {
	if d, ok := presentAmount(m, key); ok {
		return d
	}
	return decimal.Zero
}

func presentAmount(m map[string]any, key string) (decimal.Decimal, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return decimal.Zero, false
	}
	var d decimal.Decimal
	switch t := v.(type) {
	case float64:
		d = decimal.NewFromFloat(t)
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Zero, false
		}
		d = parsed
	default:
		return decimal.Zero, false
	}
	if d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

func quantityField(m map[string]any, key string) int {
	v, ok := m[key]
	if !ok || v == nil {
		return 1
	}
	switch t := v.(type) {
	case float64:
		if q := int(t); q >= 1 {
			return q
		}
	case string:
		var q int
		if _, err := fmt.Sscanf(strings.TrimSpace(t), "%d", &q); err == nil && q >= 1 {
			return q
		}
	}
	return 1
}

// dateField parses a YYYY-MM-DD or RFC 3339 date, falling back to now.
func dateField(m map[string]any, key string, now time.Time) time.Time {
	s, ok := m[key].(string)
	if !ok {
		return now
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Truncate(time.Second)
	}
	return now
}
