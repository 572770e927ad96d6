package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"scontrino/internal/core"
)

// All date and timestamp columns are stored as ISO-8601 text and parsed on
// every read; the items column is jsonb and is coerced to an array even when
// it is NULL or malformed.

func scanReceipt(row pgx.Row) (core.Receipt, error) {
	var (
		r                              core.Receipt
		date, createdAt, updatedAt     string
		total, subtotal, tax, discount string
		items                          []byte
		imageURL                       *string
	)

	err := row.Scan(&r.ID, &r.UserID, &r.StoreName, &date,
		&total, &subtotal, &tax, &discount,
		&items, &imageURL, &createdAt, &updatedAt)
	if err != nil {
		return core.Receipt{}, err
	}

	r.Date = parseTime(date)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	r.TotalAmount = parseAmount(total)
	r.Subtotal = parseAmount(subtotal)
	r.TaxAmount = parseAmount(tax)
	r.DiscountAmount = parseAmount(discount)
	r.Items = decodeItems(items)
	if imageURL != nil {
		r.ImageURL = *imageURL
	}

	return r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func encodeItems(items []core.ReceiptItem) (string, error) {
	if items == nil {
		items = []core.ReceiptItem{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal items: %w", err)
	}
	return string(encoded), nil
}

func decodeItems(raw []byte) []core.ReceiptItem {
	if len(raw) == 0 {
		return []core.ReceiptItem{}
	}
	var items []core.ReceiptItem
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return []core.ReceiptItem{}
	}
	return items
}
