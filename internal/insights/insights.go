// Package insights derives dashboard statistics from a receipt collection.
// Every function is a pure, stateless reducer; the reference time is passed
// in so period math stays deterministic under test.
package insights

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"scontrino/internal/core"
)

// subscriptionKeywords flag stores that usually bill on a recurring basis.
var subscriptionKeywords = []string{
	"netflix",
	"spotify",
	"prime",
	"hulu",
	"disney",
	"youtube",
	"icloud",
	"audible",
	"subscription",
	"membership",
	"gym",
}

// TotalSpend sums the paid amount across all receipts.
func TotalSpend(receipts []core.Receipt) decimal.Decimal {
	total := decimal.Zero
	for _, r := range receipts {
		total = total.Add(r.TotalAmount)
	}
	return total
}

// SpendByCategory buckets line totals by item category. Items reaching this
// layer always carry a valid category; anything else counts as Others.
func SpendByCategory(receipts []core.Receipt) map[core.Category]decimal.Decimal {
	out := make(map[core.Category]decimal.Decimal)
	for _, r := range receipts {
		for _, item := range r.Items {
			c := item.Category
			if !c.IsValid() {
				c = core.Others
			}
			out[c] = out[c].Add(item.LineTotal())
		}
	}
	return out
}

// SpendByStore buckets paid totals by store name.
func SpendByStore(receipts []core.Receipt) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, r := range receipts {
		name := r.StoreName
		if name == "" {
			name = core.UnknownStore
		}
		out[name] = out[name].Add(r.TotalAmount)
	}
	return out
}

// TopCategory returns the category with the highest spend. Categories are
// scanned in declaration order, so ties resolve deterministically.
func TopCategory(receipts []core.Receipt) (core.Category, decimal.Decimal) {
	byCategory := SpendByCategory(receipts)
	var top core.Category
	best := decimal.Zero
	for _, c := range core.Categories {
		if amount, ok := byCategory[c]; ok && amount.GreaterThan(best) {
			top = c
			best = amount
		}
	}
	return top, best
}

// TopStore returns the store with the highest spend, ties broken
// alphabetically.
func TopStore(receipts []core.Receipt) (string, decimal.Decimal) {
	byStore := SpendByStore(receipts)
	names := make([]string, 0, len(byStore))
	for name := range byStore {
		names = append(names, name)
	}
	sort.Strings(names)

	var top string
	best := decimal.Zero
	for _, name := range names {
		if byStore[name].GreaterThan(best) {
			top = name
			best = byStore[name]
		}
	}
	return top, best
}

// MonthlyTrend returns the percentage change of the current calendar month's
// spend against the previous month's. A zero baseline yields 0, never
// NaN or Inf.
func MonthlyTrend(receipts []core.Receipt, now time.Time) float64 {
	now = now.UTC()
	currentStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	previousStart := currentStart.AddDate(0, -1, 0)

	current := sumBetween(receipts, currentStart, currentStart.AddDate(0, 1, 0))
	previous := sumBetween(receipts, previousStart, currentStart)

	return percentChange(current, previous)
}

// WeeklyTrend compares the last seven days against the seven days before.
func WeeklyTrend(receipts []core.Receipt, now time.Time) float64 {
	now = now.UTC()
	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)

	current := sumBetween(receipts, weekAgo, now.Add(time.Second))
	previous := sumBetween(receipts, twoWeeksAgo, weekAgo)

	return percentChange(current, previous)
}

// AverageDailySpend divides the current month's spend by the elapsed days of
// the month. The divisor is never below 1.
func AverageDailySpend(receipts []core.Receipt, now time.Time) decimal.Decimal {
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	total := sumBetween(receipts, monthStart, monthStart.AddDate(0, 1, 0))

	days := now.Day()
	if days < 1 {
		days = 1
	}
	return total.Div(decimal.NewFromInt(int64(days))).Round(2)
}

// DetectSubscriptions returns the receipts that look like recurring charges:
// the store name contains a known subscription keyword, or an item is
// explicitly tagged "Subscription" by the upstream extraction.
func DetectSubscriptions(receipts []core.Receipt) []core.Receipt {
	matches := []core.Receipt{}
	for _, r := range receipts {
		if isSubscription(r) {
			matches = append(matches, r)
		}
	}
	return matches
}

func isSubscription(r core.Receipt) bool {
	store := strings.ToLower(r.StoreName)
	for _, kw := range subscriptionKeywords {
		if strings.Contains(store, kw) {
			return true
		}
	}
	for _, item := range r.Items {
		if strings.EqualFold(string(item.Category), "Subscription") {
			return true
		}
	}
	return false
}

func sumBetween(receipts []core.Receipt, from, to time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, r := range receipts {
		d := r.Date.UTC()
		if !d.Before(from) && d.Before(to) {
			total = total.Add(r.TotalAmount)
		}
	}
	return total
}

func percentChange(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		return 0
	}
	change, _ := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Float64()
	return change
}
