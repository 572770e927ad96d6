package insights

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"scontrino/internal/core"
)

func receipt(store string, total string, date time.Time, items ...core.ReceiptItem) core.Receipt {
	return core.Receipt{
		ID:          store + date.Format("20060102"),
		UserID:      "u1",
		StoreName:   store,
		Date:        date,
		TotalAmount: decimal.RequireFromString(total),
		Items:       items,
	}
}

func item(name, price string, qty int, c core.Category) core.ReceiptItem {
	return core.ReceiptItem{Name: name, Price: decimal.RequireFromString(price), Quantity: qty, Category: c}
}

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestTotalSpend(t *testing.T) {
	receipts := []core.Receipt{
		receipt("A", "10.50", now),
		receipt("B", "4.50", now),
	}
	if got := TotalSpend(receipts); !got.Equal(decimal.RequireFromString("15")) {
		t.Errorf("TotalSpend = %s, want 15", got)
	}
	if got := TotalSpend(nil); !got.IsZero() {
		t.Errorf("empty TotalSpend = %s, want 0", got)
	}
}

func TestSpendByCategory(t *testing.T) {
	receipts := []core.Receipt{
		receipt("A", "20", now,
			item("milk", "2.50", 2, core.Food),
			item("bread", "3", 1, core.Food),
			item("soap", "4", 1, core.Shopping),
			item("weird", "1", 1, "Bogus")),
	}

	byCategory := SpendByCategory(receipts)
	if !byCategory[core.Food].Equal(decimal.RequireFromString("8")) {
		t.Errorf("Food = %s, want 8", byCategory[core.Food])
	}
	if !byCategory[core.Shopping].Equal(decimal.RequireFromString("4")) {
		t.Errorf("Shopping = %s", byCategory[core.Shopping])
	}
	if !byCategory[core.Others].Equal(decimal.RequireFromString("1")) {
		t.Errorf("invalid category should count as Others, got %s", byCategory[core.Others])
	}
}

func TestTopCategory(t *testing.T) {
	receipts := []core.Receipt{
		receipt("A", "10", now,
			item("milk", "6", 1, core.Food),
			item("soap", "4", 1, core.Shopping)),
	}
	top, amount := TopCategory(receipts)
	if top != core.Food {
		t.Errorf("TopCategory = %s, want Food", top)
	}
	if !amount.Equal(decimal.RequireFromString("6")) {
		t.Errorf("amount = %s", amount)
	}

	top, amount = TopCategory(nil)
	if top != "" || !amount.IsZero() {
		t.Errorf("empty input should yield zero value, got (%s, %s)", top, amount)
	}
}

func TestTopStore(t *testing.T) {
	receipts := []core.Receipt{
		receipt("Walmart", "30", now),
		receipt("Aldi", "20", now),
		receipt("Walmart", "5", now.AddDate(0, 0, -1)),
	}
	top, amount := TopStore(receipts)
	if top != "Walmart" {
		t.Errorf("TopStore = %q", top)
	}
	if !amount.Equal(decimal.RequireFromString("35")) {
		t.Errorf("amount = %s", amount)
	}
}

func TestMonthlyTrend(t *testing.T) {
	receipts := []core.Receipt{
		receipt("A", "150", time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)),
		receipt("B", "100", time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)),
	}
	if got := MonthlyTrend(receipts, now); got != 50 {
		t.Errorf("MonthlyTrend = %v, want 50", got)
	}

	// No spend last month: change is reported as 0, not Inf.
	onlyThisMonth := []core.Receipt{receipt("A", "150", time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC))}
	if got := MonthlyTrend(onlyThisMonth, now); got != 0 {
		t.Errorf("zero baseline should yield 0, got %v", got)
	}
}

func TestWeeklyTrend(t *testing.T) {
	receipts := []core.Receipt{
		receipt("A", "50", now.AddDate(0, 0, -2)),
		receipt("B", "100", now.AddDate(0, 0, -10)),
	}
	if got := WeeklyTrend(receipts, now); got != -50 {
		t.Errorf("WeeklyTrend = %v, want -50", got)
	}
	if got := WeeklyTrend(nil, now); got != 0 {
		t.Errorf("empty input should yield 0, got %v", got)
	}
}

func TestAverageDailySpend(t *testing.T) {
	receipts := []core.Receipt{
		receipt("A", "30", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		receipt("B", "15", time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)),
		receipt("C", "99", time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)), // outside month
	}
	// 45 over 15 elapsed days.
	if got := AverageDailySpend(receipts, now); !got.Equal(decimal.RequireFromString("3")) {
		t.Errorf("AverageDailySpend = %s, want 3", got)
	}

	firstOfMonth := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	only := []core.Receipt{receipt("A", "30", firstOfMonth)}
	if got := AverageDailySpend(only, firstOfMonth); !got.Equal(decimal.RequireFromString("30")) {
		t.Errorf("day one should divide by 1, got %s", got)
	}
}

func TestDetectSubscriptions(t *testing.T) {
	receipts := []core.Receipt{
		receipt("Netflix", "15.99", now),
		receipt("Gold's Gym", "40", now),
		receipt("Walmart", "54.20", now, item("milk", "3.50", 1, core.Food)),
		receipt("Some App Store", "9.99", now, item("premium plan", "9.99", 1, "Subscription")),
	}

	subs := DetectSubscriptions(receipts)
	if len(subs) != 3 {
		t.Fatalf("expected 3 subscriptions, got %d", len(subs))
	}
	for _, s := range subs {
		if s.StoreName == "Walmart" {
			t.Error("Walmart should not be flagged as a subscription")
		}
	}
}
