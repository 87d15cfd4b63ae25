package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	UncategorizedName = "uncategorized"
	UntaggedName      = "untagged"
)

var hundred = decimal.NewFromInt(100)

// Period is a calendar month. Bounds are UTC and half-open: [start, next month).
type Period struct {
	Year  int
	Month time.Month
}

// Share is one group of a breakdown. Key is empty for the uncategorized or
// untagged group.
type Share struct {
	Key        string
	Name       string
	Total      decimal.Decimal
	Count      int
	Percentage decimal.Decimal
}

// Totals splits a transaction set into income and expense; Expense is
// reported as a non-positive number.
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
	Count   int
}

// PeriodOf returns the calendar month containing t (in UTC).
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{Year: t.Year(), Month: t.Month()}
}

// NewPeriod builds a period from optional month and year values. Zero means
// "use the month/year of now".
func NewPeriod(month, year int, now time.Time) (Period, error) {
	p := PeriodOf(now)
	verr := &ValidationError{}
	if month != 0 {
		if month < 1 || month > 12 {
			verr.Add("month", "must be between 1 and 12")
		} else {
			p.Month = time.Month(month)
		}
	}
	if year != 0 {
		if year < 1 || year > 9999 {
			verr.Add("year", "must be between 1 and 9999")
		} else {
			p.Year = year
		}
	}
	if err := verr.OrNil(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Bounds returns the first instant of the month and the first instant of the
// following month.
func (p Period) Bounds() (time.Time, time.Time) {
	start := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func (p Period) Contains(t time.Time) bool {
	start, end := p.Bounds()
	t = t.UTC()
	return !t.Before(start) && t.Before(end)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// ComputeBalance returns initial + Σ amounts. It never fails; an empty set
// yields the initial value.
func ComputeBalance(initial decimal.Decimal, txs []Transaction) decimal.Decimal {
	balance := initial
	for _, t := range txs {
		balance = balance.Add(t.Amount)
	}
	return balance
}

// FilterByPeriod keeps the transactions whose Date falls inside p.
func FilterByPeriod(txs []Transaction, p Period) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if p.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

func ComputeTotals(txs []Transaction) Totals {
	tot := Totals{Income: decimal.Zero, Expense: decimal.Zero, Net: decimal.Zero}
	for _, t := range txs {
		if t.Amount.IsNegative() {
			tot.Expense = tot.Expense.Add(t.Amount)
		} else {
			tot.Income = tot.Income.Add(t.Amount)
		}
		tot.Count++
	}
	tot.Net = tot.Income.Add(tot.Expense)
	return tot
}

// CategoryBreakdown groups by category; transactions without one land in the
// "uncategorized" group.
func CategoryBreakdown(txs []Transaction) []Share {
	groups := map[string]*Share{}
	for _, t := range txs {
		key, name := "", UncategorizedName
		if t.Category != nil {
			key, name = t.Category.ID, t.Category.Name
		}
		addToGroup(groups, key, name, t.Amount)
	}
	return finishShares(groups)
}

// TagBreakdown counts a transaction once for each of its tags, so group
// totals may add up to more than the transaction total.
func TagBreakdown(txs []Transaction) []Share {
	groups := map[string]*Share{}
	for _, t := range txs {
		if len(t.Tags) == 0 {
			addToGroup(groups, "", UntaggedName, t.Amount)
			continue
		}
		for _, tag := range t.Tags {
			addToGroup(groups, tag.ID, tag.Name, t.Amount)
		}
	}
	return finishShares(groups)
}

func addToGroup(groups map[string]*Share, key, name string, amount decimal.Decimal) {
	g, ok := groups[key]
	if !ok {
		g = &Share{Key: key, Name: name, Total: decimal.Zero, Percentage: decimal.Zero}
		groups[key] = g
	}
	g.Total = g.Total.Add(amount)
	g.Count++
}

// finishShares assigns percentages relative to the total expense, which is
// the sum of |total| over groups that net negative. Income groups and every
// group of an expense-free set get 0.
func finishShares(groups map[string]*Share) []Share {
	totalExpense := decimal.Zero
	for _, g := range groups {
		if g.Total.IsNegative() {
			totalExpense = totalExpense.Add(g.Total.Abs())
		}
	}

	out := make([]Share, 0, len(groups))
	for _, g := range groups {
		if g.Total.IsNegative() && totalExpense.IsPositive() {
			g.Percentage = g.Total.Abs().Div(totalExpense).Mul(hundred).Round(2)
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c < 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}
