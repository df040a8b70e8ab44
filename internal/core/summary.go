package core

import "sort"

// CategoryAmount is an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// TripOverview is a compact summary of a trip's expenses.
type TripOverview struct {
	TripID     string
	Total      Money
	Count      int
	ByCategory []CategoryAmount
}

// Summarize aggregates expenses into a trip overview. Categories are
// ordered by descending amount, ties broken by name.
func Summarize(tripID string, expenses []Expense) TripOverview {
	ov := TripOverview{TripID: tripID, Count: len(expenses)}
	byCat := map[string]int64{}
	for _, e := range expenses {
		ov.Total.Cents += e.Amount.Cents
		byCat[e.Category] += e.Amount.Cents
	}
	for name, cents := range byCat {
		ov.ByCategory = append(ov.ByCategory, CategoryAmount{Name: name, Amount: Money{Cents: cents}})
	}
	sort.Slice(ov.ByCategory, func(i, j int) bool {
		a, b := ov.ByCategory[i], ov.ByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Name < b.Name
	})
	return ov
}
