package charts

import (
	"bytes"
	"testing"

	"tripexpense/internal/core"
)

func TestCategoryBreakdownEmpty(t *testing.T) {
	png, err := NewGenerator().CategoryBreakdown(core.TripOverview{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if png != nil {
		t.Fatalf("expected nil image for empty overview")
	}
}

func TestCategoryBreakdownRendersPNG(t *testing.T) {
	ov := core.Summarize("t1", []core.Expense{
		{Category: "Gas", Amount: core.Money{Cents: 4200}},
		{Category: "Food", Amount: core.Money{Cents: 1850}},
	})
	png, err := NewGenerator().CategoryBreakdown(ov)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("expected PNG bytes, got %d bytes with prefix %q", len(png), png[:min(4, len(png))])
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
