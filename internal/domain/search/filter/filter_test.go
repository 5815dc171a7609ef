package filter

import (
	"testing"
	"time"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func floatPtr(v float64) *float64 { return &v }

func TestNewRejectsInvertedDateRange(t *testing.T) {
	_, err := New(datePtr(2026, 2, 1), datePtr(2026, 1, 1), nil, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for inverted date range")
	}
}

func TestNewRejectsInvertedAmountRange(t *testing.T) {
	_, err := New(nil, nil, floatPtr(100), floatPtr(10), nil, nil)
	if err == nil {
		t.Fatal("expected error for inverted amount range")
	}
}

func TestNewRejectsOversizedLists(t *testing.T) {
	merchants := make([]string, MaxListValues+1)
	for i := range merchants {
		merchants[i] = "m" + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	if _, err := New(nil, nil, nil, nil, merchants, nil); err == nil {
		t.Fatal("expected error for oversized merchant list")
	}
}

func TestCanonListNormalizes(t *testing.T) {
	set, err := New(nil, nil, nil, nil,
		[]string{" IKEA ", "ikea", "Blue Bottle", ""},
		[]string{"Food", "travel", "FOOD"},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	merchants := set.Merchants()
	if len(merchants) != 2 || merchants[0] != "blue bottle" || merchants[1] != "ikea" {
		t.Fatalf("merchants = %v", merchants)
	}
	categories := set.Categories()
	if len(categories) != 2 || categories[0] != "food" || categories[1] != "travel" {
		t.Fatalf("categories = %v", categories)
	}
}

func TestCanonicalIsDeterministic(t *testing.T) {
	a, _ := New(datePtr(2026, 1, 1), datePtr(2026, 1, 31), floatPtr(5), floatPtr(50),
		[]string{"IKEA", "blue bottle"}, []string{"food"})
	b, _ := New(datePtr(2026, 1, 1), datePtr(2026, 1, 31), floatPtr(5), floatPtr(50),
		[]string{"Blue Bottle", "ikea"}, []string{"FOOD"})

	if a.Canonical() != b.Canonical() {
		t.Fatalf("canonical mismatch:\n%s\n%s", a.Canonical(), b.Canonical())
	}
	if a.Canonical() == "" {
		t.Fatal("canonical must not be empty for a populated set")
	}
}

func TestHasDateRangeAndIsEmpty(t *testing.T) {
	empty, _ := New(nil, nil, nil, nil, nil, nil)
	if !empty.IsEmpty() || empty.HasDateRange() {
		t.Fatal("zero set must be empty without a date range")
	}
	if empty.Canonical() != "" {
		t.Fatalf("empty canonical = %q", empty.Canonical())
	}

	half, _ := New(datePtr(2026, 1, 1), nil, nil, nil, nil, nil)
	if half.HasDateRange() {
		t.Fatal("one-sided range must not count as a date range")
	}
	if half.IsEmpty() {
		t.Fatal("one-sided range is not empty")
	}

	full, _ := New(datePtr(2026, 1, 1), datePtr(2026, 1, 31), nil, nil, nil, nil)
	if !full.HasDateRange() {
		t.Fatal("expected date range")
	}
}
