package layout

import (
	"math/rand"
	"reflect"
	"testing"

	"planos/internal/calendar"
)

func hm(h, m int) int { return h*60 + m }

func TestEmpty(t *testing.T) {
	if got := Compute(nil); len(got) != 0 {
		t.Fatalf("expected empty output, got %v", got)
	}
}

func TestIsolatedEvent(t *testing.T) {
	got := Compute([]Item{
		{ID: "a", Start: hm(9, 0), End: hm(10, 0)},
		{ID: "b", Start: hm(13, 0), End: hm(14, 0)},
	})
	for _, a := range got {
		if a.Column != 0 || a.Columns != 1 {
			t.Fatalf("isolated event %s should be 0/1, got %+v", a.ID, a)
		}
	}
}

func TestAdjacentEventsShareColumn(t *testing.T) {
	got := Compute([]Item{
		{ID: "a", Start: hm(13, 0), End: hm(14, 0)},
		{ID: "b", Start: hm(14, 0), End: hm(15, 0)},
	})
	if got[0].Column != 0 || got[1].Column != 0 || got[0].Columns != 1 || got[1].Columns != 1 {
		t.Fatalf("adjacent events must not be separated: %+v", got)
	}
}

func TestChainCluster(t *testing.T) {
	got := ByID(Compute([]Item{
		{ID: "C", Start: hm(12, 30), End: hm(14, 0)},
		{ID: "A", Start: hm(10, 0), End: hm(12, 0)},
		{ID: "B", Start: hm(11, 0), End: hm(13, 0)},
	}))
	a, b, c := got["A"], got["B"], got["C"]
	if a.Columns != b.Columns || b.Columns != c.Columns {
		t.Fatalf("chain must form one cluster: %+v %+v %+v", a, b, c)
	}
	if a.Columns < 2 || a.Columns > 3 {
		t.Fatalf("expected 2 or 3 columns, got %d", a.Columns)
	}
	if b.Column == a.Column || b.Column == c.Column {
		t.Fatalf("B must be isolated from A and C: A=%d B=%d C=%d", a.Column, b.Column, c.Column)
	}
	// Greedy first fit puts C back into A's column.
	if a.Columns != 2 || a.Column != c.Column {
		t.Fatalf("expected C to reuse A's column: %+v %+v", a, c)
	}
}

func TestThreeWayOverlap(t *testing.T) {
	got := Compute([]Item{
		{ID: "a", Start: hm(9, 0), End: hm(12, 0)},
		{ID: "b", Start: hm(9, 30), End: hm(11, 0)},
		{ID: "c", Start: hm(10, 0), End: hm(10, 45)},
		{ID: "d", Start: hm(11, 0), End: hm(11, 30)},
	})
	want := []Assignment{
		{ID: "a", Column: 0, Columns: 3},
		{ID: "b", Column: 1, Columns: 3},
		{ID: "c", Column: 2, Columns: 3},
		{ID: "d", Column: 1, Columns: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestEqualStartKeepsInputOrder(t *testing.T) {
	got := Compute([]Item{
		{ID: "x", Start: hm(8, 0), End: hm(9, 0)},
		{ID: "y", Start: hm(8, 0), End: hm(9, 0)},
	})
	if got[0].Column != 0 || got[1].Column != 1 {
		t.Fatalf("stable tie-break expected, got %+v", got)
	}
}

func TestRandomLayoutsAreValid(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		n := rng.Intn(12)
		items := make([]Item, n)
		for i := range items {
			s := rng.Intn(22*4) * 15
			d := (rng.Intn(12) + 1) * 15
			items[i] = Item{ID: string(rune('a' + i)), Start: s, End: s + d}
		}
		got := Compute(items)
		again := Compute(items)
		if !reflect.DeepEqual(got, again) {
			t.Fatalf("round %d: layout not deterministic", round)
		}
		assertValid(t, items, got)
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	evs := []calendar.Event{
		{ID: "1", StartTime: 10, EndTime: 12},
		{ID: "2", StartTime: 11, EndTime: 13},
		{ID: "3", StartTime: 12, StartMinute: 30, EndTime: 14},
	}
	first := ForEvents(evs)
	second := ForEvents(evs)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("re-running layout changed assignment: %+v vs %+v", first, second)
	}
}

func assertValid(t *testing.T, items []Item, got []Assignment) {
	t.Helper()
	if len(got) != len(items) {
		t.Fatalf("expected %d assignments, got %d", len(items), len(got))
	}
	for i := range items {
		for j := i + 1; j < len(items); j++ {
			if !overlaps(items[i], items[j]) {
				continue
			}
			if got[i].Column == got[j].Column {
				t.Fatalf("overlapping %v and %v share column %d", items[i], items[j], got[i].Column)
			}
			if got[i].Columns != got[j].Columns {
				t.Fatalf("overlapping events disagree on totalColumns: %+v %+v", got[i], got[j])
			}
		}
	}
	// Column count equals the columns actually used within each cluster.
	byCols := map[int]map[int]bool{}
	for _, a := range got {
		if a.Column >= a.Columns {
			t.Fatalf("column %d outside %d columns", a.Column, a.Columns)
		}
		if byCols[a.Columns] == nil {
			byCols[a.Columns] = map[int]bool{}
		}
		byCols[a.Columns][a.Column] = true
	}
	for cols, used := range byCols {
		if len(used) != cols {
			t.Fatalf("clusters with %d columns only use %d", cols, len(used))
		}
	}
}
