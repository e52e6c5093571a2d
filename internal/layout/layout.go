// Package layout packs the events of one calendar day into side-by-side
// columns so that no two events sharing an instant share a column.
//
// Events are grouped into clusters of transitively overlapping intervals.
// Inside a cluster, events sorted by start (stable) go into the first column
// whose last occupant ends at or before their start; a new column is opened
// when none fits. Every event of a cluster reports the cluster's column count.
package layout

import (
	"sort"

	"planos/internal/calendar"
)

// Item is one event to place. ID is opaque and only carried through.
type Item struct {
	ID    string
	Start int // minutes since midnight
	End   int
}

// Assignment is the placement of one Item.
type Assignment struct {
	ID      string `json:"id"`
	Column  int    `json:"columnIndex"`
	Columns int    `json:"totalColumns"`
}

// Compute returns one Assignment per item, in input order. Items must satisfy
// Start < End; callers validate at the data-entry boundary.
func Compute(items []Item) []Assignment {
	out := make([]Assignment, len(items))
	if len(items) == 0 {
		return out
	}
	for i, it := range items {
		out[i] = Assignment{ID: it.ID, Column: 0, Columns: 1}
	}

	uf := newUnionFind(len(items))
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if overlaps(items[i], items[j]) {
				uf.union(i, j)
			}
		}
	}

	// Members per cluster root, kept in input order.
	clusters := make(map[int][]int)
	roots := make([]int, 0)
	for i := range items {
		r := uf.find(i)
		if _, ok := clusters[r]; !ok {
			roots = append(roots, r)
		}
		clusters[r] = append(clusters[r], i)
	}

	for _, r := range roots {
		members := clusters[r]
		if len(members) == 1 {
			continue
		}
		sort.SliceStable(members, func(a, b int) bool {
			return items[members[a]].Start < items[members[b]].Start
		})

		// columnEnds[c] is the end of the last event placed in column c.
		columnEnds := make([]int, 0, 4)
		for _, idx := range members {
			it := items[idx]
			placed := -1
			for c, end := range columnEnds {
				if end <= it.Start {
					placed = c
					break
				}
			}
			if placed < 0 {
				columnEnds = append(columnEnds, it.End)
				placed = len(columnEnds) - 1
			} else {
				columnEnds[placed] = it.End
			}
			out[idx].Column = placed
		}
		for _, idx := range members {
			out[idx].Columns = len(columnEnds)
		}
	}
	return out
}

// ByID indexes assignments by item ID.
func ByID(as []Assignment) map[string]Assignment {
	m := make(map[string]Assignment, len(as))
	for _, a := range as {
		m[a.ID] = a
	}
	return m
}

// ForEvents lays out calendar events. Events are expected to belong to the
// same day and week; the result is aligned with evs.
func ForEvents(evs []calendar.Event) []Assignment {
	items := make([]Item, len(evs))
	for i, e := range evs {
		items[i] = Item{ID: e.ID, Start: e.Start(), End: e.End()}
	}
	return Compute(items)
}

func overlaps(a, b Item) bool {
	return calendar.Interval{Start: a.Start, End: a.End}.Overlaps(calendar.Interval{Start: b.Start, End: b.End})
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}
