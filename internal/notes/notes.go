// Package notes keeps the sticky notes of the notes wall.
package notes

import (
	"errors"
	"sort"
	"strings"
	"time"

	"planos/internal/store"
)

var ErrEmptyText = errors.New("note text is required")

// Note is a sticker on the wall. Position and size are in wall pixels.
type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Color     string    `json:"color"`
	Collapsed bool      `json:"collapsed"`
	Width     *float64  `json:"width,omitempty"`
	Height    *float64  `json:"height,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const defaultColor = "#fef08a"

type Service struct {
	col *store.Collection[Note]
	now func() time.Time
}

func New(col *store.Collection[Note]) *Service {
	return &Service{col: col, now: time.Now}
}

func Open(dataDir string) (*Service, error) {
	col, err := store.Open[Note](dataDir, "notes")
	if err != nil {
		return nil, err
	}
	return New(col), nil
}

// List returns notes newest first.
func (s *Service) List(owner string) []Note {
	out := s.col.List(owner)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Service) Create(owner string, n Note) (Note, error) {
	n.Text = strings.TrimSpace(n.Text)
	if n.Text == "" {
		return Note{}, ErrEmptyText
	}
	if n.Color == "" {
		n.Color = defaultColor
	}
	now := s.now().UTC()
	n.ID, n.CreatedAt, n.UpdatedAt = store.NewID(), now, now
	return n, s.col.Put(owner, n.ID, n)
}

func (s *Service) Update(owner, id string, fn func(*Note) error) (Note, error) {
	return s.col.Update(owner, id, func(n *Note) error {
		created := n.CreatedAt
		if err := fn(n); err != nil {
			return err
		}
		n.Text = strings.TrimSpace(n.Text)
		if n.Text == "" {
			return ErrEmptyText
		}
		n.ID, n.CreatedAt, n.UpdatedAt = id, created, s.now().UTC()
		return nil
	})
}

func (s *Service) Delete(owner, id string) error {
	return s.col.Delete(owner, id)
}

// Search ranks the owner's notes by word overlap with query and returns at
// most k of them.
func (s *Service) Search(owner, query string, k int) []Note {
	notes := s.col.List(owner)
	if len(notes) == 0 || strings.TrimSpace(query) == "" || k <= 0 {
		return []Note{}
	}

	qset := tokenSet(query)
	type scored struct {
		note  Note
		score int
	}
	var sc []scored
	for _, n := range notes {
		if score := overlap(qset, tokenSet(n.Text)); score > 0 {
			sc = append(sc, scored{note: n, score: score})
		}
	}
	sort.SliceStable(sc, func(i, j int) bool {
		if sc[i].score == sc[j].score {
			return len(sc[i].note.Text) < len(sc[j].note.Text)
		}
		return sc[i].score > sc[j].score
	})
	if len(sc) > k {
		sc = sc[:k]
	}
	out := make([]Note, 0, len(sc))
	for _, s := range sc {
		out = append(out, s.note)
	}
	return out
}

// tokenSet lowercases and trims punctuation. Words are matched by prefix of
// at least four letters so "встречи" finds "встреча".
func tokenSet(s string) map[string]struct{} {
	parts := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, ".,;:!?()[]{}\"'«»")
		r := []rune(p)
		if len(r) < 2 {
			continue
		}
		if len(r) > 4 {
			p = string(r[:4])
		}
		set[p] = struct{}{}
	}
	return set
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	count := 0
	for k := range a {
		if _, ok := b[k]; ok {
			count++
		}
	}
	return count
}
