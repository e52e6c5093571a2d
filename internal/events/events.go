// Package events stores calendar events per owner and serves the week view.
package events

import (
	"sort"
	"time"

	"planos/internal/calendar"
	"planos/internal/layout"
	"planos/internal/store"
)

type Service struct {
	col *store.Collection[calendar.Event]
	now func() time.Time
}

func New(col *store.Collection[calendar.Event]) *Service {
	return &Service{col: col, now: time.Now}
}

// Open uses <dataDir>/events.json.
func Open(dataDir string) (*Service, error) {
	col, err := store.Open[calendar.Event](dataDir, "events")
	if err != nil {
		return nil, err
	}
	return New(col), nil
}

// List returns the owner's events ordered by day and start. A nil week
// returns every week.
func (s *Service) List(owner string, week *int) []calendar.Event {
	all := s.col.List(owner)
	out := all[:0]
	for _, e := range all {
		if week == nil || e.Week == *week {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out
}

func sortEvents(evs []calendar.Event) {
	sort.SliceStable(evs, func(i, j int) bool {
		if evs[i].Week != evs[j].Week {
			return evs[i].Week < evs[j].Week
		}
		if evs[i].Day != evs[j].Day {
			return evs[i].Day < evs[j].Day
		}
		return evs[i].Start() < evs[j].Start()
	})
}

func (s *Service) Get(owner, id string) (calendar.Event, error) {
	return s.col.Get(owner, id)
}

// Create validates e, assigns an id and a colour when missing, and stores it.
func (s *Service) Create(owner string, e calendar.Event) (calendar.Event, error) {
	out, err := s.CreateMany(owner, []calendar.Event{e})
	if err != nil {
		return calendar.Event{}, err
	}
	return out[0], nil
}

// CreateMany stores several events at once. Nothing is stored if any of them
// is invalid.
func (s *Service) CreateMany(owner string, evs []calendar.Event) ([]calendar.Event, error) {
	now := s.now().UTC()
	ids := make([]string, len(evs))
	out := make([]calendar.Event, len(evs))
	for i, e := range evs {
		if err := e.Normalize(); err != nil {
			return nil, err
		}
		e.ID = store.NewID()
		if e.Color == "" {
			e.Color = calendar.RandomColor()
		}
		e.CreatedAt, e.UpdatedAt = now, now
		ids[i], out[i] = e.ID, e
	}
	if len(out) == 0 {
		return out, nil
	}
	if err := s.col.PutMany(owner, ids, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies fn to the stored event and validates the result. The id and
// creation time cannot be changed by fn.
func (s *Service) Update(owner, id string, fn func(*calendar.Event) error) (calendar.Event, error) {
	return s.col.Update(owner, id, func(e *calendar.Event) error {
		created := e.CreatedAt
		if err := fn(e); err != nil {
			return err
		}
		e.ID, e.CreatedAt = id, created
		e.UpdatedAt = s.now().UTC()
		return e.Normalize()
	})
}

func (s *Service) Delete(owner, id string) error {
	return s.col.Delete(owner, id)
}

// Positioned is an event with its column in the day view.
type Positioned struct {
	calendar.Event
	Column  int `json:"columnIndex"`
	Columns int `json:"totalColumns"`
}

// Layout returns the events of one day with their column assignment.
func (s *Service) Layout(owner string, week, day int) []Positioned {
	var evs []calendar.Event
	for _, e := range s.List(owner, &week) {
		if e.Day == day {
			evs = append(evs, e)
		}
	}
	return Position(evs)
}

// Position runs the layout engine over evs, which should share a day.
func Position(evs []calendar.Event) []Positioned {
	assigned := layout.ForEvents(evs)
	out := make([]Positioned, len(evs))
	for i, e := range evs {
		out[i] = Positioned{Event: e, Column: assigned[i].Column, Columns: assigned[i].Columns}
	}
	return out
}
