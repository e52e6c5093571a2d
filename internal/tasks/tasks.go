// Package tasks holds to-do items with optional checklists.
package tasks

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"planos/internal/store"
)

var (
	ErrEmptyTitle      = errors.New("task title is required")
	ErrInvalidPriority = errors.New("priority must be low, medium or high")
	ErrInvalidStatus   = errors.New("status must be todo, in_progress or done")
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// Item is one checklist line of a task.
type Item struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	Order     int    `json:"order"`
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CategoryID  string     `json:"categoryId,omitempty"`
	Items       []Item     `json:"items"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// normalize fills defaults, checks enums and numbers the checklist. When no
// item carries an order, items are numbered by position.
func (t *Task) normalize() error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return ErrEmptyTitle
	}
	switch t.Priority {
	case "":
		t.Priority = PriorityMedium
	case PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	switch t.Status {
	case "":
		t.Status = StatusTodo
	case StatusTodo, StatusInProgress, StatusDone:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}

	ordered := false
	for _, it := range t.Items {
		if it.Order != 0 {
			ordered = true
			break
		}
	}
	items := make([]Item, 0, len(t.Items))
	for i, it := range t.Items {
		it.Text = strings.TrimSpace(it.Text)
		if it.Text == "" {
			continue
		}
		if it.ID == "" {
			it.ID = store.NewID()
		}
		if !ordered {
			it.Order = i
		}
		items = append(items, it)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	t.Items = items
	return nil
}

type Service struct {
	col *store.Collection[Task]
	now func() time.Time
}

func New(col *store.Collection[Task]) *Service {
	return &Service{col: col, now: time.Now}
}

func Open(dataDir string) (*Service, error) {
	col, err := store.Open[Task](dataDir, "tasks")
	if err != nil {
		return nil, err
	}
	return New(col), nil
}

// List returns tasks newest first.
func (s *Service) List(owner string) []Task {
	out := s.col.List(owner)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Service) Create(owner string, t Task) (Task, error) {
	if err := t.normalize(); err != nil {
		return Task{}, err
	}
	now := s.now().UTC()
	t.ID, t.CreatedAt, t.UpdatedAt = store.NewID(), now, now
	return t, s.col.Put(owner, t.ID, t)
}

// Update applies fn and re-validates. A checklist set by fn replaces the
// stored one.
func (s *Service) Update(owner, id string, fn func(*Task) error) (Task, error) {
	return s.col.Update(owner, id, func(t *Task) error {
		created := t.CreatedAt
		if err := fn(t); err != nil {
			return err
		}
		if err := t.normalize(); err != nil {
			return err
		}
		t.ID, t.CreatedAt, t.UpdatedAt = id, created, s.now().UTC()
		return nil
	})
}

func (s *Service) Delete(owner, id string) error {
	return s.col.Delete(owner, id)
}

// SetItem ticks or unticks one checklist item.
func (s *Service) SetItem(owner, taskID, itemID string, completed bool) (Item, error) {
	var out Item
	_, err := s.col.Update(owner, taskID, func(t *Task) error {
		items := make([]Item, len(t.Items))
		copy(items, t.Items)
		for i := range items {
			if items[i].ID == itemID {
				items[i].Completed = completed
				out = items[i]
				t.Items = items
				t.UpdatedAt = s.now().UTC()
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}
