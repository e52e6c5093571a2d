// Package settings keeps per-user preferences.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"planos/internal/store"
)

var (
	ErrInvalidLanguage = errors.New("language must be en or ru")
	ErrInvalidHours    = errors.New("calendar hours must satisfy 0 <= start < end <= 24")
)

const recordID = "settings"

type Settings struct {
	Language          string `json:"language"`
	CalendarStartHour int    `json:"calendarStartHour"`
	CalendarEndHour   int    `json:"calendarEndHour"`
	// APIKey is the user's own key for the reasoning service.
	APIKey    string    `json:"openaiApiKey,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Defaults are created on first read.
func Defaults() Settings {
	return Settings{Language: "ru", CalendarStartHour: 6, CalendarEndHour: 20}
}

// View is what clients get back: the key itself never leaves the server.
type View struct {
	Language          string    `json:"language"`
	CalendarStartHour int       `json:"calendarStartHour"`
	CalendarEndHour   int       `json:"calendarEndHour"`
	HasAPIKey         bool      `json:"hasApiKey"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (s Settings) View() View {
	return View{
		Language:          s.Language,
		CalendarStartHour: s.CalendarStartHour,
		CalendarEndHour:   s.CalendarEndHour,
		HasAPIKey:         s.APIKey != "",
		UpdatedAt:         s.UpdatedAt,
	}
}

func (s Settings) validate() error {
	if s.Language != "en" && s.Language != "ru" {
		return ErrInvalidLanguage
	}
	if s.CalendarStartHour < 0 || s.CalendarEndHour > 24 || s.CalendarStartHour >= s.CalendarEndHour {
		return ErrInvalidHours
	}
	return nil
}

type Service struct {
	col *store.Collection[Settings]
	now func() time.Time
}

func New(col *store.Collection[Settings]) *Service {
	return &Service{col: col, now: time.Now}
}

func Open(dataDir string) (*Service, error) {
	col, err := store.Open[Settings](dataDir, "settings")
	if err != nil {
		return nil, err
	}
	return New(col), nil
}

// Get returns the owner's settings, storing the defaults on first use.
func (s *Service) Get(owner string) (Settings, error) {
	cur, err := s.col.Get(owner, recordID)
	if err == nil {
		return cur, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Settings{}, err
	}
	cur = Defaults()
	cur.UpdatedAt = s.now().UTC()
	return cur, s.col.Put(owner, recordID, cur)
}

// Update applies the allowed fields of patch. Other fields are ignored.
func (s *Service) Update(owner string, patch map[string]json.RawMessage) (Settings, error) {
	cur, err := s.Get(owner)
	if err != nil {
		return Settings{}, err
	}
	fields := map[string]any{
		"language":          &cur.Language,
		"calendarStartHour": &cur.CalendarStartHour,
		"calendarEndHour":   &cur.CalendarEndHour,
		"openaiApiKey":      &cur.APIKey,
	}
	for name, dst := range fields {
		raw, ok := patch[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return Settings{}, fmt.Errorf("%s: %w", name, err)
		}
	}
	cur.Language = strings.ToLower(strings.TrimSpace(cur.Language))
	cur.APIKey = strings.TrimSpace(cur.APIKey)
	if err := cur.validate(); err != nil {
		return Settings{}, err
	}
	cur.UpdatedAt = s.now().UTC()
	return cur, s.col.Put(owner, recordID, cur)
}

// APIKey returns the owner's stored key, or "" when none is set.
func (s *Service) APIKey(owner string) string {
	cur, err := s.col.Get(owner, recordID)
	if err != nil {
		return ""
	}
	return cur.APIKey
}
