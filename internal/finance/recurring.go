package finance

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/teambition/rrule-go"

	appLog "planos/internal/log"
	"planos/internal/store"
)

const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"
)

// maxCatchUp bounds how many missed occurrences one run books per schedule.
const maxCatchUp = 400

// Recurring is a transaction template booked on a schedule. DayOfWeek is 0
// for Monday through 6 for Sunday. A DayOfMonth past the end of a short month
// falls on that month's last day.
type Recurring struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	CategoryID  string          `json:"categoryId,omitempty"`
	Frequency   string          `json:"frequency"`
	DayOfMonth  *int            `json:"dayOfMonth,omitempty"`
	DayOfWeek   *int            `json:"dayOfWeek,omitempty"`
	StartDate   time.Time       `json:"startDate"`
	EndDate     *time.Time      `json:"endDate,omitempty"`
	NextDate    time.Time       `json:"nextDate"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
}

var weekdays = [7]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

func (r Recurring) rule() (*rrule.RRule, error) {
	opt := rrule.ROption{Dtstart: r.StartDate}
	switch r.Frequency {
	case FrequencyDaily:
		opt.Freq = rrule.DAILY
	case FrequencyWeekly:
		opt.Freq = rrule.WEEKLY
		if r.DayOfWeek != nil {
			if *r.DayOfWeek < 0 || *r.DayOfWeek > 6 {
				return nil, fmt.Errorf("day of week %d out of range", *r.DayOfWeek)
			}
			opt.Byweekday = []rrule.Weekday{weekdays[*r.DayOfWeek]}
		}
	case FrequencyMonthly:
		opt.Freq = rrule.MONTHLY
		dom := r.StartDate.Day()
		if r.DayOfMonth != nil {
			dom = *r.DayOfMonth
		}
		if dom < 1 || dom > 31 {
			return nil, fmt.Errorf("day of month %d out of range", dom)
		}
		if dom <= 28 {
			opt.Bymonthday = []int{dom}
		} else {
			// The last of 28..dom that exists in each month.
			for d := 28; d <= dom; d++ {
				opt.Bymonthday = append(opt.Bymonthday, d)
			}
			opt.Bysetpos = []int{-1}
		}
	case FrequencyYearly:
		opt.Freq = rrule.YEARLY
	default:
		return nil, ErrInvalidFrequency
	}
	if r.EndDate != nil {
		opt.Until = *r.EndDate
	}
	return rrule.NewRRule(opt)
}

// Next returns the first occurrence strictly after t, or false when the
// schedule has ended.
func (r Recurring) Next(t time.Time) (time.Time, bool, error) {
	rule, err := r.rule()
	if err != nil {
		return time.Time{}, false, err
	}
	next := rule.After(t, false)
	return next, !next.IsZero(), nil
}

func (s *Service) validateRecurring(r *Recurring) error {
	if err := validType(r.Type); err != nil {
		return err
	}
	if err := positive(r.Amount); err != nil {
		return err
	}
	if r.StartDate.IsZero() {
		r.StartDate = s.now().UTC()
	}
	return nil
}

// schedule sets NextDate to the first occurrence after from.
func schedule(r *Recurring, from time.Time) error {
	next, ok, err := r.Next(from)
	if err != nil {
		return err
	}
	r.NextDate = next
	if !ok {
		r.Active = false
	}
	return nil
}

// sameSchedule reports whether a and b produce the same occurrences.
func sameSchedule(a, b Recurring) bool {
	return a.Frequency == b.Frequency &&
		a.StartDate.Equal(b.StartDate) &&
		equalInt(a.DayOfMonth, b.DayOfMonth) &&
		equalInt(a.DayOfWeek, b.DayOfWeek)
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// lastBooked returns the date of the newest transaction booked from id.
func (s *Service) lastBooked(owner, id string) time.Time {
	var last time.Time
	for _, t := range s.transactions.List(owner) {
		if t.RecurringID == id && t.Date.After(last) {
			last = t.Date
		}
	}
	return last
}

// RecurringList returns schedules ordered by next date.
func (s *Service) RecurringList(owner string) []Recurring {
	out := s.recurring.List(owner)
	sort.SliceStable(out, func(i, j int) bool { return out[i].NextDate.Before(out[j].NextDate) })
	return out
}

func (s *Service) CreateRecurring(owner string, r Recurring) (Recurring, error) {
	r.Active = true
	if err := s.validateRecurring(&r); err != nil {
		return Recurring{}, err
	}
	if err := schedule(&r, r.StartDate); err != nil {
		return Recurring{}, err
	}
	r.ID, r.CreatedAt = store.NewID(), s.now().UTC()
	return r, s.recurring.Put(owner, r.ID, r)
}

// UpdateRecurring keeps the stored next date unless the schedule itself
// changed. A new schedule continues after the later of its start and the
// last booked occurrence, so nothing is booked twice.
func (s *Service) UpdateRecurring(owner, id string, fn func(*Recurring) error) (Recurring, error) {
	return s.recurring.Update(owner, id, func(r *Recurring) error {
		prev := *r
		if err := fn(r); err != nil {
			return err
		}
		r.ID, r.CreatedAt = id, prev.CreatedAt
		if err := s.validateRecurring(r); err != nil {
			return err
		}
		if !sameSchedule(prev, *r) {
			from := r.StartDate
			if last := s.lastBooked(owner, id); last.After(from) {
				from = last
			}
			return schedule(r, from)
		}
		r.NextDate = prev.NextDate
		if r.EndDate != nil && r.NextDate.After(*r.EndDate) {
			r.Active = false
		}
		return nil
	})
}

func (s *Service) DeleteRecurring(owner, id string) error {
	return s.recurring.Delete(owner, id)
}

// Materialize books every occurrence of the owner's active schedules that is
// due by now and advances their next dates.
func (s *Service) Materialize(owner string, now time.Time) ([]Transaction, error) {
	var booked []Transaction
	for _, r := range s.recurring.List(owner) {
		if !r.Active || r.NextDate.IsZero() || r.NextDate.After(now) {
			continue
		}
		var due []Transaction
		for i := 0; r.Active && !r.NextDate.After(now) && i < maxCatchUp; i++ {
			due = append(due, Transaction{
				ID:          store.NewID(),
				Type:        r.Type,
				Amount:      r.Amount,
				Description: r.Description,
				CategoryID:  r.CategoryID,
				Date:        r.NextDate,
				RecurringID: r.ID,
				CreatedAt:   now.UTC(),
			})
			next, ok, err := r.Next(r.NextDate)
			if err != nil {
				return booked, fmt.Errorf("recurring %s: %w", r.ID, err)
			}
			if !ok {
				r.Active = false
				break
			}
			r.NextDate = next
		}
		ids := make([]string, len(due))
		for i, t := range due {
			ids[i] = t.ID
		}
		if err := s.transactions.PutMany(owner, ids, due); err != nil {
			return booked, err
		}
		if err := s.recurring.Put(owner, r.ID, r); err != nil {
			return booked, err
		}
		booked = append(booked, due...)
	}
	return booked, nil
}

// MaterializeAll runs Materialize for every owner. It is the scheduled job.
func (s *Service) MaterializeAll(now time.Time) int {
	total := 0
	for _, owner := range s.recurring.Owners() {
		booked, err := s.Materialize(owner, now)
		if err != nil {
			appLog.Error("finance: materialize recurring", err, "owner", owner)
		}
		total += len(booked)
	}
	if total > 0 {
		appLog.Info("finance: booked recurring transactions", "count", total)
	}
	return total
}
