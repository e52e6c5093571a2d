package finance

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"planos/internal/store"
)

type Transaction struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	CategoryID  string          `json:"categoryId,omitempty"`
	Date        time.Time       `json:"date"`
	// RecurringID links a transaction to the schedule that produced it.
	RecurringID string    `json:"recurringId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Service) prepareTransaction(t *Transaction) error {
	if err := validType(t.Type); err != nil {
		return err
	}
	if err := positive(t.Amount); err != nil {
		return err
	}
	t.Description = strings.TrimSpace(t.Description)
	if t.Date.IsZero() {
		t.Date = s.now().UTC()
	}
	return nil
}

// Transactions lists the owner's transactions newest first. Zero bounds are
// open; to is exclusive.
func (s *Service) Transactions(owner string, from, to time.Time) []Transaction {
	all := s.transactions.List(owner)
	out := all[:0]
	for _, t := range all {
		if !from.IsZero() && t.Date.Before(from) {
			continue
		}
		if !to.IsZero() && !t.Date.Before(to) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (s *Service) CreateTransaction(owner string, t Transaction) (Transaction, error) {
	if err := s.prepareTransaction(&t); err != nil {
		return Transaction{}, err
	}
	t.ID, t.CreatedAt = store.NewID(), s.now().UTC()
	return t, s.transactions.Put(owner, t.ID, t)
}

func (s *Service) UpdateTransaction(owner, id string, fn func(*Transaction) error) (Transaction, error) {
	return s.transactions.Update(owner, id, func(t *Transaction) error {
		created := t.CreatedAt
		if err := fn(t); err != nil {
			return err
		}
		t.ID, t.CreatedAt = id, created
		return s.prepareTransaction(t)
	})
}

func (s *Service) DeleteTransaction(owner, id string) error {
	return s.transactions.Delete(owner, id)
}
