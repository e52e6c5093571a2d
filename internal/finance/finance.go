// Package finance tracks income and expenses with categories, budgets and
// recurring transactions. Amounts are decimals and serialize as JSON numbers.
package finance

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"planos/internal/store"
)

var (
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
	ErrInvalidType      = errors.New("type must be income or expense")
	ErrInvalidCategory  = errors.New("category needs a name, a colour and a type")
	ErrDefaultCategory  = errors.New("default categories cannot be changed")
	ErrMissingCategory  = errors.New("category is required")
	ErrInvalidPeriod    = errors.New("period must be weekly, monthly or yearly")
	ErrDuplicateBudget  = errors.New("budget for this category and period already exists")
	ErrInvalidFrequency = errors.New("frequency must be daily, weekly, monthly or yearly")
)

const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type Service struct {
	categories   *store.Collection[Category]
	transactions *store.Collection[Transaction]
	budgets      *store.Collection[Budget]
	recurring    *store.Collection[Recurring]
	now          func() time.Time
}

// Open keeps each entity kind in its own file under dataDir.
func Open(dataDir string) (*Service, error) {
	cats, err := store.Open[Category](dataDir, "categories")
	if err != nil {
		return nil, err
	}
	txs, err := store.Open[Transaction](dataDir, "transactions")
	if err != nil {
		return nil, err
	}
	budgets, err := store.Open[Budget](dataDir, "budgets")
	if err != nil {
		return nil, err
	}
	rec, err := store.Open[Recurring](dataDir, "recurring")
	if err != nil {
		return nil, err
	}
	return &Service{categories: cats, transactions: txs, budgets: budgets, recurring: rec, now: time.Now}, nil
}

// NewMemory returns a service that keeps nothing on disk.
func NewMemory() *Service {
	return &Service{
		categories:   store.Memory[Category](),
		transactions: store.Memory[Transaction](),
		budgets:      store.Memory[Budget](),
		recurring:    store.Memory[Recurring](),
		now:          time.Now,
	}
}

func validType(t string) error {
	if t != TypeIncome && t != TypeExpense {
		return ErrInvalidType
	}
	return nil
}

func positive(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}
