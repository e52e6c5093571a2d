package finance

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"planos/internal/calendar"
	"planos/internal/store"
)

const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

// Budget caps spending in one category per period.
type Budget struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"categoryId"`
	Amount     decimal.Decimal `json:"amount"`
	Period     string          `json:"period"`
	StartDate  time.Time       `json:"startDate"`
	EndDate    *time.Time      `json:"endDate,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// BudgetStatus is a budget with what was spent in its current period.
type BudgetStatus struct {
	Budget
	PeriodStart time.Time       `json:"periodStart"`
	PeriodEnd   time.Time       `json:"periodEnd"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	Exceeded    bool            `json:"exceeded"`
}

// PeriodBounds returns the half-open period containing now. Weeks start on
// Monday.
func PeriodBounds(period string, now time.Time) (time.Time, time.Time) {
	switch period {
	case PeriodWeekly:
		start := calendar.WeekStart(now, 0)
		return start, start.AddDate(0, 0, 7)
	case PeriodYearly:
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(1, 0, 0)
	default:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0)
	}
}

func (s *Service) prepareBudget(owner string, b *Budget) error {
	if b.CategoryID == "" {
		return ErrMissingCategory
	}
	if err := positive(b.Amount); err != nil {
		return err
	}
	switch b.Period {
	case "":
		b.Period = PeriodMonthly
	case PeriodWeekly, PeriodMonthly, PeriodYearly:
	default:
		return ErrInvalidPeriod
	}
	if b.StartDate.IsZero() {
		b.StartDate = s.now().UTC()
	}
	for _, other := range s.budgets.List(owner) {
		if other.ID != b.ID && other.CategoryID == b.CategoryID && other.Period == b.Period {
			return ErrDuplicateBudget
		}
	}
	return nil
}

// Budgets lists the owner's budgets newest first.
func (s *Service) Budgets(owner string) []Budget {
	out := s.budgets.List(owner)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Service) CreateBudget(owner string, b Budget) (Budget, error) {
	b.ID = ""
	if err := s.prepareBudget(owner, &b); err != nil {
		return Budget{}, err
	}
	b.ID, b.CreatedAt = store.NewID(), s.now().UTC()
	return b, s.budgets.Put(owner, b.ID, b)
}

func (s *Service) UpdateBudget(owner, id string, fn func(*Budget) error) (Budget, error) {
	current, err := s.budgets.Get(owner, id)
	if err != nil {
		return Budget{}, err
	}
	if err := fn(&current); err != nil {
		return Budget{}, err
	}
	current.ID = id
	if err := s.prepareBudget(owner, &current); err != nil {
		return Budget{}, err
	}
	return s.budgets.Update(owner, id, func(b *Budget) error {
		created := b.CreatedAt
		*b = current
		b.CreatedAt = created
		return nil
	})
}

func (s *Service) DeleteBudget(owner, id string) error {
	return s.budgets.Delete(owner, id)
}

// BudgetStatus sums the expenses of each budget's category within the
// period that contains now.
func (s *Service) BudgetStatus(owner string, now time.Time) []BudgetStatus {
	budgets := s.Budgets(owner)
	out := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		start, end := PeriodBounds(b.Period, now)
		spent := decimal.Zero
		for _, t := range s.Transactions(owner, start, end) {
			if t.Type == TypeExpense && t.CategoryID == b.CategoryID {
				spent = spent.Add(t.Amount)
			}
		}
		out = append(out, BudgetStatus{
			Budget:      b,
			PeriodStart: start,
			PeriodEnd:   end,
			Spent:       spent,
			Remaining:   b.Amount.Sub(spent),
			Exceeded:    spent.GreaterThan(b.Amount),
		})
	}
	return out
}
