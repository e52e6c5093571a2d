package webui

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"planos/internal/finance"
)

func (s *Server) handleCategories() http.HandlerFunc {
	fs := s.svc.Finance
	return serveCRUD(crud[finance.Category]{
		list: func(r *http.Request, owner string) (any, error) {
			return fs.Categories(owner, r.URL.Query().Get("type")), nil
		},
		create: fs.CreateCategory,
		update: fs.UpdateCategory,
		remove: fs.DeleteCategory,
	})
}

// handleTransactions filters by ?from= and ?to=. A bare date in to includes
// the whole day.
func (s *Server) handleTransactions() http.HandlerFunc {
	fs := s.svc.Finance
	return serveCRUD(crud[finance.Transaction]{
		list: func(r *http.Request, owner string) (any, error) {
			from, _, err := s.dateParam(r, "from")
			if err != nil {
				return nil, err
			}
			to, dateOnly, err := s.dateParam(r, "to")
			if err != nil {
				return nil, err
			}
			if dateOnly {
				to = to.AddDate(0, 0, 1)
			}
			return fs.Transactions(owner, from, to), nil
		},
		create: fs.CreateTransaction,
		update: fs.UpdateTransaction,
		remove: fs.DeleteTransaction,
	})
}

// dateParam accepts RFC 3339 or YYYY-MM-DD in the server's time zone.
func (s *Server) dateParam(r *http.Request, name string) (time.Time, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, s.loc); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %s must be a date", errBadBody, name)
	}
	return t, false, nil
}

func (s *Server) handleBudgets() http.HandlerFunc {
	fs := s.svc.Finance
	return serveCRUD(crud[finance.Budget]{
		list: func(_ *http.Request, owner string) (any, error) {
			return fs.Budgets(owner), nil
		},
		create: fs.CreateBudget,
		update: fs.UpdateBudget,
		remove: fs.DeleteBudget,
	})
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Finance.BudgetStatus(ownerOf(r), s.today()))
}

func (s *Server) handleRecurring() http.HandlerFunc {
	fs := s.svc.Finance
	return serveCRUD(crud[finance.Recurring]{
		list: func(_ *http.Request, owner string) (any, error) {
			return fs.RecurringList(owner), nil
		},
		create: fs.CreateRecurring,
		update: fs.UpdateRecurring,
		remove: fs.DeleteRecurring,
	})
}

// handleRecurringRun books every recurring entry of the user that is due.
func (s *Server) handleRecurringRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	created, err := s.svc.Finance.Materialize(ownerOf(r), s.today())
	if err != nil {
		fail(w, err)
		return
	}
	if created == nil {
		created = []finance.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"created":      len(created),
		"transactions": created,
	})
}
