package webui

import (
	"net/http"

	"github.com/shopspring/decimal"

	"planos/internal/portfolio"
)

func (s *Server) handleAssets() http.HandlerFunc {
	ps := s.svc.Portfolio
	return serveCRUD(crud[portfolio.Asset]{
		list: func(_ *http.Request, owner string) (any, error) {
			return ps.Assets(owner), nil
		},
		create: ps.CreateAsset,
		// Only the name of an asset can change.
		update: func(owner, id string, fn func(*portfolio.Asset) error) (portfolio.Asset, error) {
			var patch portfolio.Asset
			if err := fn(&patch); err != nil {
				return portfolio.Asset{}, err
			}
			return ps.RenameAsset(owner, id, patch.Name)
		},
		remove: ps.DeleteAsset,
	})
}

func (s *Server) handleHoldings() http.HandlerFunc {
	ps := s.svc.Portfolio
	return serveCRUD(crud[portfolio.Holding]{
		list: func(_ *http.Request, owner string) (any, error) {
			return ps.Holdings(owner), nil
		},
		create: ps.CreateHolding,
		update: ps.UpdateHolding,
		remove: ps.DeleteHolding,
	})
}

func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Portfolio.Summarize(ownerOf(r)))
}

// handleUpdatePrices applies caller-supplied prices keyed by symbol.
func (s *Server) handleUpdatePrices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Prices map[string]decimal.Decimal `json:"prices"`
	}
	if err := decodeBody(r, &req); err != nil {
		fail(w, err)
		return
	}
	n, err := s.svc.Portfolio.ApplyPrices(ownerOf(r), req.Prices)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}
