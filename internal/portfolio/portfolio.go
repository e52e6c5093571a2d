// Package portfolio records investment assets and holdings and values them
// at the last known price.
package portfolio

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"planos/internal/store"
)

var (
	ErrDuplicateAsset = errors.New("asset already exists")
	ErrInvalidAsset   = errors.New("asset needs a type (stock or crypto), a symbol and a name")
	ErrInvalidHolding = errors.New("holding needs an asset, a positive quantity and a positive price")
)

const (
	TypeStock  = "stock"
	TypeCrypto = "crypto"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type Asset struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Holding is one purchase lot of an asset.
type Holding struct {
	ID            string           `json:"id"`
	AssetID       string           `json:"assetId"`
	Quantity      decimal.Decimal  `json:"quantity"`
	PurchasePrice decimal.Decimal  `json:"purchasePrice"`
	PurchaseDate  time.Time        `json:"purchaseDate"`
	Notes         string           `json:"notes,omitempty"`
	CurrentPrice  *decimal.Decimal `json:"currentPrice,omitempty"`
	LastUpdated   *time.Time       `json:"lastUpdated,omitempty"`
}

type Service struct {
	assets   *store.Collection[Asset]
	holdings *store.Collection[Holding]
	now      func() time.Time
}

func Open(dataDir string) (*Service, error) {
	assets, err := store.Open[Asset](dataDir, "assets")
	if err != nil {
		return nil, err
	}
	holdings, err := store.Open[Holding](dataDir, "holdings")
	if err != nil {
		return nil, err
	}
	return &Service{assets: assets, holdings: holdings, now: time.Now}, nil
}

func NewMemory() *Service {
	return &Service{assets: store.Memory[Asset](), holdings: store.Memory[Holding](), now: time.Now}
}

// Assets lists the owner's assets newest first.
func (s *Service) Assets(owner string) []Asset {
	out := s.assets.List(owner)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// CreateAsset upper-cases the symbol, which must be unique per owner.
func (s *Service) CreateAsset(owner string, a Asset) (Asset, error) {
	a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
	a.Name = strings.TrimSpace(a.Name)
	if (a.Type != TypeStock && a.Type != TypeCrypto) || a.Symbol == "" || a.Name == "" {
		return Asset{}, ErrInvalidAsset
	}
	for _, other := range s.assets.List(owner) {
		if other.Symbol == a.Symbol {
			return Asset{}, ErrDuplicateAsset
		}
	}
	a.ID, a.CreatedAt = store.NewID(), s.now().UTC()
	return a, s.assets.Put(owner, a.ID, a)
}

// RenameAsset is the only change allowed on an asset.
func (s *Service) RenameAsset(owner, id, name string) (Asset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Asset{}, ErrInvalidAsset
	}
	return s.assets.Update(owner, id, func(a *Asset) error {
		a.Name = name
		return nil
	})
}

// DeleteAsset removes the asset together with its holdings.
func (s *Service) DeleteAsset(owner, id string) error {
	if err := s.assets.Delete(owner, id); err != nil {
		return err
	}
	_, err := s.holdings.DeleteWhere(owner, func(h Holding) bool { return h.AssetID == id })
	return err
}

// Holdings lists lots, latest purchase first.
func (s *Service) Holdings(owner string) []Holding {
	out := s.holdings.List(owner)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PurchaseDate.After(out[j].PurchaseDate) })
	return out
}

func (s *Service) validHolding(owner string, h Holding) error {
	if !h.Quantity.IsPositive() || !h.PurchasePrice.IsPositive() {
		return ErrInvalidHolding
	}
	if _, err := s.assets.Get(owner, h.AssetID); err != nil {
		return ErrInvalidHolding
	}
	return nil
}

func (s *Service) CreateHolding(owner string, h Holding) (Holding, error) {
	if err := s.validHolding(owner, h); err != nil {
		return Holding{}, err
	}
	if h.PurchaseDate.IsZero() {
		h.PurchaseDate = s.now().UTC()
	}
	h.ID = store.NewID()
	return h, s.holdings.Put(owner, h.ID, h)
}

// UpdateHolding applies fn. A changed current price stamps LastUpdated.
func (s *Service) UpdateHolding(owner, id string, fn func(*Holding) error) (Holding, error) {
	current, err := s.holdings.Get(owner, id)
	if err != nil {
		return Holding{}, err
	}
	before := current.CurrentPrice
	if err := fn(&current); err != nil {
		return Holding{}, err
	}
	current.ID = id
	if err := s.validHolding(owner, current); err != nil {
		return Holding{}, err
	}
	if current.CurrentPrice != nil && (before == nil || !before.Equal(*current.CurrentPrice)) {
		now := s.now().UTC()
		current.LastUpdated = &now
	}
	return current, s.holdings.Put(owner, id, current)
}

func (s *Service) DeleteHolding(owner, id string) error {
	return s.holdings.Delete(owner, id)
}

// ApplyPrices sets the current price of every holding whose asset symbol is
// in prices and returns how many holdings changed. Symbols are matched
// case-insensitively.
func (s *Service) ApplyPrices(owner string, prices map[string]decimal.Decimal) (int, error) {
	bySymbol := make(map[string]decimal.Decimal, len(prices))
	for sym, p := range prices {
		if p.IsPositive() {
			bySymbol[strings.ToUpper(strings.TrimSpace(sym))] = p
		}
	}
	symbolOf := map[string]string{}
	for _, a := range s.assets.List(owner) {
		symbolOf[a.ID] = a.Symbol
	}

	now := s.now().UTC()
	var ids []string
	var changed []Holding
	for _, h := range s.holdings.List(owner) {
		p, ok := bySymbol[symbolOf[h.AssetID]]
		if !ok {
			continue
		}
		price := p
		h.CurrentPrice, h.LastUpdated = &price, &now
		ids = append(ids, h.ID)
		changed = append(changed, h)
	}
	if len(changed) == 0 {
		return 0, nil
	}
	return len(changed), s.holdings.PutMany(owner, ids, changed)
}
