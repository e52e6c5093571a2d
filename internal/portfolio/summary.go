package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Position values one holding. Without a known price the purchase price is
// used, so its profit is zero.
type Position struct {
	Holding
	Symbol        string          `json:"symbol"`
	Type          string          `json:"type"`
	Cost          decimal.Decimal `json:"cost"`
	Value         decimal.Decimal `json:"value"`
	Profit        decimal.Decimal `json:"profit"`
	ProfitPercent decimal.Decimal `json:"profitPercent"`
}

// Allocation is the share of one asset type in the total value.
type Allocation struct {
	Type    string          `json:"type"`
	Value   decimal.Decimal `json:"value"`
	Percent decimal.Decimal `json:"percent"`
}

type Summary struct {
	Positions     []Position      `json:"positions"`
	Allocation    []Allocation    `json:"allocation"`
	TotalCost     decimal.Decimal `json:"totalCost"`
	TotalValue    decimal.Decimal `json:"totalValue"`
	TotalProfit   decimal.Decimal `json:"totalProfit"`
	ProfitPercent decimal.Decimal `json:"profitPercent"`
}

func percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

func (s *Service) Summarize(owner string) Summary {
	assets := map[string]Asset{}
	for _, a := range s.assets.List(owner) {
		assets[a.ID] = a
	}

	sum := Summary{Positions: []Position{}, Allocation: []Allocation{}}
	byType := map[string]decimal.Decimal{}
	for _, h := range s.Holdings(owner) {
		a := assets[h.AssetID]
		price := h.PurchasePrice
		if h.CurrentPrice != nil {
			price = *h.CurrentPrice
		}
		cost := h.Quantity.Mul(h.PurchasePrice)
		value := h.Quantity.Mul(price)
		p := Position{
			Holding:       h,
			Symbol:        a.Symbol,
			Type:          a.Type,
			Cost:          cost,
			Value:         value,
			Profit:        value.Sub(cost),
			ProfitPercent: percent(value.Sub(cost), cost),
		}
		sum.Positions = append(sum.Positions, p)
		sum.TotalCost = sum.TotalCost.Add(cost)
		sum.TotalValue = sum.TotalValue.Add(value)
		byType[a.Type] = byType[a.Type].Add(value)
	}
	sum.TotalProfit = sum.TotalValue.Sub(sum.TotalCost)
	sum.ProfitPercent = percent(sum.TotalProfit, sum.TotalCost)

	for typ, v := range byType {
		sum.Allocation = append(sum.Allocation, Allocation{Type: typ, Value: v, Percent: percent(v, sum.TotalValue)})
	}
	sort.Slice(sum.Allocation, func(i, j int) bool { return sum.Allocation[i].Value.GreaterThan(sum.Allocation[j].Value) })
	return sum
}
