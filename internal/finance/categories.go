package finance

import (
	"sort"
	"strings"
	"time"

	"planos/internal/store"
)

// Category groups tasks or transactions. Type is task, transaction or both.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Icon      string    `json:"icon,omitempty"`
	Type      string    `json:"type"`
	IsDefault bool      `json:"isDefault"`
	CreatedAt time.Time `json:"createdAt"`
}

var defaultCategories = []Category{
	{ID: "default-food", Name: "Food", Icon: "utensils", Color: "#10b981", Type: "transaction"},
	{ID: "default-transport", Name: "Transport", Icon: "car", Color: "#3b82f6", Type: "transaction"},
	{ID: "default-housing", Name: "Housing", Icon: "home", Color: "#8b5cf6", Type: "transaction"},
	{ID: "default-entertainment", Name: "Entertainment", Icon: "film", Color: "#ec4899", Type: "transaction"},
	{ID: "default-health", Name: "Health", Icon: "heart", Color: "#ef4444", Type: "transaction"},
	{ID: "default-shopping", Name: "Shopping", Icon: "shopping-bag", Color: "#f59e0b", Type: "transaction"},
	{ID: "default-education", Name: "Education", Icon: "book", Color: "#06b6d4", Type: "transaction"},
	{ID: "default-bills", Name: "Bills", Icon: "file-text", Color: "#64748b", Type: "transaction"},
	{ID: "default-other", Name: "Other", Icon: "more-horizontal", Color: "#6b7280", Type: "transaction"},
	{ID: "default-salary", Name: "Salary", Icon: "dollar-sign", Color: "#10b981", Type: "transaction"},
	{ID: "default-freelance", Name: "Freelance", Icon: "briefcase", Color: "#3b82f6", Type: "transaction"},
	{ID: "default-investment", Name: "Investment", Icon: "trending-up", Color: "#8b5cf6", Type: "transaction"},
	{ID: "default-gift", Name: "Gift", Icon: "gift", Color: "#ec4899", Type: "transaction"},
}

func init() {
	for i := range defaultCategories {
		defaultCategories[i].IsDefault = true
	}
}

func isDefaultCategory(id string) bool {
	for _, c := range defaultCategories {
		if c.ID == id {
			return true
		}
	}
	return false
}

func validCategory(c Category) error {
	if strings.TrimSpace(c.Name) == "" || c.Color == "" {
		return ErrInvalidCategory
	}
	switch c.Type {
	case "task", "transaction", "both":
		return nil
	}
	return ErrInvalidCategory
}

func byName(cs []Category) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })
}

// Categories returns the defaults followed by the owner's own categories,
// each group sorted by name. typ filters by type unless empty or "both".
func (s *Service) Categories(owner, typ string) []Category {
	keep := func(c Category) bool { return typ == "" || typ == "both" || c.Type == typ }
	var defaults, own []Category
	for _, c := range defaultCategories {
		if keep(c) {
			defaults = append(defaults, c)
		}
	}
	for _, c := range s.categories.List(owner) {
		if keep(c) {
			own = append(own, c)
		}
	}
	byName(defaults)
	byName(own)
	return append(defaults, own...)
}

func (s *Service) CreateCategory(owner string, c Category) (Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := validCategory(c); err != nil {
		return Category{}, err
	}
	c.ID, c.IsDefault, c.CreatedAt = store.NewID(), false, s.now().UTC()
	return c, s.categories.Put(owner, c.ID, c)
}

func (s *Service) UpdateCategory(owner, id string, fn func(*Category) error) (Category, error) {
	if isDefaultCategory(id) {
		return Category{}, ErrDefaultCategory
	}
	return s.categories.Update(owner, id, func(c *Category) error {
		created := c.CreatedAt
		if err := fn(c); err != nil {
			return err
		}
		c.Name = strings.TrimSpace(c.Name)
		c.ID, c.IsDefault, c.CreatedAt = id, false, created
		return validCategory(*c)
	})
}

func (s *Service) DeleteCategory(owner, id string) error {
	if isDefaultCategory(id) {
		return ErrDefaultCategory
	}
	return s.categories.Delete(owner, id)
}
