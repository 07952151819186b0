// Package promotion holds the in-process promotion catalog used to price
// reservations.  Promotions change rarely, so they are kept in memory behind
// a read-write lock and replaced wholesale.
package promotion

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/vehicle-rental/internal/model"
)

// Catalog is a concurrency-safe set of promotions keyed by id.
type Catalog struct {
	mu    sync.RWMutex
	items map[uint64]model.Promotion
}

// NewCatalog returns a catalog holding promos.
func NewCatalog(promos ...model.Promotion) *Catalog {
	c := &Catalog{}
	c.replace(promos)
	return c
}

// Get returns the promotion with the given id.
func (c *Catalog) Get(id uint64) (model.Promotion, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.items[id]
	return p, ok
}

// List returns promotions ordered by id.  When activeOnly is set, only
// promotions in effect on today are returned.
func (c *Catalog) List(activeOnly bool, today time.Time) []model.Promotion {
	c.mu.RLock()
	out := make([]model.Promotion, 0, len(c.items))
	for _, p := range c.items {
		if activeOnly && !p.InEffect(today) {
			continue
		}
		out = append(out, p)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// replace swaps the whole catalog.
func (c *Catalog) replace(promos []model.Promotion) {
	next := make(map[uint64]model.Promotion, len(promos))
	for _, p := range promos {
		next[p.ID] = p
	}
	c.mu.Lock()
	c.items = next
	c.mu.Unlock()
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

// Defaults is the seasonal catalog loaded at startup.
func Defaults() []model.Promotion {
	return []model.Promotion{
		{ID: 1, Title: "February getaway", DiscountPercent: decimal.NewFromInt(15), StartDate: day(2026, time.February, 1), EndDate: day(2026, time.February, 28), Active: true},
		{ID: 2, Title: "Spring road trip", DiscountPercent: decimal.NewFromInt(20), StartDate: day(2026, time.February, 1), EndDate: day(2026, time.March, 31), Active: true},
		{ID: 3, Title: "Long weekend", DiscountPercent: decimal.NewFromInt(25), StartDate: day(2026, time.February, 1), EndDate: day(2026, time.April, 30), Active: true},
	}
}
