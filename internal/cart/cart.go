// Package cart is the client-side shopping cart: one session's lines, kept in
// memory and mirrored to a durable cache on every change.
package cart

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Line is one product in the cart. UnitPrice already includes any
// complements chosen when the line was first added.
type Line struct {
	ProductID     int64           `json:"productId"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	ComplementKey string          `json:"complementKey,omitempty"`
}

// Subtotal is UnitPrice times Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Complement is an add-on such as a sauce. It only affects the price of the
// line it is added with and is never sent to the server on its own.
type Complement struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// DefaultComplements is the condiment list offered at the counter.
func DefaultComplements() []Complement {
	return []Complement{
		{ID: "ketchup", Name: "Ketchup", Price: decimal.Zero, Quantity: 1},
		{ID: "maionese", Name: "Maionese", Price: decimal.Zero, Quantity: 1},
		{ID: "maionese-caseira", Name: "Maionese caseira", Price: decimal.RequireFromString("2.00"), Quantity: 1},
		{ID: "pimenta", Name: "Pimenta", Price: decimal.Zero, Quantity: 1},
	}
}

// effectivePrice folds complements into the base price.
func effectivePrice(base decimal.Decimal, complements []Complement) decimal.Decimal {
	price := base
	for _, c := range complements {
		price = price.Add(c.Price.Mul(decimal.NewFromInt(int64(c.Quantity))))
	}
	return price
}

// complementKey identifies a complement selection independent of order.
func complementKey(complements []Complement) string {
	if len(complements) == 0 {
		return ""
	}
	counts := map[string]int{}
	for _, c := range complements {
		counts[c.ID] += c.Quantity
	}
	parts := make([]string, 0, len(counts))
	for id, qty := range counts {
		parts = append(parts, id+"x"+strconv.Itoa(qty))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
