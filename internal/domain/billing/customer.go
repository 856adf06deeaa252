package billing

import (
	"slices"
	"strings"
	"time"
)

// Customer is a billable subscriber.
// The registry owns customers; invoices only reference them by ID.
type Customer struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	MonthlyFee int64     `json:"monthly_fee"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewCustomer creates an active customer
func NewCustomer(id, name, address string, monthlyFee int64) (*Customer, error) {
	c := &Customer{
		ID:         strings.TrimSpace(id),
		Name:       strings.TrimSpace(name),
		Address:    strings.TrimSpace(address),
		MonthlyFee: monthlyFee,
		Active:     true,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the customer's fields
func (c *Customer) Validate() error {
	if c.ID == "" {
		return ErrCustomerRequired
	}
	if c.Name == "" {
		return ErrCustomerName
	}
	if c.MonthlyFee < 0 {
		return ErrNegativeFee
	}
	return nil
}

// NewInvoice snapshots the customer's current fee into an UNPAID invoice for period
func (c *Customer) NewInvoice(period Period, at time.Time) *Invoice {
	return &Invoice{
		Period:     period,
		CustomerID: c.ID,
		Amount:     c.MonthlyFee,
		Status:     InvoiceStatusUnpaid,
		CreatedAt:  at,
	}
}

// RosterDefaults are applied to customers created by a roster sync
type RosterDefaults struct {
	Address    string
	MonthlyFee int64
}

// RosterSyncResult summarizes a roster sync
type RosterSyncResult struct {
	Deactivated int64    `json:"deactivated"`
	Activated   int64    `json:"activated"`
	Created     []string `json:"created"`
	Active      int      `json:"active"`
}

// NormalizeRoster trims names, drops blanks and duplicates, and sorts the
// result so new customers receive IDs in a stable order.
func NormalizeRoster(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
