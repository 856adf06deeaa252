package testutil

import (
	"testing"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Jakarta is UTC+7 without relying on the tz database.
var Jakarta = time.FixedZone("WIB", 7*60*60)

// SeedCustomer inserts an active customer with the given fee
func SeedCustomer(t *testing.T, db *gorm.DB, id, name string, fee int64) *billing.Customer {
	t.Helper()
	c, err := billing.NewCustomer(id, name, "", fee)
	require.NoError(t, err)
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt

	m := &models.CustomerModel{}
	m.FromDomain(c)
	require.NoError(t, db.Create(m).Error)
	return c
}

// SetCustomerActive flips a customer's active flag
func SetCustomerActive(t *testing.T, db *gorm.DB, id string, active bool) {
	t.Helper()
	require.NoError(t, db.Model(&models.CustomerModel{}).
		Where("id = ?", id).
		Update("active", active).Error)
}

// SetCustomerFee changes a customer's monthly fee
func SetCustomerFee(t *testing.T, db *gorm.DB, id string, fee int64) {
	t.Helper()
	require.NoError(t, db.Model(&models.CustomerModel{}).
		Where("id = ?", id).
		Update("monthly_fee", fee).Error)
}

// LoadInvoice reads an invoice row straight from the table
func LoadInvoice(t *testing.T, db *gorm.DB, period billing.Period, customerID string) *billing.Invoice {
	t.Helper()
	var m models.InvoiceModel
	require.NoError(t, db.Where("period = ? AND customer_id = ?", period.String(), customerID).First(&m).Error)
	return m.ToDomain()
}
