package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/domain/shared"
	"github.com/netcollect/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCustomerRepository implements billing.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// ListActive returns active customers ordered by ID
func (r *GormCustomerRepository) ListActive(ctx context.Context) ([]billing.Customer, error) {
	var rows []models.CustomerModel
	if err := conn(ctx, r.db).
		Where("active = ?", true).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list active customers: %w", err)
	}

	customers := make([]billing.Customer, len(rows))
	for i := range rows {
		customers[i] = *rows[i].ToDomain()
	}
	return customers, nil
}

// GetFee returns a customer's current monthly fee
func (r *GormCustomerRepository) GetFee(ctx context.Context, customerID string) (int64, error) {
	var fees []int64
	if err := conn(ctx, r.db).
		Model(&models.CustomerModel{}).
		Where("id = ?", customerID).
		Limit(1).
		Pluck("monthly_fee", &fees).Error; err != nil {
		return 0, fmt.Errorf("get customer fee: %w", err)
	}
	if len(fees) == 0 {
		return 0, billing.ErrCustomerNotFound
	}
	return fees[0], nil
}

// FindByID finds a customer by its ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, customerID string) (*billing.Customer, error) {
	var model models.CustomerModel
	if err := conn(ctx, r.db).First(&model, "id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("find customer: %w", err)
	}
	return model.ToDomain(), nil
}

// Create inserts a customer
func (r *GormCustomerRepository) Create(ctx context.Context, customer *billing.Customer) error {
	now := time.Now().UTC()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	customer.UpdatedAt = customer.CreatedAt

	model := &models.CustomerModel{}
	model.FromDomain(customer)
	if err := conn(ctx, r.db).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewConflictError("CUSTOMER_EXISTS",
				fmt.Sprintf("customer %s (%s) already exists", customer.ID, customer.Name))
		}
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

// DeactivateAll clears the active flag on every active customer
func (r *GormCustomerRepository) DeactivateAll(ctx context.Context) (int64, error) {
	result := conn(ctx, r.db).
		Model(&models.CustomerModel{}).
		Where("active = ?", true).
		Updates(map[string]any{"active": false, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return 0, fmt.Errorf("deactivate customers: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ActivateByNames sets the active flag on the customers with the given names
func (r *GormCustomerRepository) ActivateByNames(ctx context.Context, names []string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}
	result := conn(ctx, r.db).
		Model(&models.CustomerModel{}).
		Where("name IN ?", names).
		Updates(map[string]any{"active": true, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return 0, fmt.Errorf("activate customers: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ExistingNames maps each of names already in the registry to its customer ID
func (r *GormCustomerRepository) ExistingNames(ctx context.Context, names []string) (map[string]string, error) {
	existing := make(map[string]string, len(names))
	if len(names) == 0 {
		return existing, nil
	}

	var rows []models.CustomerModel
	if err := conn(ctx, r.db).
		Select("id", "name").
		Where("name IN ?", names).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find customers by name: %w", err)
	}
	for _, row := range rows {
		existing[row.Name] = row.ID
	}
	return existing, nil
}

// NextNumericID returns one more than the largest purely numeric customer ID.
// Non-numeric IDs are ignored; an empty registry starts at 1.
func (r *GormCustomerRepository) NextNumericID(ctx context.Context) (int64, error) {
	var ids []string
	if err := conn(ctx, r.db).
		Model(&models.CustomerModel{}).
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("list customer ids: %w", err)
	}

	var highest int64
	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

var _ billing.CustomerRepository = (*GormCustomerRepository)(nil)
