package billing

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// RosterService applies the list of currently connected subscribers to the
// customer registry
type RosterService struct {
	serviceOptions
	tx        billing.TxManager
	customers billing.CustomerRepository
	audit     billing.AuditRepository
	defaults  billing.RosterDefaults
}

// NewRosterService creates a new RosterService.
// defaults supply the address and fee of customers first seen in a roster.
func NewRosterService(
	tx billing.TxManager,
	customers billing.CustomerRepository,
	audit billing.AuditRepository,
	defaults billing.RosterDefaults,
	opts ...Option,
) *RosterService {
	return &RosterService{
		serviceOptions: newServiceOptions(opts),
		tx:             tx,
		customers:      customers,
		audit:          audit,
		defaults:       defaults,
	}
}

// Sync makes exactly the named customers active. Known names are reactivated,
// unknown names are created with the next numeric ID, and everyone else is
// deactivated. Nothing is deleted and existing invoices are not touched, so
// repeating a sync with the same names changes nothing.
func (s *RosterService) Sync(ctx context.Context, names []string, source string) (res *billing.RosterSyncResult, err error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "roster", "sync",
		"roster.source", source,
		"roster.names", len(names))
	defer func() { s.finish(ctx, span, "roster_sync", start, err) }()

	roster := billing.NormalizeRoster(names)
	if len(roster) == 0 {
		return nil, billing.ErrEmptyRoster
	}
	source = strings.TrimSpace(source)
	if source == "" {
		source = "roster"
	}

	now := s.now()
	var event *billing.RosterSyncedEvent
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		result := billing.RosterSyncResult{Active: len(roster), Created: []string{}}

		deactivated, err := s.customers.DeactivateAll(ctx)
		if err != nil {
			return err
		}
		activated, err := s.customers.ActivateByNames(ctx, roster)
		if err != nil {
			return err
		}
		existing, err := s.customers.ExistingNames(ctx, roster)
		if err != nil {
			return err
		}

		var nextID int64
		for _, name := range roster {
			if _, ok := existing[name]; ok {
				continue
			}
			if nextID == 0 {
				if nextID, err = s.customers.NextNumericID(ctx); err != nil {
					return err
				}
			}
			customer, err := billing.NewCustomer(strconv.FormatInt(nextID, 10), name, s.defaults.Address, s.defaults.MonthlyFee)
			if err != nil {
				return err
			}
			customer.CreatedAt = now
			customer.UpdatedAt = now
			if err := s.customers.Create(ctx, customer); err != nil {
				return err
			}
			result.Created = append(result.Created, customer.ID)
			nextID++
		}

		result.Deactivated = deactivated
		result.Activated = activated
		res = &result
		event = billing.NewRosterSyncedEvent(result, source, now)
		return s.audit.Record(ctx, event)
	})
	if err != nil {
		s.log(ctx).Error("roster sync failed", zap.String("source", source), zap.Error(err))
		return nil, err
	}

	s.log(ctx).Info("roster synced",
		zap.String("source", source),
		zap.Int("active", res.Active),
		zap.Int64("deactivated", res.Deactivated),
		zap.Strings("created", res.Created))
	s.publish(ctx, event)
	return res, nil
}
