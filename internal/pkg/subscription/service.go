package subscription

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/VeliorGroup/car-rental-sub003/app/models"
	"github.com/VeliorGroup/car-rental-sub003/app/repository"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/audit"
)

var (
	// ErrAlreadySubscribed is returned when a trial is started for a tenant
	// that already owns a subscription.
	ErrAlreadySubscribed = errors.New("tenant already has a subscription")
	// ErrPlanInactive is returned when a subscription is pointed at a
	// retired plan.
	ErrPlanInactive = errors.New("plan is not active")
)

// Qualifier is the referral hook invoked when a subscription first becomes
// active.
type Qualifier interface {
	Qualify(ctx context.Context, tenantID uint) error
}

// Service owns the subscription state machine: trial creation, plan
// reassignment and activation on payment success.
type Service struct {
	subs      repository.SubscriptionRepository
	plans     repository.PlanRepository
	qualifier Qualifier
	auditor   audit.Emitter
}

// NewService creates a subscription service from injected repositories.
func NewService(
	subs repository.SubscriptionRepository,
	plans repository.PlanRepository,
	qualifier Qualifier,
	auditor audit.Emitter,
) *Service {
	return &Service{subs: subs, plans: plans, qualifier: qualifier, auditor: auditor}
}

// StartTrial creates the tenant's subscription in trial status with a
// 14-day period. A tenant can hold at most one subscription.
func (s *Service) StartTrial(ctx context.Context, tenantID, planID uint) (*models.Subscription, error) {
	_ = ctx
	plan, err := s.plans.GetByID(planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, ErrPlanInactive
	}

	if _, err := s.subs.GetByTenantID(tenantID); err == nil {
		return nil, ErrAlreadySubscribed
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	trialEnd := now.Add(models.TrialPeriod)
	sub := &models.Subscription{
		TenantID:           tenantID,
		PlanID:             planID,
		Status:             models.SubscriptionStatusTrial,
		BillingInterval:    models.SubscriptionIntervalMonth,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   trialEnd,
		TrialEndsAt:        &trialEnd,
	}
	if err := s.subs.Create(sub); err != nil {
		// The unique index on tenant_id catches the race two concurrent
		// trials can win past the existence check.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadySubscribed
		}
		return nil, err
	}

	s.emit(tenantID, sub.ID, "subscription.trial_started", "", audit.Snapshot(sub))
	return sub, nil
}

// ChangePlan reassigns the subscription to a new plan and billing interval.
// The current period boundary is preserved: the new plan's entitlements
// apply immediately, its price applies from the next renewal.
func (s *Service) ChangePlan(ctx context.Context, tenantID, planID uint, interval string) (*models.Subscription, error) {
	_ = ctx
	plan, err := s.plans.GetByID(planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, ErrPlanInactive
	}

	sub, err := s.subs.GetByTenantID(tenantID)
	if err != nil {
		return nil, err
	}

	before := audit.Snapshot(sub)
	sub.PlanID = planID
	sub.BillingInterval = normalizeInterval(interval, sub.BillingInterval)
	if err := s.subs.Update(sub); err != nil {
		return nil, err
	}

	s.emit(tenantID, sub.ID, "subscription.plan_changed", before, audit.Snapshot(sub))
	return sub, nil
}

// OnPaymentSucceeded activates the subscription on the first confirmed
// charge and rolls a fresh billing period. Repeated signals are no-ops: the
// conditional status update only succeeds once, and referral qualification
// runs only for the winning call.
func (s *Service) OnPaymentSucceeded(ctx context.Context, tenantID uint) error {
	sub, err := s.subs.GetByTenantID(tenantID)
	if err != nil {
		return err
	}

	now := time.Now()
	won, err := s.subs.UpdateStatusIfNot(tenantID, models.SubscriptionStatusActive, now, now.Add(sub.PeriodLength()))
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	s.emit(tenantID, sub.ID, "subscription.activated", audit.Snapshot(sub), "")

	if s.qualifier != nil {
		if err := s.qualifier.Qualify(ctx, tenantID); err != nil {
			return err
		}
	}
	return nil
}

// GetSubscription returns the tenant's subscription record.
func (s *Service) GetSubscription(ctx context.Context, tenantID uint) (*models.Subscription, error) {
	_ = ctx
	return s.subs.GetByTenantID(tenantID)
}

func (s *Service) emit(tenantID, subID uint, action, oldValue, newValue string) {
	if s.auditor == nil {
		return
	}
	s.auditor.Emit(audit.Event{
		TenantID:     tenantID,
		Action:       action,
		ResourceType: "subscription",
		ResourceID:   subID,
		OldValue:     oldValue,
		NewValue:     newValue,
	})
}

func normalizeInterval(interval, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case models.SubscriptionIntervalMonth:
		return models.SubscriptionIntervalMonth
	case models.SubscriptionIntervalYear:
		return models.SubscriptionIntervalYear
	default:
		return fallback
	}
}
