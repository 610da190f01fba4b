package referral

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/VeliorGroup/car-rental-sub003/app/models"
	"github.com/VeliorGroup/car-rental-sub003/app/repository"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/audit"
)

// RewardPeriod is the subscription time granted to a referrer at each
// milestone of qualified referrals.
const RewardPeriod = 365 * 24 * time.Hour

// maxCodeAttempts bounds collision retries during code issuance. The
// keyspace holds over a million codes, so hitting the bound means the
// tenant table is effectively full of codes.
const maxCodeAttempts = 10

var (
	// ErrCodeSpaceExhausted is returned when no collision-free code could be
	// generated within the retry bound.
	ErrCodeSpaceExhausted = errors.New("referral code space exhausted")
	// ErrSelfReferral is returned when a tenant tries to redeem its own code.
	ErrSelfReferral = errors.New("tenant cannot refer itself")
)

// Engine tracks referral relationships, qualifies them when the referred
// tenant first activates, and grants milestone rewards to the referrer.
type Engine struct {
	tenants   repository.TenantRepository
	referrals repository.ReferralRepository
	subs      repository.SubscriptionRepository
	auditor   audit.Emitter
}

// NewEngine creates a referral engine from injected repositories.
func NewEngine(
	tenants repository.TenantRepository,
	referrals repository.ReferralRepository,
	subs repository.SubscriptionRepository,
	auditor audit.Emitter,
) *Engine {
	return &Engine{tenants: tenants, referrals: referrals, subs: subs, auditor: auditor}
}

// IssueCode returns the tenant's referral code, generating and storing one
// if none exists yet. Collisions against the unique index are retried with
// fresh codes, invisibly to the caller.
func (e *Engine) IssueCode(ctx context.Context, tenantID uint) (string, error) {
	_ = ctx
	tenant, err := e.tenants.GetByID(tenantID)
	if err != nil {
		return "", err
	}
	if tenant.ReferralCode != "" {
		return tenant.ReferralCode, nil
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return "", err
		}
		err = e.tenants.SetReferralCode(tenantID, code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", err
		}
	}
	return "", ErrCodeSpaceExhausted
}

// Link records that referredTenantID signed up with the given referral
// code. The referral starts pending and qualifies on first activation.
func (e *Engine) Link(ctx context.Context, code string, referredTenantID uint) (*models.Referral, error) {
	_ = ctx
	referrer, err := e.tenants.GetByReferralCode(code)
	if err != nil {
		return nil, err
	}
	if referrer.ID == referredTenantID {
		return nil, ErrSelfReferral
	}

	ref := &models.Referral{
		ReferrerTenantID: referrer.ID,
		ReferredTenantID: referredTenantID,
		Status:           models.ReferralStatusPending,
	}
	if err := e.referrals.Create(ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// Qualify marks the pending referral of a freshly activated tenant as
// qualified and grants the referrer one year per full block of qualified,
// not-yet-rewarded referrals.
//
// The pending->qualified transition is a conditional update, so a second
// activation signal racing through here loses the transition and stops
// before it can double-count the milestone. Counting only unrewarded
// referrals makes the reward self-healing: if granting fails after the
// transition, the block stays unconsumed and the next qualification grants
// it.
func (e *Engine) Qualify(ctx context.Context, tenantID uint) error {
	_ = ctx
	ref, err := e.referrals.GetByReferredTenantID(tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Tenant was not referred; nothing to do.
			return nil
		}
		return err
	}

	won, err := e.referrals.MarkQualified(ref.ID, time.Now())
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	count, err := e.referrals.CountQualified(ref.ReferrerTenantID)
	if err != nil {
		return err
	}
	blocks := count / models.RewardMilestone
	if blocks == 0 {
		return nil
	}

	if err := e.subs.ExtendPeriodEnd(ref.ReferrerTenantID, time.Duration(blocks)*RewardPeriod); err != nil {
		return err
	}
	if err := e.referrals.MarkRewarded(ref.ReferrerTenantID, int(blocks)*models.RewardMilestone); err != nil {
		log.Errorf("[Referral] failed to mark milestone referrals rewarded for tenant %d: %v", ref.ReferrerTenantID, err)
	}

	if e.auditor != nil {
		e.auditor.Emit(audit.Event{
			TenantID:     ref.ReferrerTenantID,
			Action:       "referral.milestone_reward",
			ResourceType: "referral",
			ResourceID:   ref.ID,
			NewValue:     audit.Snapshot(map[string]interface{}{"qualified_count": count, "reward_years": blocks}),
		})
	}
	return nil
}
