package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/domain/shared"
	"github.com/tempcover/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPolicyRepository implements PolicyRepository using GORM
type GormPolicyRepository struct {
	db *gorm.DB
}

// NewGormPolicyRepository creates a new GormPolicyRepository
func NewGormPolicyRepository(db *gorm.DB) *GormPolicyRepository {
	return &GormPolicyRepository{db: db}
}

// Create inserts a new policy
func (r *GormPolicyRepository) Create(ctx context.Context, p *policy.Policy) error {
	model := models.PolicyModelFromDomain(p)
	err := r.db.WithContext(ctx).Create(model).Error
	if err == nil {
		return nil
	}

	if pgErr, ok := rejectedData(err); ok {
		return shared.NewValidationError("policy rejected by database: " + pgErr.Message)
	}
	constraint, ok := uniqueViolation(err)
	if !ok {
		return fmt.Errorf("failed to create policy: %w", err)
	}
	return r.classifyConflict(ctx, p, constraint)
}

// classifyConflict maps a unique violation on insert to the domain error for
// the key that clashed.
func (r *GormPolicyRepository) classifyConflict(ctx context.Context, p *policy.Policy, constraint string) error {
	switch {
	case strings.Contains(constraint, "policy_number"):
		return policy.ErrPolicyNumberTaken
	case strings.Contains(constraint, "payment"):
		return policy.ErrPaymentAlreadyFinalized
	}

	// Constraint name unavailable: the payment key is the only other unique key.
	_, err := r.FindByPayment(ctx, p.Payment.Provider, p.Payment.ID)
	switch {
	case err == nil:
		return policy.ErrPaymentAlreadyFinalized
	case errors.Is(err, shared.ErrNotFound):
		return policy.ErrPolicyNumberTaken
	default:
		return err
	}
}

// FindByID finds a policy by its ID
func (r *GormPolicyRepository) FindByID(ctx context.Context, id uuid.UUID) (*policy.Policy, error) {
	var model models.PolicyModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, r.notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByPayment finds the policy created for a payment
func (r *GormPolicyRepository) FindByPayment(ctx context.Context, provider policy.PaymentProvider, paymentID string) (*policy.Policy, error) {
	var model models.PolicyModel
	err := r.db.WithContext(ctx).
		Where("payment_provider = ? AND payment_id = ?", provider, paymentID).
		First(&model).Error
	if err != nil {
		return nil, r.notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByPolicyNumber finds a policy by its customer-facing number
func (r *GormPolicyRepository) FindByPolicyNumber(ctx context.Context, policyNumber string) (*policy.Policy, error) {
	var model models.PolicyModel
	err := r.db.WithContext(ctx).
		Where("policy_number = ?", policy.NormalizePolicyNumber(policyNumber)).
		First(&model).Error
	if err != nil {
		return nil, r.notFound(err)
	}
	return model.ToDomain(), nil
}

func (r *GormPolicyRepository) notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// Ensure interface compliance
var _ policy.PolicyRepository = (*GormPolicyRepository)(nil)
