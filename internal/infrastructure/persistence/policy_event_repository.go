package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPolicyEventRepository implements EventRepository using GORM
type GormPolicyEventRepository struct {
	db *gorm.DB
}

// NewGormPolicyEventRepository creates a new GormPolicyEventRepository
func NewGormPolicyEventRepository(db *gorm.DB) *GormPolicyEventRepository {
	return &GormPolicyEventRepository{db: db}
}

// Append stores an event
func (r *GormPolicyEventRepository) Append(ctx context.Context, event *policy.PolicyEvent) error {
	if err := r.db.WithContext(ctx).Create(models.PolicyEventModelFromDomain(event)).Error; err != nil {
		return fmt.Errorf("failed to append policy event: %w", err)
	}
	return nil
}

// Exists reports whether the policy has at least one event of the given type
func (r *GormPolicyEventRepository) Exists(ctx context.Context, policyID uuid.UUID, eventType policy.EventType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PolicyEventModel{}).
		Where("policy_id = ? AND type = ?", policyID, eventType).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check policy event: %w", err)
	}
	return count > 0, nil
}

// Ensure interface compliance
var _ policy.EventRepository = (*GormPolicyEventRepository)(nil)
