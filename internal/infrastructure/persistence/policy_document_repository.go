package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPolicyDocumentRepository implements DocumentRepository using GORM
type GormPolicyDocumentRepository struct {
	db *gorm.DB
}

// NewGormPolicyDocumentRepository creates a new GormPolicyDocumentRepository
func NewGormPolicyDocumentRepository(db *gorm.DB) *GormPolicyDocumentRepository {
	return &GormPolicyDocumentRepository{db: db}
}

// FindByPolicyID returns the documents of a policy, oldest first
func (r *GormPolicyDocumentRepository) FindByPolicyID(ctx context.Context, policyID uuid.UUID) ([]policy.PolicyDocument, error) {
	var rows []models.PolicyDocumentModel
	err := r.db.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list policy documents: %w", err)
	}

	docs := make([]policy.PolicyDocument, len(rows))
	for i := range rows {
		docs[i] = rows[i].ToDomain()
	}
	return docs, nil
}

// CreateIfAbsent inserts the document unless one of the same kind exists.
// The (policy_id, kind) unique index makes concurrent callers converge on one row.
func (r *GormPolicyDocumentRepository) CreateIfAbsent(ctx context.Context, doc *policy.PolicyDocument) (bool, error) {
	model := models.PolicyDocumentModelFromDomain(doc)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "policy_id"}, {Name: "kind"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create policy document: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Ensure interface compliance
var _ policy.DocumentRepository = (*GormPolicyDocumentRepository)(nil)
