// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
//   - base.go: BaseModel shared by every table
//   - policy.go: policies, policy_documents and policy_events
//
// Column types stay portable so the same models migrate on SQLite in tests.
// Production schema is owned by the SQL files under migrations/.
package models
