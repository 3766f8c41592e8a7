package specification

import (
	"atomics-registration-be/internal/entity"

	"gorm.io/gorm"
)

// Specification defines the interface for query specifications
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}

// Matcher is implemented by filtering specifications so the in-memory store can evaluate them.
type Matcher interface {
	Matches(r *entity.Registration) bool
}
