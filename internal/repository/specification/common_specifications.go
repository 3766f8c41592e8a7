package specification

import (
	"fmt"

	"atomics-registration-be/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByID filters by ID
type ByID struct {
	ID uuid.UUID
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

func (s ByID) Matches(r *entity.Registration) bool {
	return r.Id == s.ID
}

// ByIDs filters by a list of IDs
type ByIDs struct {
	IDs []uuid.UUID
}

func (s ByIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id IN ?", s.IDs)
}

func (s ByIDs) Matches(r *entity.Registration) bool {
	for _, id := range s.IDs {
		if id == r.Id {
			return true
		}
	}
	return false
}

// OrderBy applies ordering. Field must be a column name, never user input.
// Several OrderBy specs sort by each in turn.
type OrderBy struct {
	Field      string
	Desc       bool
	NullsFirst bool
}

func (s OrderBy) Apply(db *gorm.DB) *gorm.DB {
	direction := "ASC"
	if s.Desc {
		direction = "DESC"
	}
	clause := fmt.Sprintf("%s %s", s.Field, direction)
	if s.NullsFirst {
		clause += " NULLS FIRST"
	}
	return db.Order(clause)
}

type Pagination struct {
	Limit  int
	Offset int
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(s.Limit).Offset(s.Offset)
}
