package models

import (
	"time"
)

// Model is a record kept in the local SQLite history. [JobRecord] is the only one today;
// sessions are stored as a single JSON row and do not implement it.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// Repository is CRUD over a local [Model]. List criteria keys are column names plus "limit".
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
}
