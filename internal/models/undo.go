package models

import "time"

// UndoKind is the operation being reversed.
type UndoKind string

const (
	UndoCreate UndoKind = "CREATE"
	UndoUpdate UndoKind = "UPDATE"
	UndoDelete UndoKind = "DELETE"
)

// UndoOperation is a time-bounded, reversible record of one committed
// mutation. It lives in the process-local registry until executed or expired.
type UndoOperation struct {
	ID          string    `json:"id"`
	EntityType  string    `json:"entity_type"`
	EntityIDs   []string  `json:"entity_ids"`
	Kind        UndoKind  `json:"kind"`
	InverseData []byte    `json:"-"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}
