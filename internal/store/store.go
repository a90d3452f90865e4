// Package store defines the CircuitStore interface for persisting named
// circuit topologies.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nvandessel/wirelogic/internal/topology"
)

// ErrNotFound is returned when no circuit has the requested name.
var ErrNotFound = errors.New("circuit not found")

// Record is a stored circuit. List leaves Document nil.
type Record struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Parts     int                `json:"parts"`
	Wires     int                `json:"wires"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Document  *topology.Document `json:"document,omitempty"`
}

// CircuitStore persists topology documents by name.
type CircuitStore interface {
	// Save stores doc under name, replacing any previous topology with that
	// name. The record ID and creation time survive replacement.
	Save(ctx context.Context, name string, doc *topology.Document) (Record, error)

	// Load returns the record and document stored under name.
	Load(ctx context.Context, name string) (Record, error)

	// List returns every record, ordered by name, without documents.
	List(ctx context.Context) ([]Record, error)

	// Delete removes the circuit stored under name.
	Delete(ctx context.Context, name string) error

	Close() error
}

// checkSave validates the arguments shared by every Save implementation.
func checkSave(name string, doc *topology.Document) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("circuit name is required")
	}
	if err := topology.Validate(doc); err != nil {
		return fmt.Errorf("saving %q: %w", name, err)
	}
	return nil
}

func notFound(name string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}
