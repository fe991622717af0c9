// Package clinical holds the minimal patient surface used to exercise the
// authorization contract. The full records domain lives elsewhere and only
// consumes authorization decisions.
package clinical

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"curamed.org/internal/ids"
)

// ErrNotFound means no patient exists for the id.
var ErrNotFound = errors.New("clinical: patient not found")

// Patient is a tenant-scoped resource.
type Patient struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store is the patient persistence contract.
type Store interface {
	Find(ctx context.Context, id string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
}

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Find(ctx context.Context, id string) (*Patient, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, organization_id, name, updated_at from patients where id=$1`, id)
	var p Patient
	if err := row.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *PGStore) Update(ctx context.Context, p *Patient) error {
	res, err := s.db.ExecContext(ctx,
		`update patients set name=$2, updated_at=now() where id=$1`, p.ID, p.Name)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// MemStore is an in-process Store used by tests and development boots.
type MemStore struct {
	patients map[string]*Patient
}

func NewMemStore() *MemStore {
	return &MemStore{patients: make(map[string]*Patient)}
}

// Put seeds a patient, assigning an id when absent.
func (s *MemStore) Put(p *Patient) *Patient {
	if p.ID == "" {
		p.ID = ids.New()
	}
	cp := *p
	s.patients[p.ID] = &cp
	return p
}

func (s *MemStore) Find(_ context.Context, id string) (*Patient, error) {
	p, ok := s.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemStore) Update(_ context.Context, p *Patient) error {
	existing, ok := s.patients[p.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = p.Name
	existing.UpdatedAt = time.Now()
	return nil
}
