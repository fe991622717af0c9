package clinical

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestMemStore(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	p := store.Put(&Patient{OrganizationID: "org-1", Name: "Jane Roe"})
	if p.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := store.Find(ctx, p.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.Name != "Jane Roe" || got.OrganizationID != "org-1" {
		t.Fatalf("unexpected patient: %+v", got)
	}

	got.Name = "Renamed"
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, err := store.Find(ctx, p.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if again.Name != "Renamed" {
		t.Fatalf("update not applied: %+v", again)
	}

	if _, err := store.Find(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Update(ctx, &Patient{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreFind(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)
	ctx := context.Background()

	mock.ExpectQuery("select id, organization_id, name, updated_at from patients where id=").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "name", "updated_at"}).
			AddRow("p1", "org-1", "Jane Roe", time.Now()))
	p, err := store.Find(ctx, "p1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if p.OrganizationID != "org-1" {
		t.Fatalf("unexpected patient: %+v", p)
	}

	mock.ExpectQuery("select id, organization_id, name, updated_at from patients where id=").
		WithArgs("p-missing").
		WillReturnError(sql.ErrNoRows)
	if _, err := store.Find(ctx, "p-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)
	ctx := context.Background()

	mock.ExpectExec("update patients set name=").
		WithArgs("p1", "Renamed").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.Update(ctx, &Patient{ID: "p1", Name: "Renamed"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	mock.ExpectExec("update patients set name=").
		WithArgs("p-missing", "x").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.Update(ctx, &Patient{ID: "p-missing", Name: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
