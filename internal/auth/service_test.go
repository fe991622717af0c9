package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"curamed.org/internal/session"
)

func userRow(id, orgID, username, hash, legacyRole, roleID string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "organization_id", "username", "email", "password_hash",
		"legacy_role", "role_id", "status", "created_at", "updated_at",
	})
	var org, role any
	if orgID != "" {
		org = orgID
	}
	if roleID != "" {
		role = roleID
	}
	rows.AddRow(id, org, username, username+"@clinic.test", hash,
		legacyRole, role, UserStatusActive, time.Now(), time.Now())
	return rows
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, *session.MemoryStore, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	store := NewPGStore(db)
	sessions := session.NewMemoryStore()
	codec, err := NewTokenCodec(testSecret(t, "unit-test-secret"), "curamed")
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	engine, err := NewEngine(store, "superadmin", "staff")
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	svc, err := NewService(store, sessions, codec, engine, discardLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, mock, sessions, func() { db.Close() }
}

func TestLoginSuccess(t *testing.T) {
	svc, mock, sessions, done := newTestService(t)
	defer done()

	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	mock.ExpectQuery("select (.+) from users where username=").
		WithArgs("dr.adams").
		WillReturnRows(userRow("u1", "org-1", "dr.adams", hash, "doctor", "role-1"))

	result, err := svc.Login(context.Background(), "dr.adams", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.SessionID == "" || result.Token == "" {
		t.Fatal("expected both a session and a token")
	}
	if !result.TokenExpiresAt.After(time.Now()) {
		t.Fatalf("unexpected token expiry: %v", result.TokenExpiresAt)
	}
	if result.User.Username != "dr.adams" || result.User.OrganizationID != "org-1" {
		t.Fatalf("unexpected user summary: %+v", result.User)
	}

	sess, err := sessions.Get(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("session lookup: %v", err)
	}
	if sess.User.UserID != "u1" || sess.User.RoleID != "role-1" {
		t.Fatalf("unexpected session snapshot: %+v", sess.User)
	}
	if sess.User.CurrentOrganizationID != "org-1" {
		t.Fatalf("expected current org to default to home org, got %q", sess.User.CurrentOrganizationID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// A user whose RoleID is missing gets it backfilled from the legacy role name
// during login.
func TestLoginNormalizesLegacyRole(t *testing.T) {
	svc, mock, sessions, done := newTestService(t)
	defer done()

	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	mock.ExpectQuery("select (.+) from users where username=").
		WithArgs("dr.brown").
		WillReturnRows(userRow("u2", "org-1", "dr.brown", hash, "doctor", ""))
	mock.ExpectQuery("select id, name, description, created_at, updated_at from roles where lower\\(name\\)=lower").
		WithArgs("doctor").
		WillReturnRows(roleRow("role-7", "doctor"))

	result, err := svc.Login(context.Background(), "dr.brown", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	sess, err := sessions.Get(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("session lookup: %v", err)
	}
	if sess.User.RoleID != "role-7" {
		t.Fatalf("expected backfilled role id, got %q", sess.User.RoleID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// A user with no resolvable role still logs in; the empty RoleID later keeps
// the audit gate from attributing actions to the account.
func TestLoginWithUnresolvableRole(t *testing.T) {
	svc, mock, sessions, done := newTestService(t)
	defer done()

	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	mock.ExpectQuery("select (.+) from users where username=").
		WithArgs("intern").
		WillReturnRows(userRow("u3", "org-1", "intern", hash, "ghost-role", ""))
	mock.ExpectQuery("select id, name, description, created_at, updated_at from roles where lower\\(name\\)=lower").
		WithArgs("ghost-role").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("select id, name, description, created_at, updated_at from roles where lower\\(name\\)=lower").
		WithArgs("staff").
		WillReturnError(sql.ErrNoRows)

	result, err := svc.Login(context.Background(), "intern", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	sess, err := sessions.Get(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("session lookup: %v", err)
	}
	if sess.User.RoleID != "" {
		t.Fatalf("expected empty role id, got %q", sess.User.RoleID)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, mock, _, done := newTestService(t)
	defer done()

	// Unknown username.
	mock.ExpectQuery("select (.+) from users where username=").
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)
	if _, err := svc.Login(context.Background(), "nobody", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	// Wrong password.
	hash, err := HashPassword("right-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	mock.ExpectQuery("select (.+) from users where username=").
		WithArgs("dr.adams").
		WillReturnRows(userRow("u1", "org-1", "dr.adams", hash, "doctor", "role-1"))
	if _, err := svc.Login(context.Background(), "dr.adams", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}

	// Empty input short-circuits before any query.
	if _, err := svc.Login(context.Background(), "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty input, got %v", err)
	}
}

func TestLoginDisabledUser(t *testing.T) {
	svc, mock, _, done := newTestService(t)
	defer done()

	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	rows := sqlmock.NewRows([]string{
		"id", "organization_id", "username", "email", "password_hash",
		"legacy_role", "role_id", "status", "created_at", "updated_at",
	}).AddRow("u1", "org-1", "dr.adams", "a@clinic.test", hash,
		"doctor", "role-1", UserStatusDisabled, time.Now(), time.Now())
	mock.ExpectQuery("select (.+) from users where username=").
		WithArgs("dr.adams").
		WillReturnRows(rows)

	if _, err := svc.Login(context.Background(), "dr.adams", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for disabled user, got %v", err)
	}
}

func TestLogoutIdempotent(t *testing.T) {
	svc, _, sessions, done := newTestService(t)
	defer done()

	id, err := sessions.Create(context.Background(), session.Snapshot{UserID: "u1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Logout(context.Background(), id); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := svc.Logout(context.Background(), id); err != nil {
		t.Fatalf("repeated Logout: %v", err)
	}
	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("Logout with empty id: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, mock, _, done := newTestService(t)
	defer done()

	// Too short, no queries.
	if err := svc.ChangePassword(context.Background(), "u1", "old", "short"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	hash, err := HashPassword("old-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	// Wrong current password.
	mock.ExpectQuery("select (.+) from users where id=").
		WithArgs("u1").
		WillReturnRows(userRow("u1", "org-1", "dr.adams", hash, "doctor", "role-1"))
	if err := svc.ChangePassword(context.Background(), "u1", "not-the-old-one", "new-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	// Success rehashes and persists.
	mock.ExpectQuery("select (.+) from users where id=").
		WithArgs("u1").
		WillReturnRows(userRow("u1", "org-1", "dr.adams", hash, "doctor", "role-1"))
	mock.ExpectExec("update users set password_hash=").
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := svc.ChangePassword(context.Background(), "u1", "old-password", "new-password"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSwitchOrganization(t *testing.T) {
	svc, mock, sessions, done := newTestService(t)
	defer done()

	id, err := sessions.Create(context.Background(), session.Snapshot{UserID: "u1", OrganizationID: "org-1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.SwitchOrganization(context.Background(), id, "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	mock.ExpectQuery("select id, name, created_at, updated_at from organizations where id=").
		WithArgs("org-missing").
		WillReturnError(sql.ErrNoRows)
	if err := svc.SwitchOrganization(context.Background(), id, "org-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mock.ExpectQuery("select id, name, created_at, updated_at from organizations where id=").
		WithArgs("org-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
			AddRow("org-2", "North Clinic", time.Now(), time.Now()))
	if err := svc.SwitchOrganization(context.Background(), id, "org-2"); err != nil {
		t.Fatalf("SwitchOrganization: %v", err)
	}

	sess, err := sessions.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("session lookup: %v", err)
	}
	if sess.User.CurrentOrganizationID != "org-2" {
		t.Fatalf("expected switched org, got %q", sess.User.CurrentOrganizationID)
	}
	if sess.User.OrganizationID != "org-1" {
		t.Fatalf("home org must be preserved, got %q", sess.User.OrganizationID)
	}
}
