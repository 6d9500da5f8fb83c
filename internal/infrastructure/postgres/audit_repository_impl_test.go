package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/oksasatya/go-ems-backend/internal/domain/entity"
)

func TestAuditRepository_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewAuditRepository(db)

	uid := "8a7c4f5e-2b1d-4c3e-9f00-0123456789ab"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO auth_audit_logs")).
		WithArgs(uid, "ann@x.com", entity.AuditLoginSuccess, "10.0.0.1", nil, []byte(`{"source":"test"}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Record(context.Background(), &entity.AuditLog{
		UserID:   uid,
		Email:    "ann@x.com",
		Action:   entity.AuditLoginSuccess,
		IP:       "10.0.0.1",
		Metadata: map[string]any{"source": "test"},
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAuditRepository_RecordUnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewAuditRepository(db)

	// a non-uuid user id and nil metadata are stored as NULL and {}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO auth_audit_logs")).
		WithArgs(nil, "ghost@x.com", entity.AuditLoginFailed, nil, "curl/8", []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(2, 1))

	err = repo.Record(context.Background(), &entity.AuditLog{
		UserID:    "not-a-uuid",
		Email:     "ghost@x.com",
		Action:    entity.AuditLoginFailed,
		UserAgent: "curl/8",
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAuditRepository_RecordError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewAuditRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO auth_audit_logs")).
		WillReturnError(sql.ErrConnDone)

	err = repo.Record(context.Background(), &entity.AuditLog{Action: entity.AuditRegister})
	if !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("Record() error = %v, want wrapped sql.ErrConnDone", err)
	}
}
