package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ems-backend/internal/domain/entity"
	"github.com/oksasatya/go-ems-backend/internal/domain/repository"
)

const insertAuditLog = `
	INSERT INTO auth_audit_logs (user_id, email, action, ip, user_agent, metadata)
	VALUES ($1, $2, $3, $4, $5, $6)
`

// AuditRepository writes auth events through database/sql (pgx stdlib driver).
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, l *entity.AuditLog) error {
	md := l.Metadata
	if md == nil {
		md = map[string]any{}
	}
	b, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, insertAuditLog,
		nullUUID(l.UserID),
		nullText(l.Email),
		l.Action,
		nullText(l.IP),
		nullText(l.UserAgent),
		b,
	); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func nullText(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUUID(s string) sql.NullString {
	if _, err := uuid.Parse(s); err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ repository.AuditRepository = (*AuditRepository)(nil)
