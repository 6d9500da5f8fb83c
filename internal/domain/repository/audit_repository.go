package repository

import (
	"context"

	"github.com/oksasatya/go-ems-backend/internal/domain/entity"
)

// AuditRepository persists authentication audit events.
type AuditRepository interface {
	Record(ctx context.Context, l *entity.AuditLog) error
}
