package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-ems-backend/internal/domain/entity"
	"github.com/oksasatya/go-ems-backend/internal/domain/repository"
)

const uniqueViolation = "23505"

const userColumns = `id::text, name, email, avatar, bio, password_hash, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*entity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	// ids are UUIDs; anything else can never match
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return r.one(row)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return r.one(row)
}

func (r *UserRepository) Save(ctx context.Context, u *entity.User) error {
	if u.ID == "" {
		return r.insert(ctx, u)
	}
	return r.update(ctx, u)
}

func (r *UserRepository) insert(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, avatar, bio, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text, created_at, updated_at
	`, u.Name, u.Email, u.Avatar, u.Bio, u.PasswordHash)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return translateWriteErr("insert user", err)
	}
	return nil
}

func (r *UserRepository) update(ctx context.Context, u *entity.User) error {
	if _, err := uuid.Parse(u.ID); err != nil {
		return repository.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET name = $1, email = $2, avatar = $3, bio = $4, updated_at = now()
		WHERE id = $5
		RETURNING password_hash, created_at, updated_at
	`, u.Name, u.Email, u.Avatar, u.Bio, u.ID)

	if err := row.Scan(&u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return translateWriteErr("update user", err)
	}
	return nil
}

func (r *UserRepository) SetAvatar(ctx context.Context, id string, avatar *string) (*entity.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET avatar = $1, updated_at = now()
		WHERE id = $2
		RETURNING `+userColumns, avatar, id)
	return r.one(row)
}

func (r *UserRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (r *UserRepository) one(row pgx.Row) (*entity.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Avatar, &u.Bio, &u.PasswordHash,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

func translateWriteErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrDuplicateEmail
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ repository.UserRepository = (*UserRepository)(nil)
