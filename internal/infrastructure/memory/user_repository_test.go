package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/oksasatya/go-ems-backend/internal/domain/entity"
	"github.com/oksasatya/go-ems-backend/internal/domain/repository"
)

func strPtr(s string) *string { return &s }

func TestUserRepository_SaveAndFind(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	u := &entity.User{Name: "Ann", Email: "ann@x.com", Avatar: strPtr("a.png")}
	if err := repo.Save(ctx, u); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if u.ID == "" {
		t.Fatal("Save() did not assign an id")
	}
	if u.CreatedAt.IsZero() || !u.CreatedAt.Equal(u.UpdatedAt) {
		t.Errorf("unexpected timestamps: created=%v updated=%v", u.CreatedAt, u.UpdatedAt)
	}

	got, err := repo.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Name != "Ann" || got.Email != "ann@x.com" || got.Avatar == nil || *got.Avatar != "a.png" {
		t.Errorf("FindByID() = %+v", got)
	}

	byEmail, err := repo.FindByEmail(ctx, "ann@x.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if byEmail.ID != u.ID {
		t.Errorf("FindByEmail() id = %q, want %q", byEmail.ID, u.ID)
	}
}

func TestUserRepository_ReturnsCopies(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	u := &entity.User{Name: "Ann", Email: "ann@x.com", Bio: strPtr("original")}
	if err := repo.Save(ctx, u); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// mutating the caller's value or a fetched value must not leak into the store
	*u.Bio = "changed-by-caller"
	got, _ := repo.FindByID(ctx, u.ID)
	got.Name = "Mallory"
	*got.Bio = "changed-by-reader"

	again, _ := repo.FindByID(ctx, u.ID)
	if again.Name != "Ann" || *again.Bio != "original" {
		t.Errorf("store state leaked: %+v bio=%q", again, *again.Bio)
	}
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("FindByID() error = %v, want ErrNotFound", err)
	}
	if _, err := repo.FindByEmail(ctx, "missing@x.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("FindByEmail() error = %v, want ErrNotFound", err)
	}
	if err := repo.Save(ctx, &entity.User{ID: "missing", Name: "x", Email: "x@x.com"}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Save(update) error = %v, want ErrNotFound", err)
	}
	all, _ := repo.FindAll(ctx)
	if len(all) != 0 {
		t.Errorf("update of unknown id created a record: %+v", all)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	a := &entity.User{Name: "A", Email: "a@x.com"}
	b := &entity.User{Name: "B", Email: "b@x.com"}
	if err := repo.Save(ctx, a); err != nil {
		t.Fatalf("Save(a) error = %v", err)
	}
	if err := repo.Save(ctx, b); err != nil {
		t.Fatalf("Save(b) error = %v", err)
	}

	if err := repo.Save(ctx, &entity.User{Name: "C", Email: "a@x.com"}); !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Errorf("insert duplicate error = %v, want ErrDuplicateEmail", err)
	}

	b.Email = "a@x.com"
	if err := repo.Save(ctx, b); !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Errorf("update to duplicate error = %v, want ErrDuplicateEmail", err)
	}

	// changing to a fresh email releases the old one
	a.Email = "a2@x.com"
	if err := repo.Save(ctx, a); err != nil {
		t.Fatalf("Save(a renamed) error = %v", err)
	}
	if err := repo.Save(ctx, &entity.User{Name: "D", Email: "a@x.com"}); err != nil {
		t.Errorf("reusing released email error = %v", err)
	}
}

func TestUserRepository_FindAllOrderAndDelete(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	ids := make([]string, 0, 3)
	for _, email := range []string{"1@x.com", "2@x.com", "3@x.com"} {
		u := &entity.User{Name: email, Email: email}
		if err := repo.Save(ctx, u); err != nil {
			t.Fatalf("Save(%s) error = %v", email, err)
		}
		ids = append(ids, u.ID)
	}

	if err := repo.DeleteByID(ctx, ids[1]); err != nil {
		t.Fatalf("DeleteByID() error = %v", err)
	}
	if err := repo.DeleteByID(ctx, ids[1]); err != nil {
		t.Errorf("DeleteByID() on missing id error = %v, want nil", err)
	}

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(all) != 2 || all[0].ID != ids[0] || all[1].ID != ids[2] {
		t.Errorf("FindAll() = %v, want ids %s,%s", all, ids[0], ids[2])
	}
	if _, err := repo.FindByEmail(ctx, "2@x.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("email index not cleared on delete: %v", err)
	}
}

func TestUserRepository_UpdateKeepsPasswordHash(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	u := &entity.User{Name: "Ann", Email: "ann@x.com", PasswordHash: strPtr("$2a$hash")}
	if err := repo.Save(ctx, u); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	stale := &entity.User{ID: u.ID, Name: "Ann B", Email: "ann@x.com"}
	if err := repo.Save(ctx, stale); err != nil {
		t.Fatalf("Save(update) error = %v", err)
	}
	if stale.PasswordHash == nil || *stale.PasswordHash != "$2a$hash" {
		t.Errorf("Save(update) did not reflect stored hash: %v", stale.PasswordHash)
	}
	got, _ := repo.FindByID(ctx, u.ID)
	if got.Name != "Ann B" || got.PasswordHash == nil || *got.PasswordHash != "$2a$hash" {
		t.Errorf("FindByID() = %+v, hash must survive update", got)
	}
}

func TestUserRepository_SetAvatar(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	u := &entity.User{Name: "Ann", Email: "ann@x.com", Bio: strPtr("hi")}
	if err := repo.Save(ctx, u); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.SetAvatar(ctx, u.ID, strPtr("a.png"))
	if err != nil {
		t.Fatalf("SetAvatar() error = %v", err)
	}
	if got.Avatar == nil || *got.Avatar != "a.png" || got.Bio == nil || *got.Bio != "hi" || got.Name != "Ann" {
		t.Errorf("SetAvatar() = %+v", got)
	}
	if _, err := repo.SetAvatar(ctx, "missing", strPtr("a.png")); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("SetAvatar(missing) error = %v, want ErrNotFound", err)
	}
}
