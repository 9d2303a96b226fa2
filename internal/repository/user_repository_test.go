package repository

import (
	"errors"
	"testing"

	"github.com/portfolio-next/internal/constants"
	"github.com/portfolio-next/internal/models"
)

func TestUserRepositoryEmailLookupIsNormalized(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewUserRepository(db)
	createRepositoryTestUser(t, db, "owner@example.com")

	got, err := repo.GetByEmail("  OWNER@example.com ")
	if err != nil || got == nil {
		t.Fatalf("expected user by normalized email, err=%v", err)
	}
	missing, err := repo.GetByEmail("")
	if err != nil || missing != nil {
		t.Fatalf("blank email should return nil, nil")
	}
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewUserRepository(db)
	createRepositoryTestUser(t, db, "dup@example.com")
	err := repo.Create(&models.User{Email: "dup@example.com", Role: constants.RoleUser})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
}

func TestUserRepositoryUpsertIdentity(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewUserRepository(db)
	first := createRepositoryTestUser(t, db, "a@example.com")
	second := createRepositoryTestUser(t, db, "b@example.com")

	identity := &models.UserOAuthIdentity{UserID: first.ID, Provider: constants.OAuthProviderGitHub, Subject: "42"}
	if err := repo.UpsertIdentity(identity); err != nil {
		t.Fatalf("create identity failed: %v", err)
	}
	rebound := &models.UserOAuthIdentity{UserID: second.ID, Provider: constants.OAuthProviderGitHub, Subject: "42"}
	if err := repo.UpsertIdentity(rebound); err != nil {
		t.Fatalf("rebind identity failed: %v", err)
	}
	if rebound.ID != identity.ID {
		t.Fatalf("expected same identity row")
	}
	got, err := repo.GetIdentity(constants.OAuthProviderGitHub, "42")
	if err != nil || got == nil || got.UserID != second.ID {
		t.Fatalf("unexpected identity: %+v err=%v", got, err)
	}
}

func TestUserRepositoryListByRoleAndKeyword(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewUserRepository(db)
	createRepositoryTestUser(t, db, "alice@example.com")
	mod := createRepositoryTestUser(t, db, "bob@example.com")
	if err := repo.UpdateFields(mod.ID, map[string]interface{}{"role": constants.RoleModerator}); err != nil {
		t.Fatalf("update role failed: %v", err)
	}

	rows, total, err := repo.List(UserListFilter{Role: constants.RoleModerator})
	if err != nil || total != 1 || rows[0].ID != mod.ID {
		t.Fatalf("role filter mismatch total=%d err=%v", total, err)
	}
	rows, total, err = repo.List(UserListFilter{Keyword: "alice", Page: 1, PageSize: 5})
	if err != nil || total != 1 || len(rows) != 1 {
		t.Fatalf("keyword filter mismatch total=%d err=%v", total, err)
	}
	if err := repo.UpdateFields("missing", map[string]interface{}{"role": constants.RoleAdmin}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
