package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/portfolio-next/internal/config"
	"github.com/portfolio-next/internal/constants"
	"github.com/portfolio-next/internal/models"
	"github.com/portfolio-next/internal/repository"

	"gorm.io/gorm"
)

func newIdentityTestService(t *testing.T, db *gorm.DB, pinned ...string) *IdentityService {
	t.Helper()
	return NewIdentityService(
		config.JWTConfig{SecretKey: "identity-test-secret-0123456789", ExpireHours: 1},
		config.AuthConfig{AdminEmails: pinned},
		repository.NewUserRepository(db),
		NewContentAuditService(repository.NewContentAuditLogRepository(db)),
	)
}

func TestSignInCreatesUserWithDefaultRole(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := newIdentityTestService(t, db)

	session, err := svc.SignIn(context.Background(), Identity{
		Provider: "GitHub",
		Subject:  "42",
		Email:    "  Reader@Example.com ",
		Name:     "Reader",
	})
	if err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if session.Actor.Email != "reader@example.com" || session.Actor.Role != constants.RoleUser || session.Actor.PinnedAdmin {
		t.Fatalf("unexpected actor: %+v", session.Actor)
	}
	if session.Token == "" || !session.ExpiresAt.After(time.Now()) {
		t.Fatalf("expected signed token")
	}
	var identity models.UserOAuthIdentity
	if err := db.Where("provider = ? AND subject = ?", "github", "42").First(&identity).Error; err != nil {
		t.Fatalf("identity link missing: %v", err)
	}
	if identity.UserID != session.Actor.ID {
		t.Fatalf("identity linked to wrong user")
	}
}

func TestSignInPinnedAdminIsRestoredOnEverySignIn(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := newIdentityTestService(t, db, "Owner@Example.com")
	ctx := context.Background()

	first, err := svc.SignIn(ctx, Identity{Provider: "google", Subject: "g1", Email: "owner@example.com"})
	if err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if first.Actor.Role != constants.RoleAdmin || !first.Actor.PinnedAdmin {
		t.Fatalf("pinned email must sign in as admin: %+v", first.Actor)
	}

	if err := db.Model(&models.User{}).Where("id = ?", first.Actor.ID).Update("role", constants.RoleUser).Error; err != nil {
		t.Fatalf("demote failed: %v", err)
	}
	second, err := svc.SignIn(ctx, Identity{Provider: "google", Subject: "g1", Email: "owner@example.com"})
	if err != nil {
		t.Fatalf("second sign in failed: %v", err)
	}
	if second.Actor.Role != constants.RoleAdmin {
		t.Fatalf("pinned admin must be restored, got %s", second.Actor.Role)
	}
}

func TestSignInKeepsPersistedRole(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := newIdentityTestService(t, db)
	createServiceTestUser(t, db, "mod@example.com", constants.RoleModerator)

	session, err := svc.SignIn(context.Background(), Identity{Provider: "github", Subject: "7", Email: "mod@example.com", Name: "Mod", Image: "https://img/mod.png"})
	if err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if session.Actor.Role != constants.RoleModerator {
		t.Fatalf("role must not change on sign in, got %s", session.Actor.Role)
	}
	if session.Actor.Image != "https://img/mod.png" || session.Actor.Name != "Mod" {
		t.Fatalf("profile must refresh: %+v", session.Actor)
	}
}

func TestSignInRequiresEmail(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := newIdentityTestService(t, db)
	if _, err := svc.SignIn(context.Background(), Identity{Provider: "github", Subject: "1"}); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if _, err := svc.SignIn(context.Background(), Identity{Provider: "github", Subject: "1", Email: "not-an-email"}); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected validation failure, got %v", err)
	}
}

func TestResolveUsesPersistedRoleAfterGrant(t *testing.T) {
	setupServiceTestRedis(t)
	db := setupServiceTestDB(t)
	svc := newIdentityTestService(t, db, "boss@example.com")
	ctx := context.Background()

	boss, err := svc.SignIn(ctx, Identity{Provider: "github", Subject: "b", Email: "boss@example.com"})
	if err != nil {
		t.Fatalf("boss sign in failed: %v", err)
	}
	member, err := svc.SignIn(ctx, Identity{Provider: "github", Subject: "m", Email: "member@example.com"})
	if err != nil {
		t.Fatalf("member sign in failed: %v", err)
	}

	resolved, err := svc.Resolve(ctx, member.Token)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Role != constants.RoleUser {
		t.Fatalf("unexpected role: %s", resolved.Role)
	}

	if _, err := svc.SetRole(ctx, resolved, boss.Actor.ID, constants.RoleUser); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized role grant, got %v", err)
	}
	if _, err := svc.SetRole(ctx, boss.Actor, member.Actor.ID, "superuser"); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected validation failure for unknown role, got %v", err)
	}
	if _, err := svc.SetRole(ctx, boss.Actor, "missing", constants.RoleModerator); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.SetRole(ctx, boss.Actor, member.Actor.ID, constants.RoleModerator); err != nil {
		t.Fatalf("grant moderator failed: %v", err)
	}

	// the old token still carries role=user; the persisted role wins
	resolved, err = svc.Resolve(ctx, member.Token)
	if err != nil {
		t.Fatalf("resolve after grant failed: %v", err)
	}
	if resolved.Role != constants.RoleModerator {
		t.Fatalf("expected moderator after grant, got %s", resolved.Role)
	}

	var audit models.ContentAuditLog
	if err := db.Where("action = ? AND target_id = ?", constants.AuditActionRoleGrant, member.Actor.ID).First(&audit).Error; err != nil {
		t.Fatalf("role grant audit missing: %v", err)
	}
}

func TestResolveRejectsBadTokens(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := newIdentityTestService(t, db)
	ctx := context.Background()

	if _, err := svc.Resolve(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated for empty token, got %v", err)
	}
	if _, err := svc.Resolve(ctx, "not-a-jwt"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated for garbage, got %v", err)
	}

	other := NewIdentityService(config.JWTConfig{SecretKey: "a-different-secret-value"}, config.AuthConfig{}, repository.NewUserRepository(db), nil)
	token, _, err := other.IssueToken(&models.User{ID: "ghost", Email: "ghost@example.com", Role: constants.RoleAdmin})
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	if _, err := svc.Resolve(ctx, token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated for foreign signature, got %v", err)
	}

	forged, _, err := svc.IssueToken(&models.User{ID: "ghost", Email: "ghost@example.com", Role: constants.RoleAdmin})
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	if _, err := svc.Resolve(ctx, forged); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated for unknown user, got %v", err)
	}
}

func TestListUsersRequiresAdmin(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := newIdentityTestService(t, db)
	admin := createServiceTestUser(t, db, "root@example.com", constants.RoleAdmin)
	user := createServiceTestUser(t, db, "plain@example.com", constants.RoleUser)

	users, total, err := svc.ListUsers(context.Background(), actorOf(admin), repository.UserListFilter{Keyword: "plain"})
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if total != 1 || users[0].ID != user.ID {
		t.Fatalf("unexpected users: %+v", users)
	}
	if _, _, err := svc.ListUsers(context.Background(), actorOf(user), repository.UserListFilter{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

// staleEmailRepo 第一次加锁读取时看不到已存在的用户，模拟两次并发首次登录
type staleEmailRepo struct {
	repository.UserRepository
	misses *int
	reads  *int
}

func (r *staleEmailRepo) WithTx(tx *gorm.DB) repository.UserRepository {
	return &staleEmailRepo{UserRepository: r.UserRepository.WithTx(tx), misses: r.misses, reads: r.reads}
}

func (r *staleEmailRepo) GetByEmailForUpdate(email string) (*models.User, error) {
	*r.reads++
	if *r.misses > 0 {
		*r.misses--
		return nil, nil
	}
	return r.UserRepository.GetByEmailForUpdate(email)
}

func TestSignInConcurrentFirstSignInRereadsWinner(t *testing.T) {
	db := setupServiceTestDB(t)
	winner := createServiceTestUser(t, db, "race@example.com", constants.RoleUser)

	misses, reads := 1, 0
	svc := NewIdentityService(
		config.JWTConfig{SecretKey: "identity-test-secret-0123456789", ExpireHours: 1},
		config.AuthConfig{},
		&staleEmailRepo{UserRepository: repository.NewUserRepository(db), misses: &misses, reads: &reads},
		NewContentAuditService(repository.NewContentAuditLogRepository(db)),
	)

	session, err := svc.SignIn(context.Background(), Identity{Provider: "github", Subject: "7", Email: "race@example.com", Name: "Racer"})
	if err != nil {
		t.Fatalf("losing sign-in should fall back to the existing user, got %v", err)
	}
	if session.Actor.ID != winner.ID {
		t.Fatalf("expected winner %s, got %s", winner.ID, session.Actor.ID)
	}
	if reads != 2 {
		t.Fatalf("expected exactly one retry, got %d reads", reads)
	}
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", "race@example.com").Count(&count).Error; err != nil || count != 1 {
		t.Fatalf("expected a single user row, count=%d err=%v", count, err)
	}

	misses = 5
	if _, err := svc.SignIn(context.Background(), Identity{Email: "race@example.com"}); !errors.Is(err, ErrPersistenceFailure) {
		t.Fatalf("retry is bounded to once, got %v", err)
	}
}
