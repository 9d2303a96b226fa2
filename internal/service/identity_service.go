package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/portfolio-next/internal/cache"
	"github.com/portfolio-next/internal/config"
	"github.com/portfolio-next/internal/constants"
	"github.com/portfolio-next/internal/logger"
	"github.com/portfolio-next/internal/models"
	"github.com/portfolio-next/internal/permission"
	"github.com/portfolio-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const defaultSessionExpireHours = 168

// Identity OAuth 提供方返回的身份信息
type Identity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
	Image    string
}

// SessionClaims 会话 JWT 声明
type SessionClaims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Session 登录结果
type Session struct {
	Actor     *permission.Actor `json:"actor"`
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// IdentityService 身份解析服务
// 持久化角色是唯一权威来源；固定管理员邮箱在每次登录时被重置为 admin。
type IdentityService struct {
	session     config.JWTConfig
	adminEmails []string
	userRepo    repository.UserRepository
	audit       *ContentAuditService
	now         func() time.Time
}

// NewIdentityService 创建身份服务
func NewIdentityService(session config.JWTConfig, auth config.AuthConfig, userRepo repository.UserRepository, audit *ContentAuditService) *IdentityService {
	return &IdentityService{
		session:     session,
		adminEmails: config.NormalizeEmails(auth.AdminEmails),
		userRepo:    userRepo,
		audit:       audit,
		now:         time.Now,
	}
}

// SignIn 登录：按邮箱创建或刷新用户，并签发会话令牌
func (s *IdentityService) SignIn(ctx context.Context, identity Identity) (*Session, error) {
	email, err := normalizeEmail(identity.Email)
	if err != nil {
		return nil, err
	}
	provider := strings.ToLower(strings.TrimSpace(identity.Provider))
	subject := strings.TrimSpace(identity.Subject)
	pinned := permission.IsPinnedEmail(email, s.adminEmails)
	now := s.now()

	var user *models.User
	for attempt := 0; ; attempt++ {
		user, err = s.upsertSignIn(ctx, email, provider, subject, identity, pinned, now)
		if !errors.Is(err, errSignInRace) || attempt > 0 {
			break
		}
		// 并发首次登录：对方已插入同邮箱用户，重读后按已有用户处理
		logger.Ctx(ctx).Debugw("identity_sign_in_retry", "email", email)
	}
	if err != nil {
		return nil, persistenceError(err)
	}

	if err := cache.SetActorState(ctx, cache.BuildActorState(user)); err != nil {
		logger.Ctx(ctx).Warnw("identity_actor_cache_set_failed", "user_id", user.ID, "error", err)
	}
	token, expiresAt, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Infow("identity_sign_in", "user_id", user.ID, "provider", provider, "role", user.Role, "pinned_admin", pinned)
	return &Session{Actor: s.actorFor(user), Token: token, ExpiresAt: expiresAt}, nil
}

// errSignInRace 新用户插入撞上唯一邮箱索引
var errSignInRace = errors.New("concurrent first sign-in")

func (s *IdentityService) upsertSignIn(ctx context.Context, email, provider, subject string, identity Identity, pinned bool, now time.Time) (*models.User, error) {
	var user *models.User
	err := s.userRepo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.userRepo.WithTx(tx)
		existing, err := repo.GetByEmailForUpdate(email)
		if err != nil {
			return err
		}
		if existing == nil {
			role := constants.RoleUser
			if pinned {
				role = constants.RoleAdmin
			}
			user = &models.User{
				Email:       email,
				Name:        strings.TrimSpace(identity.Name),
				Image:       strings.TrimSpace(identity.Image),
				Role:        role,
				LastLoginAt: &now,
			}
			if err := repo.Create(user); err != nil {
				if errors.Is(err, repository.ErrConstraintViolation) {
					return errSignInRace
				}
				return err
			}
		} else {
			updates := map[string]interface{}{"last_login_at": now}
			if name := strings.TrimSpace(identity.Name); name != "" {
				updates["name"] = name
				existing.Name = name
			}
			if image := strings.TrimSpace(identity.Image); image != "" {
				updates["image"] = image
				existing.Image = image
			}
			if pinned && existing.Role != constants.RoleAdmin {
				updates["role"] = constants.RoleAdmin
				existing.Role = constants.RoleAdmin
			}
			if err := repo.UpdateFields(existing.ID, updates); err != nil {
				return err
			}
			existing.LastLoginAt = &now
			user = existing
		}
		if provider != "" && subject != "" {
			return repo.UpsertIdentity(&models.UserOAuthIdentity{
				UserID:     user.ID,
				Provider:   provider,
				Subject:    subject,
				LastUsedAt: now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// IssueToken 签发会话令牌
func (s *IdentityService) IssueToken(user *models.User) (string, time.Time, error) {
	if strings.TrimSpace(s.session.SecretKey) == "" {
		return "", time.Time{}, errors.New("session secret is not configured")
	}
	hours := s.session.ExpireHours
	if hours <= 0 {
		hours = defaultSessionExpireHours
	}
	now := s.now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	claims := SessionClaims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.session.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken 解析会话令牌
func (s *IdentityService) ParseToken(tokenString string) (*SessionClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &SessionClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.session.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || strings.TrimSpace(claims.UserID) == "" {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}

// Resolve 将会话令牌解析为操作者
// 令牌无效或用户已不存在时返回 ErrUnauthenticated。
func (s *IdentityService) Resolve(ctx context.Context, tokenString string) (*permission.Actor, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		logger.Ctx(ctx).Debugw("identity_token_invalid", "error", err)
		return nil, ErrUnauthenticated
	}

	state, hit, err := cache.GetActorState(ctx, claims.UserID)
	if err != nil {
		logger.Ctx(ctx).Warnw("identity_actor_cache_get_failed", "user_id", claims.UserID, "error", err)
	}
	if hit && state != nil {
		return s.actorFromState(state), nil
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return nil, persistenceError(err)
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if err := cache.SetActorState(ctx, cache.BuildActorState(user)); err != nil {
		logger.Ctx(ctx).Warnw("identity_actor_cache_set_failed", "user_id", user.ID, "error", err)
	}
	return s.actorFor(user), nil
}

// SetRole 管理员手动授予角色
func (s *IdentityService) SetRole(ctx context.Context, actor *permission.Actor, userID, role string) (*models.User, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if !permission.IsAdmin(actor) {
		return nil, ErrUnauthorized
	}
	normalized := permission.NormalizeRole(role)
	if normalized == "" {
		return nil, validationError("unknown role %q", role)
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, persistenceError(err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	previous := user.Role
	if previous != normalized {
		if err := s.userRepo.UpdateFields(user.ID, map[string]interface{}{"role": normalized}); err != nil {
			return nil, persistenceError(err)
		}
		user.Role = normalized
	}
	if err := cache.DelActorState(ctx, user.ID); err != nil {
		logger.Ctx(ctx).Warnw("identity_actor_cache_del_failed", "user_id", user.ID, "error", err)
	}
	s.audit.recordQuietly(ContentAuditRecordInput{
		Actor:      actor,
		Action:     constants.AuditActionRoleGrant,
		TargetType: constants.AuditTargetUser,
		TargetID:   user.ID,
		RequestID:  logger.RequestIDFromContext(ctx),
		Detail: models.JSON{
			"from_role": previous,
			"to_role":   normalized,
			"email":     user.Email,
		},
	})
	return user, nil
}

// ListUsers 管理端用户列表
func (s *IdentityService) ListUsers(ctx context.Context, actor *permission.Actor, filter repository.UserListFilter) ([]models.User, int64, error) {
	if actor == nil {
		return nil, 0, ErrUnauthenticated
	}
	if !permission.IsAdmin(actor) {
		return nil, 0, ErrUnauthorized
	}
	if filter.Role != "" && permission.NormalizeRole(filter.Role) == "" {
		return nil, 0, validationError("unknown role %q", filter.Role)
	}
	users, total, err := s.userRepo.List(filter)
	if err != nil {
		return nil, 0, persistenceError(err)
	}
	return users, total, nil
}

func (s *IdentityService) actorFor(user *models.User) *permission.Actor {
	return &permission.Actor{
		ID:          user.ID,
		Role:        permission.NormalizeRole(user.Role),
		Email:       user.Email,
		Name:        user.Name,
		Image:       user.Image,
		PinnedAdmin: permission.IsPinnedEmail(user.Email, s.adminEmails),
	}
}

func (s *IdentityService) actorFromState(state *cache.ActorState) *permission.Actor {
	return &permission.Actor{
		ID:          state.UserID,
		Role:        permission.NormalizeRole(state.Role),
		Email:       state.Email,
		Name:        state.Name,
		Image:       state.Image,
		PinnedAdmin: permission.IsPinnedEmail(state.Email, s.adminEmails),
	}
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", validationError("email is required")
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", validationError("invalid email %q", normalized)
	}
	return normalized, nil
}
