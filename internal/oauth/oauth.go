package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/portfolio-next/internal/cache"
	"github.com/portfolio-next/internal/config"
	"github.com/portfolio-next/internal/constants"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

var (
	ErrProviderDisabled = errors.New("oauth provider disabled")
	ErrInvalidState     = errors.New("oauth state invalid")
	ErrStateReplayed    = errors.New("oauth state replayed")
	ErrExchangeFailed   = errors.New("oauth code exchange failed")
	ErrProfileFailed    = errors.New("oauth profile fetch failed")
)

const (
	defaultStateTTL = 10 * time.Minute
	defaultTimeout  = 5 * time.Second

	githubUserURL   = "https://api.github.com/user"
	githubEmailsURL = "https://api.github.com/user/emails"
	googleUserURL   = "https://openidconnect.googleapis.com/v1/userinfo"
)

// Profile 第三方账号资料
type Profile struct {
	Provider string
	Subject  string
	Email    string
	Name     string
	Image    string
}

type provider struct {
	name       string
	conf       *oauth2.Config
	profileURL string
	emailsURL  string
}

type stateClaims struct {
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

// Service OAuth 授权码登录
// state 为短期签名令牌，回调时校验签名与提供方，并通过 Redis 保证一次性使用。
type Service struct {
	providers  map[string]*provider
	secret     []byte
	stateTTL   time.Duration
	httpClient *http.Client
}

// NewService 创建 OAuth 服务
func NewService(cfg config.OAuthConfig, stateSecret string) *Service {
	stateTTL := time.Duration(cfg.StateTTLSeconds) * time.Second
	if stateTTL <= 0 {
		stateTTL = defaultStateTTL
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	s := &Service{
		providers:  make(map[string]*provider),
		secret:     []byte(stateSecret),
		stateTTL:   stateTTL,
		httpClient: &http.Client{Timeout: timeout},
	}
	if cfg.GitHub.Enabled {
		s.register(&provider{
			name:       constants.OAuthProviderGitHub,
			conf:       buildConfig(cfg.GitHub, endpoints.GitHub),
			profileURL: githubUserURL,
			emailsURL:  githubEmailsURL,
		})
	}
	if cfg.Google.Enabled {
		s.register(&provider{
			name:       constants.OAuthProviderGoogle,
			conf:       buildConfig(cfg.Google, endpoints.Google),
			profileURL: googleUserURL,
		})
	}
	return s
}

func buildConfig(cfg config.OAuthProviderConfig, endpoint oauth2.Endpoint) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     strings.TrimSpace(cfg.ClientID),
		ClientSecret: strings.TrimSpace(cfg.ClientSecret),
		RedirectURL:  strings.TrimSpace(cfg.RedirectURL),
		Scopes:       cfg.Scopes,
		Endpoint:     endpoint,
	}
}

func (s *Service) register(p *provider) {
	s.providers[p.name] = p
}

// Providers 已启用的提供方
func (s *Service) Providers() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.providers))
	for _, name := range []string{constants.OAuthProviderGitHub, constants.OAuthProviderGoogle} {
		if _, ok := s.providers[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// AuthorizeURL 生成跳转授权地址
func (s *Service) AuthorizeURL(providerName string) (string, error) {
	p, err := s.lookup(providerName)
	if err != nil {
		return "", err
	}
	state, err := s.issueState(p.name)
	if err != nil {
		return "", err
	}
	return p.conf.AuthCodeURL(state), nil
}

// Exchange 校验 state、交换授权码并读取账号资料
func (s *Service) Exchange(ctx context.Context, providerName, code, state string) (*Profile, error) {
	p, err := s.lookup(providerName)
	if err != nil {
		return nil, err
	}
	if err := s.consumeState(ctx, p.name, state); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: code is empty", ErrExchangeFailed)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	client := p.conf.Client(ctx, token)

	switch p.name {
	case constants.OAuthProviderGitHub:
		return fetchGitHubProfile(ctx, client, p)
	default:
		return fetchGoogleProfile(ctx, client, p)
	}
}

func (s *Service) lookup(name string) (*provider, error) {
	if s == nil {
		return nil, ErrProviderDisabled
	}
	p, ok := s.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrProviderDisabled
	}
	return p, nil
}

func (s *Service) issueState(providerName string) (string, error) {
	now := time.Now()
	claims := stateClaims{
		Provider: providerName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.stateTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) consumeState(ctx context.Context, providerName, state string) error {
	claims := &stateClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(state), claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidState
	}
	if claims.Provider != providerName || claims.ID == "" {
		return ErrInvalidState
	}
	ok, err := cache.SetNX(ctx, "oauth:state:"+claims.ID, "1", s.stateTTL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if !ok {
		return ErrStateReplayed
	}
	return nil
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func fetchGitHubProfile(ctx context.Context, client *http.Client, p *provider) (*Profile, error) {
	var user githubUser
	if err := getJSON(ctx, client, p.profileURL, &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("%w: github user id is empty", ErrProfileFailed)
	}
	email := strings.TrimSpace(user.Email)
	if email == "" && p.emailsURL != "" {
		var emails []githubEmail
		if err := getJSON(ctx, client, p.emailsURL, &emails); err != nil {
			return nil, err
		}
		for _, item := range emails {
			if item.Primary && item.Verified {
				email = item.Email
				break
			}
		}
	}
	name := strings.TrimSpace(user.Name)
	if name == "" {
		name = user.Login
	}
	return &Profile{
		Provider: p.name,
		Subject:  strconv.FormatInt(user.ID, 10),
		Email:    email,
		Name:     name,
		Image:    user.AvatarURL,
	}, nil
}

type googleUser struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func fetchGoogleProfile(ctx context.Context, client *http.Client, p *provider) (*Profile, error) {
	var user googleUser
	if err := getJSON(ctx, client, p.profileURL, &user); err != nil {
		return nil, err
	}
	if strings.TrimSpace(user.Sub) == "" {
		return nil, fmt.Errorf("%w: google subject is empty", ErrProfileFailed)
	}
	email := user.Email
	if !user.EmailVerified {
		email = ""
	}
	return &Profile{
		Provider: p.name,
		Subject:  user.Sub,
		Email:    email,
		Name:     user.Name,
		Image:    user.Picture,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build request failed", ErrProfileFailed)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProfileFailed, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response failed", ErrProfileFailed)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrProfileFailed, resp.StatusCode)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("%w: decode response failed", ErrProfileFailed)
	}
	return nil
}
