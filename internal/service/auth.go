package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nestnote/backend/internal/config"
	"github.com/nestnote/backend/internal/db"
	"github.com/nestnote/backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

const (
	refreshCookieName     = "refreshToken"
	refreshCookiePath     = "/auth/refresh"
	minPasswordLength     = 8
	defaultRefreshTTLDays = 180
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConflict      = errors.New("conflict")
	ErrNotFound      = errors.New("not found")
	ErrMisconfigured = errors.New("auth config invalid")
)

var httpURLPattern = regexp.MustCompile(`(?i)^https?://`)

// AccountStore is the durable account record storage. *db.Postgres satisfies
// it; tests substitute an in-memory fake.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.Account) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	GetAccountByGoogleSub(ctx context.Context, sub string) (*model.Account, error)
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	LinkGoogleSub(ctx context.Context, accountID, sub, name, picture string) (bool, error)
	UpdateProfilePicture(ctx context.Context, accountID, pictureURL string, hidden bool) (*model.Account, error)
}

// RefreshStore is the durable refresh-record storage. RevokeRefreshRecord
// must be atomic: of any number of concurrent calls for the same live
// record, exactly one may report that it performed the revocation.
type RefreshStore interface {
	CreateRefreshRecord(ctx context.Context, rec *model.RefreshRecord) error
	GetRefreshRecordByHash(ctx context.Context, tokenHash string) (*model.RefreshRecord, error)
	RevokeRefreshRecord(ctx context.Context, id string) (bool, error)
	RevokeRefreshRecordByHash(ctx context.Context, tokenHash string) error
}

type CookieConfig struct {
	Name     string
	Path     string
	Secure   bool
	SameSite http.SameSite
	MaxAge   int
}

// ClientMeta is audit metadata recorded with every issued refresh record.
type ClientMeta struct {
	UserAgent string
	IP        string
}

// Session is the result of any successful authentication flow. RefreshSecret
// is the raw opaque secret destined for the HTTP-only cookie; it is never
// retained server-side.
type Session struct {
	AccessToken   string
	RefreshSecret string
	User          model.PublicUser
}

type AuthService struct {
	accounts   AccountStore
	refresh    RefreshStore
	google     GoogleVerifier
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	cookieCfg  CookieConfig
}

func NewAuthService(accounts AccountStore, refresh RefreshStore, google GoogleVerifier, cfg config.AuthConfig) (*AuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: JWT_ACCESS_SECRET is required", ErrMisconfigured)
	}

	accessTTL, err := time.ParseDuration(cfg.JWTAccessTTL)
	if err != nil || accessTTL <= 0 {
		return nil, fmt.Errorf("%w: invalid JWT_ACCESS_TTL", ErrMisconfigured)
	}

	refreshTTL := time.Duration(parseRefreshTTLDays(cfg.RefreshTTLDays)) * 24 * time.Hour

	sameSite := http.SameSiteLaxMode
	if cfg.CookieSameSiteNone {
		sameSite = http.SameSiteNoneMode
	}
	if sameSite == http.SameSiteNoneMode && !cfg.CookieSecure {
		return nil, fmt.Errorf("%w: SameSite=None requires Secure cookie", ErrMisconfigured)
	}

	return &AuthService{
		jwtSecret:  []byte(cfg.JWTSecret),
		accounts:   accounts,
		refresh:    refresh,
		google:     google,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		cookieCfg: CookieConfig{
			Name:     refreshCookieName,
			Path:     refreshCookiePath,
			Secure:   cfg.CookieSecure,
			SameSite: sameSite,
			MaxAge:   int(refreshTTL.Seconds()),
		},
	}, nil
}

func (s *AuthService) CookieConfig() CookieConfig {
	return s.cookieCfg
}

func (s *AuthService) Signup(ctx context.Context, email, password, name string, meta ClientMeta) (*Session, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}

	if _, err := s.accounts.GetAccountByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already in use", ErrConflict)
	} else if !db.IsNoRows(err) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = emailLocalPart(email)
	}

	account, err := s.accounts.CreateAccount(ctx, &model.Account{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email already in use", ErrConflict)
		}
		return nil, err
	}

	return s.issueSession(ctx, account, meta)
}

func (s *AuthService) Login(ctx context.Context, email, password string, meta ClientMeta) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	// Unknown email, missing password hash and failed verification all
	// collapse into the same failure so responses do not reveal whether
	// the account exists.
	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if account.PasswordHash == "" {
		return nil, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrUnauthorized
	}

	return s.issueSession(ctx, account, meta)
}

func (s *AuthService) GoogleLogin(ctx context.Context, idToken string, meta ClientMeta) (*Session, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, fmt.Errorf("%w: idToken is required", ErrInvalidInput)
	}
	if s.google == nil {
		return nil, ErrUnauthorized
	}

	claims, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, ErrUnauthorized
	}

	email := normalizeEmail(claims.Email)
	if email == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: google token missing fields", ErrInvalidInput)
	}

	account, err := s.resolveGoogleAccount(ctx, email, claims)
	if err != nil {
		return nil, err
	}

	return s.issueSession(ctx, account, meta)
}

// resolveGoogleAccount implements the linking policy: an already-linked
// subject always resolves to its account; an unlinked account with the
// asserted email gets the subject attached, first writer wins; otherwise a
// fresh account is created.
func (s *AuthService) resolveGoogleAccount(ctx context.Context, email string, claims *GoogleClaims) (*model.Account, error) {
	account, err := s.accounts.GetAccountByGoogleSub(ctx, claims.Subject)
	if err == nil {
		return account, nil
	}
	if !db.IsNoRows(err) {
		return nil, err
	}

	account, err = s.accounts.GetAccountByEmail(ctx, email)
	if err == nil {
		if account.GoogleSub != "" && account.GoogleSub != claims.Subject {
			return nil, fmt.Errorf("%w: account linked to another identity", ErrConflict)
		}

		linked, err := s.accounts.LinkGoogleSub(ctx, account.ID, claims.Subject, claims.Name, claims.Picture)
		if err != nil {
			return nil, err
		}
		if !linked {
			// Lost the linking race; trust whatever subject won.
			current, err := s.accounts.GetAccountByID(ctx, account.ID)
			if err != nil {
				return nil, err
			}
			if current.GoogleSub != claims.Subject {
				return nil, fmt.Errorf("%w: account linked to another identity", ErrConflict)
			}
			return current, nil
		}
		return s.accounts.GetAccountByID(ctx, account.ID)
	}
	if !db.IsNoRows(err) {
		return nil, err
	}

	name := claims.Name
	if name == "" {
		name = emailLocalPart(email)
	}
	account, err = s.accounts.CreateAccount(ctx, &model.Account{
		Email:     email,
		GoogleSub: claims.Subject,
		Name:      name,
		Picture:   claims.Picture,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: account linked to another identity", ErrConflict)
		}
		return nil, err
	}
	return account, nil
}

// Refresh redeems a refresh secret for a new session. The matched record is
// revoked before the replacement is issued, so every secret is single-use:
// a replayed secret resolves to a revoked record and fails.
func (s *AuthService) Refresh(ctx context.Context, refreshSecret string, meta ClientMeta) (*Session, error) {
	if strings.TrimSpace(refreshSecret) == "" {
		return nil, ErrUnauthorized
	}

	record, err := s.refresh.GetRefreshRecordByHash(ctx, hashRefreshSecret(refreshSecret))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if !record.Live(time.Now()) {
		return nil, ErrUnauthorized
	}

	account, err := s.accounts.GetAccountByID(ctx, record.AccountID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	// Conditional revoke is the rotation gate: of two concurrent
	// redemptions only the one that flips revoked_at proceeds to issue.
	won, err := s.refresh.RevokeRefreshRecord(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrUnauthorized
	}

	return s.issueSession(ctx, account, meta)
}

// Logout revokes the record behind the presented secret, if any. It never
// fails from the caller's point of view: the client discards its session
// regardless, so bookkeeping errors are logged and swallowed.
func (s *AuthService) Logout(ctx context.Context, refreshSecret string) {
	if strings.TrimSpace(refreshSecret) == "" {
		return
	}
	if err := s.refresh.RevokeRefreshRecordByHash(ctx, hashRefreshSecret(refreshSecret)); err != nil {
		log.Printf("Failed to revoke refresh record on logout: %v", err)
	}
}

func (s *AuthService) Me(ctx context.Context, accountID string) (*model.PublicUser, error) {
	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	user := PublicProfile(account)
	return &user, nil
}

func (s *AuthService) UpdateMe(ctx context.Context, accountID string, req model.UpdateMeRequest) (*model.PublicUser, error) {
	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	pictureURL := account.ProfilePictureURL
	hidden := account.ProfilePictureHidden

	if req.ProfilePictureHidden != nil {
		hidden = *req.ProfilePictureHidden
	}

	if req.ProfilePictureURL != nil {
		trimmed := strings.TrimSpace(*req.ProfilePictureURL)
		// Empty clears the custom picture.
		if trimmed != "" && !httpURLPattern.MatchString(trimmed) {
			return nil, fmt.Errorf("%w: profilePictureUrl must be a valid URL", ErrInvalidInput)
		}
		pictureURL = trimmed
		// A freshly set custom URL always becomes visible.
		if trimmed != "" {
			hidden = false
		}
	}

	updated, err := s.accounts.UpdateProfilePicture(ctx, accountID, pictureURL, hidden)
	if err != nil {
		return nil, err
	}
	user := PublicProfile(updated)
	return &user, nil
}

func (s *AuthService) issueSession(ctx context.Context, account *model.Account, meta ClientMeta) (*Session, error) {
	secret, secretHash, err := newRefreshSecret()
	if err != nil {
		return nil, err
	}

	if err := s.refresh.CreateRefreshRecord(ctx, &model.RefreshRecord{
		AccountID: account.ID,
		TokenHash: secretHash,
		ExpiresAt: time.Now().Add(s.refreshTTL),
		UserAgent: meta.UserAgent,
		IP:        meta.IP,
	}); err != nil {
		return nil, err
	}

	accessToken, err := s.generateAccessToken(account)
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:   accessToken,
		RefreshSecret: secret,
		User:          PublicProfile(account),
	}, nil
}

// PublicProfile projects an account onto its public shape. Picture is the
// effective picture: empty when hidden, else the custom URL, else the
// provider picture.
func PublicProfile(account *model.Account) model.PublicUser {
	effective := ""
	if !account.ProfilePictureHidden {
		effective = account.ProfilePictureURL
		if effective == "" {
			effective = account.Picture
		}
	}

	return model.PublicUser{
		ID:                   account.ID,
		Email:                account.Email,
		Name:                 account.Name,
		Picture:              effective,
		ProfilePictureURL:    account.ProfilePictureURL,
		ProfilePictureHidden: account.ProfilePictureHidden,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

func parseRefreshTTLDays(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultRefreshTTLDays
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return defaultRefreshTTLDays
	}
	return days
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
