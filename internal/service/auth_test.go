package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nestnote/backend/internal/config"
	"github.com/nestnote/backend/internal/model"
)

// ---- in-memory stores ----

type memAccounts struct {
	mu   sync.Mutex
	byID map[string]*model.Account
	seq  int
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byID: make(map[string]*model.Account)}
}

func copyAccount(a *model.Account) *model.Account {
	cp := *a
	return &cp
}

func (m *memAccounts) CreateAccount(_ context.Context, account *model.Account) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == account.Email {
			return nil, &pgconn.PgError{Code: "23505"}
		}
		if account.GoogleSub != "" && existing.GoogleSub == account.GoogleSub {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}
	m.seq++
	cp := copyAccount(account)
	cp.ID = fmt.Sprintf("acc-%d", m.seq)
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.byID[cp.ID] = cp
	return copyAccount(cp), nil
}

func (m *memAccounts) GetAccountByEmail(_ context.Context, email string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			return copyAccount(a), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memAccounts) GetAccountByGoogleSub(_ context.Context, sub string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.GoogleSub == sub && sub != "" {
			return copyAccount(a), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memAccounts) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[id]; ok {
		return copyAccount(a), nil
	}
	return nil, pgx.ErrNoRows
}

func (m *memAccounts) LinkGoogleSub(_ context.Context, accountID, sub, name, picture string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[accountID]
	if !ok || a.GoogleSub != "" {
		return false, nil
	}
	a.GoogleSub = sub
	if a.Name == "" {
		a.Name = name
	}
	if a.Picture == "" {
		a.Picture = picture
	}
	return true, nil
}

func (m *memAccounts) UpdateProfilePicture(_ context.Context, accountID, pictureURL string, hidden bool) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[accountID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	a.ProfilePictureURL = pictureURL
	a.ProfilePictureHidden = hidden
	return copyAccount(a), nil
}

type memRefresh struct {
	mu     sync.Mutex
	byHash map[string]*model.RefreshRecord
	seq    int
}

func newMemRefresh() *memRefresh {
	return &memRefresh{byHash: make(map[string]*model.RefreshRecord)}
}

func (m *memRefresh) CreateRefreshRecord(_ context.Context, rec *model.RefreshRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	cp := *rec
	cp.ID = fmt.Sprintf("ref-%d", m.seq)
	cp.CreatedAt = time.Now()
	m.byHash[cp.TokenHash] = &cp
	return nil
}

func (m *memRefresh) GetRefreshRecordByHash(_ context.Context, tokenHash string) (*model.RefreshRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.byHash[tokenHash]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *memRefresh) RevokeRefreshRecord(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.byHash {
		if rec.ID == id {
			if rec.RevokedAt != nil {
				return false, nil
			}
			now := time.Now()
			rec.RevokedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (m *memRefresh) RevokeRefreshRecordByHash(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.byHash[tokenHash]; ok && rec.RevokedAt == nil {
		now := time.Now()
		rec.RevokedAt = &now
	}
	return nil
}

func (m *memRefresh) liveForAccount(accountID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, rec := range m.byHash {
		if rec.AccountID == accountID && rec.Live(time.Now()) {
			count++
		}
	}
	return count
}

type fakeGoogle struct {
	claims *GoogleClaims
	err    error
}

func (f *fakeGoogle) Verify(context.Context, string) (*GoogleClaims, error) {
	return f.claims, f.err
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:    "test-secret",
		JWTAccessTTL: "15m",
	}
}

func newTestService(t *testing.T, google GoogleVerifier) (*AuthService, *memAccounts, *memRefresh) {
	t.Helper()
	accounts := newMemAccounts()
	refresh := newMemRefresh()
	svc, err := NewAuthService(accounts, refresh, google, testAuthConfig())
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return svc, accounts, refresh
}

// ---- tests ----

func TestNewAuthServiceConfig(t *testing.T) {
	accounts := newMemAccounts()
	refresh := newMemRefresh()

	cfg := testAuthConfig()
	cfg.JWTSecret = ""
	if _, err := NewAuthService(accounts, refresh, nil, cfg); !errors.Is(err, ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured for missing secret, got %v", err)
	}

	cfg = testAuthConfig()
	cfg.JWTAccessTTL = "not-a-duration"
	if _, err := NewAuthService(accounts, refresh, nil, cfg); !errors.Is(err, ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured for bad TTL, got %v", err)
	}

	cfg = testAuthConfig()
	cfg.CookieSameSiteNone = true
	cfg.CookieSecure = false
	if _, err := NewAuthService(accounts, refresh, nil, cfg); !errors.Is(err, ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured for SameSite=None without Secure, got %v", err)
	}
}

func TestParseRefreshTTLDays(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{name: "empty", raw: "", want: 180},
		{name: "valid", raw: "30", want: 30},
		{name: "zero", raw: "0", want: 180},
		{name: "negative", raw: "-5", want: 180},
		{name: "non-numeric", raw: "soon", want: 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRefreshTTLDays(tt.raw); got != tt.want {
				t.Fatalf("parseRefreshTTLDays(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "missing-email", email: "", password: "longenough1"},
		{name: "missing-password", email: "a@b.com", password: ""},
		{name: "short-password", email: "a@b.com", password: "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tt.email, tt.password, "", ClientMeta{})
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestSignupAndRefreshScenario(t *testing.T) {
	svc, _, refresh := newTestService(t, nil)
	ctx := context.Background()

	session, err := svc.Signup(ctx, "  A@B.com ", "longenough1", "", ClientMeta{UserAgent: "test-ua", IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if session.User.Email != "a@b.com" {
		t.Fatalf("email not normalized: %q", session.User.Email)
	}
	if session.User.Name != "a" {
		t.Fatalf("expected name defaulted from email local part, got %q", session.User.Name)
	}
	if session.AccessToken == "" || session.RefreshSecret == "" {
		t.Fatal("expected access token and refresh secret")
	}
	if got := refresh.liveForAccount(session.User.ID); got != 1 {
		t.Fatalf("expected 1 live refresh record, got %d", got)
	}

	rec, err := refresh.GetRefreshRecordByHash(ctx, hashRefreshSecret(session.RefreshSecret))
	if err != nil {
		t.Fatalf("record lookup: %v", err)
	}
	if rec.UserAgent != "test-ua" || rec.IP != "10.0.0.1" {
		t.Fatalf("audit metadata not recorded: %+v", rec)
	}
	if rec.RevokedAt != nil || !rec.ExpiresAt.After(time.Now()) {
		t.Fatalf("expected live record with future expiry: %+v", rec)
	}

	renewed, err := svc.Refresh(ctx, session.RefreshSecret, ClientMeta{})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if renewed.RefreshSecret == session.RefreshSecret {
		t.Fatal("refresh secret was not rotated")
	}
	if got := refresh.liveForAccount(session.User.ID); got != 1 {
		t.Fatalf("expected exactly 1 live record after rotation, got %d", got)
	}

	old, err := refresh.GetRefreshRecordByHash(ctx, hashRefreshSecret(session.RefreshSecret))
	if err != nil {
		t.Fatalf("old record lookup: %v", err)
	}
	if old.RevokedAt == nil {
		t.Fatal("original record not revoked after rotation")
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "a@b.com", "longenough1", "", ClientMeta{}); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	if _, err := svc.Signup(ctx, "a@b.com", "longenough2", "", ClientMeta{}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestLoginUniformFailure(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "a@b.com", "longenough1", "", ClientMeta{}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, unknownErr := svc.Login(ctx, "nobody@b.com", "longenough1", ClientMeta{})
	_, wrongErr := svc.Login(ctx, "a@b.com", "wrongpassword", ClientMeta{})

	if unknownErr != ErrUnauthorized || wrongErr != ErrUnauthorized {
		t.Fatalf("expected identical ErrUnauthorized for unknown email and wrong password, got %v and %v", unknownErr, wrongErr)
	}
}

func TestLoginNoPasswordHash(t *testing.T) {
	svc, accounts, _ := newTestService(t, &fakeGoogle{claims: &GoogleClaims{
		Subject: "sub-1", Email: "g@b.com", Name: "G",
	}})
	ctx := context.Background()

	// Google-only account has no password hash.
	if _, err := svc.GoogleLogin(ctx, "token", ClientMeta{}); err != nil {
		t.Fatalf("google login: %v", err)
	}
	if _, err := accounts.GetAccountByEmail(ctx, "g@b.com"); err != nil {
		t.Fatalf("account not created: %v", err)
	}

	if _, err := svc.Login(ctx, "g@b.com", "whateverpass", ClientMeta{}); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized for password login on identity-only account, got %v", err)
	}
}

func TestLoginSuccess(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "a@b.com", "longenough1", "Alice", ClientMeta{}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	session, err := svc.Login(ctx, "A@B.COM", "longenough1", ClientMeta{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.User.Name != "Alice" {
		t.Fatalf("unexpected profile: %+v", session.User)
	}

	user, err := svc.ParseAccessToken(session.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if user.ID != session.User.ID || user.Email != "a@b.com" {
		t.Fatalf("claims mismatch: %+v", user)
	}
}

func TestRefreshSingleUse(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	session, err := svc.Signup(ctx, "a@b.com", "longenough1", "", ClientMeta{})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := svc.Refresh(ctx, session.RefreshSecret, ClientMeta{}); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if _, err := svc.Refresh(ctx, session.RefreshSecret, ClientMeta{}); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized for replayed secret, got %v", err)
	}
}

func TestRefreshRejections(t *testing.T) {
	svc, _, refresh := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Refresh(ctx, "", ClientMeta{}); err != ErrUnauthorized {
		t.Fatalf("empty secret: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Refresh(ctx, "unknown-secret", ClientMeta{}); err != ErrUnauthorized {
		t.Fatalf("unknown secret: expected ErrUnauthorized, got %v", err)
	}

	session, err := svc.Signup(ctx, "a@b.com", "longenough1", "", ClientMeta{})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	// Force the record past its expiry.
	refresh.mu.Lock()
	for _, rec := range refresh.byHash {
		rec.ExpiresAt = time.Now().Add(-time.Minute)
	}
	refresh.mu.Unlock()

	if _, err := svc.Refresh(ctx, session.RefreshSecret, ClientMeta{}); err != ErrUnauthorized {
		t.Fatalf("expired secret: expected ErrUnauthorized, got %v", err)
	}
}

func TestRefreshConcurrentRedemption(t *testing.T) {
	svc, _, refresh := newTestService(t, nil)
	ctx := context.Background()

	session, err := svc.Signup(ctx, "a@b.com", "longenough1", "", ClientMeta{})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Refresh(ctx, session.RefreshSecret, ClientMeta{})
		}(i)
	}
	wg.Wait()

	success := 0
	for _, err := range errs {
		switch err {
		case nil:
			success++
		case ErrUnauthorized:
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 successful redemption, got %d", success)
	}
	if got := refresh.liveForAccount(session.User.ID); got != 1 {
		t.Fatalf("expected exactly 1 live record after the race, got %d", got)
	}
}

func TestGoogleLoginLinksExistingAccount(t *testing.T) {
	google := &fakeGoogle{claims: &GoogleClaims{
		Subject: "sub-1", Email: "a@b.com", Name: "Alice", Picture: "https://g/pic.png",
	}}
	svc, accounts, _ := newTestService(t, google)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "a@b.com", "longenough1", "", ClientMeta{}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	session, err := svc.GoogleLogin(ctx, "token", ClientMeta{})
	if err != nil {
		t.Fatalf("google login: %v", err)
	}

	account, err := accounts.GetAccountByEmail(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if account.GoogleSub != "sub-1" {
		t.Fatalf("subject not linked: %+v", account)
	}
	if session.User.ID != account.ID {
		t.Fatal("google login resolved to a different account")
	}
	if session.User.Picture != "https://g/pic.png" {
		t.Fatalf("provider picture not surfaced: %q", session.User.Picture)
	}
}

func TestGoogleLoginLinkingSafety(t *testing.T) {
	google := &fakeGoogle{claims: &GoogleClaims{Subject: "sub-1", Email: "a@b.com"}}
	svc, accounts, _ := newTestService(t, google)
	ctx := context.Background()

	first, err := svc.GoogleLogin(ctx, "token", ClientMeta{})
	if err != nil {
		t.Fatalf("first google login: %v", err)
	}

	// The same subject always resolves to the account it linked first, even
	// after the asserted email changes.
	google.claims = &GoogleClaims{Subject: "sub-1", Email: "renamed@b.com"}
	second, err := svc.GoogleLogin(ctx, "token", ClientMeta{})
	if err != nil {
		t.Fatalf("second google login: %v", err)
	}
	if second.User.ID != first.User.ID {
		t.Fatal("subject resolved to a different account")
	}

	// An account already linked to another subject is never re-linked.
	if _, err := accounts.CreateAccount(ctx, &model.Account{Email: "b@b.com", GoogleSub: "sub-other"}); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	google.claims = &GoogleClaims{Subject: "sub-2", Email: "b@b.com"}
	if _, err := svc.GoogleLogin(ctx, "token", ClientMeta{}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestGoogleLoginRejections(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeGoogle{err: errors.New("bad signature")})
	ctx := context.Background()

	if _, err := svc.GoogleLogin(ctx, "", ClientMeta{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty token: expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.GoogleLogin(ctx, "token", ClientMeta{}); err != ErrUnauthorized {
		t.Fatalf("failed verification: expected ErrUnauthorized, got %v", err)
	}

	disabled, _, _ := newTestService(t, nil)
	if _, err := disabled.GoogleLogin(ctx, "token", ClientMeta{}); err != ErrUnauthorized {
		t.Fatalf("verifier not configured: expected ErrUnauthorized, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	svc, _, refresh := newTestService(t, nil)
	ctx := context.Background()

	session, err := svc.Signup(ctx, "a@b.com", "longenough1", "", ClientMeta{})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	svc.Logout(ctx, session.RefreshSecret)
	if got := refresh.liveForAccount(session.User.ID); got != 0 {
		t.Fatalf("expected no live records after logout, got %d", got)
	}

	// Logging out again, or with no secret at all, stays a no-op.
	svc.Logout(ctx, session.RefreshSecret)
	svc.Logout(ctx, "")

	if _, err := svc.Refresh(ctx, session.RefreshSecret, ClientMeta{}); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
}

func TestPublicProfileEffectivePicture(t *testing.T) {
	tests := []struct {
		name     string
		hidden   bool
		custom   string
		provider string
		want     string
	}{
		{name: "hidden-wins", hidden: true, custom: "X", provider: "Y", want: ""},
		{name: "custom-over-provider", hidden: false, custom: "X", provider: "Y", want: "X"},
		{name: "provider-fallback", hidden: false, custom: "", provider: "Y", want: "Y"},
		{name: "nothing", hidden: false, custom: "", provider: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := PublicProfile(&model.Account{
				ProfilePictureHidden: tt.hidden,
				ProfilePictureURL:    tt.custom,
				Picture:              tt.provider,
			})
			if user.Picture != tt.want {
				t.Fatalf("effective picture = %q, want %q", user.Picture, tt.want)
			}
		})
	}
}

func TestUpdateMe(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	session, err := svc.Signup(ctx, "a@b.com", "longenough1", "", ClientMeta{})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	id := session.User.ID

	boolPtr := func(b bool) *bool { return &b }
	strPtr := func(s string) *string { return &s }

	if _, err := svc.UpdateMe(ctx, id, model.UpdateMeRequest{ProfilePictureURL: strPtr("ftp://nope")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for non-http URL, got %v", err)
	}

	user, err := svc.UpdateMe(ctx, id, model.UpdateMeRequest{ProfilePictureHidden: boolPtr(true)})
	if err != nil {
		t.Fatalf("hide: %v", err)
	}
	if !user.ProfilePictureHidden || user.Picture != "" {
		t.Fatalf("expected hidden profile, got %+v", user)
	}

	// Setting a custom URL makes the picture visible again.
	user, err = svc.UpdateMe(ctx, id, model.UpdateMeRequest{ProfilePictureURL: strPtr("https://cdn/me.png")})
	if err != nil {
		t.Fatalf("set url: %v", err)
	}
	if user.ProfilePictureHidden || user.Picture != "https://cdn/me.png" {
		t.Fatalf("expected visible custom picture, got %+v", user)
	}

	user, err = svc.UpdateMe(ctx, id, model.UpdateMeRequest{ProfilePictureURL: strPtr("")})
	if err != nil {
		t.Fatalf("clear url: %v", err)
	}
	if user.ProfilePictureURL != "" {
		t.Fatalf("expected cleared custom picture, got %+v", user)
	}

	if _, err := svc.UpdateMe(ctx, "missing", model.UpdateMeRequest{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMe(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	session, err := svc.Signup(ctx, "a@b.com", "longenough1", "Alice", ClientMeta{})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	user, err := svc.Me(ctx, session.User.ID)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if user.Email != "a@b.com" || user.Name != "Alice" {
		t.Fatalf("unexpected profile: %+v", user)
	}

	if _, err := svc.Me(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseAccessTokenRejections(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	if _, err := svc.ParseAccessToken(""); err != ErrUnauthorized {
		t.Fatalf("empty token: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.ParseAccessToken("not.a.jwt"); err != ErrUnauthorized {
		t.Fatalf("garbage token: expected ErrUnauthorized, got %v", err)
	}

	// Token signed with a different secret.
	other, _, _ := newTestService(t, nil)
	other.jwtSecret = []byte("other-secret")
	token, err := other.generateAccessToken(&model.Account{ID: "acc-1", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("generateAccessToken: %v", err)
	}
	if _, err := svc.ParseAccessToken(token); err != ErrUnauthorized {
		t.Fatalf("wrong key: expected ErrUnauthorized, got %v", err)
	}
}
