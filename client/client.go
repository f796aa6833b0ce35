// Package client is the Go client for the nestnote API. It attaches the
// cached access token to every call, and on an authorization failure
// exchanges the refresh cookie for a new session exactly once, shared
// between all concurrent callers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// User is the public profile returned by the API.
type User struct {
	ID                   string `json:"id"`
	Email                string `json:"email"`
	Name                 string `json:"name"`
	Picture              string `json:"picture"`
	ProfilePictureURL    string `json:"profilePictureUrl"`
	ProfilePictureHidden bool   `json:"profilePictureHidden"`
}

type Comment struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	Content   string    `json:"content"`
	Author    User      `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type UpdateProfileRequest struct {
	ProfilePictureURL    *string `json:"profilePictureUrl,omitempty"`
	ProfilePictureHidden *bool   `json:"profilePictureHidden,omitempty"`
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 API response.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

type authResponse struct {
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}

type meResponse struct {
	User User `json:"user"`
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	session    *Session
	refresh    singleflight.Group
}

type Option func(*Client)

// WithHTTPClient substitutes the underlying transport. A cookie jar is
// installed on it if absent, since the refresh cookie lives in the jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSession injects the session state, letting tests or embedders share
// one session across clients.
func WithSession(s *Session) Option {
	return func(c *Client) { c.session = s }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	c := &Client{
		baseURL: u,
		session: NewSession(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.httpClient.Jar = jar
	}

	return c, nil
}

// Session exposes the client's session state.
func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) Signup(ctx context.Context, email, password, name string) (*User, error) {
	return c.authenticate(ctx, "/auth/signup", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	})
}

func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	return c.authenticate(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (c *Client) LoginWithGoogle(ctx context.Context, idToken string) (*User, error) {
	return c.authenticate(ctx, "/auth/google", map[string]string{
		"idToken": idToken,
	})
}

// Logout revokes the server-side session and always clears the local one,
// even when the call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.session.Clear()
	var out struct {
		OK bool `json:"ok"`
	}
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, &out)
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var out meResponse
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) UpdateMe(ctx context.Context, req UpdateProfileRequest) (*User, error) {
	var out meResponse
	if err := c.do(ctx, http.MethodPatch, "/auth/me", req, &out); err != nil {
		return nil, err
	}
	c.session.setUser(&out.User)
	return &out.User, nil
}

func (c *Client) CreateComment(ctx context.Context, address, content string) (*Comment, error) {
	var out Comment
	err := c.do(ctx, http.MethodPost, "/comments", map[string]string{
		"address": address,
		"content": content,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Comments(ctx context.Context, address string) ([]Comment, error) {
	var out []Comment
	path := "/comments?address=" + url.QueryEscape(address)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*User, error) {
	var out authResponse
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	c.session.set(out.AccessToken, &out.User)
	return &out.User, nil
}

// authPaths never trigger the refresh path; a 401 from any of them is
// propagated as-is to avoid refresh loops.
var authPaths = map[string]struct{}{
	"/auth/signup":  {},
	"/auth/login":   {},
	"/auth/google":  {},
	"/auth/refresh": {},
	"/auth/logout":  {},
}

func isAuthPath(path string) bool {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	_, ok := authPaths[path]
	return ok
}

// do performs one API call. Only a 401 on a non-auth path triggers the
// shared refresh, after which the original call is retried exactly once.
// Transport failures and other error classes are final.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusUnauthorized || isAuthPath(path) {
		return decodeResponse(resp, out)
	}
	originalErr := decodeResponse(resp, nil)

	if err := c.refreshSession(ctx); err != nil {
		// An unrenewable session is cleared; the caller decides whether
		// to re-authenticate.
		c.session.Clear()
		return originalErr
	}

	resp, err = c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

// refreshSession deduplicates concurrent renewals: every caller holding a
// stale token awaits the same in-flight exchange.
func (c *Client) refreshSession(ctx context.Context) error {
	_, err, _ := c.refresh.Do("refresh", func() (any, error) {
		resp, err := c.send(ctx, http.MethodPost, "/auth/refresh", nil)
		if err != nil {
			return nil, err
		}
		var out authResponse
		if err := decodeResponse(resp, &out); err != nil {
			return nil, err
		}
		c.session.set(out.AccessToken, &out.User)
		return nil, nil
	})
	return err
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	u := c.baseURL.JoinPath(strings.SplitN(path, "?", 2)[0])
	if i := strings.IndexByte(path, '?'); i >= 0 {
		u.RawQuery = path[i+1:]
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpClient.Do(req)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Message
		}
		return apiErr
	}

	if out == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
