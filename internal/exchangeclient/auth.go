// Package exchangeclient talks to the betting exchange where lines are
// actually posted: authentication, wager placement/cancellation and wager
// history lookups (spec §5, §6 "exchange client").
package exchangeclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// authState holds the bearer tokens and their expiry, refreshed 30 seconds
// ahead of the wire deadline so a call never races an in-flight expiry.
type authState struct {
	mu                sync.RWMutex
	accessToken       string
	refreshToken      string
	accessExpiresAt   time.Time
	refreshExpiresAt  time.Time
}

const expiryBuffer = 30 * time.Second

func (s *authState) isExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.accessToken == "" {
		return true
	}
	return time.Now().After(s.accessExpiresAt.Add(-expiryBuffer))
}

func (s *authState) set(access, refresh string, accessExp, refreshExp time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	if refresh != "" {
		s.refreshToken = refresh
		s.refreshExpiresAt = refreshExp
	}
	s.accessExpiresAt = accessExp
}

func (s *authState) header() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return "Bearer " + s.accessToken
}

func (s *authState) refreshTok() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

type loginResponse struct {
	Data struct {
		AccessToken      string `json:"access_token"`
		RefreshToken     string `json:"refresh_token"`
		AccessExpireTime int64  `json:"access_expire_time"`
		RefreshExpireTime int64 `json:"refresh_expire_time"`
	} `json:"data"`
}

// authenticate performs a full key-pair login, populating authState.
func (c *Client) authenticate(ctx context.Context) error {
	var out loginResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"access_key": c.cfg.AccessKey,
			"secret_key": c.cfg.SecretKey,
		}).
		SetResult(&out).
		Post("/partner/auth/login")
	if err != nil {
		return fmt.Errorf("exchange login request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("exchange login rejected: %s", resp.Status())
	}
	if out.Data.AccessToken == "" || out.Data.RefreshToken == "" {
		return fmt.Errorf("exchange login response missing tokens")
	}

	c.auth.set(
		out.Data.AccessToken,
		out.Data.RefreshToken,
		time.Unix(out.Data.AccessExpireTime, 0),
		time.Unix(out.Data.RefreshExpireTime, 0),
	)
	return nil
}

type refreshResponse struct {
	Data struct {
		AccessToken      string `json:"access_token"`
		AccessExpireTime int64  `json:"access_expire_time"`
	} `json:"data"`
}

// refresh exchanges the refresh token for a new access token, falling back
// to a full re-authentication on any failure (mirrors the reference
// engine's own recovery path).
func (c *Client) refresh(ctx context.Context) error {
	tok := c.auth.refreshTok()
	if tok == "" {
		return c.authenticate(ctx)
	}

	var out refreshResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+tok).
		SetResult(&out).
		Post("/partner/auth/refresh")
	if err != nil || resp.StatusCode() != 200 || out.Data.AccessToken == "" {
		return c.authenticate(ctx)
	}

	c.auth.set(out.Data.AccessToken, "", time.Unix(out.Data.AccessExpireTime, 0), time.Time{})
	return nil
}

// authenticatedRequest refreshes or re-authenticates if the access token is within
// the expiry buffer of going stale, then returns a ready-to-use resty
// request carrying the bearer header.
func (c *Client) authenticatedRequest(ctx context.Context) (*resty.Request, error) {
	if c.auth.isExpired() {
		if c.auth.refreshTok() != "" {
			if err := c.refresh(ctx); err != nil {
				return nil, err
			}
		} else if err := c.authenticate(ctx); err != nil {
			return nil, err
		}
	}
	return c.http.R().SetContext(ctx).SetHeader("Authorization", c.auth.header()), nil
}

// EnsureAuth proactively refreshes the bearer token if it is within the
// expiry buffer, without issuing any other request. The scheduler calls
// this on its own ticker so a cycle's first outbound call never pays for
// an inline authenticate/refresh round trip.
func (c *Client) EnsureAuth(ctx context.Context) error {
	_, err := c.authenticatedRequest(ctx)
	return err
}
