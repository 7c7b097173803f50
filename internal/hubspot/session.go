package hubspot

import (
	"context"
	"time"

	"github.com/Martian-dev/crm-sync-infra/internal/store"
)

// Session holds the current access token and its expiry. It is shared
// across every account processed in a run: refreshing it for one account
// overwrites it for all. Accounts are processed strictly sequentially, so
// there is a single writer and no locking; introducing concurrency later
// would require protecting this state.
type Session struct {
	client       *Client
	clientID     string
	clientSecret string
	accessToken  string
	expiresAt    time.Time
}

// Token returns the current access token.
func (s *Session) Token() string {
	return s.accessToken
}

// Expired reports whether the token is past its expiry, or whether no
// expiry has been recorded yet.
func (s *Session) Expired(now time.Time) bool {
	return s.expiresAt.IsZero() || now.After(s.expiresAt)
}

// Refresh exchanges the account's refresh token for a new access token,
// stores it with its expiry on the session, and writes rotated tokens back
// onto the account record. The caller is responsible for persisting the
// account. Failure surfaces as *AuthError and is not retried here.
func (s *Session) Refresh(ctx context.Context, account *store.Account) error {
	tok, err := s.client.refreshToken(ctx, s.clientID, s.clientSecret, account.RefreshToken)
	if err != nil {
		return &AuthError{Err: err}
	}

	s.accessToken = tok.AccessToken
	s.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)

	if tok.AccessToken != account.AccessToken {
		account.AccessToken = tok.AccessToken
	}
	if tok.RefreshToken != "" && tok.RefreshToken != account.RefreshToken {
		account.RefreshToken = tok.RefreshToken
	}

	return nil
}
