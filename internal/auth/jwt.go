package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Operator is the authenticated caller of the admin API.
type Operator struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Verifier validates admin API tokens against a JWKS endpoint. Keys are
// cached and refreshed in the background so the request path never blocks
// on a JWKS fetch.
type Verifier struct {
	jwksURL    string
	cache      *jwk.Cache
	refreshTTL time.Duration

	mu     sync.RWMutex
	keySet jwk.Set
}

// NewVerifier creates a verifier and warms the key cache.
func NewVerifier(jwksURL string) (*Verifier, error) {
	v := &Verifier{
		jwksURL:    jwksURL,
		refreshTTL: 5 * time.Minute,
	}

	cache := jwk.NewCache(context.Background())
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(v.refreshTTL)); err != nil {
		return nil, fmt.Errorf("failed to register JWKS URL: %w", err)
	}
	v.cache = cache

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	keySet, err := v.fetchKeySet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed initial JWKS fetch: %w", err)
	}
	v.keySet = keySet

	go v.backgroundRefresh()

	return v, nil
}

func (v *Verifier) fetchKeySet(ctx context.Context) (jwk.Set, error) {
	keySet, err := v.cache.Get(ctx, v.jwksURL)
	if err != nil {
		return jwk.Fetch(ctx, v.jwksURL)
	}
	return keySet, nil
}

func (v *Verifier) backgroundRefresh() {
	ticker := time.NewTicker(v.refreshTTL)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		keySet, err := v.fetchKeySet(ctx)
		cancel()

		if err == nil {
			v.mu.Lock()
			v.keySet = keySet
			v.mu.Unlock()
		}
		// Errors are retried on the next tick.
	}
}

func (v *Verifier) getKeySet() jwk.Set {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.keySet
}

// OperatorFromRequest extracts and validates the bearer token from the
// request using the cached key set.
func (v *Verifier) OperatorFromRequest(r *http.Request) (*Operator, error) {
	token, err := jwt.ParseRequest(
		r,
		jwt.WithKeySet(v.getKeySet()),
		jwt.WithValidate(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	if token.Subject() == "" {
		return nil, fmt.Errorf("token missing subject")
	}

	op := &Operator{ID: token.Subject()}
	if emailClaim, ok := token.Get("email"); ok {
		op.Email, _ = emailClaim.(string)
	}
	return op, nil
}

// Middleware rejects requests without a valid admin token and stores the
// operator on the gin context.
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		op, err := v.OperatorFromRequest(c.Request)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		c.Set("operator", op)
		c.Next()
	}
}
