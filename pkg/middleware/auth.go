package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/JaimeStill/agrogestion/pkg/handlers"
)

// ErrUnauthorized is returned when a request lacks a valid bearer token.
var ErrUnauthorized = errors.New("unauthorized")

// AuthConfig enables bearer-token verification against an OpenID Connect issuer.
// An empty Issuer disables authentication.
type AuthConfig struct {
	Issuer   string `toml:"issuer"`
	ClientID string `toml:"client_id"`
}

// AuthEnv maps auth config fields to environment variable names for override injection.
type AuthEnv struct {
	Issuer   string
	ClientID string
}

// Enabled reports whether an issuer is configured.
func (c *AuthConfig) Enabled() bool {
	return c.Issuer != ""
}

// Finalize applies environment variable overrides and validates the issuer URL.
func (c *AuthConfig) Finalize(env *AuthEnv) error {
	if env != nil {
		if v := os.Getenv(env.Issuer); env.Issuer != "" && v != "" {
			c.Issuer = v
		}
		if v := os.Getenv(env.ClientID); env.ClientID != "" && v != "" {
			c.ClientID = v
		}
	}

	if c.Issuer != "" && !strings.HasPrefix(c.Issuer, "https://") && !strings.HasPrefix(c.Issuer, "http://") {
		return fmt.Errorf("auth issuer must be an http(s) url: %s", c.Issuer)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *AuthConfig) Merge(overlay *AuthConfig) {
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
}

// TokenVerifier validates a raw ID token. *oidc.IDTokenVerifier satisfies it.
type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// NewVerifier discovers the issuer's keys and returns a verifier bound to the client ID.
// An empty client ID skips the audience check.
func NewVerifier(ctx context.Context, cfg *AuthConfig) (TokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discover issuer %s: %w", cfg.Issuer, err)
	}

	return provider.Verifier(&oidc.Config{
		ClientID:          cfg.ClientID,
		SkipClientIDCheck: cfg.ClientID == "",
	}), nil
}

type subjectKey struct{}

// Subject returns the verified token subject stored by Auth, if any.
func Subject(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey{}).(string)
	return sub, ok
}

// Auth returns middleware that rejects requests without a valid
// "Authorization: Bearer <token>" header with 401.
func Auth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				handlers.RespondError(w, logger, http.StatusUnauthorized, fmt.Errorf("%w: missing bearer token", ErrUnauthorized))
				return
			}

			token, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				handlers.RespondError(w, logger, http.StatusUnauthorized, fmt.Errorf("%w: %v", ErrUnauthorized, err))
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey{}, token.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
