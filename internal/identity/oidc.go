package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"

	"github.com/conduitworks/conduit/pkg/handlers"
)

type oidcSystem struct {
	verifier *oidc.IDTokenVerifier
	logger   *slog.Logger
}

// NewOIDC creates an identity system backed by an OIDC provider. Discovery
// runs against the configured issuer during construction.
func NewOIDC(ctx context.Context, issuer, clientID string, logger *slog.Logger) (System, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider: %w", err)
	}

	return &oidcSystem{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
		logger:   logger.With("system", "identity"),
	}, nil
}

func (s *oidcSystem) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.resolve(r)
		if err != nil {
			handlers.RespondError(w, s.logger, MapHTTPStatus(err), err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (s *oidcSystem) resolve(r *http.Request) (User, error) {
	raw, ok := bearerToken(r)
	if !ok {
		return User{}, ErrUnauthenticated
	}

	token, err := s.verifier.Verify(r.Context(), raw)
	if err != nil {
		s.logger.Warn("token verification failed", "error", err)
		return User{}, ErrUnauthenticated
	}

	id, err := uuid.Parse(token.Subject)
	if err != nil {
		return User{}, fmt.Errorf("%w: subject is not a uuid", ErrUnauthenticated)
	}

	var claims struct {
		Role string `json:"role"`
	}
	if err := token.Claims(&claims); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.Role == "" {
		claims.Role = RoleUser
	}

	return User{ID: id, Role: claims.Role}, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}

	return token, true
}
