package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kliq/backoffice/internal/rbac"
)

// ErrInvalidToken is returned for bearer tokens that fail verification.
var ErrInvalidToken = errors.New("invalid access token")

// TokenConfig defines how identity provider access tokens are verified.
type TokenConfig struct {
	Issuer   string
	ClientID string
	Key      *rsa.PublicKey
	Now      func() time.Time
}

// ParsePublicKey decodes a PEM encoded RSA public key.
func ParsePublicKey(pemData string) (*rsa.PublicKey, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(strings.TrimSpace(pemData)))
	if err != nil {
		return nil, fmt.Errorf("auth: parse idp public key: %w", err)
	}
	return key, nil
}

// TokenVerifier turns RS256 access tokens into principals. Client roles are
// read from resource_access.<client>.roles.
type TokenVerifier struct {
	cfg TokenConfig
}

// NewTokenVerifier validates cfg and returns a verifier.
func NewTokenVerifier(cfg TokenConfig) (*TokenVerifier, error) {
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("auth: token issuer is required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("auth: token client id is required")
	}
	if cfg.Key == nil {
		return nil, errors.New("auth: token public key is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenVerifier{cfg: cfg}, nil
}

// Verify checks signature, issuer, expiry and the authorised party, then maps
// the claims onto a principal.
func (v *TokenVerifier) Verify(raw string) (*rbac.Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.cfg.Key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.cfg.Now),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !v.issuedFor(claims) {
		return nil, fmt.Errorf("%w: token not issued for %s", ErrInvalidToken, v.cfg.ClientID)
	}

	subject, _ := claims.GetSubject()
	if subject == "" {
		return nil, fmt.Errorf("%w: subject missing", ErrInvalidToken)
	}
	name := stringClaim(claims, "name")
	if name == "" {
		name = stringClaim(claims, "preferred_username")
	}
	return rbac.NewPrincipal(subject, name, stringClaim(claims, "email"), clientRoles(claims, v.cfg.ClientID), claims), nil
}

func (v *TokenVerifier) issuedFor(claims jwt.MapClaims) bool {
	if stringClaim(claims, "azp") == v.cfg.ClientID {
		return true
	}
	aud, _ := claims.GetAudience()
	for _, a := range aud {
		if a == v.cfg.ClientID {
			return true
		}
	}
	return false
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

func clientRoles(claims jwt.MapClaims, clientID string) []string {
	access, ok := claims["resource_access"].(map[string]any)
	if !ok {
		return nil
	}
	client, ok := access[clientID].(map[string]any)
	if !ok {
		return nil
	}
	list, ok := client["roles"].([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(list))
	for _, r := range list {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}
