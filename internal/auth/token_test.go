package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer = "https://sso.kliq.local/realms/backoffice"
	testClient = "backoffice-ui"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newVerifier(t *testing.T) (*TokenVerifier, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pub, err := ParsePublicKey(string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})))
	require.NoError(t, err)
	v, err := NewTokenVerifier(TokenConfig{Issuer: testIssuer, ClientID: testClient, Key: pub, Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	return v, key
}

func sign(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":                testIssuer,
		"sub":                "f3c1",
		"azp":                testClient,
		"exp":                fixedNow.Add(5 * time.Minute).Unix(),
		"iat":                fixedNow.Add(-time.Minute).Unix(),
		"email":              "agent@kliq.local",
		"preferred_username": "agent",
		"resource_access": map[string]any{
			testClient: map[string]any{"roles": []any{"Customer_View", "order_view"}},
			"account":  map[string]any{"roles": []any{"manage-account"}},
		},
	}
}

func TestVerifyMapsClientRolesAndClaims(t *testing.T) {
	v, key := newVerifier(t)

	p, err := v.Verify(sign(t, key, baseClaims()))
	require.NoError(t, err)
	assert.Equal(t, "f3c1", p.Subject)
	assert.Equal(t, "agent", p.Name)
	assert.Equal(t, "agent@kliq.local", p.Email)
	assert.Equal(t, []string{"Customer_View", "order_view"}, p.Roles)
	assert.False(t, p.HasRole("customer_view"))
	assert.False(t, p.HasRole("manage-account"))
	email, ok := p.Claim("email")
	assert.True(t, ok)
	assert.Equal(t, "agent@kliq.local", email)
}

func TestVerifyAcceptsAudienceInsteadOfAzp(t *testing.T) {
	v, key := newVerifier(t)
	claims := baseClaims()
	delete(claims, "azp")
	claims["aud"] = []string{"account", testClient}

	_, err := v.Verify(sign(t, key, claims))
	assert.NoError(t, err)
}

func TestVerifyRejects(t *testing.T) {
	v, key := newVerifier(t)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	cases := map[string]func() string{
		"expired": func() string {
			c := baseClaims()
			c["exp"] = fixedNow.Add(-time.Hour).Unix()
			return sign(t, key, c)
		},
		"wrong issuer": func() string {
			c := baseClaims()
			c["iss"] = "https://elsewhere"
			return sign(t, key, c)
		},
		"other client": func() string {
			c := baseClaims()
			c["azp"] = "mobile"
			return sign(t, key, c)
		},
		"no expiry": func() string {
			c := baseClaims()
			delete(c, "exp")
			return sign(t, key, c)
		},
		"foreign key": func() string { return sign(t, other, baseClaims()) },
		"hs256": func() string {
			s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, baseClaims()).SignedString([]byte("secret"))
			require.NoError(t, err)
			return s
		},
		"empty": func() string { return "" },
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token())
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewTokenVerifierRequiresConfig(t *testing.T) {
	_, err := NewTokenVerifier(TokenConfig{ClientID: testClient})
	assert.Error(t, err)
	_, err = NewTokenVerifier(TokenConfig{Issuer: testIssuer})
	assert.Error(t, err)
	_, err = NewTokenVerifier(TokenConfig{Issuer: testIssuer, ClientID: testClient})
	assert.Error(t, err)
}
