package jwks_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	standup "github.com/chimerakang/standup-go"
	"github.com/chimerakang/standup-go/jwks"
	"github.com/chimerakang/standup-go/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jwksServer(t *testing.T, kid *atomic.Value, pub *rsa.PublicKey, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]any{{
				"kty": "RSA",
				"use": "sig",
				"kid": kid.Load().(string),
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	}))
}

func signRS(t *testing.T, key *rsa.PrivateKey, kid string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"type":     "github_org",
		"username": "acme",
		"sub":      "inst-1",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return k
}

func TestKeySet_ValidatesSignedCredential(t *testing.T) {
	priv := newKey(t)
	var kid atomic.Value
	kid.Store("key-1")
	var hits atomic.Int32
	server := jwksServer(t, &kid, &priv.PublicKey, &hits)
	defer server.Close()

	v := token.NewValidator(token.WithKeySet(jwks.NewKeySet(server.URL)))

	for i := 0; i < 3; i++ {
		claims, err := v.Validate(context.Background(), signRS(t, priv, "key-1"), standup.TokenTypeOrg)
		require.NoError(t, err)
		assert.Equal(t, "acme", claims.OrgName())
	}
	assert.Equal(t, int32(1), hits.Load(), "keys should be cached between validations")
}

func TestKeySet_RejectsForeignKey(t *testing.T) {
	priv := newKey(t)
	var kid atomic.Value
	kid.Store("key-1")
	server := jwksServer(t, &kid, &priv.PublicKey, nil)
	defer server.Close()

	v := token.NewValidator(token.WithKeySet(jwks.NewKeySet(server.URL)))

	_, err := v.Validate(context.Background(), signRS(t, newKey(t), "key-1"), standup.TokenTypeOrg)
	assert.True(t, standup.IsAuthCode(err, standup.CodeInvalidFormat))
}

func TestKeySet_KidRotationTriggersRefresh(t *testing.T) {
	priv := newKey(t)
	var kid atomic.Value
	kid.Store("key-1")
	server := jwksServer(t, &kid, &priv.PublicKey, nil)
	defer server.Close()

	ks := jwks.NewKeySet(server.URL)
	_, err := ks.Key(context.Background(), "key-1")
	require.NoError(t, err)

	kid.Store("key-2")
	_, err = ks.Key(context.Background(), "key-2")
	require.NoError(t, err)
}

func TestKeySet_NoKidUsesAnyKey(t *testing.T) {
	priv := newKey(t)
	var kid atomic.Value
	kid.Store("the-key")
	server := jwksServer(t, &kid, &priv.PublicKey, nil)
	defer server.Close()

	v := token.NewValidator(token.WithKeySet(jwks.NewKeySet(server.URL)))
	_, err := v.Validate(context.Background(), signRS(t, priv, ""), standup.TokenTypeOrg)
	require.NoError(t, err)
}

func TestKeySet_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := jwks.NewKeySet(server.URL).Key(context.Background(), "key-1")
	assert.Error(t, err)
}

func TestKeySet_RejectsHMAC(t *testing.T) {
	priv := newKey(t)
	var kid atomic.Value
	kid.Store("key-1")
	server := jwksServer(t, &kid, &priv.PublicKey, nil)
	defer server.Close()

	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"type": "github_org", "username": "acme", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	v := token.NewValidator(token.WithKeySet(jwks.NewKeySet(server.URL)))
	_, err = v.Validate(context.Background(), hs, standup.TokenTypeOrg)
	assert.Error(t, err)
}
