// Package jwks provides a token.KeySet backed by a JWKS (JSON Web Key Set) endpoint.
//
// It fetches RSA public keys from a standard JWKS endpoint (RFC 7517) and
// caches them locally so dashboard credentials can be signature-checked
// without a backend round trip per validation.
package jwks

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/chimerakang/standup-go/token"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// KeySet caches RSA verification keys fetched from a JWKS URL.
type KeySet struct {
	url             string
	httpClient      *http.Client
	refreshInterval time.Duration

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey // kid → public key
	lastFetch time.Time

	sf singleflight.Group
}

// compile-time check
var _ token.KeySet = (*KeySet)(nil)

// Option configures the KeySet.
type Option func(*KeySet)

// WithHTTPClient sets a custom HTTP client for fetching JWKS.
func WithHTTPClient(c *http.Client) Option {
	return func(k *KeySet) { k.httpClient = c }
}

// WithRefreshInterval sets how often cached keys are refreshed.
// Default: 1 hour.
func WithRefreshInterval(d time.Duration) Option {
	return func(k *KeySet) { k.refreshInterval = d }
}

// NewKeySet creates a key set for the given JWKS URL. Keys are fetched lazily.
func NewKeySet(url string, opts ...Option) *KeySet {
	k := &KeySet{
		url:             url,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		refreshInterval: time.Hour,
		keys:            make(map[string]*rsa.PublicKey),
	}
	for _, o := range opts {
		o(k)
	}
	return k
}

// Keyfunc returns a jwt.Keyfunc resolving RS* keys by the token's kid header.
func (k *KeySet) Keyfunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		kid, _ := t.Header["kid"].(string)
		return k.Key(ctx, kid)
	}
}

// Key returns the RSA public key for kid, fetching or refreshing as needed.
// An empty kid selects any available key.
func (k *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	k.mu.RLock()
	key, found := k.keys[kid]
	stale := time.Since(k.lastFetch) > k.refreshInterval
	k.mu.RUnlock()

	if found && !stale {
		return key, nil
	}

	_, err, _ := k.sf.Do("refresh", func() (any, error) {
		return nil, k.refresh(ctx)
	})
	if err != nil {
		if found {
			return key, nil // stale key beats none
		}
		return nil, err
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	if key, ok := k.keys[kid]; ok {
		return key, nil
	}
	if kid == "" {
		for _, key := range k.keys {
			return key, nil
		}
	}
	return nil, fmt.Errorf("standup/jwks: key not found for kid %q", kid)
}

func (k *KeySet) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return fmt.Errorf("standup/jwks: create request: %w", err)
	}

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("standup/jwks: fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("standup/jwks: fetch returned status %d", resp.StatusCode)
	}

	var set keySetResponse
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("standup/jwks: decode: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Kty != "RSA" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		pub, err := jwk.rsaPublicKey()
		if err != nil {
			continue
		}
		keys[jwk.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("standup/jwks: no valid RSA signing keys found")
	}

	k.mu.Lock()
	k.keys = keys
	k.lastFetch = time.Now()
	k.mu.Unlock()
	return nil
}

type keySetResponse struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (j *jwk) rsaPublicKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(new(big.Int).SetBytes(e).Int64()),
	}, nil
}
