package shopify

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTokenClaims are the claims of an App Bridge session token
type SessionTokenClaims struct {
	Dest string `json:"dest"`
	Sid  string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// SessionToken is a verified session token
type SessionToken struct {
	Raw    string
	Shop   string
	UserID string
	Claims *SessionTokenClaims
}

// SessionTokenVerifier validates App Bridge session tokens signed with the app secret
type SessionTokenVerifier struct {
	apiKey    string
	apiSecret []byte
	leeway    time.Duration
	now       func() time.Time
}

// NewSessionTokenVerifier creates a verifier for the given app credentials
func NewSessionTokenVerifier(apiKey, apiSecret string) *SessionTokenVerifier {
	return &SessionTokenVerifier{
		apiKey:    apiKey,
		apiSecret: []byte(apiSecret),
		leeway:    5 * time.Second,
		now:       time.Now,
	}
}

// Verify checks signature, audience and lifetime and extracts the shop and user
func (v *SessionTokenVerifier) Verify(raw string) (*SessionToken, error) {
	if len(v.apiSecret) == 0 {
		return nil, errors.New("app secret is not configured")
	}

	claims := &SessionTokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return v.apiSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(v.apiKey),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	shop, err := shopFromDest(claims.Dest)
	if err != nil {
		return nil, err
	}

	return &SessionToken{
		Raw:    raw,
		Shop:   shop,
		UserID: claims.Subject,
		Claims: claims,
	}, nil
}

func shopFromDest(dest string) (string, error) {
	u, err := url.Parse(dest)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid session token destination %q", dest)
	}
	shop := strings.ToLower(u.Host)
	if !IsValidShopDomain(shop) {
		return "", fmt.Errorf("invalid shop domain %q", shop)
	}
	return shop, nil
}

// IsValidShopDomain accepts <name>.myshopify.com hosts only
func IsValidShopDomain(shop string) bool {
	shop = strings.ToLower(strings.TrimSpace(shop))
	if !strings.HasSuffix(shop, ".myshopify.com") {
		return false
	}
	name := strings.TrimSuffix(shop, ".myshopify.com")
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			return false
		}
	}
	return true
}
