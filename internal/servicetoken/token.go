// Package servicetoken issues and checks the short-lived RS256 bearer tokens
// that guard the dispatch worker's internal read routes.
package servicetoken

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL is the lifetime of a token when SignerOptions.TTL is unset.
	DefaultTokenTTL = 5 * time.Minute
	// DefaultLeeway is the clock skew tolerated when checking exp, nbf and iat.
	DefaultLeeway = 15 * time.Second
	// DefaultKeyID names the key used when no kid is configured.
	DefaultKeyID = "internal-active"
	// DefaultIssuer is the issuer of tokens minted by the operator CLI.
	DefaultIssuer = "contactdesk-admin"
)

var (
	ErrTokenRequired    = errors.New("token required")
	ErrUnknownKey       = errors.New("unknown token key")
	ErrIssuerNotAllowed = errors.New("issuer not allowed")
)

// SignerOptions configures a Signer.
type SignerOptions struct {
	PrivateKeyPath string
	KeyID          string
	Issuer         string
	TTL            time.Duration
}

// Signer mints tokens for one issuer with one RSA key.
type Signer struct {
	issuer string
	ttl    time.Duration
	kid    string
	key    *rsa.PrivateKey
}

func NewSigner(opts SignerOptions) (*Signer, error) {
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		return nil, errors.New("service token issuer is required")
	}
	path := strings.TrimSpace(opts.PrivateKeyPath)
	if path == "" {
		return nil, errors.New("service token private key path is required")
	}
	key, err := loadPrivateKey(path)
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Signer{
		issuer: issuer,
		ttl:    ttl,
		kid:    orDefault(opts.KeyID, DefaultKeyID),
		key:    key,
	}, nil
}

// Sign returns a token for audience; subject defaults to the issuer.
func (s *Signer) Sign(audience, subject string) (string, error) {
	audience = strings.TrimSpace(audience)
	if audience == "" {
		return "", errors.New("service token audience is required")
	}
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   orDefault(subject, s.issuer),
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		ID:        newTokenID(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

// VerifierOptions configures a Verifier. PublicKeyPath is registered under
// KeyID; ExtraKeys maps further kids to PEM paths for key rotation.
type VerifierOptions struct {
	PublicKeyPath  string
	KeyID          string
	ExtraKeys      map[string]string
	Audience       string
	AllowedIssuers []string
	Leeway         time.Duration
}

// Verifier checks signature, expiry, audience and issuer of incoming tokens.
type Verifier struct {
	audience string
	issuers  map[string]struct{}
	leeway   time.Duration
	keys     map[string]*rsa.PublicKey
}

func NewVerifier(opts VerifierOptions) (*Verifier, error) {
	audience := strings.TrimSpace(opts.Audience)
	if audience == "" {
		return nil, errors.New("service token audience is required")
	}
	v := &Verifier{
		audience: audience,
		issuers:  make(map[string]struct{}),
		leeway:   opts.Leeway,
		keys:     make(map[string]*rsa.PublicKey),
	}
	if v.leeway <= 0 {
		v.leeway = DefaultLeeway
	}
	for _, iss := range opts.AllowedIssuers {
		if iss = strings.TrimSpace(iss); iss != "" {
			v.issuers[iss] = struct{}{}
		}
	}
	if len(v.issuers) == 0 {
		return nil, errors.New("at least one allowed issuer is required")
	}
	paths := make(map[string]string, len(opts.ExtraKeys)+1)
	for kid, path := range opts.ExtraKeys {
		paths[strings.TrimSpace(kid)] = strings.TrimSpace(path)
	}
	if path := strings.TrimSpace(opts.PublicKeyPath); path != "" {
		paths[orDefault(opts.KeyID, DefaultKeyID)] = path
	}
	for kid, path := range paths {
		if kid == "" || path == "" {
			continue
		}
		pub, err := loadPublicKey(path)
		if err != nil {
			return nil, fmt.Errorf("load public key %q: %w", kid, err)
		}
		v.keys[kid] = pub
	}
	if len(v.keys) == 0 {
		return nil, errors.New("service token verifier requires an rsa public key")
	}
	return v, nil
}

// Verify returns the claims of a valid token.
func (v *Verifier) Verify(token string) (jwt.RegisteredClaims, error) {
	var claims jwt.RegisteredClaims
	token = strings.TrimSpace(token)
	if token == "" {
		return claims, ErrTokenRequired
	}
	_, err := jwt.ParseWithClaims(token, &claims, v.keyFor,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.audience),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return claims, err
	}
	if _, ok := v.issuers[claims.Issuer]; !ok {
		return claims, fmt.Errorf("%w: %q", ErrIssuerNotAllowed, claims.Issuer)
	}
	if claims.ID == "" {
		return claims, errors.New("jti required")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return claims, errors.New("subject required")
	}
	return claims, nil
}

func (v *Verifier) keyFor(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	kid = strings.TrimSpace(kid)
	if kid == "" {
		return nil, errors.New("token key id required")
	}
	pub, ok := v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, kid)
	}
	return pub, nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func newTokenID() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
