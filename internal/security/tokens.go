package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	sessiondomain "github.com/abhicommands/Next-Auth-Practice/internal/session/domain"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or signed by another key.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnsupportedKey is returned when the signing key is neither RSA nor ECDSA on P-256.
	ErrUnsupportedKey = errors.New("unsupported signing key")
)

// sessionTokenClaims is the JWT body. The private claims are exactly id, name and email;
// the registered claims only describe the token envelope (issuer, audience, lifetime).
type sessionTokenClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// TokenProvider issues and validates signed session tokens using RS256 or ES256.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	method     jwt.SigningMethod
	issuer     string
	audience   string
	ttl        time.Duration
	now        func() time.Time
}

// NewTokenProvider returns a TokenProvider that signs with privateKey and verifies with publicKey.
// ttl is the lifetime given to each issued or refreshed token.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, ttl time.Duration) (*TokenProvider, error) {
	if privateKey == nil || publicKey == nil {
		return nil, ErrInvalidKey
	}
	var method jwt.SigningMethod
	switch k := privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		if k.Curve != elliptic.P256() {
			return nil, ErrUnsupportedKey
		}
		method = jwt.SigningMethodES256
	default:
		return nil, ErrUnsupportedKey
	}
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		method:     method,
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// IssueSession signs claims into a session token and returns it with its expiry.
func (p *TokenProvider) IssueSession(claims sessiondomain.Claims) (token string, expiresAt time.Time, err error) {
	now := p.now().UTC()
	expiresAt = now.Add(p.ttl)
	body := sessionTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: claims.ID,
		Name:   claims.Name,
		Email:  claims.Email,
	}
	token, err = jwt.NewWithClaims(p.method, body).SignedString(p.privateKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ValidateSession parses tokenString, checks signature, expiry, issuer and audience,
// and returns the embedded claims.
func (p *TokenProvider) ValidateSession(tokenString string) (sessiondomain.Claims, error) {
	claims, _, err := p.ParseSession(tokenString)
	return claims, err
}

// ParseSession is ValidateSession that also returns the token id and expiry.
func (p *TokenProvider) ParseSession(tokenString string) (sessiondomain.Claims, sessiondomain.TokenMeta, error) {
	var body sessionTokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &body, func(*jwt.Token) (interface{}, error) {
		return p.publicKey, nil
	},
		jwt.WithValidMethods([]string{p.method.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !token.Valid {
		return sessiondomain.Claims{}, sessiondomain.TokenMeta{}, ErrInvalidToken
	}
	if body.UserID == "" || body.ExpiresAt == nil {
		return sessiondomain.Claims{}, sessiondomain.TokenMeta{}, ErrInvalidToken
	}
	meta := sessiondomain.TokenMeta{ID: body.ID, ExpiresAt: body.ExpiresAt.Time}
	return sessiondomain.Claims{ID: body.UserID, Name: body.Name, Email: body.Email}, meta, nil
}
