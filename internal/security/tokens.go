package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, signed with
	// a different key, or carries a mismatched audience or issuer. Callers must
	// not distinguish these cases to the client.
	ErrInvalidToken = errors.New("invalid token")
)

// ClockSkewLeeway is the tolerance applied to exp/iat/nbf comparisons so that
// verification does not assume perfectly synchronized clocks.
const ClockSkewLeeway = 30 * time.Second

// AccessClaims holds JWT claims for the access token. The claim set mirrors the
// account at issuance time; it is never persisted.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	Active bool     `json:"is_active"`
}

// RefreshClaims holds the minimal claim set for the refresh token: subject,
// jti, iat, exp. Refresh tokens are single-purpose, so aud/iss are not set.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// TokenProvider issues and verifies JWT access and refresh tokens using RS256
// or ES256. Verification only needs the public key.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenProvider returns a TokenProvider that signs with the given private key
// (RSA or ECDSA). issuer and audience are set on access claims and verified on
// VerifyAccess.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccess issues a short-lived access JWT carrying the account's email,
// roles, and active flag. Returns the token string, its jti, and expiry.
// Fails only on a signing-key configuration error; such an error is fatal for
// the process and is never retried.
func (p *TokenProvider) IssueAccess(userID, email string, roles []string, active bool) (token string, jti string, expiresAt time.Time, err error) {
	jti = uuid.New().String()
	now := time.Now().UTC()
	expiresAt = now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:  email,
		Roles:  roles,
		Active: active,
	}
	token, err = p.sign(claims)
	return token, jti, expiresAt, err
}

// IssueRefresh issues a long-lived refresh JWT with the minimal claim set.
// The returned token string is what the registry tracks; the caller must add
// it to the account's live set.
func (p *TokenProvider) IssueRefresh(userID string) (token string, jti string, expiresAt time.Time, err error) {
	jti = uuid.New().String()
	now := time.Now().UTC()
	expiresAt = now.Add(p.refreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err = p.sign(claims)
	return token, jti, expiresAt, err
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	t := jwt.NewWithClaims(method, claims)
	return t.SignedString(p.privateKey)
}

func (p *TokenProvider) keyfunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
		return p.publicKey, nil
	}
	if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
		return p.publicKey, nil
	}
	return nil, ErrInvalidToken
}

// VerifyAccess parses and verifies the access token: signature, expiry (with
// ClockSkewLeeway), audience, and issuer. A token minted for another service
// (different aud/iss) is rejected. All failures collapse to ErrInvalidToken.
func (p *TokenProvider) VerifyAccess(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, p.keyfunc, jwt.WithLeeway(ClockSkewLeeway))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != p.issuer {
		return nil, ErrInvalidToken
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == p.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh parses and verifies the refresh token: signature and expiry
// only. Whether the token is still in the account's live set is the
// registry's concern, not the issuer's.
func (p *TokenProvider) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, p.keyfunc, jwt.WithLeeway(ClockSkewLeeway))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
