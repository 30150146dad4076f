package utils // package utils provides helpers for session token creation and hashing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/reservita/internal/clock"
)

const accessIssuer = "reservita"

// ErrInvalidAccessToken is returned for any access token that cannot be
// trusted: bad signature, wrong algorithm, expired or malformed.
var ErrInvalidAccessToken = errors.New("invalid access token")

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken is the raw value handed to the client.  Only its SHA-256
// hash is stored.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// Identity is what an access token proves about its bearer.
type Identity struct {
	UserID uint64
	Role   string
}

type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and parses HS256 session tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clock.Clock
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration, clk clock.Clock) *TokenIssuer {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &TokenIssuer{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL, clock: clk}
}

// NewAccessToken signs a token whose subject is the user id.
func (ti *TokenIssuer) NewAccessToken(userID uint64, role string) (AccessToken, error) {
	now := ti.clock.Now()
	exp := now.Add(ti.accessTTL)
	claims := accessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    accessIssuer,
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccess validates raw and returns the identity it carries.
func (ti *TokenIssuer) ParseAccess(raw string) (Identity, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return ti.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(accessIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.clock.Now),
	)
	if err != nil {
		return Identity{}, ErrInvalidAccessToken
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 || claims.Role == "" {
		return Identity{}, ErrInvalidAccessToken
	}
	return Identity{UserID: id, Role: claims.Role}, nil
}

// NewRefreshToken returns a random 96 hex character token and its expiry.
func (ti *TokenIssuer) NewRefreshToken() (RefreshToken, error) {
	raw, err := randomHex(48)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Raw: raw, Exp: ti.clock.Now().Add(ti.refreshTTL)}, nil
}

// Now exposes the issuer's clock so refresh validation uses the same time.
func (ti *TokenIssuer) Now() time.Time { return ti.clock.Now() }

// HashRefreshRaw returns the SHA-256 hash of the raw refresh token as a hex
// string.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
