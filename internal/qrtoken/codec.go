// Package qrtoken mints and verifies the signed tokens printed on tickets
// as QR codes.  A token binds a ticket to its holder and event and expires
// when the event ends.  The codec knows nothing about ticket state; callers
// decide whether a well-formed token still admits anyone.
package qrtoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/reservita/internal/clock"
)

const issuer = "reservita-qr"

var (
	// ErrInvalidToken covers bad signatures, malformed tokens and
	// missing claims.
	ErrInvalidToken = errors.New("invalid qr token")
	// ErrExpiredToken is returned for a correctly signed token past exp.
	ErrExpiredToken = errors.New("expired qr token")
)

// Payload is what a QR token carries.
type Payload struct {
	UserID    uint64
	TicketID  uint64
	EventID   uint64
	ExpiresAt time.Time
}

type claims struct {
	UserID   uint64 `json:"user_id"`
	TicketID uint64 `json:"ticket_id"`
	EventID  uint64 `json:"event_id"`
	jwt.RegisteredClaims
}

// Codec signs tokens with HS256 using a secret that is distinct from the
// access-token secret.
type Codec struct {
	secret []byte
	clock  clock.Clock
}

// NewCodec returns a Codec.  An empty secret is rejected because every
// token it produced would be forgeable.
func NewCodec(secret string, clk clock.Clock) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("qrtoken: empty secret")
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Codec{secret: []byte(secret), clock: clk}, nil
}

// Mint signs p into a compact token.
func (c *Codec) Mint(p Payload) (string, error) {
	if p.TicketID == 0 || p.UserID == 0 || p.EventID == 0 {
		return "", fmt.Errorf("qrtoken: incomplete payload %+v", p)
	}
	cl := claims{
		UserID:   p.UserID,
		TicketID: p.TicketID,
		EventID:  p.EventID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(c.clock.Now()),
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("qrtoken: sign: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of token and returns its payload.
func (c *Codec) Verify(token string) (Payload, error) {
	var cl claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(c.clock.Now),
	)
	_, err := parser.ParseWithClaims(token, &cl, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Payload{}, ErrExpiredToken
		}
		return Payload{}, ErrInvalidToken
	}
	if cl.UserID == 0 || cl.TicketID == 0 || cl.EventID == 0 {
		return Payload{}, ErrInvalidToken
	}
	return Payload{
		UserID:    cl.UserID,
		TicketID:  cl.TicketID,
		EventID:   cl.EventID,
		ExpiresAt: cl.ExpiresAt.Time.UTC(),
	}, nil
}
