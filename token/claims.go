package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned when a token cannot be decoded.
var ErrMalformedToken = errors.New("malformed token")

// DefaultLifetime is used when a token carries no usable exp/iat claims.
const DefaultLifetime = 3600

// Details holds the introspectable parts of a JWT: decoded header and
// claims plus the still-encoded signature segment.
type Details struct {
	Header    map[string]interface{}
	Claims    jwt.MapClaims
	Signature string
}

// parser decodes without signature or claims validation. Keycloak emits
// unpadded base64url segments, but padded tokens are accepted too.
var parser = jwt.NewParser(
	jwt.WithoutClaimsValidation(),
	jwt.WithPaddingAllowed(),
)

// Decode parses the payload segment of a JWT into a claim map.
// The signature is never verified; this is purely a parser.
func Decode(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return claims, nil
}

// DecodeDetails parses header and payload of a JWT. Signature keeps the
// raw (still encoded) third segment; it is never decoded or verified.
func DecodeDetails(tokenString string) (*Details, error) {
	claims := jwt.MapClaims{}
	tok, _, err := parser.ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	segments := strings.Split(tokenString, ".")
	return &Details{
		Header:    tok.Header,
		Claims:    claims,
		Signature: segments[2],
	}, nil
}

// Username returns the preferred_username claim or "unknown_user".
func Username(claims jwt.MapClaims) string {
	if v, ok := claims["preferred_username"].(string); ok && v != "" {
		return v
	}
	return "unknown_user"
}

// Lifetime returns exp-iat in seconds, or DefaultLifetime when the
// claims are missing or unusable.
func Lifetime(claims jwt.MapClaims) int {
	exp := unixClaim(claims, "exp")
	iat := unixClaim(claims, "iat")
	if exp == 0 {
		return DefaultLifetime
	}
	lifetime := exp - iat
	if lifetime <= 0 {
		return DefaultLifetime
	}
	return int(lifetime)
}

// ExpiresIn returns the seconds until the exp claim, or DefaultLifetime
// when exp is absent. Negative values mean the token already expired.
func ExpiresIn(claims jwt.MapClaims, now time.Time) int {
	exp := unixClaim(claims, "exp")
	if exp == 0 {
		return DefaultLifetime
	}
	return int(exp - now.Unix())
}

// Expired reports whether the exp claim lies in the past. Tokens
// without an exp claim never count as expired here.
func Expired(claims jwt.MapClaims, now time.Time) bool {
	exp := unixClaim(claims, "exp")
	return exp != 0 && exp < now.Unix()
}

func unixClaim(claims jwt.MapClaims, key string) int64 {
	switch v := claims[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
