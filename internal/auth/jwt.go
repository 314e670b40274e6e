package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the compact claim signed into every session token: the user and session snowflake ids. There is no
// expiry field — a token is valid for as long as its session row exists; revocation is by row deletion (§4.3).
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID    uint64 `json:"uid,string"`
	SessionID uint64 `json:"sid,string"`
}

// NewToken signs a compact {user_id, session_id} claim with HMAC-SHA-256 using the instance secret.
func NewToken(userID, sessionID uint64, secret [128]byte) (string, error) {
	claims := TokenClaims{UserID: userID, SessionID: sessionID}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret[:])
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the HMAC signature and extracts the user and session ids. Any tampering, including an
// algorithm-confusion attempt, is reported as ErrInvalidToken.
func ParseToken(tokenStr string, secret [128]byte) (userID, sessionID uint64, err error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret[:], nil
	})
	if err != nil || !token.Valid {
		return 0, 0, ErrInvalidToken
	}
	return claims.UserID, claims.SessionID, nil
}
