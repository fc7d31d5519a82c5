package myjwt

import (
	"errors"
	"strings"
	"time"

	"ChatBooks/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims 会话 token，只携带会话 ID
type SessionClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

func GenerateToken(conf config.JwtConfig, sessionID string) (string, error) {
	key := strings.TrimSpace(conf.Key)
	if key == "" {
		return "", errors.New("jwt key is empty")
	}
	if strings.TrimSpace(sessionID) == "" {
		return "", errors.New("session id is empty")
	}

	expireHours := conf.ExpireHours
	if expireHours <= 0 {
		expireHours = 24
	}

	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    conf.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(key))
}

func ParseToken(conf config.JwtConfig, tokenString string) (*SessionClaims, error) {
	key := strings.TrimSpace(conf.Key)
	if key == "" {
		return nil, errors.New("jwt key is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
