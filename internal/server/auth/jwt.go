// Package auth issues and verifies the HS256 tokens used by the document
// store: producer tokens that authorize inbox deposits, and object tokens
// that sign download URLs for the filesystem object store.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// ProducerClaims identify an external producer (scanner, mail gateway)
// allowed to deposit files into the inbox.
type ProducerClaims struct {
	jwt.RegisteredClaims
	Producer string `json:"producer"`
}

func GenerateProducerToken(producer string, secretKey []byte, validityDuration time.Duration) (string, error) {
	return sign(ProducerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Producer: producer,
	}, secretKey)
}

// GetProducerFromToken returns the producer name, common.ErrTokenExpired for
// an expired token and common.ErrInvalidToken for anything else.
func GetProducerFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &ProducerClaims{}
	if err := parse(tokenString, claims, secretKey); err != nil {
		return "", err
	}
	if claims.Producer == "" {
		return "", common.ErrInvalidToken
	}
	return claims.Producer, nil
}

// GenerateObjectToken signs access to a single object key until ttl elapses.
func GenerateObjectToken(key string, secretKey []byte, ttl time.Duration) (string, error) {
	return sign(jwt.RegisteredClaims{
		Subject:   key,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}, secretKey)
}

func GetObjectKeyFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if err := parse(tokenString, claims, secretKey); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", common.ErrInvalidToken
	}
	return claims.Subject, nil
}

func sign(claims jwt.Claims, secretKey []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

func parse(tokenString string, claims jwt.Claims, secretKey []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return common.ErrTokenExpired
	}
	if err != nil || !token.Valid {
		return common.ErrInvalidToken
	}
	return nil
}
