package services

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dgrijalva/jwt-go"
)

// ErrInvalidToken is returned for tokens that fail signature or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// AuthService resolves the acting user from bearer tokens issued by the login service.
type AuthService struct {
	jwtSecret []byte
	userClaim string
}

// NewAuthService creates a new AuthService. userClaim names the claim holding the user id.
func NewAuthService(jwtSecret, userClaim string) *AuthService {
	if userClaim == "" {
		userClaim = "id"
	}
	return &AuthService{jwtSecret: []byte(jwtSecret), userClaim: userClaim}
}

// Enabled reports whether a signing secret is configured.
func (s *AuthService) Enabled() bool { return len(s.jwtSecret) > 0 }

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// UserID validates the token and returns the configured user claim as a string.
func (s *AuthService) UserID(tokenString string) (string, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	switch v := claims[s.userClaim].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("%w: claim %q missing", ErrInvalidToken, s.userClaim)
}
