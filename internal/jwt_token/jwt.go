package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "agentmemory/pkg/domain-errors"
	"agentmemory/pkg/domain"
)

// Claims carries the caller's ledger address through the bearer token.
type Claims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

// Service handles caller token creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey string, issuer string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// GenerateCallerToken mints an HS256 token binding a caller address.
// Used by ops tooling and tests; the engine itself only validates.
func (s *Service) GenerateCallerToken(addr domain.Address, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Address: addr.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Subject:   addr.String(),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// ValidateToken parses and verifies a caller token, returning the caller
// address from its claims.
func (s *Service) ValidateToken(tokenString string) (domain.Address, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Address{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return domain.Address{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return domain.Address{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return domain.Address{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	addr, err := domain.ParseAddress(claims.Address)
	if err != nil {
		return domain.Address{}, dErrors.New(dErrors.CodeUnauthorized, "invalid caller address in token")
	}
	return addr, nil
}
