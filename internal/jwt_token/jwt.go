package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "renoflow/pkg/domain"
	dErrors "renoflow/pkg/domain-errors"
)

// Claims are the JWT claims carried by session tokens issued by the
// platform's identity provider. CompanyID is present only for AMO agents.
type Claims struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	CompanyID string `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTService signs and validates session tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateSessionToken signs a token for the given identity.
func (s *JWTService) GenerateSessionToken(actor id.Identity, expiresIn time.Duration) (string, error) {
	claims := Claims{
		UserID: actor.UserID.String(),
		Role:   actor.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	}
	if !actor.CompanyID.IsZero() {
		claims.CompanyID = actor.CompanyID.String()
	}
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return newToken.SignedString(s.signingKey)
}

// ValidateToken parses and verifies a session token, returning its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Identity converts validated claims into the domain identity consumed by
// guards. Malformed claim values are rejected rather than zeroed so a bad
// token never turns into an anonymous admin.
func (c *Claims) Identity() (id.Identity, error) {
	userID, err := id.ParseUserID(c.UserID)
	if err != nil {
		return id.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid user id claim")
	}
	role, err := id.ParseRole(c.Role)
	if err != nil {
		return id.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid role claim")
	}
	actor := id.Identity{UserID: userID, Role: role}
	if c.CompanyID != "" {
		companyID, err := id.ParseCompanyID(c.CompanyID)
		if err != nil {
			return id.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid company id claim")
		}
		actor.CompanyID = companyID
	}
	return actor, nil
}
