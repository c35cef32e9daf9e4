package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "renoflow/pkg/domain"
	dErrors "renoflow/pkg/domain-errors"
)

func newTestService() *JWTService {
	return NewJWTService("test-signing-key", "renoflow", "renoflow-api")
}

func TestSessionTokenRoundTrip(t *testing.T) {
	svc := newTestService()

	t.Run("applicant token carries user and role", func(t *testing.T) {
		actor := id.Identity{UserID: id.NewUserID(), Role: id.RoleApplicant}
		token, err := svc.GenerateSessionToken(actor, time.Hour)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)

		parsed, err := claims.Identity()
		require.NoError(t, err)
		assert.Equal(t, actor.UserID, parsed.UserID)
		assert.Equal(t, id.RoleApplicant, parsed.Role)
		assert.True(t, parsed.CompanyID.IsZero())
	})

	t.Run("amo token carries company scope", func(t *testing.T) {
		actor := id.Identity{UserID: id.NewUserID(), Role: id.RoleAMO, CompanyID: id.NewCompanyID()}
		token, err := svc.GenerateSessionToken(actor, time.Hour)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)

		parsed, err := claims.Identity()
		require.NoError(t, err)
		assert.Equal(t, actor.CompanyID, parsed.CompanyID)
	})
}

func TestValidateToken_Rejections(t *testing.T) {
	svc := newTestService()

	t.Run("expired token", func(t *testing.T) {
		actor := id.Identity{UserID: id.NewUserID(), Role: id.RoleApplicant}
		token, err := svc.GenerateSessionToken(actor, -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewJWTService("other-key", "renoflow", "renoflow-api")
		actor := id.Identity{UserID: id.NewUserID(), Role: id.RoleApplicant}
		token, err := other.GenerateSessionToken(actor, time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.jwt")
		require.Error(t, err)
	})
}

func TestClaimsIdentity_RejectsMalformedClaims(t *testing.T) {
	claims := &Claims{UserID: "not-a-uuid", Role: "applicant"}
	_, err := claims.Identity()
	require.Error(t, err)

	claims = &Claims{UserID: id.NewUserID().String(), Role: "superuser"}
	_, err = claims.Identity()
	require.Error(t, err)
}
