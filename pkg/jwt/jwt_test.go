package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestManager(t *testing.T, issuer string) *Manager {
	t.Helper()

	m, err := NewManager(Config{Secret: testSecret, Issuer: issuer})
	require.NoError(t, err)
	return m
}

// signClaims подписывает произвольные claims (для негативных сценариев).
func signClaims(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestNewManager_EmptySecret(t *testing.T) {
	m, err := NewManager(Config{})

	assert.Error(t, err)
	assert.Nil(t, m)
}

func TestManager_GenerateAndValidate(t *testing.T) {
	m := newTestManager(t, "gateway")

	token, err := m.GenerateToken(true, time.Hour)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, claims.GatewayAccess)
	assert.Equal(t, "gateway", claims.Issuer)
	assert.NotNil(t, claims.IssuedAt)
}

func TestManager_ValidateToken_Errors(t *testing.T) {
	m := newTestManager(t, "gateway")
	now := time.Now()

	validClaims := func(mutate func(*Claims)) *Claims {
		c := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "gateway",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			GatewayAccess: true,
		}
		if mutate != nil {
			mutate(c)
		}
		return c
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{
			name: "истёкший токен",
			token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(func(c *Claims) {
				c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))
			})),
			wantErr: ErrTokenExpired,
		},
		{
			name:    "чужой секрет",
			token:   signClaims(t, jwt.SigningMethodHS256, []byte("other"), validClaims(nil)),
			wantErr: ErrTokenInvalid,
		},
		{
			name:    "другой алгоритм",
			token:   signClaims(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims(nil)),
			wantErr: ErrTokenInvalid,
		},
		{
			name: "чужой издатель",
			token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(func(c *Claims) {
				c.Issuer = "someone-else"
			})),
			wantErr: ErrTokenInvalid,
		},
		{
			name: "без exp",
			token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(func(c *Claims) {
				c.ExpiresAt = nil
			})),
			wantErr: ErrTokenInvalid,
		},
		{
			name:    "мусор вместо токена",
			token:   "not-a-jwt",
			wantErr: ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := m.ValidateToken(tt.token)

			assert.Nil(t, claims)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestManager_ValidateToken_GatewayAccessFalse(t *testing.T) {
	m := newTestManager(t, "gateway")

	token, err := m.GenerateToken(false, time.Hour)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.False(t, claims.GatewayAccess)
}

func TestManager_ValidateToken_AnyIssuer(t *testing.T) {
	issuer := newTestManager(t, "whoever")
	validator := newTestManager(t, "")

	token, err := issuer.GenerateToken(true, time.Minute)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.NoError(t, err)
}
