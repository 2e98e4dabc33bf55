// Package jwt проверяет gateway-токены, подписанные HS256 общим секретом.
// Токены выпускает API gateway; сервис только валидирует их.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired - срок действия токена истёк.
	ErrTokenExpired = errors.New("срок действия токена истёк")

	// ErrTokenInvalid - подпись, алгоритм, издатель или claims не прошли проверку.
	ErrTokenInvalid = errors.New("невалидный токен")
)

// Claims содержит данные gateway-токена.
type Claims struct {
	jwt.RegisteredClaims
	GatewayAccess bool `json:"gateway_access"`
}

// Config содержит параметры для создания Manager.
type Config struct {
	Secret string // Общий секрет HS256 (JWT_SECRET)
	Issuer string // Ожидаемый iss; пустой - не проверяется
}

// Manager валидирует токены и умеет выпускать их (для тестов и служебных утилит).
type Manager struct {
	secret []byte
	issuer string
}

// NewManager создаёт новый менеджер JWT токенов.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("не задан секрет JWT")
	}

	return &Manager{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
	}, nil
}

// GenerateToken выпускает gateway-токен с заданным временем жизни.
func (m *Manager) GenerateToken(gatewayAccess bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		GatewayAccess: gatewayAccess,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи токена: %w", err)
	}
	return token, nil
}

// ValidateToken проверяет подпись, алгоритм и срок действия.
// Значение gateway_access не проверяется: токены с false принимаются, claim доступен вызывающему.
// Возвращает ErrTokenExpired для просроченного токена и ErrTokenInvalid для остальных ошибок.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: невалидные claims токена", ErrTokenInvalid)
	}

	return claims, nil
}
