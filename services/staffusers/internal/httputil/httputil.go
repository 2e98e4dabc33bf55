// Package httputil содержит вспомогательные функции для HTTP обработки.
package httputil

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	// ErrNoAuthorization - заголовок Authorization отсутствует.
	ErrNoAuthorization = errors.New("нет заголовка Authorization")

	// ErrMalformedHeader - значение заголовка содержит символы вне видимого ASCII.
	ErrMalformedHeader = errors.New("заголовок Authorization содержит недопустимые символы")
)

// bearerPrefix удаляется из значения заголовка везде, где встречается.
const bearerPrefix = "Bearer "

// AuthorizationToken извлекает токен из заголовка Authorization.
// Префикс "Bearer " необязателен: без него значение целиком считается токеном.
// Схема и пробелы не нормализуются, их отклонит валидатор токена.
func AuthorizationToken(c *gin.Context) (string, error) {
	values, present := c.Request.Header["Authorization"]
	if !present || len(values) == 0 {
		return "", ErrNoAuthorization
	}

	raw := values[0]
	if !isVisibleASCII(raw) {
		return "", ErrMalformedHeader
	}

	return strings.ReplaceAll(raw, bearerPrefix, ""), nil
}

// isVisibleASCII допускает видимые ASCII символы, пробел и табуляцию.
func isVisibleASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b != '\t' && (b < 0x20 || b > 0x7e) {
			return false
		}
	}
	return true
}
