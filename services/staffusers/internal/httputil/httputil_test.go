package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestAuthorizationToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		header    *string
		wantToken string
		wantErr   error
	}{
		{name: "нет заголовка", header: nil, wantErr: ErrNoAuthorization},
		{name: "не-ASCII символы", header: ptr("Bearer тoken"), wantErr: ErrMalformedHeader},
		{name: "байт вне ASCII", header: ptr("Bearer abc\xff"), wantErr: ErrMalformedHeader},
		{name: "корректный Bearer", header: ptr("Bearer abc.def.ghi"), wantToken: "abc.def.ghi"},
		{name: "токен без схемы", header: ptr("abc.def.ghi"), wantToken: "abc.def.ghi"},
		{name: "Basic схема отдаётся валидатору", header: ptr("Basic dXNlcjpwYXNz"), wantToken: "Basic dXNlcjpwYXNz"},
		{name: "схема чувствительна к регистру", header: ptr("bearer abc"), wantToken: "bearer abc"},
		{name: "пустой заголовок", header: ptr(""), wantToken: ""},
		{name: "табуляция допустима", header: ptr("Bearer a\tb"), wantToken: "a\tb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != nil {
				c.Request.Header["Authorization"] = []string{*tt.header}
			}

			token, err := AuthorizationToken(c)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func ptr(s string) *string { return &s }
