package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTValidator_ValidateToken(t *testing.T) {
	validator, err := NewJWTValidator(JWTConfig{SecretKey: "s3cret", Issuer: "shapesbonding", Audience: []string{"shapesbonding-api"}})
	require.NoError(t, err)

	good := NewJWTGenerator("s3cret", "shapesbonding", []string{"shapesbonding-api"}, time.Hour)
	wrongKey := NewJWTGenerator("other", "shapesbonding", []string{"shapesbonding-api"}, time.Hour)
	expired := NewJWTGenerator("s3cret", "shapesbonding", []string{"shapesbonding-api"}, -time.Minute)
	wrongAud := NewJWTGenerator("s3cret", "shapesbonding", []string{"elsewhere"}, time.Hour)

	token := func(g *JWTGenerator) string {
		s, err := g.GenerateToken("user-1", "u@example.com", []string{"engineer"})
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"valid", token(good), nil},
		{"valid with bearer prefix", "Bearer " + token(good), nil},
		{"missing", "", ErrMissingToken},
		{"bad signature", token(wrongKey), ErrInvalidSignature},
		{"expired", token(expired), ErrExpiredToken},
		{"wrong audience", token(wrongAud), ErrInvalidClaims},
		{"garbage", "not.a.jwt", ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := validator.ValidateToken(tt.token)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-1", claims.UserID)
		})
	}

	_, err = NewJWTValidator(JWTConfig{})
	assert.Error(t, err)
}

func TestUserContext(t *testing.T) {
	_, err := GetUserFromContext(context.Background())
	assert.Error(t, err)

	ctx := SetUserInContext(context.Background(), &UserContext{UserID: "u"})
	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u", user.UserID)
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=q", nil)
	assert.Equal(t, "q", ExtractToken(r))

	r.AddCookie(&http.Cookie{Name: "auth_token", Value: "c"})
	assert.Equal(t, "c", ExtractToken(r))

	r.Header.Set("Authorization", "bearer h")
	assert.Equal(t, "h", ExtractToken(r))
}

func TestSlidingWindowLimiter(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewSlidingWindowLimiter(2, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		got, err := l.Allow(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, want, got, "request %d", i)
	}

	now = now.Add(61 * time.Second)
	ok, _ := l.Allow(ctx, "k")
	assert.True(t, ok)

	require.NoError(t, l.Reset(ctx, "k"))
	ok, _ = l.Allow(ctx, "k")
	assert.True(t, ok)
}

func TestRevocableIdentity(t *testing.T) {
	id := NewRevocableIdentity("")
	calls := 0
	cancel := id.OnChange(func() { calls++ })

	_, ok := id.Identity()
	assert.False(t, ok)

	id.Establish("user-1")
	id.Establish("user-1")
	token, ok := id.Identity()
	assert.True(t, ok)
	assert.Equal(t, "user-1", token)

	id.Revoke()
	_, ok = id.Identity()
	assert.False(t, ok)
	assert.Equal(t, 2, calls)

	cancel()
	id.Establish("user-2")
	assert.Equal(t, 2, calls)
}
