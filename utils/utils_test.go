package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashing(t *testing.T) {
	PasswordCost = bcrypt.MinCost

	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, IsPasswordHash(hash))
	assert.False(t, IsPasswordHash("s3cret-pass"))
	assert.True(t, CheckPasswordHash("s3cret-pass", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	_, err := GenerateToken("u1", "admin", "", time.Hour)
	assert.Error(t, err)
}

func TestAuthMiddlewareAndRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", AuthMiddleware("k"), RequireRole("admin"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString("userId")})
	})

	do := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	admin, err := GenerateToken("u1", "admin", "k", time.Hour)
	require.NoError(t, err)
	client, err := GenerateToken("u2", "client", "k", time.Hour)
	require.NoError(t, err)
	forged, err := GenerateToken("u1", "admin", "other", time.Hour)
	require.NoError(t, err)
	expired, err := GenerateToken("u1", "admin", "k", -time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(""))
	assert.Equal(t, http.StatusOK, do("Bearer "+admin))
	assert.Equal(t, http.StatusForbidden, do("Bearer "+client))
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+forged))
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+expired))
}

func TestParseDateRange(t *testing.T) {
	defStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	defEnd := time.Date(2024, 1, 31, 15, 0, 0, 0, time.UTC)

	start, end, err := ParseDateRange("", "", defStart, defEnd)
	require.NoError(t, err)
	assert.Equal(t, defStart, start)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), end)

	start, end, err = ParseDateRange("2024-03-05", "2024-03-05", defStart, defEnd)
	require.NoError(t, err)
	assert.Equal(t, 1, DaysBetween(start, end))

	_, _, err = ParseDateRange("05/03/2024", "", defStart, defEnd)
	assert.Error(t, err)
}

func TestValidatePhone(t *testing.T) {
	assert.True(t, ValidatePhone(""))
	assert.True(t, ValidatePhone("+1 (555) 123-4567"))
	assert.False(t, ValidatePhone("abc"))
	assert.False(t, ValidatePhone("123"))
}

func TestGenerateRandomString(t *testing.T) {
	a := GenerateRandomString(10)
	b := GenerateRandomString(10)
	assert.Len(t, a, 10)
	assert.NotEqual(t, a, b)
}
