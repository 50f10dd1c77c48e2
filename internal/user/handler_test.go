package user

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SyncSphere7/smartwin-official/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authedRouter(t *testing.T, userID int, role string) *gin.Engine {
	t.Helper()
	token, err := auth.GenerateAccessToken(userID, "user@example.com", role, "test-secret")
	require.NoError(t, err)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request.Header.Set("Authorization", "Bearer "+token)
		c.Next()
	}, auth.AuthMiddleware("test-secret"))
	return r
}

func TestHandler_GetAccess(t *testing.T) {
	mockRepo := new(MockRepository)
	mockRepo.On("FindByID", mock.Anything, 5).Return(&User{ID: 5, Role: auth.RoleUser}, nil)

	h := NewHandler(newTestService(mockRepo, new(MockMailer)))
	r := authedRouter(t, 5, auth.RoleUser)
	r.GET("/api/access", h.GetAccess)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/access", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var got Access
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.False(t, got.Paid)
	assert.Equal(t, 100.0, got.Price)
	assert.Equal(t, "bc1qexample", got.BitcoinAddress)
}

func TestRequirePaid(t *testing.T) {
	tests := []struct {
		name   string
		user   *User
		status int
	}{
		{"unpaid is blocked", &User{ID: 5, Role: auth.RoleUser}, http.StatusPaymentRequired},
		{"paid passes", &User{ID: 5, Role: auth.RoleUser, Paid: true}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			mockRepo.On("FindByID", mock.Anything, 5).Return(tt.user, nil)

			r := authedRouter(t, 5, auth.RoleUser)
			r.GET("/dashboard", RequirePaid(newTestService(mockRepo, new(MockMailer))), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestHandler_Register(t *testing.T) {
	mockRepo := new(MockRepository)
	mockRepo.On("EmailExists", mock.Anything, "new@example.com").Return(true, nil)

	h := NewHandler(newTestService(mockRepo, new(MockMailer)))
	r := gin.New()
	r.POST("/auth/register", h.Register)

	t.Run("invalid body", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(`{"email":"bad"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate email", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := `{"full_name":"New User","email":"new@example.com","password":"password123"}`
		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestHandler_SetPaid(t *testing.T) {
	mockRepo := new(MockRepository)
	mockRepo.On("SetPaid", mock.Anything, 9, true).Return(&User{ID: 9, Paid: true}, nil)

	h := NewHandler(newTestService(mockRepo, new(MockMailer)))
	r := gin.New()
	r.PATCH("/admin/users/:userID/paid", h.SetPaid)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/admin/users/9/paid", bytes.NewBufferString(`{"paid":true}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockRepo.AssertExpectations(t)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch, "/admin/users/abc/paid", bytes.NewBufferString(`{"paid":true}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
