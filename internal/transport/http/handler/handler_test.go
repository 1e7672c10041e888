package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-otp-auth/internal/application/verification"
	"github.com/go-otp-auth/internal/domain"
	"github.com/go-otp-auth/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockFlows struct{ mock.Mock }

func (m *mockFlows) RequestSignup(ctx context.Context, req domain.SignupRequest) (*verification.Ticket, error) {
	args := m.Called(ctx, req)
	if t, _ := args.Get(0).(*verification.Ticket); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFlows) VerifySignup(ctx context.Context, req domain.VerifyRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockFlows) CommitSignup(ctx context.Context, req domain.SignupCommitRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFlows) RequestRecovery(ctx context.Context, req domain.RecoveryRequest) (*verification.Ticket, error) {
	args := m.Called(ctx, req)
	if t, _ := args.Get(0).(*verification.Ticket); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFlows) VerifyRecovery(ctx context.Context, req domain.VerifyRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockFlows) CommitRecovery(ctx context.Context, req domain.RecoveryCommitRequest) error {
	return m.Called(ctx, req).Error(0)
}

type mockSessions struct{ mock.Mock }

func (m *mockSessions) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessions) LoginWithGoogle(ctx context.Context, req domain.GoogleLoginRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

// withChiAction injects a chi URL param "action" into the request context.
func withChiAction(r *http.Request, action string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("action", action)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func post(t *testing.T, target, action string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	return withChiAction(httptest.NewRequest(http.MethodPost, target, &buf), action)
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeMessage(t *testing.T, rr *httptest.ResponseRecorder) MessageEnvelope {
	t.Helper()
	var env MessageEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return env
}

// --- signup ---

func TestSignup_RequestSetsCookie(t *testing.T) {
	svc := &mockFlows{}
	exp := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	svc.On("RequestSignup", mock.Anything, domain.SignupRequest{Email: "a@x.com", Password: "pw12345678"}).
		Return(&verification.Ticket{Token: "tok", ExpiresAt: exp}, nil)
	h := NewSignupHandler(svc, true)

	rr := httptest.NewRecorder()
	h.Action(rr, post(t, "/v1/signup/request", "request", domain.SignupRequest{Email: "a@x.com", Password: "pw12345678"}))

	require.Equal(t, http.StatusOK, rr.Code)
	c := findCookie(rr, SignupCookie)
	require.NotNil(t, c)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, "/v1/signup", c.Path)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Greater(t, c.MaxAge, 0)

	var env FlowEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "tok", env.Token)
	svc.AssertExpectations(t)
}

func TestSignup_RequestMalformedBody(t *testing.T) {
	svc := &mockFlows{}
	h := NewSignupHandler(svc, false)
	r := withChiAction(httptest.NewRequest(http.MethodPost, "/v1/signup/request", bytes.NewBufferString("{not-json")), "request")
	rr := httptest.NewRecorder()
	h.Action(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "RequestSignup", mock.Anything, mock.Anything)
}

func TestSignup_RequestAlreadyRegistered(t *testing.T) {
	svc := &mockFlows{}
	svc.On("RequestSignup", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("signup a@x.com: %w", domain.ErrAlreadyRegistered))
	h := NewSignupHandler(svc, false)
	rr := httptest.NewRecorder()
	h.Action(rr, post(t, "/v1/signup/request", "request", domain.SignupRequest{Email: "a@x.com", Password: "pw12345678"}))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "ALREADY_REGISTERED", decodeMessage(t, rr).Code)
	assert.Nil(t, findCookie(rr, SignupCookie))
}

func TestSignup_VerifyPrefersContextToken(t *testing.T) {
	svc := &mockFlows{}
	svc.On("VerifySignup", mock.Anything, domain.VerifyRequest{Code: "482913", Token: "cookie-tok"}).Return(nil)
	h := NewSignupHandler(svc, false)

	r := post(t, "/v1/signup/verify", "verify", domain.VerifyRequest{Code: "482913", Token: "body-tok"})
	r = r.WithContext(context.WithValue(r.Context(), middleware.FlowTokenKey, "cookie-tok"))
	rr := httptest.NewRecorder()
	h.Action(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestSignup_VerifyWrongCode(t *testing.T) {
	svc := &mockFlows{}
	svc.On("VerifySignup", mock.Anything, mock.Anything).Return(domain.ErrInvalidOTP)
	h := NewSignupHandler(svc, false)
	rr := httptest.NewRecorder()
	h.Action(rr, post(t, "/v1/signup/verify", "verify", domain.VerifyRequest{Code: "000000", Token: "tok"}))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "INVALID_OTP", decodeMessage(t, rr).Code)
}

func TestSignup_CommitEmptyBodyUsesCookieToken(t *testing.T) {
	svc := &mockFlows{}
	u := &domain.User{UserID: "u1", Email: "a@x.com", PasswordHash: "secret-hash"}
	svc.On("CommitSignup", mock.Anything, domain.SignupCommitRequest{Token: "cookie-tok"}).Return(u, nil)
	h := NewSignupHandler(svc, false)

	r := post(t, "/v1/signup/commit", "commit", nil)
	r = r.WithContext(context.WithValue(r.Context(), middleware.FlowTokenKey, "cookie-tok"))
	rr := httptest.NewRecorder()
	h.Action(rr, r)

	require.Equal(t, http.StatusCreated, rr.Code)
	c := findCookie(rr, SignupCookie)
	require.NotNil(t, c)
	assert.Equal(t, -1, c.MaxAge)
	assert.NotContains(t, rr.Body.String(), "secret-hash")
	svc.AssertExpectations(t)
}

func TestSignup_CommitNotVerifiedKeepsCookie(t *testing.T) {
	svc := &mockFlows{}
	svc.On("CommitSignup", mock.Anything, mock.Anything).Return(nil, domain.ErrNotVerified)
	h := NewSignupHandler(svc, false)
	rr := httptest.NewRecorder()
	h.Action(rr, post(t, "/v1/signup/commit", "commit", domain.SignupCommitRequest{Token: "tok"}))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Nil(t, findCookie(rr, SignupCookie))
}

func TestSignup_CommitExpiredClearsCookie(t *testing.T) {
	svc := &mockFlows{}
	svc.On("CommitSignup", mock.Anything, mock.Anything).Return(nil, domain.ErrExpired)
	h := NewSignupHandler(svc, false)
	rr := httptest.NewRecorder()
	h.Action(rr, post(t, "/v1/signup/commit", "commit", domain.SignupCommitRequest{Token: "tok"}))
	assert.Equal(t, http.StatusGone, rr.Code)
	require.NotNil(t, findCookie(rr, SignupCookie))
}

func TestSignup_UnknownAction(t *testing.T) {
	h := NewSignupHandler(&mockFlows{}, false)
	rr := httptest.NewRecorder()
	h.Action(rr, post(t, "/v1/signup/finish", "finish", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- recovery ---

func TestRecovery_RequestNotFound(t *testing.T) {
	svc := &mockFlows{}
	svc.On("RequestRecovery", mock.Anything, domain.RecoveryRequest{Email: "nobody@x.com"}).Return(nil, domain.ErrNotFound)
	h := NewPasswordRecoveryHandler(svc, false)
	rr := httptest.NewRecorder()
	h.Action(rr, post(t, "/v1/recovery/request", "request", domain.RecoveryRequest{Email: "nobody@x.com"}))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "NOT_FOUND", decodeMessage(t, rr).Code)
}

func TestRecovery_RequestSetsScopedCookie(t *testing.T) {
	svc := &mockFlows{}
	svc.On("RequestRecovery", mock.Anything, mock.Anything).Return(&verification.Ticket{Token: "tok", ExpiresAt: time.Now().Add(10 * time.Minute)}, nil)
	h := NewPasswordRecoveryHandler(svc, false)
	rr := httptest.NewRecorder()
	h.Action(rr, post(t, "/v1/recovery/request", "request", domain.RecoveryRequest{Email: "a@x.com"}))
	require.Equal(t, http.StatusOK, rr.Code)
	c := findCookie(rr, RecoveryCookie)
	require.NotNil(t, c)
	assert.Equal(t, "/v1/recovery", c.Path)
	assert.False(t, c.Secure)
}

func TestRecovery_Commit(t *testing.T) {
	svc := &mockFlows{}
	svc.On("CommitRecovery", mock.Anything, domain.RecoveryCommitRequest{NewPassword: "newpass123", Token: "tok"}).Return(nil)
	h := NewPasswordRecoveryHandler(svc, false)
	rr := httptest.NewRecorder()
	h.Action(rr, post(t, "/v1/recovery/commit", "commit", domain.RecoveryCommitRequest{NewPassword: "newpass123", Token: "tok"}))
	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, findCookie(rr, RecoveryCookie))
	svc.AssertExpectations(t)
}

func TestRecovery_CommitDependencyFailureIsGeneric(t *testing.T) {
	svc := &mockFlows{}
	svc.On("CommitRecovery", mock.Anything, mock.Anything).
		Return(fmt.Errorf("update password: %w: %v", domain.ErrDependency, errors.New("dynamodb: connection refused")))
	h := NewPasswordRecoveryHandler(svc, false)
	rr := httptest.NewRecorder()
	h.Action(rr, post(t, "/v1/recovery/commit", "commit", domain.RecoveryCommitRequest{NewPassword: "newpass123", Token: "tok"}))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	env := decodeMessage(t, rr)
	assert.Equal(t, "DEPENDENCY_FAILURE", env.Code)
	assert.NotContains(t, env.Error, "dynamodb")
}

// --- sessions ---

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &mockSessions{}
	svc.On("Login", mock.Anything, domain.LoginRequest{Email: "a@x.com", Password: "wrong"}).Return(nil, domain.ErrInvalidCredentials)
	h := NewSessionHandler(svc)
	rr := httptest.NewRecorder()
	h.Login(rr, post(t, "/v1/sessions/login", "", domain.LoginRequest{Email: "a@x.com", Password: "wrong"}))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeMessage(t, rr).Code)
}

func TestLogin_Success(t *testing.T) {
	svc := &mockSessions{}
	svc.On("Login", mock.Anything, mock.Anything).Return(&domain.User{UserID: "u1", Email: "a@x.com", PasswordHash: "h"}, nil)
	h := NewSessionHandler(svc)
	rr := httptest.NewRecorder()
	h.Login(rr, post(t, "/v1/sessions/login", "", domain.LoginRequest{Email: "a@x.com", Password: "pw12345678"}))
	require.Equal(t, http.StatusOK, rr.Code)
	var env UserEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "u1", env.User.UserID)
	assert.Empty(t, env.User.PasswordHash)
}

func TestGoogle_InvalidInput(t *testing.T) {
	svc := &mockSessions{}
	svc.On("LoginWithGoogle", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("%w: id_token required", domain.ErrInvalidInput))
	h := NewSessionHandler(svc)
	rr := httptest.NewRecorder()
	h.Google(rr, post(t, "/v1/sessions/google", "", domain.GoogleLoginRequest{}))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, decodeMessage(t, rr).Error, "id_token required")
}

// --- health ---

func TestPing(t *testing.T) {
	h := NewHealthHandler()
	rr := httptest.NewRecorder()
	h.Ping(rr, withChiAction(httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil), "ping"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", decodeMessage(t, rr).Message)
}
