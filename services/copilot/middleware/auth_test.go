// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// rejectingValidator fails every token.
type rejectingValidator struct{}

func (rejectingValidator) Validate(context.Context, string) (*AuthInfo, error) {
	return nil, errors.New("token expired")
}

func serveWithAuth(validator TokenValidator, mutate func(*http.Request)) (*httptest.ResponseRecorder, *AuthInfo) {
	var captured *AuthInfo
	router := gin.New()
	router.GET("/whoami", AuthMiddleware(validator), func(c *gin.Context) {
		captured = GetAuthInfo(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w, captured
}

func TestAuthMiddleware_DevHeaders(t *testing.T) {
	w, info := serveWithAuth(NopValidator{}, func(r *http.Request) {
		r.Header.Set(HeaderDevTenant, "acme-hvac")
		r.Header.Set(HeaderDevUser, "tech-42")
	})

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, info)
	assert.Equal(t, "acme-hvac", info.TenantID)
	assert.Equal(t, "tech-42", info.UserID)
}

func TestAuthMiddleware_DefaultDevIdentity(t *testing.T) {
	w, info := serveWithAuth(NopValidator{}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, info)
	assert.Equal(t, "dev-tenant", info.TenantID)
	assert.Equal(t, "dev-user", info.UserID)
}

func TestAuthMiddleware_ValidBearerToken(t *testing.T) {
	w, info := serveWithAuth(NopValidator{}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer some-token")
	})

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, info)
	assert.Equal(t, "local", info.TenantID)
}

func TestAuthMiddleware_InvalidBearerTokenRejected(t *testing.T) {
	w, info := serveWithAuth(rejectingValidator{}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer bad-token")
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, info)
}

func TestAuthMiddleware_NilValidatorFallsBackToNop(t *testing.T) {
	w, _ := serveWithAuth(nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer anything")
	})
	assert.Equal(t, http.StatusOK, w.Code)
}
