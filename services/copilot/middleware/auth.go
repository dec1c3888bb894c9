// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the copilot service.
//
// The auth middleware extracts a bearer token from the Authorization header
// and validates it with the configured TokenValidator. When no token is
// present, fixed development headers (X-Dev-Tenant, X-Dev-User) identify the
// caller instead, so local deployments work with zero auth infrastructure.
// Token acquisition itself is opaque to this service.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Development identity headers accepted when no bearer token is supplied.
const (
	HeaderDevTenant = "X-Dev-Tenant"
	HeaderDevUser   = "X-Dev-User"
)

// authInfoKey is the gin context key for storing AuthInfo.
const authInfoKey = "hvac_auth_info"

// AuthInfo is the authenticated caller identity.
type AuthInfo struct {
	TenantID string
	UserID   string
}

// TokenValidator validates an opaque bearer token.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopValidator accepts every token as the local development identity.
// Deployments with a real identity provider supply their own validator.
type NopValidator struct{}

func (NopValidator) Validate(ctx context.Context, token string) (*AuthInfo, error) {
	return &AuthInfo{TenantID: "local", UserID: "local-user"}, nil
}

// SetAuthInfo stores the authenticated caller in the gin context.
func SetAuthInfo(c *gin.Context, info *AuthInfo) {
	c.Set(authInfoKey, info)
}

// GetAuthInfo retrieves the authenticated caller from the gin context.
// Returns nil when the request carried no usable identity.
func GetAuthInfo(c *gin.Context) *AuthInfo {
	v, ok := c.Get(authInfoKey)
	if !ok {
		return nil
	}
	info, ok := v.(*AuthInfo)
	if !ok {
		return nil
	}
	return info
}

// AuthMiddleware resolves the caller identity for every request.
//
// A bearer token, when present, must validate; an invalid token is rejected
// with 401. Without a token the development headers are used, defaulting to
// a fixed dev identity so unauthenticated local use keeps working.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	if validator == nil {
		validator = NopValidator{}
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimPrefix(header, "Bearer ")
			info, err := validator.Validate(c.Request.Context(), token)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			SetAuthInfo(c, info)
			c.Next()
			return
		}

		tenant := c.GetHeader(HeaderDevTenant)
		if tenant == "" {
			tenant = "dev-tenant"
		}
		user := c.GetHeader(HeaderDevUser)
		if user == "" {
			user = "dev-user"
		}
		SetAuthInfo(c, &AuthInfo{TenantID: tenant, UserID: user})
		c.Next()
	}
}
