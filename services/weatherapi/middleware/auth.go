// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware validates Agent Identity tokens on incoming requests.
//
// # Validation Flow
//
// The validator is a terminal state machine over one request:
//
//	Request
//	   │
//	   ├─► no Authorization header        → 401, stop
//	   ├─► header without "Bearer " scheme → 401, stop
//	   ├─► payload not decodable           → 401, stop
//	   └─► decodable → claims stored in context → handler
//
// # Security Gap: no signature verification
//
// The token's claims are DECODED but the signature is NOT VERIFIED, so a
// well-formed forged token passes. "Decodable" is not "authentic". Closing
// the gap requires validating against the broker's published key material;
// until then the claims stored here are provenance for display, never an
// authorization decision. Handlers must not treat them as trusted.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/AleutianAI/AgentIdentity/services/identity"
	"github.com/gin-gonic/gin"
)

// claimsKey is the gin context key for the decoded claim set.
const claimsKey = "agent_identity_claims"

// SetClaims stores the decoded claim set in the Gin context. Request-scoped.
func SetClaims(c *gin.Context, claims *identity.ClaimSet) {
	c.Set(claimsKey, claims)
}

// GetClaims retrieves the claim set stored by TokenValidator, or nil when
// the request did not pass validation (defensive; validated handlers always
// have one).
func GetClaims(c *gin.Context) *identity.ClaimSet {
	if v, exists := c.Get(claimsKey); exists {
		if claims, ok := v.(*identity.ClaimSet); ok {
			return claims
		}
	}
	return nil
}

// TokenValidator rejects requests without a decodable Agent Identity token.
// All three reject states are terminal 401s; a request is never downgraded
// to anonymous. Business logic runs only after this middleware passes and
// does not revalidate.
func TokenValidator() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Missing Authorization header",
				"message": "Please provide a valid Agent Identity token",
			})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid Authorization format",
				"message": "Use 'Bearer <token>' format",
			})
			return
		}

		claims, ok := identity.DecodeClaims(authHeader)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid token format",
				"message": "Token payload could not be decoded",
			})
			return
		}

		SetClaims(c, claims)
		slog.Info("token validated",
			"app_id", identity.TruncateID(claims.AppID),
			"is_agent_identity", claims.IsAgentIdentity())

		c.Next()
	}
}
