package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// operatorIDKey is the gin context key holding the authenticated operator id.
const operatorIDKey = "operatorId"

const (
	errMissingAuth   = "missing Authorization header"
	errMalformedAuth = "invalid Authorization header format"
	errInvalidToken  = "invalid or expired token"
)

// bearerToken extracts the token from "Bearer <token>". The scheme is
// matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// operatorMiddleware rejects requests without a valid operator token.
func (h *Handler) operatorMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMissingAuth})
		return
	}
	token, ok := bearerToken(header)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMalformedAuth})
		return
	}
	id, err := h.services.ParseToken(token)
	if err != nil {
		if h.log != nil {
			h.log.Debugw("auth_token_rejected", "path", c.FullPath(), "err", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidToken})
		return
	}

	c.Set(operatorIDKey, id)
	c.Next()
}
