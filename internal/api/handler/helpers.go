package handler

import (
	"errors"
	"net/http"

	"librarium/internal/api/service"

	"github.com/gin-gonic/gin"
)

// actorFrom builds the explicit actor identity for audit logging from the
// values the auth middleware placed in the request context.
func actorFrom(c *gin.Context) service.ActorContext {
	return service.ActorContext{
		UserID:    c.GetString("userID"),
		Role:      c.GetString("role"),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// respondServiceError maps the service error taxonomy to HTTP statuses. Raw
// persistence errors become a generic 500 so no driver text leaks out.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrBookUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": "book has no available copies"})
	case errors.Is(err, service.ErrBorrowLimitExceeded):
		c.JSON(http.StatusConflict, gin.H{"error": "member has reached the borrowing limit"})
	case errors.Is(err, service.ErrInvalidLoanState):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid loan or book already returned"})
	case errors.Is(err, service.ErrHasOpenLoans):
		c.JSON(http.StatusConflict, gin.H{"error": "record still has open loans"})
	case errors.Is(err, service.ErrEmailInUse):
		c.JSON(http.StatusConflict, gin.H{"error": "email address is already registered"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrExpiredToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
