// Package httperr translates the upstream error taxonomy into HTTP
// status codes, applied uniformly around every handler invocation.
package httperr

import (
	"errors"
	"log"
	"net/http"

	"chainsidecar/internal/chain"

	"github.com/gin-gonic/gin"
)

// Write inspects err and writes the appropriate HTTP response for it.
// Any error that doesn't match the known upstream taxonomy is logged and
// reported as 500 — the router never leaks raw error text to clients.
func Write(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chain.ErrDoesNotExist):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, chain.ErrUnavailable),
		errors.Is(err, chain.ErrTooManyRequests),
		errors.Is(err, chain.ErrNodeNotReady):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "upstream unavailable"})
	case errors.Is(err, chain.ErrSkippedBlock):
		c.Status(http.StatusNoContent)
	default:
		log.Printf("httperr: unmapped handler error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
