package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anthropics/goclode/internal/storeerr"
)

// writeError translates a storeerr-tagged error into an HTTP status and
// JSON body: Validation and NotFound never get logged as severe; anything
// else is treated as a backend failure.
func writeError(c *gin.Context, err error) {
	switch {
	case storeerr.Is(err, storeerr.KindValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case storeerr.Is(err, storeerr.KindNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case storeerr.Is(err, storeerr.KindConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case storeerr.Is(err, storeerr.KindTransient):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
