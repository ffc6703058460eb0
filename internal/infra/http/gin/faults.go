package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"homeease/internal/domain/shared/fault"
)

// respondError maps fault kinds onto HTTP status codes. Untagged errors are
// treated as internal and their detail is kept out of the response body.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	kind, tagged := fault.KindOf(err)
	if !tagged {
		if logger != nil {
			logger.Error("request failed", "error", err, "path", c.FullPath())
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	status := http.StatusBadRequest
	switch kind {
	case fault.KindInvalidBookingRequest, fault.KindValidationFailed:
		status = http.StatusBadRequest
	case fault.KindInvalidTransitionTarget:
		status = http.StatusConflict
	case fault.KindUnauthorized:
		status = http.StatusForbidden
	case fault.KindNotFound:
		status = http.StatusNotFound
	case fault.KindAlreadyRated, fault.KindNotCompleted:
		status = http.StatusConflict
	case fault.KindStorageFault:
		if logger != nil {
			logger.Error("storage fault", "error", err, "path", c.FullPath())
		}
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": string(kind)})
}
