package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"habit_reminder_service/internal/app"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SweepHandler exposes the due-reminder sweep to an external scheduler.
type SweepHandler struct {
	sweeper app.SweepRunner
	secret  string
	timeout time.Duration
	logger  *logrus.Entry
}

func NewSweepHandler(sweeper app.SweepRunner, secret string, timeout time.Duration, logger *logrus.Entry) *SweepHandler {
	return &SweepHandler{sweeper: sweeper, secret: secret, timeout: timeout, logger: logger}
}

func (h *SweepHandler) authorized(c *gin.Context) bool {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || h.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}

// CheckReminders runs one sweep and reports its summary.
func (h *SweepHandler) CheckReminders(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	// The sweep outlives a dropped client connection but not its own deadline.
	ctx := context.WithoutCancel(c.Request.Context())
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	summary, err := h.sweeper.Run(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Sweep failed to run")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Internal server error",
		})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
