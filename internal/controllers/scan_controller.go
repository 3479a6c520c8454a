package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/akipresenca/aki_device_agent/internal/cpf"
	"github.com/akipresenca/aki_device_agent/internal/orchestrator"
)

// ScanController is the token intake surface: the local counterpart of the QR
// scan, URL parameter and pushed-event token sources.
type ScanController struct {
	Orch *orchestrator.Orchestrator
}

type scanRequest struct {
	QrToken string `json:"qr_token"`
}

type scanCPFRequest struct {
	QrToken    string `json:"qr_token"`
	StudentCPF string `json:"cpf"`
}

// Scan accepts a freshly acquired token and runs the submit-or-queue flow.
func (sc *ScanController) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.QrToken) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "qr_token is required"})
		return
	}

	out := sc.Orch.HandleToken(c.Request.Context(), req.QrToken)
	c.JSON(statusFor(out), gin.H{"outcome": out.Kind, "message": out.Message})
}

// ScanWithCPF is the user-driven retry after a cpf_required outcome.
func (sc *ScanController) ScanWithCPF(c *gin.Context) {
	var req scanCPFRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.QrToken) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "qr_token is required"})
		return
	}
	if !cpf.IsValid(req.StudentCPF) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid cpf"})
		return
	}

	out := sc.Orch.HandleTokenWithCPF(c.Request.Context(), req.QrToken, req.StudentCPF)
	c.JSON(statusFor(out), gin.H{"outcome": out.Kind, "message": out.Message})
}

// statusFor maps an outcome onto the closest HTTP status so thin clients can
// branch without parsing the body.
func statusFor(out orchestrator.Outcome) int {
	switch out.Kind {
	case orchestrator.Queued:
		return http.StatusAccepted
	case orchestrator.MustRegister, orchestrator.CPFRequired:
		return http.StatusConflict
	case orchestrator.LocationRejected, orchestrator.Failed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusOK
	}
}
