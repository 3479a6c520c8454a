package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akipresenca/aki_device_agent/internal/bff"
	"github.com/akipresenca/aki_device_agent/internal/cpf"
	"github.com/akipresenca/aki_device_agent/internal/identity"
)

// DeviceController handles the up-front registration flow and logout.
type DeviceController struct {
	Identity *identity.Store
	BFF      *bff.Client
}

type registerRequest struct {
	StudentCPF string `json:"cpf"`
}

// Register validates the CPF locally, links the device at the BFF and
// persists the identity on success.
func (dc *DeviceController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !cpf.IsValid(req.StudentCPF) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid cpf"})
		return
	}
	cleaned := cpf.Clean(req.StudentCPF)

	deviceID := dc.Identity.GetOrCreate()
	resp, err := dc.BFF.RegisterDevice(c.Request.Context(), cleaned, deviceID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if !resp.Success {
		c.JSON(http.StatusConflict, gin.H{"error": resp.Message})
		return
	}

	if err := dc.Identity.Save(cleaned); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   resp.Message,
		"device_id": deviceID,
		"cpf":       cpf.Mask(cleaned),
	})
}

// Logout unlinks the device from its student; the device id itself survives.
func (dc *DeviceController) Logout(c *gin.Context) {
	dc.Identity.Clear()
	c.JSON(http.StatusOK, gin.H{"success": true})
}
