package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akipresenca/aki_device_agent/internal/connectivity"
	"github.com/akipresenca/aki_device_agent/internal/cpf"
	"github.com/akipresenca/aki_device_agent/internal/identity"
	"github.com/akipresenca/aki_device_agent/internal/orchestrator"
)

// StatusController exposes agent state to the UI shell and a manual queue
// sync trigger.
type StatusController struct {
	Identity *identity.Store
	State    *connectivity.State
	Orch     *orchestrator.Orchestrator
}

func (sc *StatusController) Get(c *gin.Context) {
	snap := sc.State.Snapshot()
	ident, _ := sc.Identity.Current()
	last := sc.Orch.LastOutcome()

	c.JSON(http.StatusOK, gin.H{
		"device_id":    sc.Identity.GetOrCreate(),
		"registered":   ident.Registered(),
		"cpf":          cpf.Mask(ident.StudentCPF),
		"online":       snap.Online,
		"queue_depth":  snap.QueueDepth,
		"last_outcome": last.Kind,
	})
}

// SyncQueue drains the offline queue on demand.
func (sc *StatusController) SyncQueue(c *gin.Context) {
	if !sc.State.Online() {
		c.JSON(http.StatusConflict, gin.H{"error": "offline"})
		return
	}
	rep := sc.Orch.Drain(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"attempted": rep.Attempted,
		"delivered": rep.Delivered,
		"dropped":   rep.Dropped,
		"remaining": rep.Remaining,
	})
}
