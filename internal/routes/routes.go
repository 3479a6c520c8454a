package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/akipresenca/aki_device_agent/internal/bff"
	"github.com/akipresenca/aki_device_agent/internal/connectivity"
	"github.com/akipresenca/aki_device_agent/internal/controllers"
	"github.com/akipresenca/aki_device_agent/internal/identity"
	"github.com/akipresenca/aki_device_agent/internal/orchestrator"
	"github.com/akipresenca/aki_device_agent/internal/ws"
)

func Register(r *gin.Engine, orch *orchestrator.Orchestrator, ident *identity.Store, client *bff.Client, state *connectivity.State, hub *ws.StatusHub) {
	scanCtrl := &controllers.ScanController{Orch: orch}
	deviceCtrl := &controllers.DeviceController{Identity: ident, BFF: client}
	statusCtrl := &controllers.StatusController{Identity: ident, State: state, Orch: orch}

	api := r.Group("/api/v1")
	{
		api.POST("/scan", scanCtrl.Scan)
		api.POST("/scan/cpf", scanCtrl.ScanWithCPF)

		api.POST("/device/register", deviceCtrl.Register)
		api.POST("/device/logout", deviceCtrl.Logout)

		api.GET("/status", statusCtrl.Get)
		api.POST("/queue/sync", statusCtrl.SyncQueue)
	}

	r.GET("/ws/status", ws.StatusHandler(hub, func() ws.StatusMessage {
		snap := state.Snapshot()
		last := orch.LastOutcome()
		return ws.StatusMessage{
			Online:      snap.Online,
			QueueDepth:  snap.QueueDepth,
			Registered:  ident.IsRegistered(),
			LastOutcome: string(last.Kind),
			Message:     last.Message,
		}
	}))
}
