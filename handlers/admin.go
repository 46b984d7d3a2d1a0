package handlers

import (
	"hourly-auction-service/middleware"
	"hourly-auction-service/services"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminRoutes wires template management and scheduler controls.
func SetupAdminRoutes(app *fiber.App,
	master *services.MasterService,
	schedule *services.ScheduleService,
	claims *services.ClaimService,
) {
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.AdminOnly())

	admin.Post("/masters", master.CreateMaster)
	admin.Get("/masters", master.ListMasters)
	admin.Get("/masters/:id", master.GetMaster)
	admin.Post("/masters/:id/activate", master.ActivateMaster)

	admin.Get("/scheduler/status", schedule.GetSchedulerStatus)
	admin.Post("/scheduler/generate", schedule.TriggerMidnightReset)
	admin.Post("/scheduler/sweep", schedule.TriggerSweep)
	admin.Post("/scheduler/claims/sweep", claims.TriggerClaimSweep)
}
