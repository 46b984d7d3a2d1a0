package handlers

import (
	"hourly-auction-service/middleware"
	"hourly-auction-service/services"

	"github.com/gofiber/fiber/v2"
)

// SetupClaimRoutes wires the prize-claim queue and the user history reads.
func SetupClaimRoutes(app *fiber.App,
	claims *services.ClaimService,
	history *services.HistoryService,
	payments *services.PaymentService,
) {
	// Gateway callback carries its own HMAC signature instead of a user
	// context.
	app.Post("/payments/callback", payments.CallbackHandler)

	secured := app.Group("/s", middleware.UserContextMiddleware())
	secured.Post("/claims", claims.SubmitClaimHandler)
	secured.Get("/claims/pending", claims.GetPendingClaims)
	secured.Get("/claims/:id/status", claims.GetClaimStatus)

	secured.Get("/history", history.GetUserHistory)
	secured.Get("/history/stats", history.GetUserStats)
	secured.Get("/history/:id", history.GetUserAuctionDetail)
}
