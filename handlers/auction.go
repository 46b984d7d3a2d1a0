package handlers

import (
	"hourly-auction-service/middleware"
	"hourly-auction-service/services"

	"github.com/gofiber/fiber/v2"
)

// SetupAuctionRoutes wires the player-facing auction surface: live state,
// schedule, joining, bidding, and results.
func SetupAuctionRoutes(app *fiber.App,
	schedule *services.ScheduleService,
	join *services.JoinService,
	bidding *services.BiddingService,
	winner *services.WinnerService,
) {
	// Public reads (still behind the gateway token).
	app.Get("/auctions/live", schedule.GetLiveAuction)
	app.Get("/auctions/schedule", schedule.GetSchedule)
	app.Get("/auctions/:id/winners", winner.GetAuctionWinners)
	app.Get("/auctions/:id/rounds/:round/bids", bidding.GetRoundBids)

	// Authenticated player actions.
	secured := app.Group("/s", middleware.UserContextMiddleware())
	secured.Post("/auctions/join", join.JoinAuctionHandler)
	secured.Post("/auctions/bid", bidding.PlaceBidHandler)
}
