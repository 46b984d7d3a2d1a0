package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hourly-auction-service/handlers"
	"hourly-auction-service/middleware"
	"hourly-auction-service/models"
	"hourly-auction-service/services"
	"hourly-auction-service/utils"
	"hourly-auction-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	if err := utils.InitTimezone(); err != nil {
		log.Fatal("failed to load auction timezone:", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // 20MB, enough for prize images
	})

	// Only Gateway requests allowed — no exceptions.
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Service-Token, X-Payment-Signature",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.MasterAuction{},
		&models.MasterSlotConfig{},
		&models.MasterRoundConfig{},
		&models.SequenceCounter{},
		&models.DailyAuction{},
		&models.DailySlot{},
		&models.SlotWinner{},
		&models.HourlyAuction{},
		&models.AuctionRound{},
		&models.RoundBid{},
		&models.AuctionParticipant{},
		&models.AuctionWinner{},
		&models.AuctionHistory{},
		&models.PaymentRecord{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	biddingService := services.NewBiddingService(db)
	winnerService := services.NewWinnerService(db)
	scheduleService := services.NewScheduleService(db, biddingService, winnerService)
	claimService := services.NewClaimService(db)
	joinService := services.NewJoinService(db)
	masterService := services.NewMasterService(db)
	historyService := services.NewHistoryService(db)
	paymentService := services.NewPaymentService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paymentSyncClient := workers.NewPaymentSyncClient(db)
	go workers.PollPayments(ctx, paymentSyncClient, 15*time.Second)

	scheduler, err := services.NewAuctionScheduler(scheduleService, claimService)
	if err != nil {
		log.Fatal("failed to create auction scheduler:", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatal("failed to start auction scheduler:", err)
	}
	defer scheduler.Stop()

	handlers.SetupAuctionRoutes(app, scheduleService, joinService, biddingService, winnerService)
	handlers.SetupClaimRoutes(app, claimService, historyService, paymentService)
	handlers.SetupAdminRoutes(app, masterService, scheduleService, claimService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Server running on http://localhost:%s", port)
	log.Printf("Auction timezone: %s", utils.AuctionLocation())
	log.Println("Payment polling running (every 15s)")
	log.Println("GatewayAuthMiddleware enforced globally — all requests must come from Gateway")

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
