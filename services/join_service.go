package services

import (
	"hourly-auction-service/models"
	"hourly-auction-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// JoinService turns a confirmed entry-fee payment into an auction
// participant plus their history entry. Both inserts are idempotent on
// their unique indexes, so a retried join never double-counts.
type JoinService struct {
	DB *gorm.DB
}

func NewJoinService(db *gorm.DB) *JoinService {
	return &JoinService{DB: db}
}

// JoinAuction admits a player who has paid the entry fee. Joining is open
// while the auction is UPCOMING or LIVE in round 1; once round 2 starts the
// field is locked.
func (s *JoinService) JoinAuction(userID, username, auctionID, orderID string) (*models.AuctionParticipant, error) {
	var auction models.HourlyAuction
	err := s.DB.First(&auction, "id = ?", auctionID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrAuctionNotFound
		}
		return nil, err
	}
	switch auction.Status {
	case models.AuctionStatusUpcoming:
		// fine
	case models.AuctionStatusLive:
		if auction.CurrentRound > 1 {
			return nil, ErrJoinClosed
		}
	default:
		return nil, ErrJoinClosed
	}

	var payment models.PaymentRecord
	err = s.DB.Where("order_id = ? AND user_id = ? AND purpose = ? AND status = ?",
		orderID, userID, models.PaymentPurposeEntryFee, models.PaymentStatusPaid).
		First(&payment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrPaymentRequired
		}
		return nil, err
	}
	if payment.AuctionID != "" && payment.AuctionID != auctionID {
		return nil, ErrPaymentRequired
	}
	fee := payment.Amount
	if auction.EntryFee != nil && fee+0.01 < *auction.EntryFee {
		return nil, ErrPaymentRequired
	}

	now := utils.NowLocal()
	normalized := utils.NormalizeUsername(username)
	participant := models.AuctionParticipant{
		ID:             uuid.NewString(),
		AuctionID:      auctionID,
		PlayerID:       userID,
		PlayerUsername: normalized,
		EntryFeePaid:   fee,
		JoinedAt:       now,
		CurrentRound:   1,
	}
	if err := s.DB.Create(&participant).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ErrAlreadyJoined
		}
		return nil, err
	}

	history := models.AuctionHistory{
		ID:             uuid.NewString(),
		UserID:         userID,
		Username:       normalized,
		AuctionID:      auctionID,
		DailyAuctionID: auction.DailyAuctionID,
		AuctionDate:    auction.AuctionDate,
		AuctionName:    auction.AuctionName,
		TimeSlot:       auction.TimeSlot,
		PrizeValue:     auction.PrizeValue,
		EntryFeePaid:   fee,
		AuctionStatus:  models.HistoryStatusJoined,
		JoinedAt:       now,
	}
	if err := s.DB.Create(&history).Error; err != nil && !isDuplicateKey(err) {
		log.Printf("[JOIN] history entry for %s/%s failed: %v", userID, auctionID, err)
	}

	if err := s.DB.Model(&models.HourlyAuction{}).
		Where("id = ?", auctionID).
		Update("total_participants", gorm.Expr("total_participants + 1")).Error; err != nil {
		log.Printf("[JOIN] participant counter for %s failed: %v", auctionID, err)
	}
	if err := s.DB.Model(&models.DailyAuction{}).
		Where("id = ?", auction.DailyAuctionID).
		Updates(map[string]interface{}{
			"total_participants_today": gorm.Expr("total_participants_today + 1"),
			"total_revenue_today":      gorm.Expr("total_revenue_today + ?", fee),
		}).Error; err != nil {
		log.Printf("[JOIN] daily rollup for %s failed: %v", auction.DailyAuctionID, err)
	}

	log.Printf("[JOIN] %s joined auction %s (fee %s)", normalized, auction.Code, utils.FormatRupees(fee))
	return &participant, nil
}

// --- HTTP handlers ---

type joinRequest struct {
	AuctionID string `json:"hourly_auction_id"`
	OrderID   string `json:"order_id"`
	Username  string `json:"username"`
}

// JoinAuctionHandler admits the caller after entry-fee payment.
func (s *JoinService) JoinAuctionHandler(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	var req joinRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.AuctionID == "" || req.OrderID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "hourly_auction_id and order_id are required"})
	}

	participant, err := s.JoinAuction(userID, req.Username, req.AuctionID, req.OrderID)
	if err != nil {
		return c.Status(StatusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(201).JSON(fiber.Map{"message": "joined auction", "participant": participant})
}
