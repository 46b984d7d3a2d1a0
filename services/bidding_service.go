package services

import (
	"errors"
	"strings"
	"time"

	"hourly-auction-service/models"
	"hourly-auction-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// BiddingService handles bid intake and round close. One bid per player per
// round is guaranteed by the (round_id, player_id) unique index, not by a
// pre-read, so two racing requests cannot both succeed.
type BiddingService struct {
	DB *gorm.DB
}

func NewBiddingService(db *gorm.DB) *BiddingService {
	return &BiddingService{DB: db}
}

// PlaceBid validates the full precondition chain in order and records the
// bid. The first failed precondition wins; nothing is written on rejection.
func (s *BiddingService) PlaceBid(playerID, username, auctionID string, amount float64) (*models.RoundBid, error) {
	if amount <= 0 {
		return nil, ErrInvalidBidAmount
	}

	var auction models.HourlyAuction
	err := s.DB.Preload("Rounds").First(&auction, "id = ?", auctionID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrAuctionNotFound
		}
		return nil, err
	}
	if auction.Status != models.AuctionStatusLive {
		return nil, ErrAuctionNotLive
	}

	var participant models.AuctionParticipant
	err = s.DB.Where("auction_id = ? AND player_id = ?", auctionID, playerID).
		First(&participant).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	if participant.IsEliminated {
		return nil, ErrPlayerEliminated
	}

	roundNumber := auction.CurrentRound
	round := auction.RoundByNumber(roundNumber)
	if roundNumber < 1 || round == nil {
		return nil, ErrRoundNotActive
	}

	if roundNumber > 1 {
		prev := auction.RoundByNumber(roundNumber - 1)
		if prev == nil || prev.Status != models.RoundStatusCompleted {
			return nil, ErrRoundNotActive
		}
		var qualifiedCount int64
		if err := s.DB.Model(&models.RoundBid{}).
			Where("round_id = ? AND player_id = ? AND is_qualified = ?", prev.ID, playerID, true).
			Count(&qualifiedCount).Error; err != nil {
			return nil, err
		}
		if qualifiedCount == 0 {
			return nil, ErrNotQualified
		}
	}

	if round.Status != models.RoundStatusActive {
		return nil, ErrRoundNotActive
	}
	if round.MaxBid != nil && amount > *round.MaxBid {
		return nil, ErrBidAboveMax
	}

	bid := models.RoundBid{
		ID:             uuid.NewString(),
		RoundID:        round.ID,
		AuctionID:      auctionID,
		PlayerID:       playerID,
		PlayerUsername: utils.NormalizeUsername(username),
		Amount:         amount,
		PlacedAt:       utils.NowLocal(),
	}
	if err := s.DB.Create(&bid).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ErrAlreadyBid
		}
		return nil, err
	}

	// One bid per round means every accepted bid is the first (and only)
	// bid of its round, so all aggregates bump unconditionally.
	if err := s.applyBidEffects(&bid, roundNumber); err != nil {
		log.Printf("[BID] aggregate update failed for bid %s: %v", bid.ID, err)
	}

	log.Printf("[BID] %s bid %s on auction %s round %d",
		bid.PlayerUsername, utils.FormatRupees(amount), auction.Code, roundNumber)
	return &bid, nil
}

func (s *BiddingService) applyBidEffects(bid *models.RoundBid, roundNumber int) error {
	err := s.DB.Model(&models.AuctionParticipant{}).
		Where("auction_id = ? AND player_id = ?", bid.AuctionID, bid.PlayerID).
		Updates(map[string]interface{}{
			"total_bids_placed": gorm.Expr("total_bids_placed + 1"),
			"total_amount_bid":  gorm.Expr("total_amount_bid + ?", bid.Amount),
			"current_round":     roundNumber,
		}).Error
	if err != nil {
		return err
	}

	err = s.DB.Model(&models.AuctionRound{}).
		Where("id = ?", bid.RoundID).
		Update("total_bids", gorm.Expr("total_bids + 1")).Error
	if err != nil {
		return err
	}

	err = s.DB.Model(&models.HourlyAuction{}).
		Where("id = ?", bid.AuctionID).
		Update("total_bids", gorm.Expr("total_bids + 1")).Error
	if err != nil {
		return err
	}

	return s.DB.Model(&models.AuctionHistory{}).
		Where("auction_id = ? AND user_id = ?", bid.AuctionID, bid.PlayerID).
		Updates(map[string]interface{}{
			"total_bids_placed":   gorm.Expr("total_bids_placed + 1"),
			"total_amount_bid":    gorm.Expr("total_amount_bid + ?", bid.Amount),
			"rounds_participated": gorm.Expr("rounds_participated + 1"),
			"auction_status":      models.HistoryStatusInProgress,
		}).Error
}

// CloseRound finishes an ACTIVE round: ranks its bids, marks the top-K
// qualified, and eliminates everyone else unless this was the final round.
// The ACTIVE -> COMPLETED precondition makes re-invocation a no-op, so the
// qualified set is written exactly once.
func (s *BiddingService) CloseRound(a *models.HourlyAuction, roundNumber int) error {
	round := a.RoundByNumber(roundNumber)
	if round == nil {
		return ErrRoundNotFound
	}

	now := utils.NowLocal()
	res := s.DB.Model(&models.AuctionRound{}).
		Where("id = ? AND status = ?", round.ID, models.RoundStatusActive).
		Updates(map[string]interface{}{
			"status":    models.RoundStatusCompleted,
			"closed_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil // already closed by another sweep
	}

	var bids []models.RoundBid
	if err := s.DB.Where("round_id = ?", round.ID).Find(&bids).Error; err != nil {
		return err
	}

	ranked := models.RankRoundBids(bids)
	qualified, _ := models.QualifiedCut(ranked, round.TopBidCount)

	qualifiedIDs := make([]string, 0, len(qualified))
	for i, b := range qualified {
		rank := i + 1
		if err := s.DB.Model(&models.RoundBid{}).
			Where("id = ?", b.ID).
			Updates(map[string]interface{}{"rank": rank, "is_qualified": true}).Error; err != nil {
			return err
		}
		qualifiedIDs = append(qualifiedIDs, b.PlayerID)
	}

	log.Printf("[BID] auction %s round %d closed: %d bid(s), %d qualified",
		a.Code, roundNumber, len(bids), len(qualified))

	if roundNumber >= a.RoundCount {
		return nil // final round: survivors become winners at finalize
	}
	return s.eliminateNonQualifiers(a.ID, roundNumber, qualifiedIDs)
}

// eliminateNonQualifiers marks every still-standing participant outside the
// qualified set as eliminated in this round, including those who never bid.
func (s *BiddingService) eliminateNonQualifiers(auctionID string, roundNumber int, qualifiedIDs []string) error {
	q := s.DB.Model(&models.AuctionParticipant{}).
		Where("auction_id = ? AND is_eliminated = ?", auctionID, false)
	h := s.DB.Model(&models.AuctionHistory{}).
		Where("auction_id = ? AND is_eliminated = ?", auctionID, false)
	if len(qualifiedIDs) > 0 {
		q = q.Where("player_id NOT IN ?", qualifiedIDs)
		h = h.Where("user_id NOT IN ?", qualifiedIDs)
	}

	res := q.Updates(map[string]interface{}{
		"is_eliminated":       true,
		"eliminated_in_round": roundNumber,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		log.Printf("[BID] auction %s: eliminated %d participant(s) in round %d",
			auctionID, res.RowsAffected, roundNumber)
	}

	return h.Updates(map[string]interface{}{
		"is_eliminated":       true,
		"eliminated_in_round": roundNumber,
	}).Error
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "duplicate key")
}

// --- HTTP handlers ---

type placeBidRequest struct {
	AuctionID string  `json:"hourly_auction_id"`
	Amount    float64 `json:"bid_amount"`
	Username  string  `json:"username"`
}

// PlaceBidHandler accepts a bid for the auction's current round.
func (s *BiddingService) PlaceBidHandler(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	var req placeBidRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.AuctionID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "hourly_auction_id is required"})
	}

	bid, err := s.PlaceBid(userID, req.Username, req.AuctionID, req.Amount)
	if err != nil {
		return c.Status(StatusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(201).JSON(fiber.Map{"message": "bid placed", "bid": bid})
}

// GetRoundBids returns a completed round's final ranking. Bids of a round
// still in flight are not exposed.
func (s *BiddingService) GetRoundBids(c *fiber.Ctx) error {
	auctionID := c.Params("id")
	roundNumber, err := c.ParamsInt("round")
	if err != nil || roundNumber < 1 {
		return c.Status(400).JSON(fiber.Map{"error": "invalid round number"})
	}

	var round models.AuctionRound
	err = s.DB.Where("auction_id = ? AND round_number = ?", auctionID, roundNumber).
		First(&round).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": ErrRoundNotFound.Error()})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if round.Status != models.RoundStatusCompleted {
		return c.Status(400).JSON(fiber.Map{"error": "round results not available yet"})
	}

	var bids []models.RoundBid
	if err := s.DB.Where("round_id = ?", round.ID).
		Order("rank ASC NULLS LAST, amount DESC, placed_at ASC").
		Find(&bids).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(fiber.Map{"round": round, "bids": bids, "closed_at": round.ClosedAt})
}

// timeLeftInRound is surfaced on live reads so clients can render a
// countdown without trusting their own clock.
func timeLeftInRound(r *models.AuctionRound, now time.Time) time.Duration {
	if r == nil || r.Status != models.RoundStatusActive {
		return 0
	}
	left := r.CompletedAt.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
