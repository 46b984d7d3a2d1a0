package services

import (
	"hourly-auction-service/models"
	"hourly-auction-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// WinnerService finalizes completed auctions: winner derivation, history
// sync, claim-queue seeding, and the daily-schedule projection.
type WinnerService struct {
	DB *gorm.DB
}

func NewWinnerService(db *gorm.DB) *WinnerService {
	return &WinnerService{DB: db}
}

// FinalizeAuction completes a LIVE auction whose rounds are all done. The
// LIVE -> COMPLETED conditional update is the idempotency gate: losing it
// means another invocation already finalized, and everything downstream is
// skipped.
func (s *WinnerService) FinalizeAuction(auctionID string) error {
	now := utils.NowLocal()

	res := s.DB.Model(&models.HourlyAuction{}).
		Where("id = ? AND status = ?", auctionID, models.AuctionStatusLive).
		Updates(map[string]interface{}{
			"status":       models.AuctionStatusCompleted,
			"completed_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil // already finalized
	}

	var auction models.HourlyAuction
	if err := s.DB.Preload("Rounds").First(&auction, "id = ?", auctionID).Error; err != nil {
		return err
	}

	finalRound := auction.RoundByNumber(auction.RoundCount)
	var winners []models.AuctionWinner
	if finalRound != nil {
		var bids []models.RoundBid
		if err := s.DB.Where("round_id = ?", finalRound.ID).Find(&bids).Error; err != nil {
			return err
		}
		ranked := models.RankRoundBids(bids)
		top, _ := models.QualifiedCut(ranked, models.MaxWinnerRank)
		for i, b := range top {
			winners = append(winners, models.AuctionWinner{
				ID:             uuid.NewString(),
				AuctionID:      auction.ID,
				Rank:           i + 1,
				PlayerID:       b.PlayerID,
				PlayerUsername: b.PlayerUsername,
				FinalBidAmount: b.Amount,
				PrizeAmount:    auction.PrizeValue,
			})
		}
	}

	for i := range winners {
		if err := s.DB.Create(&winners[i]).Error; err != nil {
			log.Printf("[WINNER] failed to persist winner rank %d for %s: %v",
				winners[i].Rank, auction.Code, err)
		}
	}

	if err := s.markWinners(&auction, winners); err != nil {
		return err
	}
	if err := s.markNonWinners(&auction, winners); err != nil {
		return err
	}

	s.SyncSlotStatus(auction.ID)

	log.Printf("[WINNER] auction %s finalized with %d winner(s)", auction.Code, len(winners))
	return nil
}

// markWinners stamps each winner's history entry and seeds the priority
// claim queue. Every winner gets the fixed window for its own rank, while
// currentEligibleRank starts at 1 for all of them; the windows set here are
// never restamped, no matter how the queue later advances. Entries already
// CLAIMED or EXPIRED are filtered out so a re-run cannot resurrect them.
func (s *WinnerService) markWinners(auction *models.HourlyAuction, winners []models.AuctionWinner) error {
	if auction.CompletedAt == nil || len(winners) == 0 {
		return nil
	}
	completedAt := *auction.CompletedAt

	for _, w := range winners {
		start, deadline := models.ClaimWindow(completedAt, w.Rank)
		fee := models.RemainingClaimFee(w.PrizeAmount, w.Rank)
		eligible := 1

		err := s.DB.Model(&models.AuctionHistory{}).
			Where("auction_id = ? AND user_id = ? AND prize_claim_status NOT IN ?",
				auction.ID, w.PlayerID,
				[]string{models.ClaimStatusClaimed, models.ClaimStatusExpired}).
			Updates(map[string]interface{}{
				"is_winner":               true,
				"final_rank":              w.Rank,
				"prize_amount_won":        w.PrizeAmount,
				"last_round_bid_amount":   w.FinalBidAmount,
				"remaining_product_fees":  fee,
				"auction_status":          models.HistoryStatusCompleted,
				"completed_at":            completedAt,
				"total_participants":      auction.TotalParticipants,
				"prize_claim_status":      models.ClaimStatusPending,
				"claim_window_started_at": start,
				"claim_deadline":          deadline,
				"current_eligible_rank":   eligible,
				"ranks_offered":           gorm.Expr("?::jsonb", "[1]"),
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// markNonWinners closes out every other participant's history entry.
func (s *WinnerService) markNonWinners(auction *models.HourlyAuction, winners []models.AuctionWinner) error {
	if auction.CompletedAt == nil {
		return nil
	}
	winnerIDs := make([]string, 0, len(winners))
	for _, w := range winners {
		winnerIDs = append(winnerIDs, w.PlayerID)
	}

	q := s.DB.Model(&models.AuctionHistory{}).
		Where("auction_id = ? AND auction_status <> ?", auction.ID, models.HistoryStatusCompleted)
	if len(winnerIDs) > 0 {
		q = q.Where("user_id NOT IN ?", winnerIDs)
	}
	return q.Updates(map[string]interface{}{
		"auction_status":     models.HistoryStatusCompleted,
		"completed_at":       *auction.CompletedAt,
		"total_participants": auction.TotalParticipants,
		"prize_claim_status": models.ClaimStatusNotApplicable,
	}).Error
}

// SyncSlotStatus projects the auction's current status (and, once
// completed, its winners) into the owning day's slot row. Best effort: a
// projection failure is logged and never unwinds auction state.
func (s *WinnerService) SyncSlotStatus(auctionID string) {
	var auction models.HourlyAuction
	if err := s.DB.Preload("Winners").First(&auction, "id = ?", auctionID).Error; err != nil {
		log.Printf("[WINNER] slot sync: load auction %s failed: %v", auctionID, err)
		return
	}

	var slot models.DailySlot
	err := s.DB.Where("daily_auction_id = ? AND hourly_auction_id = ?",
		auction.DailyAuctionID, auction.ID).First(&slot).Error
	if err != nil {
		log.Printf("[WINNER] slot sync: no daily slot for auction %s: %v", auction.ID, err)
		return
	}

	updates := map[string]interface{}{"status": auction.Status}
	if auction.Status == models.AuctionStatusCompleted {
		updates["is_auction_completed"] = true
		updates["completed_at"] = auction.CompletedAt
	}
	if err := s.DB.Model(&slot).Updates(updates).Error; err != nil {
		log.Printf("[WINNER] slot sync: update slot %s failed: %v", slot.ID, err)
		return
	}

	if auction.Status != models.AuctionStatusCompleted {
		return
	}

	for _, w := range auction.Winners {
		sw := models.SlotWinner{
			ID:             uuid.NewString(),
			SlotID:         slot.ID,
			Rank:           w.Rank,
			PlayerID:       w.PlayerID,
			PlayerUsername: w.PlayerUsername,
			FinalBidAmount: w.FinalBidAmount,
			PrizeAmount:    w.PrizeAmount,
			IsPrizeClaimed: w.IsPrizeClaimed,
			PrizeClaimedAt: w.PrizeClaimedAt,
		}
		if err := s.DB.Create(&sw).Error; err != nil {
			log.Printf("[WINNER] slot sync: winner rank %d for slot %s: %v", w.Rank, slot.ID, err)
		}
	}

	// Day-level rollup.
	err = s.DB.Model(&models.DailyAuction{}).
		Where("id = ?", auction.DailyAuctionID).
		Update("completed_auctions_count", gorm.Expr("completed_auctions_count + 1")).Error
	if err != nil {
		log.Printf("[WINNER] slot sync: rollup for daily %s failed: %v", auction.DailyAuctionID, err)
		return
	}
	err = s.DB.Model(&models.DailyAuction{}).
		Where("id = ? AND completed_auctions_count >= total_auctions_per_day", auction.DailyAuctionID).
		Update("is_all_auctions_completed", true).Error
	if err != nil {
		log.Printf("[WINNER] slot sync: completion flag for daily %s failed: %v", auction.DailyAuctionID, err)
	}
}

// --- HTTP handlers ---

// GetAuctionWinners returns the final podium of a completed auction.
func (s *WinnerService) GetAuctionWinners(c *fiber.Ctx) error {
	auctionID := c.Params("id")

	var auction models.HourlyAuction
	err := s.DB.Preload("Winners", func(db *gorm.DB) *gorm.DB {
		return db.Order("rank ASC")
	}).First(&auction, "id = ?", auctionID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": ErrAuctionNotFound.Error()})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if auction.Status != models.AuctionStatusCompleted {
		return c.Status(400).JSON(fiber.Map{"error": "auction is not completed yet"})
	}
	return c.JSON(fiber.Map{
		"hourly_auction_id": auction.ID,
		"auction_name":      auction.AuctionName,
		"completed_at":      auction.CompletedAt,
		"winners":           auction.Winners,
	})
}
