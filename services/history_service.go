package services

import (
	"hourly-auction-service/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HistoryService serves the user-facing read side: participation history,
// aggregate stats, and the per-auction round-by-round drilldown.
type HistoryService struct {
	DB *gorm.DB
}

func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{DB: db}
}

// GetUserHistory lists the caller's auction participations, newest first.
func (s *HistoryService) GetUserHistory(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	var entries []models.AuctionHistory
	err := s.DB.Where("user_id = ?", userID).
		Order("auction_date DESC, joined_at DESC").
		Limit(limit).Offset(offset).
		Find(&entries).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	var total int64
	s.DB.Model(&models.AuctionHistory{}).Where("user_id = ?", userID).Count(&total)

	return c.JSON(fiber.Map{
		"history": entries,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// userStats is computed in one aggregate query over the history table.
type userStats struct {
	TotalAuctions  int64   `json:"total_auctions"`
	Wins           int64   `json:"wins"`
	ClaimedPrizes  int64   `json:"claimed_prizes"`
	TotalSpent     float64 `json:"total_spent"`
	TotalBidAmount float64 `json:"total_bid_amount"`
	TotalWon       float64 `json:"total_won"`
}

// GetUserStats returns lifetime aggregates plus derived win rate and net
// gain. Spend counts entry fees; winnings count only claimed prizes.
func (s *HistoryService) GetUserStats(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	var stats userStats
	err := s.DB.Model(&models.AuctionHistory{}).
		Select(`COUNT(*) as total_auctions,
			COUNT(*) FILTER (WHERE is_winner) as wins,
			COUNT(*) FILTER (WHERE prize_claim_status = ?) as claimed_prizes,
			COALESCE(SUM(entry_fee_paid), 0) as total_spent,
			COALESCE(SUM(total_amount_bid), 0) as total_bid_amount,
			COALESCE(SUM(prize_amount_won) FILTER (WHERE prize_claim_status = ?), 0) as total_won`,
			models.ClaimStatusClaimed, models.ClaimStatusClaimed).
		Where("user_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	winRate := 0.0
	if stats.TotalAuctions > 0 {
		winRate = float64(stats.Wins) / float64(stats.TotalAuctions) * 100
	}

	return c.JSON(fiber.Map{
		"stats":    stats,
		"win_rate": winRate,
		"net_gain": stats.TotalWon - stats.TotalSpent,
	})
}

// GetUserAuctionDetail returns the caller's full journey through one
// auction: the history entry plus their bid in every round.
func (s *HistoryService) GetUserAuctionDetail(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}
	auctionID := c.Params("id")

	var entry models.AuctionHistory
	err := s.DB.Where("user_id = ? AND auction_id = ?", userID, auctionID).First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": ErrHistoryNotFound.Error()})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	var rounds []models.AuctionRound
	if err := s.DB.Where("auction_id = ?", auctionID).
		Order("round_number ASC").Find(&rounds).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	var bids []models.RoundBid
	if err := s.DB.Where("auction_id = ? AND player_id = ?", auctionID, userID).
		Find(&bids).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	bidByRound := make(map[string]*models.RoundBid, len(bids))
	for i := range bids {
		bidByRound[bids[i].RoundID] = &bids[i]
	}

	journey := make([]fiber.Map, 0, len(rounds))
	for _, r := range rounds {
		step := fiber.Map{
			"round_number": r.RoundNumber,
			"status":       r.Status,
			"started_at":   r.StartedAt,
			"completed_at": r.CompletedAt,
			"total_bids":   r.TotalBids,
		}
		if b, ok := bidByRound[r.ID]; ok {
			step["your_bid"] = fiber.Map{
				"amount":       b.Amount,
				"placed_at":    b.PlacedAt,
				"rank":         b.Rank,
				"is_qualified": b.IsQualified,
			}
		}
		journey = append(journey, step)
	}

	return c.JSON(fiber.Map{"entry": entry, "rounds": journey})
}
