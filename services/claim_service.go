package services

import (
	"fmt"
	"time"

	"hourly-auction-service/models"
	"hourly-auction-service/utils"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ClaimService runs the priority claim queue: rank 1 gets the first 30
// minute window, then the open slot cascades down to rank 2 and rank 3.
// All of an auction's pending winner entries share currentEligibleRank;
// each entry's own claim window was seeded at finalize time and is never
// restamped.
type ClaimService struct {
	DB *gorm.DB
}

func NewClaimService(db *gorm.DB) *ClaimService {
	return &ClaimService{DB: db}
}

// SubmitClaim processes one winner's claim attempt. Preconditions run in
// order; the first failure is returned and nothing else is touched, except
// that a claim arriving after the caller's own deadline expires that entry
// as a side effect before rejecting.
func (s *ClaimService) SubmitClaim(userID, auctionID, upiID, paymentRef string) (*models.AuctionHistory, error) {
	if upiID == "" {
		return nil, ErrUpiRequired
	}

	var entry models.AuctionHistory
	err := s.DB.Where("user_id = ? AND auction_id = ?", userID, auctionID).First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrHistoryNotFound
		}
		return nil, err
	}
	if !entry.IsWinner || entry.FinalRank == nil {
		return nil, ErrNotAWinner
	}
	if entry.PrizeClaimStatus != models.ClaimStatusPending {
		return nil, ErrClaimNotPending
	}
	if entry.CurrentEligibleRank == nil || entry.CompletedAt == nil || entry.ClaimDeadline == nil {
		return nil, fmt.Errorf("winner entry %s has no claim queue state", entry.ID)
	}

	now := utils.NowLocal()

	if *entry.FinalRank != *entry.CurrentEligibleRank {
		deadline := models.CurrentRankDeadline(*entry.CompletedAt, *entry.CurrentEligibleRank)
		return nil, &ClaimTurnError{
			CurrentEligibleRank: *entry.CurrentEligibleRank,
			YourRank:            *entry.FinalRank,
			ClaimDeadline:       deadline.Format(time.RFC3339),
		}
	}

	if now.After(*entry.ClaimDeadline) {
		// Missed window: expire this entry and let the queue move on.
		if err := s.expireEntry(entry.ID); err != nil {
			log.Printf("[PRIORITY_CLAIM] expire on late claim for %s failed: %v", entry.ID, err)
		}
		if err := s.AdvanceClaimQueue(auctionID); err != nil {
			log.Printf("[PRIORITY_CLAIM] advance after late claim for %s failed: %v", auctionID, err)
		}
		return nil, ErrClaimWindowExpired
	}

	feesPaid := true
	if entry.RemainingProductFees > 0 {
		if paymentRef == "" {
			return nil, ErrFeesNotPaid
		}
		var payment models.PaymentRecord
		err := s.DB.Where("order_id = ? AND user_id = ? AND purpose = ? AND status = ?",
			paymentRef, userID, models.PaymentPurposeClaimFee, models.PaymentStatusPaid).
			First(&payment).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, ErrFeesNotPaid
			}
			return nil, err
		}
		if payment.Amount+0.01 < entry.RemainingProductFees {
			return nil, ErrFeesNotPaid
		}
	}

	updates := map[string]interface{}{
		"prize_claim_status":  models.ClaimStatusClaimed,
		"claimed_at":          now,
		"claim_upi_id":        upiID,
		"remaining_fees_paid": feesPaid,
	}
	if paymentRef != "" {
		updates["remaining_fees_payment_ref"] = paymentRef
	}
	res := s.DB.Model(&models.AuctionHistory{}).
		Where("id = ? AND prize_claim_status = ?", entry.ID, models.ClaimStatusPending).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrClaimNotPending // raced with expiry
	}

	s.markPrizeClaimed(auctionID, userID, now)

	// One prize per auction: a successful claim closes everyone else out.
	err = s.DB.Model(&models.AuctionHistory{}).
		Where("auction_id = ? AND id <> ? AND prize_claim_status = ?",
			auctionID, entry.ID, models.ClaimStatusPending).
		Update("prize_claim_status", models.ClaimStatusExpired).Error
	if err != nil {
		log.Printf("[PRIORITY_CLAIM] expiring co-winners of %s failed: %v", auctionID, err)
	}

	// Audit trail only: records how far the queue conceptually moved.
	// Matches nothing in the usual case since all other entries just
	// expired; deadlines are never restamped either way.
	err = s.DB.Model(&models.AuctionHistory{}).
		Where("auction_id = ? AND prize_claim_status = ?", auctionID, models.ClaimStatusPending).
		Update("current_eligible_rank", *entry.FinalRank+1).Error
	if err != nil {
		log.Printf("[PRIORITY_CLAIM] audit advance for %s failed: %v", auctionID, err)
	}

	log.Printf("[PRIORITY_CLAIM] rank %d winner %s claimed prize %s on auction %s",
		*entry.FinalRank, entry.Username, utils.FormatRupees(entry.PrizeAmountWon), auctionID)

	if err := s.DB.First(&entry, "id = ?", entry.ID).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// markPrizeClaimed flips the winner row and the daily-slot mirror.
func (s *ClaimService) markPrizeClaimed(auctionID, playerID string, at time.Time) {
	err := s.DB.Model(&models.AuctionWinner{}).
		Where("auction_id = ? AND player_id = ?", auctionID, playerID).
		Updates(map[string]interface{}{"is_prize_claimed": true, "prize_claimed_at": at}).Error
	if err != nil {
		log.Printf("[PRIORITY_CLAIM] winner row update for %s failed: %v", auctionID, err)
	}
	err = s.DB.Model(&models.SlotWinner{}).
		Where("player_id = ? AND slot_id IN (?)", playerID,
			s.DB.Model(&models.DailySlot{}).Select("id").Where("hourly_auction_id = ?", auctionID)).
		Updates(map[string]interface{}{"is_prize_claimed": true, "prize_claimed_at": at}).Error
	if err != nil {
		log.Printf("[PRIORITY_CLAIM] slot winner mirror for %s failed: %v", auctionID, err)
	}
}

func (s *ClaimService) expireEntry(entryID string) error {
	return s.DB.Model(&models.AuctionHistory{}).
		Where("id = ? AND prize_claim_status = ?", entryID, models.ClaimStatusPending).
		Update("prize_claim_status", models.ClaimStatusExpired).Error
}

// AdvanceClaimQueue moves one auction's queue to the next pending rank, or
// expires the queue when the cascade is exhausted. Claim windows are read,
// never rewritten.
func (s *ClaimService) AdvanceClaimQueue(auctionID string) error {
	var pending []models.AuctionHistory
	err := s.DB.Where("auction_id = ? AND is_winner = ? AND prize_claim_status = ?",
		auctionID, true, models.ClaimStatusPending).Find(&pending).Error
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	current := 0
	ranks := make([]int, 0, len(pending))
	for _, e := range pending {
		if e.FinalRank != nil {
			ranks = append(ranks, *e.FinalRank)
		}
		if e.CurrentEligibleRank != nil && *e.CurrentEligibleRank > current {
			current = *e.CurrentEligibleRank
		}
	}

	next, expireAll := models.NextEligibleRank(ranks, current)
	if expireAll {
		err := s.DB.Model(&models.AuctionHistory{}).
			Where("auction_id = ? AND prize_claim_status = ?", auctionID, models.ClaimStatusPending).
			Update("prize_claim_status", models.ClaimStatusExpired).Error
		if err != nil {
			return err
		}
		log.Printf("[PRIORITY_CLAIM] auction %s: queue exhausted after rank %d, prize unclaimed",
			auctionID, current)
		return nil
	}

	err = s.DB.Model(&models.AuctionHistory{}).
		Where("auction_id = ? AND prize_claim_status = ?", auctionID, models.ClaimStatusPending).
		Updates(map[string]interface{}{
			"current_eligible_rank": next,
			"ranks_offered":         gorm.Expr("COALESCE(ranks_offered, '[]'::jsonb) || ?::jsonb", fmt.Sprintf("[%d]", next)),
		}).Error
	if err != nil {
		return err
	}
	log.Printf("[PRIORITY_CLAIM] auction %s: claim window cascaded from rank %d to rank %d",
		auctionID, current, next)
	return nil
}

// ProcessClaimQueues is the minute sweep. For every auction with a pending
// winner it compares now against the shared rank's absolute deadline and
// advances as many times as the elapsed time requires, so a late sweep
// lands on the same state an on-time one would have.
func (s *ClaimService) ProcessClaimQueues() {
	now := utils.NowLocal()

	var pending []models.AuctionHistory
	err := s.DB.Where("is_winner = ? AND prize_claim_status = ?", true, models.ClaimStatusPending).
		Find(&pending).Error
	if err != nil {
		log.Printf("[PRIORITY_CLAIM] sweep query failed: %v", err)
		return
	}

	seen := map[string]bool{}
	for _, e := range pending {
		if seen[e.AuctionID] {
			continue
		}
		seen[e.AuctionID] = true
		if err := s.settleQueue(e.AuctionID, now); err != nil {
			log.Printf("[PRIORITY_CLAIM] auction %s: %v", e.AuctionID, err)
		}
	}
}

func (s *ClaimService) settleQueue(auctionID string, now time.Time) error {
	for i := 0; i <= models.MaxWinnerRank; i++ {
		var entry models.AuctionHistory
		err := s.DB.Where("auction_id = ? AND is_winner = ? AND prize_claim_status = ?",
			auctionID, true, models.ClaimStatusPending).First(&entry).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil // queue settled
			}
			return err
		}
		if entry.CurrentEligibleRank == nil || entry.CompletedAt == nil {
			return fmt.Errorf("pending winner entry %s has no queue state", entry.ID)
		}
		deadline := models.CurrentRankDeadline(*entry.CompletedAt, *entry.CurrentEligibleRank)
		if now.Before(deadline) {
			return nil // current rank's window still open
		}
		if err := s.AdvanceClaimQueue(auctionID); err != nil {
			return err
		}
	}
	return nil
}

// ExpireUnclaimedPrizes is the safety net behind the queue sweep: a
// pending entry past its own seeded deadline goes EXPIRED directly, but
// only once the shared rank's deadline has also lapsed. While the cascade
// is still advancing on schedule a skipped rank stays PENDING (it expires
// with the rest when the queue ends), so a working sweep makes this a
// no-op.
func (s *ClaimService) ExpireUnclaimedPrizes() {
	now := utils.NowLocal()
	res := s.DB.Model(&models.AuctionHistory{}).
		Where("prize_claim_status = ? AND claim_deadline < ?", models.ClaimStatusPending, now).
		Where("completed_at + (current_eligible_rank * interval '30 minutes') < ?", now).
		Update("prize_claim_status", models.ClaimStatusExpired)
	if res.Error != nil {
		log.Printf("[PRIORITY_CLAIM] expiry sweep failed: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("[PRIORITY_CLAIM] expired %d overdue claim(s)", res.RowsAffected)
	}
}

// --- HTTP handlers ---

type submitClaimRequest struct {
	AuctionID  string `json:"hourly_auction_id"`
	UpiID      string `json:"upi_id"`
	PaymentRef string `json:"payment_ref"`
}

// SubmitClaimHandler accepts a winner's prize claim.
func (s *ClaimService) SubmitClaimHandler(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	var req submitClaimRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.AuctionID == "" || req.UpiID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "hourly_auction_id and upi_id are required"})
	}

	entry, err := s.SubmitClaim(userID, req.AuctionID, req.UpiID, req.PaymentRef)
	if err != nil {
		if turnErr, ok := err.(*ClaimTurnError); ok {
			return c.Status(409).JSON(fiber.Map{
				"error": ErrNotYourTurn.Error(),
				"queue": turnErr,
			})
		}
		return c.Status(StatusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"message": "prize claimed",
		"claim":   entry,
	})
}

// GetClaimStatus reports a winner's live claim-queue position. Reading has
// the same expiry side effect as the sweep, so a client polling right after
// a deadline sees the advanced queue, not a stale window.
func (s *ClaimService) GetClaimStatus(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}
	auctionID := c.Params("id")
	now := utils.NowLocal()

	if err := s.settleQueue(auctionID, now); err != nil {
		log.Printf("[PRIORITY_CLAIM] settle on read for %s: %v", auctionID, err)
	}

	var entry models.AuctionHistory
	err := s.DB.Where("user_id = ? AND auction_id = ?", userID, auctionID).First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": ErrHistoryNotFound.Error()})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	resp := fiber.Map{
		"prize_claim_status": entry.PrizeClaimStatus,
		"is_winner":          entry.IsWinner,
		"final_rank":         entry.FinalRank,
		"prize_amount_won":   entry.PrizeAmountWon,
	}
	if entry.PrizeClaimStatus == models.ClaimStatusPending && entry.CurrentEligibleRank != nil {
		resp["current_eligible_rank"] = *entry.CurrentEligibleRank
		resp["ranks_offered"] = entry.RanksOffered
		resp["claim_deadline"] = entry.ClaimDeadline
		resp["claim_window_started_at"] = entry.ClaimWindowStartedAt
		resp["is_your_turn"] = entry.FinalRank != nil && *entry.FinalRank == *entry.CurrentEligibleRank
		resp["remaining_product_fees"] = entry.RemainingProductFees
	}
	return c.JSON(resp)
}

// GetPendingClaims lists the caller's claimable prizes across auctions.
func (s *ClaimService) GetPendingClaims(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	var entries []models.AuctionHistory
	err := s.DB.Where("user_id = ? AND is_winner = ? AND prize_claim_status = ?",
		userID, true, models.ClaimStatusPending).
		Order("completed_at DESC").Find(&entries).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	claims := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		yourTurn := e.FinalRank != nil && e.CurrentEligibleRank != nil &&
			*e.FinalRank == *e.CurrentEligibleRank
		claims = append(claims, fiber.Map{
			"hourly_auction_id":      e.AuctionID,
			"auction_name":           e.AuctionName,
			"auction_date":           e.AuctionDate,
			"final_rank":             e.FinalRank,
			"prize_amount_won":       e.PrizeAmountWon,
			"remaining_product_fees": e.RemainingProductFees,
			"claim_deadline":         e.ClaimDeadline,
			"current_eligible_rank":  e.CurrentEligibleRank,
			"is_your_turn":           yourTurn,
		})
	}
	return c.JSON(fiber.Map{"pending_claims": claims, "count": len(claims)})
}

// TriggerClaimSweep runs the claim queue sweep on demand.
func (s *ClaimService) TriggerClaimSweep(c *fiber.Ctx) error {
	s.ProcessClaimQueues()
	s.ExpireUnclaimedPrizes()
	return c.JSON(fiber.Map{"message": "claim queue sweep completed"})
}
