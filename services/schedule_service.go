package services

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"hourly-auction-service/models"
	"hourly-auction-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ScheduleService owns auction generation and lifecycle activation. All
// transitions it applies are conditional updates keyed on the current
// status, so a sweep that fires twice (or late) converges to the same
// state.
type ScheduleService struct {
	DB      *gorm.DB
	Bidding *BiddingService
	Winner  *WinnerService
}

func NewScheduleService(db *gorm.DB, bidding *BiddingService, winner *WinnerService) *ScheduleService {
	return &ScheduleService{DB: db, Bidding: bidding, Winner: winner}
}

// RoundWindow is one round's pre-computed bidding window.
type RoundWindow struct {
	RoundNumber int
	StartedAt   time.Time
	CompletedAt time.Time
}

// SlotStartTime resolves a civil "HH:MM" slot on a given date to an instant
// in the auction timezone.
func SlotStartTime(auctionDate time.Time, timeSlot string) (time.Time, error) {
	parts := strings.SplitN(timeSlot, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid time slot %q (want HH:MM)", timeSlot)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid hour in time slot %q", timeSlot)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid minute in time slot %q", timeSlot)
	}
	day := utils.StartOfDay(auctionDate)
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute), nil
}

// CalculateRoundTimes chains round windows from the slot start: round 1
// opens at the slot time, each later round opens when the previous closes.
// Windows are fixed here, at generation time, and never re-derived.
func CalculateRoundTimes(slotStart time.Time, rounds []models.MasterRoundConfig) []RoundWindow {
	windows := make([]RoundWindow, 0, len(rounds))
	cursor := slotStart
	for _, rc := range rounds {
		dur := rc.DurationMins
		if dur <= 0 {
			dur = 15
		}
		end := cursor.Add(time.Duration(dur) * time.Minute)
		windows = append(windows, RoundWindow{
			RoundNumber: rc.RoundNumber,
			StartedAt:   cursor,
			CompletedAt: end,
		})
		cursor = end
	}
	return windows
}

// ResolveEntryFee picks the day's entry fee for a slot: the configured fee
// for MANUAL mode, a whole-rupee uniform draw from [min, max] for RANDOM.
func ResolveEntryFee(slot models.MasterSlotConfig) float64 {
	if slot.EntryFeeMode == models.EntryFeeModeRandom && slot.MinEntryFee != nil && slot.MaxEntryFee != nil {
		lo := int(*slot.MinEntryFee)
		hi := int(*slot.MaxEntryFee)
		if hi < lo {
			lo, hi = hi, lo
		}
		return float64(lo + rand.Intn(hi-lo+1))
	}
	if slot.EntryFee != nil {
		return *slot.EntryFee
	}
	if slot.MinEntryFee != nil {
		return *slot.MinEntryFee
	}
	return 0
}

// Transition kinds the activation sweep can apply, ordered so that one
// sweep pass applies the earliest applicable step first.
type TransitionKind int

const (
	TransitionNone TransitionKind = iota
	TransitionGoLive
	TransitionActivateRound
	TransitionCloseRound
	TransitionCompleteAuction
)

// Transition is the minimal next lifecycle step for one auction.
type Transition struct {
	Kind        TransitionKind
	RoundNumber int
}

// NextTransition decides the single next step for an auction given the
// clock, by comparing now against the pre-computed windows. Rounds must be
// preloaded. It never skips steps: a sweep that missed several ticks
// reaches the correct state by being called repeatedly.
func NextTransition(a *models.HourlyAuction, now time.Time) Transition {
	if a.IsTerminal() {
		return Transition{Kind: TransitionNone}
	}

	if a.Status == models.AuctionStatusUpcoming {
		first := a.RoundByNumber(1)
		if first != nil && !now.Before(first.StartedAt) {
			return Transition{Kind: TransitionGoLive}
		}
		return Transition{Kind: TransitionNone}
	}

	// LIVE: close an overdue active round before anything else.
	for i := range a.Rounds {
		r := &a.Rounds[i]
		if r.Status == models.RoundStatusActive && !now.Before(r.CompletedAt) {
			return Transition{Kind: TransitionCloseRound, RoundNumber: r.RoundNumber}
		}
	}
	for i := range a.Rounds {
		r := &a.Rounds[i]
		if r.Status == models.RoundStatusActive {
			return Transition{Kind: TransitionNone} // mid-round, nothing due
		}
	}
	// No active round: activate the next pending one that is due.
	for n := 1; n <= a.RoundCount; n++ {
		r := a.RoundByNumber(n)
		if r == nil {
			continue
		}
		if r.Status == models.RoundStatusPending && !now.Before(r.StartedAt) {
			return Transition{Kind: TransitionActivateRound, RoundNumber: n}
		}
		if r.Status == models.RoundStatusPending {
			return Transition{Kind: TransitionNone} // future round
		}
	}
	// Every round is terminal: finish the auction.
	return Transition{Kind: TransitionCompleteAuction}
}

// ActivationSweep advances every non-terminal auction as far as the clock
// allows. Errors are logged per auction and never abort the sweep.
func (s *ScheduleService) ActivationSweep() {
	now := utils.NowLocal()

	var auctions []models.HourlyAuction
	err := s.DB.Preload("Rounds").
		Where("status IN ?", []string{models.AuctionStatusUpcoming, models.AuctionStatusLive}).
		Find(&auctions).Error
	if err != nil {
		log.Printf("[SCHEDULER] sweep query failed: %v", err)
		return
	}

	for i := range auctions {
		if err := s.advanceAuction(&auctions[i], now); err != nil {
			log.Printf("[SCHEDULER] auction %s: %v", auctions[i].ID, err)
		}
	}
}

// advanceAuction applies transitions for one auction until none is due.
func (s *ScheduleService) advanceAuction(a *models.HourlyAuction, now time.Time) error {
	for step := 0; step < 2*a.RoundCount+2; step++ {
		t := NextTransition(a, now)
		switch t.Kind {
		case TransitionNone:
			return nil
		case TransitionGoLive:
			if err := s.goLive(a, now); err != nil {
				return err
			}
		case TransitionActivateRound:
			if err := s.activateRound(a, t.RoundNumber); err != nil {
				return err
			}
		case TransitionCloseRound:
			if err := s.Bidding.CloseRound(a, t.RoundNumber); err != nil {
				return err
			}
		case TransitionCompleteAuction:
			return s.Winner.FinalizeAuction(a.ID)
		}
		// Reload so the next decision sees the applied state.
		if err := s.DB.Preload("Rounds").First(a, "id = ?", a.ID).Error; err != nil {
			return err
		}
	}
	return fmt.Errorf("transition loop did not converge")
}

func (s *ScheduleService) goLive(a *models.HourlyAuction, now time.Time) error {
	res := s.DB.Model(&models.HourlyAuction{}).
		Where("id = ? AND status = ?", a.ID, models.AuctionStatusUpcoming).
		Updates(map[string]interface{}{"status": models.AuctionStatusLive, "started_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		log.Printf("[SCHEDULER] auction %s (%s) is LIVE", a.Code, a.TimeSlot)
		s.Winner.SyncSlotStatus(a.ID)
	}
	return nil
}

func (s *ScheduleService) activateRound(a *models.HourlyAuction, roundNumber int) error {
	res := s.DB.Model(&models.AuctionRound{}).
		Where("auction_id = ? AND round_number = ? AND status = ?",
			a.ID, roundNumber, models.RoundStatusPending).
		Update("status", models.RoundStatusActive)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil // another sweep got here first
	}
	log.Printf("[SCHEDULER] auction %s round %d ACTIVE", a.Code, roundNumber)
	return s.DB.Model(&models.HourlyAuction{}).
		Where("id = ?", a.ID).
		Update("current_round", roundNumber).Error
}

// MidnightResetAndCreate force-completes everything left over from earlier
// days, then generates today's auctions from the active master template.
// Safe to re-run: the daily row is replaced per (master, date) and hourly
// auctions are matched on (dailyAuctionID, timeSlot).
func (s *ScheduleService) MidnightResetAndCreate() (*models.DailyAuction, error) {
	now := utils.NowLocal()
	today := utils.StartOfDay(now)

	if err := s.forceCompletePrior(today, now); err != nil {
		return nil, err
	}

	var master models.MasterAuction
	err := s.DB.Preload("Slots", func(db *gorm.DB) *gorm.DB {
		return db.Order("slot_number ASC")
	}).Preload("Slots.Rounds", func(db *gorm.DB) *gorm.DB {
		return db.Order("round_number ASC")
	}).Where("is_active = ?", true).First(&master).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNoActiveMaster
		}
		return nil, err
	}

	var daily *models.DailyAuction
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		d, txErr := s.upsertDailyAuction(tx, &master, today)
		if txErr != nil {
			return txErr
		}
		daily = d
		for _, slot := range master.Slots {
			if txErr := s.upsertHourlyAuction(tx, daily, &master, slot, today); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[SCHEDULER] generated daily auction %s with %d slots for %s",
		daily.Code, len(master.Slots), today.Format("2006-01-02"))
	return daily, nil
}

// forceCompletePrior closes out every non-terminal auction from before the
// given day so stale LIVE/UPCOMING rows never leak into a new day.
func (s *ScheduleService) forceCompletePrior(today, now time.Time) error {
	res := s.DB.Model(&models.AuctionRound{}).
		Where("status IN ? AND auction_id IN (?)",
			[]string{models.RoundStatusPending, models.RoundStatusActive},
			s.DB.Model(&models.HourlyAuction{}).Select("id").Where("auction_date < ?", today)).
		Update("status", models.RoundStatusCancelled)
	if res.Error != nil {
		return res.Error
	}

	res = s.DB.Model(&models.HourlyAuction{}).
		Where("auction_date < ? AND status IN ?", today,
			[]string{models.AuctionStatusUpcoming, models.AuctionStatusLive}).
		Updates(map[string]interface{}{
			"status":       models.AuctionStatusCompleted,
			"completed_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		log.Printf("[SCHEDULER] force-completed %d stale hourly auction(s)", res.RowsAffected)
	}

	return s.DB.Model(&models.DailyAuction{}).
		Where("auction_date < ? AND status = ?", today, models.DailyStatusActive).
		Updates(map[string]interface{}{
			"status":    models.DailyStatusCompleted,
			"is_active": false,
		}).Error
}

func (s *ScheduleService) upsertDailyAuction(tx *gorm.DB, master *models.MasterAuction, today time.Time) (*models.DailyAuction, error) {
	var daily models.DailyAuction
	err := tx.Where("master_id = ? AND auction_date = ?", master.ID, today).First(&daily).Error
	if err == nil {
		// Regeneration for the same day: keep the ID, rebuild the slot set.
		if err := tx.Where("daily_auction_id = ?", daily.ID).Delete(&models.DailySlot{}).Error; err != nil {
			return nil, err
		}
		updates := map[string]interface{}{
			"is_active":                 true,
			"status":                    models.DailyStatusActive,
			"total_auctions_per_day":    len(master.Slots),
			"completed_auctions_count":  0,
			"is_all_auctions_completed": false,
		}
		if err := tx.Model(&daily).Updates(updates).Error; err != nil {
			return nil, err
		}
	} else if err == gorm.ErrRecordNotFound {
		seq, seqErr := nextSequence(tx, "daily_auction")
		if seqErr != nil {
			return nil, seqErr
		}
		daily = models.DailyAuction{
			ID:                  uuid.NewString(),
			Code:                utils.SequenceCode("DA", seq),
			MasterID:            master.ID,
			AuctionDate:         today,
			CreatedBy:           master.CreatedBy,
			IsActive:            true,
			Status:              models.DailyStatusActive,
			TotalAuctionsPerDay: len(master.Slots),
		}
		if err := tx.Create(&daily).Error; err != nil {
			return nil, err
		}
	} else {
		return nil, err
	}

	return &daily, nil
}

func (s *ScheduleService) upsertHourlyAuction(tx *gorm.DB, daily *models.DailyAuction, master *models.MasterAuction, slot models.MasterSlotConfig, today time.Time) error {
	slotStart, err := SlotStartTime(today, slot.TimeSlot)
	if err != nil {
		return fmt.Errorf("slot %d: %w", slot.SlotNumber, err)
	}
	windows := CalculateRoundTimes(slotStart, slot.Rounds)

	var auction models.HourlyAuction
	err = tx.Where("daily_auction_id = ? AND time_slot = ?", daily.ID, slot.TimeSlot).
		First(&auction).Error
	switch err {
	case nil:
		// Already generated. Refresh config only; bids and rounds that may
		// already carry state are left alone.
		if updErr := tx.Model(&auction).Updates(map[string]interface{}{
			"auction_name": slot.AuctionName,
			"prize_value":  slot.PrizeValue,
			"image_url":    slot.ImageURL,
		}).Error; updErr != nil {
			return updErr
		}
	case gorm.ErrRecordNotFound:
		seq, seqErr := nextSequence(tx, "hourly_auction")
		if seqErr != nil {
			return seqErr
		}
		fee := ResolveEntryFee(slot)
		auction = models.HourlyAuction{
			ID:             uuid.NewString(),
			Code:           utils.SequenceCode("HA", seq),
			DailyAuctionID: daily.ID,
			MasterID:       master.ID,
			AuctionDate:    today,
			SlotNumber:     slot.SlotNumber,
			TimeSlot:       slot.TimeSlot,
			AuctionName:    slot.AuctionName,
			Slug:           slug.Make(slot.AuctionName),
			PrizeValue:     slot.PrizeValue,
			ImageURL:       slot.ImageURL,
			Status:         models.AuctionStatusUpcoming,
			EntryFeeMode:   slot.EntryFeeMode,
			MinEntryFee:    slot.MinEntryFee,
			MaxEntryFee:    slot.MaxEntryFee,
			EntryFee:       &fee,
			RoundCount:     len(slot.Rounds),
		}
		if createErr := tx.Create(&auction).Error; createErr != nil {
			return createErr
		}
		for i, rc := range slot.Rounds {
			round := models.AuctionRound{
				ID:           uuid.NewString(),
				AuctionID:    auction.ID,
				RoundNumber:  rc.RoundNumber,
				Status:       models.RoundStatusPending,
				StartedAt:    windows[i].StartedAt,
				CompletedAt:  windows[i].CompletedAt,
				DurationMins: rc.DurationMins,
				TopBidCount:  rc.TopBidCount,
				MaxBid:       rc.MaxBid,
			}
			if createErr := tx.Create(&round).Error; createErr != nil {
				return createErr
			}
		}
	default:
		return err
	}

	dailySlot := models.DailySlot{
		ID:              uuid.NewString(),
		DailyAuctionID:  daily.ID,
		SlotNumber:      slot.SlotNumber,
		TimeSlot:        slot.TimeSlot,
		AuctionName:     slot.AuctionName,
		PrizeValue:      slot.PrizeValue,
		HourlyAuctionID: auction.ID,
		Status:          auction.Status,
	}
	return tx.Create(&dailySlot).Error
}

// nextSequence atomically bumps and returns a named counter.
func nextSequence(tx *gorm.DB, name string) (int64, error) {
	var seq int64
	err := tx.Raw(`INSERT INTO sequence_counters (name, seq) VALUES (?, 1)
		ON CONFLICT (name) DO UPDATE SET seq = sequence_counters.seq + 1
		RETURNING seq`, name).Scan(&seq).Error
	return seq, err
}

// --- HTTP handlers ---

// GetLiveAuction returns the auction currently LIVE, if any.
func (s *ScheduleService) GetLiveAuction(c *fiber.Ctx) error {
	var auction models.HourlyAuction
	err := s.DB.Preload("Rounds", func(db *gorm.DB) *gorm.DB {
		return db.Order("round_number ASC")
	}).Where("status = ?", models.AuctionStatusLive).
		Order("auction_date DESC, slot_number ASC").
		First(&auction).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": ErrNoLiveAuction.Error()})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	now := utils.NowLocal()
	var countdown float64
	if current := auction.RoundByNumber(auction.CurrentRound); current != nil {
		countdown = timeLeftInRound(current, now).Seconds()
	}
	return c.JSON(fiber.Map{
		"auction":            auction,
		"server_time":        now,
		"round_seconds_left": countdown,
	})
}

// GetSchedule returns the day's schedule projection (today by default,
// ?date=YYYY-MM-DD for another day).
func (s *ScheduleService) GetSchedule(c *fiber.Ctx) error {
	day := utils.StartOfDay(utils.NowLocal())
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateStr, utils.AuctionLocation())
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid date (use YYYY-MM-DD)"})
		}
		day = parsed
	}

	var daily models.DailyAuction
	err := s.DB.Preload("Slots", func(db *gorm.DB) *gorm.DB {
		return db.Order("slot_number ASC")
	}).Preload("Slots.TopWinners", func(db *gorm.DB) *gorm.DB {
		return db.Order("rank ASC")
	}).Where("auction_date = ?", day).First(&daily).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": "no schedule for this date"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(fiber.Map{"schedule": daily})
}

// GetSchedulerStatus summarizes today's auction states for ops dashboards.
func (s *ScheduleService) GetSchedulerStatus(c *fiber.Ctx) error {
	today := utils.StartOfDay(utils.NowLocal())

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	if err := s.DB.Model(&models.HourlyAuction{}).
		Select("status, COUNT(*) as count").
		Where("auction_date = ?", today).
		Group("status").Scan(&counts).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	byStatus := fiber.Map{}
	for _, sc := range counts {
		byStatus[sc.Status] = sc.Count
	}

	var next models.HourlyAuction
	var nextSlot interface{}
	err := s.DB.Where("auction_date = ? AND status = ?", today, models.AuctionStatusUpcoming).
		Order("slot_number ASC").First(&next).Error
	if err == nil {
		nextSlot = fiber.Map{"time_slot": next.TimeSlot, "auction_name": next.AuctionName, "code": next.Code}
	}

	return c.JSON(fiber.Map{
		"date":        today.Format("2006-01-02"),
		"timezone":    utils.AuctionLocation().String(),
		"server_time": utils.NowLocal(),
		"by_status":   byStatus,
		"next_slot":   nextSlot,
	})
}

// TriggerMidnightReset regenerates today's auctions on demand (admin).
func (s *ScheduleService) TriggerMidnightReset(c *fiber.Ctx) error {
	daily, err := s.MidnightResetAndCreate()
	if err != nil {
		return c.Status(StatusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "daily auctions generated", "daily_auction": daily})
}

// TriggerSweep runs one activation pass on demand (admin).
func (s *ScheduleService) TriggerSweep(c *fiber.Ctx) error {
	s.ActivationSweep()
	return c.JSON(fiber.Map{"message": "activation sweep completed"})
}
