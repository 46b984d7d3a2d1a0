package models

import "time"

// Daily auction (whole day) statuses.
const (
	DailyStatusActive    = "ACTIVE"
	DailyStatusCompleted = "COMPLETED"
	DailyStatusCancelled = "CANCELLED"
)

// DailyAuction is the per-day replica of the active master template,
// created once per civil day by the midnight job. The (master_id,
// auction_date) pair is unique: re-running the job for the same date
// replaces the day's set instead of duplicating it.
type DailyAuction struct {
	ID                  string    `json:"daily_auction_id" gorm:"primaryKey"`
	Code                string    `json:"daily_auction_code" gorm:"uniqueIndex"`
	MasterID            string    `json:"master_id" gorm:"not null;index;uniqueIndex:idx_master_date"`
	AuctionDate         time.Time `json:"auction_date" gorm:"uniqueIndex:idx_master_date;index"`
	CreatedBy           string    `json:"created_by"`
	IsActive            bool      `json:"is_active" gorm:"default:true;index"`
	Status              string    `json:"status" gorm:"default:'ACTIVE'"`
	TotalAuctionsPerDay int       `json:"total_auctions_per_day"`

	CompletedAuctionsCount int     `json:"completed_auctions_count" gorm:"default:0"`
	IsAllAuctionsCompleted bool    `json:"is_all_auctions_completed" gorm:"default:false"`
	TotalParticipantsToday int     `json:"total_participants_today" gorm:"default:0"`
	TotalRevenueToday      float64 `json:"total_revenue_today" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Slots []DailySlot `json:"slots,omitempty" gorm:"foreignKey:DailyAuctionID"`
}

// DailySlot is the per-slot projection inside a day's schedule. The winner
// sync copies the hourly auction's status and, on completion, its winners
// here so schedule readers see a consistent snapshot without loading every
// hourly auction.
type DailySlot struct {
	ID                 string     `json:"id" gorm:"primaryKey"`
	DailyAuctionID     string     `json:"daily_auction_id" gorm:"not null;index;uniqueIndex:idx_daily_slotnum"`
	SlotNumber         int        `json:"slot_number" gorm:"uniqueIndex:idx_daily_slotnum"`
	TimeSlot           string     `json:"time_slot"`
	AuctionName        string     `json:"auction_name"`
	PrizeValue         float64    `json:"prize_value"`
	HourlyAuctionID    string     `json:"hourly_auction_id" gorm:"index"`
	Status             string     `json:"status" gorm:"default:'UPCOMING'"`
	IsAuctionCompleted bool       `json:"is_auction_completed" gorm:"default:false"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`

	TopWinners []SlotWinner `json:"top_winners,omitempty" gorm:"foreignKey:SlotID"`
}

// SlotWinner mirrors an AuctionWinner into the daily schedule projection.
type SlotWinner struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	SlotID         string     `json:"slot_id" gorm:"not null;index"`
	Rank           int        `json:"rank"`
	PlayerID       string     `json:"player_id"`
	PlayerUsername string     `json:"player_username"`
	FinalBidAmount float64    `json:"final_bid_amount"`
	PrizeAmount    float64    `json:"prize_amount"`
	IsPrizeClaimed bool       `json:"is_prize_claimed" gorm:"default:false"`
	PrizeClaimedAt *time.Time `json:"prize_claimed_at,omitempty"`
}
