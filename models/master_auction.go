package models

import "time"

// Entry fee schedules supported per slot.
const (
	EntryFeeModeRandom = "RANDOM"
	EntryFeeModeManual = "MANUAL"
)

// MasterAuction is the admin-managed template the midnight job replicates
// into a DailyAuction. Exactly one template is active at a time.
type MasterAuction struct {
	ID                  string    `json:"master_id" gorm:"primaryKey"`
	Code                string    `json:"master_code" gorm:"uniqueIndex"`
	Name                string    `json:"name" gorm:"not null"`
	CreatedBy           string    `json:"created_by"`
	IsActive            bool      `json:"is_active" gorm:"default:false;index"`
	TotalAuctionsPerDay int       `json:"total_auctions_per_day"`
	CreatedAt           time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Slots []MasterSlotConfig `json:"slots,omitempty" gorm:"foreignKey:MasterID"`
}

// MasterSlotConfig describes one hourly auction slot of the template.
type MasterSlotConfig struct {
	ID           string   `json:"id" gorm:"primaryKey"`
	MasterID     string   `json:"master_id" gorm:"not null;index;uniqueIndex:idx_master_slot"`
	SlotNumber   int      `json:"slot_number" gorm:"uniqueIndex:idx_master_slot"`
	TimeSlot     string   `json:"time_slot" gorm:"not null"` // civil "HH:MM"
	AuctionName  string   `json:"auction_name" gorm:"not null"`
	Slug         string   `json:"slug"`
	PrizeValue   float64  `json:"prize_value"`
	ImageURL     string   `json:"image_url,omitempty"`
	EntryFeeMode string   `json:"entry_fee_mode" gorm:"default:'MANUAL'"`
	EntryFee     *float64 `json:"entry_fee,omitempty"` // fixed fee for MANUAL mode
	MinEntryFee  *float64 `json:"min_entry_fee,omitempty"`
	MaxEntryFee  *float64 `json:"max_entry_fee,omitempty"`
	RoundCount   int      `json:"round_count" gorm:"default:4"`

	Rounds []MasterRoundConfig `json:"round_config,omitempty" gorm:"foreignKey:SlotConfigID"`
}

// MasterRoundConfig describes one round of a slot.
type MasterRoundConfig struct {
	ID           string   `json:"id" gorm:"primaryKey"`
	SlotConfigID string   `json:"slot_config_id" gorm:"not null;index;uniqueIndex:idx_slot_round"`
	RoundNumber  int      `json:"round_number" gorm:"uniqueIndex:idx_slot_round"`
	DurationMins int      `json:"duration_mins" gorm:"default:15"`
	TopBidCount  int      `json:"top_bid_count" gorm:"default:3"`
	MaxBid       *float64 `json:"max_bid,omitempty"`
}

// SequenceCounter backs the human-friendly DA/HA codes.
type SequenceCounter struct {
	Name string `gorm:"primaryKey"`
	Seq  int64  `gorm:"default:0"`
}
