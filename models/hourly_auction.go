package models

import (
	"sort"
	"time"
)

// Auction lifecycle statuses. Transitions are monotonic:
// UPCOMING -> LIVE -> COMPLETED, with CANCELLED as an admin-only terminal.
const (
	AuctionStatusUpcoming  = "UPCOMING"
	AuctionStatusLive      = "LIVE"
	AuctionStatusCompleted = "COMPLETED"
	AuctionStatusCancelled = "CANCELLED"
)

// Round statuses within a LIVE auction.
const (
	RoundStatusPending   = "PENDING"
	RoundStatusActive    = "ACTIVE"
	RoundStatusCompleted = "COMPLETED"
	RoundStatusCancelled = "CANCELLED"
)

// HourlyAuction is one scheduled auction slot for one day. Round windows are
// pre-computed at generation time and never re-derived from "now".
type HourlyAuction struct {
	ID             string    `json:"hourly_auction_id" gorm:"primaryKey"`
	Code           string    `json:"hourly_auction_code" gorm:"uniqueIndex"`
	DailyAuctionID string    `json:"daily_auction_id" gorm:"not null;index;uniqueIndex:idx_daily_slot"`
	MasterID       string    `json:"master_id" gorm:"not null;index"`
	AuctionDate    time.Time `json:"auction_date" gorm:"index"`
	SlotNumber     int       `json:"slot_number"`
	TimeSlot       string    `json:"time_slot" gorm:"uniqueIndex:idx_daily_slot"` // civil "HH:MM"
	AuctionName    string    `json:"auction_name"`
	Slug           string    `json:"slug"`
	PrizeValue     float64   `json:"prize_value"`
	ImageURL       string    `json:"image_url,omitempty"`
	Status         string    `json:"status" gorm:"default:'UPCOMING';index"`

	EntryFeeMode string   `json:"entry_fee_mode"` // RANDOM or MANUAL
	MinEntryFee  *float64 `json:"min_entry_fee,omitempty"`
	MaxEntryFee  *float64 `json:"max_entry_fee,omitempty"`
	EntryFee     *float64 `json:"entry_fee,omitempty"` // resolved fee for this day's slot

	CurrentRound      int   `json:"current_round" gorm:"default:0"`
	RoundCount        int   `json:"round_count" gorm:"default:4"`
	TotalParticipants int   `json:"total_participants" gorm:"default:0"`
	TotalBids         int64 `json:"total_bids" gorm:"default:0"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	Rounds       []AuctionRound       `json:"rounds,omitempty" gorm:"foreignKey:AuctionID"`
	Participants []AuctionParticipant `json:"participants,omitempty" gorm:"foreignKey:AuctionID"`
	Winners      []AuctionWinner      `json:"winners,omitempty" gorm:"foreignKey:AuctionID"`
}

// AuctionRound is one timed bidding phase. StartedAt/CompletedAt are the
// scheduled window bounds, fixed at generation time.
type AuctionRound struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	AuctionID    string    `json:"auction_id" gorm:"not null;index;uniqueIndex:idx_auction_round"`
	RoundNumber  int       `json:"round_number" gorm:"uniqueIndex:idx_auction_round"`
	Status       string    `json:"status" gorm:"default:'PENDING'"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	DurationMins int       `json:"duration_mins" gorm:"default:15"`
	TopBidCount  int       `json:"top_bid_count" gorm:"default:3"`
	MaxBid       *float64  `json:"max_bid,omitempty"`
	TotalBids    int       `json:"total_bids" gorm:"default:0"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`

	Bids []RoundBid `json:"bids,omitempty" gorm:"foreignKey:RoundID"`
}

// RoundBid is one participant's single bid in one round. The unique index on
// (round_id, player_id) makes duplicate submissions fail at insert time, so
// two racing requests can never both record a bid.
type RoundBid struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	RoundID        string    `json:"round_id" gorm:"not null;uniqueIndex:idx_round_player"`
	AuctionID      string    `json:"auction_id" gorm:"not null;index"`
	PlayerID       string    `json:"player_id" gorm:"not null;uniqueIndex:idx_round_player;index"`
	PlayerUsername string    `json:"player_username"`
	Amount         float64   `json:"amount"`
	PlacedAt       time.Time `json:"placed_at"`
	Rank           *int      `json:"rank,omitempty"`
	IsQualified    bool      `json:"is_qualified" gorm:"default:false"`
}

// AuctionParticipant is created once per paid entry and mutated by the
// bidding engine; never deleted.
type AuctionParticipant struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	AuctionID         string    `json:"auction_id" gorm:"not null;index;uniqueIndex:idx_auction_player"`
	PlayerID          string    `json:"player_id" gorm:"not null;uniqueIndex:idx_auction_player;index"`
	PlayerUsername    string    `json:"player_username"`
	EntryFeePaid      float64   `json:"entry_fee_paid"`
	JoinedAt          time.Time `json:"joined_at"`
	CurrentRound      int       `json:"current_round" gorm:"default:1"`
	IsEliminated      bool      `json:"is_eliminated" gorm:"default:false"`
	EliminatedInRound *int      `json:"eliminated_in_round,omitempty"`
	TotalBidsPlaced   int       `json:"total_bids_placed" gorm:"default:0"`
	TotalAmountBid    float64   `json:"total_amount_bid" gorm:"default:0"`
}

// AuctionWinner is materialized exactly once per rank at auction completion.
type AuctionWinner struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	AuctionID      string     `json:"auction_id" gorm:"not null;index;uniqueIndex:idx_auction_rank"`
	Rank           int        `json:"rank" gorm:"uniqueIndex:idx_auction_rank"`
	PlayerID       string     `json:"player_id"`
	PlayerUsername string     `json:"player_username"`
	FinalBidAmount float64    `json:"final_bid_amount"`
	PrizeAmount    float64    `json:"prize_amount"`
	IsPrizeClaimed bool       `json:"is_prize_claimed" gorm:"default:false"`
	PrizeClaimedAt *time.Time `json:"prize_claimed_at,omitempty"`
}

// RankRoundBids returns the round's bids in final ranking order: amount
// descending, submission time ascending on ties (earlier bid wins). The
// input slice is not modified; re-running over the same bids always yields
// the same order.
func RankRoundBids(bids []RoundBid) []RoundBid {
	ranked := make([]RoundBid, len(bids))
	copy(ranked, bids)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Amount != ranked[j].Amount {
			return ranked[i].Amount > ranked[j].Amount
		}
		return ranked[i].PlacedAt.Before(ranked[j].PlacedAt)
	})
	return ranked
}

// QualifiedCut splits ranked bids into the top-K qualifiers and the rest.
func QualifiedCut(ranked []RoundBid, topK int) (qualified, rest []RoundBid) {
	if topK < 0 {
		topK = 0
	}
	if topK > len(ranked) {
		topK = len(ranked)
	}
	return ranked[:topK], ranked[topK:]
}

// RoundByNumber returns the auction's round with the given number, or nil.
func (a *HourlyAuction) RoundByNumber(n int) *AuctionRound {
	for i := range a.Rounds {
		if a.Rounds[i].RoundNumber == n {
			return &a.Rounds[i]
		}
	}
	return nil
}

// ParticipantByPlayer returns the participant record for a player, or nil.
func (a *HourlyAuction) ParticipantByPlayer(playerID string) *AuctionParticipant {
	for i := range a.Participants {
		if a.Participants[i].PlayerID == playerID {
			return &a.Participants[i]
		}
	}
	return nil
}

// IsTerminal reports whether the auction can no longer transition.
func (a *HourlyAuction) IsTerminal() bool {
	return a.Status == AuctionStatusCompleted || a.Status == AuctionStatusCancelled
}
