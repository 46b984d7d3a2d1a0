package models

import "time"

// Prize claim statuses. PENDING -> CLAIMED and PENDING -> EXPIRED are the
// only transitions; NOT_APPLICABLE is terminal from creation (non-winners).
const (
	ClaimStatusPending       = "PENDING"
	ClaimStatusClaimed       = "CLAIMED"
	ClaimStatusExpired       = "EXPIRED"
	ClaimStatusNotApplicable = "NOT_APPLICABLE"
)

// History entry statuses across the participation lifecycle.
const (
	HistoryStatusJoined     = "JOINED"
	HistoryStatusInProgress = "IN_PROGRESS"
	HistoryStatusCompleted  = "COMPLETED"
)

// ClaimWindowDuration is the fixed per-rank claim window.
const ClaimWindowDuration = 30 * time.Minute

// MaxWinnerRank caps the priority claim cascade.
const MaxWinnerRank = 3

// AuctionHistory is the one-per-(user, auction) participation record. For
// winners it also carries the full priority-claim state; currentEligibleRank
// is shared across all of an auction's PENDING winner entries.
type AuctionHistory struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	UserID         string    `json:"user_id" gorm:"not null;index;uniqueIndex:idx_user_auction"`
	Username       string    `json:"username"`
	AuctionID      string    `json:"hourly_auction_id" gorm:"not null;index;uniqueIndex:idx_user_auction"`
	DailyAuctionID string    `json:"daily_auction_id"`
	AuctionDate    time.Time `json:"auction_date" gorm:"index"`
	AuctionName    string    `json:"auction_name"`
	TimeSlot       string    `json:"time_slot"`
	PrizeValue     float64   `json:"prize_value"`

	EntryFeePaid       float64 `json:"entry_fee_paid"`
	TotalAmountBid     float64 `json:"total_amount_bid" gorm:"default:0"`
	TotalAmountSpent   float64 `json:"total_amount_spent" gorm:"default:0"`
	RoundsParticipated int     `json:"rounds_participated" gorm:"default:0"`
	TotalBidsPlaced    int     `json:"total_bids_placed" gorm:"default:0"`
	TotalParticipants  int     `json:"total_participants" gorm:"default:0"`

	IsWinner          bool    `json:"is_winner" gorm:"default:false;index"`
	FinalRank         *int    `json:"final_rank,omitempty"`
	PrizeAmountWon    float64 `json:"prize_amount_won" gorm:"default:0"`
	IsEliminated      bool    `json:"is_eliminated" gorm:"default:false"`
	EliminatedInRound *int    `json:"eliminated_in_round,omitempty"`

	AuctionStatus string     `json:"auction_status" gorm:"default:'JOINED'"`
	JoinedAt      time.Time  `json:"joined_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`

	// Prize claim state (winners only).
	ClaimUpiID              *string    `json:"claim_upi_id,omitempty"`
	LastRoundBidAmount      float64    `json:"last_round_bid_amount" gorm:"default:0"`
	RemainingProductFees    float64    `json:"remaining_product_fees" gorm:"default:0"`
	RemainingFeesPaid       bool       `json:"remaining_fees_paid" gorm:"default:false"`
	RemainingFeesPaymentRef *string    `json:"remaining_fees_payment_ref,omitempty"`
	PrizeClaimStatus        string     `json:"prize_claim_status" gorm:"default:'NOT_APPLICABLE';index"`
	ClaimDeadline           *time.Time `json:"claim_deadline,omitempty"`
	ClaimedAt               *time.Time `json:"claimed_at,omitempty"`
	ClaimNotes              *string    `json:"claim_notes,omitempty"`

	// Priority claim queue. The eligible rank starts at 1 and cascades; the
	// per-rank windows seeded at completion stay authoritative throughout.
	CurrentEligibleRank  *int       `json:"current_eligible_rank,omitempty"`
	ClaimWindowStartedAt *time.Time `json:"claim_window_started_at,omitempty"`
	RanksOffered         []int      `json:"ranks_offered" gorm:"serializer:json;type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// ClaimWindow returns rank r's fixed claim window anchored at the auction's
// completion time: [T+(r-1)*30m, T+r*30m).
func ClaimWindow(completedAt time.Time, rank int) (start, deadline time.Time) {
	start = completedAt.Add(time.Duration(rank-1) * ClaimWindowDuration)
	deadline = completedAt.Add(time.Duration(rank) * ClaimWindowDuration)
	return start, deadline
}

// CurrentRankDeadline is when the given eligible rank's window lapses.
func CurrentRankDeadline(completedAt time.Time, eligibleRank int) time.Time {
	return completedAt.Add(time.Duration(eligibleRank) * ClaimWindowDuration)
}

// RemainingClaimFee is the rank-based product fee a winner pays on claim.
func RemainingClaimFee(prizeAmount float64, rank int) float64 {
	switch rank {
	case 1:
		return float64(int(prizeAmount*0.10 + 0.5))
	case 2:
		return float64(int(prizeAmount*0.05 + 0.5))
	case 3:
		return float64(int(prizeAmount*0.03 + 0.5))
	}
	return 0
}

// NextEligibleRank decides the cascade step for a set of still-PENDING
// winner ranks. It returns the next rank to offer, or expireAll=true when
// the cascade is exhausted (next rank beyond 3 or no pending winner holds
// it).
func NextEligibleRank(pendingRanks []int, currentEligible int) (next int, expireAll bool) {
	next = currentEligible + 1
	if next > MaxWinnerRank {
		return 0, true
	}
	for _, r := range pendingRanks {
		if r == next {
			return next, false
		}
	}
	return 0, true
}
