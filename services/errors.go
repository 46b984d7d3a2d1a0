package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Lookup errors
var (
	ErrAuctionNotFound     = errors.New("auction not found")
	ErrRoundNotFound       = errors.New("round not found")
	ErrMasterNotFound      = errors.New("master auction not found")
	ErrHistoryNotFound     = errors.New("auction history not found")
	ErrNoActiveMaster      = errors.New("no active master auction")
	ErrNoLiveAuction       = errors.New("no live auction right now")
	ErrParticipantNotFound = errors.New("player has not joined this auction")
)

// Business logic errors
var (
	ErrInvalidBidAmount   = errors.New("bid amount must be positive")
	ErrNotQualified       = errors.New("player did not qualify in the previous round")
	ErrAuctionNotLive     = errors.New("auction is not live")
	ErrRoundNotActive     = errors.New("round is not active for bidding")
	ErrRoundMismatch      = errors.New("bid targets a round that is not the auction's current round")
	ErrPlayerEliminated   = errors.New("player was eliminated in an earlier round")
	ErrAlreadyBid         = errors.New("player already placed a bid in this round")
	ErrBidAboveMax        = errors.New("bid exceeds the round's maximum allowed amount")
	ErrAlreadyJoined      = errors.New("player already joined this auction")
	ErrJoinClosed         = errors.New("auction no longer accepts new participants")
	ErrPaymentRequired    = errors.New("no paid entry fee order found for this auction")
	ErrNotAWinner         = errors.New("user did not win this auction")
	ErrClaimNotPending    = errors.New("prize is not pending claim")
	ErrClaimWindowExpired = errors.New("claim window has expired")
	ErrNotYourTurn        = errors.New("a higher-ranked winner's claim window is still open")
	ErrUpiRequired        = errors.New("upi_id is required to claim a prize")
	ErrFeesNotPaid        = errors.New("remaining product fees have not been paid")
)

// ClaimTurnError carries the queue state a lower-ranked winner sees when
// claiming out of turn, so clients can show whose window is open and until
// when.
type ClaimTurnError struct {
	CurrentEligibleRank int    `json:"current_eligible_rank"`
	YourRank            int    `json:"your_rank"`
	ClaimDeadline       string `json:"claim_deadline"`
}

func (e *ClaimTurnError) Error() string { return ErrNotYourTurn.Error() }

func (e *ClaimTurnError) Unwrap() error { return ErrNotYourTurn }

// StatusForError maps service errors to HTTP status codes for handlers.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, ErrAuctionNotFound),
		errors.Is(err, ErrRoundNotFound),
		errors.Is(err, ErrMasterNotFound),
		errors.Is(err, ErrHistoryNotFound),
		errors.Is(err, ErrNoActiveMaster),
		errors.Is(err, ErrNoLiveAuction),
		errors.Is(err, ErrParticipantNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrAlreadyBid), errors.Is(err, ErrAlreadyJoined):
		return fiber.StatusConflict
	case errors.Is(err, ErrPaymentRequired), errors.Is(err, ErrFeesNotPaid):
		return fiber.StatusPaymentRequired
	case errors.Is(err, ErrInvalidBidAmount),
		errors.Is(err, ErrNotQualified),
		errors.Is(err, ErrAuctionNotLive),
		errors.Is(err, ErrRoundNotActive),
		errors.Is(err, ErrRoundMismatch),
		errors.Is(err, ErrPlayerEliminated),
		errors.Is(err, ErrBidAboveMax),
		errors.Is(err, ErrJoinClosed),
		errors.Is(err, ErrNotAWinner),
		errors.Is(err, ErrClaimNotPending),
		errors.Is(err, ErrClaimWindowExpired),
		errors.Is(err, ErrNotYourTurn),
		errors.Is(err, ErrUpiRequired):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
