package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrAuctionNotFound, fiber.StatusNotFound},
		{ErrHistoryNotFound, fiber.StatusNotFound},
		{ErrAlreadyBid, fiber.StatusConflict},
		{ErrAlreadyJoined, fiber.StatusConflict},
		{ErrPaymentRequired, fiber.StatusPaymentRequired},
		{ErrFeesNotPaid, fiber.StatusPaymentRequired},
		{ErrInvalidBidAmount, fiber.StatusBadRequest},
		{ErrClaimWindowExpired, fiber.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", ErrRoundNotActive), fiber.StatusBadRequest},
		{errors.New("opaque failure"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, StatusForError(tt.err), "error %v", tt.err)
	}
}

func TestClaimTurnError(t *testing.T) {
	err := &ClaimTurnError{CurrentEligibleRank: 1, YourRank: 3, ClaimDeadline: "2025-06-01T13:30:00Z"}

	require.True(t, errors.Is(err, ErrNotYourTurn))
	require.Equal(t, ErrNotYourTurn.Error(), err.Error())
	require.Equal(t, fiber.StatusBadRequest, StatusForError(err))
}
