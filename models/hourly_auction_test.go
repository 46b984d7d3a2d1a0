package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRankRoundBids(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	bids := []RoundBid{
		{ID: "b1", PlayerID: "p1", Amount: 120, PlacedAt: base.Add(3 * time.Minute)},
		{ID: "b2", PlayerID: "p2", Amount: 300, PlacedAt: base.Add(5 * time.Minute)},
		{ID: "b3", PlayerID: "p3", Amount: 120, PlacedAt: base.Add(1 * time.Minute)},
		{ID: "b4", PlayerID: "p4", Amount: 250, PlacedAt: base.Add(2 * time.Minute)},
	}

	ranked := RankRoundBids(bids)

	require.Len(t, ranked, 4)
	require.Equal(t, "p2", ranked[0].PlayerID)
	require.Equal(t, "p4", ranked[1].PlayerID)
	// 120 tie: p3 bid earlier than p1
	require.Equal(t, "p3", ranked[2].PlayerID)
	require.Equal(t, "p1", ranked[3].PlayerID)

	// Input order is preserved
	require.Equal(t, "b1", bids[0].ID)

	// Re-ranking yields the identical order
	again := RankRoundBids(bids)
	for i := range ranked {
		require.Equal(t, ranked[i].ID, again[i].ID)
	}
}

func TestRankRoundBids_Empty(t *testing.T) {
	require.Empty(t, RankRoundBids(nil))
}

func TestQualifiedCut(t *testing.T) {
	ranked := []RoundBid{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}

	tests := []struct {
		name          string
		topK          int
		wantQualified int
		wantRest      int
	}{
		{"top_three_of_four", 3, 3, 1},
		{"fewer_bids_than_k", 10, 4, 0},
		{"zero_k", 0, 0, 4},
		{"negative_k", -1, 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qualified, rest := QualifiedCut(ranked, tt.topK)
			require.Len(t, qualified, tt.wantQualified)
			require.Len(t, rest, tt.wantRest)
		})
	}
}

func TestHourlyAuctionHelpers(t *testing.T) {
	a := HourlyAuction{
		Status: AuctionStatusLive,
		Rounds: []AuctionRound{
			{RoundNumber: 1, Status: RoundStatusCompleted},
			{RoundNumber: 2, Status: RoundStatusActive},
		},
		Participants: []AuctionParticipant{
			{PlayerID: "p1"},
			{PlayerID: "p2", IsEliminated: true},
		},
	}

	require.NotNil(t, a.RoundByNumber(2))
	require.Equal(t, RoundStatusActive, a.RoundByNumber(2).Status)
	require.Nil(t, a.RoundByNumber(3))

	require.NotNil(t, a.ParticipantByPlayer("p2"))
	require.True(t, a.ParticipantByPlayer("p2").IsEliminated)
	require.Nil(t, a.ParticipantByPlayer("p9"))

	require.False(t, a.IsTerminal())
	a.Status = AuctionStatusCompleted
	require.True(t, a.IsTerminal())
	a.Status = AuctionStatusCancelled
	require.True(t, a.IsTerminal())
}
