package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClaimWindow(t *testing.T) {
	completed := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)

	start1, end1 := ClaimWindow(completed, 1)
	require.Equal(t, completed, start1)
	require.Equal(t, completed.Add(30*time.Minute), end1)

	start2, end2 := ClaimWindow(completed, 2)
	require.Equal(t, completed.Add(30*time.Minute), start2)
	require.Equal(t, completed.Add(60*time.Minute), end2)

	start3, end3 := ClaimWindow(completed, 3)
	require.Equal(t, completed.Add(60*time.Minute), start3)
	require.Equal(t, completed.Add(90*time.Minute), end3)

	// Windows tile with no gap and no overlap
	require.Equal(t, end1, start2)
	require.Equal(t, end2, start3)
}

func TestCurrentRankDeadline(t *testing.T) {
	completed := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)

	for rank := 1; rank <= 3; rank++ {
		_, end := ClaimWindow(completed, rank)
		require.Equal(t, end, CurrentRankDeadline(completed, rank),
			"rank %d deadline must equal its seeded window end", rank)
	}
}

func TestRemainingClaimFee(t *testing.T) {
	tests := []struct {
		name  string
		prize float64
		rank  int
		want  float64
	}{
		{"rank1_ten_percent", 50000, 1, 5000},
		{"rank2_five_percent", 50000, 2, 2500},
		{"rank3_three_percent", 50000, 3, 1500},
		{"fee_99_9_rounds_to_100", 999, 1, 100},
		{"fee_100_4_rounds_to_100", 1004, 1, 100},
		{"no_fee_beyond_podium", 50000, 4, 0},
		{"no_fee_rank_zero", 50000, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, RemainingClaimFee(tt.prize, tt.rank))
		})
	}
}

func TestNextEligibleRank(t *testing.T) {
	tests := []struct {
		name          string
		pendingRanks  []int
		current       int
		wantNext      int
		wantExpireAll bool
	}{
		{"cascade_one_to_two", []int{2, 3}, 1, 2, false},
		{"cascade_two_to_three", []int{3}, 2, 3, false},
		{"exhausted_past_three", []int{}, 3, 0, true},
		{"next_rank_not_pending", []int{3}, 1, 0, true},
		{"no_pending_at_all", nil, 1, 0, true},
		{"full_queue_advance", []int{1, 2, 3}, 1, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, expireAll := NextEligibleRank(tt.pendingRanks, tt.current)
			require.Equal(t, tt.wantNext, next)
			require.Equal(t, tt.wantExpireAll, expireAll)
		})
	}
}

// Walks the cascade timeline for three winners where nobody ever claims:
// the queue must hand the window to rank 2 at T+30m, rank 3 at T+60m, and
// expire everyone at T+90m, purely from absolute-time comparisons.
func TestClaimCascadeTimeline_NoOneClaims(t *testing.T) {
	completed := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	pending := []int{1, 2, 3}
	current := 1

	advanceDue := func(now time.Time) bool {
		return !now.Before(CurrentRankDeadline(completed, current))
	}

	// T+29m: rank 1's window still open
	require.False(t, advanceDue(completed.Add(29*time.Minute)))

	// T+31m: overdue, cascade to rank 2
	require.True(t, advanceDue(completed.Add(31*time.Minute)))
	next, expireAll := NextEligibleRank(pending, current)
	require.False(t, expireAll)
	require.Equal(t, 2, next)
	current = next
	pending = []int{2, 3} // rank 1 expired

	// T+59m: rank 2's window still open even though the sweep fired late
	require.False(t, advanceDue(completed.Add(59*time.Minute)))

	// T+61m: cascade to rank 3
	require.True(t, advanceDue(completed.Add(61*time.Minute)))
	next, expireAll = NextEligibleRank(pending, current)
	require.False(t, expireAll)
	require.Equal(t, 3, next)
	current = next
	pending = []int{3}

	// T+91m: cascade exhausted, everything expires
	require.True(t, advanceDue(completed.Add(91*time.Minute)))
	_, expireAll = NextEligibleRank(pending, current)
	require.True(t, expireAll)
}

// A sweep that was down for an hour must land on the same final state: at
// T+65m with rank 1 still marked eligible, two advance steps are due back
// to back.
func TestClaimCascadeTimeline_LateSweepSelfHeals(t *testing.T) {
	completed := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	now := completed.Add(65 * time.Minute)

	current := 1
	pending := []int{1, 2, 3}
	steps := 0
	for !now.Before(CurrentRankDeadline(completed, current)) {
		next, expireAll := NextEligibleRank(pending, current)
		require.False(t, expireAll)
		// The skipped rank expires as the window moves past it.
		remaining := pending[:0:0]
		for _, r := range pending {
			if r >= next {
				remaining = append(remaining, r)
			}
		}
		pending = remaining
		current = next
		steps++
	}

	require.Equal(t, 2, steps)
	require.Equal(t, 3, current)
	require.Equal(t, []int{3}, pending)
}
