package services

import (
	"testing"
	"time"

	"hourly-auction-service/models"

	"github.com/stretchr/testify/require"
)

func TestSlotStartTime(t *testing.T) {
	date := time.Date(2025, 6, 1, 9, 45, 0, 0, time.UTC)

	got, err := SlotStartTime(date, "13:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC), got.UTC())

	got, err = SlotStartTime(date, "00:30")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 6, 1, 0, 30, 0, 0, time.UTC), got.UTC())

	for _, bad := range []string{"", "13", "25:00", "13:60", "1pm", "13:0x"} {
		_, err := SlotStartTime(date, bad)
		require.Error(t, err, "time slot %q must be rejected", bad)
	}
}

func TestCalculateRoundTimes(t *testing.T) {
	slotStart := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	rounds := []models.MasterRoundConfig{
		{RoundNumber: 1, DurationMins: 15},
		{RoundNumber: 2, DurationMins: 15},
		{RoundNumber: 3, DurationMins: 15},
		{RoundNumber: 4, DurationMins: 15},
	}

	windows := CalculateRoundTimes(slotStart, rounds)
	require.Len(t, windows, 4)

	require.Equal(t, slotStart, windows[0].StartedAt)
	for i, w := range windows {
		require.Equal(t, i+1, w.RoundNumber)
		require.Equal(t, 15*time.Minute, w.CompletedAt.Sub(w.StartedAt))
		if i > 0 {
			// Each round opens exactly when the previous one closes.
			require.Equal(t, windows[i-1].CompletedAt, w.StartedAt)
		}
	}
	require.Equal(t, slotStart.Add(time.Hour), windows[3].CompletedAt)
}

func TestCalculateRoundTimes_DefaultsAndMixedDurations(t *testing.T) {
	slotStart := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	rounds := []models.MasterRoundConfig{
		{RoundNumber: 1, DurationMins: 10},
		{RoundNumber: 2}, // zero duration falls back to 15
		{RoundNumber: 3, DurationMins: 20},
	}

	windows := CalculateRoundTimes(slotStart, rounds)
	require.Equal(t, slotStart.Add(10*time.Minute), windows[0].CompletedAt)
	require.Equal(t, slotStart.Add(25*time.Minute), windows[1].CompletedAt)
	require.Equal(t, slotStart.Add(45*time.Minute), windows[2].CompletedAt)
}

func TestResolveEntryFee(t *testing.T) {
	fixed := 150.0
	lo, hi := 100.0, 200.0

	manual := models.MasterSlotConfig{EntryFeeMode: models.EntryFeeModeManual, EntryFee: &fixed}
	require.Equal(t, 150.0, ResolveEntryFee(manual))

	random := models.MasterSlotConfig{
		EntryFeeMode: models.EntryFeeModeRandom,
		MinEntryFee:  &lo,
		MaxEntryFee:  &hi,
	}
	for i := 0; i < 50; i++ {
		fee := ResolveEntryFee(random)
		require.GreaterOrEqual(t, fee, lo)
		require.LessOrEqual(t, fee, hi)
		require.Equal(t, fee, float64(int(fee)), "random fee must be a whole rupee")
	}

	// Degenerate range collapses to the single value.
	same := models.MasterSlotConfig{
		EntryFeeMode: models.EntryFeeModeRandom,
		MinEntryFee:  &lo,
		MaxEntryFee:  &lo,
	}
	require.Equal(t, lo, ResolveEntryFee(same))
}

func buildAuction(status string, roundStatuses []string, slotStart time.Time) *models.HourlyAuction {
	a := &models.HourlyAuction{
		Status:     status,
		RoundCount: len(roundStatuses),
	}
	cursor := slotStart
	for i, rs := range roundStatuses {
		end := cursor.Add(15 * time.Minute)
		a.Rounds = append(a.Rounds, models.AuctionRound{
			RoundNumber: i + 1,
			Status:      rs,
			StartedAt:   cursor,
			CompletedAt: end,
		})
		cursor = end
	}
	return a
}

func TestNextTransition(t *testing.T) {
	slotStart := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	pending4 := []string{
		models.RoundStatusPending, models.RoundStatusPending,
		models.RoundStatusPending, models.RoundStatusPending,
	}

	tests := []struct {
		name      string
		auction   *models.HourlyAuction
		now       time.Time
		wantKind  TransitionKind
		wantRound int
	}{
		{
			name:     "upcoming_before_slot_time",
			auction:  buildAuction(models.AuctionStatusUpcoming, pending4, slotStart),
			now:      slotStart.Add(-time.Minute),
			wantKind: TransitionNone,
		},
		{
			name:     "upcoming_at_slot_time_goes_live",
			auction:  buildAuction(models.AuctionStatusUpcoming, pending4, slotStart),
			now:      slotStart,
			wantKind: TransitionGoLive,
		},
		{
			name:      "live_activates_due_round",
			auction:   buildAuction(models.AuctionStatusLive, pending4, slotStart),
			now:       slotStart.Add(time.Second),
			wantKind:  TransitionActivateRound,
			wantRound: 1,
		},
		{
			name: "live_mid_round_nothing_due",
			auction: buildAuction(models.AuctionStatusLive, []string{
				models.RoundStatusActive, models.RoundStatusPending,
				models.RoundStatusPending, models.RoundStatusPending,
			}, slotStart),
			now:      slotStart.Add(10 * time.Minute),
			wantKind: TransitionNone,
		},
		{
			name: "live_closes_overdue_round",
			auction: buildAuction(models.AuctionStatusLive, []string{
				models.RoundStatusActive, models.RoundStatusPending,
				models.RoundStatusPending, models.RoundStatusPending,
			}, slotStart),
			now:       slotStart.Add(15 * time.Minute),
			wantKind:  TransitionCloseRound,
			wantRound: 1,
		},
		{
			name: "live_activates_second_round_after_close",
			auction: buildAuction(models.AuctionStatusLive, []string{
				models.RoundStatusCompleted, models.RoundStatusPending,
				models.RoundStatusPending, models.RoundStatusPending,
			}, slotStart),
			now:       slotStart.Add(16 * time.Minute),
			wantKind:  TransitionActivateRound,
			wantRound: 2,
		},
		{
			name: "live_all_rounds_done_completes",
			auction: buildAuction(models.AuctionStatusLive, []string{
				models.RoundStatusCompleted, models.RoundStatusCompleted,
				models.RoundStatusCompleted, models.RoundStatusCompleted,
			}, slotStart),
			now:      slotStart.Add(time.Hour),
			wantKind: TransitionCompleteAuction,
		},
		{
			name: "completed_auction_is_inert",
			auction: buildAuction(models.AuctionStatusCompleted, []string{
				models.RoundStatusCompleted,
			}, slotStart),
			now:      slotStart.Add(2 * time.Hour),
			wantKind: TransitionNone,
		},
		{
			name: "cancelled_rounds_count_as_terminal",
			auction: buildAuction(models.AuctionStatusLive, []string{
				models.RoundStatusCompleted, models.RoundStatusCancelled,
			}, slotStart),
			now:      slotStart.Add(time.Hour),
			wantKind: TransitionCompleteAuction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextTransition(tt.auction, tt.now)
			require.Equal(t, tt.wantKind, got.Kind)
			if tt.wantRound != 0 {
				require.Equal(t, tt.wantRound, got.RoundNumber)
			}
		})
	}
}

// A sweep that was down for a whole auction must walk the same path as
// live ticks: applying the decided transition to the in-memory state and
// re-deciding converges on completion.
func TestNextTransition_LateSweepConverges(t *testing.T) {
	slotStart := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	a := buildAuction(models.AuctionStatusUpcoming, []string{
		models.RoundStatusPending, models.RoundStatusPending,
		models.RoundStatusPending, models.RoundStatusPending,
	}, slotStart)
	now := slotStart.Add(2 * time.Hour)

	var seen []TransitionKind
	for i := 0; i < 20; i++ {
		tr := NextTransition(a, now)
		if tr.Kind == TransitionNone || tr.Kind == TransitionCompleteAuction {
			seen = append(seen, tr.Kind)
			break
		}
		seen = append(seen, tr.Kind)
		switch tr.Kind {
		case TransitionGoLive:
			a.Status = models.AuctionStatusLive
		case TransitionActivateRound:
			a.RoundByNumber(tr.RoundNumber).Status = models.RoundStatusActive
		case TransitionCloseRound:
			a.RoundByNumber(tr.RoundNumber).Status = models.RoundStatusCompleted
		}
	}

	require.Equal(t, []TransitionKind{
		TransitionGoLive,
		TransitionActivateRound, TransitionCloseRound,
		TransitionActivateRound, TransitionCloseRound,
		TransitionActivateRound, TransitionCloseRound,
		TransitionActivateRound, TransitionCloseRound,
		TransitionCompleteAuction,
	}, seen)
}
