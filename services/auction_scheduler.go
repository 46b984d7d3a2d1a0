package services

import (
	"fmt"
	"time"

	"hourly-auction-service/utils"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// AuctionScheduler owns the periodic jobs: the minute-level activation and
// claim sweeps and the midnight regeneration. It is created once in main
// and stopped on shutdown; nothing here keeps global state.
type AuctionScheduler struct {
	sched    gocron.Scheduler
	schedule *ScheduleService
	claims   *ClaimService
}

func NewAuctionScheduler(schedule *ScheduleService, claims *ClaimService) (*AuctionScheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(utils.AuctionLocation()))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &AuctionScheduler{sched: sched, schedule: schedule, claims: claims}, nil
}

// Start registers the jobs and begins ticking. Each sweep compares the
// clock to absolute stored instants, so a missed or delayed tick is
// recovered by the next one.
func (a *AuctionScheduler) Start() error {
	_, err := a.sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(a.schedule.ActivationSweep),
	)
	if err != nil {
		return fmt.Errorf("failed to register activation sweep: %w", err)
	}

	_, err = a.sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			a.claims.ProcessClaimQueues()
			a.claims.ExpireUnclaimedPrizes()
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to register claim sweep: %w", err)
	}

	_, err = a.sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 0, 0))),
		gocron.NewTask(func() {
			if _, err := a.schedule.MidnightResetAndCreate(); err != nil {
				log.Printf("[SCHEDULER] midnight generation failed: %v", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to register midnight job: %w", err)
	}

	a.sched.Start()
	log.Printf("[SCHEDULER] started (timezone %s)", utils.AuctionLocation())

	// Catch up immediately instead of waiting for the first tick.
	go a.schedule.ActivationSweep()
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs.
func (a *AuctionScheduler) Stop() {
	if err := a.sched.Shutdown(); err != nil {
		log.Printf("[SCHEDULER] shutdown error: %v", err)
	}
}
