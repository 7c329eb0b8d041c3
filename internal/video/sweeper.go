package video

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/obs"
)

const sweepBatch = 50

// Sweeper periodically polls waiting tasks so results land even when no
// client asks for them.
type Sweeper struct {
	sched gocron.Scheduler
}

func NewSweeper(svc *Service, interval time.Duration) (*Sweeper, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			n, err := svc.RefreshPending(ctx, sweepBatch)
			if err != nil {
				obs.Logger().Error("video sweep failed", slog.String("error", err.Error()))
				return
			}
			if n > 0 {
				obs.Logger().Debug("video sweep", slog.Int("polled", n))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}
	return &Sweeper{sched: sched}, nil
}

func (s *Sweeper) Start() { s.sched.Start() }

func (s *Sweeper) Shutdown() error { return s.sched.Shutdown() }
