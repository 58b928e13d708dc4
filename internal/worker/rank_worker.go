package worker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/gateprep-backend/internal/config"
	"github.com/stemsi/gateprep-backend/internal/logger"
)

const (
	RankPollTimeout        = 1 * time.Second
	DefaultRefreshInterval = 5 * time.Minute
)

// RankRefresher recomputes every leaderboard rank.
type RankRefresher interface {
	RefreshRanks(ctx context.Context) (int64, error)
}

// RankWorker refreshes leaderboard ranks when submits signal it through
// the rank refresh queue, and on a fixed interval as a backstop.
type RankWorker struct {
	rdb      *redis.Client
	ranks    RankRefresher
	interval time.Duration
	log      zerolog.Logger
}

func NewRankWorker(rdb *redis.Client, ranks RankRefresher, interval time.Duration, log zerolog.Logger) *RankWorker {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &RankWorker{
		rdb:      rdb,
		ranks:    ranks,
		interval: interval,
		log:      logger.Component(log, "rank_worker"),
	}
}

// ----------------------------------------------------------------
// Worker loop
// ----------------------------------------------------------------

func (w *RankWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("RankWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("RankWorker stopped")
			return

		case <-ticker.C:
			w.refresh(ctx, "interval", 0)

		default:
			item, err := w.rdb.BLPop(ctx, RankPollTimeout, config.WorkerKey.RankRefreshQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
					time.Sleep(RankPollTimeout)
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			// One refresh covers every submit queued so far.
			w.refresh(ctx, "signal", 1+w.drain(ctx))
		}
	}
}

// drain empties the queue and returns how many signals it held.
func (w *RankWorker) drain(ctx context.Context) int64 {
	var llen *redis.IntCmd
	_, err := w.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		llen = pipe.LLen(ctx, config.WorkerKey.RankRefreshQueue)
		pipe.Del(ctx, config.WorkerKey.RankRefreshQueue)
		return nil
	})
	if err != nil {
		w.log.Warn().Err(err).Msg("drain rank queue failed")
		return 0
	}
	return llen.Val()
}

func (w *RankWorker) refresh(ctx context.Context, trigger string, signals int64) {
	start := time.Now()
	changed, err := w.ranks.RefreshRanks(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Str("trigger", trigger).Msg("rank refresh failed")
		}
		return
	}

	w.log.Debug().
		Str("trigger", trigger).
		Int64("signals", signals).
		Int64("ranks_changed", changed).
		Dur("took", time.Since(start)).
		Msg("ranks refreshed")
}
