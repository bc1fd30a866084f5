package grid

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"passage_router/pkg/logging"
	"passage_router/pkg/metrics"
)

// Loader loads the global and regional grids once per process. Every caller
// of Load, including concurrent ones, observes the same outcome.
type Loader struct {
	global   ByteSource
	regional ByteSource
	logger   *zap.Logger

	once  sync.Once
	store *Store
	err   error
}

// NewLoader creates a loader. regional may be nil.
func NewLoader(global, regional ByteSource, logger *zap.Logger) *Loader {
	return &Loader{global: global, regional: regional, logger: logging.OrNop(logger)}
}

// Load returns the memoized Store, performing the load on the first call.
// The load is detached from the first caller's cancellation so that other
// waiters are not failed by it.
func (l *Loader) Load(ctx context.Context) (*Store, error) {
	l.once.Do(func() {
		l.store, l.err = l.load(context.WithoutCancel(ctx))
	})
	return l.store, l.err
}

func (l *Loader) load(ctx context.Context) (*Store, error) {
	if l.global == nil {
		return nil, errors.New("no global grid source configured")
	}
	start := time.Now()

	var (
		global   *Global
		regional *Regional
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := l.global.Fetch(gctx)
		if err != nil {
			return fmt.Errorf("global grid: %w", err)
		}
		if global, err = DecodeGlobal(data); err != nil {
			return fmt.Errorf("global grid: %w", err)
		}
		return nil
	})
	if l.regional != nil {
		g.Go(func() error {
			data, err := l.regional.Fetch(gctx)
			if err != nil {
				return fmt.Errorf("regional grid: %w", err)
			}
			if regional, err = DecodeRegional(data); err != nil {
				return fmt.Errorf("regional grid: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.logger.Error("grid load failed", zap.Error(err))
		return nil, err
	}

	elapsed := time.Since(start)
	metrics.GridLoadDuration.Observe(elapsed.Seconds())

	store := NewStore(global, regional)
	st := store.Stats()
	l.logger.Info("grids loaded",
		zap.Int("global_rows", st.GlobalRows),
		zap.Int("global_cols", st.GlobalCols),
		zap.Float64("global_resolution", st.GlobalResolution),
		zap.Int("regions", len(st.Regions)),
		zap.Duration("elapsed", elapsed),
	)
	return store, nil
}
