package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/client"

	"github.com/rs/zerolog/log"
)

// MaxBackfillDays bounds a single CollectRange call
const MaxBackfillDays = 366

const dayLayout = "2006-01-02"

// CollectRange collects every date from from to to inclusive, in order.
// Reversed bounds are swapped. A failed date is logged and the range goes on;
// an exhausted quota or a cancelled context ends it early.
func (c *Collector) CollectRange(ctx context.Context, from, to string) ([]Result, error) {
	start, err := time.Parse(dayLayout, from)
	if err != nil {
		return nil, fmt.Errorf("invalid backfill start %q: %w", from, err)
	}
	end, err := time.Parse(dayLayout, to)
	if err != nil {
		return nil, fmt.Errorf("invalid backfill end %q: %w", to, err)
	}
	if start.After(end) {
		start, end = end, start
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days > MaxBackfillDays {
		return nil, fmt.Errorf("backfill of %d days exceeds %d", days, MaxBackfillDays)
	}

	log.Info().
		Str("from", start.Format(dayLayout)).
		Str("to", end.Format(dayLayout)).
		Int("days", days).
		Msg("Starting backfill")

	results := make([]Result, 0, days)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format(dayLayout)
		res, err := c.Collect(ctx, date)
		results = append(results, res)
		if err != nil {
			if errors.Is(err, client.ErrQuotaExceeded) || ctx.Err() != nil {
				return results, fmt.Errorf("backfill stopped at %s: %w", date, err)
			}
			log.Error().Err(err).Str("date", date).Msg("Backfill date failed")
		}
	}

	log.Info().
		Str("from", start.Format(dayLayout)).
		Str("to", end.Format(dayLayout)).
		Msg("Backfill completed")
	return results, nil
}
