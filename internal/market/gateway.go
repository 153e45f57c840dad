package market

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oddsmith/picks-engine/internal/cache"
	"github.com/oddsmith/picks-engine/internal/config"
	"github.com/oddsmith/picks-engine/internal/models"
	"github.com/oddsmith/picks-engine/internal/scheduler"
)

// Dispatch priorities: odds refreshes matter most, line movement least.
const (
	priorityOdds     = 8
	priorityProps    = 6
	priorityStats    = 4
	priorityMovement = 2
)

// Gateway answers "give me sports data" by composing the time-boxed
// cache with the request scheduler: upstream is only hit when the cached
// copy is stale, and never past the request quota.
type Gateway struct {
	cache   *cache.Cache[[]byte]
	sched   *scheduler.Scheduler
	adapter *Adapter
	cfg     config.GatewayConfig
	logger  *logrus.Logger
}

// NewGateway creates a gateway over an existing cache and scheduler.
func NewGateway(c *cache.Cache[[]byte], sched *scheduler.Scheduler, adapter *Adapter, cfg config.GatewayConfig, logger *logrus.Logger) *Gateway {
	return &Gateway{
		cache:   c,
		sched:   sched,
		adapter: adapter,
		cfg:     cfg,
		logger:  logger,
	}
}

// FetchSportsData returns aggregated game data for one sport across the
// configured markets and bookmakers. Cached for the odds TTL.
func (g *Gateway) FetchSportsData(ctx context.Context, sport string) ([]models.GameData, error) {
	key := fmt.Sprintf("odds:%s:%s", sport, strings.Join(g.cfg.Markets, ","))
	raw, err := g.cache.Get(ctx, key, g.cfg.OddsTTL, func(ctx context.Context) ([]byte, error) {
		return g.sched.Execute(ctx, scheduler.Request{
			Endpoint: "odds",
			Priority: priorityOdds,
			Retries:  g.cfg.FetchRetries,
			Params: map[string]string{
				"sport":      sport,
				"markets":    strings.Join(g.cfg.Markets, ","),
				"bookmakers": strings.Join(g.cfg.Bookmakers, ","),
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch odds for %s: %w", sport, err)
	}
	return g.adapter.ParseGameData(raw)
}

// FetchPlayerProps returns prop candidates for the given events. Events
// are batched into fixed-size groups so a slate of games stays within
// the request quota.
func (g *Gateway) FetchPlayerProps(ctx context.Context, sport string, eventIDs []string) ([]models.GameData, error) {
	var all []models.GameData
	for _, batch := range batchIDs(eventIDs, g.cfg.PropBatch) {
		key := fmt.Sprintf("props:%s:%s", sport, strings.Join(batch, ","))
		raw, err := g.cache.Get(ctx, key, g.cfg.OddsTTL, func(ctx context.Context) ([]byte, error) {
			return g.sched.Execute(ctx, scheduler.Request{
				Endpoint: "props",
				Priority: priorityProps,
				Retries:  g.cfg.FetchRetries,
				Params: map[string]string{
					"sport":  sport,
					"events": strings.Join(batch, ","),
				},
			})
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch props for %s: %w", sport, err)
		}
		games, err := g.adapter.ParseGameData(raw)
		if err != nil {
			return nil, err
		}
		all = append(all, games...)
	}
	return all, nil
}

// FetchPlayerStats returns the statistical context for the given events,
// keyed by player. Stats move slowly, so they use the long TTL class.
func (g *Gateway) FetchPlayerStats(ctx context.Context, sport string, eventIDs []string) (map[string]models.PlayerStats, error) {
	merged := make(map[string]models.PlayerStats)
	for _, batch := range batchIDs(eventIDs, g.cfg.PropBatch) {
		key := fmt.Sprintf("stats:%s:%s", sport, strings.Join(batch, ","))
		raw, err := g.cache.Get(ctx, key, g.cfg.ForecastTTL, func(ctx context.Context) ([]byte, error) {
			return g.sched.Execute(ctx, scheduler.Request{
				Endpoint: "stats",
				Priority: priorityStats,
				Retries:  g.cfg.FetchRetries,
				Params: map[string]string{
					"sport":  sport,
					"events": strings.Join(batch, ","),
				},
			})
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch stats for %s: %w", sport, err)
		}
		stats, err := g.adapter.ParsePlayerStats(raw)
		if err != nil {
			return nil, err
		}
		for player, ps := range stats {
			merged[player] = ps
		}
	}
	return merged, nil
}

// FetchLineHistory returns the movement record for one event. Movement
// changes quickly, so it uses the short TTL class.
func (g *Gateway) FetchLineHistory(ctx context.Context, sport, eventID string) (models.LineHistory, error) {
	key := fmt.Sprintf("movement:%s:%s", sport, eventID)
	raw, err := g.cache.Get(ctx, key, g.cfg.MovementTTL, func(ctx context.Context) ([]byte, error) {
		return g.sched.Execute(ctx, scheduler.Request{
			Endpoint: "movement",
			Priority: priorityMovement,
			Retries:  g.cfg.FetchRetries,
			Params: map[string]string{
				"sport": sport,
				"event": eventID,
			},
		})
	})
	if err != nil {
		return models.LineHistory{}, fmt.Errorf("failed to fetch line history for %s: %w", eventID, err)
	}
	return g.adapter.ParseLineHistory(raw)
}

// Invalidate drops every odds, props, and movement entry, forcing the
// next read to refresh. Stats entries keep their long TTL.
func (g *Gateway) Invalidate() int {
	removed := 0
	for _, prefix := range []string{"odds:", "props:", "movement:"} {
		removed += g.cache.Invalidate(prefix)
	}
	g.logger.WithField("removed", removed).Info("Invalidated gateway cache entries")
	return removed
}

// CacheStats exposes the underlying cache statistics.
func (g *Gateway) CacheStats() cache.Stats {
	return g.cache.Stats()
}

func batchIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
