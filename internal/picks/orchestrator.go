package picks

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oddsmith/picks-engine/internal/cache"
	"github.com/oddsmith/picks-engine/internal/config"
	"github.com/oddsmith/picks-engine/internal/engine"
	"github.com/oddsmith/picks-engine/internal/models"
)

// MarketData is the slice of the gateway the orchestrator needs.
type MarketData interface {
	FetchSportsData(ctx context.Context, sport string) ([]models.GameData, error)
	FetchPlayerProps(ctx context.Context, sport string, eventIDs []string) ([]models.GameData, error)
	FetchPlayerStats(ctx context.Context, sport string, eventIDs []string) (map[string]models.PlayerStats, error)
	FetchLineHistory(ctx context.Context, sport, eventID string) (models.LineHistory, error)
	Invalidate() int
	CacheStats() cache.Stats
}

// Notifier receives newly surfaced lock-tier picks. Implementations are
// best-effort; the pipeline never blocks on them.
type Notifier interface {
	NotifyLockPicks(ctx context.Context, picks []models.RankedPick)
}

// Orchestrator is the top-level coordinator: gateway data in, scored
// and categorized picks out, snapshot held in the store.
type Orchestrator struct {
	gateway     MarketData
	engine      *engine.Engine
	categorizer *Categorizer
	store       *Store
	notifier    Notifier
	sports      []string
	cfg         config.PicksConfig
	logger      *logrus.Logger

	refreshMu    sync.Mutex
	prevLockKeys map[string]bool
	now          func() time.Time
}

// NewOrchestrator creates an orchestrator. notifier may be nil.
func NewOrchestrator(gateway MarketData, eng *engine.Engine, categorizer *Categorizer, store *Store, notifier Notifier, sports []string, cfg config.PicksConfig, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		gateway:      gateway,
		engine:       eng,
		categorizer:  categorizer,
		store:        store,
		notifier:     notifier,
		sports:       sports,
		cfg:          cfg,
		logger:       logger,
		prevLockKeys: make(map[string]bool),
		now:          time.Now,
	}
}

// GetAllPicks returns the current snapshot, refreshing it when it is
// older than the snapshot TTL or forceRefresh is set. A failed refresh
// falls back to the previous snapshot marked stale; with no previous
// snapshot the caller gets an empty result set, never an error surface.
func (o *Orchestrator) GetAllPicks(ctx context.Context, forceRefresh bool) (models.PicksSnapshot, error) {
	if !forceRefresh {
		if snap, ok := o.fresh(); ok {
			return snap, nil
		}
	}

	o.refreshMu.Lock()
	defer o.refreshMu.Unlock()

	// Another caller may have refreshed while we waited on the lock.
	if !forceRefresh {
		if snap, ok := o.fresh(); ok {
			return snap, nil
		}
	}

	snap, err := o.refresh(ctx)
	if err != nil {
		o.logger.WithError(err).Error("Pipeline refresh failed")
		if prev, ok := o.store.Read(); ok {
			prev.Stale = true
			return prev, nil
		}
		return models.PicksSnapshot{Stale: true}, nil
	}
	return snap, nil
}

// ForceRefresh invalidates the gateway's short-lived cache entries and
// reruns the pipeline. Safe to call concurrently with an automatic
// refresh: the cache's single-flight property prevents duplicate
// upstream requests.
func (o *Orchestrator) ForceRefresh(ctx context.Context) error {
	removed := o.gateway.Invalidate()
	o.logger.WithField("invalidated", removed).Info("Manual refresh requested")
	_, err := o.GetAllPicks(ctx, true)
	return err
}

// CacheStats exposes cache statistics for the dashboard.
func (o *Orchestrator) CacheStats() cache.Stats {
	return o.gateway.CacheStats()
}

func (o *Orchestrator) fresh() (models.PicksSnapshot, bool) {
	snap, ok := o.store.Read()
	if !ok || o.now().Sub(snap.LastUpdated) >= o.cfg.SnapshotTTL {
		return models.PicksSnapshot{}, false
	}
	return snap, true
}

// refresh runs the full pipeline across all configured sports.
func (o *Orchestrator) refresh(ctx context.Context) (models.PicksSnapshot, error) {
	started := o.now()
	var scored []ScoredCandidate
	fetchedAny := false

	for _, sport := range o.sports {
		games, err := o.gateway.FetchSportsData(ctx, sport)
		if err != nil {
			o.logger.WithError(err).WithField("sport", sport).Warn("Failed to fetch game lines")
			continue
		}
		fetchedAny = true

		eventIDs := make([]string, 0, len(games))
		events := make(map[string]models.GameData, len(games))
		candidates := make([]models.Candidate, 0)
		for _, g := range games {
			eventIDs = append(eventIDs, g.EventID)
			events[g.EventID] = g
			candidates = append(candidates, g.Candidates...)
		}

		props, err := o.gateway.FetchPlayerProps(ctx, sport, eventIDs)
		if err != nil {
			o.logger.WithError(err).WithField("sport", sport).Warn("Failed to fetch player props")
		} else {
			for _, g := range props {
				candidates = append(candidates, g.Candidates...)
			}
		}

		stats, err := o.gateway.FetchPlayerStats(ctx, sport, eventIDs)
		if err != nil {
			o.logger.WithError(err).WithField("sport", sport).Warn("Failed to fetch player stats")
			stats = map[string]models.PlayerStats{}
		}

		histories := o.fetchHistories(ctx, sport, eventIDs)

		for _, cand := range candidates {
			sc, err := o.score(cand, stats, histories, events)
			if err != nil {
				if !errors.Is(err, engine.ErrInsufficientData) {
					o.logger.WithError(err).WithFields(logrus.Fields{
						"subject": cand.Subject,
						"kind":    cand.Kind,
					}).Warn("Failed to score candidate")
				}
				continue
			}
			scored = append(scored, sc)
		}
	}

	if !fetchedAny {
		return models.PicksSnapshot{}, errors.New("no sports data available from upstream")
	}

	snapshot := o.categorizer.Categorize(scored)
	snapshot.LastUpdated = o.now()
	o.store.Write(snapshot)
	o.notifyNewLocks(ctx, snapshot)

	o.logger.WithFields(logrus.Fields{
		"scored":      len(scored),
		"duration_ms": o.now().Sub(started).Milliseconds(),
	}).Info("Pipeline refresh completed")

	return snapshot, nil
}

func (o *Orchestrator) fetchHistories(ctx context.Context, sport string, eventIDs []string) map[string]models.LineHistory {
	histories := make(map[string]models.LineHistory, len(eventIDs))
	for _, id := range eventIDs {
		history, err := o.gateway.FetchLineHistory(ctx, sport, id)
		if err != nil {
			// Movement is a refinement, not a requirement.
			o.logger.WithError(err).WithField("event_id", id).Debug("No line history available")
			continue
		}
		histories[id] = history
	}
	return histories
}

// score runs one candidate through the calculation pipeline.
func (o *Orchestrator) score(cand models.Candidate, stats map[string]models.PlayerStats, histories map[string]models.LineHistory, events map[string]models.GameData) (ScoredCandidate, error) {
	subjectStats, ok := stats[cand.Subject]
	if !ok {
		return ScoredCandidate{}, engine.ErrInsufficientData
	}

	var stat models.StatType
	switch cand.Kind {
	case models.KindPlayerProp:
		stat = cand.StatType
	case models.KindSpread, models.KindTotal:
		// Game lines carry team aggregates under the points stat.
		stat = models.StatPoints
	default:
		return ScoredCandidate{}, fmt.Errorf("%w: %s", engine.ErrUnknownKind, cand.Kind)
	}
	averages, ok := subjectStats.Lines[stat]
	if !ok {
		return ScoredCandidate{}, engine.ErrInsufficientData
	}

	history := histories[cand.EventID]
	factors := models.CalculationFactors{
		SeasonAvg:       averages.Season,
		RecentAvg:       averages.Recent,
		MatchupAvg:      averages.Matchup,
		VenueAvg:        averages.Venue,
		Pace:            subjectStats.Pace,
		OppDefRating:    subjectStats.OppDefRating,
		OppPosDefRating: subjectStats.OppPosDefRating,
		WindSpeed:       subjectStats.WindSpeed,
		Temperature:     subjectStats.Temperature,
		OpeningLine:     openingLine(history, cand.Line),
		CurrentLine:     cand.Line,
	}

	projection, err := o.engine.CalculatePlayerProjection(stat, factors)
	if err != nil {
		return ScoredCandidate{}, err
	}

	compareLine := cand.Line
	if cand.Kind == models.KindSpread {
		// Covering the spread means outscoring the opponent's projected
		// total adjusted by the line: the favorite's -4.5 becomes
		// oppProjection + 4.5, the underdog's +4.5 oppProjection - 4.5.
		oppProjection, err := o.opponentProjection(cand, stats, events)
		if err != nil {
			return ScoredCandidate{}, err
		}
		compareLine = oppProjection - cand.Line
	}

	edge, err := o.engine.CalculateEdge(projection.Projection, compareLine, cand.Side, cand.Odds)
	if err != nil {
		return ScoredCandidate{}, err
	}

	signals := o.engine.AnalyzeMarketMovement(history)
	if signals.Consensus == models.ConsensusSharp && signals.SharpSide == cand.Side {
		// Sharp money confirming the model's side raises conviction.
		projection.Confidence = math.Min(95, projection.Confidence+10)
	}

	return ScoredCandidate{
		Candidate:  cand,
		Projection: projection,
		Edge:       edge,
		Kelly:      o.engine.CalculateKellySize(edge, cand.Odds),
		Signals:    signals,
	}, nil
}

// opponentProjection projects the other team's points total for a
// spread candidate's event. Missing opponent aggregates skip the
// candidate the same way missing subject aggregates do.
func (o *Orchestrator) opponentProjection(cand models.Candidate, stats map[string]models.PlayerStats, events map[string]models.GameData) (float64, error) {
	game, ok := events[cand.EventID]
	if !ok {
		return 0, engine.ErrInsufficientData
	}
	opponent := game.HomeTeam
	if cand.Subject == game.HomeTeam {
		opponent = game.AwayTeam
	}

	oppStats, ok := stats[opponent]
	if !ok {
		return 0, engine.ErrInsufficientData
	}
	averages, ok := oppStats.Lines[models.StatPoints]
	if !ok {
		return 0, engine.ErrInsufficientData
	}

	projection, err := o.engine.CalculatePlayerProjection(models.StatPoints, models.CalculationFactors{
		SeasonAvg:       averages.Season,
		RecentAvg:       averages.Recent,
		MatchupAvg:      averages.Matchup,
		VenueAvg:        averages.Venue,
		Pace:            oppStats.Pace,
		OppDefRating:    oppStats.OppDefRating,
		OppPosDefRating: oppStats.OppPosDefRating,
		WindSpeed:       oppStats.WindSpeed,
		Temperature:     oppStats.Temperature,
		CurrentLine:     cand.Line,
	})
	if err != nil {
		return 0, err
	}
	return projection.Projection, nil
}

// notifyNewLocks alerts on lock-tier picks that were not in the previous
// snapshot's lock set.
func (o *Orchestrator) notifyNewLocks(ctx context.Context, snap models.PicksSnapshot) {
	currentKeys := make(map[string]bool)
	var fresh []models.RankedPick
	for _, pick := range snap.BestBets {
		if pick.Tier != models.TierLock {
			continue
		}
		key := pick.Candidate.GroupKey()
		currentKeys[key] = true
		if !o.prevLockKeys[key] {
			fresh = append(fresh, pick)
		}
	}
	o.prevLockKeys = currentKeys

	if o.notifier != nil && len(fresh) > 0 {
		o.notifier.NotifyLockPicks(ctx, fresh)
	}
}

func openingLine(history models.LineHistory, fallback float64) float64 {
	if len(history.Points) > 0 {
		return history.Points[0].Line
	}
	return fallback
}
