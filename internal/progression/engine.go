package progression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dakshkumar96/Reclaim-sub000/internal/backend"
	"github.com/dakshkumar96/Reclaim-sub000/internal/badge"
	"github.com/dakshkumar96/Reclaim-sub000/internal/challenge"
	"github.com/dakshkumar96/Reclaim-sub000/internal/notify"
)

// ActionType names the user actions the engine accepts.
type ActionType string

const (
	ActionStart   ActionType = "start"
	ActionCheckIn ActionType = "check_in"
)

// Action is a dispatched user intent.
type Action struct {
	Type        ActionType `json:"type"`
	ChallengeID string     `json:"challenge_id"`
}

// ErrUnknownChallenge indicates an action referenced a challenge that is not
// in the catalog.
var ErrUnknownChallenge = errors.New("unknown challenge")

// ErrUnknownAction indicates an unsupported action type.
var ErrUnknownAction = errors.New("unknown action type")

// Engine drives one user's session: it validates actions through the
// challenge lifecycle, applies them optimistically to the store, issues the
// backend call, reconciles the response and enqueues notifications. The
// engine (and the store it owns) outlives any one reader; an in-flight
// reconciliation always completes even if nobody is looking.
type Engine struct {
	userID string
	store  *Store
	queue  *notify.Queue
	client backend.Client
	eval   *badge.Evaluator
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location
	wg     sync.WaitGroup

	catalogMu sync.RWMutex
	catalog   map[string]challenge.Challenge
}

// EngineConfig collects the collaborators an Engine needs.
type EngineConfig struct {
	UserID    string
	Client    backend.Client
	Logger    *slog.Logger
	Now       func() time.Time
	Location  *time.Location
	Evaluator *badge.Evaluator
}

// NewEngine wires an engine for one user. Call Load before dispatching.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.UserID == "" {
		return nil, errors.New("user id is required")
	}
	if cfg.Client == nil {
		return nil, errors.New("backend client is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = badge.NewEvaluator(badge.Catalog())
	}

	logger := cfg.Logger.With(slog.String("userId", cfg.UserID))
	return &Engine{
		userID:  cfg.UserID,
		store:   NewStore(logger, cfg.Location),
		queue:   notify.NewQueue(cfg.Now),
		client:  cfg.Client,
		eval:    cfg.Evaluator,
		logger:  logger,
		now:     cfg.Now,
		loc:     cfg.Location,
		catalog: make(map[string]challenge.Challenge),
	}, nil
}

// Load seeds the store from the backend: profile, catalog, active
// enrollments and earned badges. Also used for explicit profile refreshes.
func (e *Engine) Load(ctx context.Context) error {
	profile, err := e.client.FetchProfile(ctx, e.userID)
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}
	catalog, err := e.client.ListChallenges(ctx)
	if err != nil {
		return fmt.Errorf("list challenges: %w", err)
	}
	active, err := e.client.ListActiveChallenges(ctx, e.userID)
	if err != nil {
		return fmt.Errorf("list active challenges: %w", err)
	}
	records, err := e.client.ListUserBadges(ctx, e.userID)
	if err != nil {
		return fmt.Errorf("list badges: %w", err)
	}

	byID := make(map[string]challenge.Challenge, len(catalog))
	for _, ch := range catalog {
		byID[ch.ID] = ch
	}
	e.catalogMu.Lock()
	e.catalog = byID
	e.catalogMu.Unlock()

	e.store.Seed(profile, active, records, e.now())
	return nil
}

// Dispatch validates and applies a user action. Validation failures
// (ErrAlreadyActive, ErrAlreadyCheckedIn, ErrNotActive) resolve locally and
// never reach the network; the caller surfaces them as an already-satisfied
// state, not a hard failure. On success the backend call proceeds
// asynchronously and settles through the store.
func (e *Engine) Dispatch(ctx context.Context, a Action) error {
	e.catalogMu.RLock()
	ch, ok := e.catalog[a.ChallengeID]
	e.catalogMu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChallenge, a.ChallengeID)
	}

	switch a.Type {
	case ActionStart:
		return e.dispatchStart(ctx, ch)
	case ActionCheckIn:
		return e.dispatchCheckIn(ctx, ch)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, a.Type)
	}
}

func (e *Engine) dispatchStart(ctx context.Context, ch challenge.Challenge) error {
	correlationID, err := e.store.OptimisticStart(ch)
	if err != nil {
		return err
	}

	e.queue.Enqueue(notify.Event{
		Kind:     notify.KindToastSuccess,
		Message:  fmt.Sprintf("%q started! Check in daily to earn XP.", ch.Title),
		ActionID: correlationID,
	})

	// The store must settle even if the caller's context dies with the view.
	callCtx := context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		res, err := e.client.StartChallenge(callCtx, e.userID, ch.ID)
		e.settle(correlationID, resultOf(err, func(r *Result) { r.Start = &res }))
	}()
	return nil
}

func (e *Engine) dispatchCheckIn(ctx context.Context, ch challenge.Challenge) error {
	correlationID, predicted, err := e.store.OptimisticCheckIn(ch, e.now())
	if err != nil {
		return err
	}

	e.queue.Enqueue(notify.Event{
		Kind:     notify.KindXPGain,
		XP:       predicted,
		ActionID: correlationID,
	})

	callCtx := context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		res, err := e.client.CheckIn(callCtx, e.userID, ch.ID)
		e.settle(correlationID, resultOf(err, func(r *Result) { r.CheckIn = &res }))
	}()
	return nil
}

// resultOf splits a backend error into the rejection and transport branches
// and attaches the success payload otherwise.
func resultOf(err error, attach func(*Result)) Result {
	if err != nil {
		if msg, ok := backend.IsRejection(err); ok {
			return Result{Rejection: msg}
		}
		return Result{Err: err}
	}
	var r Result
	attach(&r)
	return r
}

func (e *Engine) settle(correlationID string, res Result) {
	out := e.store.Reconcile(correlationID, res)

	switch {
	case out.Stale:
		// Already logged by the store; never surfaced to the user.
	case out.RolledBack:
		e.queue.Enqueue(notify.Event{
			Kind:     notify.KindToastError,
			Message:  out.Failure,
			ActionID: correlationID,
		})
	case out.Applied:
		if delta := out.XPGained - out.PredictedXP; delta > 0 {
			// Coalesces with the optimistic xp-gain for this action.
			e.queue.Enqueue(notify.Event{
				Kind:     notify.KindXPGain,
				XP:       delta,
				ActionID: correlationID,
			})
		}
		if out.LeveledUp {
			e.queue.Enqueue(notify.Event{
				Kind:     notify.KindLevelUp,
				Level:    out.NewLevel,
				Message:  fmt.Sprintf("Level %d reached!", out.NewLevel),
				ActionID: correlationID,
			})
		}
		if out.Completed {
			e.queue.Enqueue(notify.Event{
				Kind:     notify.KindToastSuccess,
				Message:  "Challenge complete! Bonus XP awarded.",
				ActionID: correlationID,
			})
		}
		e.unlockBadges(correlationID)
	}
}

func (e *Engine) unlockBadges(actionID string) {
	snap := e.store.Snapshot()
	facts := badge.Snapshot{
		XP:                  snap.Progress.XP,
		Level:               snap.Progress.Level,
		Streak:              snap.Streak,
		CompletedChallenges: snap.Completed,
	}

	newly := e.eval.Evaluate(facts, e.store.EarnedSet())
	if len(newly) == 0 {
		return
	}

	ids := make([]string, len(newly))
	for i, b := range newly {
		ids[i] = b.ID
	}
	e.store.MarkEarned(ids, e.now())

	for _, b := range newly {
		e.queue.Enqueue(notify.Event{
			Kind:     notify.KindToastSuccess,
			Message:  fmt.Sprintf("Badge unlocked: %s", b.Name),
			ActionID: actionID,
		})
	}
}

// Snapshot returns the read-only progression view.
func (e *Engine) Snapshot() Snapshot {
	return e.store.Snapshot()
}

// Notifications exposes the session's notification queue.
func (e *Engine) Notifications() *notify.Queue {
	return e.queue
}

// Challenges returns the cached catalog sorted by title.
func (e *Engine) Challenges() []challenge.Challenge {
	e.catalogMu.RLock()
	defer e.catalogMu.RUnlock()
	out := make([]challenge.Challenge, 0, len(e.catalog))
	for _, ch := range e.catalog {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// Wait blocks until every in-flight reconciliation has settled. Called on
// session teardown so state is never silently lost.
func (e *Engine) Wait() {
	e.wg.Wait()
}
