package amulet

import (
	"amuletbot/internal/models"
	"amuletbot/internal/providers"
	"amuletbot/internal/services"
	"amuletbot/internal/structures"
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
)

const notifyTimeout = 10 * time.Second

// ChannelNotifier posts a message to a channel. Delivery is best effort.
type ChannelNotifier interface {
	Notify(ctx context.Context, channelID, message string) error
}

type EngineInterface interface {
	Give(ctx context.Context, userID, channelID, guildID string) (bool, error)
	CurrentHolder(guildID string) (*models.UserProfile, bool)
	ExpiresAt(guildID string) (time.Time, bool)
	Restore() error
	Stop()
}

// guildSlot serializes all game transitions of one guild and owns its expiry timer.
type guildSlot struct {
	mu         sync.Mutex
	stop       func() bool
	holder     string
	generation uint64
}

// Engine runs the amulet game. A guild is Free when nobody holds the amulet and Held
// otherwise; each Held guild has exactly one armed timer that frees it again.
type Engine struct {
	repo            services.GuildRepositoryInterface
	notifier        ChannelNotifier
	clock           Clock
	logger          providers.Logger
	metrics         providers.MetricsProviderInterface
	fallbackTimeout time.Duration

	slotsMu sync.Mutex
	slots   map[string]*guildSlot
	armed   atomic.Int64
}

func NewEngine(conf *structures.Config, repo services.GuildRepositoryInterface, notifier ChannelNotifier, clock Clock, logger providers.Logger, metrics providers.MetricsProviderInterface) EngineInterface {
	return newEngine(conf, repo, notifier, clock, logger, metrics)
}

func newEngine(conf *structures.Config, repo services.GuildRepositoryInterface, notifier ChannelNotifier, clock Clock, logger providers.Logger, metrics providers.MetricsProviderInterface) *Engine {
	fallback := conf.Game.AmuletTimeout
	if fallback <= 0 {
		fallback = time.Duration(models.DefaultAmuletTimeoutMs) * time.Millisecond
	}
	return &Engine{
		repo:            repo,
		notifier:        notifier,
		clock:           clock,
		logger:          logger,
		metrics:         metrics,
		fallbackTimeout: fallback,
		slots:           make(map[string]*guildSlot),
	}
}

// Give hands the amulet to userID if nobody in the guild holds it. A held amulet is
// reported as false with a nil error and changes nothing.
//
// When the hand-over happened in memory but a write to storage failed, Give returns
// true together with the storage error: the amulet is held and its timer is armed,
// and the next successful write persists the state.
func (e *Engine) Give(ctx context.Context, userID, channelID, guildID string) (bool, error) {
	slot := e.slot(guildID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if _, err := e.repo.CreateGuild(guildID); err != nil {
		if _, ok := e.repo.GetGuild(guildID); !ok {
			e.metrics.IncGives(providers.GiveFailed)
			return false, err
		}
		e.logger.Errorf(providers.TypeGame, "Guild %s created in memory only: %s", guildID, err)
	}

	state, _ := e.repo.GetGameState(guildID)
	if state.Amulet.Held() {
		e.metrics.IncGives(providers.GiveRejected)
		e.logger.Debugf(providers.TypeGame, "Give to %s in guild %s refused, held by %s", userID, guildID, state.Amulet.CurrentHolder)
		return false, nil
	}

	// Resolve the profile before touching the game so an identity failure leaves it Free.
	if _, ok := e.repo.GetUserProfile(userID, guildID); !ok {
		if _, err := e.repo.UpsertUserProfile(ctx, userID, guildID, services.ProfileUpdate{}); err != nil {
			if _, created := e.repo.GetUserProfile(userID, guildID); !created {
				e.metrics.IncGives(providers.GiveFailed)
				e.logger.Errorf(providers.TypeGame, "Failed to give amulet to user %s: %s", userID, err)
				return false, err
			}
		}
	}

	now := e.clock.Now()
	claimErr := e.repo.UpdateGameState(guildID, services.GameStateUpdate{
		Claim: &services.AmuletClaim{UserID: userID, ChannelID: channelID, At: now},
	})
	if claimErr != nil {
		current, _ := e.repo.GetGameState(guildID)
		if current.Amulet.CurrentHolder != userID {
			e.metrics.IncGives(providers.GiveFailed)
			e.logger.Errorf(providers.TypeGame, "Failed to give amulet to user %s: %s", userID, claimErr)
			return false, claimErr
		}
	}

	e.armLocked(slot, guildID, userID, state.EffectiveTimeout(e.fallbackTimeout))
	e.metrics.IncGives(providers.GiveGranted)
	e.logger.Infof(providers.TypeGame, "Amulet given to %s in guild %s channel %s", userID, guildID, channelID)

	err := claimErr
	if statsErr := e.recordHold(ctx, userID, guildID, now); statsErr != nil && err == nil {
		err = statsErr
	}
	return true, err
}

func (e *Engine) recordHold(ctx context.Context, userID, guildID string, now time.Time) error {
	profile, err := e.repo.UpsertUserProfile(ctx, userID, guildID, services.ProfileUpdate{
		LastSeen: &now,
		Stats:    services.StatsDelta{AmuletHeldCount: 1},
	})
	if err != nil {
		e.logger.Errorf(providers.TypeGame, "Failed to record hold of %s in guild %s: %s", userID, guildID, err)
		return err
	}
	err = e.repo.UpdateLeaderboard(guildID, models.CategoryAmuletCount, userID, profile.Name(), int64(profile.Stats.AmuletHeldCount))
	if err != nil {
		e.logger.Errorf(providers.TypeGame, "Failed to update %s leaderboard in guild %s: %s", models.CategoryAmuletCount, guildID, err)
	}
	return err
}

// CurrentHolder returns the holder's profile, or false when the amulet is free.
func (e *Engine) CurrentHolder(guildID string) (*models.UserProfile, bool) {
	state, ok := e.repo.GetGameState(guildID)
	if !ok || !state.Amulet.Held() {
		return nil, false
	}
	return e.repo.GetUserProfile(state.Amulet.CurrentHolder, guildID)
}

// ExpiresAt reports when the current possession ends, with the timeout its timer uses.
func (e *Engine) ExpiresAt(guildID string) (time.Time, bool) {
	state, ok := e.repo.GetGameState(guildID)
	if !ok || !state.Amulet.Held() {
		return time.Time{}, false
	}
	return e.deadline(state), true
}

func (e *Engine) deadline(state models.GameState) time.Time {
	return state.Amulet.LastTransferred.Add(state.EffectiveTimeout(e.fallbackTimeout))
}

// Restore re-arms timers for guilds persisted as Held. Overdue ones expire right away.
func (e *Engine) Restore() error {
	now := e.clock.Now()
	restored := 0
	for _, guildID := range e.repo.ListGuildIDs() {
		state, ok := e.repo.GetGameState(guildID)
		if !ok || !state.Amulet.Held() {
			continue
		}
		remaining := e.deadline(state).Sub(now)
		if remaining < 0 {
			remaining = 0
		}

		slot := e.slot(guildID)
		slot.mu.Lock()
		e.armLocked(slot, guildID, state.Amulet.CurrentHolder, remaining)
		slot.mu.Unlock()
		restored++
	}
	if restored > 0 {
		e.logger.Infof(providers.TypeGame, "Re-armed %d amulet timers", restored)
	}
	return nil
}

// Stop cancels every pending expiry. Held state stays persisted for Restore.
func (e *Engine) Stop() {
	e.slotsMu.Lock()
	slots := make([]*guildSlot, 0, len(e.slots))
	for _, s := range e.slots {
		slots = append(slots, s)
	}
	e.slotsMu.Unlock()

	for _, s := range slots {
		s.mu.Lock()
		e.disarmLocked(s)
		s.generation++
		s.mu.Unlock()
	}
}

func (e *Engine) slot(guildID string) *guildSlot {
	e.slotsMu.Lock()
	defer e.slotsMu.Unlock()
	s, ok := e.slots[guildID]
	if !ok {
		s = &guildSlot{}
		e.slots[guildID] = s
	}
	return s
}

// armLocked replaces the slot's timer. The callback only acts if the slot still
// carries the generation it was armed with.
func (e *Engine) armLocked(slot *guildSlot, guildID, userID string, d time.Duration) {
	e.disarmLocked(slot)
	slot.generation++
	generation := slot.generation
	slot.holder = userID
	slot.stop = e.clock.AfterFunc(d, func() {
		e.expire(guildID, userID, generation)
	})
	e.metrics.SetActiveTimers(int(e.armed.Inc()))
}

func (e *Engine) disarmLocked(slot *guildSlot) {
	if slot.stop == nil {
		return
	}
	slot.stop()
	slot.stop = nil
	slot.holder = ""
	e.metrics.SetActiveTimers(int(e.armed.Dec()))
}

type expiryNotice struct {
	channelID string
	message   string
}

func (e *Engine) expire(guildID, userID string, generation uint64) {
	notice := e.release(guildID, userID, generation)
	if notice == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := e.notifier.Notify(ctx, notice.channelID, notice.message); err != nil {
		e.logger.Errorf(providers.TypeGame, "Failed to send message=%q to channelId=%s: %s", notice.message, notice.channelID, err)
	}
}

// release ends a possession: it credits the held time, updates the amulet-time board
// and frees the amulet. It returns the notice to post, if any.
func (e *Engine) release(guildID, userID string, generation uint64) *expiryNotice {
	slot := e.slot(guildID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.generation != generation || slot.holder != userID {
		e.logger.Debugf(providers.TypeGame, "Stale expiry for %s in guild %s ignored", userID, guildID)
		return nil
	}
	slot.stop = nil
	slot.holder = ""
	e.metrics.SetActiveTimers(int(e.armed.Dec()))

	state, ok := e.repo.GetGameState(guildID)
	if !ok || state.Amulet.CurrentHolder != userID {
		e.logger.Debugf(providers.TypeGame, "Expiry for %s in guild %s found another holder", userID, guildID)
		return nil
	}
	profile, ok := e.repo.GetUserProfile(userID, guildID)
	if !ok {
		e.logger.Warnf(providers.TypeGame, "Holder %s of guild %s has no profile, leaving state untouched", userID, guildID)
		return nil
	}

	heldMs := e.clock.Now().Sub(state.Amulet.LastTransferred).Milliseconds()
	if heldMs < 0 {
		heldMs = 0
	}

	total := profile.Stats.AmuletHeldTimeMs + heldMs
	updated, err := e.repo.UpsertUserProfile(context.Background(), userID, guildID, services.ProfileUpdate{
		Stats: services.StatsDelta{AmuletHeldTimeMs: heldMs},
	})
	if err != nil {
		e.logger.Errorf(providers.TypeGame, "Failed to credit %dms to %s in guild %s: %s", heldMs, userID, guildID, err)
	} else {
		total = updated.Stats.AmuletHeldTimeMs
	}

	if err := e.repo.UpdateLeaderboard(guildID, models.CategoryAmuletTime, userID, profile.Name(), total); err != nil {
		e.logger.Errorf(providers.TypeGame, "Failed to update %s leaderboard in guild %s: %s", models.CategoryAmuletTime, guildID, err)
	}
	if err := e.repo.UpdateGameState(guildID, services.GameStateUpdate{Release: true}); err != nil {
		e.logger.Errorf(providers.TypeGame, "Failed to persist release in guild %s: %s", guildID, err)
	}

	e.metrics.IncExpiries()
	e.logger.Infof(providers.TypeGame, "Amulet of %s in guild %s expired after %dms", userID, guildID, heldMs)

	if !state.Settings.EnableNotifications {
		return nil
	}
	return &expiryNotice{
		channelID: state.Amulet.ChannelID,
		message:   fmt.Sprintf("%s has lost the amulet! It's now available for anyone to claim.", profile.Name()),
	}
}
