package services

import (
	"amuletbot/internal/models"
	"amuletbot/internal/persistence/interfaces"
	"amuletbot/internal/providers"
	"amuletbot/internal/structures"
	"context"
	"fmt"
	"sync"
	"time"
)

// IdentityResolver looks up the name of a user who has no profile yet.
type IdentityResolver interface {
	ResolveUsername(ctx context.Context, userID string) (string, error)
}

type GuildRepositoryInterface interface {
	Initialize() error
	GetGuild(guildID string) (*models.GuildRecord, bool)
	CreateGuild(guildID string) (*models.GuildRecord, error)
	GetUserProfile(userID, guildID string) (*models.UserProfile, bool)
	UpsertUserProfile(ctx context.Context, userID, guildID string, update ProfileUpdate) (*models.UserProfile, error)
	RecordCommandUse(ctx context.Context, userID, guildID, command string) error
	GetGameState(guildID string) (models.GameState, bool)
	UpdateGameState(guildID string, update GameStateUpdate) error
	UpdateLeaderboard(guildID, category, userID, username string, score int64) error
	GetLeaderboard(guildID, category string) []models.LeaderboardEntry
	CreateBackup() (string, error)
	ListGuildIDs() []string
	Totals() (guilds, users int)
}

// GuildRepository owns the in-memory document. Every mutation holds the write lock
// until the whole document has been handed to the store, so writes never interleave.
// Records handed out are copies.
type GuildRepository struct {
	mu               sync.RWMutex
	doc              *models.Document
	store            interfaces.DocumentStoreInterface
	resolver         IdentityResolver
	logger           providers.Logger
	metrics          providers.MetricsProviderInterface
	defaultTimeoutMs int64
	now              func() time.Time
}

func NewGuildRepository(conf *structures.Config, store interfaces.DocumentStoreInterface, resolver IdentityResolver, logger providers.Logger, metrics providers.MetricsProviderInterface) GuildRepositoryInterface {
	return newGuildRepository(conf, store, resolver, logger, metrics)
}

func newGuildRepository(conf *structures.Config, store interfaces.DocumentStoreInterface, resolver IdentityResolver, logger providers.Logger, metrics providers.MetricsProviderInterface) *GuildRepository {
	timeoutMs := conf.Game.AmuletTimeout.Milliseconds()
	if timeoutMs <= 0 {
		timeoutMs = models.DefaultAmuletTimeoutMs
	}
	now := func() time.Time { return time.Now().UTC() }
	return &GuildRepository{
		doc:              models.NewDocument(now()),
		store:            store,
		resolver:         resolver,
		logger:           logger,
		metrics:          metrics,
		defaultTimeoutMs: timeoutMs,
		now:              now,
	}
}

// Initialize loads the document, creating and persisting an empty one on first run,
// then applies migrations.
func (r *GuildRepository) Initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.EnsureDirs(); err != nil {
		return err
	}

	doc, err := r.store.Read()
	if err != nil {
		return err
	}
	if doc == nil {
		r.logger.Infof(providers.TypeStore, "No document found, creating an empty one")
		r.doc = models.NewDocument(r.now())
		if err := r.store.Write(r.doc); err != nil {
			return err
		}
	} else {
		r.doc = doc
	}

	applied := runMigrations(r.doc, r.defaultTimeoutMs)
	if len(applied) > 0 {
		r.logger.Warnf(providers.TypeStore, "Applied document migrations: %v", applied)
		if err := r.persistLocked(); err != nil {
			return err
		}
	}
	r.publishTotalsLocked()
	r.logger.Infof(providers.TypeStore, "Document loaded: %d guilds, %d users",
		r.doc.GlobalMetadata.TotalGuilds, r.doc.GlobalMetadata.TotalUsers)
	return nil
}

func (r *GuildRepository) GetGuild(guildID string) (*models.GuildRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.doc.Guilds.Get(guildID)
	if !ok {
		return nil, false
	}
	return g.Clone(), true
}

// CreateGuild returns the existing record when the guild is already known.
func (r *GuildRepository) CreateGuild(guildID string) (*models.GuildRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, created := r.ensureGuildLocked(guildID)
	if !created {
		return g.Clone(), nil
	}
	err := r.persistLocked()
	return g.Clone(), err
}

func (r *GuildRepository) GetUserProfile(userID, guildID string) (*models.UserProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.doc.Guilds.Get(guildID)
	if !ok {
		return nil, false
	}
	p, ok := g.Users.Get(userID)
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// UpsertUserProfile creates the profile on first sight, asking the resolver for the
// username, and applies update to it. The guild is created too when missing.
func (r *GuildRepository) UpsertUserProfile(ctx context.Context, userID, guildID string, update ProfileUpdate) (*models.UserProfile, error) {
	if err := update.Stats.validate(); err != nil {
		return nil, err
	}

	var username string
	if _, exists := r.GetUserProfile(userID, guildID); !exists {
		name, err := r.resolver.ResolveUsername(ctx, userID)
		if err != nil {
			return nil, &IdentityResolutionError{UserID: userID, Err: err}
		}
		username = name
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	g, _ := r.ensureGuildLocked(guildID)
	p, ok := g.Users.Get(userID)
	if !ok {
		// The profile may have appeared while the resolver was called; only a
		// missing one is created here.
		if username == "" {
			username = userID
		}
		p = models.NewUserProfile(userID, guildID, username, now)
		g.Users.Set(userID, p)
		g.Metadata.TotalUsers++
		r.doc.GlobalMetadata.TotalUsers++
		r.logger.Debugf(providers.TypeStore, "Created profile %s in guild %s", userID, guildID)
	}
	update.apply(p, now)
	g.Metadata.LastActivity = now

	err := r.persistLocked()
	return p.Clone(), err
}

func (r *GuildRepository) RecordCommandUse(ctx context.Context, userID, guildID, command string) error {
	seen := r.now()
	_, err := r.UpsertUserProfile(ctx, userID, guildID, ProfileUpdate{
		LastSeen:   &seen,
		CommandUse: command,
	})
	return err
}

func (r *GuildRepository) GetGameState(guildID string) (models.GameState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.doc.Guilds.Get(guildID)
	if !ok {
		return models.GameState{}, false
	}
	return g.GameState.Clone(), true
}

func (r *GuildRepository) UpdateGameState(guildID string, update GameStateUpdate) error {
	if err := update.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.doc.Guilds.Get(guildID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrGuildNotFound, guildID)
	}
	now := r.now()
	if err := update.apply(&g.GameState, now); err != nil {
		return err
	}
	g.Metadata.LastActivity = now
	return r.persistLocked()
}

func (r *GuildRepository) UpdateLeaderboard(guildID, category, userID, username string, score int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.doc.Guilds.Get(guildID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrGuildNotFound, guildID)
	}
	board := g.Leaderboard(category)
	board.Set(userID, &models.LeaderboardEntry{
		UserID:      userID,
		Username:    username,
		Score:       score,
		LastUpdated: r.now(),
	})
	models.RerankBoard(board)
	return r.persistLocked()
}

// GetLeaderboard returns the category best first; unknown guilds or categories are empty.
func (r *GuildRepository) GetLeaderboard(guildID, category string) []models.LeaderboardEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.doc.Guilds.Get(guildID)
	if !ok {
		return []models.LeaderboardEntry{}
	}
	board, ok := g.Leaderboards[category]
	if !ok {
		return []models.LeaderboardEntry{}
	}
	return models.BoardEntries(board)
}

// CreateBackup copies the persisted file and records the time in the global metadata.
// It holds the write lock, so no write can be in flight while the file is copied.
func (r *GuildRepository) CreateBackup() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	path, err := r.store.Backup(now)
	if err != nil {
		r.logger.Errorf(providers.TypeStore, "Backup failed: %s", err)
		return "", err
	}
	r.doc.GlobalMetadata.LastBackup = &now
	return path, r.persistLocked()
}

func (r *GuildRepository) ListGuildIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.doc.Guilds.Keys()
}

func (r *GuildRepository) Totals() (guilds, users int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.doc.Guilds.Len(), r.doc.GlobalMetadata.TotalUsers
}

// ensureGuildLocked returns the guild, creating a default record when missing.
func (r *GuildRepository) ensureGuildLocked(guildID string) (*models.GuildRecord, bool) {
	if g, ok := r.doc.Guilds.Get(guildID); ok {
		return g, false
	}
	g := models.NewGuildRecord(guildID, r.defaultTimeoutMs, r.now())
	r.doc.Guilds.Set(guildID, g)
	r.doc.GlobalMetadata.TotalGuilds++
	r.logger.Infof(providers.TypeStore, "Created guild %s", guildID)
	return g, true
}

// persistLocked writes the whole document. On failure the in-memory mutation stays.
func (r *GuildRepository) persistLocked() error {
	r.doc.GlobalMetadata.UpdatedAt = r.now()
	r.publishTotalsLocked()
	if err := r.store.Write(r.doc); err != nil {
		r.logger.Errorf(providers.TypeStore, "Error while persisting document: %s", err)
		return err
	}
	return nil
}

func (r *GuildRepository) publishTotalsLocked() {
	r.metrics.SetGuildsTotal(r.doc.Guilds.Len())
	r.metrics.SetUsersTotal(r.doc.GlobalMetadata.TotalUsers)
}
