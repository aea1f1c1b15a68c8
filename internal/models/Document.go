package models

import "time"

const (
	SchemaVersion = "1.0.0"

	CategoryAmuletTime  = "amulet-time"
	CategoryAmuletCount = "amulet-count"
	CategoryGamesPlayed = "games-played"

	DefaultAmuletTimeoutMs int64 = 60000
)

// DefaultCategories are created empty with every guild.
var DefaultCategories = []string{CategoryAmuletTime, CategoryAmuletCount, CategoryGamesPlayed}

// Document is the whole persisted state of the bot.
type Document struct {
	Guilds         *OrderedMap[*GuildRecord] `json:"guilds"`
	GlobalMetadata GlobalMetadata            `json:"globalMetadata"`
}

type GlobalMetadata struct {
	Version     string     `json:"version"`
	TotalGuilds int        `json:"totalGuilds"`
	TotalUsers  int        `json:"totalUsers"`
	LastBackup  *time.Time `json:"lastBackup,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type GuildMetadata struct {
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	TotalUsers   int       `json:"totalUsers"`
	Version      string    `json:"version"`
}

// GuildRecord holds everything the bot knows about one guild.
type GuildRecord struct {
	GuildID      string                                    `json:"guildId"`
	Users        *OrderedMap[*UserProfile]                 `json:"users"`
	GameState    GameState                                 `json:"gameState"`
	Leaderboards map[string]*OrderedMap[*LeaderboardEntry] `json:"leaderboards"`
	Metadata     GuildMetadata                             `json:"metadata"`
}

func NewDocument(now time.Time) *Document {
	return &Document{
		Guilds: NewOrderedMap[*GuildRecord](),
		GlobalMetadata: GlobalMetadata{
			Version:   SchemaVersion,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// NewGuildRecord builds a guild in the Free state with empty default leaderboards.
func NewGuildRecord(guildID string, timeoutMs int64, now time.Time) *GuildRecord {
	if timeoutMs <= 0 {
		timeoutMs = DefaultAmuletTimeoutMs
	}
	leaderboards := make(map[string]*OrderedMap[*LeaderboardEntry], len(DefaultCategories))
	for _, c := range DefaultCategories {
		leaderboards[c] = NewOrderedMap[*LeaderboardEntry]()
	}
	return &GuildRecord{
		GuildID: guildID,
		Users:   NewOrderedMap[*UserProfile](),
		GameState: GameState{
			GuildID: guildID,
			Amulet: AmuletState{
				TimeoutMs:       timeoutMs,
				LastTransferred: now,
				TransferHistory: []TransferRecord{},
			},
			Settings: GameSettings{
				AmuletTimeoutMs:     timeoutMs,
				EnableNotifications: true,
				GameChannels:        []string{},
				AdminRoles:          []string{},
			},
			IsActive:     true,
			LastActivity: now,
			UpdatedAt:    now,
		},
		Leaderboards: leaderboards,
		Metadata: GuildMetadata{
			CreatedAt:    now,
			LastActivity: now,
			Version:      SchemaVersion,
		},
	}
}

// Leaderboard returns the category map, creating it when missing.
func (g *GuildRecord) Leaderboard(category string) *OrderedMap[*LeaderboardEntry] {
	if g.Leaderboards == nil {
		g.Leaderboards = make(map[string]*OrderedMap[*LeaderboardEntry])
	}
	board, ok := g.Leaderboards[category]
	if !ok || board == nil {
		board = NewOrderedMap[*LeaderboardEntry]()
		g.Leaderboards[category] = board
	}
	return board
}

func (g *GuildRecord) Clone() *GuildRecord {
	if g == nil {
		return nil
	}
	out := *g
	out.Users = g.Users.CloneFunc((*UserProfile).Clone)
	out.GameState = g.GameState.Clone()
	out.Leaderboards = make(map[string]*OrderedMap[*LeaderboardEntry], len(g.Leaderboards))
	for category, board := range g.Leaderboards {
		out.Leaderboards[category] = board.CloneFunc(func(e *LeaderboardEntry) *LeaderboardEntry {
			if e == nil {
				return nil
			}
			c := *e
			return &c
		})
	}
	return &out
}
