package models

import (
	"slices"
	"time"
)

type UserStats struct {
	AmuletHeldCount  int              `json:"amuletHeldCount"`
	AmuletHeldTimeMs int64            `json:"amuletHeldTimeMs"`
	GamesPlayed      int              `json:"gamesPlayed"`
	CommandUses      *OrderedMap[int] `json:"commandUses"`
}

type UserPreferences struct {
	Notifications bool   `json:"notifications"`
	Timezone      string `json:"timezone,omitempty"`
}

// UserProfile is a user's identity and stats within one guild.
type UserProfile struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	DisplayName  string          `json:"displayName,omitempty"`
	GuildID      string          `json:"guildId"`
	JoinedAt     time.Time       `json:"joinedAt"`
	LastSeen     time.Time       `json:"lastSeen"`
	Stats        UserStats       `json:"stats"`
	Preferences  UserPreferences `json:"preferences"`
	Achievements []string        `json:"achievements"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func NewUserProfile(userID, guildID, username string, now time.Time) *UserProfile {
	return &UserProfile{
		ID:       userID,
		Username: username,
		GuildID:  guildID,
		JoinedAt: now,
		LastSeen: now,
		Stats: UserStats{
			CommandUses: NewOrderedMap[int](),
		},
		Preferences:  UserPreferences{Notifications: true},
		Achievements: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Name is the guild nickname when set, the username otherwise.
func (p *UserProfile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}

// AddAchievement adds id to the achievement set and reports whether it was new.
func (p *UserProfile) AddAchievement(id string) bool {
	if id == "" || slices.Contains(p.Achievements, id) {
		return false
	}
	p.Achievements = append(p.Achievements, id)
	return true
}

func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	out := *p
	out.Stats.CommandUses = p.Stats.CommandUses.CloneFunc(func(n int) int { return n })
	out.Achievements = slices.Clone(p.Achievements)
	if out.Achievements == nil {
		out.Achievements = []string{}
	}
	return &out
}
