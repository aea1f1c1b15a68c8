package models

import (
	"slices"
	"time"
)

// TransferRecord is one entry of the append-only amulet history.
type TransferRecord struct {
	FromUserID    string    `json:"fromUserId,omitempty"`
	ToUserID      string    `json:"toUserId"`
	TransferredAt time.Time `json:"transferredAt"`
	ChannelID     string    `json:"channelId"`
}

// AmuletState is Free when CurrentHolder is empty. ChannelID is set iff CurrentHolder is.
type AmuletState struct {
	CurrentHolder   string           `json:"currentHolder"`
	ChannelID       string           `json:"channelId"`
	TimeoutMs       int64            `json:"timeoutMs"`
	LastTransferred time.Time        `json:"lastTransferred"`
	TransferHistory []TransferRecord `json:"transferHistory"`
}

func (a AmuletState) Held() bool {
	return a.CurrentHolder != ""
}

type GameSettings struct {
	AmuletTimeoutMs     int64    `json:"amuletTimeoutMs"`
	EnableNotifications bool     `json:"enableNotifications"`
	GameChannels        []string `json:"gameChannels"`
	AdminRoles          []string `json:"adminRoles"`
}

type GameState struct {
	GuildID      string       `json:"guildId"`
	Amulet       AmuletState  `json:"amulet"`
	Settings     GameSettings `json:"settings"`
	IsActive     bool         `json:"isActive"`
	LastActivity time.Time    `json:"lastActivity"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// EffectiveTimeout picks the guild setting, then the amulet's own timeout, then fallback.
func (s GameState) EffectiveTimeout(fallback time.Duration) time.Duration {
	switch {
	case s.Settings.AmuletTimeoutMs > 0:
		return time.Duration(s.Settings.AmuletTimeoutMs) * time.Millisecond
	case s.Amulet.TimeoutMs > 0:
		return time.Duration(s.Amulet.TimeoutMs) * time.Millisecond
	default:
		return fallback
	}
}

func (s GameState) Clone() GameState {
	out := s
	out.Amulet.TransferHistory = cloneSlice(s.Amulet.TransferHistory)
	out.Settings.GameChannels = cloneSlice(s.Settings.GameChannels)
	out.Settings.AdminRoles = cloneSlice(s.Settings.AdminRoles)
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return slices.Clone(in)
}
