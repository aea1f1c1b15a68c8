package services

import (
	"amuletbot/internal/models"
	"fmt"
	"time"
)

// StatsDelta holds increments applied to a profile's stats. Negative values are rejected.
type StatsDelta struct {
	AmuletHeldCount  int
	AmuletHeldTimeMs int64
	GamesPlayed      int
}

func (d StatsDelta) validate() error {
	if d.AmuletHeldCount < 0 || d.AmuletHeldTimeMs < 0 || d.GamesPlayed < 0 {
		return fmt.Errorf("%w: negative stats delta %+v", ErrInvalidUpdate, d)
	}
	return nil
}

// ProfileUpdate lists the profile fields a caller may change. Nil fields are left alone.
type ProfileUpdate struct {
	Username    *string
	DisplayName *string
	LastSeen    *time.Time
	Preferences *models.UserPreferences
	// Achievements are added to the profile's set.
	Achievements []string
	Stats        StatsDelta
	// CommandUse, when set, bumps that command's usage counter.
	CommandUse string
}

func (u ProfileUpdate) apply(p *models.UserProfile, now time.Time) {
	if u.Username != nil {
		p.Username = *u.Username
	}
	if u.DisplayName != nil {
		p.DisplayName = *u.DisplayName
	}
	if u.LastSeen != nil {
		p.LastSeen = *u.LastSeen
	}
	if u.Preferences != nil {
		p.Preferences = *u.Preferences
	}
	for _, id := range u.Achievements {
		p.AddAchievement(id)
	}
	p.Stats.AmuletHeldCount += u.Stats.AmuletHeldCount
	p.Stats.AmuletHeldTimeMs += u.Stats.AmuletHeldTimeMs
	p.Stats.GamesPlayed += u.Stats.GamesPlayed
	if u.CommandUse != "" {
		if p.Stats.CommandUses == nil {
			p.Stats.CommandUses = models.NewOrderedMap[int]()
		}
		n, _ := p.Stats.CommandUses.Get(u.CommandUse)
		p.Stats.CommandUses.Set(u.CommandUse, n+1)
	}
	p.UpdatedAt = now
}

// AmuletClaim hands the free amulet to UserID in ChannelID at At.
type AmuletClaim struct {
	UserID    string
	ChannelID string
	At        time.Time
}

// GameStateUpdate lists the game-state changes a caller may make.
// Claim and Release are mutually exclusive.
type GameStateUpdate struct {
	Claim     *AmuletClaim
	Release   bool
	TimeoutMs *int64
	Settings  *models.GameSettings
	IsActive  *bool
}

func (u GameStateUpdate) validate() error {
	if u.Claim != nil && u.Release {
		return fmt.Errorf("%w: claim and release in one update", ErrInvalidUpdate)
	}
	if u.Claim != nil && (u.Claim.UserID == "" || u.Claim.ChannelID == "") {
		return fmt.Errorf("%w: claim needs a user and a channel", ErrInvalidUpdate)
	}
	if u.TimeoutMs != nil && *u.TimeoutMs <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidUpdate)
	}
	if u.Settings != nil && u.Settings.AmuletTimeoutMs < 0 {
		return fmt.Errorf("%w: settings timeout must not be negative", ErrInvalidUpdate)
	}
	return nil
}

func (u GameStateUpdate) apply(s *models.GameState, now time.Time) error {
	if u.Claim != nil {
		if s.Amulet.Held() {
			return fmt.Errorf("%w by %s", ErrAmuletHeld, s.Amulet.CurrentHolder)
		}
		s.Amulet.TransferHistory = append(s.Amulet.TransferHistory, models.TransferRecord{
			FromUserID:    s.Amulet.CurrentHolder,
			ToUserID:      u.Claim.UserID,
			TransferredAt: u.Claim.At,
			ChannelID:     u.Claim.ChannelID,
		})
		s.Amulet.CurrentHolder = u.Claim.UserID
		s.Amulet.ChannelID = u.Claim.ChannelID
		s.Amulet.LastTransferred = u.Claim.At
	}
	if u.Release {
		s.Amulet.CurrentHolder = ""
		s.Amulet.ChannelID = ""
	}
	if u.TimeoutMs != nil {
		s.Amulet.TimeoutMs = *u.TimeoutMs
	}
	if u.Settings != nil {
		settings := *u.Settings
		settings.GameChannels = append([]string{}, u.Settings.GameChannels...)
		settings.AdminRoles = append([]string{}, u.Settings.AdminRoles...)
		s.Settings = settings
	}
	if u.IsActive != nil {
		s.IsActive = *u.IsActive
	}
	s.LastActivity = now
	s.UpdatedAt = now
	return nil
}
