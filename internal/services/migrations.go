package services

import (
	"amuletbot/internal/models"
)

// migration repairs a loaded document in place and reports whether it changed anything.
// Every migration must be safe to run on an already migrated document.
type migration struct {
	name  string
	apply func(doc *models.Document, defaultTimeoutMs int64) bool
}

var migrations = []migration{
	{name: "stamp-schema-version", apply: stampSchemaVersion},
	{name: "fill-missing-collections", apply: fillMissingCollections},
	{name: "release-dangling-holder", apply: releaseDanglingHolder},
	{name: "recount-metadata", apply: recountMetadata},
}

// runMigrations applies all migrations in order and returns the names of those that changed the document.
func runMigrations(doc *models.Document, defaultTimeoutMs int64) []string {
	var applied []string
	for _, m := range migrations {
		if m.apply(doc, defaultTimeoutMs) {
			applied = append(applied, m.name)
		}
	}
	return applied
}

func stampSchemaVersion(doc *models.Document, _ int64) bool {
	changed := false
	if doc.GlobalMetadata.Version == "" {
		doc.GlobalMetadata.Version = models.SchemaVersion
		changed = true
	}
	doc.Guilds.Range(func(_ string, g *models.GuildRecord) bool {
		if g != nil && g.Metadata.Version == "" {
			g.Metadata.Version = models.SchemaVersion
			changed = true
		}
		return true
	})
	return changed
}

func fillMissingCollections(doc *models.Document, defaultTimeoutMs int64) bool {
	changed := false
	for _, guildID := range doc.Guilds.Keys() {
		g, _ := doc.Guilds.Get(guildID)
		if g == nil {
			doc.Guilds.Set(guildID, models.NewGuildRecord(guildID, defaultTimeoutMs, doc.GlobalMetadata.UpdatedAt))
			changed = true
			continue
		}
		if g.GuildID == "" {
			g.GuildID = guildID
			changed = true
		}
		if g.GameState.GuildID == "" {
			g.GameState.GuildID = guildID
			changed = true
		}
		if g.Users == nil {
			g.Users = models.NewOrderedMap[*models.UserProfile]()
			changed = true
		}
		for _, c := range models.DefaultCategories {
			if board, ok := g.Leaderboards[c]; !ok || board == nil {
				g.Leaderboard(c)
				changed = true
			}
		}
		if g.GameState.Amulet.TransferHistory == nil {
			g.GameState.Amulet.TransferHistory = []models.TransferRecord{}
			changed = true
		}
		if g.GameState.Settings.GameChannels == nil {
			g.GameState.Settings.GameChannels = []string{}
			changed = true
		}
		if g.GameState.Settings.AdminRoles == nil {
			g.GameState.Settings.AdminRoles = []string{}
			changed = true
		}
		if g.GameState.Amulet.TimeoutMs <= 0 {
			g.GameState.Amulet.TimeoutMs = defaultTimeoutMs
			changed = true
		}
		g.Users.Range(func(_ string, p *models.UserProfile) bool {
			if p == nil {
				return true
			}
			if p.Stats.CommandUses == nil {
				p.Stats.CommandUses = models.NewOrderedMap[int]()
				changed = true
			}
			if p.Achievements == nil {
				p.Achievements = []string{}
				changed = true
			}
			return true
		})
	}
	return changed
}

// releaseDanglingHolder frees amulets whose holder and channel disagree.
func releaseDanglingHolder(doc *models.Document, _ int64) bool {
	changed := false
	doc.Guilds.Range(func(_ string, g *models.GuildRecord) bool {
		a := &g.GameState.Amulet
		if (a.CurrentHolder == "") != (a.ChannelID == "") {
			a.CurrentHolder = ""
			a.ChannelID = ""
			changed = true
		}
		return true
	})
	return changed
}

func recountMetadata(doc *models.Document, _ int64) bool {
	changed := false
	total := 0
	doc.Guilds.Range(func(_ string, g *models.GuildRecord) bool {
		n := g.Users.Len()
		if g.Metadata.TotalUsers != n {
			g.Metadata.TotalUsers = n
			changed = true
		}
		total += n
		return true
	})
	if doc.GlobalMetadata.TotalUsers != total {
		doc.GlobalMetadata.TotalUsers = total
		changed = true
	}
	if doc.GlobalMetadata.TotalGuilds != doc.Guilds.Len() {
		doc.GlobalMetadata.TotalGuilds = doc.Guilds.Len()
		changed = true
	}
	return changed
}
