package discord

import (
	"amuletbot/internal/amulet"
	"amuletbot/internal/models"
	"amuletbot/internal/providers"
	"amuletbot/internal/services"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	commandTimeout  = 15 * time.Second
	leaderboardSize = 10
)

// Invocation is a slash command reduced to what the handlers need.
type Invocation struct {
	Name       string
	GuildID    string
	ChannelID  string
	UserID     string
	Username   string
	JoinedAt   time.Time
	TargetID   string
	TargetName string
	Category   string
}

type Handler struct {
	engine amulet.EngineInterface
	repo   services.GuildRepositoryInterface
	logger providers.Logger
}

func NewHandler(engine amulet.EngineInterface, repo services.GuildRepositoryInterface, logger providers.Logger) *Handler {
	return &Handler{engine: engine, repo: repo, logger: logger}
}

// Handle runs one command and returns the reply text.
func (h *Handler) Handle(ctx context.Context, inv Invocation) string {
	if inv.GuildID != "" && inv.UserID != "" {
		if err := h.repo.RecordCommandUse(ctx, inv.UserID, inv.GuildID, inv.Name); err != nil {
			h.logger.Warnf(providers.TypeDiscord, "Could not record /%s by %s: %s", inv.Name, inv.UserID, err)
		}
	}

	switch inv.Name {
	case CommandPing:
		return "Pong!"
	case CommandUser:
		return h.user(inv)
	case CommandGive:
		return h.give(ctx, inv)
	case CommandHolder:
		return h.holder(inv)
	case CommandLeaderboard:
		return h.leaderboard(inv)
	case CommandBackup:
		return h.backup(inv)
	default:
		h.logger.Warnf(providers.TypeDiscord, "Unknown command /%s", inv.Name)
		return "Unknown command."
	}
}

func (h *Handler) user(inv Invocation) string {
	if inv.JoinedAt.IsZero() {
		return fmt.Sprintf("This command was run by %s.", inv.Username)
	}
	return fmt.Sprintf("This command was run by %s, who joined on %s.", inv.Username, inv.JoinedAt.UTC().Format("Mon Jan 02 2006"))
}

func (h *Handler) give(ctx context.Context, inv Invocation) string {
	if inv.GuildID == "" {
		return "The amulet can only be given inside a server."
	}
	if inv.TargetID == "" {
		return "Please specify a user to give the amulet to."
	}

	ok, err := h.engine.Give(ctx, inv.TargetID, inv.ChannelID, inv.GuildID)
	if err != nil {
		h.logger.Errorf(providers.TypeDiscord, "Error in give command: %s", err)
		if !ok {
			return "An error occurred while giving the amulet. Please try again."
		}
	}
	if ok {
		return fmt.Sprintf("✅ Successfully gave the amulet to %s!", inv.TargetName)
	}

	holderName := "someone"
	if holder, held := h.engine.CurrentHolder(inv.GuildID); held {
		holderName = holder.Name()
	}
	return fmt.Sprintf("❌ Cannot give the amulet. It's currently held by %s.", holderName)
}

func (h *Handler) holder(inv Invocation) string {
	if inv.GuildID == "" {
		return "There is no amulet outside a server."
	}
	holder, held := h.engine.CurrentHolder(inv.GuildID)
	if !held {
		return "Nobody holds the amulet. Use /give to hand it out."
	}
	return fmt.Sprintf("%s currently holds the amulet.", holder.Name())
}

func (h *Handler) leaderboard(inv Invocation) string {
	if inv.GuildID == "" {
		return "Leaderboards only exist inside a server."
	}
	category := inv.Category
	if category == "" {
		category = models.CategoryAmuletTime
	}
	entries := h.repo.GetLeaderboard(inv.GuildID, category)
	if len(entries) == 0 {
		return fmt.Sprintf("No entries yet for %s.", category)
	}
	return formatLeaderboard(category, entries)
}

func formatLeaderboard(category string, entries []models.LeaderboardEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Leaderboard: %s", category)
	for i, e := range entries {
		if i == leaderboardSize {
			break
		}
		fmt.Fprintf(&b, "\n%d. %s: %s", e.Rank, e.Username, formatScore(category, e.Score))
	}
	return b.String()
}

func formatScore(category string, score int64) string {
	if category == models.CategoryAmuletTime {
		return (time.Duration(score) * time.Millisecond).Round(time.Second).String()
	}
	return fmt.Sprintf("%d", score)
}

func (h *Handler) backup(inv Invocation) string {
	path, err := h.repo.CreateBackup()
	if err != nil {
		h.logger.Errorf(providers.TypeDiscord, "Backup requested by %s failed: %s", inv.UserID, err)
		return "Backup failed. Check the logs."
	}
	return fmt.Sprintf("Backup written to %s.", path)
}

// parseInvocation extracts an Invocation from a slash command interaction.
func parseInvocation(i *discordgo.InteractionCreate) (Invocation, bool) {
	if i == nil || i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return Invocation{}, false
	}
	data := i.ApplicationCommandData()
	inv := Invocation{
		Name:      data.Name,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		inv.UserID = i.Member.User.ID
		inv.Username = i.Member.User.Username
		inv.JoinedAt = i.Member.JoinedAt
	case i.User != nil:
		inv.UserID = i.User.ID
		inv.Username = i.User.Username
	}

	for _, opt := range data.Options {
		switch opt.Name {
		case optionTarget:
			id, _ := opt.Value.(string)
			inv.TargetID = id
			inv.TargetName = id
			if data.Resolved != nil {
				if u, ok := data.Resolved.Users[id]; ok {
					inv.TargetName = u.Username
				}
				if m, ok := data.Resolved.Members[id]; ok && m.Nick != "" {
					inv.TargetName = m.Nick
				}
			}
		case optionCategory:
			inv.Category, _ = opt.Value.(string)
		}
	}
	return inv, true
}

// OnInteraction answers slash commands. /give is deferred first since it may call the API.
func (h *Handler) OnInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	inv, ok := parseInvocation(i)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if inv.Name != CommandGive {
		reply := h.Handle(ctx, inv)
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: reply},
		}, discordgo.WithContext(ctx))
		if err != nil {
			h.logger.Errorf(providers.TypeDiscord, "Failed to answer /%s: %s", inv.Name, err)
		}
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}, discordgo.WithContext(ctx))
	if err != nil {
		h.logger.Errorf(providers.TypeDiscord, "Failed to defer /%s: %s", inv.Name, err)
		return
	}
	reply := h.Handle(ctx, inv)
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &reply}, discordgo.WithContext(ctx)); err != nil {
		h.logger.Errorf(providers.TypeDiscord, "Failed to edit reply of /%s: %s", inv.Name, err)
	}
}
