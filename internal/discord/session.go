package discord

import (
	"amuletbot/internal/providers"
	"amuletbot/internal/structures"
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

var ErrMissingToken = errors.New("discord token is not configured")

// NewSession builds a bot session with the guild intent only. It does not connect,
// so commands that never reach Discord work without a token.
func NewSession(conf *structures.Config) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + conf.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	return session, nil
}

type userFetcher interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
}

type messageSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// IdentityResolver looks users up through the REST API.
type IdentityResolver struct {
	users userFetcher
}

func NewIdentityResolver(session *discordgo.Session) *IdentityResolver {
	return &IdentityResolver{users: session}
}

// ResolveUsername prefers the global display name over the account name.
func (r *IdentityResolver) ResolveUsername(ctx context.Context, userID string) (string, error) {
	user, err := r.users.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("fetch user %s: %w", userID, err)
	}
	return displayName(user), nil
}

func displayName(user *discordgo.User) string {
	if user == nil {
		return ""
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}

type ChannelNotifier struct {
	sender messageSender
	logger providers.Logger
}

func NewChannelNotifier(session *discordgo.Session, logger providers.Logger) *ChannelNotifier {
	return &ChannelNotifier{sender: session, logger: logger}
}

func (n *ChannelNotifier) Notify(ctx context.Context, channelID, message string) error {
	if channelID == "" {
		return fmt.Errorf("no channel for message %q", message)
	}
	if _, err := n.sender.ChannelMessageSend(channelID, message, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send to channel %s: %w", channelID, err)
	}
	n.logger.Debugf(providers.TypeDiscord, "Sent message=%q to channelId=%s", message, channelID)
	return nil
}
