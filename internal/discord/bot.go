package discord

import (
	"amuletbot/internal/providers"
	"amuletbot/internal/structures"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Bot owns the gateway connection.
type Bot struct {
	conf    *structures.Config
	session *discordgo.Session
	handler *Handler
	logger  providers.Logger
	remove  func()
}

func NewBot(conf *structures.Config, session *discordgo.Session, handler *Handler, logger providers.Logger) *Bot {
	return &Bot{conf: conf, session: session, handler: handler, logger: logger}
}

func (b *Bot) Open() error {
	if b.conf.Discord.Token == "" {
		return ErrMissingToken
	}
	b.session.AddHandlerOnce(func(s *discordgo.Session, r *discordgo.Ready) {
		b.logger.Infof(providers.TypeDiscord, "Ready! Logged in as %s", r.User.String())
	})
	b.remove = b.session.AddHandler(b.handler.OnInteraction)
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	if b.remove != nil {
		b.remove()
	}
	return b.session.Close()
}

// DeployCommands registers the slash commands for the configured application.
func (b *Bot) DeployCommands() (int, error) {
	if b.conf.Discord.Token == "" {
		return 0, ErrMissingToken
	}
	if b.conf.Discord.AppID == "" {
		return 0, fmt.Errorf("discord.appId is not configured")
	}
	registered, err := RegisterCommands(b.session, b.conf.Discord.AppID, b.conf.Discord.GuildID)
	if err != nil {
		return 0, fmt.Errorf("register commands: %w", err)
	}
	b.logger.Infof(providers.TypeDiscord, "Successfully reloaded %d application (/) commands", len(registered))
	return len(registered), nil
}
