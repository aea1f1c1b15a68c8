package discord

import (
	"amuletbot/internal/structures"
	"amuletbot/internal/testutil"
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	users map[string]*discordgo.User
	err   error
}

func (f *fakeUsers) User(userID string, _ ...discordgo.RequestOption) (*discordgo.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, errors.New("404 Not Found")
	}
	return u, nil
}

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, channelID+":"+content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func TestIdentityResolver_PrefersGlobalName(t *testing.T) {
	r := &IdentityResolver{users: &fakeUsers{users: map[string]*discordgo.User{
		"u1": {ID: "u1", Username: "alice_01", GlobalName: "Alice"},
		"u2": {ID: "u2", Username: "bob"},
	}}}

	name, err := r.ResolveUsername(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)

	name, err = r.ResolveUsername(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, "bob", name)
}

func TestIdentityResolver_Error(t *testing.T) {
	r := &IdentityResolver{users: &fakeUsers{users: map[string]*discordgo.User{}}}
	_, err := r.ResolveUsername(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestChannelNotifier_Sends(t *testing.T) {
	sender := &fakeSender{}
	n := &ChannelNotifier{sender: sender, logger: &testutil.MockLogger{}}

	require.NoError(t, n.Notify(context.Background(), "c1", "hello"))
	assert.Equal(t, []string{"c1:hello"}, sender.sent)
}

func TestChannelNotifier_Errors(t *testing.T) {
	n := &ChannelNotifier{sender: &fakeSender{err: errors.New("missing access")}, logger: &testutil.MockLogger{}}
	assert.Error(t, n.Notify(context.Background(), "c1", "hello"))
	assert.Error(t, n.Notify(context.Background(), "", "hello"))
}

func TestNewSession_UsesBotToken(t *testing.T) {
	s, err := NewSession(&structures.Config{Discord: structures.DiscordConfig{Token: "abc"}})
	require.NoError(t, err)
	assert.Equal(t, "Bot abc", s.Token)
	assert.Equal(t, discordgo.IntentsGuilds, s.Identify.Intents)
}

func TestBot_RequiresToken(t *testing.T) {
	conf := &structures.Config{}
	session, err := NewSession(conf)
	require.NoError(t, err)
	bot := NewBot(conf, session, nil, &testutil.MockLogger{})

	assert.ErrorIs(t, bot.Open(), ErrMissingToken)
	_, err = bot.DeployCommands()
	assert.ErrorIs(t, err, ErrMissingToken)
}
