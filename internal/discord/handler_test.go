package discord

import (
	"amuletbot/internal/amulet"
	"amuletbot/internal/models"
	"amuletbot/internal/services"
	"amuletbot/internal/structures"
	"amuletbot/internal/testutil"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type handlerFixture struct {
	handler *Handler
	repo    services.GuildRepositoryInterface
	store   *testutil.MemoryStore
	clock   *testutil.ManualClock
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	conf := &structures.Config{Game: structures.GameConfig{AmuletTimeout: time.Minute}}
	logger := &testutil.MockLogger{}
	metrics := testutil.NewMockMetrics()
	store := testutil.NewMemoryStore()
	resolver := &testutil.MockIdentityResolver{Names: map[string]string{"u1": "alice", "u2": "bob"}}
	clock := testutil.NewManualClock(start)

	repo := services.NewGuildRepository(conf, store, resolver, logger, metrics)
	require.NoError(t, repo.Initialize())
	engine := amulet.NewEngine(conf, repo, &testutil.MockNotifier{}, clock, logger, metrics)

	return &handlerFixture{
		handler: NewHandler(engine, repo, logger),
		repo:    repo,
		store:   store,
		clock:   clock,
	}
}

func giveInvocation(from, target, targetName string) Invocation {
	return Invocation{
		Name:       CommandGive,
		GuildID:    "g1",
		ChannelID:  "c1",
		UserID:     from,
		TargetID:   target,
		TargetName: targetName,
	}
}

func TestHandle_Ping(t *testing.T) {
	f := newHandlerFixture(t)
	assert.Equal(t, "Pong!", f.handler.Handle(context.Background(), Invocation{Name: CommandPing}))
}

func TestHandle_User(t *testing.T) {
	f := newHandlerFixture(t)
	reply := f.handler.Handle(context.Background(), Invocation{
		Name:     CommandUser,
		Username: "alice",
		JoinedAt: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, "This command was run by alice, who joined on Tue Mar 05 2024.", reply)
}

func TestHandle_GiveThenRefuse(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()

	reply := f.handler.Handle(ctx, giveInvocation("u2", "u1", "alice"))
	assert.Equal(t, "✅ Successfully gave the amulet to alice!", reply)

	reply = f.handler.Handle(ctx, giveInvocation("u1", "u2", "bob"))
	assert.Equal(t, "❌ Cannot give the amulet. It's currently held by alice.", reply)
}

func TestHandle_GiveWithoutTarget(t *testing.T) {
	f := newHandlerFixture(t)
	reply := f.handler.Handle(context.Background(), giveInvocation("u1", "", ""))
	assert.Equal(t, "Please specify a user to give the amulet to.", reply)
}

func TestHandle_GiveOutsideGuild(t *testing.T) {
	f := newHandlerFixture(t)
	inv := giveInvocation("u1", "u2", "bob")
	inv.GuildID = ""
	assert.Equal(t, "The amulet can only be given inside a server.", f.handler.Handle(context.Background(), inv))
}

func TestHandle_GiveStorageFailureStillReportsSuccess(t *testing.T) {
	f := newHandlerFixture(t)
	_, err := f.repo.UpsertUserProfile(context.Background(), "u1", "g1", services.ProfileUpdate{})
	require.NoError(t, err)
	f.store.SetWriteErr(errors.New("disk full"))

	reply := f.handler.Handle(context.Background(), giveInvocation("u1", "u1", "alice"))
	assert.Equal(t, "✅ Successfully gave the amulet to alice!", reply)
}

func TestHandle_RecordsCommandUse(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()

	f.handler.Handle(ctx, Invocation{Name: CommandPing, GuildID: "g1", UserID: "u1"})
	f.handler.Handle(ctx, Invocation{Name: CommandPing, GuildID: "g1", UserID: "u1"})

	p, ok := f.repo.GetUserProfile("u1", "g1")
	require.True(t, ok)
	n, _ := p.Stats.CommandUses.Get(CommandPing)
	assert.Equal(t, 2, n)
}

func TestHandle_Holder(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()
	inv := Invocation{Name: CommandHolder, GuildID: "g1"}

	assert.Equal(t, "Nobody holds the amulet. Use /give to hand it out.", f.handler.Handle(ctx, inv))

	f.handler.Handle(ctx, giveInvocation("u2", "u1", "alice"))
	assert.Equal(t, "alice currently holds the amulet.", f.handler.Handle(ctx, inv))

	f.clock.Advance(time.Minute)
	assert.Equal(t, "Nobody holds the amulet. Use /give to hand it out.", f.handler.Handle(ctx, inv))
}

func TestHandle_Leaderboard(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()

	empty := f.handler.Handle(ctx, Invocation{Name: CommandLeaderboard, GuildID: "g1"})
	assert.Equal(t, "No entries yet for amulet-time.", empty)

	f.handler.Handle(ctx, giveInvocation("u2", "u1", "alice"))
	f.clock.Advance(time.Minute)

	reply := f.handler.Handle(ctx, Invocation{Name: CommandLeaderboard, GuildID: "g1"})
	assert.Equal(t, "Leaderboard: amulet-time\n1. alice: 1m0s", reply)

	reply = f.handler.Handle(ctx, Invocation{Name: CommandLeaderboard, GuildID: "g1", Category: models.CategoryAmuletCount})
	assert.Equal(t, "Leaderboard: amulet-count\n1. alice: 1", reply)
}

func TestFormatLeaderboard_Truncates(t *testing.T) {
	entries := make([]models.LeaderboardEntry, 0, 15)
	for i := 0; i < 15; i++ {
		entries = append(entries, models.LeaderboardEntry{UserID: "u", Username: "n", Score: int64(15 - i), Rank: i + 1})
	}
	out := formatLeaderboard(models.CategoryAmuletCount, entries)
	assert.Equal(t, leaderboardSize+1, len(strings.Split(out, "\n")))
}

func TestHandle_Backup(t *testing.T) {
	f := newHandlerFixture(t)
	reply := f.handler.Handle(context.Background(), Invocation{Name: CommandBackup, GuildID: "g1", UserID: "u1"})
	assert.True(t, strings.HasPrefix(reply, "Backup written to backup-"))

	f.store.BackupErr = errors.New("no space")
	reply = f.handler.Handle(context.Background(), Invocation{Name: CommandBackup, GuildID: "g1", UserID: "u1"})
	assert.Equal(t, "Backup failed. Check the logs.", reply)
}

func TestHandle_Unknown(t *testing.T) {
	f := newHandlerFixture(t)
	assert.Equal(t, "Unknown command.", f.handler.Handle(context.Background(), Invocation{Name: "dance"}))
}

func TestParseInvocation_GuildCommand(t *testing.T) {
	joined := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "g1",
		ChannelID: "c1",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "u1", Username: "alice"}, JoinedAt: joined},
		Data: discordgo.ApplicationCommandInteractionData{
			Name: CommandGive,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: optionTarget, Type: discordgo.ApplicationCommandOptionUser, Value: "u2"},
			},
			Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
				Users:   map[string]*discordgo.User{"u2": {ID: "u2", Username: "bob"}},
				Members: map[string]*discordgo.Member{"u2": {Nick: "Bobby"}},
			},
		},
	}}

	inv, ok := parseInvocation(i)
	require.True(t, ok)
	assert.Equal(t, CommandGive, inv.Name)
	assert.Equal(t, "g1", inv.GuildID)
	assert.Equal(t, "c1", inv.ChannelID)
	assert.Equal(t, "u1", inv.UserID)
	assert.Equal(t, "alice", inv.Username)
	assert.True(t, inv.JoinedAt.Equal(joined))
	assert.Equal(t, "u2", inv.TargetID)
	assert.Equal(t, "Bobby", inv.TargetName)
}

func TestParseInvocation_DirectMessage(t *testing.T) {
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		User: &discordgo.User{ID: "u1", Username: "alice"},
		Data: discordgo.ApplicationCommandInteractionData{
			Name: CommandLeaderboard,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: optionCategory, Type: discordgo.ApplicationCommandOptionString, Value: models.CategoryAmuletCount},
			},
		},
	}}

	inv, ok := parseInvocation(i)
	require.True(t, ok)
	assert.Empty(t, inv.GuildID)
	assert.Equal(t, "u1", inv.UserID)
	assert.Equal(t, models.CategoryAmuletCount, inv.Category)
}

func TestParseInvocation_IgnoresOtherInteractions(t *testing.T) {
	_, ok := parseInvocation(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{Type: discordgo.InteractionPing}})
	assert.False(t, ok)
	_, ok = parseInvocation(nil)
	assert.False(t, ok)
}

func TestCommands_Definitions(t *testing.T) {
	names := make([]string, 0)
	for _, c := range Commands() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{CommandGive, CommandPing, CommandUser, CommandHolder, CommandLeaderboard, CommandBackup}, names)

	give := Commands()[0]
	require.Len(t, give.Options, 1)
	assert.True(t, give.Options[0].Required)
	assert.Equal(t, discordgo.ApplicationCommandOptionUser, give.Options[0].Type)
}
