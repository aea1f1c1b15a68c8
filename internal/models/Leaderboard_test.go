package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(scores ...int64) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(scores))
	for i, s := range scores {
		out = append(out, LeaderboardEntry{UserID: string(rune('a' + i)), Score: s})
	}
	return out
}

func ids(es []LeaderboardEntry) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.UserID)
	}
	return out
}

func TestRankEntries_DescendingWithDenseRanks(t *testing.T) {
	ranked := RankEntries(entries(10, 30, 20))

	assert.Equal(t, []string{"b", "c", "a"}, ids(ranked))
	for i, e := range ranked {
		assert.Equal(t, i+1, e.Rank)
	}
}

func TestRankEntries_TiesKeepInputOrder(t *testing.T) {
	ranked := RankEntries(entries(5, 7, 5, 5))
	assert.Equal(t, []string{"b", "a", "c", "d"}, ids(ranked))
}

func TestRankEntries_Idempotent(t *testing.T) {
	once := RankEntries(entries(1, 4, 4, 2))
	twice := RankEntries(once)
	assert.Equal(t, once, twice)
}

func TestRankEntries_DoesNotMutateInput(t *testing.T) {
	in := entries(1, 2)
	_ = RankEntries(in)
	assert.Equal(t, "a", in[0].UserID)
	assert.Equal(t, 0, in[0].Rank)
}

func TestRankEntries_Empty(t *testing.T) {
	assert.Empty(t, RankEntries(nil))
}

func TestRerankBoard_RewritesInRankedOrder(t *testing.T) {
	board := NewOrderedMap[*LeaderboardEntry]()
	board.Set("a", &LeaderboardEntry{UserID: "a", Score: 1})
	board.Set("b", &LeaderboardEntry{UserID: "b", Score: 9})
	board.Set("c", &LeaderboardEntry{UserID: "c", Score: 5})

	RerankBoard(board)

	assert.Equal(t, []string{"b", "c", "a"}, board.Keys())
	c, ok := board.Get("c")
	require.True(t, ok)
	assert.Equal(t, 2, c.Rank)
}

func TestRerankBoard_TieResolvesAgainstPreviousRanking(t *testing.T) {
	board := NewOrderedMap[*LeaderboardEntry]()
	board.Set("a", &LeaderboardEntry{UserID: "a", Score: 3})
	board.Set("b", &LeaderboardEntry{UserID: "b", Score: 5})
	RerankBoard(board)

	a, _ := board.Get("a")
	a.Score = 5
	RerankBoard(board)

	assert.Equal(t, []string{"b", "a"}, board.Keys())
}

func TestBoardEntries_RederivesRanks(t *testing.T) {
	board := NewOrderedMap[*LeaderboardEntry]()
	board.Set("a", &LeaderboardEntry{UserID: "a", Score: 1, Rank: 7})
	board.Set("b", &LeaderboardEntry{UserID: "b", Score: 2, Rank: 7})

	got := BoardEntries(board)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].UserID)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, 2, got[1].Rank)
}
