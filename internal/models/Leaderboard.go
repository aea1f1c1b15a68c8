package models

import (
	"cmp"
	"slices"
	"time"
)

type LeaderboardEntry struct {
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	Score       int64     `json:"score"`
	Rank        int       `json:"rank"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// RankEntries returns a copy of entries ordered by descending score with dense ranks 1..N.
// Equal scores keep their order in the input.
func RankEntries(entries []LeaderboardEntry) []LeaderboardEntry {
	ranked := slices.Clone(entries)
	slices.SortStableFunc(ranked, func(a, b LeaderboardEntry) int {
		return cmp.Compare(b.Score, a.Score)
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// RerankBoard recomputes ranks for a category and rewrites it in ranked order,
// so that later ties resolve against the previous ranking.
func RerankBoard(board *OrderedMap[*LeaderboardEntry]) {
	entries := make([]LeaderboardEntry, 0, board.Len())
	board.Range(func(_ string, e *LeaderboardEntry) bool {
		if e != nil {
			entries = append(entries, *e)
		}
		return true
	})

	board.Clear()
	for _, e := range RankEntries(entries) {
		entry := e
		board.Set(entry.UserID, &entry)
	}
}

// BoardEntries returns the category in ranked order, re-deriving ranks from scores.
func BoardEntries(board *OrderedMap[*LeaderboardEntry]) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, board.Len())
	board.Range(func(_ string, e *LeaderboardEntry) bool {
		if e != nil {
			entries = append(entries, *e)
		}
		return true
	})
	return RankEntries(entries)
}
