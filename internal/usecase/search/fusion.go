package search

import (
	"sort"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/point"
)

// scored is one ticket with its accumulated similarity.
type scored struct {
	ticketID string
	score    float64
}

// fuse sums similarities per ticket over every hit of every list.
// A ticket missing from a list gets nothing from it. Lists are walked in the given order,
// and equal scores keep the order in which tickets were first seen.
func fuse(lists [][]point.Hit) []scored {
	index := make(map[string]int)
	var out []scored

	for _, hits := range lists {
		for _, h := range hits {
			i, ok := index[h.TicketID]
			if !ok {
				i = len(out)
				index[h.TicketID] = i
				out = append(out, scored{ticketID: h.TicketID})
			}
			out[i].score += h.Score
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	return out
}

// topIDs returns the ticket ids of the first k entries.
func topIDs(ranked []scored, k int) []string {
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	ids := make([]string, len(ranked))
	for i, s := range ranked {
		ids[i] = s.ticketID
	}
	return ids
}
