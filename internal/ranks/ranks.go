// Package ranks computes leaderboard aggregations from a ledger snapshot.
// Everything here is a pure function of its input: no I/O, no mutation of
// the snapshot, deterministic output.
package ranks

import (
	"sort"
	"strconv"
	"strings"

	"flowerboard.live/fbd/internal/types"
)

const (
	topSenderLimit  = 30
	topCountryLimit = 10
)

// ParseTotal converts a raw total cell into a flower count. Non-numeric,
// missing, or negative values count as zero so that a single malformed row
// never fails a whole aggregation pass.
func ParseTotal(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Aggregate computes the rank summary for a ledger snapshot: the top
// senders by flower count, per-country totals, and the 1-based rank of
// focusName within the full descending-sorted list.
//
// The sort is stable, so senders with equal totals keep their ledger row
// order. Countries with equal totals keep the order in which they first
// appear while walking the sorted list. An empty or absent focusName
// yields types.Unranked.
func Aggregate(rows []types.Entry, focusName string) types.RankSummary {
	sorted := make([]types.Entry, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Flowers > sorted[j].Flowers
	})

	top := sorted
	if len(top) > topSenderLimit {
		top = top[:topSenderLimit]
	}
	topSenders := append([]types.Entry{}, top...)

	sums := make(map[string]int, len(sorted))
	order := make([]string, 0, len(sorted))
	for _, e := range sorted {
		if _, seen := sums[e.Country]; !seen {
			order = append(order, e.Country)
		}
		sums[e.Country] += e.Flowers
	}

	countries := make([]types.CountryTotal, 0, len(order))
	for _, c := range order {
		countries = append(countries, types.CountryTotal{Country: c, Flowers: sums[c]})
	}
	sort.SliceStable(countries, func(i, j int) bool {
		return countries[i].Flowers > countries[j].Flowers
	})
	if len(countries) > topCountryLimit {
		countries = countries[:topCountryLimit]
	}

	latest := types.Unranked
	if focusName != "" {
		for i, e := range sorted {
			if e.Name == focusName {
				latest = i + 1
				break
			}
		}
	}

	return types.RankSummary{
		TopSenders:   topSenders,
		TopCountries: countries,
		LatestRank:   latest,
	}
}
