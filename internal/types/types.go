// Package types defines the core domain models for flowerboard (fbd).
// It contains the ledger entry model, the aggregated rank summary served
// over HTTP and WebSocket, and the typed real-time messages pushed to
// subscribers.
package types

// Version is the current version of fbd
const Version = "0.2.0"

// BuildTime is set at build time via -ldflags
var BuildTime = "dev"

// DefaultAnnouncement is shown when no announcement has ever been posted.
const DefaultAnnouncement = "Welcome to the announcement board! 🎉"

// Unranked is the latestRank value for a sender that is absent from the
// ledger or was not asked for.
const Unranked = -1

// Entry is a single ledger row: one sender's running flower total for one
// country. Rows are identified by the exact (name, country) pair, compared
// case-sensitively with no trimming.
type Entry struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	Flowers int    `json:"flowers"`
}

// CountryTotal is the summed flower count for one country.
type CountryTotal struct {
	Country string `json:"country"`
	Flowers int    `json:"flowers"`
}

// RankSummary is the aggregated view computed from a full ledger snapshot.
type RankSummary struct {
	TopSenders   []Entry        `json:"topSenders"`   // up to 30 entries, flowers descending
	TopCountries []CountryTotal `json:"topCountries"` // up to 10 countries, flowers descending
	LatestRank   int            `json:"latestRank"`   // 1-based rank of the focus sender, or Unranked
}

// WebSocket message type tags.
const (
	MessageAnnouncement = "announcement"
	MessageRankUpdate   = "rankUpdate"
)

// AnnouncementMessage is pushed when the announcement changes and as the
// first message after a subscriber connects.
type AnnouncementMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RankUpdateMessage carries a fresh aggregation to subscribers.
type RankUpdateMessage struct {
	Type  string      `json:"type"`
	Ranks RankSummary `json:"ranks"`
}
