package models

import "time"

// Option color used when a request omits one
const DefaultOptionColor = "#007bff"

// Option count bounds per poll
const (
	MinOptions = 2
	MaxOptions = 10
)

// Request types

type OptionInput struct {
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

type CreatePollRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	ClosesAt    string        `json:"closes_at,omitempty"` // RFC 3339
	Options     []OptionInput `json:"options"`
}

type AddOptionRequest struct {
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// Nil fields are left unchanged
type UpdateOptionRequest struct {
	Label *string `json:"label,omitempty"`
	Color *string `json:"color,omitempty"`
}

type CastVoteRequest struct {
	OptionID string `json:"option_id"`
}

type ListPollsFilter struct {
	Search string
	Mine   bool
	Page   int
	Limit  int
}

// Domain types

type Poll struct {
	ID            string                   `json:"id"`
	Title         string                   `json:"title"`
	Description   string                   `json:"description"`
	CreatorID     string                   `json:"creator_id"`
	ClosesAt      *time.Time               `json:"closes_at,omitempty"`
	CachedResults map[string]OptionSummary `json:"-"`
	CreatedAt     time.Time                `json:"created_at"`
}

// Closed reports whether the poll stopped accepting votes at now.
func (p Poll) Closed(now time.Time) bool {
	return p.ClosesAt != nil && !p.ClosesAt.After(now)
}

type Option struct {
	ID        string    `json:"id"`
	PollID    string    `json:"poll_id"`
	Label     string    `json:"label"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

type Vote struct {
	ID        string    `json:"id"`
	PollID    string    `json:"poll_id"`
	OptionID  string    `json:"option_id"`
	VoterID   string    `json:"voter_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Voter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Result types

// OptionSummary is one entry of the cached per-poll summary, keyed by option id.
type OptionSummary struct {
	Label      string  `json:"label"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
}

type OptionResult struct {
	OptionID   string  `json:"option_id"`
	Label      string  `json:"label"`
	Color      string  `json:"color"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
}

type DayBucket struct {
	Date  string `json:"date"` // YYYY-MM-DD in the service timezone
	Votes int    `json:"votes"`
}

type HourBucket struct {
	Hour  int `json:"hour"` // 0-23 in the service timezone
	Votes int `json:"votes"`
}

type ResultSet struct {
	PollID     string         `json:"poll_id"`
	Title      string         `json:"title"`
	Closed     bool           `json:"closed"`
	TotalVotes int            `json:"total_votes"`
	Options    []OptionResult `json:"options"`
	Winner     *OptionResult  `json:"winner"`
	VotesByDay []DayBucket    `json:"votes_by_day"`
}

type DetailedResults struct {
	ResultSet
	VotesByHour []HourBucket `json:"votes_by_hour"`
}

// Response types

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type PollSummary struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	CreatorID    string     `json:"creator_id"`
	CreatedAt    time.Time  `json:"created_at"`
	ClosesAt     *time.Time `json:"closes_at,omitempty"`
	ClosesIn     string     `json:"closes_in,omitempty"`
	Closed       bool       `json:"closed"`
	OptionCount  int        `json:"option_count"`
	TotalVotes   int        `json:"total_votes"`
	AlreadyVoted bool       `json:"already_voted"`
	CanVote      bool       `json:"can_vote"`
	IsOwner      bool       `json:"is_owner"`
}

type PollList struct {
	Polls      []PollSummary `json:"polls"`
	Pagination Pagination    `json:"pagination"`
}

type PollDetail struct {
	PollSummary
	Options []OptionResult `json:"options"`
	Winner  *OptionResult  `json:"winner"`
}

type CreatePollResponse struct {
	Poll    Poll     `json:"poll"`
	Options []Option `json:"options"`
}

type OptionList struct {
	PollID     string         `json:"poll_id"`
	TotalVotes int            `json:"total_votes"`
	Options    []OptionResult `json:"options"`
}

type CastVoteResponse struct {
	Vote    Vote       `json:"vote"`
	Results *ResultSet `json:"results,omitempty"`
}

type VoteRecord struct {
	VoteID      string    `json:"vote_id"`
	PollID      string    `json:"poll_id"`
	PollTitle   string    `json:"poll_title"`
	PollClosed  bool      `json:"poll_closed"`
	OptionID    string    `json:"option_id"`
	OptionLabel string    `json:"option_label"`
	OptionColor string    `json:"option_color"`
	VotedAt     time.Time `json:"voted_at"`
}

type VoteHistory struct {
	Votes      []VoteRecord `json:"votes"`
	Pagination Pagination   `json:"pagination"`
}

type PollRank struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	TotalVotes int       `json:"total_votes"`
	Closed     bool      `json:"closed"`
	CreatedAt  time.Time `json:"created_at"`
}

type GeneralStats struct {
	TotalPolls   int         `json:"total_polls"`
	ActivePolls  int         `json:"active_polls"`
	TotalVotes   int         `json:"total_votes"`
	TotalVoters  int         `json:"total_voters"`
	PopularPolls []PollRank  `json:"popular_polls"`
	RecentPolls  []PollRank  `json:"recent_polls"`
	PollsByDay   []DayBucket `json:"polls_by_day"` // Votes holds the poll count
}

type UserSummary struct {
	VoterID      string       `json:"voter_id"`
	PollsCreated int          `json:"polls_created"`
	VotesCast    int          `json:"votes_cast"`
	TopPolls     []PollRank   `json:"top_polls"`
	RecentVotes  []VoteRecord `json:"recent_votes"`
}

// Envelope wraps every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`  // machine-readable code
	Detail  string `json:"detail,omitempty"` // dev mode only
	Data    any    `json:"data,omitempty"`
}
