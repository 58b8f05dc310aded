package internal

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	pkgerrs "github.com/jamesprial/go-topgg/pkg/errors"
	"github.com/jamesprial/go-topgg/pkg/types"
)

const (
	// Bot search constraints
	MaxBotsLimit  = 500
	MaxBotsOffset = 499

	// User agent constraints
	maxUserAgentLength = 256
)

// Validator provides validation operations for Top.gg API parameters.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateID rejects the zero snowflake, which Discord never assigns.
func (v *Validator) ValidateID(field string, id snowflake.ID) error {
	if id == 0 {
		return &pkgerrs.ConfigError{Field: field, Message: "ID cannot be zero"}
	}
	return nil
}

// ValidateStats checks a statistics snapshot before it is posted.
func (v *Validator) ValidateStats(stats types.Stats) error {
	if stats.ServerCount < 0 {
		return &pkgerrs.ConfigError{Field: "Stats.ServerCount", Message: "server count cannot be negative"}
	}
	if stats.ShardCount < 0 {
		return &pkgerrs.ConfigError{Field: "Stats.ShardCount", Message: "shard count cannot be negative"}
	}
	for i, n := range stats.Shards {
		if n < 0 {
			return &pkgerrs.ConfigError{Field: fmt.Sprintf("Stats.Shards[%d]", i), Message: "shard server count cannot be negative"}
		}
	}
	return nil
}

// ValidateBotsQuery checks a bot search. Limit and Offset above Top.gg's caps
// are clamped by EncodeBotsQuery rather than rejected.
func (v *Validator) ValidateBotsQuery(query *types.BotsQuery) error {
	if query == nil {
		return nil
	}
	if query.Limit < 0 {
		return &pkgerrs.ConfigError{Field: "BotsQuery.Limit", Message: "limit cannot be negative"}
	}
	if query.Offset < 0 {
		return &pkgerrs.ConfigError{Field: "BotsQuery.Offset", Message: "offset cannot be negative"}
	}
	switch query.Sort {
	case "", types.SortByID, types.SortByApprovalDate, types.SortByMonthlyVotes:
	default:
		return &pkgerrs.ConfigError{Field: "BotsQuery.Sort", Message: fmt.Sprintf("unsupported sort %q", query.Sort)}
	}
	for field, term := range map[string]string{
		"BotsQuery.Username": query.Username,
		"BotsQuery.Prefix":   query.Prefix,
		"BotsQuery.Vanity":   query.Vanity,
	} {
		if strings.ContainsAny(term, "\r\n") {
			return &pkgerrs.ConfigError{Field: field, Message: "search term cannot contain newline characters"}
		}
	}
	return nil
}

// EncodeBotsQuery renders a bot search as URL query parameters.
func (v *Validator) EncodeBotsQuery(query *types.BotsQuery) url.Values {
	params := url.Values{}
	if query == nil {
		return params
	}

	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(min(query.Limit, MaxBotsLimit)))
	}
	if query.Offset > 0 {
		params.Set("offset", strconv.Itoa(min(query.Offset, MaxBotsOffset)))
	}
	if query.Sort != "" {
		params.Set("sort", string(query.Sort))
	}

	var terms []string
	if query.Username != "" {
		terms = append(terms, "username: "+query.Username)
	}
	if query.Prefix != "" {
		terms = append(terms, "prefix: "+query.Prefix)
	}
	if query.Votes > 0 {
		terms = append(terms, "points: "+strconv.Itoa(query.Votes))
	}
	if query.MonthlyVotes > 0 {
		terms = append(terms, "monthlyPoints: "+strconv.Itoa(query.MonthlyVotes))
	}
	if query.Vanity != "" {
		terms = append(terms, "vanity: "+query.Vanity)
	}
	if len(terms) > 0 {
		params.Set("search", strings.Join(terms, " "))
	}

	return params
}

// ValidatePage checks a voters page number. Pages start at 1.
func (v *Validator) ValidatePage(page int) error {
	if page < 1 {
		return &pkgerrs.ConfigError{Field: "page", Message: "page must be at least 1"}
	}
	return nil
}

// ValidateUserAgent validates the User-Agent string to prevent header injection attacks.
func (v *Validator) ValidateUserAgent(ua string) error {
	// User-Agent cannot be empty (should have been set to default before this check)
	if len(ua) == 0 {
		return fmt.Errorf("user agent cannot be empty")
	}

	// Check for newline characters that could be used for header injection
	if strings.ContainsAny(ua, "\r\n") {
		return fmt.Errorf("user agent cannot contain newline characters")
	}

	if len(ua) > maxUserAgentLength {
		return fmt.Errorf("user agent too long (max %d characters)", maxUserAgentLength)
	}

	return nil
}
