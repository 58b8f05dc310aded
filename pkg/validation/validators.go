package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jamesprial/go-topgg/pkg/types"
)

// Regular expressions for validating Top.gg and Discord data formats
var (
	// avatarHashRegex matches Discord avatar hashes, optionally animated ("a_" prefix)
	avatarHashRegex = regexp.MustCompile(`^(a_)?[0-9a-f]{32}$`)

	// vanityRegex matches a Top.gg vanity path segment
	vanityRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,32}$`)
)

// discordEpoch is the first moment a Discord snowflake can encode.
var discordEpoch = time.UnixMilli(snowflake.Epoch)

// IsValidAvatarHash checks if a string is a Discord avatar hash
func IsValidAvatarHash(s string) bool {
	return avatarHashRegex.MatchString(s)
}

// IsValidVanity checks if a string is a usable Top.gg vanity path
func IsValidVanity(s string) bool {
	return vanityRegex.MatchString(s)
}

// ValidateSnowflake checks that id is set and encodes a plausible creation time.
func ValidateSnowflake(field string, id snowflake.ID) error {
	if id == 0 {
		return fmt.Errorf("%s is required", field)
	}

	created := id.Time()
	if created.Before(discordEpoch) {
		return fmt.Errorf("%s predates Discord: %s", field, id)
	}

	// One hour of grace for clock skew
	if created.After(time.Now().Add(time.Hour)) {
		return fmt.Errorf("%s is in the future: %s", field, id)
	}

	return nil
}

// ValidateBot validates a Bot record's fields
func ValidateBot(b *types.Bot) error {
	if b == nil {
		return fmt.Errorf("bot is nil")
	}

	var errs []error

	if err := ValidateSnowflake("ID", b.ID); err != nil {
		errs = append(errs, err)
	}
	if b.Username == "" {
		errs = append(errs, fmt.Errorf("Username is required"))
	}

	// Monthly votes are a subset of all-time votes
	if b.Votes < 0 {
		errs = append(errs, fmt.Errorf("Votes must be non-negative, got %d", b.Votes))
	}
	if b.MonthlyVotes < 0 || b.MonthlyVotes > b.Votes {
		errs = append(errs, fmt.Errorf("MonthlyVotes (%d) must be between 0 and Votes (%d)", b.MonthlyVotes, b.Votes))
	}
	if b.ServerCount < 0 {
		errs = append(errs, fmt.Errorf("ServerCount must be non-negative, got %d", b.ServerCount))
	}

	if b.Avatar != "" && !IsValidAvatarHash(b.Avatar) {
		errs = append(errs, fmt.Errorf("Avatar has invalid hash format: %s", b.Avatar))
	}
	if b.Vanity != "" && !IsValidVanity(b.Vanity) {
		errs = append(errs, fmt.Errorf("Vanity has invalid format: %s", b.Vanity))
	}
	for i, owner := range b.Owners {
		if err := ValidateSnowflake(fmt.Sprintf("Owners[%d]", i), owner); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("bot validation failed: %w", joinValidationErrors(errs))
	}

	return nil
}

// ValidateUser validates a User record's fields
func ValidateUser(u *types.User) error {
	if u == nil {
		return fmt.Errorf("user is nil")
	}

	var errs []error

	if err := ValidateSnowflake("ID", u.ID); err != nil {
		errs = append(errs, err)
	}
	if u.Username == "" {
		errs = append(errs, fmt.Errorf("Username is required"))
	}
	if u.Avatar != "" && !IsValidAvatarHash(u.Avatar) {
		errs = append(errs, fmt.Errorf("Avatar has invalid hash format: %s", u.Avatar))
	}

	if len(errs) > 0 {
		return fmt.Errorf("user validation failed: %w", joinValidationErrors(errs))
	}

	return nil
}

// ValidateVoter validates a Voter record's fields
func ValidateVoter(v *types.Voter) error {
	if v == nil {
		return fmt.Errorf("voter is nil")
	}

	var errs []error

	if err := ValidateSnowflake("ID", v.ID); err != nil {
		errs = append(errs, err)
	}
	if v.Username == "" {
		errs = append(errs, fmt.Errorf("Username is required"))
	}
	if v.Avatar != "" && !IsValidAvatarHash(v.Avatar) {
		errs = append(errs, fmt.Errorf("Avatar has invalid hash format: %s", v.Avatar))
	}

	if len(errs) > 0 {
		return fmt.Errorf("voter validation failed: %w", joinValidationErrors(errs))
	}

	return nil
}

// ValidateVote validates a webhook vote payload. A vote names the user and
// either a bot or a server.
func ValidateVote(v *types.Vote) error {
	if v == nil {
		return fmt.Errorf("vote is nil")
	}

	var errs []error

	if err := ValidateSnowflake("User", v.User); err != nil {
		errs = append(errs, err)
	}

	switch {
	case v.Bot == 0 && v.Guild == 0:
		errs = append(errs, fmt.Errorf("Bot or Guild is required"))
	case v.Bot != 0:
		if err := ValidateSnowflake("Bot", v.Bot); err != nil {
			errs = append(errs, err)
		}
	default:
		if err := ValidateSnowflake("Guild", v.Guild); err != nil {
			errs = append(errs, err)
		}
	}

	if v.Type != types.VoteTypeUpvote && v.Type != types.VoteTypeTest {
		errs = append(errs, fmt.Errorf("Type has unknown value: %q", v.Type))
	}

	if len(errs) > 0 {
		return fmt.Errorf("vote validation failed: %w", joinValidationErrors(errs))
	}

	return nil
}

// ValidateBotStats validates statistics read back from Top.gg
func ValidateBotStats(s *types.BotStats) error {
	if s == nil {
		return fmt.Errorf("bot stats is nil")
	}

	var errs []error

	if s.ServerCount != nil && *s.ServerCount < 0 {
		errs = append(errs, fmt.Errorf("ServerCount must be non-negative, got %d", *s.ServerCount))
	}
	if s.ShardCount != nil && *s.ShardCount < 0 {
		errs = append(errs, fmt.Errorf("ShardCount must be non-negative, got %d", *s.ShardCount))
	}
	for i, n := range s.Shards {
		if n < 0 {
			errs = append(errs, fmt.Errorf("Shards[%d] must be non-negative, got %d", i, n))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("bot stats validation failed: %w", joinValidationErrors(errs))
	}

	return nil
}

// joinValidationErrors combines multiple errors into a single error message
func joinValidationErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
