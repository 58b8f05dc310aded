package types

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

const (
	// TopggURL is the public Top.gg website.
	TopggURL = "https://top.gg"
	// DiscordCDN hosts user and bot avatars.
	DiscordCDN = "https://cdn.discordapp.com"
	// DiscordInvitePrefix is prepended to bare support-server invite codes.
	DiscordInvitePrefix = "https://discord.com/invite/"
)

// Stats is the snapshot of statistics reported to Top.gg.
// Shards and ShardCount are only understood by older API versions and are
// omitted from the request body when empty.
type Stats struct {
	ServerCount int   `json:"server_count"`
	Shards      []int `json:"shards,omitempty"`
	ShardCount  int   `json:"shard_count,omitempty"`
}

// StatsFromShards builds a snapshot whose server count is the sum of the
// per-shard counts.
func StatsFromShards(shards ...int) Stats {
	total := 0
	for _, n := range shards {
		total += n
	}
	return Stats{
		ServerCount: total,
		Shards:      append([]int(nil), shards...),
		ShardCount:  len(shards),
	}
}

// BotStats is the statistics record returned by Top.gg. Any field may be
// absent if the bot never posted it.
type BotStats struct {
	ServerCount *int  `json:"server_count"`
	Shards      []int `json:"shards"`
	ShardCount  *int  `json:"shard_count"`
}

// Bot is a Discord bot listed on Top.gg.
type Bot struct {
	// ID is the bot's Discord application ID.
	ID snowflake.ID `json:"clientid"`
	// TopggID is the bot's ID on Top.gg. For most bots it equals ID.
	TopggID          snowflake.ID   `json:"id"`
	Username         string         `json:"username"`
	Prefix           string         `json:"prefix"`
	ShortDescription string         `json:"shortdesc"`
	LongDescription  string         `json:"longdesc"`
	Tags             []string       `json:"tags"`
	Website          string         `json:"website"`
	GitHub           string         `json:"github"`
	Owners           []snowflake.ID `json:"owners"`
	BannerURL        string         `json:"bannerUrl"`
	ApprovedAt       time.Time      `json:"date"`
	ServerCount      int            `json:"server_count"`
	Votes            int            `json:"points"`
	MonthlyVotes     int            `json:"monthlyPoints"`
	Support          string         `json:"support"`
	Avatar           string         `json:"avatar"`
	Invite           string         `json:"invite"`
	Vanity           string         `json:"vanity"`
}

// CreatedAt returns the creation time encoded in the bot's Discord ID.
func (b *Bot) CreatedAt() time.Time {
	return b.ID.Time()
}

// AvatarURL returns the bot's avatar, falling back to Discord's default avatar.
func (b *Bot) AvatarURL() string {
	return AvatarURL(b.ID, b.Avatar)
}

// InviteURL returns the bot's custom invite, or a generated OAuth2 bot invite.
func (b *Bot) InviteURL() string {
	if b.Invite != "" {
		return b.Invite
	}
	return "https://discord.com/oauth2/authorize?scope=bot&client_id=" + b.ID.String()
}

// URL returns the bot's Top.gg page, preferring its vanity path.
func (b *Bot) URL() string {
	if b.Vanity != "" {
		return TopggURL + "/bot/" + b.Vanity
	}
	return TopggURL + "/bot/" + b.ID.String()
}

// SupportURL returns the bot's support server invite, or "" if none is listed.
func (b *Bot) SupportURL() string {
	if b.Support == "" {
		return ""
	}
	return DiscordInvitePrefix + b.Support
}

// Socials holds a Top.gg user's linked profiles.
type Socials struct {
	YouTube   string `json:"youtube"`
	Reddit    string `json:"reddit"`
	Twitter   string `json:"twitter"`
	Instagram string `json:"instagram"`
	GitHub    string `json:"github"`
}

// User is a Top.gg user profile.
type User struct {
	ID             snowflake.ID `json:"id"`
	Username       string       `json:"username"`
	Bio            string       `json:"bio"`
	Banner         string       `json:"banner"`
	Socials        *Socials     `json:"social"`
	IsSupporter    bool         `json:"supporter"`
	IsCertified    bool         `json:"certifiedDev"`
	IsModerator    bool         `json:"mod"`
	IsWebModerator bool         `json:"webMod"`
	IsAdmin        bool         `json:"admin"`
	Avatar         string       `json:"avatar"`
}

// CreatedAt returns the creation time encoded in the user's Discord ID.
func (u *User) CreatedAt() time.Time {
	return u.ID.Time()
}

// AvatarURL returns the user's avatar, falling back to Discord's default avatar.
func (u *User) AvatarURL() string {
	return AvatarURL(u.ID, u.Avatar)
}

// Voter is a user who voted for the bot.
type Voter struct {
	ID       snowflake.ID `json:"id"`
	Username string       `json:"username"`
	Avatar   string       `json:"avatar"`
}

// CreatedAt returns the creation time encoded in the voter's Discord ID.
func (v *Voter) CreatedAt() time.Time {
	return v.ID.Time()
}

// AvatarURL returns the voter's avatar, falling back to Discord's default avatar.
func (v *Voter) AvatarURL() string {
	return AvatarURL(v.ID, v.Avatar)
}

// AvatarURL builds a Discord CDN avatar URL. Animated hashes ("a_" prefix)
// resolve to GIFs. An empty hash yields the default avatar for the ID.
func AvatarURL(id snowflake.ID, hash string) string {
	if hash == "" {
		return fmt.Sprintf("%s/embed/avatars/%d.png", DiscordCDN, (uint64(id)>>22)%6)
	}
	ext := "png"
	if strings.HasPrefix(hash, "a_") {
		ext = "gif"
	}
	return fmt.Sprintf("%s/avatars/%s/%s.%s?size=1024", DiscordCDN, id, hash, ext)
}

// BotSort selects the ordering of a bot search.
type BotSort string

const (
	SortByID           BotSort = "id"
	SortByApprovalDate BotSort = "date"
	SortByMonthlyVotes BotSort = "monthlyPoints"
)

// BotsQuery describes a search over Top.gg's bot listing.
// Zero values are omitted from the request.
type BotsQuery struct {
	// Limit is the page size. Top.gg caps it at 500.
	Limit int
	// Offset is the number of bots to skip. Top.gg caps it at 499.
	Offset int
	Sort   BotSort

	// Search terms; every non-empty term must match.
	Username     string
	Prefix       string
	Votes        int
	MonthlyVotes int
	Vanity       string
}

// BotsResponse is one page of a bot search.
type BotsResponse struct {
	Results []*Bot `json:"results"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
	Count   int    `json:"count"`
	Total   int    `json:"total"`
}

// VoteType distinguishes real votes from dashboard test votes.
type VoteType string

const (
	VoteTypeUpvote VoteType = "upvote"
	VoteTypeTest   VoteType = "test"
)

// Vote is the payload Top.gg delivers to a vote webhook.
type Vote struct {
	Bot       snowflake.ID `json:"bot"`
	Guild     snowflake.ID `json:"guild"`
	User      snowflake.ID `json:"user"`
	Type      VoteType     `json:"type"`
	IsWeekend bool         `json:"isWeekend"`
	Query     string       `json:"query"`
}

// IsTest reports whether the vote was sent from the Top.gg test button.
func (v *Vote) IsTest() bool {
	return v.Type == VoteTypeTest
}

// QueryValues parses the query string that was attached to the vote page URL.
func (v *Vote) QueryValues() url.Values {
	values, err := url.ParseQuery(strings.TrimPrefix(v.Query, "?"))
	if err != nil {
		return url.Values{}
	}
	return values
}
