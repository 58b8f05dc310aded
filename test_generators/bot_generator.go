package test_generators

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jamesprial/go-topgg/pkg/types"
)

// BotGenerator generates realistic Top.gg listings for testing
type BotGenerator struct {
	rand         *rand.Rand
	names        []string
	suffixes     []string
	prefixes     []string
	tags         []string
	descriptions []string
	usernames    []string
}

// NewBotGenerator creates a new bot generator. A zero seed uses the clock.
func NewBotGenerator(seed int64) *BotGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &BotGenerator{
		rand: rand.New(rand.NewSource(seed)),
		names: []string{
			"Luca", "Mee", "Dyno", "Carl", "Rythm", "Groovy", "Pancake",
			"Tatsu", "Koya", "Atlas", "Owo", "Mudae", "Nadeko", "Zira",
		},
		suffixes: []string{"", "Bot", "6", "-chan", "Music", "Plus", "2"},
		prefixes: []string{"!", "?", "-", ".", "$", ">", "t!", "m!", "/"},
		tags: []string{
			"Music", "Moderation", "Fun", "Economy", "Utility", "Game",
			"Social", "Logging", "Anime", "Meme", "Leveling", "Roleplay",
		},
		descriptions: []string{
			"A %s bot for your server.",
			"The only %s bot you will ever need.",
			"Simple, fast %s commands.",
			"%s, done right. Free forever.",
			"Bring %s to your community.",
		},
		usernames: []string{
			"veld", "xetera", "woo", "tonkku", "ahoy", "shiro", "kit",
			"mira", "nyx", "oak", "pip", "quill",
		},
	}
}

// BotOptions tunes GenerateBotWithOptions
type BotOptions struct {
	// MinVotes and MaxVotes bound the all-time vote count
	MinVotes, MaxVotes int
	// MaxServers bounds the reported server count
	MaxServers int
	// WithVanity gives the bot a vanity URL
	WithVanity bool
	// Owners is the number of owners, at least one
	Owners int
}

// DefaultBotOptions returns options producing typical small listings
func DefaultBotOptions() BotOptions {
	return BotOptions{
		MinVotes:   0,
		MaxVotes:   50000,
		MaxServers: 100000,
		WithVanity: false,
		Owners:     1,
	}
}

// GenerateBot creates a realistic bot listing
func (bg *BotGenerator) GenerateBot() types.Bot {
	opts := DefaultBotOptions()
	opts.WithVanity = bg.rand.Intn(4) == 0
	opts.Owners = 1 + bg.rand.Intn(3)
	return bg.GenerateBotWithOptions(opts)
}

// GenerateBotWithOptions creates a bot listing within the given bounds
func (bg *BotGenerator) GenerateBotWithOptions(opts BotOptions) types.Bot {
	created := bg.generateTime(2017, 2)
	id := bg.generateID(created)
	name := bg.randElement(bg.names) + bg.randElement(bg.suffixes)
	tag := bg.randElement(bg.tags)

	votes := opts.MinVotes
	if opts.MaxVotes > opts.MinVotes {
		votes += bg.rand.Intn(opts.MaxVotes - opts.MinVotes)
	}
	monthly := 0
	if votes > 0 {
		monthly = bg.rand.Intn(votes/10 + 1)
	}

	servers := 0
	if opts.MaxServers > 0 {
		servers = bg.rand.Intn(opts.MaxServers)
	}

	owners := make([]snowflake.ID, max(opts.Owners, 1))
	for i := range owners {
		owners[i] = bg.generateID(bg.generateTime(2016, 3))
	}

	bot := types.Bot{
		ID:               id,
		TopggID:          id,
		Username:         name,
		Prefix:           bg.randElement(bg.prefixes),
		ShortDescription: fmt.Sprintf(bg.randElement(bg.descriptions), strings.ToLower(tag)),
		Tags:             bg.generateTags(tag),
		Owners:           owners,
		ApprovedAt:       created.Add(time.Duration(bg.rand.Intn(30*24)) * time.Hour),
		ServerCount:      servers,
		Votes:            votes,
		MonthlyVotes:     monthly,
		Avatar:           bg.GenerateAvatarHash(),
	}
	if opts.WithVanity {
		bot.Vanity = strings.ToLower(strings.ReplaceAll(name, "-", ""))
	}
	if bg.rand.Intn(2) == 0 {
		bot.Support = bg.randString(8)
	}
	return bot
}

// GenerateBots creates count bot listings
func (bg *BotGenerator) GenerateBots(count int) []types.Bot {
	bots := make([]types.Bot, count)
	for i := range bots {
		bots[i] = bg.GenerateBot()
	}
	return bots
}

// GeneratePopularBot creates a heavily voted, widely used bot
func (bg *BotGenerator) GeneratePopularBot() types.Bot {
	return bg.GenerateBotWithOptions(BotOptions{
		MinVotes:   500000,
		MaxVotes:   5000000,
		MaxServers: 10000000,
		WithVanity: true,
		Owners:     2,
	})
}

// GenerateListingPage renders one page of a bot search as Top.gg would
// answer it
func (bg *BotGenerator) GenerateListingPage(bots []types.Bot, offset, total int) *types.BotsResponse {
	results := make([]*types.Bot, len(bots))
	for i := range bots {
		results[i] = &bots[i]
	}
	return &types.BotsResponse{
		Results: results,
		Limit:   len(bots),
		Offset:  offset,
		Count:   len(bots),
		Total:   total,
	}
}

// GenerateVoters creates a page of recent voters, newest first
func (bg *BotGenerator) GenerateVoters(count int) []types.Voter {
	voters := make([]types.Voter, count)
	for i := range voters {
		voters[i] = types.Voter{
			ID:       bg.generateID(bg.generateTime(2016, 8)),
			Username: bg.randElement(bg.usernames) + fmt.Sprint(bg.rand.Intn(1000)),
		}
		if bg.rand.Intn(3) != 0 {
			voters[i].Avatar = bg.GenerateAvatarHash()
		}
	}
	return voters
}

// GenerateAvatarHash creates a Discord avatar hash, sometimes animated
func (bg *BotGenerator) GenerateAvatarHash() string {
	const hex = "0123456789abcdef"
	var b strings.Builder
	if bg.rand.Intn(5) == 0 {
		b.WriteString("a_")
	}
	for i := 0; i < 32; i++ {
		b.WriteByte(hex[bg.rand.Intn(len(hex))])
	}
	return b.String()
}

// generateTime picks a moment in the span years starting at fromYear
func (bg *BotGenerator) generateTime(fromYear, span int) time.Time {
	start := time.Date(fromYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration(bg.rand.Int63n(int64(span) * 365 * 24 * int64(time.Hour))))
}

// generateID builds a snowflake minted at t with random low bits
func (bg *BotGenerator) generateID(t time.Time) snowflake.ID {
	return snowflake.New(t) | snowflake.ID(bg.rand.Intn(1<<22))
}

func (bg *BotGenerator) generateTags(first string) []string {
	tags := []string{first}
	for i := bg.rand.Intn(3); i > 0; i-- {
		tag := bg.randElement(bg.tags)
		if tag != first {
			tags = append(tags, tag)
		}
	}
	return tags
}

func (bg *BotGenerator) randElement(slice []string) string {
	return slice[bg.rand.Intn(len(slice))]
}

func (bg *BotGenerator) randString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[bg.rand.Intn(len(charset))]
	}
	return string(b)
}
