package test_generators

import (
	"math/rand"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jamesprial/go-topgg/pkg/types"
)

// GuildEventKind is the kind of gateway guild event
type GuildEventKind int

const (
	// GuildJoin is a GUILD_CREATE for a guild the bot was just added to
	GuildJoin GuildEventKind = iota
	// GuildLeave is a GUILD_DELETE for a guild the bot was removed from
	GuildLeave
	// GuildOutage is a GUILD_DELETE marking a guild unavailable
	GuildOutage
	// GuildRecover is the GUILD_CREATE sent when an unavailable guild returns
	GuildRecover
)

func (k GuildEventKind) String() string {
	switch k {
	case GuildJoin:
		return "join"
	case GuildLeave:
		return "leave"
	case GuildOutage:
		return "outage"
	case GuildRecover:
		return "recover"
	default:
		return "unknown"
	}
}

// GuildEvent is one gateway guild event
type GuildEvent struct {
	Kind  GuildEventKind
	Guild snowflake.ID
}

// GuildEventGenerator generates gateway event sequences together with the
// guild count a correct tracker ends up with
type GuildEventGenerator struct {
	rand *rand.Rand
	pool []snowflake.ID
}

// NewGuildEventGenerator creates a generator drawing from poolSize guilds.
// A zero seed uses the clock.
func NewGuildEventGenerator(seed int64, poolSize int) *GuildEventGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))

	base := time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
	pool := make([]snowflake.ID, poolSize)
	for i := range pool {
		pool[i] = snowflake.New(base.Add(time.Duration(i) * time.Hour))
	}
	return &GuildEventGenerator{rand: rnd, pool: pool}
}

// Pool returns every guild the generator draws from
func (g *GuildEventGenerator) Pool() []snowflake.ID {
	return append([]snowflake.ID(nil), g.pool...)
}

// GenerateReady picks the n guilds listed in a READY payload
func (g *GuildEventGenerator) GenerateReady(n int) []snowflake.ID {
	n = min(n, len(g.pool))
	perm := g.rand.Perm(len(g.pool))
	ready := make([]snowflake.ID, n)
	for i := range ready {
		ready[i] = g.pool[perm[i]]
	}
	return ready
}

// GenerateSequence creates length events following a READY listing ready.
// It returns the events and the guild count after the last one.
//
// Joins may repeat and leaves may name guilds the bot is not in, as the
// gateway does after reconnects. Outages and recoveries only touch guilds
// the bot is in and never change the count.
func (g *GuildEventGenerator) GenerateSequence(ready []snowflake.ID, length int) ([]GuildEvent, int) {
	member := make(map[snowflake.ID]bool, len(ready))
	for _, id := range ready {
		member[id] = true
	}

	events := make([]GuildEvent, 0, length)
	for len(events) < length {
		id := g.pool[g.rand.Intn(len(g.pool))]

		var kind GuildEventKind
		switch r := g.rand.Intn(10); {
		case r < 4:
			kind = GuildJoin
		case r < 7:
			kind = GuildLeave
		case r < 9:
			kind = GuildOutage
		default:
			kind = GuildRecover
		}

		if (kind == GuildOutage || kind == GuildRecover) && !member[id] {
			continue
		}

		switch kind {
		case GuildJoin:
			member[id] = true
		case GuildLeave:
			delete(member, id)
		}
		events = append(events, GuildEvent{Kind: kind, Guild: id})
	}

	return events, len(member)
}

// VoteGenerator generates webhook vote payloads
type VoteGenerator struct {
	rand *rand.Rand
	bots *BotGenerator
}

// NewVoteGenerator creates a new vote generator. A zero seed uses the clock.
func NewVoteGenerator(seed int64) *VoteGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &VoteGenerator{
		rand: rand.New(rand.NewSource(seed)),
		bots: NewBotGenerator(seed),
	}
}

// GenerateVote creates a vote for bot from a random user. One vote in ten
// is a test vote, and some carry a query string.
func (vg *VoteGenerator) GenerateVote(bot snowflake.ID) types.Vote {
	vote := types.Vote{
		Bot:       bot,
		User:      vg.bots.generateID(vg.bots.generateTime(2016, 8)),
		Type:      types.VoteTypeUpvote,
		IsWeekend: vg.rand.Intn(7) >= 5,
	}
	if vg.rand.Intn(10) == 0 {
		vote.Type = types.VoteTypeTest
	}
	if vg.rand.Intn(3) == 0 {
		vote.Query = "?ref=" + vg.bots.randString(6)
	}
	return vote
}

// GenerateVotes creates count votes for bot
func (vg *VoteGenerator) GenerateVotes(bot snowflake.ID, count int) []types.Vote {
	votes := make([]types.Vote, count)
	for i := range votes {
		votes[i] = vg.GenerateVote(bot)
	}
	return votes
}
