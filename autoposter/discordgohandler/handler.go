// Package discordgohandler feeds a discordgo session's guild events into an
// autoposter.
//
// By default the handler tracks guild IDs itself. With WithCachedState it
// instead reads the guild count from the session's state cache, which must
// then be enabled.
package discordgohandler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/jamesprial/go-topgg/autoposter"
)

// joinedAtSkew widens the cached-mode check that a GUILD_CREATE is a new
// join. JoinedAt is stamped by Discord and readyAt by the local clock, so a
// join shortly after READY can appear to precede it. A guild joined just
// before READY that passes the check only rewrites the same count.
const joinedAtSkew = 30 * time.Second

// Option configures a Handler.
type Option func(*Handler)

// WithCachedState makes the handler count guilds from Session.State instead
// of its own tracker.
func WithCachedState() Option {
	return func(h *Handler) {
		h.cached = true
	}
}

// WithLogger sets the logger used for events the handler cannot use.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Handler keeps an autoposter.SharedStats in step with a bot's guilds.
type Handler struct {
	stats   *autoposter.SharedStats
	tracker *autoposter.GuildTracker
	cached  bool
	logger  *slog.Logger

	mu      sync.Mutex
	readyAt time.Time
}

// New returns a handler with an empty snapshot.
func New(opts ...Option) *Handler {
	stats := autoposter.NewSharedStats()
	h := &Handler{
		stats:   stats,
		tracker: autoposter.NewGuildTracker(stats.SetServerCount),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Stats returns the snapshot the handler writes.
func (h *Handler) Stats() *autoposter.SharedStats {
	return h.stats
}

// OnReady records the guilds listed in READY.
func (h *Handler) OnReady(s *discordgo.Session, r *discordgo.Ready) {
	if h.cached {
		h.mu.Lock()
		h.readyAt = time.Now()
		h.mu.Unlock()
		count, ok := cachedGuildCount(s)
		if !ok {
			count = len(r.Guilds)
		}
		h.stats.SetServerCount(count)
		return
	}

	ids := make([]snowflake.ID, 0, len(r.Guilds))
	for _, g := range r.Guilds {
		if id, ok := h.guildID(g); ok {
			ids = append(ids, id)
		}
	}
	h.tracker.Resync(ids)
}

// OnGuildCreate counts a joined guild.
func (h *Handler) OnGuildCreate(s *discordgo.Session, e *discordgo.GuildCreate) {
	if e.Guild == nil {
		return
	}

	if h.cached {
		// Guilds from READY becoming available again were already counted
		h.mu.Lock()
		readyAt := h.readyAt
		h.mu.Unlock()
		if readyAt.IsZero() || !e.JoinedAt.After(readyAt.Add(-joinedAtSkew)) {
			return
		}
		h.writeCachedCount(s)
		return
	}

	if id, ok := h.guildID(e.Guild); ok {
		h.tracker.Add(id)
	}
}

// OnGuildDelete uncounts a guild the bot left. Outages are ignored.
func (h *Handler) OnGuildDelete(s *discordgo.Session, e *discordgo.GuildDelete) {
	if e.Guild == nil || e.Unavailable {
		return
	}

	if h.cached {
		h.writeCachedCount(s)
		return
	}

	if id, ok := h.guildID(e.Guild); ok {
		h.tracker.Remove(id)
	}
}

// Handle dispatches any discordgo event. Events other than READY,
// GUILD_CREATE and GUILD_DELETE are ignored.
func (h *Handler) Handle(s *discordgo.Session, event any) {
	switch e := event.(type) {
	case *discordgo.Ready:
		h.OnReady(s, e)
	case *discordgo.GuildCreate:
		h.OnGuildCreate(s, e)
	case *discordgo.GuildDelete:
		h.OnGuildDelete(s, e)
	}
}

// Register attaches the handler to s and returns a func that detaches it.
//
// Register turns on s.SyncEvents, so it must be called before s.Open. Without
// it discordgo runs every handler call on its own goroutine and a guild
// delete could be applied before the create it follows. With SyncEvents all
// of the session's handlers run on the gateway goroutine and must not block.
func (h *Handler) Register(s *discordgo.Session) func() {
	s.SyncEvents = true
	return h.register(s.AddHandler)
}

func (h *Handler) register(add func(handler any) func()) func() {
	removers := []func(){
		add(h.OnReady),
		add(h.OnGuildCreate),
		add(h.OnGuildDelete),
	}
	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

func (h *Handler) guildID(g *discordgo.Guild) (snowflake.ID, bool) {
	if g == nil {
		return 0, false
	}
	id, err := snowflake.Parse(g.ID)
	if err != nil {
		h.logger.Debug("ignoring guild with invalid id", "guild_id", g.ID, "error", err)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeCachedCount(s *discordgo.Session) {
	count, ok := cachedGuildCount(s)
	if !ok {
		h.logger.Warn("cached state mode needs a session with state enabled")
		return
	}
	h.stats.SetServerCount(count)
}

// cachedGuildCount reads the guild count from the session's state. It
// reports false when the session keeps no state.
func cachedGuildCount(s *discordgo.Session) (int, bool) {
	if s == nil || s.State == nil || !s.StateEnabled {
		return 0, false
	}
	s.State.RLock()
	defer s.State.RUnlock()
	return len(s.State.Guilds), true
}
