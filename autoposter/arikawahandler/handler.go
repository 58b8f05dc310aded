// Package arikawahandler feeds arikawa gateway events into an autoposter.
//
// The handler keeps a bare server count, so it is used with
// autoposter.NewSimple, which posts the count on a fixed interval.
package arikawahandler

import (
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/disgoorg/snowflake/v2"
	"github.com/jamesprial/go-topgg/autoposter"
)

// EventAdder is anything arikawa handlers can be attached to, such as a
// *session.Session, a *state.State or a *handler.Handler.
type EventAdder interface {
	AddSyncHandler(handler any) (rm func())
}

// Handler keeps an autoposter.ServerCount in step with a bot's guilds.
type Handler struct {
	count   autoposter.ServerCount
	tracker *autoposter.GuildTracker
}

// New returns a handler with a count of zero.
func New() *Handler {
	h := &Handler{}
	h.tracker = autoposter.NewGuildTracker(h.count.Set)
	return h
}

// ServerCount returns the count the handler writes.
func (h *Handler) ServerCount() *autoposter.ServerCount {
	return &h.count
}

// Handle applies READY, GUILD_CREATE and GUILD_DELETE events and ignores
// everything else.
func (h *Handler) Handle(event any) {
	switch e := event.(type) {
	case *gateway.ReadyEvent:
		ids := make([]snowflake.ID, 0, len(e.Guilds))
		for _, g := range e.Guilds {
			ids = append(ids, guildID(g.ID))
		}
		h.tracker.Resync(ids)
	case *gateway.GuildCreateEvent:
		h.tracker.Add(guildID(e.ID))
	case *gateway.GuildDeleteEvent:
		if e.Unavailable {
			return
		}
		h.tracker.Remove(guildID(e.ID))
	}
}

// Register attaches the handler to adder and returns a func that detaches it.
// The handlers are synchronous, so guild events are applied in the order the
// gateway delivers them.
func (h *Handler) Register(adder EventAdder) func() {
	removers := []func(){
		adder.AddSyncHandler(func(e *gateway.ReadyEvent) { h.Handle(e) }),
		adder.AddSyncHandler(func(e *gateway.GuildCreateEvent) { h.Handle(e) }),
		adder.AddSyncHandler(func(e *gateway.GuildDeleteEvent) { h.Handle(e) }),
	}
	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

func guildID(id discord.GuildID) snowflake.ID {
	return snowflake.ID(id)
}
