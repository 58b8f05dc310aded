package autoposter

// Handler is implemented by adapters that keep a SharedStats up to date from
// their framework's gateway events. The autoposter posts whenever the stats
// change, at most once per interval.
type Handler interface {
	Stats() *SharedStats
}

// CountHandler is implemented by adapters that keep a bare server count. The
// autoposter posts it every interval whether or not it changed.
type CountHandler interface {
	ServerCount() *ServerCount
}
