package autoposter

import (
	"context"

	topgg "github.com/jamesprial/go-topgg"
	"github.com/jamesprial/go-topgg/pkg/types"
)

// AsClient is anything the autoposter can obtain a stats poster from:
// a *topgg.Client, a Token, or a PosterFunc.
type AsClient interface {
	StatsPoster() topgg.StatsPoster
}

// Token is a Top.gg API token. The autoposter builds a default client from it.
// If the token is invalid every post reports the construction error.
type Token string

// StatsPoster builds a client for the token.
func (t Token) StatsPoster() topgg.StatsPoster {
	client, err := topgg.NewClient(&topgg.Config{Token: string(t)})
	if err != nil {
		return failedPoster{err: err}
	}
	return client
}

type failedPoster struct {
	err error
}

func (p failedPoster) PostStats(context.Context, types.Stats) error {
	return p.err
}

// PosterFunc adapts a function to both topgg.StatsPoster and AsClient.
type PosterFunc func(ctx context.Context, stats types.Stats) error

// PostStats calls f.
func (f PosterFunc) PostStats(ctx context.Context, stats types.Stats) error {
	return f(ctx, stats)
}

// StatsPoster returns f.
func (f PosterFunc) StatsPoster() topgg.StatsPoster {
	return f
}
