package topgg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jamesprial/go-topgg/internal"
	"github.com/jamesprial/go-topgg/pkg/types"
)

// defaultIteratorPageSize is the page size used when the query sets no Limit.
const defaultIteratorPageSize = 100

// ErrNoMoreBots is returned by BotIterator.Next once the search is exhausted.
var ErrNoMoreBots = errors.New("no more bots available")

// BotIterator provides an iterator for paginating through a bot search.
// Top.gg caps the offset at 499, so at most the first 999 matches are reachable.
type BotIterator struct {
	ctx       context.Context
	listFunc  func(context.Context, *types.BotsQuery) (*types.BotsResponse, error)
	query     types.BotsQuery
	start     int
	buffer    []*types.Bot
	bufferIdx int
	hasMore   bool
	err       error
}

// NewBotIterator creates an iterator over every bot matching query. A nil
// query walks the whole listing in Top.gg's default order.
func (c *Client) NewBotIterator(ctx context.Context, query *types.BotsQuery) *BotIterator {
	q := types.BotsQuery{}
	if query != nil {
		q = *query
	}
	if q.Limit <= 0 {
		q.Limit = defaultIteratorPageSize
	}
	if q.Limit > internal.MaxBotsLimit {
		q.Limit = internal.MaxBotsLimit
	}

	return &BotIterator{
		ctx:      ctx,
		listFunc: c.GetBots,
		query:    q,
		start:    q.Offset,
		hasMore:  true,
	}
}

// HasNext returns true if there are more bots to iterate through.
func (it *BotIterator) HasNext() bool {
	if it.err != nil {
		return false
	}
	return it.bufferIdx < len(it.buffer) || it.hasMore
}

// Next returns the next bot in the iteration.
func (it *BotIterator) Next() (*types.Bot, error) {
	if it.err != nil {
		return nil, it.err
	}

	// If buffer is empty or exhausted, fetch the next page
	if it.bufferIdx >= len(it.buffer) {
		if !it.hasMore {
			return nil, ErrNoMoreBots
		}

		query := it.query
		resp, err := it.listFunc(it.ctx, &query)
		if err != nil {
			it.err = err
			return nil, err
		}

		if resp == nil {
			it.err = fmt.Errorf("received nil response")
			return nil, it.err
		}

		it.buffer = resp.Results
		it.bufferIdx = 0
		it.query.Offset += len(resp.Results)

		// A short page, the offset cap or the reported total ends the walk
		if len(resp.Results) < it.query.Limit ||
			it.query.Offset > internal.MaxBotsOffset ||
			(resp.Total > 0 && it.query.Offset >= resp.Total) {
			it.hasMore = false
		}
		if len(it.buffer) == 0 {
			return nil, ErrNoMoreBots
		}
	}

	bot := it.buffer[it.bufferIdx]
	it.bufferIdx++

	return bot, nil
}

// Error returns any error encountered during iteration.
func (it *BotIterator) Error() error {
	return it.err
}

// Reset resets the iterator to start from the beginning.
func (it *BotIterator) Reset() {
	it.buffer = nil
	it.bufferIdx = 0
	it.hasMore = true
	it.err = nil
	it.query.Offset = it.start
}

// Collect fetches all remaining bots up to a maximum limit.
func (it *BotIterator) Collect(maxBots int) ([]*types.Bot, error) {
	var bots []*types.Bot
	count := 0

	for it.HasNext() && (maxBots <= 0 || count < maxBots) {
		bot, err := it.Next()
		if errors.Is(err, ErrNoMoreBots) {
			break
		}
		if err != nil {
			return bots, err
		}
		bots = append(bots, bot)
		count++
	}

	return bots, nil
}
