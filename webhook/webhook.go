// Package webhook receives the vote notifications Top.gg sends to a bot's
// webhook URL.
//
//	http.Handle("/votes", webhook.New(secret, func(ctx context.Context, v types.Vote) {
//		log.Printf("%s voted", v.User)
//	}))
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jamesprial/go-topgg/pkg/types"
	"github.com/jamesprial/go-topgg/pkg/validation"
)

// DefaultMaxBodyBytes bounds the size of a vote payload.
const DefaultMaxBodyBytes = 64 << 10

// Option configures the handler returned by New.
type Option func(*handler)

// WithLogger sets the logger for rejected requests. Defaults to discarding.
func WithLogger(logger *slog.Logger) Option {
	return func(h *handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMaxBodyBytes sets the largest payload accepted.
func WithMaxBodyBytes(n int64) Option {
	return func(h *handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

type handler struct {
	authorization []byte
	fn            func(context.Context, types.Vote)
	logger        *slog.Logger
	maxBody       int64
}

// New returns a handler that checks each request's Authorization header
// against authorization and calls fn with the decoded vote.
//
// Responses: 204 after fn returns, 405 for anything but POST, 401 for a
// wrong Authorization header and 400 for a body that is not a vote.
//
// New panics if authorization is empty or fn is nil.
func New(authorization string, fn func(context.Context, types.Vote), opts ...Option) http.Handler {
	if authorization == "" {
		panic("webhook: empty authorization")
	}
	if fn == nil {
		panic("webhook: nil vote func")
	}
	h := &handler{
		authorization: []byte(authorization),
		fn:            fn,
		logger:        slog.New(slog.DiscardHandler),
		maxBody:       DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), h.authorization) != 1 {
		h.logger.Warn("rejected vote webhook", "reason", "bad authorization", "remote_addr", r.RemoteAddr)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	vote, err := h.decode(w, r)
	if err != nil {
		h.logger.Warn("rejected vote webhook", "reason", "bad body", "error", err)
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.logger.Debug("received vote", "bot", vote.Bot, "user", vote.User, "type", vote.Type)
	h.fn(r.Context(), vote)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request) (types.Vote, error) {
	var vote types.Vote
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err := dec.Decode(&vote); err != nil {
		return types.Vote{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return types.Vote{}, errors.New("trailing data after vote")
	}
	if err := validation.ValidateVote(&vote); err != nil {
		return types.Vote{}, err
	}
	return vote, nil
}
