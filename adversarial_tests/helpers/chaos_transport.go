package helpers

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

// ChaosMode defines the type of chaos to inject
type ChaosMode int

const (
	// ChaosNone forwards requests untouched
	ChaosNone ChaosMode = iota

	// ChaosConnectionReset fails the round trip
	ChaosConnectionReset

	// ChaosPartialRead cuts the response body off mid-read
	ChaosPartialRead

	// ChaosEmptyBody answers 200 with no body
	ChaosEmptyBody

	// ChaosOversizedBody answers 200 with a body larger than the client reads
	ChaosOversizedBody

	// ChaosInvalidJSON answers 200 with a body that is not JSON
	ChaosInvalidJSON

	// ChaosIntermittent applies ChaosConnectionReset to a fraction of requests
	ChaosIntermittent
)

// OversizedBodyBytes is the size of a ChaosOversizedBody response.
const OversizedBodyBytes = 5 << 20

// ChaosConfig configures the chaos transport behavior
type ChaosConfig struct {
	// Mode determines which type of chaos to inject
	Mode ChaosMode

	// FailureRate determines probability of failure (0.0 to 1.0)
	// Only used for ChaosIntermittent mode
	FailureRate float64

	// PartialReadBytes specifies how many bytes are delivered before failing
	PartialReadBytes int

	// Seed makes intermittent failures reproducible
	Seed int64
}

// ChaosTransport is an http.RoundTripper that injects failures in front of
// another transport.
type ChaosTransport struct {
	next   http.RoundTripper
	config ChaosConfig

	mu  sync.Mutex
	rnd *rand.Rand

	requests atomic.Int64
	injected atomic.Int64
}

// NewChaosTransport wraps next. A nil next uses http.DefaultTransport.
func NewChaosTransport(next http.RoundTripper, config ChaosConfig) *ChaosTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &ChaosTransport{
		next:   next,
		config: config,
		rnd:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Requests returns how many round trips were attempted.
func (c *ChaosTransport) Requests() int64 {
	return c.requests.Load()
}

// Injected returns how many round trips were sabotaged.
func (c *ChaosTransport) Injected() int64 {
	return c.injected.Load()
}

// RoundTrip implements http.RoundTripper
func (c *ChaosTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.requests.Add(1)

	mode := c.config.Mode
	if mode == ChaosIntermittent {
		c.mu.Lock()
		fail := c.rnd.Float64() < c.config.FailureRate
		c.mu.Unlock()
		if fail {
			mode = ChaosConnectionReset
		} else {
			mode = ChaosNone
		}
	}

	if mode != ChaosNone {
		c.injected.Add(1)
	}

	switch mode {
	case ChaosConnectionReset:
		return nil, errors.New("connection reset by peer")

	case ChaosPartialRead:
		resp, err := c.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		cut := c.config.PartialReadBytes
		if cut <= 0 || cut >= len(body) {
			cut = len(body) / 2
		}
		resp.Body = &partialReadCloser{reader: bytes.NewReader(body[:cut])}
		return resp, nil

	case ChaosEmptyBody:
		return syntheticResponse(req, http.StatusOK, ""), nil

	case ChaosOversizedBody:
		body := `{"is_weekend":true,"pad":"` + strings.Repeat("A", OversizedBodyBytes) + `"}`
		return syntheticResponse(req, http.StatusOK, body), nil

	case ChaosInvalidJSON:
		return syntheticResponse(req, http.StatusOK, "This is not JSON\x00\x01\x02"), nil

	default:
		return c.next.RoundTrip(req)
	}
}

func syntheticResponse(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		Status:        http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
		Header:        http.Header{"Content-Type": []string{"application/json"}},
	}
}

// partialReadCloser delivers its data and then fails instead of returning EOF
type partialReadCloser struct {
	reader io.Reader
}

func (p *partialReadCloser) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	if errors.Is(err, io.EOF) {
		return n, errors.New("connection reset during read")
	}
	return n, err
}

func (p *partialReadCloser) Close() error {
	return nil
}
