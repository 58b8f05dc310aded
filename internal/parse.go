package internal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jamesprial/go-topgg/pkg/types"
)

// Parser handles parsing of Top.gg API responses
type Parser struct{}

// NewParser creates a new parser instance
func NewParser() *Parser {
	return &Parser{}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// ParseErrorMessage extracts a human readable message from an error body.
// It returns "" when the body carries none.
func (p *Parser) ParseErrorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	switch {
	case eb.Message != "":
		return eb.Message
	case eb.Error != "":
		return eb.Error
	default:
		return eb.Detail
	}
}

// ParseRetryAfter reads the retry delay from a 429 body. Top.gg has used both
// "retry-after" and "retry_after", as a number or a numeric string.
func (p *Parser) ParseRetryAfter(body []byte) (time.Duration, bool) {
	if len(body) == 0 {
		return 0, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return 0, false
	}
	for _, key := range []string{"retry-after", "retry_after"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if seconds, ok := parseSeconds(raw); ok {
			return time.Duration(seconds * float64(time.Second)), true
		}
	}
	return 0, false
}

func parseSeconds(raw json.RawMessage) (float64, bool) {
	if string(raw) == "null" {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, n >= 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, ParseFloatBitSize)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ParseVoted decodes the response of the vote check endpoint, {"voted": 0|1}.
func (p *Parser) ParseVoted(body []byte) (bool, error) {
	var v struct {
		Voted *int `json:"voted"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return false, fmt.Errorf("failed to parse vote check: %w", err)
	}
	if v.Voted == nil {
		return false, fmt.Errorf("vote check response missing voted field")
	}
	return *v.Voted != 0, nil
}

// ParseWeekend decodes {"is_weekend": bool}.
func (p *Parser) ParseWeekend(body []byte) (bool, error) {
	var w struct {
		IsWeekend *bool `json:"is_weekend"`
	}
	if err := json.Unmarshal(body, &w); err != nil {
		return false, fmt.Errorf("failed to parse weekend status: %w", err)
	}
	if w.IsWeekend == nil {
		return false, fmt.Errorf("weekend response missing is_weekend field")
	}
	return *w.IsWeekend, nil
}

// ParseBots decodes a bot search page. Top.gg omits bots it failed to render,
// so nil entries are dropped.
func (p *Parser) ParseBots(body []byte) (*types.BotsResponse, error) {
	var resp types.BotsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse bot search results: %w", err)
	}
	results := resp.Results[:0]
	for _, bot := range resp.Results {
		if bot != nil {
			results = append(results, bot)
		}
	}
	resp.Results = results
	if resp.Count == 0 {
		resp.Count = len(resp.Results)
	}
	return &resp, nil
}
