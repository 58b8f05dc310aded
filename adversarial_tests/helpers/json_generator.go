package helpers

import (
	"fmt"
	"strings"
)

// JSONGenerator creates pathological Top.gg response bodies
type JSONGenerator struct{}

// NewJSONGenerator creates a new JSON generator
func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

// GenerateMalformedVoteChecks returns bodies for bots/{id}/check that carry
// no usable vote flag
func (g *JSONGenerator) GenerateMalformedVoteChecks() []string {
	return []string{
		``,
		`{}`,
		`null`,
		`[]`,
		`{"voted":}`,
		`{"voted":"yes"}`,
		`{"voted":null}`,
		`{"voted":[1]}`,
		`{"vote":1}`,
		`not json at all`,
	}
}

// GenerateMalformedWeekend returns bodies for /weekend that carry no usable flag
func (g *JSONGenerator) GenerateMalformedWeekend() []string {
	return []string{
		``,
		`{}`,
		`{"is_weekend":"true"}`,
		`{"is_weekend":1}`,
		`{"is_weekend":null}`,
		`{"isWeekend":true}`,
		`{"is_weekend":tru}`,
	}
}

// GenerateMalformedBotListings returns bodies for /bots that cannot be decoded
func (g *JSONGenerator) GenerateMalformedBotListings() []string {
	return []string{
		`{"results":`,
		`{"results":{}}`,
		`{"results":"none"}`,
		`{"results":[],"total":"many"}`,
		`[]`,
	}
}

// GenerateOddBotListings returns decodable /bots bodies with unusual shapes
// and the number of bots each should yield
func (g *JSONGenerator) GenerateOddBotListings() map[string]struct {
	Body string
	Want int
} {
	return map[string]struct {
		Body string
		Want int
	}{
		"null results":        {Body: `{"results":null}`, Want: 0},
		"null entries":        {Body: `{"results":[null,{"clientid":"1","username":"a"},null]}`, Want: 1},
		"missing count":       {Body: `{"results":[{"clientid":"1"},{"clientid":"2"}]}`, Want: 2},
		"unknown fields":      {Body: `{"results":[{"clientid":"1","extra":{"deep":[1,2,3]}}],"surprise":true}`, Want: 1},
		"total below results": {Body: `{"results":[{"clientid":"1"},{"clientid":"2"}],"total":1}`, Want: 2},
	}
}

// GenerateRetryAfterBodies returns 429 bodies and the delay each should
// produce, with ok false where the body carries no usable delay
func (g *JSONGenerator) GenerateRetryAfterBodies() []struct {
	Body    string
	Seconds float64
	OK      bool
} {
	return []struct {
		Body    string
		Seconds float64
		OK      bool
	}{
		{Body: `{"retry-after":30}`, Seconds: 30, OK: true},
		{Body: `{"retry_after":2.5}`, Seconds: 2.5, OK: true},
		{Body: `{"retry-after":"45"}`, Seconds: 45, OK: true},
		{Body: `{"retry-after":-5}`, OK: false},
		{Body: `{"retry-after":"soon"}`, OK: false},
		{Body: `{"retry-after":null}`, OK: false},
		{Body: `{}`, OK: false},
		{Body: `not json`, OK: false},
		{Body: ``, OK: false},
	}
}

// GenerateMalformedVotes returns webhook bodies that must be rejected
func (g *JSONGenerator) GenerateMalformedVotes() []string {
	return []string{
		``,
		`{}`,
		`null`,
		`[]`,
		`{"bot":"264811613708746752"}`,
		`{"user":"140862798832861184","type":"upvote"}`,
		`{"bot":"264811613708746752","user":"140862798832861184","type":"downvote"}`,
		`{"bot":"264811613708746752","user":"not-an-id","type":"upvote"}`,
		`{"bot":"264811613708746752","user":"140862798832861184","type":"upvote"} trailing`,
		`{"bot":"264811613708746752","user":"140862798832861184","type":"upvote","isWeekend":"yes"}`,
		g.GenerateJSONBomb(10000),
	}
}

// GenerateJSONBomb creates deeply nested arrays
func (g *JSONGenerator) GenerateJSONBomb(depth int) string {
	return strings.Repeat("[", depth) + strings.Repeat("]", depth)
}

// GenerateLargeListing creates a /bots body with size minimal bots that
// claims total matches overall
func (g *JSONGenerator) GenerateLargeListing(size, total int) string {
	var b strings.Builder
	b.WriteString(`{"results":[`)
	for i := 0; i < size; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `{"clientid":"%d","username":"bot%d"}`, i+1, i+1)
	}
	fmt.Fprintf(&b, `],"limit":%d,"offset":0,"count":%d,"total":%d}`, size, size, total)
	return b.String()
}
