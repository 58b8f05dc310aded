package helpers

import (
	"encoding/base64"
	"math/rand"
	"strings"
)

// Fuzzer provides utilities for generating adversarial input strings
type Fuzzer struct {
	rnd *rand.Rand
}

// NewFuzzer creates a new Fuzzer with the given seed
func NewFuzzer(seed int64) *Fuzzer {
	return &Fuzzer{
		rnd: rand.New(rand.NewSource(seed)),
	}
}

// EncodeToken builds a token whose payload segment is payload. The header
// and signature segments are placeholders.
func EncodeToken(payload string) string {
	return "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + ".c2lnbmF0dXJl"
}

// FuzzToken generates malformed API tokens, none of which names a bot
func (f *Fuzzer) FuzzToken() []string {
	return []string{
		// Segment count
		"",
		"opaque-token",
		"a.b",
		"a.b.c.d",
		"..",
		"...",

		// Payload not base64
		"a.!!!.c",
		"a.%%%%.c",
		"a.\x00\x01.c",

		// Payload not JSON
		EncodeToken("not json"),
		EncodeToken(""),
		EncodeToken("[]"),
		EncodeToken(`{"id":`),

		// Payload without a usable bot ID
		EncodeToken(`{}`),
		EncodeToken(`{"id":"0"}`),
		EncodeToken(`{"id":""}`),
		EncodeToken(`{"id":"not-a-snowflake"}`),
		EncodeToken(`{"id":"-1"}`),
		EncodeToken(`{"id":"99999999999999999999999"}`),
		EncodeToken(`{"bot":true}`),
	}
}

// FuzzUserAgent generates User-Agent values the client must reject
func (f *Fuzzer) FuzzUserAgent() []string {
	return []string{
		// Header injection via newlines
		"MyBot/1.0\nX-Evil-Header: injected",
		"MyBot/1.0\rX-Evil-Header: injected",
		"MyBot/1.0\r\nX-Evil-Header: injected",
		"MyBot/1.0\r\nContent-Length: 0\r\n\r\nGET /evil HTTP/1.1",
		"\n\n\nMyBot/1.0",

		// Extremely long
		strings.Repeat("a", 257),
		strings.Repeat("a", 10000),
	}
}

// FuzzSearchTerm generates bot search terms that must not reach the query
// string intact
func (f *Fuzzer) FuzzSearchTerm() []string {
	return []string{
		"music\nprefix: !",
		"music\r\nmonthlyPoints: 999999",
		"\n",
		"bot\rvanity: admin",
	}
}

// FuzzHarmlessSearchTerm generates unusual but legal bot search terms
func (f *Fuzzer) FuzzHarmlessSearchTerm() []string {
	return append([]string{
		"music bot",
		"café",
		"тест",
		"测试",
		"🚀rocket",
		"'; DROP TABLE bots--",
		"../../etc/passwd",
		"a&b=c",
		"50%",
		"#hashtag",
	}, f.GenerateRandomString(64, true))
}

// FuzzSnowflakeString generates strings that are not Discord IDs
func (f *Fuzzer) FuzzSnowflakeString() []string {
	return []string{
		"",
		"abc",
		"-1",
		"1.5",
		"0x10",
		"99999999999999999999999",
		" 123",
		"123 ",
	}
}

// GenerateRandomString creates a random string, optionally with special characters
func (f *Fuzzer) GenerateRandomString(length int, includeSpecial bool) string {
	const (
		alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
		special      = "!@#$%^&*()_+-=[]{}|;:,.<>?/~` "
	)

	charset := alphanumeric
	if includeSpecial {
		charset += special
	}

	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(charset[f.rnd.Intn(len(charset))])
	}
	return b.String()
}

// RandomCounts generates n server counts in [0, max)
func (f *Fuzzer) RandomCounts(n, max int) []int {
	counts := make([]int, n)
	for i := range counts {
		counts[i] = f.rnd.Intn(max)
	}
	return counts
}
