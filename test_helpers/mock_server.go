package test_helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jamesprial/go-topgg/pkg/types"
)

// MockServer provides a configurable mock Top.gg API server for testing
type MockServer struct {
	server *httptest.Server

	mu          sync.RWMutex
	responses   map[string]*MockResponse
	defaultResp *MockResponse
	delay       time.Duration
	requestLog  []RequestEntry
	callCount   map[string]int
}

// RequestEntry logs incoming requests for assertions
type RequestEntry struct {
	Method       string
	Path         string
	Query        string
	Headers      http.Header
	Body         string
	Timestamp    time.Time
	ResponseCode int
}

// MockResponse defines a mock API response
type MockResponse struct {
	Status  int
	Body    string
	Headers map[string]string
	Delay   time.Duration
}

// NewMockServer creates a new mock server instance.
// Routes are keyed by "METHOD /path"; unmatched requests get a 404.
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses: make(map[string]*MockResponse),
		callCount: make(map[string]int),
		defaultResp: &MockResponse{
			Status: http.StatusNotFound,
			Body:   `{"message":"Not Found"}`,
		},
	}
	ms.server = httptest.NewServer(ms)
	return ms
}

// URL returns the base URL of the mock server, with a trailing slash.
func (ms *MockServer) URL() string {
	return ms.server.URL + "/"
}

// Client returns an HTTP client wired to the mock server.
func (ms *MockServer) Client() *http.Client {
	return ms.server.Client()
}

// Close shuts down the mock server
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse configures a response for a method and path.
func (ms *MockServer) SetResponse(method, path string, response *MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[routeKey(method, path)] = response
}

// SetJSON configures a 200 response whose body is v encoded as JSON.
func (ms *MockServer) SetJSON(method, path string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("mock server: encode %s %s: %v", method, path, err))
	}
	ms.SetResponse(method, path, &MockResponse{Status: http.StatusOK, Body: string(body)})
}

// SetDefaultResponse configures the response for unmatched routes
func (ms *MockServer) SetDefaultResponse(response *MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.defaultResp = response
}

// SetDelay adds delay to all responses
func (ms *MockServer) SetDelay(delay time.Duration) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.delay = delay
}

// GetRequestLog returns the request log
func (ms *MockServer) GetRequestLog() []RequestEntry {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return append([]RequestEntry{}, ms.requestLog...)
}

// GetCallCount returns the call count for a method and path
func (ms *MockServer) GetCallCount(method, path string) int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.callCount[routeKey(method, path)]
}

// LastRequest returns the most recent request to a method and path.
func (ms *MockServer) LastRequest(method, path string) (RequestEntry, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	for i := len(ms.requestLog) - 1; i >= 0; i-- {
		entry := ms.requestLog[i]
		if entry.Method == method && entry.Path == path {
			return entry, true
		}
	}
	return RequestEntry{}, false
}

// ClearLog clears the request log and call counts
func (ms *MockServer) ClearLog() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.requestLog = ms.requestLog[:0]
	ms.callCount = make(map[string]int)
}

// ServeHTTP implements http.Handler
func (ms *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	key := routeKey(r.Method, r.URL.Path)

	ms.mu.Lock()
	ms.callCount[key]++
	response, exists := ms.responses[key]
	if !exists {
		response = ms.defaultResp
	}
	delay := ms.delay + response.Delay
	ms.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	for k, v := range response.Headers {
		w.Header().Set(k, v)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(response.Status)
	w.Write([]byte(response.Body))

	ms.mu.Lock()
	ms.requestLog = append(ms.requestLog, RequestEntry{
		Method:       r.Method,
		Path:         r.URL.Path,
		Query:        r.URL.RawQuery,
		Headers:      r.Header.Clone(),
		Body:         string(body),
		Timestamp:    time.Now(),
		ResponseCode: response.Status,
	})
	ms.mu.Unlock()
}

func routeKey(method, path string) string {
	return method + " /" + strings.TrimPrefix(path, "/")
}

// TopggMockServer provides Top.gg specific mock responses for one bot.
type TopggMockServer struct {
	*MockServer
	BotID snowflake.ID
}

// NewTopggMockServer creates a mock server pre-configured for a bot's
// stats, vote and weekend endpoints.
func NewTopggMockServer(botID snowflake.ID) *TopggMockServer {
	server := &TopggMockServer{
		MockServer: NewMockServer(),
		BotID:      botID,
	}
	server.setupDefaultResponses()
	return server
}

func (tms *TopggMockServer) setupDefaultResponses() {
	tms.SetResponse(http.MethodPost, tms.StatsPath(), &MockResponse{Status: http.StatusOK, Body: `{}`})
	tms.SetResponse(http.MethodGet, tms.StatsPath(), &MockResponse{Status: http.StatusOK, Body: `{"server_count":0}`})
	tms.SetResponse(http.MethodGet, "/weekend", &MockResponse{Status: http.StatusOK, Body: `{"is_weekend":false}`})
	tms.SetResponse(http.MethodGet, tms.botPath("check"), &MockResponse{Status: http.StatusOK, Body: `{"voted":0}`})
	tms.SetResponse(http.MethodGet, tms.botPath("votes"), &MockResponse{Status: http.StatusOK, Body: `[]`})
}

func (tms *TopggMockServer) botPath(resource string) string {
	return "/bots/" + tms.BotID.String() + "/" + resource
}

// StatsPath returns the path stats are posted to.
func (tms *TopggMockServer) StatsPath() string {
	return tms.botPath("stats")
}

// SetupBot serves bot at /bots/{id}.
func (tms *TopggMockServer) SetupBot(bot map[string]any) {
	id, _ := bot["clientid"].(string)
	tms.SetJSON(http.MethodGet, "/bots/"+id, bot)
}

// SetupRateLimit makes stats posts answer 429 with the given retry delay.
func (tms *TopggMockServer) SetupRateLimit(retryAfter time.Duration) {
	tms.SetResponse(http.MethodPost, tms.StatsPath(), &MockResponse{
		Status: http.StatusTooManyRequests,
		Body:   fmt.Sprintf(`{"retry-after":%d}`, int(retryAfter/time.Second)),
	})
}

// SetupUnauthorized makes every route answer 401.
func (tms *TopggMockServer) SetupUnauthorized() {
	tms.mu.Lock()
	tms.responses = make(map[string]*MockResponse)
	tms.mu.Unlock()
	tms.SetDefaultResponse(&MockResponse{Status: http.StatusUnauthorized, Body: `{"error":"Unauthorized"}`})
}

// PostedStats decodes every stats body posted so far, oldest first.
func (tms *TopggMockServer) PostedStats() []types.Stats {
	var posted []types.Stats
	for _, entry := range tms.GetRequestLog() {
		if entry.Method != http.MethodPost || entry.Path != tms.StatsPath() {
			continue
		}
		var stats types.Stats
		if err := json.Unmarshal([]byte(entry.Body), &stats); err == nil {
			posted = append(posted, stats)
		}
	}
	return posted
}
