package internal

import (
	"testing"
	"time"
)

func TestNewParser(t *testing.T) {
	parser := NewParser()
	if parser == nil {
		t.Fatal("NewParser returned nil")
	}
}

func TestParser_ParseErrorMessage(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "empty body", body: "", want: ""},
		{name: "not json", body: "<html>oops</html>", want: ""},
		{name: "error field", body: `{"error":"Unauthorized"}`, want: "Unauthorized"},
		{name: "message field", body: `{"message":"Not Found"}`, want: "Not Found"},
		{name: "message preferred", body: `{"error":"x","message":"y"}`, want: "y"},
		{name: "detail field", body: `{"detail":"bad query"}`, want: "bad query"},
		{name: "no known fields", body: `{"code":1}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parser.ParseErrorMessage([]byte(tt.body)); got != tt.want {
				t.Errorf("ParseErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParser_ParseRetryAfter(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name   string
		body   string
		want   time.Duration
		wantOK bool
	}{
		{name: "dash key", body: `{"retry-after":30}`, want: 30 * time.Second, wantOK: true},
		{name: "underscore key", body: `{"retry_after":1.5}`, want: 1500 * time.Millisecond, wantOK: true},
		{name: "string value", body: `{"retry-after":"3600"}`, want: time.Hour, wantOK: true},
		{name: "negative value", body: `{"retry-after":-1}`, wantOK: false},
		{name: "missing key", body: `{"error":"slow down"}`, wantOK: false},
		{name: "garbage value", body: `{"retry-after":"soon"}`, wantOK: false},
		{name: "not json", body: `slow down`, wantOK: false},
		{name: "empty", body: ``, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parser.ParseRetryAfter([]byte(tt.body))
			if ok != tt.wantOK {
				t.Fatalf("ParseRetryAfter() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseRetryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParser_ParseVoted(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name      string
		body      string
		want      bool
		wantError bool
	}{
		{name: "voted", body: `{"voted":1}`, want: true},
		{name: "not voted", body: `{"voted":0}`, want: false},
		{name: "missing field", body: `{}`, wantError: true},
		{name: "bad json", body: `{"voted":`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parser.ParseVoted([]byte(tt.body))
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseVoted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParser_ParseWeekend(t *testing.T) {
	parser := NewParser()

	got, err := parser.ParseWeekend([]byte(`{"is_weekend":true}`))
	if err != nil || !got {
		t.Fatalf("ParseWeekend() = %v, %v; want true, nil", got, err)
	}

	got, err = parser.ParseWeekend([]byte(`{"is_weekend":false}`))
	if err != nil || got {
		t.Fatalf("ParseWeekend() = %v, %v; want false, nil", got, err)
	}

	if _, err := parser.ParseWeekend([]byte(`{}`)); err == nil {
		t.Fatal("expected error for missing field")
	}
}

func TestParser_ParseBots(t *testing.T) {
	parser := NewParser()

	body := `{
		"results": [
			{"clientid":"1","id":"1","username":"one"},
			null,
			{"clientid":"2","id":"2","username":"two"}
		],
		"limit": 50,
		"offset": 0,
		"total": 2
	}`

	resp, err := parser.ParseBots([]byte(body))
	if err != nil {
		t.Fatalf("ParseBots returned error: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results after dropping null, got %d", len(resp.Results))
	}
	if resp.Results[1].Username != "two" {
		t.Errorf("expected second bot 'two', got %q", resp.Results[1].Username)
	}
	if resp.Count != 2 {
		t.Errorf("expected count to default to result length, got %d", resp.Count)
	}
	if resp.Limit != 50 || resp.Total != 2 {
		t.Errorf("unexpected paging fields: %+v", resp)
	}

	if _, err := parser.ParseBots([]byte(`[]`)); err == nil {
		t.Fatal("expected error for non-object body")
	}
}
