package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/jamesprial/go-topgg/internal"
)

const baseURL = "https://top.gg/api/"

// Simple probe to see what Top.gg actually returns, bypassing the client's
// decoding
func main() {
	token := os.Getenv("TOPGG_TOKEN")
	if token == "" {
		fmt.Println("TOPGG_TOKEN required")
		return
	}

	claims, err := internal.ParseToken(token)
	if err != nil {
		fmt.Printf("Failed to read token: %v\n", err)
		return
	}
	fmt.Printf("Token names bot %s\n", claims.BotID)

	bot := claims.BotID.String()
	paths := []string{
		"weekend",
		"bots/" + bot,
		"bots/" + bot + "/stats",
		"bots/" + bot + "/check?userId=" + bot,
		"bots/" + bot + "/votes?page=1",
		"bots?limit=2",
	}

	for _, path := range paths {
		status, header, body, err := fetch(token, path)
		if err != nil {
			fmt.Printf("\n%s: failed: %v\n", path, err)
			continue
		}

		fmt.Printf("\n%s: HTTP %d\n", path, status)
		if ra := header.Get("Retry-After"); ra != "" {
			fmt.Printf("  Retry-After: %s\n", ra)
		}
		describe(body)
	}
}

// describe prints the top-level shape of a JSON body
func describe(body []byte) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Printf("  Not JSON: %v\n", err)
		fmt.Printf("  Raw response: %.300s\n", string(body))
		return
	}

	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Printf("  Object with %d fields\n", len(keys))
		for _, k := range keys {
			fmt.Printf("    %s: %s\n", k, kind(t[k]))
		}
	case []any:
		fmt.Printf("  Array of %d elements\n", len(t))
		if len(t) > 0 {
			fmt.Printf("  First element: %s\n", kind(t[0]))
		}
	default:
		fmt.Printf("  Scalar %s: %v\n", kind(t), t)
	}
}

func kind(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64:
		return "number"
	case string:
		if len(t) > 40 {
			return fmt.Sprintf("string %q...", t[:40])
		}
		return fmt.Sprintf("string %q", t)
	case []any:
		return fmt.Sprintf("array(%d)", len(t))
	case map[string]any:
		return fmt.Sprintf("object(%d)", len(t))
	default:
		return fmt.Sprintf("%T", v)
	}
}

func fetch(token, path string) (int, http.Header, []byte, error) {
	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		return 0, nil, nil, err
	}

	req.Header.Set("Authorization", token)
	req.Header.Set("User-Agent", "TestBot/1.0")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header, body, err
}
