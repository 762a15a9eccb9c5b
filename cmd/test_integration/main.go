package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tidwall/gjson"
)

func baseURL() string {
	if u := os.Getenv("LEXGRAPH_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

// check is one smoke step: a request and a predicate over the JSON reply.
type check struct {
	name    string
	method  string
	path    string
	payload any
	expect  func(gjson.Result) error
}

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting smoke test against", baseURL())

	checks := []check{
		{
			name: "health", method: http.MethodGet, path: "/health",
			expect: func(r gjson.Result) error {
				return want(r.Get("status").String() == "ok", "status is %q", r.Get("status").String())
			},
		},
		{
			name: "graph question", method: http.MethodPost, path: "/ask",
			payload: map[string]string{"question": "What regulations reference the Employment Insurance Act?"},
			expect: func(r gjson.Result) error {
				if err := want(r.Get("intent.category").String() == "graph_relationship", "intent is %s", r.Get("intent.category")); err != nil {
					return err
				}
				return want(r.Get("confidence_score").Float() >= 0.8, "confidence %.2f below the high band", r.Get("confidence_score").Float())
			},
		},
		{
			name: "unknown act", method: http.MethodPost, path: "/ask",
			payload: map[string]string{"question": "What laws reference the Imaginary Act of 2099?"},
			expect: func(r gjson.Result) error {
				c := r.Get("confidence_score").Float()
				return want(c >= 0.3 && c < 0.8, "confidence %.2f outside the medium band", c)
			},
		},
		{
			name: "keyword search", method: http.MethodPost, path: "/search",
			payload: map[string]any{"query": "employment insurance", "mode": "keyword", "size": 5},
			expect: func(r gjson.Result) error {
				return want(r.Get("total").Int() > 0, "no keyword hits")
			},
		},
		{
			name: "hybrid search", method: http.MethodPost, path: "/search",
			payload: map[string]any{"query": "maximum weeks of benefits", "size": 3},
			expect: func(r gjson.Result) error {
				n := len(r.Get("hits").Array())
				return want(n <= 3, "%d hits for size 3", n)
			},
		},
	}

	for i, c := range checks {
		fmt.Printf("%d. %s...\n", i+1, c.name)
		if err := run(c); err != nil {
			fmt.Printf("FAILED: %s: %v\n", c.name, err)
			os.Exit(1)
		}
		fmt.Printf("PASSED: %s\n", c.name)
	}
}

func want(ok bool, format string, args ...any) error {
	if ok {
		return nil
	}
	return fmt.Errorf(format, args...)
}

func run(c check) error {
	var body io.Reader
	if c.payload != nil {
		jsonBytes, _ := json.Marshal(c.payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(c.method, baseURL()+c.path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	fmt.Printf("Response: %s\n", string(respBody))
	return c.expect(gjson.ParseBytes(respBody))
}
