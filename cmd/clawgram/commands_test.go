package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/kalambet/clawgram/internal/clawgram"
	"github.com/kalambet/clawgram/internal/config"
	"github.com/kalambet/clawgram/internal/envelope"
	"github.com/kalambet/clawgram/internal/storage"
	"github.com/kalambet/clawgram/internal/surface"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
	reqSeq   int
}

// newTestServer serves canned Clawgram envelopes keyed by "METHOD /path".
// Unknown routes answer 404 not_found.
func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.mu.Lock()
		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})
		ts.reqSeq++
		reqID := fmt.Sprintf("req-%d", ts.reqSeq)
		ts.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(envelope.HeaderRequestID, reqID)

		key := r.Method + " " + r.URL.Path
		if q := r.URL.Query().Get("cursor"); q != "" {
			if _, ok := responses[key+"?cursor="+q]; ok {
				key += "?cursor=" + q
			}
		}
		data, ok := responses[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, `{"success":false,"error":"not found","code":"not_found","request_id":%q}`, reqID)
			return
		}
		if strings.HasPrefix(data, "!") {
			// "!<status> <code>" fails the call.
			var status int
			var code string
			fmt.Sscanf(data, "!%d %s", &status, &code)
			w.WriteHeader(status)
			fmt.Fprintf(w, `{"success":false,"error":"server says no","code":%q,"request_id":%q}`, code, reqID)
			return
		}
		fmt.Fprintf(w, `{"success":true,"data":%s,"request_id":%q}`, data, reqID)
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) count(method, path string) int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	n := 0
	for _, r := range ts.requests {
		if r.Method == method && strings.HasPrefix(r.Path, path) {
			n++
		}
	}
	return n
}

func (ts *testServer) config(t *testing.T) config.Config {
	return config.Config{
		API: config.APIConfig{
			BaseURL:   ts.server.URL,
			Key:       "claw_test",
			PageLimit: 20,
			Timeout:   "5s",
		},
		Server:  config.ServerConfig{Port: 4100},
		Storage: config.StorageConfig{DataDir: t.TempDir()},
		Log:     config.LogConfig{Level: "error"},
	}
}

// execute runs the root command against cfg and returns what it wrote to
// stdout.
func execute(t *testing.T, cfg config.Config, args ...string) (string, error) {
	t.Helper()
	oldLoad, oldFormat, oldNoColor := loadConfig, outputFormat, noColor
	t.Cleanup(func() {
		loadConfig, outputFormat, noColor = oldLoad, oldFormat, oldNoColor
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})

	loadConfig = func() (config.Config, error) { return cfg, nil }
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(append([]string{"--no-color", "--output", "text"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

const (
	postP1 = `{"id":"p1","caption":"neon tide","author":{"id":"a1","name":"nova"},"like_count":3,"viewer_has_liked":false}`
	postP2 = `{"id":"p2","caption":"glass city","author":{"id":"a2","name":"orbit"},"like_count":0}`
	postP3 = `{"id":"p3","caption":"late bloom","author":{"id":"a1","name":"nova"},"like_count":1}`
)

func feedResponses() map[string]string {
	return map[string]string{
		"GET /api/v1/explore":           `{"items":[` + postP1 + `,` + postP2 + `],"page_info":{"next_cursor":"c2","has_more":true}}`,
		"GET /api/v1/explore?cursor=c2": `{"items":[` + postP3 + `],"page_info":{"has_more":false}}`,
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestExploreCommand_Text(t *testing.T) {
	ts := newTestServer(t, feedResponses())

	out, err := execute(t, ts.config(t), "explore", "--pages", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"p1", "@nova", "neon tide", "p2", "more: --cursor c2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "p3") {
		t.Errorf("single page should not include p3:\n%s", out)
	}

	ts.mu.Lock()
	auth := ts.requests[0].Auth
	ts.mu.Unlock()
	if auth != "Bearer claw_test" {
		t.Errorf("auth = %q, want Bearer claw_test", auth)
	}
	if n := ts.count("GET", "/api/v1/posts/"); n != 0 {
		t.Errorf("one-shot commands should not prefetch post detail, got %d calls", n)
	}
}

func TestExploreCommand_PagesJSON(t *testing.T) {
	ts := newTestServer(t, feedResponses())

	out, err := execute(t, ts.config(t), "explore", "--pages", "3", "--output", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var st surface.FeedLoadState
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if st.Status != surface.StatusReady {
		t.Errorf("status = %q, want ready", st.Status)
	}
	if st.Page == nil || len(st.Page.Posts) != 3 {
		t.Fatalf("expected 3 posts, got %+v", st.Page)
	}
	if st.Page.NextCursor != "" {
		t.Errorf("next cursor = %q, want empty", st.Page.NextCursor)
	}
	// The third page is never requested: an empty cursor ends pagination.
	if n := ts.count("GET", "/api/v1/explore"); n != 2 {
		t.Errorf("explore calls = %d, want 2", n)
	}
}

func TestHashtagCommand_BlankFailsLocally(t *testing.T) {
	ts := newTestServer(t, nil)

	_, err := execute(t, ts.config(t), "hashtag", "  ")
	if err == nil {
		t.Fatal("expected error for blank hashtag")
	}
	if !strings.Contains(err.Error(), "Enter a hashtag.") {
		t.Errorf("error = %q", err.Error())
	}
	if len(ts.requests) != 0 {
		t.Errorf("expected no requests, got %d", len(ts.requests))
	}
}

func TestExploreCommand_ServerError(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/v1/explore": "!500 internal_error",
	})

	_, err := execute(t, ts.config(t), "explore", "--pages", "1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "request req-1") {
		t.Errorf("error should carry the request id, got %q", err.Error())
	}
}

func TestSearchCommand_YAML(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/v1/search": `{"agents":{"items":[{"id":"a1","name":"nova"}]},"hashtags":{"items":[{"tag":"sunset","post_count":4}]},"posts":{"items":[` + postP1 + `]}}`,
	})

	out, err := execute(t, ts.config(t), "search", "sunset", "--pages", "1", "--mode", "all", "--output", "yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"status: ready", "query: sunset", "tag: sunset"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml output missing %q:\n%s", want, out)
		}
	}
}

func TestPostCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/v1/posts/p1":          postP1,
		"GET /api/v1/posts/p1/comments": `{"items":[{"id":"c1","post_id":"p1","body":"first!","author":{"name":"orbit"}}],"next_cursor":"k2","has_more":true}`,
	})

	out, err := execute(t, ts.config(t), "post", "p1", "--cursor", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"p1 by @nova", "neon tide", "c1 @orbit: first!", "more: --cursor k2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPostCommand_NotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	_, err := execute(t, ts.config(t), "post", "missing", "--cursor", "")
	if err == nil {
		t.Fatal("expected error for missing post")
	}
}

func TestLikeCommand_Journals(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/v1/posts/p1":       postP1,
		"POST /api/v1/posts/p1/like": `{"liked":true,"like_count":4}`,
	})
	cfg := ts.config(t)

	out, err := execute(t, cfg, "like", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Liked p1 (4 likes)") {
		t.Errorf("output = %q", out)
	}
	if n := ts.count("POST", "/api/v1/posts/p1/like"); n != 1 {
		t.Errorf("like calls = %d, want 1", n)
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		t.Fatalf("opening journal: %v", err)
	}
	defer store.Close()
	actions, err := store.ListActions(context.Background(), storage.ActionFilter{})
	if err != nil {
		t.Fatalf("listing actions: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("expected 1 journaled action, got %d", len(actions))
	}
	if actions[0].Scope != clawgram.ScopeLike || actions[0].EntityID != "p1" || actions[0].Status != storage.ActionSuccess {
		t.Errorf("unexpected action %+v", actions[0])
	}
}

func TestActionsShow(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/v1/posts/p1":       postP1,
		"POST /api/v1/posts/p1/like": `{"liked":true,"like_count":4}`,
	})
	cfg := ts.config(t)

	if _, err := execute(t, cfg, "like", "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := execute(t, cfg, "actions", "list", "--output", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var listed []storage.Action
	if err := json.Unmarshal([]byte(out), &listed); err != nil || len(listed) != 1 {
		t.Fatalf("listing actions: %v\n%s", err, out)
	}

	out, err = execute(t, cfg, "actions", "show", listed[0].ID, "--output", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var shown storage.Action
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if shown.ID != listed[0].ID || shown.Scope != clawgram.ScopeLike || shown.EntityID != "p1" {
		t.Errorf("unexpected action %+v", shown)
	}

	if _, err := execute(t, cfg, "actions", "show", "missing"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestReportCommand_OwnPost(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/v1/posts/p1/report": "!400 " + clawgram.CodeCannotReportOwnPost,
	})

	_, err := execute(t, ts.config(t), "report", "p1", "--reason", "spam")
	if err == nil {
		t.Fatal("expected error reporting own post")
	}
	want := clawgram.ActionMessage(clawgram.CodeCannotReportOwnPost, "")
	if !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want it to contain %q", err.Error(), want)
	}
	if !strings.Contains(err.Error(), "request req-1") {
		t.Errorf("error should carry the request id, got %q", err.Error())
	}
}

func TestCommentCommand_EmptyBody(t *testing.T) {
	ts := newTestServer(t, nil)

	_, err := execute(t, ts.config(t), "comment", "p1", "   ", "--reply-to", "")
	if err == nil {
		t.Fatal("expected error for empty comment")
	}
	if len(ts.requests) != 0 {
		t.Errorf("expected no requests, got %d", len(ts.requests))
	}
}

func TestFollowCommand_JSONFailureStillRenders(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/v1/agents/nova/follow": "!429 rate_limited",
	})

	out, err := execute(t, ts.config(t), "follow", "@nova", "--unfollow=false", "--output", "json")
	if err == nil {
		t.Fatal("expected error")
	}
	var res envelope.Result[clawgram.FollowResult]
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if res.OK || res.Status != http.StatusTooManyRequests || res.Code != "rate_limited" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestActionsListEmpty(t *testing.T) {
	ts := newTestServer(t, nil)

	out, err := execute(t, ts.config(t), "actions", "list", "--output", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("output = %q, want []", out)
	}
}

func TestConfigShowAll(t *testing.T) {
	ts := newTestServer(t, nil)

	out, err := execute(t, ts.config(t), "config", "show")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "server.port = 4100") {
		t.Errorf("output missing server.port:\n%s", out)
	}
	if strings.Contains(out, "claw_test") {
		t.Errorf("api key leaked:\n%s", out)
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	ts := newTestServer(t, nil)

	_, err := execute(t, ts.config(t), "config", "show", "--output", "xml")
	if err == nil || !strings.Contains(err.Error(), "invalid --output") {
		t.Errorf("err = %v, want invalid --output", err)
	}
}

func TestRenderFormats(t *testing.T) {
	old := outputFormat
	defer func() { outputFormat = old }()

	v := map[string]int{"likes": 3}
	tests := []struct {
		format string
		want   string
	}{
		{"json", `"likes": 3`},
		{"yaml", "likes: 3"},
		{"text", "three likes"},
	}
	for _, tt := range tests {
		outputFormat = tt.format
		var buf bytes.Buffer
		err := render(&buf, v, func(w io.Writer) { fmt.Fprint(w, "three likes") })
		if err != nil {
			t.Fatalf("%s: %v", tt.format, err)
		}
		if !strings.Contains(buf.String(), tt.want) {
			t.Errorf("%s: output = %q, want %q", tt.format, buf.String(), tt.want)
		}
	}
}
