package envelope

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, WithHTTPClient(srv.Client()))
}

func reply(status int, requestID, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requestID != "" {
			w.Header().Set(HeaderRequestID, requestID)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}
}

func TestSend_SuccessEnvelope(t *testing.T) {
	c := newTestClient(t, reply(200, "req-1", `{"success":true,"request_id":"req-1","data":{"id":"p1"}}`))

	res := c.Send(context.Background(), "/api/v1/posts/p1", Request{})
	if !res.OK {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want req-1", res.RequestID)
	}
	if string(res.Data) != `{"id":"p1"}` {
		t.Errorf("Data = %s, want the data sub-field", res.Data)
	}
}

func TestSend_LegacySuccessUsesWholeBody(t *testing.T) {
	body := `{"success":true,"items":[]}`
	c := newTestClient(t, reply(200, "req-2", body))

	res := c.Send(context.Background(), "/x", Request{})
	if !res.OK {
		t.Fatalf("expected success, got %+v", res)
	}
	if string(res.Data) != body {
		t.Errorf("Data = %s, want whole body", res.Data)
	}
	if res.RequestID != "req-2" {
		t.Errorf("RequestID = %q, want header value", res.RequestID)
	}
}

func TestSend_FailureEnvelope(t *testing.T) {
	c := newTestClient(t, reply(422, "req-3",
		`{"success":false,"request_id":"req-3","code":"comment_too_long","hint":"max 500 chars","error":"Comment too long"}`))

	res := c.Send(context.Background(), "/x", Request{Method: http.MethodPost})
	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Status != 422 || res.Code != "comment_too_long" || res.Hint != "max 500 chars" || res.Error != "Comment too long" {
		t.Errorf("unexpected failure fields: %+v", res)
	}
	if res.RequestID != "req-3" {
		t.Errorf("RequestID = %q, want req-3", res.RequestID)
	}
}

func TestSend_RequestIDMismatchIsContractViolation(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"success true", 200, `{"success":true,"request_id":"body-id","data":{}}`},
		{"success false", 400, `{"success":false,"request_id":"body-id","error":"bad"}`},
		{"no success field", 200, `{"request_id":"body-id"}`},
		{"server error", 500, `{"success":true,"request_id":"body-id"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, reply(tt.status, "header-id", tt.body))
			res := c.Send(context.Background(), "/x", Request{})
			if res.OK {
				t.Fatal("mismatched request ids must never succeed")
			}
			if res.Code != CodeContractViolation {
				t.Errorf("Code = %q, want %q", res.Code, CodeContractViolation)
			}
		})
	}
}

func TestSend_MissingHeaderWithBodyIDIsContractViolation(t *testing.T) {
	c := newTestClient(t, reply(200, "", `{"success":true,"request_id":"body-id"}`))
	res := c.Send(context.Background(), "/x", Request{})
	if res.Code != CodeContractViolation {
		t.Errorf("Code = %q, want %q", res.Code, CodeContractViolation)
	}
}

func TestSend_StatusFallbackWithoutSuccessField(t *testing.T) {
	c := newTestClient(t, reply(200, "req-4", `{"items":[1,2]}`))
	res := c.Send(context.Background(), "/x", Request{})
	if !res.OK || string(res.Data) != `{"items":[1,2]}` {
		t.Errorf("expected status-based success with whole body, got %+v", res)
	}

	c = newTestClient(t, reply(404, "req-5", `{"code":"not_found"}`))
	res = c.Send(context.Background(), "/x", Request{})
	if res.OK {
		t.Fatal("expected failure for 404")
	}
	if res.Error != "Not Found" {
		t.Errorf("Error = %q, want status text", res.Error)
	}
	if res.Code != "not_found" {
		t.Errorf("Code = %q, want not_found", res.Code)
	}
}

func TestSend_StrictRequiresSuccessField(t *testing.T) {
	c := newTestClient(t, reply(200, "req-6", `{"liked":true}`))
	res := c.Send(context.Background(), "/x", Request{Method: http.MethodPost, Strict: true})
	if res.OK || res.Code != CodeContractViolation {
		t.Errorf("strict call without success field = %+v, want contract violation", res)
	}
	if res.RequestID != "req-6" {
		t.Errorf("RequestID = %q, want header id", res.RequestID)
	}
}

func TestSend_NonJSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderRequestID, "req-7")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream exploded")
	})
	res := c.Send(context.Background(), "/x", Request{})
	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Error != "upstream exploded" {
		t.Errorf("Error = %q, want raw text", res.Error)
	}
	if res.Status != http.StatusBadGateway {
		t.Errorf("Status = %d", res.Status)
	}
}

func TestSend_NonObjectBody(t *testing.T) {
	c := newTestClient(t, reply(200, "req-8", `[1,2,3]`))
	res := c.Send(context.Background(), "/x", Request{})
	if !res.OK || string(res.Data) != `[1,2,3]` {
		t.Errorf("expected raw array as data, got %+v", res)
	}
}

func TestSend_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url)
	res := c.Send(context.Background(), "/x", Request{})
	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Status != 0 || res.Code != "" || res.RequestID != "" {
		t.Errorf("network failure = %+v, want status 0 and empty code/request id", res)
	}
	if res.Error != "Network request failed" {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestSend_RateLimit(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		reply(200, "req-1", `{"success":true,"request_id":"req-1","data":{}}`)(w, r)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, WithHTTPClient(srv.Client()), WithRateLimit(0.001, 1))
	if res := c.Send(context.Background(), "/x", Request{}); !res.OK {
		t.Fatalf("first request should use the burst token, got %+v", res)
	}

	// The next token is ~1000s away; a short deadline fails without a request.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := c.Send(ctx, "/x", Request{})
	if res.OK || res.Status != 0 {
		t.Errorf("expected network failure while rate limited, got %+v", res)
	}
	if hits != 1 {
		t.Errorf("server hits = %d, want 1", hits)
	}

	if New(srv.URL, WithRateLimit(0, 5)).limiter != nil {
		t.Error("non-positive rps should disable the limiter")
	}
}

func TestSend_RequestShape(t *testing.T) {
	var gotQuery, gotContentType, gotBody, gotHeader string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotContentType = r.Header.Get("Content-Type")
		gotHeader = r.Header.Get("Idempotency-Key")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		reply(200, "req-9", `{"success":true}`)(w, r)
	})

	var missing *string
	res := c.Send(context.Background(), "/x", Request{
		Method:  http.MethodPost,
		Body:    map[string]any{"caption": "hi"},
		Query:   map[string]any{"limit": 20, "cursor": nil, "after": missing, "type": "posts"},
		Headers: map[string]string{"Idempotency-Key": "web-test-1"},
	})
	if !res.OK {
		t.Fatalf("unexpected failure: %+v", res)
	}
	if gotQuery != "limit=20&type=posts" {
		t.Errorf("query = %q, want nil values skipped", gotQuery)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	var decoded map[string]string
	if err := json.Unmarshal([]byte(gotBody), &decoded); err != nil || decoded["caption"] != "hi" {
		t.Errorf("body = %q", gotBody)
	}
	if gotHeader != "web-test-1" {
		t.Errorf("Idempotency-Key = %q", gotHeader)
	}
}

func TestSend_StringBodyIsSentVerbatim(t *testing.T) {
	var gotContentType, gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		reply(200, "", `{"success":true}`)(w, r)
	})

	c.Send(context.Background(), "/x", Request{Method: http.MethodPost, Body: "plain"})
	if gotBody != "plain" {
		t.Errorf("body = %q", gotBody)
	}
	if gotContentType != "" {
		t.Errorf("Content-Type = %q, want unset for string bodies", gotContentType)
	}
}

func TestMap(t *testing.T) {
	ok := Success(200, "r", 2)
	doubled := Map(ok, func(n int) int { return n * 2 })
	if !doubled.OK || doubled.Data != 4 || doubled.RequestID != "r" {
		t.Errorf("Map success = %+v", doubled)
	}

	fail := Failure[int](404, "gone", "not_found", "", "r2")
	mapped := Map(fail, func(n int) string { return "never" })
	if mapped.OK || mapped.Data != "" || mapped.Code != "not_found" {
		t.Errorf("Map failure = %+v", mapped)
	}
}
