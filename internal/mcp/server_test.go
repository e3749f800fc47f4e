package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MekdelawitGebre/customer-experience-fintech/application/service"
	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
)

// fakeDashboard implements Dashboard over canned rows.
type fakeDashboard struct {
	rows []service.Row
	err  error
}

func (f *fakeDashboard) Summary(_ context.Context, banks []string) (service.Summary, error) {
	if f.err != nil {
		return service.Summary{}, f.err
	}
	filtered := service.FilterBanks(f.rows, banks)
	kpis := service.ComputeKPIs(filtered)
	return service.Summary{
		Banks:    service.BankNames(f.rows),
		Selected: banks,
		KPIs:     kpis,
		KPIColor: service.KPIColor(kpis.PctPositive),
		Drivers:  service.ThemeDrivers(filtered),
	}, nil
}

// fakeReviews implements Reviews over canned rows and records the last
// query.
type fakeReviews struct {
	rows []service.Row
	err  error
	last service.ReviewQuery
}

func (f *fakeReviews) List(_ context.Context, q service.ReviewQuery) ([]service.Row, int64, error) {
	f.last = q
	if f.err != nil {
		return nil, 0, f.err
	}
	var matched []service.Row
	for _, row := range service.FilterBanks(f.rows, q.Banks) {
		if q.Match(row) {
			matched = append(matched, row)
		}
	}
	total := int64(len(matched))
	matched = matched[min(q.Offset, len(matched)):]
	return matched[:min(q.Limit, len(matched))], total, nil
}

func (f *fakeReviews) Banks(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return service.BankNames(f.rows), nil
}

// sendMessage marshals a JSON-RPC request, sends it through HandleMessage,
// and returns the JSONRPCResponse.
func sendMessage(t *testing.T, srv *Server, method string, id int, params map[string]any) mcp.JSONRPCResponse {
	t.Helper()

	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		msg["params"] = params
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	result := srv.MCPServer().HandleMessage(context.Background(), raw)

	resp, ok := result.(mcp.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T: %+v", result, result)
	}
	return resp
}

// resultJSON re-marshals the Result field through JSON into dst.
func resultJSON(t *testing.T, resp mcp.JSONRPCResponse, dst any) {
	t.Helper()
	b, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		t.Fatalf("unmarshal result into %T: %v", dst, err)
	}
}

func testRows() []service.Row {
	return []service.Row{
		{ID: 1, Bank: "CBE", Text: "fast transfers", Rating: 5, SentimentLabel: review.Positive, SentimentScore: 0.9, Themes: review.Themes{"transfer", "fast"}},
		{ID: 2, Bank: "CBE", Text: "app crashes", Rating: 1, SentimentLabel: review.Negative, SentimentScore: 0.8, Themes: review.Themes{"app", "crash"}},
		{ID: 3, Bank: "BOA", Text: "login is slow", Rating: 2, SentimentLabel: review.Negative, SentimentScore: 0.7, Themes: review.Themes{"login"}},
		{ID: 4, Bank: "Dashen", Text: "great app", Rating: 5, SentimentLabel: review.Positive, SentimentScore: 0.95, Themes: review.Themes{"app"}},
	}
}

func testServer() *Server {
	return NewServer(&fakeDashboard{rows: testRows()}, &fakeReviews{rows: testRows()}, "0.1.0-test", nil)
}

func initializeParams() map[string]any {
	return map[string]any{
		"protocolVersion": "2025-06-18",
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    "test-client",
			"version": "0.0.1",
		},
	}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) mcp.CallToolResult {
	t.Helper()
	sendMessage(t, srv, "initialize", 1, initializeParams())
	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name":      name,
		"arguments": args,
	})
	var result mcp.CallToolResult
	resultJSON(t, resp, &result)
	return result
}

func TestServer_Initialize(t *testing.T) {
	srv := testServer()
	resp := sendMessage(t, srv, "initialize", 1, initializeParams())

	var result mcp.InitializeResult
	resultJSON(t, resp, &result)

	if result.ServerInfo.Name != ServerName {
		t.Errorf("expected server name %s, got %s", ServerName, result.ServerInfo.Name)
	}
	if result.ServerInfo.Version != "0.1.0-test" {
		t.Errorf("expected version 0.1.0-test, got %s", result.ServerInfo.Version)
	}
	if result.Capabilities.Tools == nil {
		t.Error("expected tools capability to be present")
	}
}

func TestServer_ListTools(t *testing.T) {
	srv := testServer()
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/list", 2, nil)

	var result mcp.ListToolsResult
	resultJSON(t, resp, &result)

	if len(result.Tools) != 4 {
		t.Fatalf("expected 4 tools, got %d", len(result.Tools))
	}

	tools := map[string]mcp.Tool{}
	for _, tool := range result.Tools {
		tools[tool.Name] = tool
	}
	for _, name := range []string{"get_version", "list_banks", "get_summary", "list_reviews"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing tool: %s", name)
		}
	}

	props := tools["list_reviews"].InputSchema.Properties
	for _, param := range []string{"bank", "sentiment", "theme", "min_rating", "limit", "offset"} {
		if _, ok := props[param]; !ok {
			t.Errorf("list_reviews missing %s parameter", param)
		}
	}
}

func TestServer_GetVersion(t *testing.T) {
	result := callTool(t, testServer(), "get_version", map[string]any{})

	if result.IsError {
		t.Fatal("expected success, got error")
	}
	if text := textFromContent(t, result); text != "0.1.0-test" {
		t.Errorf("expected version 0.1.0-test, got %s", text)
	}
}

func TestServer_ListBanks(t *testing.T) {
	result := callTool(t, testServer(), "list_banks", map[string]any{})

	if result.IsError {
		t.Fatalf("expected success, got error: %s", textFromContent(t, result))
	}
	var banks []string
	if err := json.Unmarshal([]byte(textFromContent(t, result)), &banks); err != nil {
		t.Fatalf("unmarshal banks: %v", err)
	}
	want := []string{"BOA", "CBE", "Dashen"}
	if strings.Join(banks, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, banks)
	}
}

func TestServer_GetSummary(t *testing.T) {
	result := callTool(t, testServer(), "get_summary", map[string]any{"banks": "CBE, Dashen"})

	if result.IsError {
		t.Fatalf("expected success, got error: %s", textFromContent(t, result))
	}
	var summary service.Summary
	if err := json.Unmarshal([]byte(textFromContent(t, result)), &summary); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if summary.KPIs.Volume != 3 {
		t.Errorf("expected volume 3, got %d", summary.KPIs.Volume)
	}
	if len(summary.Selected) != 2 || summary.Selected[0] != "CBE" || summary.Selected[1] != "Dashen" {
		t.Errorf("expected selection [CBE Dashen], got %v", summary.Selected)
	}
	if len(summary.Banks) != 3 {
		t.Errorf("expected all 3 banks listed, got %v", summary.Banks)
	}
}

func TestServer_ListReviews(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		ids  []int64
	}{
		{name: "all", args: map[string]any{}, ids: []int64{1, 2, 3, 4}},
		{name: "bank", args: map[string]any{"bank": "CBE"}, ids: []int64{1, 2}},
		{name: "sentiment", args: map[string]any{"sentiment": "negative"}, ids: []int64{2, 3}},
		{name: "theme", args: map[string]any{"theme": "app"}, ids: []int64{2, 4}},
		{name: "limit", args: map[string]any{"limit": 1}, ids: []int64{1}},
		{name: "offset", args: map[string]any{"limit": 2, "offset": 1}, ids: []int64{2, 3}},
		{name: "min rating", args: map[string]any{"min_rating": 2}, ids: []int64{1, 3, 4}},
		{name: "bank and sentiment", args: map[string]any{"bank": "CBE", "sentiment": "POSITIVE"}, ids: []int64{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, testServer(), "list_reviews", tt.args)
			if result.IsError {
				t.Fatalf("expected success, got error: %s", textFromContent(t, result))
			}

			var rows []service.Row
			if err := json.Unmarshal([]byte(textFromContent(t, result)), &rows); err != nil {
				t.Fatalf("unmarshal reviews: %v", err)
			}
			if len(rows) != len(tt.ids) {
				t.Fatalf("expected %d reviews, got %d", len(tt.ids), len(rows))
			}
			for i, id := range tt.ids {
				if rows[i].ID != id {
					t.Errorf("review %d: expected id %d, got %d", i, id, rows[i].ID)
				}
			}
		})
	}
}

func TestServer_ListReviewsQuery(t *testing.T) {
	reviews := &fakeReviews{rows: testRows()}
	srv := NewServer(&fakeDashboard{rows: testRows()}, reviews, "0.1.0-test", nil)

	callTool(t, srv, "list_reviews", map[string]any{"bank": "BOA", "theme": " login ", "limit": 1000})
	if reviews.last.Limit != maxReviewLimit {
		t.Errorf("expected limit capped at %d, got %d", maxReviewLimit, reviews.last.Limit)
	}
	if len(reviews.last.Banks) != 1 || reviews.last.Banks[0] != "BOA" {
		t.Errorf("expected bank filter [BOA], got %v", reviews.last.Banks)
	}
	if reviews.last.Theme != "login" {
		t.Errorf("expected theme login, got %q", reviews.last.Theme)
	}

	callTool(t, srv, "list_reviews", map[string]any{"limit": 0, "offset": -5})
	if reviews.last.Limit != defaultReviewLimit {
		t.Errorf("expected default limit %d, got %d", defaultReviewLimit, reviews.last.Limit)
	}
	if reviews.last.Offset != 0 {
		t.Errorf("expected offset clamped to 0, got %d", reviews.last.Offset)
	}
}

func TestServer_ListReviewsUnknownSentiment(t *testing.T) {
	result := callTool(t, testServer(), "list_reviews", map[string]any{"sentiment": "furious"})

	if !result.IsError {
		t.Fatal("expected error response")
	}
	if text := textFromContent(t, result); !strings.Contains(text, "unknown sentiment: furious") {
		t.Errorf("expected unknown sentiment error, got: %s", text)
	}
}

func TestServer_Unavailable(t *testing.T) {
	down := errors.New("connection refused")
	srv := NewServer(&fakeDashboard{err: down}, &fakeReviews{err: down}, "0.1.0-test", nil)

	for _, name := range []string{"list_banks", "get_summary", "list_reviews"} {
		result := callTool(t, srv, name, map[string]any{})
		if !result.IsError {
			t.Errorf("%s: expected error response", name)
			continue
		}
		if text := textFromContent(t, result); !strings.Contains(text, "reviews unavailable") {
			t.Errorf("%s: expected unavailable error, got: %s", name, text)
		}
	}
}

// textFromContent extracts the text string from the first content item
// of a CallToolResult. It round-trips through JSON because in-process
// responses may hold the content as a map rather than a typed struct.
func textFromContent(t *testing.T, result mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	b, err := json.Marshal(result.Content[0])
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}
	var tc struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(b, &tc); err != nil {
		t.Fatalf("unmarshal text content: %v", err)
	}
	return tc.Text
}

var (
	_ Dashboard = (*fakeDashboard)(nil)
	_ Reviews   = (*fakeReviews)(nil)
)
