package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"flowerboard.live/fbd/internal/config"
	"flowerboard.live/fbd/internal/ledger/sqlite"
	"flowerboard.live/fbd/internal/types"
)

// setupServer builds a server on a temp sqlite ledger and a temp doc
// root, backed by a real listener so websocket tests can dial in.
func setupServer(t *testing.T) (*Server, *httptest.Server, string) {
	t.Helper()

	dir := t.TempDir()
	store, err := sqlite.NewStore(filepath.Join(dir, "board.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	docRoot := filepath.Join(dir, "public")
	if err := os.MkdirAll(docRoot, 0o755); err != nil {
		t.Fatalf("Failed to create doc root: %v", err)
	}

	cfg, _ := config.LoadConfig("")
	cfg.DocRoot = docRoot

	s := NewServer(store, cfg)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return s, srv, docRoot
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	return out
}

func TestSubmitAndRanks(t *testing.T) {
	_, srv, _ := setupServer(t)

	resp := postJSON(t, srv.URL+"/submit", `{"name":"A","country":"TH","flowers":5}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if got := decodeBody(t, resp)["message"]; got != "Data added successfully!" {
		t.Errorf("Unexpected success message: %v", got)
	}

	postJSON(t, srv.URL+"/submit", `{"name":"B","country":"JP","flowers":9}`)

	ranksResp, err := http.Get(srv.URL + "/api/ranks?name=A")
	if err != nil {
		t.Fatalf("GET /api/ranks failed: %v", err)
	}
	defer ranksResp.Body.Close()

	var summary types.RankSummary
	if err := json.NewDecoder(ranksResp.Body).Decode(&summary); err != nil {
		t.Fatalf("Failed to decode ranks: %v", err)
	}

	if len(summary.TopSenders) != 2 {
		t.Fatalf("Expected 2 senders, got %d", len(summary.TopSenders))
	}
	if summary.TopSenders[0].Name != "B" {
		t.Errorf("Expected B ranked first, got %s", summary.TopSenders[0].Name)
	}
	if summary.LatestRank != 2 {
		t.Errorf("Expected rank 2 for A, got %d", summary.LatestRank)
	}
}

func TestSubmitAccumulatesSameKey(t *testing.T) {
	_, srv, _ := setupServer(t)

	postJSON(t, srv.URL+"/submit", `{"name":"A","country":"X","flowers":5}`)
	postJSON(t, srv.URL+"/submit", `{"name":"A","country":"X","flowers":3}`)

	ranksResp, err := http.Get(srv.URL + "/api/ranks")
	if err != nil {
		t.Fatalf("GET /api/ranks failed: %v", err)
	}
	defer ranksResp.Body.Close()

	var summary types.RankSummary
	json.NewDecoder(ranksResp.Body).Decode(&summary)

	if len(summary.TopSenders) != 1 {
		t.Fatalf("Expected one row for the key, got %d", len(summary.TopSenders))
	}
	if summary.TopSenders[0].Flowers != 8 {
		t.Errorf("Expected accumulated total 8, got %d", summary.TopSenders[0].Flowers)
	}
}

func TestSubmitFlowersAsString(t *testing.T) {
	_, srv, _ := setupServer(t)

	resp := postJSON(t, srv.URL+"/submit", `{"name":"A","country":"TH","flowers":"7"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected numeric string accepted, got %d", resp.StatusCode)
	}
}

func TestSubmitRejectsBadPayloads(t *testing.T) {
	_, srv, _ := setupServer(t)

	cases := []string{
		`{"name":"A","country":"TH","flowers":"lots"}`,
		`{"name":"A","country":"TH","flowers":0}`,
		`{"name":"A","country":"TH","flowers":-4}`,
		`{"name":"","country":"TH","flowers":3}`,
		`{"name":"A","country":"TH","flowers":2.5}`,
		`not json`,
	}

	for _, body := range cases {
		resp := postJSON(t, srv.URL+"/submit", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Body %s: expected 400, got %d", body, resp.StatusCode)
		}
	}

	ranksResp, err := http.Get(srv.URL + "/api/ranks")
	if err != nil {
		t.Fatalf("GET /api/ranks failed: %v", err)
	}
	defer ranksResp.Body.Close()
	var summary types.RankSummary
	json.NewDecoder(ranksResp.Body).Decode(&summary)
	if len(summary.TopSenders) != 0 {
		t.Errorf("Rejected submissions must not reach the ledger, got %d rows", len(summary.TopSenders))
	}
}

func TestAnnouncementRoundTrip(t *testing.T) {
	_, srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/get-announcements")
	if err != nil {
		t.Fatalf("GET /get-announcements failed: %v", err)
	}
	defer resp.Body.Close()
	if got := decodeBody(t, resp)["announcement"]; got != types.DefaultAnnouncement {
		t.Errorf("Expected default announcement, got %v", got)
	}

	postResp := postJSON(t, srv.URL+"/post-announcement", `{"message":"finale tonight"}`)
	if postResp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", postResp.StatusCode)
	}
	if got := decodeBody(t, postResp)["success"]; got != true {
		t.Errorf("Expected success true, got %v", got)
	}

	resp2, err := http.Get(srv.URL + "/get-announcements")
	if err != nil {
		t.Fatalf("GET /get-announcements failed: %v", err)
	}
	defer resp2.Body.Close()
	if got := decodeBody(t, resp2)["announcement"]; got != "finale tonight" {
		t.Errorf("Expected posted announcement, got %v", got)
	}
}

func TestStaticServesFiles(t *testing.T) {
	_, srv, docRoot := setupServer(t)

	os.WriteFile(filepath.Join(docRoot, "index.html"), []byte("<h1>board</h1>"), 0o644)
	os.WriteFile(filepath.Join(docRoot, "app.js"), []byte("console.log(1)"), 0o644)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "<h1>board</h1>" {
		t.Errorf("Unexpected index body: %s", body)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected html content type, got %s", ct)
	}

	jsResp, err := http.Get(srv.URL + "/app.js")
	if err != nil {
		t.Fatalf("GET /app.js failed: %v", err)
	}
	defer jsResp.Body.Close()
	if ct := jsResp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/javascript") {
		t.Errorf("Expected javascript content type, got %s", ct)
	}
}

// Crafted paths go straight at the handler: a real client (and the Go
// mux) normalizes ".." away before the request ever arrives, so the
// containment check has to be exercised with the raw URL path set by
// hand.
func TestStaticRejectsPathTraversal(t *testing.T) {
	s, _, docRoot := setupServer(t)

	secret := filepath.Join(filepath.Dir(docRoot), "secret.txt")
	if err := os.WriteFile(secret, []byte("credentials"), 0o644); err != nil {
		t.Fatalf("Failed to plant file outside doc root: %v", err)
	}

	paths := []string{
		"../secret.txt",
		"../../secret.txt",
		"public/../../secret.txt",
		"./../secret.txt",
	}

	for _, p := range paths {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.URL.Path = p
		rec := httptest.NewRecorder()

		s.handleStatic(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("Path %q: expected 404, got %d", p, rec.Code)
		}
		if body := rec.Body.String(); body != "404 Not Found" {
			t.Errorf("Path %q: expected plain 404 body, got %q", p, body)
		}
	}
}

func TestStaticMissingFile(t *testing.T) {
	_, srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/missing.html")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "404 Not Found" {
		t.Errorf("Expected plain 404 body, got %q", body)
	}
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read websocket message: %v", err)
	}

	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to decode %q: %v", data, err)
	}
	return msg
}

func TestWebSocketInitialSnapshotOrder(t *testing.T) {
	_, srv, _ := setupServer(t)

	postJSON(t, srv.URL+"/submit", `{"name":"A","country":"TH","flowers":4}`)

	conn := dialWS(t, srv)

	first := readWS(t, conn)
	if first["type"] != types.MessageAnnouncement {
		t.Fatalf("Expected announcement first, got %v", first["type"])
	}
	if first["message"] != types.DefaultAnnouncement {
		t.Errorf("Expected default announcement, got %v", first["message"])
	}

	second := readWS(t, conn)
	if second["type"] != types.MessageRankUpdate {
		t.Fatalf("Expected rankUpdate second, got %v", second["type"])
	}
	ranks := second["ranks"].(map[string]any)
	senders := ranks["topSenders"].([]any)
	if len(senders) != 1 {
		t.Errorf("Expected snapshot with one sender, got %d", len(senders))
	}
}

func TestWebSocketReceivesRankBroadcastAfterSubmit(t *testing.T) {
	_, srv, _ := setupServer(t)

	conn := dialWS(t, srv)
	readWS(t, conn) // initial announcement
	readWS(t, conn) // initial rank snapshot

	postJSON(t, srv.URL+"/submit", `{"name":"Fresh","country":"KR","flowers":6}`)

	msg := readWS(t, conn)
	if msg["type"] != types.MessageRankUpdate {
		t.Fatalf("Expected rankUpdate, got %v", msg["type"])
	}

	ranks := msg["ranks"].(map[string]any)
	senders := ranks["topSenders"].([]any)
	if len(senders) != 1 {
		t.Fatalf("Expected one sender in update, got %d", len(senders))
	}
	top := senders[0].(map[string]any)
	if top["name"] != "Fresh" || top["flowers"] != float64(6) {
		t.Errorf("Update does not reflect the write: %v", top)
	}
}

func TestWebSocketReceivesAnnouncementBroadcast(t *testing.T) {
	_, srv, _ := setupServer(t)

	conn := dialWS(t, srv)
	readWS(t, conn)
	readWS(t, conn)

	postJSON(t, srv.URL+"/post-announcement", `{"message":"intermission"}`)

	msg := readWS(t, conn)
	if msg["type"] != types.MessageAnnouncement {
		t.Fatalf("Expected announcement, got %v", msg["type"])
	}
	if msg["message"] != "intermission" {
		t.Errorf("Expected broadcast message, got %v", msg["message"])
	}
}

func TestWebSocketBroadcastReachesEverySubscriber(t *testing.T) {
	_, srv, _ := setupServer(t)

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dialWS(t, srv)
		readWS(t, conns[i])
		readWS(t, conns[i])
	}

	postJSON(t, srv.URL+"/submit", `{"name":"A","country":"TH","flowers":1}`)

	for i, conn := range conns {
		msg := readWS(t, conn)
		if msg["type"] != types.MessageRankUpdate {
			t.Errorf("Subscriber %d: expected rankUpdate, got %v", i, msg["type"])
		}
	}
}

func TestLogsEndpoint(t *testing.T) {
	_, srv, _ := setupServer(t)

	postJSON(t, srv.URL+"/submit", `{"name":"A","country":"TH","flowers":1}`)

	resp, err := http.Get(srv.URL + "/api/logs?n=5")
	if err != nil {
		t.Fatalf("GET /api/logs failed: %v", err)
	}
	defer resp.Body.Close()

	var msgs []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		t.Fatalf("Failed to decode logs: %v", err)
	}
	if len(msgs) == 0 {
		t.Error("Expected at least one log message")
	}
}

func TestFlexibleIntTable(t *testing.T) {
	cases := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{`5`, 5, false},
		{`"12"`, 12, false},
		{`" 3 "`, 3, false},
		{`2.5`, 0, true},
		{`"x"`, 0, true},
		{`null`, 0, true},
		{`true`, 0, true},
	}

	for _, tc := range cases {
		var f flexibleInt
		err := json.Unmarshal([]byte(tc.raw), &f)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%s: expected error, got %d", tc.raw, f)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.raw, err)
			continue
		}
		if int(f) != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.raw, tc.want, f)
		}
	}
}

func TestMethodChecks(t *testing.T) {
	_, srv, _ := setupServer(t)

	for _, path := range []string{"/submit", "/post-announcement"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("GET %s: expected 405, got %d", path, resp.StatusCode)
		}
	}

	for _, path := range []string{"/api/ranks", "/get-announcements", "/api/logs"} {
		resp := postJSON(t, srv.URL+path, `{}`)
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("POST %s: expected 405, got %d", path, resp.StatusCode)
		}
	}
}
