package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/gray-hearth/internal/audit"
	"github.com/nerrad567/gray-hearth/internal/auth"
	"github.com/nerrad567/gray-hearth/internal/infrastructure/config"
	"github.com/nerrad567/gray-hearth/internal/infrastructure/logging"
	"github.com/nerrad567/gray-hearth/internal/recipe"
	"github.com/nerrad567/gray-hearth/internal/stove"
	"github.com/nerrad567/gray-hearth/internal/world"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

// inlineExecutor runs commands on the calling goroutine.
type inlineExecutor struct {
	err     error
	removed []string
}

func (e *inlineExecutor) Do(_ context.Context, fn func()) error {
	if e.err != nil {
		return e.err
	}
	fn()
	return nil
}

func (e *inlineExecutor) Removed(id string) { e.removed = append(e.removed, id) }

type testEnv struct {
	srv    *Server
	http   *httptest.Server
	exec   *inlineExecutor
	world  *world.World
	blocks *world.SQLiteBlockRepository
}

type testOption func(*Deps)

func withSecret(d *Deps)   { d.Security.JWT.Secret = testSecret }
func withReadOnly(d *Deps) { d.ReadOnly = true }

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE blocks (
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			name TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (x, y, z)
		) STRICT;
		CREATE TABLE audit_log (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			target TEXT NOT NULL,
			subject TEXT,
			request_id TEXT,
			details TEXT,
			created_at TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestEnv(t *testing.T, opts ...testOption) *testEnv {
	t.Helper()

	catalog := recipe.NewCatalog()
	if err := catalog.Replace(recipe.DefaultRecipes()); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	w := world.New(1)
	db := setupTestDB(t)
	blocks := world.NewSQLiteBlockRepository(db)
	exec := &inlineExecutor{}

	deps := Deps{
		WS:       config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Logger:   logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error", Format: "json"}, "test"),
		Registry: stove.NewRegistry(nil, stove.Bind(w, catalog)),
		Catalog:  catalog,
		World:    w,
		Blocks:   blocks,
		Audit:    audit.NewSQLiteRepository(db),
		Executor: exec,
		Version:  "test",
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Hub().Run(ctx)

	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return &testEnv{srv: srv, http: ts, exec: exec, world: w, blocks: blocks}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.http.URL+"/api/v1"+path, rd)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func (e *testEnv) placeStove(t *testing.T, x int) stove.Snapshot {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/stoves", "", map[string]any{"x": x, "y": 64, "z": 0, "facing": "north"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /stoves status = %d, body %s", resp.StatusCode, body)
	}
	var snap stove.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func mintToken(t *testing.T, role auth.Role) string {
	t.Helper()
	tok, err := auth.GenerateAccessToken("tester", role, testSecret, 5)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	return tok
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New(Deps{}) error = nil, want error")
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got map[string]any
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got["role"] != "authoritative" || got["status"] != "ok" {
		t.Errorf("health = %v", got)
	}
}

func TestStoveLifecycle(t *testing.T) {
	env := newTestEnv(t)
	snap := env.placeStove(t, 3)

	resp, body := env.do(t, http.MethodGet, "/stoves/"+snap.ID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET stove status = %d, body %s", resp.StatusCode, body)
	}

	resp, body = env.do(t, http.MethodPost, "/stoves/"+snap.ID+"/items", "", map[string]any{"item": "cod", "count": 8})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST items status = %d, body %s", resp.StatusCode, body)
	}
	var added addItemsResponse
	if err := json.Unmarshal(body, &added); err != nil {
		t.Fatal(err)
	}
	if added.Accepted != stove.SlotCount || added.Remaining != 8-stove.SlotCount {
		t.Errorf("accepted %d remaining %d, want %d and %d", added.Accepted, added.Remaining, stove.SlotCount, 8-stove.SlotCount)
	}

	resp, body = env.do(t, http.MethodPut, "/stoves/"+snap.ID+"/lit", "", map[string]any{"lit": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT lit status = %d, body %s", resp.StatusCode, body)
	}
	var lit stove.Snapshot
	if err := json.Unmarshal(body, &lit); err != nil {
		t.Fatal(err)
	}
	if !lit.Lit {
		t.Error("stove not lit after PUT /lit")
	}

	resp, _ = env.do(t, http.MethodDelete, "/stoves/"+snap.ID, "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", resp.StatusCode)
	}
	if len(env.exec.removed) != 1 || env.exec.removed[0] != snap.ID {
		t.Errorf("removed = %v", env.exec.removed)
	}
	if n := len(env.world.Entities()); n != stove.SlotCount {
		t.Errorf("world holds %d dropped items, want %d", n, stove.SlotCount)
	}

	resp, _ = env.do(t, http.MethodGet, "/stoves/"+snap.ID, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET removed stove status = %d, want 404", resp.StatusCode)
	}
}

func TestPlaceStove_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.placeStove(t, 0)

	tests := []struct {
		name string
		body any
		want int
	}{
		{name: "occupied", body: map[string]any{"x": 0, "y": 64, "z": 0, "facing": "east"}, want: http.StatusConflict},
		{name: "bad facing", body: map[string]any{"x": 1, "y": 64, "z": 0, "facing": "up"}, want: http.StatusBadRequest},
		{name: "bad json", body: "nope", want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/stoves", "", tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (body %s)", resp.StatusCode, tt.want, body)
			}
		})
	}
}

func TestAddItems_UnknownItemSuggests(t *testing.T) {
	env := newTestEnv(t)
	snap := env.placeStove(t, 0)

	resp, body := env.do(t, http.MethodPost, "/stoves/"+snap.ID+"/items", "", map[string]any{"item": "potatoe"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	var apiErr Error
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, s := range apiErr.Suggestions {
		if s == "potato" {
			found = true
		}
	}
	if !found {
		t.Errorf("suggestions = %v, want potato", apiErr.Suggestions)
	}
}

func TestAddItems_Validation(t *testing.T) {
	env := newTestEnv(t)
	snap := env.placeStove(t, 0)

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{name: "missing item", path: "/stoves/" + snap.ID + "/items", body: map[string]any{"count": 1}, want: http.StatusBadRequest},
		{name: "count too large", path: "/stoves/" + snap.ID + "/items", body: map[string]any{"item": "cod", "count": 65}, want: http.StatusBadRequest},
		{name: "unknown stove", path: "/stoves/stv-missing/items", body: map[string]any{"item": "cod"}, want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, tt.path, "", tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (body %s)", resp.StatusCode, tt.want, body)
			}
		})
	}
}

func TestSetLit_RequiresField(t *testing.T) {
	env := newTestEnv(t)
	snap := env.placeStove(t, 0)
	resp, _ := env.do(t, http.MethodPut, "/stoves/"+snap.ID+"/lit", "", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSetBlock(t *testing.T) {
	env := newTestEnv(t)
	pos := world.BlockPos{X: 2, Y: 65, Z: 2}

	resp, body := env.do(t, http.MethodPut, "/blocks", "", map[string]any{"x": 2, "y": 65, "z": 2, "block": "stone"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if got := env.world.Block(pos); got != world.BlockStone {
		t.Errorf("Block() = %q, want stone", got)
	}
	stored, err := env.blocks.List(context.Background())
	if err != nil || len(stored) != 1 {
		t.Errorf("stored blocks = %v, %v", stored, err)
	}

	resp, body = env.do(t, http.MethodGet, "/blocks", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"stone"`) {
		t.Errorf("GET /blocks = %d %s", resp.StatusCode, body)
	}

	resp, _ = env.do(t, http.MethodPut, "/blocks", "", map[string]any{"x": 0, "y": 0, "z": 0, "block": "bedrockk"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown block status = %d, want 400", resp.StatusCode)
	}
}

func TestStoveBlocksShareTerrain(t *testing.T) {
	env := newTestEnv(t)
	snap := env.placeStove(t, 0)
	stovePos := world.BlockPos{X: 0, Y: 64, Z: 0}

	if got := env.world.Block(stovePos); got != world.BlockStove {
		t.Fatalf("Block(stove) = %q, want stove", got)
	}

	env.world.SetBlock(world.BlockPos{X: 3, Y: 64, Z: 0}, world.BlockStone)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "stove inside stone", method: http.MethodPost, path: "/stoves", body: map[string]any{"x": 3, "y": 64, "z": 0, "facing": "north"}, want: http.StatusConflict},
		{name: "block over stove", method: http.MethodPut, path: "/blocks", body: map[string]any{"x": 0, "y": 64, "z": 0, "block": "stone"}, want: http.StatusConflict},
		{name: "air over stove", method: http.MethodPut, path: "/blocks", body: map[string]any{"x": 0, "y": 64, "z": 0, "block": "air"}, want: http.StatusConflict},
		{name: "bare stove block", method: http.MethodPut, path: "/blocks", body: map[string]any{"x": 5, "y": 64, "z": 0, "block": "stove"}, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, tt.method, tt.path, "", tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (body %s)", resp.StatusCode, tt.want, body)
			}
		})
	}
	if got := env.world.Block(stovePos); got != world.BlockStove {
		t.Errorf("Block(stove) after rejected writes = %q, want stove", got)
	}

	resp, _ := env.do(t, http.MethodDelete, "/stoves/"+snap.ID, "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", resp.StatusCode)
	}
	if got := env.world.Block(stovePos); got != world.BlockAir {
		t.Errorf("Block() after removal = %q, want air", got)
	}
}

func TestListRecipes(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/recipes", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got.Count != len(recipe.DefaultRecipes()) {
		t.Errorf("count = %d, want %d", got.Count, len(recipe.DefaultRecipes()))
	}
}

func TestExecutorUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.exec.err = errors.New("scheduler: queue full")

	resp, _ := env.do(t, http.MethodGet, "/stoves", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestReadOnlyRejectsMutations(t *testing.T) {
	env := newTestEnv(t, withReadOnly)

	resp, _ := env.do(t, http.MethodPost, "/stoves", "", map[string]any{"x": 0, "y": 0, "z": 0, "facing": "north"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("POST status = %d, want 409", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/stoves", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET status = %d, want 200", resp.StatusCode)
	}
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, withSecret)
	body := map[string]any{"x": 0, "y": 64, "z": 0, "facing": "north"}

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{name: "no token", token: "", want: http.StatusUnauthorized},
		{name: "garbage token", token: "not-a-jwt", want: http.StatusUnauthorized},
		{name: "operator cannot place", token: mintToken(t, auth.RoleOperator), want: http.StatusForbidden},
		{name: "admin places", token: mintToken(t, auth.RoleAdmin), want: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := env.do(t, http.MethodPost, "/stoves", tt.token, body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (body %s)", resp.StatusCode, tt.want, data)
			}
		})
	}

	resp, _ := env.do(t, http.MethodGet, "/stoves", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET without token status = %d, want 200", resp.StatusCode)
	}
}

func TestAuditTrail(t *testing.T) {
	env := newTestEnv(t, withSecret)
	admin := mintToken(t, auth.RoleAdmin)

	resp, body := env.do(t, http.MethodPost, "/stoves", admin, map[string]any{"x": 0, "y": 64, "z": 0, "facing": "north"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /stoves status = %d, body %s", resp.StatusCode, body)
	}
	var snap stove.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatal(err)
	}
	if resp, _ := env.do(t, http.MethodPut, "/stoves/"+snap.ID+"/lit", admin, map[string]any{"lit": true}); resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT lit status = %d", resp.StatusCode)
	}

	if resp, _ := env.do(t, http.MethodGet, "/audit", mintToken(t, auth.RoleOperator), nil); resp.StatusCode != http.StatusForbidden {
		t.Errorf("operator GET /audit status = %d, want 403", resp.StatusCode)
	}

	resp, body = env.do(t, http.MethodGet, "/audit?target="+snap.ID, admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /audit status = %d, body %s", resp.StatusCode, body)
	}
	var page audit.Page
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 {
		t.Fatalf("total = %d, want 2", page.Total)
	}
	for _, e := range page.Entries {
		if e.Subject != "tester" || e.RequestID == "" {
			t.Errorf("entry = %+v, want subject tester and a request id", e)
		}
	}

	if resp, _ := env.do(t, http.MethodGet, "/audit?limit=x", admin, nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", resp.StatusCode)
	}
}

func dialWS(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestWebSocket_SubscribeAndBroadcast(t *testing.T) {
	env := newTestEnv(t)
	conn := dialWS(t, env)

	sub := WSMessage{Type: WSTypeSubscribe, ID: "1", Payload: WSSubscribePayload{Channels: []string{"stove.removed"}}}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Type != WSTypeResponse || ack.ID != "1" {
		t.Fatalf("ack = %+v", ack)
	}

	env.srv.Hub().Broadcast("world.particles", []int{1})
	env.srv.Hub().Broadcast("stove.removed", map[string]string{"id": "stv-1"})

	var ev WSMessage
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != WSTypeEvent || ev.EventType != "stove.removed" {
		t.Errorf("event = %+v, want stove.removed only", ev)
	}
}

func TestWebSocket_StoveFilter(t *testing.T) {
	env := newTestEnv(t)
	conn := dialWS(t, env)

	sub := WSMessage{Type: WSTypeSubscribe, ID: "1", Payload: WSSubscribePayload{
		Channels: []string{"stove.event", "world.items"},
		Stoves:   []string{"stv-b"},
	}}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil || ack.Type != WSTypeResponse {
		t.Fatalf("ack = %+v, %v", ack, err)
	}

	env.srv.Hub().Broadcast("stove.event", stove.CookEvent{Kind: stove.EventCooked, StoveID: "stv-a"})
	env.srv.Hub().Broadcast("stove.event", stove.CookEvent{Kind: stove.EventBurnt, StoveID: "stv-b"})
	env.srv.Hub().Broadcast("world.items", []string{"cooked_cod"})

	var first, second WSMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read: %v", err)
	}
	ev, _ := first.Payload.(map[string]any)
	if first.EventType != "stove.event" || ev["stove_id"] != "stv-b" {
		t.Errorf("first = %+v, want stv-b cook event", first)
	}
	if second.EventType != "world.items" {
		t.Errorf("second = %+v, want world.items regardless of stove filter", second)
	}
}

func TestWebSocket_UnknownChannel(t *testing.T) {
	env := newTestEnv(t)
	conn := dialWS(t, env)

	if err := conn.WriteJSON(WSMessage{Type: WSTypeSubscribe, ID: "7", Payload: WSSubscribePayload{Channels: []string{"stove.gossip"}}}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var reply WSMessage
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Type != WSTypeError || reply.ID != "7" {
		t.Errorf("reply = %+v, want error", reply)
	}
}
