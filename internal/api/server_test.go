package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/parkpilot/parkpilot-core/internal/auth"
	"github.com/parkpilot/parkpilot-core/internal/carbon"
	"github.com/parkpilot/parkpilot-core/internal/events"
	"github.com/parkpilot/parkpilot-core/internal/graph"
	"github.com/parkpilot/parkpilot-core/internal/infrastructure/config"
	"github.com/parkpilot/parkpilot-core/internal/infrastructure/logging"
	"github.com/parkpilot/parkpilot-core/internal/occupancy"
	"github.com/parkpilot/parkpilot-core/internal/parking"
)

const testJWTSecret = "test-secret-key-at-least-32-characters-long"

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE lots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			width_m REAL NOT NULL DEFAULT 0,
			height_m REAL NOT NULL DEFAULT 0,
			latitude REAL NOT NULL DEFAULT 0,
			longitude REAL NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE graph_nodes (
			id INTEGER PRIMARY KEY,
			lot_id INTEGER NOT NULL REFERENCES lots(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			orientation REAL,
			status TEXT NOT NULL DEFAULT 'AVAILABLE',
			label TEXT,
			expires_at TIMESTAMP
		);
		CREATE TABLE graph_edges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			lot_id INTEGER NOT NULL REFERENCES lots(id) ON DELETE CASCADE,
			from_node_id INTEGER NOT NULL,
			to_node_id INTEGER NOT NULL,
			length_m REAL NOT NULL,
			weight REAL NOT NULL,
			status TEXT NOT NULL DEFAULT 'OPEN',
			bidirectional INTEGER NOT NULL DEFAULT 1
		);
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE occupancy_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			lot_id INTEGER NOT NULL,
			node_id INTEGER NOT NULL,
			timestamp TIMESTAMP NOT NULL
		);
		CREATE TABLE carbon_savings (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			lot_id INTEGER NOT NULL REFERENCES lots(id),
			route_length_saved_m REAL NOT NULL,
			co2_saved_g REAL NOT NULL,
			money_saved_usd REAL NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
	`

	if _, execErr := db.Exec(schema); execErr != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", execErr)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// seedTestLot inserts one lot with a small routable graph and loads it.
//
// Layout (ids): entrance 1 at (0,0) — road 2 at (1,0) — road 3 at (2,0) —
// exit 5 at (3,0); spot 4 at (1,1) hangs off road 2. All edges length 1,
// bidirectional, OPEN.
func seedTestLot(t *testing.T, repo parking.Repository, svc *parking.Service) int64 {
	t.Helper()
	ctx := context.Background()

	lot := &parking.Lot{Name: "Central", Location: "CBD", WidthM: 40, HeightM: 20,
		Latitude: -33.87, Longitude: 151.21}
	if err := repo.CreateLot(ctx, lot); err != nil {
		t.Fatalf("creating lot: %v", err)
	}

	orientation := 90.0
	label := "A1"
	nodes := []graph.Node{
		{ID: 1, LotID: lot.ID, Type: graph.NodeTypeCarEntrance, X: 0, Y: 0, Status: graph.StatusAvailable},
		{ID: 2, LotID: lot.ID, Type: graph.NodeTypeRoad, X: 1, Y: 0, Status: graph.StatusAvailable},
		{ID: 3, LotID: lot.ID, Type: graph.NodeTypeRoad, X: 2, Y: 0, Status: graph.StatusAvailable},
		{ID: 4, LotID: lot.ID, Type: graph.NodeTypeParkingSpot, X: 1, Y: 1, Status: graph.StatusAvailable,
			Orientation: &orientation, Label: &label},
		{ID: 5, LotID: lot.ID, Type: graph.NodeTypeCarExit, X: 3, Y: 0, Status: graph.StatusAvailable},
	}
	for i := range nodes {
		if err := repo.CreateNode(ctx, &nodes[i]); err != nil {
			t.Fatalf("creating node %d: %v", nodes[i].ID, err)
		}
	}

	edges := []graph.Edge{
		{From: 1, To: 2, LengthM: 1, Weight: 1, Status: graph.EdgeOpen, Bidirectional: true},
		{From: 2, To: 3, LengthM: 1, Weight: 1, Status: graph.EdgeOpen, Bidirectional: true},
		{From: 3, To: 5, LengthM: 1, Weight: 1, Status: graph.EdgeOpen, Bidirectional: true},
		{From: 2, To: 4, LengthM: 1, Weight: 1, Status: graph.EdgeOpen, Bidirectional: true},
	}
	for i := range edges {
		if err := repo.CreateEdge(ctx, lot.ID, &edges[i]); err != nil {
			t.Fatalf("creating edge %d->%d: %v", edges[i].From, edges[i].To, err)
		}
	}

	if err := svc.LoadGraphs(ctx); err != nil {
		t.Fatalf("LoadGraphs: %v", err)
	}
	return lot.ID
}

// testServer creates a fully wired Server over an in-memory database with
// one seeded lot. The returned lot ID addresses the seeded graph.
func testServer(t *testing.T) (*Server, int64) {
	t.Helper()

	db := setupTestDB(t)
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	repo := parking.NewSQLiteRepository(db)
	store := graph.NewStore()
	bus := events.NewBus(nil)
	svc := parking.NewService(repo, store, bus, nil)
	t.Cleanup(svc.Close)
	svc.SetOccupancyRecorder(occupancy.NewSQLiteRepository(db))

	lotID := seedTestLot(t, repo, svc)

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		SSE: config.SSEConfig{HeartbeatInterval: 15},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{
				Secret:         testJWTSecret,
				AccessTokenTTL: 15,
			},
		},
		Logger:    log,
		Parking:   svc,
		Occupancy: occupancy.NewSQLiteRepository(db),
		Carbon:    carbon.NewService(carbon.NewSQLiteRepository(db), nil),
		Users:     auth.NewUserRepository(db),
		Bus:       bus,
		DB:        db,
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Initialise hub for tests
	srv.hub = NewHub(srv.wsCfg, log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.hub.Run(ctx)

	return srv, lotID
}

// createTestUser inserts a user directly through the repository.
func createTestUser(t *testing.T, srv *Server, email, password string, role auth.Role) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user := &auth.User{
		Name:         "Test Driver",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := srv.users.Create(context.Background(), user); err != nil {
		t.Fatalf("creating user: %v", err)
	}
	return user
}

// loginTestUser logs a user in through the router and returns the token.
func loginTestUser(t *testing.T, router http.Handler, email, password string) string {
	t.Helper()

	body := `{"email": "` + email + `", "password": "` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal login response: %v", err)
	}
	return resp.AccessToken
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestHealth_ContentType(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	ct := w.Header().Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	requestID := w.Header().Get("X-Request-ID")
	if requestID == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

func TestNotFound(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Auth Tests ────────────────────────────────────────────────────

func TestLogin_Success(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	createTestUser(t, srv, "driver@example.com", "correct-horse", auth.RoleUser)

	body := `{"email": "driver@example.com", "password": "correct-horse"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.AccessToken == "" {
		t.Error("expected access_token to be non-empty")
	}
	if resp.TokenType != "Bearer" {
		t.Errorf("token_type = %q, want Bearer", resp.TokenType)
	}
	if resp.User == nil || resp.User.Email != "driver@example.com" {
		t.Errorf("user = %+v, want driver@example.com", resp.User)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	createTestUser(t, srv, "driver@example.com", "correct-horse", auth.RoleUser)

	body := `{"email": "driver@example.com", "password": "wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := `{"email": "nobody@example.com", "password": "whatever"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Must be indistinguishable from a wrong password
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestLogin_InactiveAccount(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	user := createTestUser(t, srv, "gone@example.com", "correct-horse", auth.RoleUser)
	if _, err := srv.db.Exec(`UPDATE users SET is_active = 0 WHERE id = ?`, user.ID); err != nil {
		t.Fatalf("deactivating user: %v", err)
	}

	body := `{"email": "gone@example.com", "password": "correct-horse"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRegister_Success(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := `{"name": "New Driver", "email": "new@example.com", "password": "long-enough"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("expected access_token after registration")
	}
	if resp.User == nil || resp.User.Role != auth.RoleUser {
		t.Errorf("registered role = %v, want user", resp.User)
	}
}

func TestRegister_Validation(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"email": "a@b.co", "password": "long-enough"}`},
		{"bad email", `{"name": "X", "email": "not-an-email", "password": "long-enough"}`},
		{"short password", `{"name": "X", "email": "a@b.co", "password": "short"}`},
		{"invalid JSON", `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	createTestUser(t, srv, "taken@example.com", "correct-horse", auth.RoleUser)

	body := `{"name": "X", "email": "taken@example.com", "password": "long-enough"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestMe(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	createTestUser(t, srv, "driver@example.com", "correct-horse", auth.RoleUser)
	token := loginTestUser(t, router, "driver@example.com", "correct-horse")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var user auth.User
	if err := json.Unmarshal(w.Body.Bytes(), &user); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if user.Email != "driver@example.com" {
		t.Errorf("email = %q, want driver@example.com", user.Email)
	}
}

func TestMe_NoToken(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestMe_GarbageToken(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// ─── WebSocket Ticket Tests ────────────────────────────────────────

func TestWSTicket_SingleUse(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	createTestUser(t, srv, "driver@example.com", "correct-horse", auth.RoleUser)
	token := loginTestUser(t, router, "driver@example.com", "correct-horse")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/ws-ticket", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	ticket, ok := resp["ticket"].(string)
	if !ok || ticket == "" {
		t.Fatal("expected ticket to be a non-empty string")
	}

	// Ticket should be valid once and carry the caller's identity
	entry, ok := srv.validateTicket(ticket)
	if !ok {
		t.Error("ticket should be valid on first use")
	}
	if entry.userID == "" || entry.role != auth.RoleUser {
		t.Errorf("ticket identity = %+v, want caller's user id and role", entry)
	}

	// Ticket should be consumed (single-use)
	if _, ok := srv.validateTicket(ticket); ok {
		t.Error("ticket should not be valid on second use")
	}
}

func TestWSTicket_RequiresAuth(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/ws-ticket", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestWSTicket_Expiry(t *testing.T) {
	srv, _ := testServer(t)

	ticket := generateTicket()
	wsTickets.mu.Lock()
	wsTickets.tickets[ticket] = ticketEntry{
		userID:    "u1",
		role:      auth.RoleUser,
		expiresAt: time.Now().Add(-1 * time.Second),
	}
	wsTickets.mu.Unlock()

	if _, ok := srv.validateTicket(ticket); ok {
		t.Error("expired ticket should not be valid")
	}
}

// ─── User Management Tests ─────────────────────────────────────────

func TestUsers_AdminOnly(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	createTestUser(t, srv, "driver@example.com", "correct-horse", auth.RoleUser)
	token := loginTestUser(t, router, "driver@example.com", "correct-horse")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestUsers_ListAsAdmin(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	createTestUser(t, srv, "admin@example.com", "correct-horse", auth.RoleAdmin)
	createTestUser(t, srv, "driver@example.com", "correct-horse", auth.RoleUser)
	token := loginTestUser(t, router, "admin@example.com", "correct-horse")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if int(resp["count"].(float64)) != 2 {
		t.Errorf("count = %v, want 2", resp["count"])
	}
}

func TestUsers_UpdateOther(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	createTestUser(t, srv, "admin@example.com", "correct-horse", auth.RoleAdmin)
	driver := createTestUser(t, srv, "driver@example.com", "correct-horse", auth.RoleUser)
	token := loginTestUser(t, router, "admin@example.com", "correct-horse")

	body := `{"name":"Renamed Driver","role":"admin"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/"+driver.ID, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["name"] != "Renamed Driver" {
		t.Errorf("name = %v, want Renamed Driver", resp["name"])
	}
	if resp["role"] != "admin" {
		t.Errorf("role = %v, want admin", resp["role"])
	}
	// Omitted fields keep their value.
	if resp["email"] != "driver@example.com" {
		t.Errorf("email = %v, want driver@example.com", resp["email"])
	}
}

func TestUsers_UpdateValidation(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	createTestUser(t, srv, "admin@example.com", "correct-horse", auth.RoleAdmin)
	driver := createTestUser(t, srv, "driver@example.com", "correct-horse", auth.RoleUser)
	createTestUser(t, srv, "other@example.com", "correct-horse", auth.RoleUser)
	token := loginTestUser(t, router, "admin@example.com", "correct-horse")

	tests := []struct {
		name   string
		userID string
		body   string
		want   int
	}{
		{"bad email", driver.ID, `{"email":"not-an-email"}`, http.StatusBadRequest},
		{"bad role", driver.ID, `{"role":"superuser"}`, http.StatusBadRequest},
		{"bad json", driver.ID, `{`, http.StatusBadRequest},
		{"unknown user", "nonexistent", `{"name":"Ghost"}`, http.StatusNotFound},
		{"email taken", driver.ID, `{"email":"other@example.com"}`, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/v1/users/"+tt.userID, strings.NewReader(tt.body))
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestUsers_UpdateRequiresAdmin(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	driver := createTestUser(t, srv, "driver@example.com", "correct-horse", auth.RoleUser)
	token := loginTestUser(t, router, "driver@example.com", "correct-horse")

	body := `{"name":"Self Service"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/"+driver.ID, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestUsers_DeleteSelfRejected(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	admin := createTestUser(t, srv, "admin@example.com", "correct-horse", auth.RoleAdmin)
	token := loginTestUser(t, router, "admin@example.com", "correct-horse")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/"+admin.ID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestUsers_DeleteOther(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	createTestUser(t, srv, "admin@example.com", "correct-horse", auth.RoleAdmin)
	driver := createTestUser(t, srv, "driver@example.com", "correct-horse", auth.RoleUser)
	token := loginTestUser(t, router, "admin@example.com", "correct-horse")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/"+driver.ID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	// Confirm gone
	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/"+driver.ID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── WebSocket Hub Tests ───────────────────────────────────────────

func TestHub_BroadcastToSubscribed(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// Create a mock client
	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{ChannelSpotStatus: {}},
	}
	hub.Register(client)

	// Broadcast
	hub.Broadcast(ChannelSpotStatus, events.StatusUpdate{
		LotID: 1, NodeID: 4, Status: "RESERVED", Timestamp: time.Now().UTC(),
	})

	// Should receive the message
	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.EventType != ChannelSpotStatus {
			t.Errorf("event_type = %q, want %q", wsMsg.EventType, ChannelSpotStatus)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for broadcast message")
	}
}

func TestHub_NoMessageForUnsubscribed(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// Client not subscribed to the status channel
	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{"some.other.channel": {}},
	}
	hub.Register(client)

	hub.Broadcast(ChannelSpotStatus, events.StatusUpdate{LotID: 1, NodeID: 4, Status: "RESERVED"})

	// Should NOT receive the message
	select {
	case <-client.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
		// OK — no message received
	}
}

func TestHub_ClientCount(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	if hub.ClientCount() != 0 {
		t.Errorf("initial client count = %d, want 0", hub.ClientCount())
	}

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}
}
