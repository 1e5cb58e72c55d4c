// Package integration contains integration tests for the line-keeping
// agent's admin surface.
//
// These tests verify the correct interaction between components:
// - API integration tests: full HTTP request cycle against the admin router
// - WebSocket tests: connection, broadcast messaging over wsadmin
// - Database tests: schema, CRUD operations through the admin repositories
//
// Integration tests use build tag "integration" to separate from unit tests.
// Run with: go test -tags=integration ./tests/integration/...
package integration

import (
	"database/sql"
	"fmt"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/svyatogor45/linekeeper/internal/api"
	"github.com/svyatogor45/linekeeper/internal/api/handlers"
	"github.com/svyatogor45/linekeeper/internal/models"
	"github.com/svyatogor45/linekeeper/internal/repository"
	"github.com/svyatogor45/linekeeper/internal/service"
	"github.com/svyatogor45/linekeeper/internal/wsadmin"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
)

// testAdminPasswordHash is the bcrypt digest of testAdminPassword, used by
// every test server so api_test.go can authenticate with a fixed credential
// pair instead of generating a hash at runtime.
const testAdminPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
const testAdminPassword = "secret"

// TestConfig contains configuration for integration tests
type TestConfig struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

// TestServer encapsulates all components needed for integration testing
type TestServer struct {
	DB       *sql.DB
	Router   *mux.Router
	Server   *httptest.Server
	Hub      *wsadmin.Hub
	Sched    *fakeScheduler
	Repos    *TestRepositories
	Services *TestServices
	Handlers *TestHandlers
	Cleanup  func()
}

// TestRepositories contains all repository instances for testing
type TestRepositories struct {
	Blacklist    *repository.BlacklistRepository
	Notification *repository.NotificationRepository
	Settings     *repository.SettingsRepository
}

// TestServices contains all service instances for testing
type TestServices struct {
	Settings     *service.SettingsService
	Notification *service.NotificationService
	Blacklist    *service.BlacklistService
}

// TestHandlers contains all handler instances for testing
type TestHandlers struct {
	Scheduler    *handlers.SchedulerHandler
	Settings     *handlers.SettingsHandler
	Notification *handlers.NotificationHandler
	Blacklist    *handlers.BlacklistHandler
}

// fakeScheduler implements handlers.SchedulerController entirely in memory,
// standing in for the real cycle loop so API tests never touch a live
// reference feed or exchange.
type fakeScheduler struct {
	pairings   map[string]models.EventPairing
	lineStates map[string]models.LineState
	positions  map[string]models.LinePosition
	stats      wsadmin.CycleSummary
	overrides  map[string]int
	running    bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		pairings:   make(map[string]models.EventPairing),
		lineStates: make(map[string]models.LineState),
		positions:  make(map[string]models.LinePosition),
		overrides:  make(map[string]int),
		running:    true,
	}
}

func (f *fakeScheduler) Pairings() map[string]models.EventPairing     { return f.pairings }
func (f *fakeScheduler) LineStates() map[string]models.LineState     { return f.lineStates }
func (f *fakeScheduler) Positions() map[string]models.LinePosition   { return f.positions }
func (f *fakeScheduler) Stats() wsadmin.CycleSummary                 { return f.stats }
func (f *fakeScheduler) AddOverride(refEventID string, exchEventID int) {
	f.overrides[refEventID] = exchEventID
}
func (f *fakeScheduler) RemoveOverride(refEventID string) { delete(f.overrides, refEventID) }
func (f *fakeScheduler) Start()                           { f.running = true }
func (f *fakeScheduler) Stop()                            { f.running = false }
func (f *fakeScheduler) IsRunning() bool                  { return f.running }

// getTestConfig returns configuration from environment variables or defaults
func getTestConfig() TestConfig {
	return TestConfig{
		DBDriver:   getEnv("TEST_DB_DRIVER", "postgres"),
		DBHost:     getEnv("TEST_DB_HOST", "localhost"),
		DBPort:     getEnv("TEST_DB_PORT", "5432"),
		DBName:     getEnv("TEST_DB_NAME", "linekeeper_test"),
		DBUser:     getEnv("TEST_DB_USER", "postgres"),
		DBPassword: getEnv("TEST_DB_PASSWORD", "postgres"),
		DBSSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SetupTestDB creates a test database connection
func SetupTestDB(t *testing.T) (*sql.DB, func()) {
	config := getTestConfig()

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName, config.DBSSLMode,
	)

	db, err := sql.Open(config.DBDriver, connStr)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil, func() {}
	}

	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil, func() {}
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	return db, cleanup
}

// SetupTestServer creates a complete test server with all components
func SetupTestServer(t *testing.T) *TestServer {
	db, dbCleanup := SetupTestDB(t)
	if db == nil {
		return nil
	}

	if err := initTestTables(db); err != nil {
		t.Skipf("Skipping integration test: cannot initialize tables: %v", err)
		return nil
	}

	hub := wsadmin.NewHub()
	go hub.Run()

	repos := &TestRepositories{
		Blacklist:    repository.NewBlacklistRepository(db),
		Notification: repository.NewNotificationRepository(db),
		Settings:     repository.NewSettingsRepository(db),
	}

	services := &TestServices{
		Settings:     service.NewSettingsService(repos.Settings),
		Notification: service.NewNotificationService(repos.Notification, repos.Settings),
		Blacklist:    service.NewBlacklistService(repos.Blacklist),
	}
	services.Notification.SetBroadcaster(hub)

	sched := newFakeScheduler()

	testHandlers := &TestHandlers{
		Scheduler:    handlers.NewSchedulerHandler(sched),
		Settings:     handlers.NewSettingsHandler(services.Settings),
		Notification: handlers.NewNotificationHandler(services.Notification),
		Blacklist:    handlers.NewBlacklistHandler(services.Blacklist),
	}

	deps := &api.Dependencies{
		Scheduler:           sched,
		SettingsService:     services.Settings,
		NotificationService: services.Notification,
		BlacklistService:    services.Blacklist,
		Hub:                 hub,
		AdminUsername:       "test-admin",
		AdminPasswordHash:   testAdminPasswordHash,
	}
	router := api.SetupRoutes(deps)

	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		cleanupTestTables(db)
		dbCleanup()
	}

	return &TestServer{
		DB:       db,
		Router:   router,
		Server:   server,
		Hub:      hub,
		Sched:    sched,
		Repos:    repos,
		Services: services,
		Handlers: testHandlers,
		Cleanup:  cleanup,
	}
}

// initTestTables creates the admin tables: excluded events, notifications,
// runtime settings. The scheduler itself holds no database state.
func initTestTables(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS excluded_events (
			id SERIAL PRIMARY KEY,
			reference_event_id VARCHAR(100) UNIQUE NOT NULL,
			reason TEXT DEFAULT '',
			created_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id SERIAL PRIMARY KEY,
			timestamp TIMESTAMP DEFAULT NOW(),
			type VARCHAR(50) NOT NULL,
			severity VARCHAR(10) DEFAULT 'info',
			line_id VARCHAR(100),
			message TEXT NOT NULL,
			meta JSONB DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			id INT PRIMARY KEY DEFAULT 1,
			poll_interval_seconds INT DEFAULT 60,
			base_plus_stake DECIMAL(20, 2) DEFAULT 100,
			cool_down_seconds INT DEFAULT 300,
			notification_prefs JSONB DEFAULT '{"placement":true,"top_up":true,"fill":true,"invalidated":true,"cancel":true,"error":true,"skip":false}',
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	_, err := db.Exec(`INSERT INTO settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to insert default settings: %w", err)
	}

	return nil
}

// cleanupTestTables truncates all test tables
func cleanupTestTables(db *sql.DB) {
	tables := []string{
		"notifications",
		"excluded_events",
	}

	for _, table := range tables {
		db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
	}
}

// TruncateTable truncates a specific table for testing
func TruncateTable(db *sql.DB, tableName string) error {
	_, err := db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", tableName))
	return err
}
