package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/sandeepkv93/secure-credential-service/internal/config"
	"github.com/sandeepkv93/secure-credential-service/internal/credential"
	"github.com/sandeepkv93/secure-credential-service/internal/database"
	"github.com/sandeepkv93/secure-credential-service/internal/health"
	"github.com/sandeepkv93/secure-credential-service/internal/http/handler"
	"github.com/sandeepkv93/secure-credential-service/internal/http/middleware"
	"github.com/sandeepkv93/secure-credential-service/internal/http/router"
	"github.com/sandeepkv93/secure-credential-service/internal/legacy"
	"github.com/sandeepkv93/secure-credential-service/internal/repository"
	"github.com/sandeepkv93/secure-credential-service/internal/security"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta struct {
		RequestID string `json:"request_id"`
	} `json:"meta"`
}

type testServerOptions struct {
	db              *gorm.DB
	iterations      int
	legacyMigration bool
	backend         func(db *gorm.DB) repository.CredentialBackend
}

type credentialTestServer struct {
	baseURL string
	client  *http.Client
	db      *gorm.DB
	backend repository.CredentialBackend
	engine  *credential.Engine
}

func newSQLiteTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", "#", "_").Replace(t.Name())
	db, err := database.Open(&config.Config{
		DatabaseDriver: "sqlite",
		DatabaseURL:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newCredentialTestServer(t *testing.T, opts testServerOptions) *credentialTestServer {
	t.Helper()

	db := opts.db
	if db == nil {
		db = newSQLiteTestDB(t)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	iterations := opts.iterations
	if iterations == 0 {
		iterations = security.MinPasswordIterations
	}
	hasher, err := security.NewPasswordHasher(security.PasswordHasherConfig{Iterations: iterations})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}

	var backend repository.CredentialBackend = repository.NewGormCredentialStore(db)
	if opts.backend != nil {
		backend = opts.backend(db)
	}
	var migrator credential.MigrationVerifier
	if opts.legacyMigration {
		migrator = legacy.NewGormVerifier(db)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := credential.NewEngine(backend, hasher, migrator, logger)
	svc := credential.NewService(backend, engine)

	h := router.NewRouter(router.Dependencies{
		CredentialHandler: handler.NewCredentialHandler(svc),
		Readiness:         health.NewProbeRunner(time.Second, health.NewDBChecker(db)),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		engine.Wait()
	})

	return &credentialTestServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		db:      db,
		backend: backend,
		engine:  engine,
	}
}

func (s *credentialTestServer) mustAddUsers(t *testing.T, names ...string) []uint {
	t.Helper()
	report, err := database.SeedUsers(s.db, names)
	if err != nil {
		t.Fatalf("seed users: %v", err)
	}
	ids := make([]uint, 0, len(report.Users))
	for _, u := range report.Users {
		ids = append(ids, u.ID)
	}
	return ids
}

func (s *credentialTestServer) mustInspect(t *testing.T, userID uint) *credentialRecord {
	t.Helper()
	rec, err := s.backend.Inspect(context.Background(), userID)
	if err != nil {
		t.Fatalf("inspect credential %d: %v", userID, err)
	}
	return &credentialRecord{hash: rec.PasswordHash, failed: rec.FailedAttemptCount, lastLogin: rec.LastLoginAt}
}

type credentialRecord struct {
	hash      []byte
	failed    uint8
	lastLogin *time.Time
}

func (s *credentialTestServer) do(t *testing.T, method, path string, body any, actor uint) (*http.Response, apiEnvelope) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != 0 {
		req.Header.Set(middleware.ActorIDHeader, fmt.Sprint(actor))
	}
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var env apiEnvelope
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}
	return resp, env
}

func (s *credentialTestServer) login(t *testing.T, body map[string]any) (*http.Response, apiEnvelope) {
	t.Helper()
	return s.do(t, http.MethodPost, "/api/v1/login", body, 0)
}
