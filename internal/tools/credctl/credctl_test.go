package credctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sandeepkv93/secure-credential-service/internal/config"
	"github.com/sandeepkv93/secure-credential-service/internal/credential"
	"github.com/sandeepkv93/secure-credential-service/internal/database"
	"github.com/sandeepkv93/secure-credential-service/internal/di"
	"github.com/sandeepkv93/secure-credential-service/internal/legacy"
	"github.com/sandeepkv93/secure-credential-service/internal/repository"
	"github.com/sandeepkv93/secure-credential-service/internal/security"
	"github.com/sandeepkv93/secure-credential-service/internal/tools/common"
)

type staticSource map[string]string

func (s staticSource) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range s {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s staticSource) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := s[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type cliFixture struct {
	opts   *options
	source staticSource
}

// newCLIFixture opens a fresh tool per command against one shared in-memory
// database, the way separate credctl invocations share a real database.
func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	cfg := &config.Config{
		DatabaseDriver:     "sqlite",
		DatabaseURL:        fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")),
		CredentialStore:    "database",
		PasswordIterations: security.MinPasswordIterations,
		LegacyMigration:    true,
	}
	open := func() (*gorm.DB, error) { return database.Open(cfg) }

	anchor, err := open()
	if err != nil {
		t.Fatalf("open anchor db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := anchor.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	fx := &cliFixture{source: staticSource{}}
	fx.opts = &options{deps: dependencies{
		migrator: func() (*di.MigrationRunner, error) {
			db, err := open()
			if err != nil {
				return nil, err
			}
			return di.NewMigrationRunner(cfg, db), nil
		},
		db: open,
		tool: func() (*di.CredentialTool, error) {
			db, err := open()
			if err != nil {
				return nil, err
			}
			if err := database.Migrate(db); err != nil {
				return nil, err
			}
			hasher, err := security.NewPasswordHasher(security.PasswordHasherConfig{Iterations: cfg.PasswordIterations})
			if err != nil {
				return nil, err
			}
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			backend := repository.NewGormCredentialStore(db)
			engine := credential.NewEngine(backend, hasher, legacy.NewGormVerifier(db), logger)
			return &di.CredentialTool{
				Config:  cfg,
				Logger:  logger,
				DB:      db,
				Users:   repository.NewUserRepository(db),
				Backend: backend,
				Engine:  engine,
				Service: credential.NewService(backend, engine),
			}, nil
		},
		objectSource: func(*config.Config) (legacy.ObjectSource, error) { return fx.source, nil },
	}}
	return fx
}

func (fx *cliFixture) run(t *testing.T, stdin string, args ...string) (common.CIResult, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(fx.opts)
	cmd.SetArgs(append([]string{"--ci", "--env-file", ""}, args...))
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()

	var res common.CIResult
	if out.Len() > 0 {
		if derr := json.Unmarshal(out.Bytes(), &res); derr != nil {
			t.Fatalf("decode ci output: %v (%s)", derr, out.String())
		}
	}
	return res, err
}

func exitCode(err error) int {
	var exitErr *common.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}

func hasDetail(res common.CIResult, want string) bool {
	for _, d := range res.Details {
		if strings.Contains(d, want) {
			return true
		}
	}
	return false
}

func TestMigrateUpAndStatus(t *testing.T) {
	fx := newCLIFixture(t)

	if res, err := fx.run(t, "", "migrate", "status"); exitCode(err) != exitFailure || res.OK {
		t.Fatalf("expected status to fail before migration, got ok=%v err=%v", res.OK, err)
	}
	if res, err := fx.run(t, "", "migrate", "up"); err != nil || !res.OK {
		t.Fatalf("migrate up failed: %+v err=%v", res, err)
	}
	if res, err := fx.run(t, "", "migrate", "status"); err != nil || !res.OK {
		t.Fatalf("expected status ok after migration, got %+v err=%v", res, err)
	}
}

func TestPasswordLifecycle(t *testing.T) {
	fx := newCLIFixture(t)

	res, err := fx.run(t, "", "user", "add", "heidi", "ivan")
	if err != nil || !hasDetail(res, "created=2") {
		t.Fatalf("user add: %+v err=%v", res, err)
	}
	res, err = fx.run(t, "", "user", "list", "--page-size", "1")
	if err != nil || !hasDetail(res, "total=2") || !hasDetail(res, "name=heidi") {
		t.Fatalf("user list: %+v err=%v", res, err)
	}

	if res, err = fx.run(t, "Cli#Secret1\n", "password", "set", "--user-id", "1", "--actor", "1"); err != nil || !hasDetail(res, "operation=created") {
		t.Fatalf("password set: %+v err=%v", res, err)
	}
	if _, err = fx.run(t, "other\n", "password", "set", "--user-id", "1", "--mode", "create_only"); exitCode(err) != exitFailure {
		t.Fatalf("expected create_only over existing credential to fail, got %v", err)
	}

	if res, err = fx.run(t, "wrong\n", "login", "check", "--name", "heidi"); exitCode(err) != exitRejected {
		t.Fatalf("expected rejected exit code, got %v (%+v)", err, res)
	}
	if res, err = fx.run(t, "Cli#Secret1\n", "login", "check", "--user-id", "1"); err != nil || !res.OK {
		t.Fatalf("login check: %+v err=%v", res, err)
	}

	res, err = fx.run(t, "", "credential", "inspect", "--user-id", "1")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"iterations=5000", "rehash_pending=false", "last_login_at=never", "failed_attempts=0"} {
		if !hasDetail(res, want) {
			t.Fatalf("expected %q in %+v", want, res.Details)
		}
	}
	for _, d := range res.Details {
		if strings.Contains(d, "hash=") {
			t.Fatalf("inspect must not print hash material: %q", d)
		}
	}

	if _, err = fx.run(t, "", "credential", "destroy", "--user-id", "1"); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err = fx.run(t, "", "credential", "inspect", "--user-id", "1"); exitCode(err) != exitFailure {
		t.Fatalf("expected inspect after destroy to fail, got %v", err)
	}
}

func TestLoginCheckValidatesKeyFlags(t *testing.T) {
	fx := newCLIFixture(t)
	if _, err := fx.run(t, "pw\n", "login", "check"); err == nil || exitCode(err) != -1 {
		t.Fatalf("expected usage error, got %v", err)
	}
	if _, err := fx.run(t, "pw\n", "login", "check", "--user-id", "1", "--name", "x"); err == nil {
		t.Fatal("expected usage error for both keys")
	}
	if _, err := fx.run(t, "", "login", "check", "--user-id", "1"); err == nil {
		t.Fatal("expected error without password on stdin")
	}
}

func TestLegacyImportThenMigratingLogin(t *testing.T) {
	fx := newCLIFixture(t)
	if _, err := fx.run(t, "", "user", "add", "judy"); err != nil {
		t.Fatalf("user add: %v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("Old#Pass1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	fx.source["exports/part-0001.jsonl"] = fmt.Sprintf("{\"user_id\":1,\"password_hash\":%q}\nnot json\n", string(hash))

	res, err := fx.run(t, "", "legacy", "import", "--prefix", "exports/")
	if err != nil {
		t.Fatalf("legacy import: %v", err)
	}
	for _, want := range []string{"objects=1", "imported=1", "invalid=1"} {
		if !hasDetail(res, want) {
			t.Fatalf("expected %q in %+v", want, res.Details)
		}
	}

	if _, err := fx.run(t, "Old#Pass1\n", "login", "check", "--name", "judy", "--actual"); err != nil {
		t.Fatalf("migrating login: %v", err)
	}
	res, err = fx.run(t, "", "credential", "inspect", "--user-id", "1")
	if err != nil || !hasDetail(res, "password=set") || hasDetail(res, "last_login_at=never") {
		t.Fatalf("expected migrated credential with login time, got %+v err=%v", res, err)
	}

	// a second import must not resurrect the migrated legacy row
	res, err = fx.run(t, "", "legacy", "import", "--prefix", "exports/")
	if err != nil || !hasDetail(res, "skipped=1") {
		t.Fatalf("expected re-import to skip, got %+v err=%v", res, err)
	}
}
