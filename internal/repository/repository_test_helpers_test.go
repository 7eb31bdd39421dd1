package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sandeepkv93/secure-credential-service/internal/config"
	"github.com/sandeepkv93/secure-credential-service/internal/database"

	"gorm.io/gorm"
)

func newRepositoryDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.Config{
		DatabaseDriver: "sqlite",
		DatabaseURL:    fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
