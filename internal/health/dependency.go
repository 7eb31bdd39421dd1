package health

import (
	"context"
	"fmt"

	"github.com/sandeepkv93/secure-credential-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// DBChecker pings the database and confirms the credential schema has been
// migrated.
type DBChecker struct {
	db *gorm.DB
}

func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return &DBChecker{db: db}
}

func (c *DBChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "db", Healthy: true}
	sqlDB, err := c.db.DB()
	if err != nil {
		return unhealthy(res, err.Error())
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return unhealthy(res, err.Error())
	}
	m := c.db.WithContext(ctx).Migrator()
	for _, model := range []any{&domain.User{}, &domain.Credential{}} {
		if !m.HasTable(model) {
			return unhealthy(res, fmt.Sprintf("table for %T missing, run migrations", model))
		}
	}
	return res
}

type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "redis", Healthy: true}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return unhealthy(res, err.Error())
	}
	return res
}

func unhealthy(res CheckResult, msg string) CheckResult {
	res.Healthy = false
	res.Error = msg
	return res
}
