package config

import (
	"fmt"
	"strings"

	"github.com/xo/dburl"
)

// Connection 解析最终使用的驱动与连接串
// 配置了 url 时按 URL 解析，否则沿用 driver/dsn。
func (d DatabaseConfig) Connection() (driver, dsn string, err error) {
	raw := strings.TrimSpace(d.URL)
	if raw == "" {
		return strings.TrimSpace(d.Driver), d.DSN, nil
	}
	u, err := dburl.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse database url: %w", err)
	}
	switch u.Driver {
	case "sqlite3", "sqlite", "moderncsqlite":
		return "sqlite", u.DSN, nil
	case "postgres", "pgx":
		return "postgres", u.DSN, nil
	default:
		return "", "", fmt.Errorf("unsupported database url driver: %s", u.Driver)
	}
}
