package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

//go:embed mysql/*.sql sqlite/*.sql
var files embed.FS

// Dialect 对应 deploy/migrations 下的子目录。
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

const createVersionTableSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version VARCHAR(32) NOT NULL PRIMARY KEY,
        applied_at BIGINT NOT NULL
)`

// File 是一份按版本排序的迁移脚本。
type File struct {
	Version    string
	Name       string
	Statements []string
}

// Load 读取指定方言的全部迁移脚本，按版本号升序返回。
func Load(dialect Dialect) ([]File, error) {
	dir := string(dialect)
	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 迁移目录失败: %w", dialect, err)
	}

	var out []File
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		content, err := files.ReadFile(path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("读取迁移文件 %s 失败: %w", entry.Name(), err)
		}
		statements := splitStatements(string(content))
		if len(statements) == 0 {
			continue
		}
		out = append(out, File{
			Version:    versionOf(entry.Name()),
			Name:       entry.Name(),
			Statements: statements,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Version == out[j].Version {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}

// Apply 在 db 上执行尚未记录在 schema_migrations 中的脚本，返回本次新应用的版本。
func Apply(ctx context.Context, db *sql.DB, dialect Dialect) ([]string, error) {
	if _, err := db.ExecContext(ctx, createVersionTableSQL); err != nil {
		return nil, fmt.Errorf("创建 schema_migrations 表失败: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}

	pending, err := Load(dialect)
	if err != nil {
		return nil, err
	}

	var versions []string
	for _, file := range pending {
		if _, ok := applied[file.Version]; ok {
			continue
		}
		if err := applyFile(ctx, db, file); err != nil {
			return versions, err
		}
		versions = append(versions, file.Version)
	}
	return versions, nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[string]struct{}, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("查询 schema_migrations 失败: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]struct{})
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("解析 schema_migrations 失败: %w", err)
		}
		applied[version] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历 schema_migrations 失败: %w", err)
	}
	return applied, nil
}

func applyFile(ctx context.Context, db *sql.DB, file File) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启迁移事务失败: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range file.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("执行迁移 %s 失败: %w", file.Name, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		file.Version, time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("记录迁移版本 %s 失败: %w", file.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交迁移事务失败: %w", err)
	}
	return nil
}

func splitStatements(content string) []string {
	var statements []string
	for _, stmt := range strings.Split(content, ";") {
		if trimmed := strings.TrimSpace(stmt); trimmed != "" {
			statements = append(statements, trimmed)
		}
	}
	return statements
}

// versionOf 取文件名中第一个下划线之前的部分，例如 0001_create_wallets.sql → 0001。
func versionOf(name string) string {
	name = strings.TrimSuffix(name, path.Ext(name))
	if idx := strings.IndexByte(name, '_'); idx > 0 {
		return name[:idx]
	}
	return name
}
