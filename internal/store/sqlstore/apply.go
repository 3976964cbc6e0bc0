package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"govconnect/internal/schema"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ApplyDDL выполняет идемпотентный DDL (create ... if not exists) по порядку.
func ApplyDDL(ctx context.Context, db execer, log *zap.Logger, stmts []string) error {
	for _, sqlText := range stmts {
		sqlText = strings.TrimSpace(sqlText)
		if sqlText == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, sqlText); err != nil {
			// pgx/stdlib возвращает *pgconn.PgError; 42710 duplicate_object, 42P07 duplicate_table
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && (pgErr.Code == "42710" || pgErr.Code == "42P07") {
				log.Debug("DDL skipped (already exists)", zap.String("message", strings.TrimSpace(pgErr.Message)))
				continue
			}
			if isConnErr(err) {
				return schema.Unavailable(err)
			}
			return fmt.Errorf("DDL apply failed: %w", err)
		}
	}
	return nil
}

// isConnErr - ошибка связи с сервером БД, а не прикладная ошибка SQL.
func isConnErr(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isUniqueViolation - pg 23505/42P07 или текст sqlite.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" || pgErr.Code == "42P07"
	}
	e := strings.ToLower(err.Error())
	return strings.Contains(e, "unique constraint failed") || strings.Contains(e, "already exists")
}

// classify оборачивает ошибку драйвера: недоступность БД - ErrUnavailable,
// прикладные ошибки движка пропускаются как есть.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if schema.KindOf(err) != "" {
		return err
	}
	if isConnErr(err) {
		return schema.Unavailable(err)
	}
	return fmt.Errorf("sqlstore: %w", err)
}
