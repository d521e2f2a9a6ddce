package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// GetOne читает одну строку table, где column = value.
// Отсутствие строки превращается в notFound.
func GetOne[T any](ctx context.Context, q sqlx.QueryerContext, table, column string, value any, notFound error) (*T, error) {
	var row T
	query := "SELECT * FROM " + table + " WHERE " + column + " = $1"
	err := sqlx.GetContext(ctx, q, &row, query, value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notFound
	case err != nil:
		return nil, fmt.Errorf("%s by %s: %w", table, column, err)
	}
	return &row, nil
}

// GetByID сокращение GetOne для первичного ключа.
func GetByID[T any](ctx context.Context, q sqlx.QueryerContext, table string, id any, notFound error) (*T, error) {
	return GetOne[T](ctx, q, table, "id", id, notFound)
}

// InsertRows вставляет rows многострочными INSERT по chunk строк.
// insert содержит всё до VALUES, у каждой строки одинаковое число колонок.
func InsertRows(ctx context.Context, exec sqlx.ExecerContext, insert string, rows [][]any, chunk int) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if chunk <= 0 {
		chunk = 100
	}
	width := len(rows[0])

	done := 0
	for start := 0; start < len(rows); start += chunk {
		end := min(start+chunk, len(rows))
		args := make([]any, 0, (end-start)*width)
		for _, row := range rows[start:end] {
			if len(row) != width {
				return done, fmt.Errorf("insert rows: строка из %d значений, ожидалось %d", len(row), width)
			}
			args = append(args, row...)
		}
		query := insert + " VALUES " + Placeholders(end-start, width)
		if _, err := exec.ExecContext(ctx, query, args...); err != nil {
			return done, fmt.Errorf("insert rows: %w", err)
		}
		done += end - start
	}
	return done, nil
}

// Placeholders строит ($1, $2), ($3, $4), ... для rows строк по fields полей.
func Placeholders(rows, fields int) string {
	groups := make([]string, rows)
	n := 1
	for i := range groups {
		cols := make([]string, fields)
		for j := range cols {
			cols[j] = fmt.Sprintf("$%d", n)
			n++
		}
		groups[i] = "(" + strings.Join(cols, ", ") + ")"
	}
	return strings.Join(groups, ", ")
}

// TxBeginner источник транзакций, обычно *sqlx.DB.
type TxBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// WithTransaction выполняет fn в транзакции. Ошибка или паника fn откатывают её.
func WithTransaction(ctx context.Context, db TxBeginner, fn func(*sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && err != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}
