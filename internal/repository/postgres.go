// Package repository содержит реализации хранилищ настроек и чёрного списка в PostgreSQL и Redis.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/govalues/decimal"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/autorefund/internal/model"
	"github.com/mmeshcher/autorefund/internal/settings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresRepository хранит настройки и чёрный список в PostgreSQL.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	delays []time.Duration
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{
		pool:   pool,
		delays: []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second},
	}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет fn при временных ошибках: конфликты сериализации, дедлоки, обрывы соединения.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i <= len(r.delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) || i == len(r.delays) {
			return err
		}

		timer := time.NewTimer(r.delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}

	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// LoadSettings читает единственную строку настроек.
func (r *PostgresRepository) LoadSettings(ctx context.Context) (model.Settings, error) {
	var (
		s        model.Settings
		maxPrice string
	)

	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT star_1, star_2, star_3, star_4, star_5, max_price::text, block_user,
			        refund_notification, feedback_delete, refund_notification_chat_id, blacklist_message
			 FROM refund_settings
			 WHERE id = 1`,
		).Scan(
			&s.StarEnabled[0], &s.StarEnabled[1], &s.StarEnabled[2], &s.StarEnabled[3], &s.StarEnabled[4],
			&maxPrice, &s.BlockUser, &s.RefundNotification, &s.FeedbackDeleteEnabled,
			&s.RefundNotificationTarget, &s.BlacklistMessage,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Settings{}, settings.ErrNotFound
		}
		return model.Settings{}, fmt.Errorf("select settings: %w", err)
	}

	price, err := decimal.Parse(maxPrice)
	if err != nil {
		return model.Settings{}, fmt.Errorf("parse max_price %q: %w", maxPrice, err)
	}
	s.MaxPrice = price

	return s, nil
}

// SaveSettings записывает настройки одной командой upsert.
func (r *PostgresRepository) SaveSettings(ctx context.Context, s model.Settings) error {
	err := r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO refund_settings (id, star_1, star_2, star_3, star_4, star_5, max_price, block_user,
			                              refund_notification, feedback_delete, refund_notification_chat_id,
			                              blacklist_message, updated_at)
			 VALUES (1, $1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11, NOW())
			 ON CONFLICT (id) DO UPDATE SET
			     star_1 = EXCLUDED.star_1,
			     star_2 = EXCLUDED.star_2,
			     star_3 = EXCLUDED.star_3,
			     star_4 = EXCLUDED.star_4,
			     star_5 = EXCLUDED.star_5,
			     max_price = EXCLUDED.max_price,
			     block_user = EXCLUDED.block_user,
			     refund_notification = EXCLUDED.refund_notification,
			     feedback_delete = EXCLUDED.feedback_delete,
			     refund_notification_chat_id = EXCLUDED.refund_notification_chat_id,
			     blacklist_message = EXCLUDED.blacklist_message,
			     updated_at = EXCLUDED.updated_at`,
			s.StarEnabled[0], s.StarEnabled[1], s.StarEnabled[2], s.StarEnabled[3], s.StarEnabled[4],
			s.MaxPrice.String(), s.BlockUser, s.RefundNotification, s.FeedbackDeleteEnabled,
			s.RefundNotificationTarget, s.BlacklistMessage,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

// LoadBlacklist возвращает чёрный список в порядке добавления.
func (r *PostgresRepository) LoadBlacklist(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT username
		 FROM blacklist
		 ORDER BY added_at, username`,
	)
	if err != nil {
		return nil, fmt.Errorf("select blacklist: %w", err)
	}
	defer rows.Close()

	var res []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("scan blacklist: %w", err)
		}
		res = append(res, username)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// AddToBlacklist добавляет покупателя. Повторное добавление не является ошибкой.
func (r *PostgresRepository) AddToBlacklist(ctx context.Context, username string) error {
	err := r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO blacklist (username) VALUES ($1) ON CONFLICT (username) DO NOTHING`,
			username,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert blacklist: %w", err)
	}
	return nil
}

// RemoveFromBlacklist удаляет покупателя из чёрного списка.
func (r *PostgresRepository) RemoveFromBlacklist(ctx context.Context, username string) error {
	err := r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx, `DELETE FROM blacklist WHERE username = $1`, username)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete blacklist: %w", err)
	}
	return nil
}
