package postgres

import (
	"context"
	"fmt"
	"time"

	"go-stock-resi/internal/model"
	"go-stock-resi/internal/repository"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	minReconnectDelay = time.Second
	maxReconnectDelay = 30 * time.Second
)

// Subscribe opens a dedicated connection, LISTENs on the change channel and
// feeds decoded changes to handler until ctx is done.
func (b *Backend) Subscribe(ctx context.Context, handler repository.ChangeHandler) error {
	conn, err := b.listen(ctx)
	if err != nil {
		return err
	}
	go b.consume(ctx, conn, handler)
	return nil
}

func (b *Backend) listen(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, b.dsn)
	if err != nil {
		return nil, fmt.Errorf("connect listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		conn.Close(context.Background())
		return nil, fmt.Errorf("listen %s: %w", ChangeChannel, err)
	}
	return conn, nil
}

func (b *Backend) consume(ctx context.Context, conn *pgx.Conn, handler repository.ChangeHandler) {
	defer func() {
		if conn != nil {
			conn.Close(context.Background())
		}
	}()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Warn("change feed lost, reconnecting", zap.Error(err))
			conn.Close(context.Background())
			if conn = b.reconnect(ctx); conn == nil {
				return
			}
			handler(model.ChangeSet{Resync: true})
			continue
		}

		cs, err := decodeNotification(n.Payload)
		if err != nil {
			b.logger.Warn("skipping change notification", zap.Error(err))
			continue
		}
		handler(cs)
	}
}

// reconnect retries with exponential backoff. Changes committed while the
// listener was down are not replayed; consume asks the handler to resync
// instead. Returns nil once ctx is done.
func (b *Backend) reconnect(ctx context.Context) *pgx.Conn {
	delay := minReconnectDelay
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		conn, err := b.listen(ctx)
		if err == nil {
			b.logger.Info("change feed reconnected")
			return conn
		}
		b.logger.Warn("change feed reconnect failed", zap.Error(err), zap.Duration("retry_in", delay))
		delay = min(delay*2, maxReconnectDelay)
	}
}
