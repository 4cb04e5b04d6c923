package local

import (
	"context"
	"fmt"
	"strings"

	"go-stock-resi/internal/model"
	"go-stock-resi/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// keyspaceEvents are the notification classes needed: keyspace channel,
// string writes and generic commands (SET, DEL), the only ones this backend
// issues.
const keyspaceEvents = "K$g"

// Subscribe watches both keys through keyspace notifications. Each
// notification reloads the touched collection and reports its difference
// from the last version seen. Delivery is best-effort: if the server does not
// publish keyspace events, nothing arrives.
func (b *Backend) Subscribe(ctx context.Context, handler repository.ChangeHandler) error {
	b.enableKeyspaceEvents(ctx)

	db := b.rdb.Options().DB
	productsChan := fmt.Sprintf("__keyspace@%d__:%s", db, b.productsKey)
	transactionsChan := fmt.Sprintf("__keyspace@%d__:%s", db, b.transactionsKey)

	pubsub := b.rdb.Subscribe(ctx, productsChan, transactionsChan)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("subscribe keyspace: %w", err)
	}

	products, err := b.products.FindAll(ctx)
	if err != nil {
		pubsub.Close()
		return err
	}
	ledger, err := b.transactions.FindAll(ctx)
	if err != nil {
		pubsub.Close()
		return err
	}

	w := &watcher{b: b, products: products, transactions: ledger}
	go w.run(ctx, pubsub, productsChan, handler)
	return nil
}

func (b *Backend) enableKeyspaceEvents(ctx context.Context) {
	current, err := b.rdb.ConfigGet(ctx, "notify-keyspace-events").Result()
	if err != nil {
		b.logger.Warn("cannot read keyspace notification config, cross-process updates need a reload", zap.Error(err))
		return
	}
	flags, changed := mergeKeyspaceFlags(current["notify-keyspace-events"])
	if !changed {
		return
	}
	if err := b.rdb.ConfigSet(ctx, "notify-keyspace-events", flags).Err(); err != nil {
		b.logger.Warn("cannot enable keyspace notifications, cross-process updates need a reload", zap.Error(err))
	}
}

// mergeKeyspaceFlags adds the missing keyspaceEvents classes to the server's
// current setting without dropping any flag already enabled. "A" already
// covers "$" and "g".
func mergeKeyspaceFlags(current string) (string, bool) {
	flags := current
	for _, f := range keyspaceEvents {
		if strings.ContainsRune(flags, f) || (f != 'K' && strings.ContainsRune(flags, 'A')) {
			continue
		}
		flags += string(f)
	}
	return flags, flags != current
}

type watcher struct {
	b            *Backend
	products     []model.Product
	transactions []model.Transaction
}

func (w *watcher) run(ctx context.Context, pubsub *redis.PubSub, productsChan string, handler repository.ChangeHandler) {
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var cs model.ChangeSet
			var err error
			if msg.Channel == productsChan {
				cs, err = w.reloadProducts(ctx)
			} else {
				cs, err = w.reloadTransactions(ctx)
			}
			if err != nil {
				w.b.logger.Warn("reload after keyspace event failed", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if !cs.Empty() {
				handler(cs)
			}
		}
	}
}

func (w *watcher) reloadProducts(ctx context.Context) (model.ChangeSet, error) {
	next, err := w.b.products.FindAll(ctx)
	if err != nil {
		return model.ChangeSet{}, err
	}
	changes := diff(w.products, next, sameProduct)
	w.products = next
	return model.ChangeSet{Products: changes}, nil
}

func (w *watcher) reloadTransactions(ctx context.Context) (model.ChangeSet, error) {
	next, err := w.b.transactions.FindAll(ctx)
	if err != nil {
		return model.ChangeSet{}, err
	}
	changes := diff(w.transactions, next, sameTransaction)
	w.transactions = next
	return model.ChangeSet{Transactions: changes}, nil
}
