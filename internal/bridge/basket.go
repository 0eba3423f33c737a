package bridge

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"contracting-bridge/internal/cache"
	"contracting-bridge/internal/journal"
)

// basket holds contracts that were handed to the submission stage but whose
// transfer is not yet confirmed in the cache. It maps contract id to the
// dateModified of the owning tender; resolving an entry marks the tender
// itself as processed. Submission workers insert and resolve concurrently, so
// access is mutex-guarded.
type basket struct {
	mu sync.Mutex
	m  map[string]string
}

func newBasket() *basket {
	return &basket{m: make(map[string]string)}
}

func (b *basket) add(contractID, tenderDateModified string) {
	b.mu.Lock()
	b.m[contractID] = tenderDateModified
	b.mu.Unlock()
}

// resolve removes the contract's entry and writes the tender bookkeeping
// record to the cache. Resolving an absent contract id is a no-op, so the
// step is idempotent under redelivery.
func (b *basket) resolve(ctx context.Context, store cache.Store, contractID, tenderID string) error {
	b.mu.Lock()
	value, ok := b.m[contractID]
	if ok {
		delete(b.m, contractID)
	}
	b.mu.Unlock()

	if !ok {
		return nil
	}
	if err := store.Put(ctx, tenderID, value); err != nil {
		// Put the entry back so a later resolution can complete the write.
		b.add(contractID, value)
		logrus.WithFields(journal.Context(journal.Exception, map[string]string{
			journal.TenderID:   tenderID,
			journal.ContractID: contractID,
		})).WithError(err).Error("Failed to mark tender processed in cache")
		return err
	}
	return nil
}

func (b *basket) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.m)
}
