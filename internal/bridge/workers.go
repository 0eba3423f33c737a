package bridge

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	backoff "github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"

	"contracting-bridge/internal/contracting"
	"contracting-bridge/internal/data"
	"contracting-bridge/internal/journal"
	"contracting-bridge/internal/tenders"
)

// getTenderContractsForward walks the tender-change feed from the resume
// point towards new changes.
func (b *Bridge) getTenderContractsForward(ctx context.Context) {
	logrus.Info("Start forward data sync worker...")
	b.syncFeed(ctx, tenders.FeedForward)
}

// getTenderContractsBackward walks the historic feed. Together with the
// forward poller it gives eventual full coverage without a single linear
// pass.
func (b *Bridge) getTenderContractsBackward(ctx context.Context) {
	logrus.Info("Start backward data sync worker...")
	b.syncFeed(ctx, tenders.FeedBackward)
}

// syncFeed is the shared poller loop: fetch a page, enqueue every tender not
// yet up to date in the cache, advance the cursor. A feed error ends the
// worker; the supervisor restarts both pollers together with fresh clients.
func (b *Bridge) syncFeed(ctx context.Context, direction tenders.FeedDirection) {
	offset := ""
	for {
		if ctx.Err() != nil {
			return
		}

		page, err := b.tendersSyncAPI().GetTenderContractsFeed(ctx, offset, direction)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logrus.WithFields(journal.Context(journal.Exception, nil)).
				WithError(err).Error("Feed polling failed, worker will restart")
			return
		}

		for _, ref := range page.Data {
			cached, err := b.cacheDB.Get(ctx, ref.ID)
			if err != nil {
				logrus.WithFields(journal.Context(journal.Exception, map[string]string{
					journal.TenderID: ref.ID,
				})).WithError(err).Error("Cache lookup failed, worker will restart")
				return
			}
			if cached != "" && cached == ref.DateModified {
				logrus.Debugf("Tender %s not modified from last check. Skipping", ref.ID)
				continue
			}
			b.tendersQueue.Put(ref)
		}

		if page.NextPage.Offset != "" {
			offset = page.NextPage.Offset
		}

		if len(page.Data) == 0 {
			logrus.WithFields(journal.Context(journal.SyncSleep, nil)).Debugf(
				"Empty feed page, sleeping %s", b.emptyFeedDelay)
			b.sleep(ctx, b.emptyFeedDelay)
		}
	}
}

// getTenderContracts consumes the tender queue and fans each tender out into
// sync-eligible contracts. Any error aborts this tender's pass as a unit and
// ends the worker; contracts already enqueued for other tenders are
// unaffected.
func (b *Bridge) getTenderContracts(ctx context.Context) {
	for {
		ref, err := b.tendersQueue.Get(ctx)
		if err != nil {
			return
		}
		if err := b.extractTenderContracts(ctx, ref); err != nil {
			if ctx.Err() != nil {
				return
			}
			logrus.WithFields(journal.Context(journal.Exception, map[string]string{
				journal.TenderID: ref.ID,
			})).WithError(err).Error("Failed to process tender contracts")
			return
		}
	}
}

func (b *Bridge) extractTenderContracts(ctx context.Context, ref data.TenderRef) error {
	logrus.Infof("Getting tender %s", ref.ID)
	resp, err := b.tendersSyncAPI().GetTender(ctx, ref.ID)
	if err != nil {
		return err
	}
	tender := resp.Data
	logrus.Infof("Got tender %s in status %s", tender.ID, tender.Status)

	if len(tender.Contracts) == 0 {
		logrus.Infof("Tender %s does not contain contracts to transfer", tender.ID)
		return nil
	}

	logrus.Infof("Getting tender %s credentials", tender.ID)
	creds, err := b.getTenderCredentials(ctx, tender.ID)
	if err != nil {
		return err
	}
	logrus.Infof("Got tender %s credentials", tender.ID)

	for i := range tender.Contracts {
		contract := tender.Contracts[i]
		ids := map[string]string{
			journal.TenderID:   tender.ID,
			journal.ContractID: contract.ID,
		}

		if contract.Status != "active" {
			logrus.Infof("Skip contract %s in status %s", contract.ID, contract.Status)
			continue
		}

		transferred, err := b.cacheDB.Has(ctx, contract.ID)
		if err != nil {
			return err
		}
		if transferred {
			logrus.Debugf("Contract %s already transferred", contract.ID)
			continue
		}

		_, err = b.contractingAPI().GetContract(ctx, contract.ID)
		switch {
		case err == nil:
			logrus.Infof("Contract exists %s", contract.ID)
			if err := b.cacheDB.Put(ctx, contract.ID, "true"); err != nil {
				return err
			}
			continue
		case errors.Is(err, contracting.ErrArchived):
			// Archived contracts are terminal, never retried.
			logrus.WithFields(journal.Context(journal.ContractToSync, ids)).Infof(
				"Sync contract %s of tender %s has been archived", contract.ID, tender.ID)
			continue
		case errors.Is(err, contracting.ErrNotFound):
			logrus.WithFields(journal.Context(journal.ContractToSync, ids)).Infof(
				"Sync contract %s of tender %s", contract.ID, tender.ID)
		default:
			return err
		}

		b.basket.add(contract.ID, tender.DateModified)
		b.handicapQueue.Put(&contractItem{
			contract:    contract,
			tender:      tender,
			credentials: creds,
		})
	}
	return nil
}

// getTenderCredentials resolves per-tender access credentials with a bounded
// number of attempts. The third consecutive failure propagates to the caller.
func (b *Bridge) getTenderCredentials(ctx context.Context, tenderID string) (*data.Credentials, error) {
	attempts := b.cfg.Retry.CredentialsAttempts
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := b.tendersAPI().ExtractCredentials(ctx, tenderID)
		if err == nil {
			return &resp.Data, nil
		}
		lastErr = err
		logrus.Warnf("Can't get tender %s credentials (attempt %d/%d): %v",
			tenderID, attempt, attempts, err)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(b.retryDelay):
			}
		}
	}
	return nil, lastErr
}

// getTenderDataWithRetry is the retry-lane credential refresh: exponential
// backoff between attempts instead of the fixed delay of the normal lane.
func (b *Bridge) getTenderDataWithRetry(ctx context.Context, tenderID string) (*data.Credentials, error) {
	ebo := backoff.NewExponentialBackOff()
	ebo.InitialInterval = b.retryDelay
	ebo.MaxInterval = b.retryMaxDelay

	return backoff.Retry(ctx, func() (*data.Credentials, error) {
		resp, err := b.tendersAPI().ExtractCredentials(ctx, tenderID)
		if err != nil {
			return nil, err
		}
		return &resp.Data, nil
	}, backoff.WithBackOff(ebo), backoff.WithMaxTries(uint(b.cfg.Retry.CredentialsAttempts)))
}

// prepareContractData builds payloads for extracted contracts and hands them
// to the submission stage. Failed items move to the retry lane; repeated
// failure smells like a dead source client, so it is rebuilt before the next
// attempt.
func (b *Bridge) prepareContractData(ctx context.Context) {
	for {
		item, err := b.handicapQueue.Get(ctx)
		if err != nil {
			return
		}
		if err := b.prepareAndEnqueue(item, item.credentials); err != nil {
			b.prepareFailed(ctx, item, err, b.handicapRetryQueue)
		}
	}
}

// prepareContractDataRetry consumes the retry lane, refreshing credentials
// with backoff before rebuilding the payload.
func (b *Bridge) prepareContractDataRetry(ctx context.Context) {
	for {
		item, err := b.handicapRetryQueue.Get(ctx)
		if err != nil {
			return
		}
		creds, err := b.getTenderDataWithRetry(ctx, item.tender.ID)
		if err != nil {
			b.prepareFailed(ctx, item, err, b.handicapRetryQueue)
			continue
		}
		if err := b.prepareAndEnqueue(item, creds); err != nil {
			b.prepareFailed(ctx, item, err, b.handicapRetryQueue)
		}
	}
}

func (b *Bridge) prepareFailed(ctx context.Context, item *contractItem, err error, requeue *queue[*contractItem]) {
	if ctx.Err() != nil {
		return
	}
	ids := map[string]string{
		journal.TenderID:   item.tender.ID,
		journal.ContractID: item.contract.ID,
	}
	logrus.WithFields(journal.Context(journal.Exception, ids)).
		WithError(err).Error("Can't prepare contract data")
	requeue.Put(item)

	logrus.WithFields(journal.Context(journal.Reconnect, ids)).Info(
		"Reconnecting tenders client")
	b.tendersClientInit()
	b.sleep(ctx, b.onErrorDelay)
}

func (b *Bridge) prepareAndEnqueue(item *contractItem, creds *data.Credentials) error {
	if creds == nil || creds.TenderToken == "" {
		logrus.WithFields(journal.Context(journal.MissingCredentials, map[string]string{
			journal.TenderID:   item.tender.ID,
			journal.ContractID: item.contract.ID,
		})).Warnf("Tender %s credentials have no token", item.tender.ID)
		return fmt.Errorf("tender %s credentials have no token", item.tender.ID)
	}

	payload := BuildContractData(&item.tender, &item.contract)
	if payload == nil {
		logrus.Infof("Skip contract %s in status %s", item.contract.ID, item.contract.Status)
		return nil
	}
	payload.Owner = creds.Owner
	payload.TenderToken = creds.TenderToken

	b.contractsPutQueue.Put(&putItem{payload: payload, tenderID: item.tender.ID})
	return nil
}

// putContracts submits prepared payloads. Success updates the cache and
// resolves the basket; failure moves the item to the retry-put queue without
// ever dropping it.
func (b *Bridge) putContracts(ctx context.Context) {
	for {
		item, err := b.contractsPutQueue.Get(ctx)
		if err != nil {
			return
		}

		logrus.Infof("Creating contract %s", item.payload.ID)
		if _, err := b.contractingAPI().CreateContract(ctx, item.payload); err != nil {
			if ctx.Err() != nil {
				return
			}
			ids := map[string]string{
				journal.TenderID:   item.tenderID,
				journal.ContractID: item.payload.ID,
			}
			if errors.Is(err, contracting.ErrArchived) {
				// Archived is terminal: never handed to the retry lane.
				logrus.WithFields(journal.Context(journal.ContractToSync, ids)).Infof(
					"Sync contract %s of tender %s has been archived",
					item.payload.ID, item.tenderID)
				continue
			}
			logrus.WithFields(journal.Context(journal.Exception, ids)).
				WithError(err).Error("Can't create contract")
			b.contractsRetryPutQueue.Put(item)
			continue
		}
		logrus.Infof("Contract %s created", item.payload.ID)

		b.markTransferred(ctx, item)
		runtime.Gosched()
	}
}

// retryPutContracts drains the retry-put queue, submitting each item with
// exponential backoff. Exhausting a backoff window requeues the item, so a
// contract is only ever stalled, never lost; the stall is visible as growing
// retry-queue depth.
func (b *Bridge) retryPutContracts(ctx context.Context) {
	for {
		item, err := b.contractsRetryPutQueue.Get(ctx)
		if err != nil {
			return
		}

		if err := b.putWithRetry(ctx, item); err != nil {
			if ctx.Err() != nil {
				return
			}
			ids := map[string]string{
				journal.TenderID:   item.tenderID,
				journal.ContractID: item.payload.ID,
			}
			if errors.Is(err, contracting.ErrArchived) {
				logrus.WithFields(journal.Context(journal.ContractToSync, ids)).Infof(
					"Sync contract %s of tender %s has been archived",
					item.payload.ID, item.tenderID)
				continue
			}
			logrus.WithFields(journal.Context(journal.Exception, ids)).
				WithError(err).Error("Can't create contract, will retry")
			b.contractsRetryPutQueue.Put(item)
			continue
		}

		b.markTransferred(ctx, item)
		runtime.Gosched()
	}
}

func (b *Bridge) putWithRetry(ctx context.Context, item *putItem) error {
	ebo := backoff.NewExponentialBackOff()
	ebo.InitialInterval = b.retryDelay
	ebo.MaxInterval = b.retryMaxDelay

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		_, err := b.contractingAPI().CreateContract(ctx, item.payload)
		if errors.Is(err, contracting.ErrArchived) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(ebo), backoff.WithMaxElapsedTime(b.retryMaxDelay))
	return err
}

// markTransferred records a successful submission: the contract id is flagged
// in the cache and its basket entry resolves the owning tender.
func (b *Bridge) markTransferred(ctx context.Context, item *putItem) {
	if err := b.cacheDB.Put(ctx, item.payload.ID, "true"); err != nil {
		logrus.WithFields(journal.Context(journal.Exception, map[string]string{
			journal.ContractID: item.payload.ID,
		})).WithError(err).Error("Failed to flag contract in cache")
	}
	_ = b.basket.resolve(ctx, b.cacheDB, item.payload.ID, item.tenderID)
}
