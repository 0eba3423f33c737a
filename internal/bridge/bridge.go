// Package bridge implements the synchronization engine: the queues connecting
// the feed pollers to the contract preparation and submission stages, the
// retry lanes, the basket bookkeeping and the supervising run loop.
package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"contracting-bridge/internal/cache"
	"contracting-bridge/internal/config"
	"contracting-bridge/internal/contracting"
	"contracting-bridge/internal/data"
	"contracting-bridge/internal/journal"
	"contracting-bridge/internal/tenders"
)

// Worker kind names. The supervisor logs restarts per kind, so they are part
// of the operational log contract.
const (
	workerGetTenderContracts       = "get_tender_contracts"
	workerPrepareContractData      = "prepare_contract_data"
	workerPrepareContractDataRetry = "prepare_contract_data_retry"
	workerPutContracts             = "put_contracts"
	workerRetryPutContracts        = "retry_put_contracts"
)

// Bridge owns the clients, cache, queues and workers of the synchronization
// pipeline. Construct with New, then call Run, which blocks until the context
// is cancelled.
type Bridge struct {
	cfg *config.Config

	cacheDB cache.Store
	basket  *basket

	// Workers rebuild clients while their siblings keep calling them, so
	// the three pointers below are guarded by clientsMu.
	clientsMu         sync.RWMutex
	tendersClient     *tenders.Client // credential extraction
	tendersSyncClient *tenders.Client // feed walking and tender snapshots
	contractingClient *contracting.Client

	tendersQueue           *queue[data.TenderRef]
	handicapQueue          *queue[*contractItem]
	handicapRetryQueue     *queue[*contractItem]
	contractsPutQueue      *queue[*putItem]
	contractsRetryPutQueue *queue[*putItem]

	jobs         []*job          // feed pollers, restarted as a pair
	immortalJobs map[string]*job // pipeline workers, restarted per kind

	retryDelay     time.Duration
	retryMaxDelay  time.Duration
	onErrorDelay   time.Duration
	emptyFeedDelay time.Duration
	superviseDelay time.Duration
	graceTimeout   time.Duration
}

// contractItem carries one sync-eligible contract together with the tender
// context needed to build its payload without re-fetching the tender.
type contractItem struct {
	contract    data.Contract
	tender      data.Tender
	credentials *data.Credentials
}

// putItem is a prepared contract payload awaiting submission.
type putItem struct {
	payload  *data.ContractData
	tenderID string
}

// New constructs a fully-initialised Bridge: cache backend, both API clients
// and empty queues. The cache identity is logged once for operability.
func New(cfg *config.Config) (*Bridge, error) {
	store, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, err
	}

	desc := store.Describe()
	logrus.WithFields(journal.Context(journal.Info, nil)).Infof(
		"Caching backend: '%s', db name: '%s', host: '%s', port: '%d'",
		desc.Backend, desc.DBName, desc.Host, desc.Port)

	b := &Bridge{
		cfg:     cfg,
		cacheDB: store,
		basket:  newBasket(),

		tendersQueue:           newQueue[data.TenderRef](),
		handicapQueue:          newQueue[*contractItem](),
		handicapRetryQueue:     newQueue[*contractItem](),
		contractsPutQueue:      newQueue[*putItem](),
		contractsRetryPutQueue: newQueue[*putItem](),

		immortalJobs: make(map[string]*job),

		retryDelay:     time.Duration(cfg.Retry.DelayMS) * time.Millisecond,
		retryMaxDelay:  time.Duration(cfg.Retry.MaxDelayMS) * time.Millisecond,
		onErrorDelay:   time.Duration(cfg.Delays.OnErrorMS) * time.Millisecond,
		emptyFeedDelay: time.Duration(cfg.Delays.EmptyFeedMS) * time.Millisecond,
		superviseDelay: time.Duration(cfg.Delays.SuperviseMS) * time.Millisecond,
		graceTimeout:   time.Duration(cfg.Delays.GraceTimeoutMS) * time.Millisecond,
	}
	b.clientsInitialize()

	return b, nil
}

// clientsInitialize (re)builds the API clients. The pollers share the sync
// client, so the supervisor calls this again whenever it restarts them.
func (b *Bridge) clientsInitialize() {
	b.clientsMu.Lock()
	b.tendersClient = tenders.NewClient(b.cfg.TendersAPI)
	b.tendersSyncClient = tenders.NewClient(b.cfg.TendersAPI)
	b.contractingClient = contracting.NewClient(b.cfg.ContractingAPI)
	b.clientsMu.Unlock()
	logrus.WithFields(journal.Context(journal.Info, nil)).Info(
		"Initialization contracting clients.")
}

// tendersClientInit rebuilds only the credential-extraction client after a
// preparation worker observed repeated failures against it.
func (b *Bridge) tendersClientInit() {
	b.clientsMu.Lock()
	b.tendersClient = tenders.NewClient(b.cfg.TendersAPI)
	b.clientsMu.Unlock()
}

func (b *Bridge) tendersAPI() *tenders.Client {
	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()
	return b.tendersClient
}

func (b *Bridge) tendersSyncAPI() *tenders.Client {
	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()
	return b.tendersSyncClient
}

func (b *Bridge) contractingAPI() *contracting.Client {
	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()
	return b.contractingClient
}

// Run starts every worker and supervises them until the context is cancelled.
// A cancellation observed before any worker was spawned propagates, since
// there is nothing to shut down yet.
func (b *Bridge) Run(ctx context.Context) error {
	logrus.WithFields(journal.Context(journal.Start, nil)).Info(
		"Start Contracting Data Bridge")

	if err := ctx.Err(); err != nil {
		return err
	}

	b.startContractSculptors(ctx)
	b.startSynchronizationWorkers(ctx)

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Exiting...")
			b.shutdown()
			return nil
		default:
		}

		b.superviseOnce(ctx)

		select {
		case <-ctx.Done():
		case <-time.After(b.superviseDelay):
		}
	}
}

// superviseOnce runs one iteration of the supervise loop: snapshot the queue
// depths, then restart whatever died since the last iteration.
func (b *Bridge) superviseOnce(ctx context.Context) {
	b.logQueueSizes()

	for _, j := range b.jobs {
		if j.dead() {
			logrus.WithFields(journal.Context(journal.Restart, nil)).
				Warn("Restarting synchronization")
			b.restartSynchronizationWorkers(ctx)
			break
		}
	}

	for name, j := range b.immortalJobs {
		if j.dead() {
			logrus.WithFields(journal.Context(journal.WorkerDied, nil)).
				Warnf("Restarting %s worker", name)
			b.immortalJobs[name] = b.spawn(ctx, name, b.workerFunc(name))
		}
	}
}

// startContractSculptors spawns the five pipeline worker kinds. Each kind
// restarts independently since they share no mutable client state with each
// other.
func (b *Bridge) startContractSculptors(ctx context.Context) {
	for _, name := range []string{
		workerGetTenderContracts,
		workerPrepareContractData,
		workerPrepareContractDataRetry,
		workerPutContracts,
		workerRetryPutContracts,
	} {
		b.immortalJobs[name] = b.spawn(ctx, name, b.workerFunc(name))
	}
}

// startSynchronizationWorkers spawns the backward and forward feed pollers.
func (b *Bridge) startSynchronizationWorkers(ctx context.Context) {
	logrus.Info("Starting forward and backward sync workers")
	b.jobs = []*job{
		b.spawn(ctx, "get_tender_contracts_backward", b.getTenderContractsBackward),
		b.spawn(ctx, "get_tender_contracts_forward", b.getTenderContractsForward),
	}
}

// restartSynchronizationWorkers kills both pollers and recreates them with
// fresh clients. The pollers share synchronization-client state, so a partial
// restart would leave one of them on a stale client.
func (b *Bridge) restartSynchronizationWorkers(ctx context.Context) {
	for _, j := range b.jobs {
		j.kill(b.graceTimeout)
	}
	b.clientsInitialize()
	b.startSynchronizationWorkers(ctx)
}

func (b *Bridge) workerFunc(name string) func(context.Context) {
	switch name {
	case workerGetTenderContracts:
		return b.getTenderContracts
	case workerPrepareContractData:
		return b.prepareContractData
	case workerPrepareContractDataRetry:
		return b.prepareContractDataRetry
	case workerPutContracts:
		return b.putContracts
	case workerRetryPutContracts:
		return b.retryPutContracts
	default:
		panic("unknown worker kind: " + name)
	}
}

func (b *Bridge) shutdown() {
	all := make([]*job, 0, len(b.jobs)+len(b.immortalJobs))
	all = append(all, b.jobs...)
	for _, j := range b.immortalJobs {
		all = append(all, j)
	}
	killAll(all, b.graceTimeout)
}

// QueueSizes is a point-in-time snapshot of every pipeline stage's depth.
type QueueSizes struct {
	Tenders           int `json:"tenders_queue_size"`
	Handicap          int `json:"handicap_contracts_queue_size"`
	HandicapRetry     int `json:"handicap_contracts_retry_queue_size"`
	ContractsPut      int `json:"contracts_queue_size"`
	ContractsRetryPut int `json:"contracts_retry_queue"`
	Basket            int `json:"basket_size"`
}

// Sizes reports the current queue depths. Used by the supervise loop and the
// status API.
func (b *Bridge) Sizes() QueueSizes {
	return QueueSizes{
		Tenders:           b.tendersQueue.Len(),
		Handicap:          b.handicapQueue.Len(),
		HandicapRetry:     b.handicapRetryQueue.Len(),
		ContractsPut:      b.contractsPutQueue.Len(),
		ContractsRetryPut: b.contractsRetryPutQueue.Len(),
		Basket:            b.basket.len(),
	}
}

func (b *Bridge) logQueueSizes() {
	s := b.Sizes()
	logrus.WithFields(logrus.Fields{
		"tenders_queue_size":            s.Tenders,
		"handicap_contracts_queue_size": s.Handicap,
		"contracts_queue_size":          s.ContractsPut,
		"contracts_retry_queue":         s.ContractsRetryPut,
	}).Infof("Current state: Tenders to process %d; Unhandled contracts %d; "+
		"Contracts to create %d; Retrying to create %d",
		s.Tenders, s.Handicap, s.ContractsPut, s.ContractsRetryPut)
}

// sleep waits for the duration unless the context ends first.
func (b *Bridge) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
