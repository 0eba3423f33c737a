package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contracting-bridge/internal/journal"
)

func TestNewLogsCacheIdentity(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	newTestBridge(t, "http://tenders.invalid", "http://contracting.invalid")

	assert.Equal(t, 1, countLogs(hook,
		"Caching backend: 'memory', db name: 'local', host: '', port: '0'"))
	assert.Equal(t, 1, countLogs(hook, "Initialization contracting clients."))
}

func TestSuperviseRespawnsDeadWorkerKind(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	b := newTestBridge(t, "http://tenders.invalid", "http://contracting.invalid")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b.startContractSculptors(ctx)
	t.Cleanup(b.shutdown)

	old := b.immortalJobs[workerPutContracts]
	old.kill(b.graceTimeout)
	require.True(t, old.dead())

	b.superviseOnce(ctx)

	fresh := b.immortalJobs[workerPutContracts]
	assert.NotSame(t, old, fresh)
	assert.False(t, fresh.dead())
	assert.Equal(t, 1, countLogs(hook, "Restarting put_contracts worker"))

	// A second pass with everything alive restarts nothing.
	hook.Reset()
	b.superviseOnce(ctx)
	assert.Equal(t, 0, countLogsByID(hook, journal.WorkerDied))
}

func TestSuperviseRestartsPollersAsPair(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	b := newTestBridge(t, "http://tenders.invalid", "http://contracting.invalid")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b.startSynchronizationWorkers(ctx)
	t.Cleanup(b.shutdown)

	// Kill one poller; the supervisor must restart both with fresh clients.
	oldForward := b.jobs[1]
	oldBackward := b.jobs[0]
	oldForward.kill(b.graceTimeout)

	hook.Reset()
	b.superviseOnce(ctx)

	assert.Equal(t, 1, countLogs(hook, "Restarting synchronization"))
	assert.Equal(t, 1, countLogs(hook, "Initialization contracting clients."))
	require.Len(t, b.jobs, 2)
	assert.NotSame(t, oldForward, b.jobs[1])
	assert.NotSame(t, oldBackward, b.jobs[0])
	assert.True(t, oldBackward.dead())
}

func TestRunReturnsErrOnPreCancelledContext(t *testing.T) {
	b := newTestBridge(t, "http://tenders.invalid", "http://contracting.invalid")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, b.Run(ctx), context.Canceled)
}

func TestRunShutsDownCleanlyOnCancel(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	b := newTestBridge(t, "http://tenders.invalid", "http://contracting.invalid")
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- b.Run(ctx) }()

	require.Eventually(t, func() bool {
		return countLogs(hook, "Start Contracting Data Bridge") == 1
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Equal(t, 1, countLogs(hook, "Exiting..."))
}

func TestLogQueueSizes(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	b := newTestBridge(t, "http://tenders.invalid", "http://contracting.invalid")
	b.contractsPutQueue.Put(&putItem{})
	b.contractsPutQueue.Put(&putItem{})
	b.contractsRetryPutQueue.Put(&putItem{})

	b.logQueueSizes()

	require.Equal(t, 1, countLogs(hook,
		"Current state: Tenders to process 0; Unhandled contracts 0; Contracts to create 2; Retrying to create 1"))
	entry := hook.LastEntry()
	assert.Equal(t, 0, entry.Data["tenders_queue_size"])
	assert.Equal(t, 0, entry.Data["handicap_contracts_queue_size"])
	assert.Equal(t, 2, entry.Data["contracts_queue_size"])
	assert.Equal(t, 1, entry.Data["contracts_retry_queue"])
}

func TestSizesCountsEveryStage(t *testing.T) {
	b := newTestBridge(t, "http://tenders.invalid", "http://contracting.invalid")
	b.handicapQueue.Put(&contractItem{})
	b.handicapRetryQueue.Put(&contractItem{})
	b.handicapRetryQueue.Put(&contractItem{})
	b.basket.add("c", "2017-01-01")

	s := b.Sizes()
	assert.Equal(t, 0, s.Tenders)
	assert.Equal(t, 1, s.Handicap)
	assert.Equal(t, 2, s.HandicapRetry)
	assert.Equal(t, 0, s.ContractsPut)
	assert.Equal(t, 0, s.ContractsRetryPut)
	assert.Equal(t, 1, s.Basket)
}
