package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vukgo/pkg/ir"
)

func TestSubmitArmsSignal(t *testing.T) {
	qe := NewQueueExecutor(vk.Device(vk.NullHandle), vk.Queue(vk.NullHandle), 0, vk.Semaphore(vk.NullHandle), Limits{})

	sig := &ir.AcquireRelease{}
	sp, err := qe.Submit(context.Background(), Submission{}, func(vk.Queue, Submission, uint64) vk.Result {
		return vk.Success
	}, []*ir.AcquireRelease{sig})

	require.NoError(t, err)
	assert.Equal(t, ir.Synchronizable, sig.Status)
	assert.Equal(t, sp.Value, sig.Source.Value)
	assert.True(t, sp.Ready(sp.Value))
}

func TestSubmitPropagatesVkException(t *testing.T) {
	qe := NewQueueExecutor(vk.Device(vk.NullHandle), vk.Queue(vk.NullHandle), 0, vk.Semaphore(vk.NullHandle), Limits{})
	_, err := qe.Submit(context.Background(), Submission{}, func(vk.Queue, Submission, uint64) vk.Result {
		return vk.ErrorDeviceLost
	}, nil)
	require.Error(t, err)
}

func TestMaxInFlightBoundsConcurrentSubmits(t *testing.T) {
	qe := NewQueueExecutor(vk.Device(vk.NullHandle), vk.Queue(vk.NullHandle), 0, vk.Semaphore(vk.NullHandle), Limits{MaxInFlight: 1})

	sp1, err := qe.Submit(context.Background(), Submission{}, func(vk.Queue, Submission, uint64) vk.Result {
		return vk.Success
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = qe.Submit(ctx, Submission{}, func(vk.Queue, Submission, uint64) vk.Result {
		return vk.Success
	}, nil)
	require.Error(t, err, "second submit should block on the exhausted in-flight slot and fail on a cancelled context")

	qe.ReleaseCompleted(sp1.Value)
	_, err = qe.Submit(context.Background(), Submission{}, func(vk.Queue, Submission, uint64) vk.Result {
		return vk.Success
	}, nil)
	require.NoError(t, err, "slot freed once ReleaseCompleted observes the first submission finished")
}

func TestWaitSyncPointsCollapsesPerExecutor(t *testing.T) {
	qe := NewQueueExecutor(vk.Device(vk.NullHandle), vk.Queue(vk.NullHandle), 0, vk.Semaphore(vk.NullHandle), Limits{})
	sps := []ir.SyncPoint{
		{Executor: qe, Value: 3},
		{Executor: qe, Value: 7},
	}

	var gotValues []uint64
	err := WaitSyncPoints(sps, func(executors []ir.Executor, values []uint64) vk.Result {
		gotValues = values
		return vk.Success
	})

	require.NoError(t, err)
	require.Len(t, gotValues, 1)
	assert.Equal(t, uint64(7), gotValues[0], "collapses to the max required value per executor")
}
