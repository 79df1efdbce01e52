package msgsync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/models"
)

// blockingFetch is a FetchFunc that parks until released, recording calls.
type blockingFetch struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
	result  []models.Message
	err     error
}

func newBlockingFetch(result []models.Message) *blockingFetch {
	return &blockingFetch{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
		result:  result,
	}
}

func (f *blockingFetch) fetch(ctx context.Context, conversationID int64) ([]models.Message, error) {
	f.calls.Add(1)
	f.entered <- struct{}{}
	<-f.release
	return f.result, f.err
}

func TestPollerSingleFlight(t *testing.T) {
	store := NewStore()
	fetch := newBlockingFetch([]models.Message{msg(1, "10:00", "a")})
	p := NewPoller(PollerConfig{
		ConversationID: 1,
		Interval:       time.Hour,
		Fetch:          fetch.fetch,
		Store:          store,
	})

	done := make(chan bool)
	go func() { done <- p.tick(context.Background()) }()
	<-fetch.entered

	// a tick landing while the first fetch is in flight is skipped
	assert.False(t, p.tick(context.Background()))
	assert.Equal(t, int32(1), fetch.calls.Load())

	close(fetch.release)
	assert.True(t, <-done)
	assert.Equal(t, []int64{1}, ids(store.Messages()))
}

func TestPollerFetchesImmediatelyOnRun(t *testing.T) {
	store := NewStore()
	fetch := newBlockingFetch([]models.Message{msg(1, "10:00", "a")})
	close(fetch.release)
	p := NewPoller(PollerConfig{
		ConversationID: 1,
		Interval:       time.Hour,
		Fetch:          fetch.fetch,
		Store:          store,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	select {
	case <-fetch.entered:
	case <-time.After(time.Second):
		t.Fatal("expected an immediate fetch, not an initial interval wait")
	}
}

func TestPollerWakeForcesFetch(t *testing.T) {
	store := NewStore()
	fetch := newBlockingFetch(nil)
	close(fetch.release)
	p := NewPoller(PollerConfig{
		ConversationID: 1,
		Interval:       time.Hour,
		Fetch:          fetch.fetch,
		Store:          store,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)
	<-fetch.entered // the immediate first fetch

	p.Wake()
	select {
	case <-fetch.entered:
	case <-time.After(time.Second):
		t.Fatal("Wake should trigger an out-of-cadence fetch")
	}
	assert.Equal(t, int32(2), fetch.calls.Load())
}

func TestPollerStopDiscardsInFlightResult(t *testing.T) {
	store := NewStore()
	fetch := newBlockingFetch([]models.Message{msg(1, "10:00", "late")})
	p := NewPoller(PollerConfig{
		ConversationID: 1,
		Interval:       time.Hour,
		Fetch:          fetch.fetch,
		Store:          store,
	})

	done := make(chan bool)
	go func() { done <- p.tick(context.Background()) }()
	<-fetch.entered

	p.Stop()
	close(fetch.release)
	<-done

	assert.Empty(t, store.Messages(), "a fetch completing after Stop must not touch the store")
}

func TestPollerErrorLeavesStoreUntouched(t *testing.T) {
	store := NewStore()
	store.Merge(1, []models.Message{msg(1, "10:00", "a")})

	var polled error
	fetch := newBlockingFetch(nil)
	fetch.err = errors.New("network down")
	close(fetch.release)
	p := NewPoller(PollerConfig{
		ConversationID: 1,
		Interval:       time.Hour,
		Fetch:          fetch.fetch,
		Store:          store,
		OnError:        func(err error) { polled = err },
	})

	require.True(t, p.tick(context.Background()))
	assert.EqualError(t, polled, "network down")
	assert.Equal(t, []int64{1}, ids(store.Messages()))
}

func TestPollerTickAfterStopIsNoop(t *testing.T) {
	fetch := newBlockingFetch(nil)
	close(fetch.release)
	p := NewPoller(PollerConfig{
		ConversationID: 1,
		Interval:       time.Hour,
		Fetch:          fetch.fetch,
		Store:          NewStore(),
	})

	p.Stop()
	assert.False(t, p.tick(context.Background()))
	assert.Equal(t, int32(0), fetch.calls.Load())
}
