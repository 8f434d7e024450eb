// Copyright 2025 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitAndWait(t *testing.T) {
	p := New(1, 4, time.Second)
	defer p.Close()

	h, err := p.Submit(Normal, func() ([]byte, error) {
		return []byte("done"), nil
	})
	require.NoError(t, err)

	data, err := h.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("done"), data)
}

func TestTaskErrorIsPerHandle(t *testing.T) {
	p := New(1, 2, time.Second)
	defer p.Close()

	boom := errors.New("boom")

	bad, err := p.Submit(Normal, func() ([]byte, error) { return nil, boom })
	require.NoError(t, err)
	good, err := p.Submit(Normal, func() ([]byte, error) { return []byte("ok"), nil })
	require.NoError(t, err)

	_, err = bad.Wait(context.Background())
	assert.ErrorIs(t, err, boom)

	// The failure does not poison the pool.
	data, err := good.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), data)
}

func TestPanicIsCaptured(t *testing.T) {
	p := New(1, 2, time.Second)
	defer p.Close()

	h, err := p.Submit(Normal, func() ([]byte, error) { panic("kaboom") })
	require.NoError(t, err)

	_, err = h.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	// Pool still works afterwards.
	h, err = p.Submit(Normal, func() ([]byte, error) { return []byte("fine"), nil })
	require.NoError(t, err)

	data, err := h.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("fine"), data)
}

func TestHighPriorityJumpsQueue(t *testing.T) {
	p := New(1, 1, time.Second)
	defer p.Close()

	var order []string
	var mu sync.Mutex

	record := func(tag string) Task {
		return func() ([]byte, error) {
			mu.Lock()
			order = append(order, tag)
			mu.Unlock()

			return nil, nil
		}
	}

	// Occupy the single worker so subsequent submissions queue up.
	release := make(chan struct{})
	gate, err := p.Submit(Normal, func() ([]byte, error) {
		<-release

		return nil, nil
	})
	require.NoError(t, err)

	var handles []*Handle
	for _, tag := range []string{"n1", "n2"} {
		h, err := p.Submit(Normal, record(tag))
		require.NoError(t, err)
		handles = append(handles, h)
	}

	h, err := p.Submit(High, record("h1"))
	require.NoError(t, err)
	handles = append(handles, h)

	close(release)

	_, err = gate.Wait(context.Background())
	require.NoError(t, err)
	for _, h := range handles {
		_, err := h.Wait(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"h1", "n1", "n2"}, order)
}

func TestWorkerCountNeverExceedsMax(t *testing.T) {
	const maxWorkers = 3

	p := New(1, maxWorkers, time.Second)
	defer p.Close()

	var running, peak atomic.Int32

	var handles []*Handle
	for i := 0; i < 50; i++ {
		h, err := p.Submit(Normal, func() ([]byte, error) {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)

			return nil, nil
		})
		require.NoError(t, err)
		handles = append(handles, h)
	}

	for _, h := range handles {
		_, err := h.Wait(context.Background())
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, peak.Load(), int32(maxWorkers))
}

func TestIdleWorkersScaleDown(t *testing.T) {
	p := New(1, 4, 20*time.Millisecond)
	defer p.Close()

	var handles []*Handle
	for i := 0; i < 16; i++ {
		h, err := p.Submit(Normal, func() ([]byte, error) {
			time.Sleep(5 * time.Millisecond)

			return nil, nil
		})
		require.NoError(t, err)
		handles = append(handles, h)
	}

	for _, h := range handles {
		_, err := h.Wait(context.Background())
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		return p.Workers() <= 1
	}, time.Second, 10*time.Millisecond)
}

func TestSubmitAfterClose(t *testing.T) {
	p := New(1, 2, time.Second)
	p.Close()

	_, err := p.Submit(Normal, func() ([]byte, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestCloseResolvesQueuedTasks(t *testing.T) {
	p := New(1, 1, time.Second)

	release := make(chan struct{})
	gate, err := p.Submit(Normal, func() ([]byte, error) {
		<-release

		return nil, nil
	})
	require.NoError(t, err)

	queued, err := p.Submit(Normal, func() ([]byte, error) { return nil, nil })
	require.NoError(t, err)

	p.Close()
	close(release)

	_, err = gate.Wait(context.Background())
	require.NoError(t, err)

	_, err = queued.Wait(context.Background())
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestWaitHonorsContext(t *testing.T) {
	p := New(1, 1, time.Second)
	defer p.Close()

	release := make(chan struct{})
	defer close(release)

	h, err := p.Submit(Normal, func() ([]byte, error) {
		<-release

		return nil, nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = h.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
