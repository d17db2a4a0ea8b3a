package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFeed(t *testing.T) {
	f := NewFeed[string](false)
	require.NotNil(t, f)
	assert.Equal(t, 0, f.SubscriberCount())
	assert.False(t, f.replayLast)

	f2 := NewFeed[int](true)
	require.NotNil(t, f2)
	assert.True(t, f2.replayLast)
}

func TestFeed_SubscribePublish(t *testing.T) {
	f := NewFeed[string](false)

	ch := make(chan string, 10)
	cancel := f.Subscribe(ch)
	assert.Equal(t, 1, f.SubscriberCount())

	f.Publish("one")
	f.Publish("two")

	received := make([]string, 0, 2)
	for len(received) < 2 {
		select {
		case v := <-ch:
			received = append(received, v)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("Timeout waiting for published values")
		}
	}
	assert.Equal(t, []string{"one", "two"}, received)

	cancel()
	assert.Equal(t, 0, f.SubscriberCount())

	f.Publish("three")
	select {
	case v := <-ch:
		t.Errorf("Unexpected value after cancel: %s", v)
	default:
	}
}

func TestFeed_MultipleSubscribers(t *testing.T) {
	f := NewFeed[int](false)

	ch1 := make(chan int, 10)
	ch2 := make(chan int, 10)
	cancel1 := f.Subscribe(ch1)
	cancel2 := f.Subscribe(ch2)
	assert.Equal(t, 2, f.SubscriberCount())

	f.Publish(42)

	for i, ch := range []chan int{ch1, ch2} {
		select {
		case v := <-ch:
			assert.Equal(t, 42, v)
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for value on subscriber %d", i+1)
		}
	}

	cancel1()
	cancel2()
	assert.Equal(t, 0, f.SubscriberCount())
}

func TestFeed_ReplayLast(t *testing.T) {
	f := NewFeed[string](true)

	// Nothing published yet, new subscribers get nothing.
	early := make(chan string, 10)
	cancelEarly := f.Subscribe(early)
	select {
	case v := <-early:
		t.Errorf("Unexpected value before first publish: %s", v)
	default:
	}

	f.Publish("snapshot")
	select {
	case v := <-early:
		assert.Equal(t, "snapshot", v)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for published value")
	}

	// A late subscriber receives the last value immediately.
	late := make(chan string, 10)
	cancelLate := f.Subscribe(late)
	select {
	case v := <-late:
		assert.Equal(t, "snapshot", v)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for replayed value")
	}

	cancelEarly()
	cancelLate()
}

func TestFeed_NoReplayByDefault(t *testing.T) {
	f := NewFeed[string](false)
	f.Publish("missed")

	ch := make(chan string, 10)
	cancel := f.Subscribe(ch)
	defer cancel()

	select {
	case v := <-ch:
		t.Errorf("Unexpected replayed value: %s", v)
	default:
	}

	f.Publish("seen")
	select {
	case v := <-ch:
		assert.Equal(t, "seen", v)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for new value")
	}
}

func TestFeed_NilChannelPanics(t *testing.T) {
	f := NewFeed[string](false)
	assert.Panics(t, func() {
		f.Subscribe(nil)
	})
}

func TestFeed_FullChannelSkipped(t *testing.T) {
	f := NewFeed[string](false)

	ch := make(chan string, 1)
	cancel := f.Subscribe(ch)
	defer cancel()

	ch <- "blocking"

	f.Publish("dropped1")
	f.Publish("dropped2")
	assert.Equal(t, 1, len(ch))

	<-ch

	f.Publish("delivered")
	select {
	case v := <-ch:
		assert.Equal(t, "delivered", v)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for value after drain")
	}
}

func TestFeed_ConcurrentPublish(t *testing.T) {
	f := NewFeed[int](false)

	chans := make([]chan int, 10)
	cancels := make([]func(), 10)
	for i := range chans {
		ch := make(chan int, 100)
		chans[i] = ch
		cancels[i] = f.Subscribe(ch)
	}
	assert.Equal(t, 10, f.SubscriberCount())

	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		go func(v int) {
			defer wg.Done()
			f.Publish(v)
		}(i)
	}
	wg.Wait()

	for i, ch := range chans {
		received := make([]int, 0, 5)
		for len(received) < 5 {
			select {
			case v := <-ch:
				received = append(received, v)
			case <-time.After(200 * time.Millisecond):
				t.Fatalf("Subscriber %d received %d of 5 values", i, len(received))
			}
		}
	}

	for _, cancel := range cancels {
		cancel()
	}
}
