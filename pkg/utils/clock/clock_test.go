package clock_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/devpilot/pkg/utils/clock"
	"github.com/m-mizutani/gt"
	"go.uber.org/goleak"
)

func TestManualAdvance(t *testing.T) {
	m := clock.NewManual()

	var a, b int
	stopA := m.Every(time.Second, func() bool { a++; return true })
	m.Every(time.Second, func() bool { b++; return b < 2 })

	gt.Equal(t, m.Advance(), 2)
	gt.Equal(t, m.Advance(), 2)
	gt.Equal(t, m.Live(), 1)

	stopA()
	stopA()
	gt.Equal(t, m.Advance(), 0)
	gt.Equal(t, a, 2)
	gt.Equal(t, b, 2)
}

func TestManualRegisterDuringAdvance(t *testing.T) {
	m := clock.NewManual()

	var inner int
	m.Every(time.Second, func() bool {
		m.Every(time.Second, func() bool { inner++; return true })
		return false
	})

	gt.Equal(t, m.Advance(), 1)
	gt.Equal(t, m.Live(), 1)
	gt.Equal(t, m.Advance(), 1)
	gt.Equal(t, inner, 1)
}

func TestTickerStopsWhenTickReturnsFalse(t *testing.T) {
	defer goleak.VerifyNone(t)

	var n atomic.Int32
	done := make(chan struct{})
	clock.NewTicker().Every(time.Millisecond, func() bool {
		if n.Add(1) == 3 {
			close(done)
			return false
		}
		return true
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ticker did not fire")
	}
	// the goroutine exits right after the final tick returns
	time.Sleep(10 * time.Millisecond)
	gt.Equal(t, n.Load(), int32(3))
}

func TestTickerStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	var n atomic.Int32
	stop := clock.NewTicker().Every(time.Millisecond, func() bool {
		n.Add(1)
		return true
	})

	time.Sleep(20 * time.Millisecond)
	stop()
	stop()
	after := n.Load()
	time.Sleep(20 * time.Millisecond)
	gt.Equal(t, n.Load(), after)
}
