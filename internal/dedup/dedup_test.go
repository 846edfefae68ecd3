package dedup

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdmitFirstSightOnly(t *testing.T) {
	d := New(100, time.Minute)

	assert.True(t, d.Admit("api.example.com"))
	assert.False(t, d.Admit("api.example.com"))
	assert.False(t, d.Admit("api.example.com"))
}

func TestAdmitDistinctNames(t *testing.T) {
	d := New(100, time.Minute)

	assert.True(t, d.Admit("a.example.com"))
	assert.True(t, d.Admit("b.example.com"))
}

func TestAdmitConcurrentBurstExactlyOnce(t *testing.T) {
	d := New(100, time.Minute)

	var wg sync.WaitGroup
	admits := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			admits <- d.Admit("burst.example.com")
		}()
	}
	wg.Wait()
	close(admits)

	trueCount := 0
	for a := range admits {
		if a {
			trueCount++
		}
	}
	assert.Equal(t, 1, trueCount, "exactly one goroutine should win admission")
}

func TestPreloadSuppressesSubsequentAdmit(t *testing.T) {
	d := New(100, time.Minute)
	d.Preload([]string{"seen.example.com"})

	assert.False(t, d.Admit("seen.example.com"))
}

func TestAdmitExpiresAfterWindow(t *testing.T) {
	d := New(100, 5*time.Millisecond)
	assert.True(t, d.Admit("short.example.com"))
	time.Sleep(15 * time.Millisecond)
	assert.True(t, d.Admit("short.example.com"), "entry should have expired out of the window")
}
