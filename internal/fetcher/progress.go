package fetcher

import (
	"io"
	"time"
)

// ProgressFunc receives the running byte count and the advertised total,
// or -1 when the server sent no Content-Length.
type ProgressFunc func(downloaded, total int64)

// TransferState accumulates what one attempt has streamed so far.
type TransferState struct {
	Transferred int64
	Total       int64
}

// progressTracker batches byte counts from the copy loop and forwards them
// to a ProgressFunc on a ticker, with one final update on stop.
type progressTracker struct {
	ch   chan int64
	done chan struct{}
}

func startProgress(fn ProgressFunc, total int64) *progressTracker {
	if fn == nil {
		return nil
	}
	p := &progressTracker{
		ch:   make(chan int64, 100),
		done: make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		var totalDownloaded, lastReported int64
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case n, ok := <-p.ch:
				if !ok {
					fn(totalDownloaded, total)
					return
				}
				totalDownloaded += n
			case <-ticker.C:
				if totalDownloaded > lastReported {
					fn(totalDownloaded, total)
					lastReported = totalDownloaded
				}
			}
		}
	}()
	return p
}

func (p *progressTracker) add(n int64) {
	if p != nil && n > 0 {
		p.ch <- n
	}
}

func (p *progressTracker) stop() {
	if p == nil {
		return
	}
	close(p.ch)
	<-p.done
}

// countingReader feeds every read into the transfer state and the tracker.
type countingReader struct {
	r        io.Reader
	state    *TransferState
	progress *progressTracker
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.state.Transferred += int64(n)
		c.progress.add(int64(n))
	}
	return n, err
}
