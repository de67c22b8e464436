// Package delay adds the artificial latency labs use to feel like a real
// request or scan. Delays are cancellable through the context.
package delay

import (
	"context"
	"sync"
	"time"
)

// Run waits d and then returns fn's result. If ctx is done first, fn is
// never called and ctx.Err() is returned.
func Run[T any](ctx context.Context, d time.Duration, fn func() T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if d <= 0 {
		return fn(), nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-timer.C:
		return fn(), nil
	}
}

// Cap is where progress stalls until the wrapped work finishes.
const Cap = 95

// Progress is a fake percentage that climbs toward Cap on a ticker and
// snaps to 100 when Done is called.
type Progress struct {
	mu       sync.Mutex
	percent  int
	step     int
	onUpdate func(int)
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// StartProgress begins advancing by step every tick. onUpdate, if set, is
// called with each new value from the ticker goroutine.
func StartProgress(tick time.Duration, step int, onUpdate func(int)) *Progress {
	if step <= 0 {
		step = 5
	}
	p := &Progress{step: step, onUpdate: onUpdate, stop: make(chan struct{})}
	p.wg.Add(1)
	go p.loop(tick)
	return p
}

func (p *Progress) loop(tick time.Duration) {
	defer p.wg.Done()
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.percent >= Cap {
				p.mu.Unlock()
				continue
			}
			p.percent = min(p.percent+p.step, Cap)
			v := p.percent
			p.mu.Unlock()
			if p.onUpdate != nil {
				p.onUpdate(v)
			}
		}
	}
}

// Percent returns the current value.
func (p *Progress) Percent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.percent
}

// Done stops the ticker and snaps to 100.
func (p *Progress) Done() {
	p.halt()
	p.mu.Lock()
	p.percent = 100
	p.mu.Unlock()
	if p.onUpdate != nil {
		p.onUpdate(100)
	}
}

// Abort stops the ticker and leaves the value where it was.
func (p *Progress) Abort() {
	p.halt()
}

func (p *Progress) halt() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}
