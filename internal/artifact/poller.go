package artifact

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Poller states. Stopped is terminal.
type State int32

const (
	Idle State = iota
	Polling
	Stopped
)

type subscription struct {
	id int64
	fn func(json.RawMessage)
}

// Poller owns the recurring fetch cycle for one artifact location and fans
// out changed artifacts to subscribers in subscription order. A new cycle
// is only scheduled after the previous one, including its retries, has
// fully completed.
type Poller struct {
	fetcher  *Fetcher
	cache    *EntryCache
	location string
	interval time.Duration // <= 0 means fetch once, no recurring polling
	log      zerolog.Logger

	mu        sync.Mutex
	state     State
	nextSubID int64
	subs      []subscription
	cancel    context.CancelFunc
}

func NewPoller(fetcher *Fetcher, location string, interval time.Duration, log zerolog.Logger) *Poller {
	return &Poller{
		fetcher:  fetcher,
		cache:    NewEntryCache(),
		location: location,
		interval: interval,
		log:      log,
	}
}

// Subscribe registers fn to be invoked with each changed artifact payload.
// Not-modified refreshes never notify. Returns an opaque handle for
// Unsubscribe.
func (p *Poller) Subscribe(fn func(json.RawMessage)) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextSubID++
	p.subs = append(p.subs, subscription{id: p.nextSubID, fn: fn})
	return p.nextSubID
}

func (p *Poller) Unsubscribe(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.subs {
		if s.id == id {
			p.subs = append(p.subs[:i], p.subs[i+1:]...)
			return
		}
	}
}

// Start performs the first fetch cycle and, when a positive interval is
// configured, keeps refetching on that interval until Stop. The returned
// channel is closed once the first cycle (including retries) completes,
// whether or not it succeeded.
func (p *Poller) Start(ctx context.Context) <-chan struct{} {
	firstDone := make(chan struct{})

	p.mu.Lock()
	if p.state != Idle {
		p.mu.Unlock()
		close(firstDone)
		return firstDone
	}
	p.state = Polling
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	go func() {
		p.runCycle(ctx)
		close(firstDone)

		if p.interval <= 0 {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.interval):
				p.runCycle(ctx)
			}
		}
	}()

	return firstDone
}

// Stop cancels the timer and transitions to Stopped. Idempotent. A fetch
// already in flight may complete but its result is discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Stopped {
		return
	}
	p.state = Stopped
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Poller) stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == Stopped
}

func (p *Poller) runCycle(ctx context.Context) {
	cached, haveCached := p.cache.Get(p.location)
	res, err := p.fetcher.Fetch(ctx, p.location, cached, haveCached)
	if err != nil {
		// Stale-but-available: the previous entry, if any, stays usable.
		p.log.Debug().Err(err).Str("location", p.location).Msg("poll cycle failed")
		return
	}
	if p.stopped() {
		return
	}
	if res.NotModified {
		p.log.Debug().Str("location", p.location).Msg("artifact unchanged")
		return
	}

	p.cache.Put(Entry{Location: p.location, Validator: res.Validator, Body: res.Body})

	p.mu.Lock()
	if p.state == Stopped {
		p.mu.Unlock()
		return
	}
	subs := make([]subscription, len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()

	for _, s := range subs {
		s.fn(res.Body)
	}
}
