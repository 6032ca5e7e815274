// Package worker bounds how many completion requests run against the
// upstream provider at once.
package worker

import (
	"errors"
	"sync"
	"time"
)

// Job is one unit of completion work. A nil job tells a worker to exit.
type Job func()

// ErrDispatcherBusy is returned when the job queue is full.
var ErrDispatcherBusy = errors.New("dispatcher queue full")

type Config struct {
	MinWorkers  int
	MaxWorkers  int
	QueueSize   int
	IdleTimeout time.Duration
}

type workerMeta struct {
	ch        chan Job
	lastUsed  time.Time
	enqueued  bool // is in the idle queue
	discarded bool // is targeted as delete
}

const (
	defaultWorkerIdle = 30 * time.Second
	defaultQueueSize  = 16
)

// Pool owns a set of worker goroutines fed from a buffered job queue. Idle
// workers above the minimum are retired after IdleTimeout.
type Pool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	idle     []*workerMeta
	metadata map[chan Job]*workerMeta
	min      int
	max      int
	running  int
	expiry   time.Duration

	queue chan Job
}

func NewPool(cfg Config) *Pool {
	if cfg.MinWorkers <= 0 {
		cfg.MinWorkers = 1
	}
	if cfg.MaxWorkers < cfg.MinWorkers {
		cfg.MaxWorkers = cfg.MinWorkers
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultWorkerIdle
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	p := &Pool{
		metadata: make(map[chan Job]*workerMeta),
		min:      cfg.MinWorkers,
		max:      cfg.MaxWorkers,
		expiry:   cfg.IdleTimeout,
		queue:    make(chan Job, cfg.QueueSize),
	}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < p.min; i++ {
		p.spawnWorker()
	}
	go p.run()
	go p.purgeStaleWorkers()
	return p
}

// Submit enqueues a job without blocking. Saturation is surfaced to the
// caller instead of queueing unbounded work.
func (p *Pool) Submit(job Job) error {
	if job == nil {
		return errors.New("nil job")
	}
	select {
	case p.queue <- job:
		return nil
	default:
		return ErrDispatcherBusy
	}
}

func (p *Pool) run() {
	for job := range p.queue {
		ch := p.acquire()
		debugLog("[pool] assign job to worker")
		ch <- job
	}
}

// spawnWorker adds a new worker, great for batch spawn.
func (p *Pool) spawnWorker() {
	p.mu.Lock()
	if p.running >= p.max {
		p.mu.Unlock()
		return
	}
	ch := make(chan Job)
	p.metadata[ch] = &workerMeta{ch: ch}
	p.running++
	p.mu.Unlock()
	go p.workLoop(ch)
}

func (p *Pool) workLoop(ch chan Job) {
	for job := range ch {
		if job == nil {
			p.retire(ch)
			return
		}
		job()
		p.release(ch)
	}
}

// acquire gets an idle worker, or spawns a new one.
func (p *Pool) acquire() chan Job {
	for {
		p.mu.Lock()
		if meta := p.popIdleLocked(); meta != nil {
			p.mu.Unlock()
			return meta.ch
		}
		if p.running < p.max {
			ch := make(chan Job)
			p.metadata[ch] = &workerMeta{ch: ch}
			p.running++
			p.mu.Unlock()
			go p.workLoop(ch)
			continue
		}
		p.cond.Wait()
		p.mu.Unlock()
	}
}

// release adds an idle worker back into the pool.
func (p *Pool) release(ch chan Job) {
	p.mu.Lock()
	meta, ok := p.metadata[ch]
	if !ok || meta.discarded || meta.enqueued {
		p.mu.Unlock()
		return
	}
	meta.enqueued = true
	meta.lastUsed = time.Now()
	p.idle = append(p.idle, meta)
	p.mu.Unlock()
	p.cond.Signal()
}

// retire deletes a worker.
func (p *Pool) retire(ch chan Job) {
	p.mu.Lock()
	if meta, ok := p.metadata[ch]; ok {
		delete(p.metadata, ch)
		meta.discarded = true
		if p.running > 0 {
			p.running--
		}
	}
	p.mu.Unlock()
	p.cond.Broadcast()
}

// popIdleLocked checks if the pool has an idle worker, then returns it.
func (p *Pool) popIdleLocked() *workerMeta {
	for len(p.idle) > 0 {
		meta := p.idle[0]
		p.idle = p.idle[1:]
		if meta.discarded {
			continue
		}
		meta.enqueued = false
		return meta
	}
	return nil
}

// purgeStaleWorkers calls shutdownExpired when the expiry tick comes.
func (p *Pool) purgeStaleWorkers() {
	ticker := time.NewTicker(p.expiry)
	defer ticker.Stop()
	for {
		<-ticker.C
		p.shutdownExpired()
	}
}

// shutdownExpired retires all the expired workers above the minimum.
func (p *Pool) shutdownExpired() {
	var stale []*workerMeta
	now := time.Now()

	p.mu.Lock()
	if len(p.idle) == 0 || p.running <= p.min {
		p.mu.Unlock()
		return
	}
	remaining := p.idle[:0] // keep the original array
	for _, meta := range p.idle {
		if meta.discarded {
			continue
		}
		if now.Sub(meta.lastUsed) >= p.expiry && p.running-len(stale) > p.min {
			meta.discarded = true
			meta.enqueued = false
			stale = append(stale, meta)
			continue
		}
		remaining = append(remaining, meta)
	}
	p.idle = remaining
	p.mu.Unlock()

	for _, meta := range stale {
		meta.ch <- nil
	}
}
