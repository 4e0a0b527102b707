package sim

import (
	"errors"
	"runtime"
	"sync"

	"github.com/pthm-cable/evolve/world"
)

// workChunk is a range of roster slots for one worker.
type workChunk struct {
	start, end int
}

// pool runs the think phase over the step roster with persistent workers.
// Each agent touches only its own genome, rng stream and queue slot, so the
// result does not depend on scheduling.
type pool struct {
	agents     []*world.Agent
	numWorkers int
	threshold  int

	workChan chan workChunk
	doneChan chan error
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newPool(workers, threshold int) *pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &pool{numWorkers: workers, threshold: threshold}
}

func (p *pool) start() {
	if p.running {
		return
	}
	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan error, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stop signals all workers to exit and waits for them.
func (p *pool) stop() {
	if !p.running {
		return
	}
	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.doneChan <- think(p.agents[chunk.start:chunk.end])
		}
	}
}

// run thinks every agent, inline below the threshold.
func (p *pool) run(agents []*world.Agent) error {
	n := len(agents)
	if n == 0 {
		return nil
	}
	if n < p.threshold || p.numWorkers == 1 {
		return think(agents)
	}

	p.start()
	p.agents = agents
	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end}
		dispatched++
	}

	var errs []error
	for i := 0; i < dispatched; i++ {
		if err := <-p.doneChan; err != nil {
			errs = append(errs, err)
		}
	}
	p.agents = nil
	return errors.Join(errs...)
}

// think runs reset, evaluate and execute for each agent. Execute queues the
// agent's move; nothing is applied until the step ends.
func think(agents []*world.Agent) error {
	var errs []error
	for _, a := range agents {
		a.Reset()
		if err := a.Evaluate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := a.Execute(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
