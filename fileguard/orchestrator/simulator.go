package orchestrator

import (
	"sync"
	"time"

	"github.com/FileGuard/go-engine/fileguard/scan"
)

// simulator drives the synthetic progress/ETA feedback for the one active
// item while the real provider call is in flight. Progress approaches but
// never reaches 90 on its own, so the simulator can never claim completion
// before the real result arrives; the orchestrator applies the terminal
// values itself after Stop.
type simulator struct {
	queue  *scan.Queue
	itemID string
	period time.Duration
	onTick func()

	progress float64
	eta      float64

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// etaFloorSeconds keeps the displayed ETA from reaching zero while a scan is
// still active.
const etaFloorSeconds = 2

// startSimulator begins ticking for the given item and returns a handle whose
// Stop tears the ticker down deterministically.
func startSimulator(queue *scan.Queue, itemID string, initialETA float64, period time.Duration, onTick func()) *simulator {
	s := &simulator{
		queue:  queue,
		itemID: itemID,
		period: period,
		onTick: onTick,
		eta:    initialETA,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *simulator) loop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	etaStep := s.period.Seconds()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.progress += (90 - s.progress) * 0.05
			s.eta -= etaStep
			if s.eta < etaFloorSeconds {
				s.eta = etaFloorSeconds
			}

			progress := s.progress
			eta := s.eta
			s.queue.UpdateItem(s.itemID, scan.ItemPatch{
				Progress: &progress,
				ETA:      &eta,
			})
			if s.onTick != nil {
				s.onTick()
			}
		}
	}
}

// Stop cancels the ticker and waits for the loop to exit, so no update races
// with the orchestrator's terminal transition.
func (s *simulator) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.doneCh
}
