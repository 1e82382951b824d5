package service

import (
	"sync"
	"time"
)

// sweeper runs fn on a fixed interval until stopped.
type sweeper struct {
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func startSweeper(interval time.Duration, fn func(now time.Time)) *sweeper {
	s := &sweeper{done: make(chan struct{})}
	if interval <= 0 {
		return s
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				fn(now)
			case <-s.done:
				return
			}
		}
	}()
	return s
}

// stop halts the sweep loop and waits for an in-flight sweep to finish.
func (s *sweeper) stop() {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
}
