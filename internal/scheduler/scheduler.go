package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/Norte-Itaipu/ion-data-service/internal/ion"
)

// Scheduler periodically refreshes the latest-overlap cache entry for each
// configured station, so the dashboard's default view is served warm.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *ion.Service
	stations  []string
	interval  time.Duration
}

// New creates a new Scheduler.
func New(stations []string, interval time.Duration, service *ion.Service) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		stations:  stations,
		interval:  interval,
	}
}

// Start schedules the periodic warm job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.stations) == 0 {
		log.Println("scheduler: no stations configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 30
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		runID := uuid.NewString()[:8]
		log.Printf("scheduler[%s]: warming latest-overlap cache", runID)

		var wg sync.WaitGroup
		for _, station := range s.stations {
			station := station
			wg.Add(1)
			go func() {
				defer wg.Done()

				// The overlap scan can walk many days back on stations with
				// stale data; give it room.
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				defer cancel()

				res, err := s.service.FetchLatest(ctx, ion.LatestQuery{Station: station})
				if err != nil {
					log.Printf("scheduler[%s]: warm failed for %s: %v", runID, station, err)
					return
				}
				log.Printf("scheduler[%s]: %s latest day %s (%d series)", runID, station, res.Date, len(res.Series))
			}()
		}
		wg.Wait()
		log.Printf("scheduler[%s]: warm job completed", runID)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
