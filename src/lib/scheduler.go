package lib

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

var scheduler gocron.Scheduler

func GetScheduler() (gocron.Scheduler, error) {
	if scheduler != nil {
		return scheduler, nil
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("Error initializing Scheduler: %s\n", err.Error())
		return nil, err
	}
	scheduler = sched
	return sched, nil
}

// CreateCronJob runs handler every duration. A run that is still going when
// the next one is due is skipped.
func CreateCronJob(name string, handler any, duration time.Duration, args ...any) (*string, error) {
	sched, err := GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return nil, err
	}
	j, err := sched.NewJob(
		gocron.DurationJob(duration),
		gocron.NewTask(handler, args...),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Error creating job %s: %s\n", name, err.Error())
		return nil, err
	}
	id := j.ID().String()
	log.Printf("Job %s scheduled every %s: %s\n", name, duration, id)
	return &id, nil
}

func StartScheduler() error {
	sched, err := GetScheduler()
	if err != nil {
		return err
	}
	sched.Start()
	log.Printf("Jobs in queue: %d\n", len(sched.Jobs()))
	return nil
}

func StopScheduler() {
	if scheduler == nil {
		return
	}
	if err := scheduler.Shutdown(); err != nil {
		log.Printf("Error stopping scheduler: %s\n", err.Error())
	}
	scheduler = nil
}
