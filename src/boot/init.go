package boot

import (
	"context"
	"log"
	"ticketbroker/src/common"
	"ticketbroker/src/db"
	"ticketbroker/src/lib"
	"ticketbroker/src/models"
	"ticketbroker/src/types"
	"time"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

type defaultShow struct {
	date, start, end string
	total            int
}

var defaultShows = []defaultShow{
	{"2026-01-29", "17:45", "18:45", 100},
	{"2026-01-29", "19:00", "20:00", 100},
}

// SeedDefaults creates the two concert shows on an empty database.
func SeedDefaults(ctx context.Context, db *gorm.DB, l *common.Lifecycle) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Show{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, s := range defaultShows {
		show, err := l.CreateShow(ctx, s.date, s.start, s.end, s.total, types.System())
		if err != nil {
			log.Printf("Error seeding show %s %s: %s\n", s.date, s.start, err.Error())
			return err
		}
		log.Printf("Seeded show %d: %s\n", show.ID, show.Label())
	}
	return nil
}

func reconcile(l *common.Lifecycle) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	fixed, err := l.ReconcileAvailability(ctx)
	if err != nil {
		log.Printf("Error reconciling availability: %s\n", err.Error())
		return
	}
	if fixed > 0 {
		log.Printf("Reconciled availability on %d shows\n", fixed)
	}
}

// InitScheduler registers the background jobs and starts the scheduler.
func InitScheduler(l *common.Lifecycle, every time.Duration) error {
	if _, err := lib.CreateCronJob("reconcile-availability", reconcile, every, l); err != nil {
		log.Println("An error has occurred. Check logs for info")
		return err
	}
	return lib.StartScheduler()
}

func StopScheduler() {
	lib.StopScheduler()
}
