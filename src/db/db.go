package db

import (
	"io"
	"log"
	"os"
	"ticketbroker/src/config"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

func GetDb() *gorm.DB {
	if db != nil {
		return db
	}
	_db, err := Open(config.GetDriver(), config.GetDSN())
	if err != nil {
		log.Printf("Error connecting to database: %s\n", err.Error())
		panic(err)
	}
	sqlDB, err := _db.DB()
	if err != nil {
		log.Fatalf("Error establishing connection to database: %s\n", err.Error())
	}
	if config.GetDriver() == "sqlite" {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}

	db = _db
	return _db
}

// newLogger reports slow queries and errors. Lookups that miss are expected
// and are not logged.
func newLogger(w io.Writer) logger.Interface {
	return logger.New(log.New(w, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  true,
	})
}

func Open(driver string, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: newLogger(os.Stdout)}
	switch driver {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), cfg)
	case "mysql":
		return gorm.Open(mysql.Open(dsn), cfg)
	default:
		return gorm.Open(sqlite.Open(dsn), cfg)
	}
}

func NewDB(newdb *gorm.DB) {
	db = newdb
}
