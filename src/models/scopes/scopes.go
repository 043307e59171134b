package scopes

import (
	"ticketbroker/src/types"

	"gorm.io/gorm"
)

func WithID(id uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id)
	}
}

func WithReference(ref string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("reference = ?", ref)
	}
}

func ForShow(showID uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("show_id = ?", showID)
	}
}

func WithStatus(status types.BookingStatus) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ?", status)
	}
}

func WithConfirmedStatus(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", types.BOOKING_CONFIRMED)
}

func Chronological(db *gorm.DB) *gorm.DB {
	return db.Order("date asc").Order("start_time asc").Order("id asc")
}

func NewestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at desc").Order("id desc")
}

func Paginate(page int, size int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page < 1 {
			page = 1
		}
		if size < 1 {
			size = 50
		}
		return db.Offset((page - 1) * size).Limit(size)
	}
}
