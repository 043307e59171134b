package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"ticketbroker/src/config"
	"ticketbroker/src/models"
	"ticketbroker/src/types"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const settingsCacheTTL = 5 * time.Minute

// SettingsStore is the key-value settings table with an optional redis
// read-through cache. Cache failures fall back to the database.
type SettingsStore struct {
	db    *gorm.DB
	cache *redis.Client
	audit AuditSink
}

func NewSettingsStore(db *gorm.DB, cache *redis.Client, audit AuditSink) *SettingsStore {
	if audit == nil {
		audit = NewTrailSink(nil, "")
	}
	return &SettingsStore{db: db, cache: cache, audit: audit}
}

func cacheKey(key string) string {
	return fmt.Sprintf("settings:%s", key)
}

func (s *SettingsStore) Get(ctx context.Context, key string, def string) string {
	if s.cache != nil {
		val, err := s.cache.Get(ctx, cacheKey(key)).Result()
		if err == nil {
			return val
		}
		if !errors.Is(err, redis.Nil) {
			log.Printf("[redis] Error reading setting %s: %s\n", key, err.Error())
		}
	}
	var setting models.Setting
	if err := s.db.WithContext(ctx).Where(&models.Setting{Key: key}).First(&setting).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Error reading setting %s: %s\n", key, err.Error())
		}
		return def
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(key), setting.Value, settingsCacheTTL).Err(); err != nil {
			log.Printf("[redis] Error caching setting %s: %s\n", key, err.Error())
		}
	}
	return setting.Value
}

func (s *SettingsStore) Set(ctx context.Context, key string, value string, actor types.Actor) error {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if err := validateSetting(key, value); err != nil {
		return err
	}
	t := &trail{sink: s.audit, correlationID: uuid.NewString(), now: func() time.Time { return time.Now().UTC() }}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old models.Setting
		oldValue := config.DefaultSettings[key]
		err := tx.Where(&models.Setting{Key: key}).First(&old).Error
		switch {
		case err == nil:
			oldValue = old.Value
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&models.Setting{Key: key, Value: value}).Error; err != nil {
			return err
		}
		if oldValue == value {
			return nil
		}
		return t.log(tx, types.ACTION_SETTINGS_CHANGED, types.ENTITY_SETTING, key, actor,
			nil,
			types.JSONB{"value": oldValue},
			types.JSONB{"value": value},
		)
	})
	if err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, cacheKey(key)).Err(); err != nil {
			log.Printf("[redis] Error invalidating setting %s: %s\n", key, err.Error())
		}
	}
	if len(t.entries) > 0 {
		s.audit.Committed(ctx, t.entries)
	}
	return nil
}

// SetMany applies every change, stopping at the first invalid one.
func (s *SettingsStore) SetMany(ctx context.Context, values map[string]string, actor types.Actor) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := validateSetting(k, values[k]); err != nil {
			return err
		}
	}
	for _, k := range keys {
		if err := s.Set(ctx, k, values[k], actor); err != nil {
			return err
		}
	}
	return nil
}

// All returns the defaults overlaid with every stored value.
func (s *SettingsStore) All(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(config.DefaultSettings))
	for k, v := range config.DefaultSettings {
		out[k] = v
	}
	var stored []models.Setting
	if err := s.db.WithContext(ctx).Find(&stored).Error; err != nil {
		return nil, err
	}
	for _, setting := range stored {
		out[setting.Key] = setting.Value
	}
	return out, nil
}

type Prices struct {
	Adult   int `json:"adult"`
	Student int `json:"student"`
}

// Prices returns the ticket prices new bookings are frozen at.
func (s *SettingsStore) Prices(ctx context.Context) Prices {
	return Prices{
		Adult:   s.intValue(ctx, config.SETTING_ADULT_PRICE),
		Student: s.intValue(ctx, config.SETTING_STUDENT_PRICE),
	}
}

func (s *SettingsStore) intValue(ctx context.Context, key string) int {
	def := config.DefaultSettings[key]
	n, err := strconv.Atoi(strings.TrimSpace(s.Get(ctx, key, def)))
	if err != nil || n < 0 {
		n, _ = strconv.Atoi(def)
	}
	return n
}

// Public returns the subset of settings shown to buyers.
func (s *SettingsStore) Public(ctx context.Context) map[string]string {
	out := make(map[string]string, len(config.PublicSettings))
	for _, k := range config.PublicSettings {
		out[k] = s.Get(ctx, k, config.DefaultSettings[k])
	}
	return out
}

func validateSetting(key string, value string) error {
	if key == "" {
		return NewValidationError(CodeInvalidSetting, "empty key")
	}
	switch key {
	case config.SETTING_ADULT_PRICE, config.SETTING_STUDENT_PRICE:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return NewValidationError(CodeInvalidSetting, fmt.Sprintf("%s must be a non-negative integer", key))
		}
	case config.SETTING_MAX_TICKETS:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 1 {
			return NewValidationError(CodeInvalidSetting, fmt.Sprintf("%s must be a positive integer", key))
		}
	case config.SETTING_CONTACT_EMAIL, config.SETTING_ADMIN_EMAIL:
		if !ValidEmail(value) {
			return NewValidationError(CodeInvalidSetting, fmt.Sprintf("%s must be an email address", key))
		}
	}
	return nil
}
