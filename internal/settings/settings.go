// Package settings publishes the moderation configuration with admin overrides applied.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/pkg/utils"
	"go.uber.org/zap"
)

var (
	// ErrUnknownSetting is returned for keys that cannot be overridden.
	ErrUnknownSetting = errors.New("unknown setting")
	// ErrInvalidValue is returned when a value does not parse or fails validation.
	ErrInvalidValue = errors.New("invalid setting value")
)

// Source provides the moderation configuration in effect right now.
// The returned value is an immutable snapshot and must not be modified.
type Source interface {
	Current() *config.Moderation
}

// Store persists overrides.
type Store interface {
	ListSettings(ctx context.Context) ([]*types.Setting, error)
	SaveSetting(ctx context.Context, setting *types.Setting) error
}

// Entry is one overridable key with its effective value.
type Entry struct {
	Key   string
	Value string
}

// fields maps override keys to the moderation field they control.
var fields = map[string]func(*config.Moderation) any{
	"detector.allow_links":             func(m *config.Moderation) any { return &m.Detector.AllowLinks },
	"detector.block_all_invites":       func(m *config.Moderation) any { return &m.Detector.BlockAllInvites },
	"detector.max_mentions":            func(m *config.Moderation) any { return &m.Detector.MaxMentions },
	"detector.rapid_threshold":         func(m *config.Moderation) any { return &m.Detector.RapidThreshold },
	"detector.duplicate_threshold":     func(m *config.Moderation) any { return &m.Detector.DuplicateThreshold },
	"detector.cross_channel_threshold": func(m *config.Moderation) any { return &m.Detector.CrossChannelThreshold },
	"detector.link_whitelist":          func(m *config.Moderation) any { return &m.Detector.LinkWhitelist },
	"images.report_threshold":          func(m *config.Moderation) any { return &m.Images.ReportThreshold },
	"images.max_size_mb":               func(m *config.Moderation) any { return &m.Images.MaxSizeMB },
	"punishment.ban_threshold":         func(m *config.Moderation) any { return &m.Punishment.BanThreshold },
	"trust.bypass_score":               func(m *config.Moderation) any { return &m.Detector.TrustBypassScore },
}

// Keys returns every overridable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// Manager applies persisted overrides over the loaded configuration and publishes snapshots.
type Manager struct {
	store   Store
	base    *config.Moderation
	current atomic.Pointer[config.Moderation]
	mu      sync.Mutex
	logger  *zap.Logger
}

// NewManager creates a Manager publishing base until Load is called.
func NewManager(base *config.Moderation, store Store, logger *zap.Logger) *Manager {
	m := &Manager{
		store:  store,
		base:   base.Clone(),
		logger: logger.Named("settings"),
	}
	m.current.Store(m.base.Clone())

	return m
}

// Current returns the snapshot in effect.
func (m *Manager) Current() *config.Moderation {
	return m.current.Load()
}

// Load applies every persisted override. Overrides that no longer parse or validate are skipped.
func (m *Manager) Load(ctx context.Context) error {
	stored, err := m.store.ListSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.base.Clone()
	for _, setting := range stored {
		field, ok := fields[setting.Key]
		if !ok {
			m.logger.Warn("Ignoring unknown stored setting", zap.String("key", setting.Key))
			continue
		}

		candidate := next.Clone()
		if err := sonic.UnmarshalString(setting.Value, field(candidate)); err != nil {
			m.logger.Warn("Ignoring undecodable stored setting",
				zap.String("key", setting.Key),
				zap.Error(err))
			continue
		}

		if err := candidate.Validate(); err != nil {
			m.logger.Warn("Ignoring invalid stored setting",
				zap.String("key", setting.Key),
				zap.Error(err))
			continue
		}

		next = candidate
	}

	m.current.Store(next)
	m.logger.Info("Loaded setting overrides", zap.Int("count", len(stored)))

	return nil
}

// Set validates, persists and publishes an override.
func (m *Manager) Set(ctx context.Context, key, raw, actor string) error {
	field, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.current.Load().Clone()
	target := field(next)

	if err := parse(raw, target); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidValue, key, err)
	}

	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidValue, key, err)
	}

	encoded, err := sonic.MarshalString(target)
	if err != nil {
		return fmt.Errorf("failed to encode setting: %w", err)
	}

	err = m.store.SaveSetting(ctx, &types.Setting{
		Key:       key,
		Value:     encoded,
		UpdatedBy: actor,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return err
	}

	m.current.Store(next)
	m.logger.Info("Setting updated",
		zap.String("key", key),
		zap.String("value", encoded),
		zap.String("actor", actor))

	return nil
}

// Get returns the effective value of a key.
func (m *Manager) Get(key string) (string, error) {
	field, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}

	return format(field(m.current.Load())), nil
}

// List returns every overridable key with its effective value.
func (m *Manager) List() []Entry {
	snapshot := m.current.Load()

	keys := Keys()
	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, Entry{Key: key, Value: format(fields[key](snapshot))})
	}

	return entries
}

func parse(raw string, target any) error {
	raw = strings.TrimSpace(raw)

	switch p := target.(type) {
	case *bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		*p = v
	case *int:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*p = v
	case *float64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		*p = v
	case *[]string:
		*p = utils.SplitList(raw)
	}

	return nil
}

func format(target any) string {
	switch p := target.(type) {
	case *bool:
		return strconv.FormatBool(*p)
	case *int:
		return strconv.Itoa(*p)
	case *float64:
		return strconv.FormatFloat(*p, 'f', -1, 64)
	case *[]string:
		return strings.Join(*p, ", ")
	}

	return ""
}

// static is a Source that never changes.
type static struct {
	cfg *config.Moderation
}

// Static returns a Source that always publishes cfg.
func Static(cfg *config.Moderation) Source {
	return static{cfg: cfg}
}

func (s static) Current() *config.Moderation {
	return s.cfg
}
