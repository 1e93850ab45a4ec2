// Package status publishes worker heartbeats to Redis.
package status

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	// HeartbeatInterval is how often workers report their status.
	HeartbeatInterval = 10 * time.Second

	// HeartbeatTTL is how long a reported status stays in Redis.
	HeartbeatTTL = 10 * time.Minute

	// StaleThreshold is how long before a worker is considered offline.
	StaleThreshold = time.Minute

	keyPrefix = "worker:"
)

// Status is a worker's current state.
type Status struct {
	WorkerID    string    `json:"workerId"`
	WorkerType  string    `json:"workerType"`
	LastSeen    time.Time `json:"lastSeen"`
	CurrentTask string    `json:"currentTask,omitempty"`
	Progress    int       `json:"progress"`
	IsHealthy   bool      `json:"isHealthy"`
}

// IsOnline reports whether the worker reported within the stale threshold.
func (s Status) IsOnline(now time.Time) bool {
	return now.Sub(s.LastSeen) < StaleThreshold
}

// Reporter periodically writes one worker's status.
type Reporter struct {
	client   rueidis.Client
	status   Status
	stopChan chan struct{}
	stopped  bool
	mu       sync.Mutex
	logger   *zap.Logger
}

// NewReporter creates a reporter with a random worker ID.
func NewReporter(client rueidis.Client, workerType string, logger *zap.Logger) *Reporter {
	return &Reporter{
		client: client,
		status: Status{
			WorkerID:   uuid.NewString(),
			WorkerType: workerType,
			IsHealthy:  true,
		},
		stopChan: make(chan struct{}),
		logger:   logger.Named("status_reporter"),
	}
}

// Start reports immediately and then on every heartbeat until Stop or ctx ends.
func (r *Reporter) Start(ctx context.Context) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	go func() {
		ticker := time.NewTicker(HeartbeatInterval)
		defer ticker.Stop()

		for {
			if err := r.Report(ctx); err != nil {
				r.logger.Error("Failed to report status", zap.Error(err))
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			case <-r.stopChan:
				return
			}
		}
	}()
}

// Stop ends reporting.
func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.stopped {
		close(r.stopChan)
		r.stopped = true
	}
}

// Report writes the current status once.
func (r *Reporter) Report(ctx context.Context) error {
	r.mu.Lock()
	status := r.status
	r.mu.Unlock()

	status.LastSeen = time.Now()

	data, err := sonic.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	key := keyPrefix + status.WorkerType + ":" + status.WorkerID
	err = r.client.Do(ctx, r.client.B().Set().Key(key).Value(string(data)).Ex(HeartbeatTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to store status: %w", err)
	}

	return nil
}

// UpdateStatus sets the current task and progress.
func (r *Reporter) UpdateStatus(task string, progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.CurrentTask = task
	r.status.Progress = progress
}

// SetHealthy sets the health flag.
func (r *Reporter) SetHealthy(healthy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.IsHealthy = healthy
}

// WorkerID returns the worker's ID.
func (r *Reporter) WorkerID() string {
	return r.status.WorkerID
}

// List returns every reported status ordered by type and ID.
// Unreadable entries are logged and skipped.
func List(ctx context.Context, client rueidis.Client, logger *zap.Logger) ([]Status, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		entry, err := client.Do(ctx, client.B().Scan().Cursor(cursor).Match(keyPrefix+"*").Count(100).Build()).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to scan worker keys: %w", err)
		}

		keys = append(keys, entry.Elements...)
		cursor = entry.Cursor
		if cursor == 0 {
			break
		}
	}

	statuses := make([]Status, 0, len(keys))
	for _, key := range keys {
		data, err := client.Do(ctx, client.B().Get().Key(key).Build()).AsBytes()
		if err != nil {
			logger.Warn("Failed to get worker status", zap.String("key", key), zap.Error(err))
			continue
		}

		var status Status
		if err := sonic.Unmarshal(data, &status); err != nil {
			logger.Warn("Failed to unmarshal worker status", zap.String("key", key), zap.Error(err))
			continue
		}

		statuses = append(statuses, status)
	}

	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].WorkerType != statuses[j].WorkerType {
			return statuses[i].WorkerType < statuses[j].WorkerType
		}
		return statuses[i].WorkerID < statuses[j].WorkerID
	})

	return statuses, nil
}
