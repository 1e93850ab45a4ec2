package redis

import (
	"fmt"
	"sync"

	"github.com/redis/rueidis"
	"github.com/robalyx/sentinel/internal/setup/config"
	"go.uber.org/zap"
)

const (
	// RaidDBIndex holds join windows and alert cooldowns.
	RaidDBIndex = 0

	// StatusDBIndex holds worker heartbeats.
	StatusDBIndex = 1
)

// purposes names each database in logs and in CLIENT LIST.
var purposes = map[int]string{
	RaidDBIndex:   "raid",
	StatusDBIndex: "status",
}

// purpose returns the name of a database index.
func purpose(dbIndex int) string {
	if name, ok := purposes[dbIndex]; ok {
		return name
	}
	return fmt.Sprintf("db%d", dbIndex)
}

// Manager maps database indices to lazily created Redis clients.
type Manager struct {
	clients map[int]rueidis.Client
	config  *config.Redis
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewManager creates a manager. No connection is opened until GetClient is called.
func NewManager(config *config.Redis, logger *zap.Logger) *Manager {
	return &Manager{
		clients: make(map[int]rueidis.Client),
		config:  config,
		logger:  logger.Named("redis"),
	}
}

// GetClient returns the client for dbIndex, creating it on first use.
func (m *Manager) GetClient(dbIndex int) (rueidis.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, exists := m.clients[dbIndex]; exists {
		return client, nil
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)},
		Username:     m.config.Username,
		Password:     m.config.Password,
		SelectDB:     dbIndex,
		ClientName:   "sentinel-" + purpose(dbIndex),
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s Redis client (DB %d): %w", purpose(dbIndex), dbIndex, err)
	}

	m.clients[dbIndex] = client
	m.logger.Info("Created Redis client",
		zap.String("purpose", purpose(dbIndex)),
		zap.Int("dbIndex", dbIndex))

	return client, nil
}

// Close shuts down every client created so far.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for dbIndex, client := range m.clients {
		client.Close()
		delete(m.clients, dbIndex)
		m.logger.Info("Closed Redis client", zap.String("purpose", purpose(dbIndex)))
	}
}
