package errorlog

import (
	"log/slog"

	"github.com/ferralda/mailsift/internal/types"
)

// Manager handles message error logging operations
type Manager struct {
	cfg    *types.Config
	logger *slog.Logger
	impl   Logger
}

// NewManager creates a new error logging manager
func NewManager(cfg *types.Config, logger *slog.Logger) (*Manager, error) {
	if !cfg.ErrorLogging.Enabled {
		logger.Debug("message error logging is disabled")
		return &Manager{
			cfg:    cfg,
			logger: logger,
			impl:   &noopLogger{},
		}, nil
	}

	impl, err := NewFileLogger(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Manager{
		cfg:    cfg,
		logger: logger,
		impl:   impl,
	}, nil
}

// LogError records a message processing error
func (m *Manager) LogError(err MessageError) error {
	if err.ConfigID == "" {
		err.ConfigID = m.cfg.Meta.ID
	}

	m.logger.Debug("logging message error",
		"error_type", err.ErrorType,
		"message_id", err.MessageID,
		"sender", err.Sender,
		"config_id", err.ConfigID,
	)

	return m.impl.LogError(err)
}

// GetErrors retrieves errors based on filters
func (m *Manager) GetErrors(filters map[string]string) ([]MessageError, error) {
	return m.impl.GetErrors(filters)
}

// CleanupOldErrors removes errors older than the retention period
func (m *Manager) CleanupOldErrors() error {
	return m.impl.CleanupOldErrors()
}

// Close releases any resources used by the logger
func (m *Manager) Close() error {
	return m.impl.Close()
}

// noopLogger is used when error logging is disabled
type noopLogger struct{}

func (n *noopLogger) LogError(err MessageError) error                             { return nil }
func (n *noopLogger) GetErrors(filters map[string]string) ([]MessageError, error) { return nil, nil }
func (n *noopLogger) CleanupOldErrors() error                                     { return nil }
func (n *noopLogger) Close() error                                                { return nil }
