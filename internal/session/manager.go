package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Krimson/dig-music/internal/classify"
	"github.com/Krimson/dig-music/internal/config"
	"github.com/Krimson/dig-music/internal/hrv"
	"github.com/Krimson/dig-music/internal/nowplaying"
	"github.com/Krimson/dig-music/internal/sensor"
)

var (
	// ErrSessionActive — попытка запустить вторую сессию
	ErrSessionActive = errors.New("session already active")
	// ErrNoActiveSession — попытка остановить несуществующую сессию
	ErrNoActiveSession = errors.New("no active session")
)

// Manager управляет жизненным циклом сессий: одновременно активна не более
// одной. Каждая сессия получает свежие буфер, стратегию и стабилизатор.
type Manager struct {
	cfg      *config.Config
	source   sensor.Source
	provider nowplaying.Provider
	store    EventStore
	sink     Sink
	logger   *zap.Logger

	mu      sync.Mutex
	active  *activeSession
	lastErr error
}

type activeSession struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager создает менеджер сессий
func NewManager(cfg *config.Config, source sensor.Source, provider nowplaying.Provider, store EventStore, sink Sink, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		source:   source,
		provider: provider,
		store:    store,
		sink:     sink,
		logger:   logger,
	}
}

// Start запускает новую сессию и возвращает ее id
func (m *Manager) Start() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return "", ErrSessionActive
	}

	id := uuid.New().String()
	ctrl := m.buildController(id)

	ctx, cancel := context.WithCancel(context.Background())
	samples := make(chan sensor.Sample, m.cfg.SampleChannelBuffer)
	done := make(chan struct{})

	go func() {
		if err := m.source.Run(ctx, samples); err != nil {
			m.logger.Error("sensor source failed",
				zap.String("session_id", id),
				zap.Error(err),
			)
		}
		close(samples)
	}()

	go func() {
		defer close(done)
		err := ctrl.Run(ctx, samples)
		if err != nil {
			m.logger.Error("session terminated",
				zap.String("session_id", id),
				zap.Error(err),
			)
		}
		cancel()

		m.mu.Lock()
		if m.active != nil && m.active.id == id {
			m.active = nil
		}
		m.lastErr = err
		m.mu.Unlock()
	}()

	m.active = &activeSession{id: id, cancel: cancel, done: done}
	m.lastErr = nil
	m.logger.Info("session created", zap.String("session_id", id))
	return id, nil
}

// Stop останавливает активную сессию и дожидается завершения ее цикла
func (m *Manager) Stop() error {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()

	if active == nil {
		return ErrNoActiveSession
	}

	active.cancel()

	select {
	case <-active.done:
	case <-time.After(5 * time.Second):
		m.logger.Warn("session did not stop in time", zap.String("session_id", active.id))
	}

	m.mu.Lock()
	if m.active == active {
		m.active = nil
	}
	m.mu.Unlock()
	return nil
}

// ActiveSessionID возвращает id активной сессии, если она есть
func (m *Manager) ActiveSessionID() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return "", false
	}
	return m.active.id, true
}

// LastError возвращает ошибку, с которой завершилась последняя сессия
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// buildController собирает контроллер с зависимостями под текущий конфиг
func (m *Manager) buildController(id string) *Controller {
	buffer := hrv.NewBuffer(m.cfg.RRWindowBeats, m.cfg.RRMinMS, m.cfg.RRMaxMS, m.cfg.RRMaxJumpMS)
	calc := hrv.NewCalculator(buffer, m.cfg.PNN50MinDiffs, m.cfg.PNN50ThresholdMS)

	var strategy classify.Strategy
	switch m.cfg.ClassifierStrategy {
	case "ratio":
		strategy = classify.NewRatioStrategy(m.cfg.SmoothSize, classify.RatioThresholds{
			ChillPNN50: m.cfg.ChillPNN50Ratio,
			ChillHR:    m.cfg.ChillHRRatio,
			HypeHR:     m.cfg.HypeHRRatio,
			HypePNN50:  m.cfg.HypePNN50Ratio,
		})
	default:
		if m.cfg.ClassifierStrategy != "delta" {
			m.logger.Warn("unknown classifier strategy, falling back to delta",
				zap.String("strategy", m.cfg.ClassifierStrategy),
			)
		}
		if m.cfg.BaselineMode == string(classify.BaselineModeAdaptive) {
			strategy = classify.NewAdaptiveDeltaStrategy(m.cfg.SmoothSize, m.cfg.ChillDelta, m.cfg.HypeDelta, m.cfg.BaselineAlpha)
		} else {
			strategy = classify.NewDeltaStrategy(m.cfg.SmoothSize, m.cfg.ChillDelta, m.cfg.HypeDelta)
		}
	}

	stabilizer := classify.NewStabilizer(m.cfg.StatusSwitchThreshold)

	ctrlCfg := ControllerConfig{
		RestDuration:      m.cfg.RestDuration,
		TrackPollInterval: m.cfg.TrackPollInterval,
		SustainedDuration: m.cfg.SustainedDuration,
		Cooldown:          m.cfg.Cooldown,
		HRHistoryWindow:   m.cfg.HRHistoryWindow,
		TickInterval:      m.cfg.TickInterval,
	}

	return NewController(id, ctrlCfg, buffer, calc, strategy, stabilizer, m.provider, m.store, m.sink, m.logger)
}
