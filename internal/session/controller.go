package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Krimson/dig-music/internal/classify"
	"github.com/Krimson/dig-music/internal/hrv"
	"github.com/Krimson/dig-music/internal/nowplaying"
	"github.com/Krimson/dig-music/internal/sensor"
)

// ControllerConfig — временные параметры контроллера сессии
type ControllerConfig struct {
	RestDuration      time.Duration
	TrackPollInterval time.Duration
	SustainedDuration time.Duration
	Cooldown          time.Duration
	HRHistoryWindow   time.Duration
	TickInterval      time.Duration
}

// Controller ведет одну сессию: фаза покоя, фиксация базовой линии,
// классификация и персистенция событий. Вся логика исполняется в одной
// горутине Run, поэтому состояние не требует синхронизации.
type Controller struct {
	cfg        ControllerConfig
	sessionID  string
	buffer     *hrv.Buffer
	calc       *hrv.Calculator
	strategy   classify.Strategy
	stabilizer *classify.Stabilizer
	provider   nowplaying.Provider
	store      EventStore
	sink       Sink
	logger     *zap.Logger

	// nowFn подменяется в тестах
	nowFn func() time.Time

	phase     Phase
	restEnd   time.Time
	restPNN50 []float64
	restHR    []float64
	baseline  float64

	track         nowplaying.Track
	trackOK       bool
	lastTrackPoll time.Time
	trackPolled   bool

	hrPoints []HRPoint
	episode  *PendingEpisode

	// eventMessage — одноразовое сообщение для ближайшего снапшота
	eventMessage string

	stats Stats
}

// NewController создает контроллер сессии
func NewController(
	sessionID string,
	cfg ControllerConfig,
	buffer *hrv.Buffer,
	calc *hrv.Calculator,
	strategy classify.Strategy,
	stabilizer *classify.Stabilizer,
	provider nowplaying.Provider,
	store EventStore,
	sink Sink,
	logger *zap.Logger,
) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		cfg:        cfg,
		sessionID:  sessionID,
		buffer:     buffer,
		calc:       calc,
		strategy:   strategy,
		stabilizer: stabilizer,
		provider:   provider,
		store:      store,
		sink:       sink,
		logger:     logger,
		nowFn:      time.Now,
		phase:      PhaseResting,
	}
}

// Stats возвращает текущие счетчики сессии
func (c *Controller) Stats() Stats {
	return c.stats
}

// Run исполняет цикл сессии до отмены контекста, закрытия канала сэмплов
// или фатальной ошибки (провал калибровки)
func (c *Controller) Run(ctx context.Context, samples <-chan sensor.Sample) error {
	c.restEnd = c.nowFn().Add(c.cfg.RestDuration)

	c.logger.Info("session started",
		zap.String("session_id", c.sessionID),
		zap.Duration("rest_duration", c.cfg.RestDuration),
	)

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()
	defer c.logStats()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("session stopped", zap.String("session_id", c.sessionID))
			return nil

		case s, ok := <-samples:
			if !ok {
				c.logger.Info("sample stream ended", zap.String("session_id", c.sessionID))
				return nil
			}
			if err := c.handleSample(ctx, s); err != nil {
				return err
			}

		case <-ticker.C:
			// Фаза покоя должна заканчиваться и при молчащем датчике
			if err := c.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (c *Controller) tick(ctx context.Context) error {
	if c.phase != PhaseResting {
		return nil
	}
	if c.nowFn().Before(c.restEnd) {
		return nil
	}
	return c.finishRest(ctx)
}

func (c *Controller) handleSample(ctx context.Context, s sensor.Sample) error {
	now := c.nowFn()
	c.stats.Received++

	if !c.buffer.Add(s.RRMS) {
		c.stats.Rejected++
		c.logger.Debug("rr sample rejected",
			zap.Int("rr_ms", s.RRMS),
			zap.String("raw", s.Raw),
		)
		return nil
	}

	hr, hrOK := c.calc.HRBPM()
	pnn50, pnnOK := c.calc.PNN50Percent()

	if hrOK {
		c.pushHRPoint(now, hr)
	}
	c.pollTrack(ctx, now)

	if c.phase == PhaseResting {
		if !now.Before(c.restEnd) {
			// Сэмпл пришел после конца фазы покоя: в базовую линию
			// не входит, переходный снапшот отдает finishRest
			return c.finishRest(ctx)
		}
		if pnnOK {
			c.restPNN50 = append(c.restPNN50, pnn50)
		}
		if hrOK {
			c.restHR = append(c.restHR, hr)
		}
		c.emit(ctx, c.restingSnapshot(now, hr, hrOK, pnn50, pnnOK))
		return nil
	}

	if !pnnOK {
		c.emit(ctx, c.runningSnapshot(now, hr, hrOK, pnn50, false, classify.Result{}, c.stabilizer.Current()))
		return nil
	}

	res := c.strategy.Observe(classify.Metrics{PNN50: pnn50, HRBPM: hr, HROK: hrOK})
	status := c.stabilizer.Observe(res.Candidate)

	c.trackEpisode(ctx, now, status, res, pnn50)
	c.emit(ctx, c.runningSnapshot(now, hr, hrOK, pnn50, true, res, status))
	return nil
}

// finishRest фиксирует базовую линию и переводит сессию в рабочую фазу.
// Пустые аккумуляторы — фатальная ошибка: классифицировать не от чего.
func (c *Controller) finishRest(ctx context.Context) error {
	now := c.nowFn()

	if len(c.restPNN50) == 0 || len(c.restHR) == 0 {
		c.logger.Error("rest phase produced no usable metrics",
			zap.String("session_id", c.sessionID),
			zap.Int64("samples_received", c.stats.Received),
		)
		return ErrCalibrationFailed
	}

	basePNN50 := mean(c.restPNN50)
	baseHR := mean(c.restHR)

	c.strategy.SetBaseline(classify.Baseline{PNN50: basePNN50, HRBPM: baseHR})
	c.baseline = basePNN50
	c.phase = PhaseRunning

	c.logger.Info("rest phase complete, baseline fixed",
		zap.String("session_id", c.sessionID),
		zap.Float64("baseline_pnn50", basePNN50),
		zap.Float64("baseline_hr", baseHR),
		zap.Int("pnn50_samples", len(c.restPNN50)),
	)

	if _, err := c.store.SaveBaseline(ctx, basePNN50, now); err != nil {
		// Запись не удалась: сессия продолжается на зафиксированной в
		// памяти базовой линии, но факт потери не замалчиваем
		c.stats.SaveErrors++
		c.eventMessage = fmt.Sprintf("baseline save failed: %v", err)
		c.logger.Error("failed to save baseline", zap.Error(err))
	}

	hr, hrOK := c.calc.HRBPM()
	pnn50, pnnOK := c.calc.PNN50Percent()
	c.emit(ctx, c.runningSnapshot(now, hr, hrOK, pnn50, pnnOK, classify.Result{
		Baseline:   basePNN50,
		BaselineOK: true,
	}, c.stabilizer.Current()))
	return nil
}

// trackEpisode ведет учет непрерывного эпизода (статус, трек) и
// персистирует событие, когда эпизод продержался SustainedDuration и
// cooldown с момента последнего события истек
func (c *Controller) trackEpisode(ctx context.Context, now time.Time, status classify.Status, res classify.Result, rawPNN50 float64) {
	if !status.Elevated() || !c.trackOK {
		c.episode = nil
		return
	}

	label := c.track.Label()
	if c.episode == nil || c.episode.Status != status || c.episode.Label != label {
		c.episode = &PendingEpisode{
			Status:    status,
			Artist:    c.track.Artist,
			Title:     c.track.Title,
			Label:     label,
			StartedAt: now,
		}
		return
	}

	if c.episode.Saved {
		return
	}
	if now.Sub(c.episode.StartedAt) < c.cfg.SustainedDuration {
		return
	}

	last, ok, err := c.store.MostRecentEventTime(ctx)
	if err != nil {
		c.stats.SaveErrors++
		c.eventMessage = fmt.Sprintf("event save failed: %v", err)
		c.logger.Error("failed to check event cooldown", zap.Error(err))
		return
	}
	if ok && now.Sub(last) < c.cfg.Cooldown {
		// Эпизод остается кандидатом: попытка повторится на следующем
		// сэмпле, если статус и трек удержатся
		c.logger.Debug("event blocked by cooldown",
			zap.String("status", string(status)),
			zap.Time("last_event", last),
		)
		return
	}

	value := rawPNN50
	if res.SmoothedOK {
		value = res.Smoothed
	}

	event := Event{
		TS:         now,
		Status:     status,
		PNN50:      value,
		ArtistName: c.episode.Artist,
		TrackName:  c.episode.Title,
	}
	id, err := c.store.InsertEvent(ctx, event)
	if err != nil {
		c.stats.SaveErrors++
		c.eventMessage = fmt.Sprintf("event save failed: %v", err)
		c.logger.Error("failed to save event", zap.Error(err))
		return
	}

	c.episode.Saved = true
	c.stats.EventsSaved++
	c.eventMessage = fmt.Sprintf("%s on %q saved (pNN50 %.1f%%)", status, label, value)
	c.logger.Info("sustained status event saved",
		zap.Int64("event_id", id),
		zap.String("status", string(status)),
		zap.String("track", label),
		zap.Float64("pnn50", value),
	)
}

// pollTrack опрашивает now-playing не чаще TrackPollInterval
func (c *Controller) pollTrack(ctx context.Context, now time.Time) {
	if c.trackPolled && now.Sub(c.lastTrackPoll) < c.cfg.TrackPollInterval {
		return
	}
	c.lastTrackPoll = now
	c.trackPolled = true
	c.track, c.trackOK = c.provider.NowPlaying(ctx)
}

func (c *Controller) pushHRPoint(now time.Time, hr float64) {
	c.hrPoints = append(c.hrPoints, HRPoint{At: now, HRBPM: hr})
	cutoff := now.Add(-c.cfg.HRHistoryWindow)
	trim := 0
	for trim < len(c.hrPoints) && c.hrPoints[trim].At.Before(cutoff) {
		trim++
	}
	if trim > 0 {
		c.hrPoints = append(c.hrPoints[:0], c.hrPoints[trim:]...)
	}
}

func (c *Controller) restingSnapshot(now time.Time, hr float64, hrOK bool, pnn50 float64, pnnOK bool) Snapshot {
	remain := int(c.restEnd.Sub(now).Seconds())
	if remain < 0 {
		remain = 0
	}
	s := Snapshot{
		SessionID:     c.sessionID,
		Phase:         PhaseResting,
		RestRemainSec: &remain,
		Status:        classify.StatusNeutral,
		Track:         c.trackLabel(),
		HRPoints:      c.hrHistory(),
		At:            now,
	}
	if hrOK {
		s.HRBPM = floatPtr(hr)
	}
	if pnnOK {
		s.PNN50 = floatPtr(pnn50)
	}
	return s
}

func (c *Controller) runningSnapshot(now time.Time, hr float64, hrOK bool, pnn50 float64, pnnOK bool, res classify.Result, status classify.Status) Snapshot {
	s := Snapshot{
		SessionID: c.sessionID,
		Phase:     PhaseRunning,
		Status:    status,
		Track:     c.trackLabel(),
		HRPoints:  c.hrHistory(),
		At:        now,
	}
	if hrOK {
		s.HRBPM = floatPtr(hr)
	}
	if pnnOK {
		s.PNN50 = floatPtr(pnn50)
	}
	if res.SmoothedOK {
		s.Smoothed = floatPtr(res.Smoothed)
	}
	if res.BaselineOK {
		s.Baseline = floatPtr(res.Baseline)
	}
	return s
}

// emit отдает снапшот потребителю, прикрепляя одноразовое сообщение
func (c *Controller) emit(ctx context.Context, s Snapshot) {
	if c.eventMessage != "" {
		s.EventMessage = c.eventMessage
		c.eventMessage = ""
	}
	c.stats.Snapshots++

	if c.sink == nil {
		return
	}
	if err := c.sink.Consume(ctx, s); err != nil {
		c.logger.Warn("snapshot consumer failed", zap.Error(err))
	}
}

func (c *Controller) trackLabel() string {
	if !c.trackOK {
		return NoTrack
	}
	return c.track.Label()
}

func (c *Controller) hrHistory() []HRPoint {
	out := make([]HRPoint, len(c.hrPoints))
	copy(out, c.hrPoints)
	return out
}

func (c *Controller) logStats() {
	bufStats := c.buffer.Stats()
	c.logger.Info("session statistics",
		zap.String("session_id", c.sessionID),
		zap.Int64("samples_received", c.stats.Received),
		zap.Int64("samples_rejected", c.stats.Rejected),
		zap.Int64("buffer_resets", bufStats.Resets),
		zap.Int64("snapshots", c.stats.Snapshots),
		zap.Int64("events_saved", c.stats.EventsSaved),
		zap.Int64("save_errors", c.stats.SaveErrors),
	)
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func floatPtr(v float64) *float64 {
	return &v
}
