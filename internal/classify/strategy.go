package classify

import (
	"github.com/Krimson/dig-music/internal/hrv"
)

// Metrics — входные метрики одного сэмпла
type Metrics struct {
	PNN50 float64
	HRBPM float64
	HROK  bool
}

// Result — выход стратегии для одного сэмпла.
// Smoothed и Baseline могут быть не определены, пока окна прогреваются.
type Result struct {
	Smoothed   float64
	SmoothedOK bool
	Baseline   float64
	BaselineOK bool
	Candidate  Status
}

// Baseline — зафиксированные опорные значения сессии
type Baseline struct {
	PNN50 float64
	HRBPM float64
}

// Strategy вычисляет кандидат-статус по сырым метрикам.
// Кандидат не публикуется напрямую: его стабилизирует Stabilizer.
type Strategy interface {
	// SetBaseline фиксирует опорные значения после фазы покоя
	SetBaseline(b Baseline)

	// HasBaseline сообщает, установлена ли базовая линия
	HasBaseline() bool

	// Observe принимает метрики очередного сэмпла и возвращает результат
	Observe(m Metrics) Result
}

// ===== Delta-стратегия =====

// BaselineMode задает режим базовой линии delta-стратегии
type BaselineMode string

const (
	// BaselineModeFixed — базовая линия фиксируется один раз и не меняется
	BaselineModeFixed BaselineMode = "fixed"
	// BaselineModeAdaptive — базовая линия медленно следует за метрикой (EMA)
	BaselineModeAdaptive BaselineMode = "adaptive"
)

// DeltaStrategy сравнивает сглаженный pNN50 с базовой линией по абсолютной
// дельте (процентные пункты): выше baseline+chillDelta — CHILL, ниже
// baseline-hypeDelta — HYPE. Пока скользящее среднее не заполнено,
// кандидат принудительно NEUTRAL.
type DeltaStrategy struct {
	smooth     *hrv.RollingMean
	chillDelta float64
	hypeDelta  float64

	mode  BaselineMode
	alpha float64

	baseline    float64
	hasBaseline bool
}

// NewDeltaStrategy создает delta-стратегию с фиксированной базовой линией
func NewDeltaStrategy(smoothSize int, chillDelta, hypeDelta float64) *DeltaStrategy {
	return &DeltaStrategy{
		smooth:     hrv.NewRollingMean(smoothSize),
		chillDelta: chillDelta,
		hypeDelta:  hypeDelta,
		mode:       BaselineModeFixed,
	}
}

// NewAdaptiveDeltaStrategy создает delta-стратегию с медленно плывущей
// базовой линией (alpha — коэффициент EMA). Альтернативный режим, базовая
// линия никогда не фиксируется окончательно.
func NewAdaptiveDeltaStrategy(smoothSize int, chillDelta, hypeDelta, alpha float64) *DeltaStrategy {
	s := NewDeltaStrategy(smoothSize, chillDelta, hypeDelta)
	s.mode = BaselineModeAdaptive
	s.alpha = alpha
	return s
}

func (s *DeltaStrategy) SetBaseline(b Baseline) {
	s.baseline = b.PNN50
	s.hasBaseline = true
}

func (s *DeltaStrategy) HasBaseline() bool {
	return s.hasBaseline
}

func (s *DeltaStrategy) Observe(m Metrics) Result {
	s.smooth.Add(m.PNN50)
	sm, smOK := s.smooth.Mean()

	res := Result{
		Smoothed:   sm,
		SmoothedOK: smOK,
		Candidate:  StatusNeutral,
	}

	if !s.hasBaseline {
		return res
	}

	if s.mode == BaselineModeAdaptive {
		s.baseline = s.baseline + s.alpha*(m.PNN50-s.baseline)
	}

	res.Baseline = s.baseline
	res.BaselineOK = true

	if !smOK || !s.smooth.Ready() {
		return res
	}

	delta := sm - s.baseline
	switch {
	case delta >= s.chillDelta:
		res.Candidate = StatusChill
	case delta <= -s.hypeDelta:
		res.Candidate = StatusHype
	}
	return res
}

// ===== Ratio-стратегия =====

// RatioThresholds — множители относительно базовых значений
type RatioThresholds struct {
	ChillPNN50 float64 // CHILL: pNN50 >= baseline_pnn50 * ChillPNN50
	ChillHR    float64 // CHILL: HR <= baseline_hr * ChillHR
	HypeHR     float64 // HYPE: HR >= baseline_hr * HypeHR
	HypePNN50  float64 // HYPE: pNN50 <= baseline_pnn50 * HypePNN50
}

// RatioStrategy независимо сглаживает pNN50 и HR и сравнивает оба с
// базовыми значениями по множителям. Кандидат отличен от NEUTRAL только
// когда готовы оба скользящих средних.
type RatioStrategy struct {
	smoothPNN50 *hrv.RollingMean
	smoothHR    *hrv.RollingMean
	thresholds  RatioThresholds

	baseline    Baseline
	hasBaseline bool
}

// NewRatioStrategy создает ratio-стратегию
func NewRatioStrategy(smoothSize int, thresholds RatioThresholds) *RatioStrategy {
	return &RatioStrategy{
		smoothPNN50: hrv.NewRollingMean(smoothSize),
		smoothHR:    hrv.NewRollingMean(smoothSize),
		thresholds:  thresholds,
	}
}

func (s *RatioStrategy) SetBaseline(b Baseline) {
	s.baseline = b
	s.hasBaseline = true
}

func (s *RatioStrategy) HasBaseline() bool {
	return s.hasBaseline
}

func (s *RatioStrategy) Observe(m Metrics) Result {
	s.smoothPNN50.Add(m.PNN50)
	if m.HROK {
		s.smoothHR.Add(m.HRBPM)
	}

	smP, smPOK := s.smoothPNN50.Mean()

	res := Result{
		Smoothed:   smP,
		SmoothedOK: smPOK,
		Candidate:  StatusNeutral,
	}

	if !s.hasBaseline {
		return res
	}

	res.Baseline = s.baseline.PNN50
	res.BaselineOK = true

	if !s.smoothPNN50.Ready() || !s.smoothHR.Ready() {
		return res
	}

	smHR, _ := s.smoothHR.Mean()

	chill := smP >= s.baseline.PNN50*s.thresholds.ChillPNN50 &&
		smHR <= s.baseline.HRBPM*s.thresholds.ChillHR
	hype := smHR >= s.baseline.HRBPM*s.thresholds.HypeHR &&
		smP <= s.baseline.PNN50*s.thresholds.HypePNN50

	switch {
	case chill:
		res.Candidate = StatusChill
	case hype:
		res.Candidate = StatusHype
	}
	return res
}
