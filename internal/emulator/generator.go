package emulator

import (
	"math/rand"
	"sync"
)

// Mood задает режим генерации RR-интервалов
type Mood string

const (
	// MoodCalm — спокойный режим: длинные интервалы, высокая вариабельность
	MoodCalm Mood = "calm"
	// MoodExcited — возбужденный режим: короткие интервалы, низкая вариабельность
	MoodExcited Mood = "excited"
)

// GeneratorConfig — параметры генератора RR-интервалов
type GeneratorConfig struct {
	CalmBaseMS      int
	CalmJitterMS    int
	ExcitedBaseMS   int
	ExcitedJitterMS int
	MinMS           int
	MaxMS           int
}

// DefaultGeneratorConfig возвращает физиологически правдоподобные параметры:
// спокойный пульс около 60 уд/мин с заметной вариабельностью, возбужденный
// около 86 уд/мин с подавленной вариабельностью
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		CalmBaseMS:      1000,
		CalmJitterMS:    80,
		ExcitedBaseMS:   700,
		ExcitedJitterMS: 20,
		MinMS:           350,
		MaxMS:           1800,
	}
}

// RRGenerator генерирует поток RR-интервалов с переключаемым настроением
type RRGenerator struct {
	rand   *rand.Rand
	config GeneratorConfig

	mu   sync.RWMutex
	mood Mood
	last int
}

// NewRRGenerator создает генератор RR-интервалов
func NewRRGenerator(cfg GeneratorConfig, seed int64) *RRGenerator {
	return &RRGenerator{
		rand:   rand.New(rand.NewSource(seed)),
		config: cfg,
		mood:   MoodCalm,
	}
}

// NextValue возвращает следующий RR-интервал в миллисекундах
func (g *RRGenerator) NextValue() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	base := g.config.CalmBaseMS
	jitter := g.config.CalmJitterMS
	if g.mood == MoodExcited {
		base = g.config.ExcitedBaseMS
		jitter = g.config.ExcitedJitterMS
	}

	variation := 0
	if jitter > 0 {
		variation = g.rand.Intn(jitter*2+1) - jitter
	}
	value := base + variation

	// Ограничиваем физиологическими пределами
	if value < g.config.MinMS {
		value = g.config.MinMS
	}
	if value > g.config.MaxMS {
		value = g.config.MaxMS
	}

	g.last = value
	return value
}

// SetMood переключает режим генерации
func (g *RRGenerator) SetMood(mood Mood) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mood = mood
}

// Mood возвращает текущий режим
func (g *RRGenerator) Mood() Mood {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mood
}

// Last возвращает последнее сгенерированное значение
func (g *RRGenerator) Last() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.last
}
