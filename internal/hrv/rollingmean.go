package hrv

// RollingMean — скользящее среднее фиксированного размера.
// Гасит межсэмпловый шум метрики перед классификацией.
type RollingMean struct {
	size   int
	values []float64
}

// NewRollingMean создает среднее по size последним значениям
func NewRollingMean(size int) *RollingMean {
	if size < 1 {
		size = 1
	}
	return &RollingMean{
		size:   size,
		values: make([]float64, 0, size),
	}
}

// Add добавляет значение, вытесняя самое старое при переполнении
func (m *RollingMean) Add(x float64) {
	m.values = append(m.values, x)
	if len(m.values) > m.size {
		copy(m.values, m.values[1:])
		m.values = m.values[:m.size]
	}
}

// Mean возвращает текущее среднее
func (m *RollingMean) Mean() (float64, bool) {
	if len(m.values) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range m.values {
		sum += v
	}
	return sum / float64(len(m.values)), true
}

// Ready сообщает, заполнено ли окно целиком
func (m *RollingMean) Ready() bool {
	return len(m.values) >= m.size
}

// Reset очищает окно
func (m *RollingMean) Reset() {
	m.values = m.values[:0]
}
