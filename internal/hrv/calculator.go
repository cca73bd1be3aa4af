package hrv

// Calculator считает HR и pNN50 по окну RR-интервалов.
// Обе метрики — чистые функции от состояния буфера.
type Calculator struct {
	buffer      *Buffer
	minDiffs    int
	thresholdMS int
}

// NewCalculator создает калькулятор над буфером.
// minDiffs — минимальное число последовательных разностей для pNN50,
// thresholdMS — порог |diff| (классический pNN50 использует 50 мс).
func NewCalculator(buffer *Buffer, minDiffs, thresholdMS int) *Calculator {
	if minDiffs < 1 {
		minDiffs = 1
	}
	return &Calculator{
		buffer:      buffer,
		minDiffs:    minDiffs,
		thresholdMS: thresholdMS,
	}
}

// HRBPM возвращает мгновенный пульс по последнему RR-интервалу
func (c *Calculator) HRBPM() (float64, bool) {
	last, ok := c.buffer.Last()
	if !ok || last <= 0 {
		return 0, false
	}
	return 60000.0 / float64(last), true
}

// PNN50Percent возвращает долю (%) последовательных разностей RR,
// превышающих порог. Не определена, пока разностей меньше minDiffs.
func (c *Calculator) PNN50Percent() (float64, bool) {
	values := c.buffer.values
	if len(values) < 2 {
		return 0, false
	}

	totalDiffs := len(values) - 1
	if totalDiffs < c.minDiffs {
		return 0, false
	}

	count := 0
	for i := 1; i < len(values); i++ {
		diff := values[i] - values[i-1]
		if diff < 0 {
			diff = -diff
		}
		if diff > c.thresholdMS {
			count++
		}
	}

	value := 100.0 * float64(count) / float64(totalDiffs)
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	return value, true
}
