package hrv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHRBPMFromLastInterval(t *testing.T) {
	b := NewBuffer(10, 300, 2000, 500)
	c := NewCalculator(b, 1, 50)

	_, ok := c.HRBPM()
	assert.False(t, ok, "пустой буфер не дает пульс")

	b.Add(1000)
	hr, ok := c.HRBPM()
	assert.True(t, ok)
	assert.InDelta(t, 60.0, hr, 0.001)

	b.Add(800)
	hr, ok = c.HRBPM()
	assert.True(t, ok)
	assert.InDelta(t, 75.0, hr, 0.001)
}

func TestPNN50UndefinedUntilMinDiffs(t *testing.T) {
	b := NewBuffer(30, 300, 2000, 500)
	c := NewCalculator(b, 3, 50)

	b.Add(800)
	b.Add(900)

	// Одна разность при minDiffs=3 — метрика не определена
	_, ok := c.PNN50Percent()
	assert.False(t, ok)

	b.Add(810)
	_, ok = c.PNN50Percent()
	assert.False(t, ok)

	b.Add(900)
	v, ok := c.PNN50Percent()
	assert.True(t, ok)
	assert.InDelta(t, 100.0, v, 0.001)
}

func TestPNN50CountsDiffsAboveThreshold(t *testing.T) {
	b := NewBuffer(30, 300, 2000, 500)
	c := NewCalculator(b, 3, 50)

	// Разности: 100, 10, 60 — две из трех выше 50 мс
	for _, rr := range []int{800, 900, 910, 850} {
		b.Add(rr)
	}

	v, ok := c.PNN50Percent()
	assert.True(t, ok)
	assert.InDelta(t, 100.0*2.0/3.0, v, 0.001)
}

func TestPNN50ThresholdIsExclusive(t *testing.T) {
	b := NewBuffer(30, 300, 2000, 500)
	c := NewCalculator(b, 1, 50)

	// Разность ровно 50 не считается
	b.Add(800)
	b.Add(850)

	v, ok := c.PNN50Percent()
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestPNN50IsPure(t *testing.T) {
	b := NewBuffer(30, 300, 2000, 500)
	c := NewCalculator(b, 1, 50)

	b.Add(800)
	b.Add(900)

	v1, _ := c.PNN50Percent()
	v2, _ := c.PNN50Percent()
	assert.Equal(t, v1, v2, "повторный вызов не меняет результат")
}

func TestRollingMean(t *testing.T) {
	m := NewRollingMean(3)

	_, ok := m.Mean()
	assert.False(t, ok)
	assert.False(t, m.Ready())

	m.Add(10)
	v, ok := m.Mean()
	assert.True(t, ok)
	assert.InDelta(t, 10.0, v, 0.001)
	assert.False(t, m.Ready(), "окно еще не заполнено")

	m.Add(20)
	m.Add(30)
	assert.True(t, m.Ready())

	v, _ = m.Mean()
	assert.InDelta(t, 20.0, v, 0.001)

	// Старое значение вытесняется
	m.Add(40)
	v, _ = m.Mean()
	assert.InDelta(t, 30.0, v, 0.001)

	m.Reset()
	assert.False(t, m.Ready())
	_, ok = m.Mean()
	assert.False(t, ok)
}
