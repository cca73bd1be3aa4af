package hrv

// BufferStats содержит счетчики работы буфера
type BufferStats struct {
	Accepted int64
	Rejected int64
	Resets   int64
}

// Buffer хранит скользящее окно валидированных RR-интервалов (мс), новые в конце.
// Значение вне диапазона [minMS, maxMS] отбрасывается без изменения буфера.
// Скачок больше maxJumpMS не отбрасывается: буфер сбрасывается и новое значение
// становится его единственным элементом, иначе первый же мусорный интервал
// заблокировал бы расчет метрик до ручного переподключения.
type Buffer struct {
	minMS     int
	maxMS     int
	maxJumpMS int
	capacity  int

	values []int
	stats  BufferStats
}

// NewBuffer создает буфер с заданным окном и порогами валидации
func NewBuffer(capacity, minMS, maxMS, maxJumpMS int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		minMS:     minMS,
		maxMS:     maxMS,
		maxJumpMS: maxJumpMS,
		capacity:  capacity,
		values:    make([]int, 0, capacity),
	}
}

// Add добавляет RR-интервал. Возвращает false, если значение отброшено.
func (b *Buffer) Add(rrMS int) bool {
	if rrMS < b.minMS || rrMS > b.maxMS {
		b.stats.Rejected++
		return false
	}

	if len(b.values) > 0 {
		last := b.values[len(b.values)-1]
		jump := rrMS - last
		if jump < 0 {
			jump = -jump
		}
		if jump > b.maxJumpMS {
			b.values = b.values[:0]
			b.values = append(b.values, rrMS)
			b.stats.Resets++
			b.stats.Accepted++
			return true
		}
	}

	b.values = append(b.values, rrMS)
	if len(b.values) > b.capacity {
		copy(b.values, b.values[1:])
		b.values = b.values[:b.capacity]
	}
	b.stats.Accepted++
	return true
}

// Values возвращает копию текущего окна
func (b *Buffer) Values() []int {
	out := make([]int, len(b.values))
	copy(out, b.values)
	return out
}

// Len возвращает количество значений в окне
func (b *Buffer) Len() int {
	return len(b.values)
}

// Last возвращает последний принятый RR-интервал
func (b *Buffer) Last() (int, bool) {
	if len(b.values) == 0 {
		return 0, false
	}
	return b.values[len(b.values)-1], true
}

// Reset очищает окно, не трогая счетчики
func (b *Buffer) Reset() {
	b.values = b.values[:0]
}

// Resize меняет емкость окна, обрезая до самых свежих n значений
func (b *Buffer) Resize(n int) {
	if n < 1 {
		n = 1
	}
	b.capacity = n
	if len(b.values) > n {
		keep := b.values[len(b.values)-n:]
		copy(b.values, keep)
		b.values = b.values[:n]
	}
}

// Stats возвращает счетчики работы буфера
func (b *Buffer) Stats() BufferStats {
	return b.stats
}
