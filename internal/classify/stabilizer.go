package classify

// Stabilizer подавляет дрожание статуса: кандидат, отличный от текущего,
// должен повториться threshold раз подряд, прежде чем будет опубликован.
// Кандидат, совпадающий с текущим статусом, сбрасывает накопленную серию.
type Stabilizer struct {
	threshold int

	current Status
	pending Status
	streak  int
}

// NewStabilizer создает стабилизатор. threshold <= 1 означает мгновенное
// переключение.
func NewStabilizer(threshold int) *Stabilizer {
	if threshold < 1 {
		threshold = 1
	}
	return &Stabilizer{
		threshold: threshold,
		current:   StatusNeutral,
	}
}

// Observe принимает очередной кандидат и возвращает опубликованный статус
func (s *Stabilizer) Observe(candidate Status) Status {
	if candidate == s.current {
		s.streak = 0
		s.pending = candidate
		return s.current
	}

	if candidate != s.pending {
		s.pending = candidate
		s.streak = 1
	} else {
		s.streak++
	}

	if s.streak >= s.threshold {
		s.current = candidate
		s.streak = 0
	}
	return s.current
}

// Current возвращает последний опубликованный статус
func (s *Stabilizer) Current() Status {
	return s.current
}

// Reset возвращает стабилизатор в исходное состояние
func (s *Stabilizer) Reset() {
	s.current = StatusNeutral
	s.pending = StatusNeutral
	s.streak = 0
}
