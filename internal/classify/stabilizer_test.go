package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStabilizerRequiresConsecutiveCandidates(t *testing.T) {
	s := NewStabilizer(3)

	assert.Equal(t, StatusNeutral, s.Observe(StatusChill))
	assert.Equal(t, StatusNeutral, s.Observe(StatusChill))
	assert.Equal(t, StatusChill, s.Observe(StatusChill))
	assert.Equal(t, StatusChill, s.Current())
}

func TestStabilizerSingleNoiseSampleDoesNotFlip(t *testing.T) {
	s := NewStabilizer(3)

	s.Observe(StatusChill)
	s.Observe(StatusChill)
	s.Observe(StatusChill)
	assert.Equal(t, StatusChill, s.Current())

	// Одиночный выброс не переключает статус
	assert.Equal(t, StatusChill, s.Observe(StatusNeutral))
	// Совпадение с текущим сбрасывает серию
	assert.Equal(t, StatusChill, s.Observe(StatusChill))
	assert.Equal(t, StatusChill, s.Observe(StatusNeutral))
	assert.Equal(t, StatusChill, s.Observe(StatusNeutral))
	// Лишь третий подряд отличный кандидат переключает
	assert.Equal(t, StatusNeutral, s.Observe(StatusNeutral))
}

func TestStabilizerCandidateChangeRestartsStreak(t *testing.T) {
	s := NewStabilizer(3)

	s.Observe(StatusChill)
	s.Observe(StatusChill)
	// Смена кандидата начинает новую серию
	s.Observe(StatusHype)
	s.Observe(StatusHype)
	assert.Equal(t, StatusNeutral, s.Current())
	assert.Equal(t, StatusHype, s.Observe(StatusHype))
}

func TestStabilizerThresholdOneSwitchesImmediately(t *testing.T) {
	s := NewStabilizer(1)

	assert.Equal(t, StatusHype, s.Observe(StatusHype))
	assert.Equal(t, StatusChill, s.Observe(StatusChill))
}

func TestStabilizerReset(t *testing.T) {
	s := NewStabilizer(2)
	s.Observe(StatusChill)
	s.Observe(StatusChill)
	assert.Equal(t, StatusChill, s.Current())

	s.Reset()
	assert.Equal(t, StatusNeutral, s.Current())
}
