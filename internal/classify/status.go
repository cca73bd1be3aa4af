package classify

// Status представляет дискретное состояние относительно базовой линии
type Status string

const (
	StatusNeutral Status = "NEUTRAL"
	StatusChill   Status = "CHILL"
	StatusHype    Status = "HYPE"
)

// Elevated сообщает, является ли статус отклонением от базовой линии
func (s Status) Elevated() bool {
	return s == StatusChill || s == StatusHype
}
