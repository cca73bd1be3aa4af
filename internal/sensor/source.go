package sensor

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Sample — один RR-интервал от датчика вместе с исходной строкой
// (исходный текст сохраняется для диагностики, никогда не персистится)
type Sample struct {
	RRMS int
	Raw  string
	At   time.Time
}

// Source — источник упорядоченного потока RR-сэмплов.
// Run блокируется до отмены контекста или фатальной ошибки транспорта;
// временные обрывы источник переживает сам (переподключение с backoff).
// Реализация обязана соблюдать контракт ограниченного ожидания: ни одно
// чтение не блокируется бесконечно, отмена контекста наблюдается в
// пределах одного таймаута чтения.
type Source interface {
	Run(ctx context.Context, out chan<- Sample) error
}

// ErrBadLine возвращается при строке, не являющейся RR-сообщением
var ErrBadLine = errors.New("not an RR line")

// ParseLine разбирает строку протокола датчика вида "RR,993"
func ParseLine(line string) (int, error) {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, "RR,") {
		return 0, ErrBadLine
	}

	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, ErrBadLine
	}

	rr, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, ErrBadLine
	}
	return rr, nil
}
