package sensor

import (
	"bufio"
	"context"
	"net"
	"time"

	"go.uber.org/zap"
)

// TCPSource читает строки протокола датчика ("RR,993") из TCP-соединения.
// Каждое чтение ограничено дедлайном, поэтому остановка наблюдается не
// позже, чем через readTimeout. Обрыв соединения — восстановимая ошибка:
// переподключение с экспоненциальным backoff до reconnectMax.
type TCPSource struct {
	addr         string
	readTimeout  time.Duration
	reconnectMin time.Duration
	reconnectMax time.Duration
	logger       *zap.Logger
}

// NewTCPSource создает TCP-источник RR-сэмплов
func NewTCPSource(addr string, readTimeout, reconnectMin, reconnectMax time.Duration, logger *zap.Logger) *TCPSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TCPSource{
		addr:         addr,
		readTimeout:  readTimeout,
		reconnectMin: reconnectMin,
		reconnectMax: reconnectMax,
		logger:       logger,
	}
}

// Run читает сэмплы и отправляет их в out до отмены контекста
func (s *TCPSource) Run(ctx context.Context, out chan<- Sample) error {
	backoff := s.reconnectMin

	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, err := s.dial(ctx)
		if err != nil {
			s.logger.Warn("sensor connect failed, retrying",
				zap.String("addr", s.addr),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, s.reconnectMax)
			continue
		}

		s.logger.Info("sensor connected", zap.String("addr", s.addr))
		backoff = s.reconnectMin

		err = s.readLoop(ctx, conn, out)
		conn.Close()

		if ctx.Err() != nil {
			return nil
		}

		s.logger.Warn("sensor stream interrupted, reconnecting",
			zap.String("addr", s.addr),
			zap.Error(err),
		)
	}
}

func (s *TCPSource) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: s.readTimeout}
	return d.DialContext(ctx, "tcp", s.addr)
}

// readLoop читает строки до обрыва соединения или отмены контекста
func (s *TCPSource) readLoop(ctx context.Context, conn net.Conn, out chan<- Sample) error {
	reader := bufio.NewReader(conn)

	// Дедлайн может разрезать строку посередине: недочитанный хвост
	// сохраняется и приклеивается к следующему чтению, иначе сэмпл на
	// границе таймаута терялся бы молча
	pending := ""

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
			return err
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				// Таймаут — это тик контракта ограниченного ожидания,
				// а не обрыв: проверяем остановку и читаем дальше.
				pending += line
				continue
			}
			return err
		}

		line = pending + line
		pending = ""

		rr, perr := ParseLine(line)
		if perr != nil {
			s.logger.Debug("skipping non-RR line", zap.String("raw", line))
			continue
		}

		sample := Sample{RRMS: rr, Raw: line, At: time.Now()}
		select {
		case out <- sample:
		case <-ctx.Done():
			return nil
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		next = max
	}
	return next
}
