package session

import (
	"context"
	"errors"
	"time"

	"github.com/Krimson/dig-music/internal/classify"
)

// Phase представляет фазу измерительной сессии
type Phase string

const (
	// PhaseResting — начальная фаза покоя, в ней накапливаются значения
	// для базовой линии
	PhaseResting Phase = "RESTING"
	// PhaseRunning — рабочая фаза; вход ровно один раз, после фиксации
	// базовой линии
	PhaseRunning Phase = "RUNNING"
)

// NoTrack — сентинел "трек недоступен"
const NoTrack = "—"

// ErrCalibrationFailed возвращается, когда фаза покоя закончилась без
// пригодных сэмплов. Фатально: продолжать без базовой линии нельзя.
var ErrCalibrationFailed = errors.New("calibration failed: no usable samples during rest phase, check sensor placement")

// HRPoint — точка истории пульса для отображения
type HRPoint struct {
	At    time.Time `json:"at"`
	HRBPM float64   `json:"hr_bpm"`
}

// Snapshot — состояние сессии после очередного принятого сэмпла.
// Отдается потребителю после каждого принятого сэмпла, даже если метрики
// еще не вычислимы: живой интерфейс не должен замирать.
type Snapshot struct {
	SessionID     string          `json:"session_id"`
	Phase         Phase           `json:"phase"`
	RestRemainSec *int            `json:"rest_remain_sec,omitempty"`
	HRBPM         *float64        `json:"hr_bpm,omitempty"`
	PNN50         *float64        `json:"pnn50,omitempty"`
	Smoothed      *float64        `json:"smoothed_pnn50,omitempty"`
	Baseline      *float64        `json:"baseline_pnn50,omitempty"`
	Status        classify.Status `json:"status"`
	Track         string          `json:"track"`
	HRPoints      []HRPoint       `json:"hr_points"`
	EventMessage  string          `json:"event_message,omitempty"`
	At            time.Time       `json:"at"`
}

// Event — персистируемое событие устойчивого статуса
type Event struct {
	ID         int64           `json:"id"`
	TS         time.Time       `json:"ts"`
	Status     classify.Status `json:"status"`
	PNN50      float64         `json:"pnn50"`
	ArtistName string          `json:"artist_name"`
	TrackName  string          `json:"track_name"`
}

// PendingEpisode отслеживает кандидата на устойчивый эпизод статуса.
// Сбрасывается при смене статуса или трека; каждый непрерывный эпизод
// дает не более одного персистированного события.
type PendingEpisode struct {
	Status    classify.Status
	Artist    string
	Title     string
	Label     string
	StartedAt time.Time
	Saved     bool
}

// Stats — счетчики работы контроллера за сессию
type Stats struct {
	Received    int64
	Rejected    int64
	Snapshots   int64
	EventsSaved int64
	SaveErrors  int64
}

// EventStore — хранилище базовых линий и событий.
// Записи сериализуются внутри одной сессии: вызовы идут из одного
// последовательного цикла.
type EventStore interface {
	// SaveBaseline сохраняет зафиксированную базовую линию
	SaveBaseline(ctx context.Context, value float64, ts time.Time) (int64, error)

	// LoadLatestBaseline возвращает последнюю сохраненную базовую линию
	LoadLatestBaseline(ctx context.Context) (float64, bool, error)

	// InsertEvent сохраняет событие и возвращает его id
	InsertEvent(ctx context.Context, event Event) (int64, error)

	// MostRecentEventTime возвращает время последнего события (для cooldown)
	MostRecentEventTime(ctx context.Context) (time.Time, bool, error)
}

// Sink — потребитель снапшотов (websocket, кэш и т.п.)
type Sink interface {
	Consume(ctx context.Context, s Snapshot) error
}

// MultiSink рассылает снапшот нескольким потребителям
type MultiSink []Sink

func (ms MultiSink) Consume(ctx context.Context, s Snapshot) error {
	var firstErr error
	for _, sink := range ms {
		if err := sink.Consume(ctx, s); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
