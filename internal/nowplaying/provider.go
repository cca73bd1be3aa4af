package nowplaying

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Track — метаданные проигрываемого трека
type Track struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

// Label возвращает отображаемую подпись трека
func (t Track) Label() string {
	return t.Artist + " - " + t.Title
}

// Provider отдает текущий проигрываемый трек, если он доступен.
// Вызывающая сторона сама ограничивает частоту опроса; провайдер обязан
// укладываться в собственный таймаут и деградировать в "недоступно",
// а не блокировать пайплайн.
type Provider interface {
	NowPlaying(ctx context.Context) (Track, bool)
}

// HTTPProvider опрашивает локальный now-playing сервис по HTTP.
// Ожидаемый ответ: 200 с JSON {"artist": "...", "title": "..."}.
type HTTPProvider struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

// NewHTTPProvider создает HTTP-провайдер с собственным таймаутом запроса
func NewHTTPProvider(url string, timeout time.Duration, logger *zap.Logger) *HTTPProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0)

	return &HTTPProvider{
		client: client,
		url:    url,
		logger: logger,
	}
}

// NowPlaying возвращает трек или false, если сервис недоступен/молчит
func (p *HTTPProvider) NowPlaying(ctx context.Context) (Track, bool) {
	var track Track

	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&track).
		Get(p.url)

	if err != nil {
		p.logger.Debug("now-playing request failed", zap.Error(err))
		return Track{}, false
	}
	if !resp.IsSuccess() {
		p.logger.Debug("now-playing request rejected", zap.Int("status", resp.StatusCode()))
		return Track{}, false
	}

	if track.Artist == "" && track.Title == "" {
		return Track{}, false
	}
	if track.Artist == "" {
		track.Artist = "Unknown"
	}
	if track.Title == "" {
		track.Title = "Unknown"
	}
	return track, true
}
