package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cvdwbi/internal/dailycache"
	"cvdwbi/internal/lead"
	"cvdwbi/internal/platform/logx"
	"cvdwbi/internal/querycache"
)

// ErrDataNotReady means today's leads are still being collected.
var ErrDataNotReady = dailycache.ErrNotReady

var ErrEmptyQuery = errors.New("empty query")

// LeadSource is the daily cache as the chat sees it.
type LeadSource interface {
	GetAllRecords(ctx context.Context) ([]lead.Lead, error)
	CollectAsync(ctx context.Context) bool
	Today() string
}

// AnswerCache memoizes answers. *querycache.Cache satisfies it, nil included.
type AnswerCache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
}

// Enhancer rewrites a plain report into a conversational answer.
type Enhancer interface {
	Enhance(ctx context.Context, in EnhanceInput) (string, error)
}

type EnhanceInput struct {
	Query     string
	Category  Category
	Report    string
	Day       string
	LeadCount int
}

type Answer struct {
	Query         string    `json:"query"`
	Category      Category  `json:"category"`
	Text          string    `json:"answer"`
	Enhanced      bool      `json:"enhanced"`
	Cached        bool      `json:"cached"`
	Day           string    `json:"collection_date"`
	LeadsAnalyzed int       `json:"leads_analyzed"`
	GeneratedAt   time.Time `json:"generated_at"`
}

type Service struct {
	src      LeadSource
	cache    AnswerCache
	enhancer Enhancer
	now      func() time.Time
}

type Option func(*Service)

func WithCache(c AnswerCache) Option { return func(s *Service) { s.cache = c } }

func WithEnhancer(e Enhancer) Option { return func(s *Service) { s.enhancer = e } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(src LeadSource, opts ...Option) *Service {
	s := &Service{src: src, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ask answers a question from today's cached leads. When the cache is not
// ready a background crawl is started and ErrDataNotReady is returned.
func (s *Service) Ask(ctx context.Context, query string) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	log := logx.With("chat")

	cat := Classify(query)
	day := s.src.Today()
	key := cacheKey(day, cat, query)

	if s.cache != nil {
		var cached Answer
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			log.Warn().Err(err).Msg("answer cache read failed")
		} else if hit {
			cached.Cached = true
			return &cached, nil
		}
	}

	leads, err := s.src.GetAllRecords(ctx)
	if errors.Is(err, dailycache.ErrNotReady) {
		started := s.src.CollectAsync(ctx)
		log.Info().Bool("crawl_started", started).Str("day", day).Msg("leads not ready for chat")
		return nil, ErrDataNotReady
	}
	if err != nil {
		return nil, fmt.Errorf("load leads: %w", err)
	}

	now := s.now()
	ans := &Answer{
		Query:         query,
		Category:      cat,
		Text:          buildReport(cat, leads, now),
		Day:           day,
		LeadsAnalyzed: len(leads),
		GeneratedAt:   now,
	}

	if s.enhancer != nil && len(leads) > 0 {
		text, err := s.enhancer.Enhance(ctx, EnhanceInput{
			Query:     query,
			Category:  cat,
			Report:    ans.Text,
			Day:       day,
			LeadCount: len(leads),
		})
		switch {
		case err != nil:
			log.Warn().Err(err).Str("category", string(cat)).Msg("answer enhancement failed, using plain report")
		case strings.TrimSpace(text) != "":
			ans.Text = text
			ans.Enhanced = true
		}
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, ans); err != nil {
			log.Warn().Err(err).Msg("answer cache write failed")
		}
	}

	log.Debug().Str("category", string(cat)).Int("leads", len(leads)).Bool("enhanced", ans.Enhanced).Msg("question answered")
	return ans, nil
}

func cacheKey(day string, cat Category, query string) string {
	return "chat:" + querycache.Key(day, string(cat), Normalize(query))
}
