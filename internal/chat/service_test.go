package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"cvdwbi/internal/dailycache"
	"cvdwbi/internal/lead"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLeadSource struct {
	mock.Mock
}

func (m *mockLeadSource) GetAllRecords(ctx context.Context) ([]lead.Lead, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]lead.Lead), args.Error(1)
}

func (m *mockLeadSource) CollectAsync(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *mockLeadSource) Today() string {
	return "2025-03-14"
}

type mockEnhancer struct {
	mock.Mock
}

func (m *mockEnhancer) Enhance(ctx context.Context, in EnhanceInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

// memCache is an in-memory AnswerCache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) SetJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	return nil
}

func mk(id int64, fields map[string]any) lead.Lead {
	f := map[string]any{"idlead": id}
	for k, v := range fields {
		f[k] = v
	}
	return lead.Lead{ID: id, Fields: f}
}

func sampleLeads() []lead.Lead {
	return []lead.Lead{
		mk(1, map[string]any{"situacao": "VENDA", "origem_nome": "Facebook Ads", "data_cad": "2025-02-10", "corretor": "Ana Paula"}),
		mk(2, map[string]any{"situacao": "RESERVA", "origem_nome": "Instagram", "data_cad": "2025-02-20", "corretor": "Ana Paula"}),
		mk(3, map[string]any{"situacao": "Em negociação", "origem_nome": "Facebook", "data_cad": "2025-03-12", "gestor": "Bruno Reis"}),
		mk(4, map[string]any{"situacao": "Descartado", "origem_nome": "", "data_cad": "2025-03-13"}),
	}
}

var fixedNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestService(src LeadSource, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(src, opts...)
}

func TestService_Ask_Monthly(t *testing.T) {
	src := new(mockLeadSource)
	src.On("GetAllRecords", mock.Anything).Return(sampleLeads(), nil)
	svc := newTestService(src)

	ans, err := svc.Ask(context.Background(), "Leads, reservas e vendas do último mês")
	require.NoError(t, err)

	assert.Equal(t, CategoryMonthly, ans.Category)
	assert.Equal(t, "2025-03-14", ans.Day)
	assert.Equal(t, 4, ans.LeadsAnalyzed)
	assert.False(t, ans.Enhanced)
	assert.Contains(t, ans.Text, "02/2025")
	assert.Contains(t, ans.Text, "Total de leads: 2")
	assert.Contains(t, ans.Text, "Vendas realizadas: 1 (50.00%)")
	assert.Contains(t, ans.Text, "Reservas: 1 (50.00%)")
	assert.Contains(t, ans.Text, "TAXA DE CONVERSÃO TOTAL: 100.0%")
}

func TestService_Ask_Categories(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"quantos leads temos", "Total de leads na base: 4"},
		{"quais origens trazem leads", "1. Facebook: 2 leads (50.0%)"},
		{"ranking de corretores", "1. Ana P: 2 leads"},
		{"performance por status", "Conversão total: 50.00%"},
		{"leads recentes", "Últimos 7 dias: 2 leads"},
		{"me dê um resumo", "Base analisada: 4 leads"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			src := new(mockLeadSource)
			src.On("GetAllRecords", mock.Anything).Return(sampleLeads(), nil)

			ans, err := newTestService(src).Ask(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Contains(t, ans.Text, tt.want)
		})
	}
}

func TestService_Ask_NotReadyStartsCollection(t *testing.T) {
	src := new(mockLeadSource)
	src.On("GetAllRecords", mock.Anything).Return(nil, dailycache.ErrNotReady)
	src.On("CollectAsync", mock.Anything).Return(true).Once()

	ans, err := newTestService(src).Ask(context.Background(), "quantos leads?")
	assert.Nil(t, ans)
	assert.ErrorIs(t, err, ErrDataNotReady)
	src.AssertExpectations(t)
}

func TestService_Ask_LoadError(t *testing.T) {
	src := new(mockLeadSource)
	src.On("GetAllRecords", mock.Anything).Return(nil, errors.New("db down"))

	_, err := newTestService(src).Ask(context.Background(), "quantos leads?")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDataNotReady)
	src.AssertNotCalled(t, "CollectAsync", mock.Anything)
}

func TestService_Ask_EmptyQuery(t *testing.T) {
	_, err := newTestService(new(mockLeadSource)).Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestService_Ask_CachesAnswers(t *testing.T) {
	src := new(mockLeadSource)
	src.On("GetAllRecords", mock.Anything).Return(sampleLeads(), nil).Once()
	svc := newTestService(src, WithCache(newMemCache()))

	first, err := svc.Ask(context.Background(), "Quantos leads temos?")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	// Same question modulo case, accents and spacing.
	second, err := svc.Ask(context.Background(), "  quantos LEADS temos? ")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)

	src.AssertNumberOfCalls(t, "GetAllRecords", 1)
}

func TestService_Ask_Enhanced(t *testing.T) {
	src := new(mockLeadSource)
	src.On("GetAllRecords", mock.Anything).Return(sampleLeads(), nil)
	enh := new(mockEnhancer)
	enh.On("Enhance", mock.Anything, mock.MatchedBy(func(in EnhanceInput) bool {
		return in.Category == CategoryQuantitative && in.LeadCount == 4 && in.Day == "2025-03-14"
	})).Return("Temos 4 leads na base.", nil)

	ans, err := newTestService(src, WithEnhancer(enh)).Ask(context.Background(), "quantos leads?")
	require.NoError(t, err)
	assert.True(t, ans.Enhanced)
	assert.Equal(t, "Temos 4 leads na base.", ans.Text)
}

func TestService_Ask_EnhancerFailureFallsBack(t *testing.T) {
	src := new(mockLeadSource)
	src.On("GetAllRecords", mock.Anything).Return(sampleLeads(), nil)
	enh := new(mockEnhancer)
	enh.On("Enhance", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded"))

	ans, err := newTestService(src, WithEnhancer(enh)).Ask(context.Background(), "quantos leads?")
	require.NoError(t, err)
	assert.False(t, ans.Enhanced)
	assert.Contains(t, ans.Text, "Total de leads na base: 4")
}

func TestService_Ask_NoLeadsSkipsEnhancer(t *testing.T) {
	src := new(mockLeadSource)
	src.On("GetAllRecords", mock.Anything).Return([]lead.Lead{}, nil)
	enh := new(mockEnhancer)

	ans, err := newTestService(src, WithEnhancer(enh)).Ask(context.Background(), "relatório mensal")
	require.NoError(t, err)
	assert.Contains(t, ans.Text, "Nenhum lead encontrado")
	enh.AssertNotCalled(t, "Enhance", mock.Anything, mock.Anything)
}
