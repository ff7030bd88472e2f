package service

import (
	"sync"
	"time"

	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
	"auto_trader/pkg/retry"
)

// Opts — общие настройки для всех клиентов (таймауты, лимиты, кеш).
type Opts struct {
	BaseURL   string
	Timeout   time.Duration
	RPS       float64
	CacheTTL  time.Duration
	ReadRetry retry.Policy
}

// Manager раздаёт REST-клиентов: один на аккаунт (со своими ключами)
// плюс публичный без ключей для маркет-даты. Каждый клиент явно привязан
// к своему аккаунту — никакого глобального «текущего» клиента.
type Manager struct {
	opts Opts

	mu      sync.Mutex
	clients map[int64]*Client
	public  *Client
}

func NewManager(opts Opts) *Manager {
	return &Manager{
		opts:    opts,
		clients: make(map[int64]*Client),
	}
}

func (m *Manager) params(key, secret string) Params {
	return Params{
		BaseURL:   m.opts.BaseURL,
		APIKey:    key,
		APISecret: secret,
		Timeout:   m.opts.Timeout,
		RPS:       m.opts.RPS,
		CacheTTL:  m.opts.CacheTTL,
		ReadRetry: m.opts.ReadRetry,
	}
}

// ClientFor — клиент под ключи аккаунта; пересоздаётся при смене ключей.
func (m *Manager) ClientFor(acct models.Account) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cl, ok := m.clients[acct.ID]; ok && cl.apiKey == acct.APIKey && cl.apiSecret == acct.APISecret {
		return cl
	}

	logger.Info("[GATE] новый клиент для аккаунта %d (%s), key=%s",
		acct.ID, acct.Name, models.Masked(acct.APIKey))
	cl := NewClient(m.params(acct.APIKey, acct.APISecret))
	m.clients[acct.ID] = cl
	return cl
}

// Public — клиент без ключей: контракты, свечи, тикеры.
func (m *Manager) Public() *Client {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.public == nil {
		m.public = NewClient(m.params("", ""))
	}
	return m.public
}
