package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"freightdash/internal/model"
)

// ErrSessionNotFound 会话不存在或已过期
var ErrSessionNotFound = errors.New("dashboard session not found")

// Loader 读取全量记录
type Loader interface {
	GetAll(ctx context.Context) ([]*model.ShipmentRecord, error)
}

// Options 会话注册表配置
type Options struct {
	TTL      time.Duration
	Debounce time.Duration
	Logger   *slog.Logger
}

type entry struct {
	session   *Session
	expiresAt time.Time
}

// Registry 看板会话注册表，空闲超过 TTL 的会话被回收
type Registry struct {
	mu       sync.Mutex
	items    map[string]entry
	loader   Loader
	ttl      time.Duration
	debounce time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewRegistry 创建会话注册表
func NewRegistry(loader Loader, opts Options) *Registry {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Registry{
		items:    make(map[string]entry),
		loader:   loader,
		ttl:      opts.TTL,
		debounce: opts.Debounce,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// Create 从存储加载全量数据并创建会话
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	records, err := r.loader.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load shipments: %w", err)
	}

	token := uuid.NewString()
	s := newSession(token, records, r.debounce, r.logger)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgeExpiredLocked(r.now())
	r.items[token] = entry{session: s, expiresAt: r.now().Add(r.ttl)}

	r.logger.Info("dashboard session created", "token", token, "records", len(records))
	return s, nil
}

// Get 查找会话并续期
func (r *Registry) Get(token string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.purgeExpiredLocked(now)

	e, ok := r.items[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.expiresAt = now.Add(r.ttl)
	r.items[token] = e
	return e.session, nil
}

// Reload 重新读取存储并刷新会话数据
func (r *Registry) Reload(ctx context.Context, token string) (*Session, error) {
	s, err := r.Get(token)
	if err != nil {
		return nil, err
	}
	records, err := r.loader.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load shipments: %w", err)
	}
	s.Reload(records)
	return s, nil
}

// Delete 关闭并移除会话
func (r *Registry) Delete(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items[token]
	if !ok {
		return ErrSessionNotFound
	}
	e.session.close()
	delete(r.items, token)
	return nil
}

// Len 当前会话数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Close 关闭所有会话
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.items {
		e.session.close()
		delete(r.items, k)
	}
}

func (r *Registry) purgeExpiredLocked(now time.Time) {
	for k, e := range r.items {
		if now.After(e.expiresAt) {
			e.session.close()
			delete(r.items, k)
			r.logger.Debug("dashboard session expired", "token", k)
		}
	}
}
