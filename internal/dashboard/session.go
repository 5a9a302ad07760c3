package dashboard

import (
	"log/slog"
	"sync"
	"time"

	"freightdash/internal/analytics"
	"freightdash/internal/filter"
	"freightdash/internal/model"
)

// RangeView 日期范围的展示形式
type RangeView struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

// View 会话当前视图
type View struct {
	Token     string                  `json:"token"`
	State     filter.State            `json:"state"`
	DateRange *RangeView              `json:"dateRange"`
	Filters   []filter.Predicate      `json:"filters"`
	Empty     bool                    `json:"empty"`
	Warning   string                  `json:"warning,omitempty"`
	Count     int                     `json:"count"`
	Total     int                     `json:"total"`
	Records   []*model.ShipmentRecord `json:"records,omitempty"`
	Summary   *analytics.Summary      `json:"summary"`
}

// Session 一个交互式看板会话
type Session struct {
	Token string

	mu        sync.Mutex
	engine    *filter.Engine
	debouncer *Debouncer
	logger    *slog.Logger
}

func newSession(token string, records []*model.ShipmentRecord, debounce time.Duration, logger *slog.Logger) *Session {
	return &Session{
		Token:     token,
		engine:    filter.NewEngine(records),
		debouncer: NewDebouncer(debounce),
		logger:    logger,
	}
}

// SetDateRange 校验后经防抖应用日期范围
func (s *Session) SetDateRange(start, end time.Time) error {
	r, err := filter.NewDateRange(start, end)
	if err != nil {
		return err
	}
	s.debouncer.Schedule(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.engine.SetDateRange(r.Start, r.End); err != nil {
			s.logger.Warn("apply date range", "token", s.Token, "err", err)
			return
		}
		if w := s.engine.Warning(); w != "" {
			s.logger.Warn("category filter preserved", "token", s.Token, "warning", w, "filters", s.engine.Filters())
		}
	})
	return nil
}

// ClearDateRange 经防抖移除日期范围
func (s *Session) ClearDateRange() {
	s.debouncer.Schedule(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.engine.ClearDateRange()
	})
}

// ToggleCategory 立即切换分类筛选，先落地待办的日期变更
// resolve 为 true 时先将点击值解析为数据中的实际取值
func (s *Session) ToggleCategory(dimension, value string, resolve bool) (bool, error) {
	s.debouncer.Flush()

	s.mu.Lock()
	defer s.mu.Unlock()
	if resolve {
		if v, ok := s.engine.ResolveValue(dimension, value); ok {
			value = v
		}
	}
	return s.engine.ToggleCategory(dimension, value)
}

// ClearFilters 移除所有分类筛选
func (s *Session) ClearFilters() {
	s.debouncer.Flush()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Clear()
}

// Reload 替换全量数据并重新应用筛选
func (s *Session) Reload(records []*model.ShipmentRecord) {
	s.debouncer.Flush()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetData(records)
}

// View 当前视图，读取前先执行待办的重新计算
func (s *Session) View(includeRecords bool) *View {
	s.debouncer.Flush()

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.engine.Current()
	dr := s.engine.DateRange()
	v := &View{
		Token:   s.Token,
		State:   s.engine.State(),
		Filters: s.engine.Filters(),
		Empty:   s.engine.Empty(),
		Warning: s.engine.Warning(),
		Count:   len(current),
		Total:   len(s.engine.All()),
		Summary: analytics.Summarize(current, dr),
	}
	if dr != nil {
		v.DateRange = &RangeView{
			Start: dr.Start.Format(model.DateLayout),
			End:   dr.End.Format(model.DateLayout),
			Days:  dr.Days(),
		}
	}
	if includeRecords {
		v.Records = make([]*model.ShipmentRecord, len(current))
		copy(v.Records, current)
	}
	return v
}

// Records 当前筛选结果的副本
func (s *Session) Records() []*model.ShipmentRecord {
	s.debouncer.Flush()

	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.engine.Current()
	out := make([]*model.ShipmentRecord, len(current))
	copy(out, current)
	return out
}

func (s *Session) close() {
	s.debouncer.Stop()
}
