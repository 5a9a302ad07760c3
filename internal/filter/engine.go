package filter

import (
	"errors"
	"strings"
	"time"

	"freightdash/internal/model"
	"freightdash/internal/parser"
	"freightdash/internal/util"
)

// State 筛选状态
type State string

const (
	StateUnfiltered       State = "unfiltered"
	StateDateFiltered     State = "dateFiltered"
	StateCategoryFiltered State = "categoryFiltered"
)

// ErrInvalidRange 起始日期晚于结束日期
var ErrInvalidRange = errors.New("date range start is after end")

// WarnCategoryPreserved 日期变化后分类筛选无结果，保留原结果
const WarnCategoryPreserved = "o filtro de categoria não retornou resultados no novo período; mantendo o resultado anterior"

// DateRange 闭区间日期范围，只比较年月日
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange 去掉时分秒并校验顺序
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: parser.DateOnly(start), End: parser.DateOnly(end)}
	if r.Start.After(r.End) {
		return DateRange{}, ErrInvalidRange
	}
	return r, nil
}

// Days 区间内的自然日数
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Predicate 分类筛选条件
type Predicate struct {
	Dimension Dimension `json:"dimension"`
	Value     string    `json:"value"`
}

// level 分类筛选的一层及其结果
type level struct {
	pred   Predicate
	result []*model.ShipmentRecord
}

// Engine 内存筛选引擎
//
// 日期筛选总是从全量数据重新计算；分类筛选逐层叠加在日期结果之上，每个维度最多一层。
// Engine 不是并发安全的，由调用方加锁。
type Engine struct {
	all       []*model.ShipmentRecord
	dateRange *DateRange
	dateSet   []*model.ShipmentRecord
	levels    []level
	warning   string
}

// NewEngine 创建筛选引擎
func NewEngine(records []*model.ShipmentRecord) *Engine {
	e := &Engine{}
	e.SetData(records)
	return e
}

// SetData 替换全量数据并重新应用当前筛选
func (e *Engine) SetData(records []*model.ShipmentRecord) {
	e.all = records
	e.warning = ""
	e.dateSet = e.applyDate(records)
	e.rebuildLevels(0)
}

// All 全量数据
func (e *Engine) All() []*model.ShipmentRecord {
	return e.all
}

// SetDateRange 设置日期范围
func (e *Engine) SetDateRange(start, end time.Time) error {
	r, err := NewDateRange(start, end)
	if err != nil {
		return err
	}
	e.dateRange = &r
	e.reapplyDate()
	return nil
}

// ClearDateRange 移除日期范围
func (e *Engine) ClearDateRange() {
	e.dateRange = nil
	e.reapplyDate()
}

// DateRange 当前日期范围，未设置返回 nil
func (e *Engine) DateRange() *DateRange {
	if e.dateRange == nil {
		return nil
	}
	r := *e.dateRange
	return &r
}

func (e *Engine) reapplyDate() {
	e.warning = ""
	e.dateSet = e.applyDate(e.all)
	if len(e.levels) == 0 {
		return
	}

	prev := make([]level, len(e.levels))
	copy(prev, e.levels)
	e.rebuildLevels(0)
	if len(e.Current()) == 0 && len(prev[len(prev)-1].result) > 0 {
		e.levels = prev
		e.warning = WarnCategoryPreserved
	}
}

// ToggleCategory 点击分类值
//
// 新维度在当前结果上继续收窄；已激活维度换值则替换该层；再次点击相同值只移除该层。
// 返回该条件在调用后是否处于激活状态。
func (e *Engine) ToggleCategory(dimension, value string) (bool, error) {
	dim, err := LookupDimension(dimension)
	if err != nil {
		return false, err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		value = NotInformed
	}
	e.warning = ""

	for i, lv := range e.levels {
		if lv.pred.Dimension != dim.Name {
			continue
		}
		if lv.pred.Value == value {
			e.levels = append(e.levels[:i], e.levels[i+1:]...)
			e.rebuildLevels(i)
			return false, nil
		}
		e.levels[i].pred.Value = value
		e.rebuildLevels(i)
		return true, nil
	}

	pred := Predicate{Dimension: dim.Name, Value: value}
	e.levels = append(e.levels, level{pred: pred, result: filterBy(e.Current(), dim, value)})
	return true, nil
}

// Clear 移除所有分类筛选，保留日期范围
func (e *Engine) Clear() {
	e.levels = nil
	e.warning = ""
}

// Filters 当前分类筛选，按叠加顺序
func (e *Engine) Filters() []Predicate {
	out := make([]Predicate, len(e.levels))
	for i, lv := range e.levels {
		out[i] = lv.pred
	}
	return out
}

// State 当前状态
func (e *Engine) State() State {
	switch {
	case len(e.levels) > 0:
		return StateCategoryFiltered
	case e.dateRange != nil:
		return StateDateFiltered
	default:
		return StateUnfiltered
	}
}

// Current 当前筛选结果
func (e *Engine) Current() []*model.ShipmentRecord {
	if n := len(e.levels); n > 0 {
		return e.levels[n-1].result
	}
	return e.dateSet
}

// Empty 分类筛选激活但无结果
func (e *Engine) Empty() bool {
	return len(e.levels) > 0 && len(e.Current()) == 0
}

// Warning 最近一次变更产生的提示
func (e *Engine) Warning() string {
	return e.warning
}

// ResolveValue 将地图等模糊点击解析为数据中的实际取值
// 先精确匹配，再按去重音小写后的包含关系匹配
func (e *Engine) ResolveValue(dimension, query string) (string, bool) {
	dim, err := LookupDimension(dimension)
	if err != nil {
		return "", false
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", false
	}

	for _, r := range e.all {
		if dim.ValueOf(r) == query {
			return query, true
		}
	}

	folded := util.FoldText(query)
	for _, r := range e.all {
		v := dim.ValueOf(r)
		if v == "" {
			continue
		}
		fv := util.FoldText(v)
		if strings.Contains(fv, folded) || strings.Contains(folded, fv) {
			return v, true
		}
	}
	return "", false
}

// rebuildLevels 从第 from 层开始重新计算
func (e *Engine) rebuildLevels(from int) {
	for i := from; i < len(e.levels); i++ {
		base := e.dateSet
		if i > 0 {
			base = e.levels[i-1].result
		}
		dim := dimensionIndex[e.levels[i].pred.Dimension]
		e.levels[i].result = filterBy(base, dim, e.levels[i].pred.Value)
	}
}

func filterBy(records []*model.ShipmentRecord, dim DimensionInfo, value string) []*model.ShipmentRecord {
	out := make([]*model.ShipmentRecord, 0)
	for _, r := range records {
		if dim.Matches(r, value) {
			out = append(out, r)
		}
	}
	return out
}

// applyDate 按日期范围过滤，解析缓存只在本次过滤内有效
func (e *Engine) applyDate(records []*model.ShipmentRecord) []*model.ShipmentRecord {
	if e.dateRange == nil {
		return records
	}
	lo, hi := dayKey(e.dateRange.Start), dayKey(e.dateRange.End)
	cache := make(map[string]int)

	out := make([]*model.ShipmentRecord, 0, len(records))
	for _, r := range records {
		key, ok := cache[r.Date]
		if !ok {
			key = parseDayKey(r.Date)
			cache[r.Date] = key
		}
		if key != 0 && key >= lo && key <= hi {
			out = append(out, r)
		}
	}
	return out
}

// dayKey 年月日编码为 YYYYMMDD，0 表示无效
func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

func parseDayKey(raw string) int {
	if t, err := time.Parse(model.DateLayout, raw); err == nil {
		return dayKey(t)
	}
	if t, ok := parser.Date(raw); ok {
		return dayKey(t)
	}
	return 0
}
