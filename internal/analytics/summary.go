package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"freightdash/internal/filter"
	"freightdash/internal/model"
)

// Metric 一项指标的合计与均值
// 未设置日期范围时，两个按日均值退化为合计本身
type Metric struct {
	Total          float64 `json:"total"`
	PerBusinessDay float64 `json:"perBusinessDay"`
	PerActiveDay   float64 `json:"perActiveDay"`
	PerShipment    float64 `json:"perShipment"`
}

// Period 筛选结果中实际出现的首末日期
type Period struct {
	First string `json:"first"`
	Last  string `json:"last"`
}

// DailyPoint 按日序列
type DailyPoint struct {
	Date       string  `json:"date"`
	Count      int     `json:"count"`
	RealWeight float64 `json:"realWeight"`
	Volumes    int     `json:"volumes"`
}

// WeekdayCount 按星期统计
type WeekdayCount struct {
	Weekday string `json:"weekday"`
	Count   int    `json:"count"`
}

// Summary 筛选结果的汇总
type Summary struct {
	Count        int            `json:"count"`
	Shipments    Metric         `json:"shipments"`
	RealWeight   Metric         `json:"realWeight"`
	VolumeCount  Metric         `json:"volumeCount"`
	InvoiceValue Metric         `json:"invoiceValue"`
	TotalFreight Metric         `json:"totalFreight"`
	HasRange     bool           `json:"hasRange"`
	BusinessDays int            `json:"businessDays"`
	ActiveDays   int            `json:"activeDays"`
	Period       *Period        `json:"period,omitempty"`
	Daily        []DailyPoint   `json:"daily"`
	Weekdays     []WeekdayCount `json:"weekdays"`
	Groups       []Group        `json:"groups"`
}

var weekdayNames = [...]string{"Domingo", "Segunda", "Terça", "Quarta", "Quinta", "Sexta", "Sábado"}

// Summarize 计算合计、均值、日序列与各维度分组
func Summarize(records []*model.ShipmentRecord, dateRange *filter.DateRange) *Summary {
	s := &Summary{
		Count:    len(records),
		HasRange: dateRange != nil,
		Daily:    []DailyPoint{},
		Groups:   GroupAll(records),
	}

	var weight, volumes, invoice, freight decimal.Decimal
	daily := make(map[string]*DailyPoint)
	dailyWeight := make(map[string]decimal.Decimal)
	weekdays := make([]int, 7)

	for _, r := range records {
		w := amount(r.RealWeight)
		weight = weight.Add(w)
		volumes = volumes.Add(decimal.NewFromInt(int64(r.VolumeCount)))
		invoice = invoice.Add(amount(r.InvoiceValue))
		freight = freight.Add(amount(r.TotalFreight))

		t, ok := parseDate(r.Date)
		if !ok {
			continue
		}
		key := t.Format(model.DateLayout)
		p, exists := daily[key]
		if !exists {
			p = &DailyPoint{Date: key}
			daily[key] = p
		}
		p.Count++
		dailyWeight[key] = dailyWeight[key].Add(w)
		p.Volumes += r.VolumeCount
		weekdays[t.Weekday()]++
	}

	for key, p := range daily {
		p.RealWeight = dailyWeight[key].Round(3).InexactFloat64()
		s.Daily = append(s.Daily, *p)
	}
	sort.Slice(s.Daily, func(i, j int) bool { return s.Daily[i].Date < s.Daily[j].Date })
	if n := len(s.Daily); n > 0 {
		s.Period = &Period{First: s.Daily[0].Date, Last: s.Daily[n-1].Date}
	}

	s.Weekdays = make([]WeekdayCount, 7)
	for i, name := range weekdayNames {
		s.Weekdays[i] = WeekdayCount{Weekday: name, Count: weekdays[i]}
	}

	s.ActiveDays = len(daily)
	if dateRange != nil {
		s.BusinessDays = BusinessDays(dateRange.Start, dateRange.End)
	}

	div := divisors{
		hasRange:  dateRange != nil,
		business:  atLeastOne(s.BusinessDays),
		active:    atLeastOne(s.ActiveDays),
		shipments: atLeastOne(s.Count),
	}
	s.Shipments = div.metric(decimal.NewFromInt(int64(s.Count)), 2)
	s.RealWeight = div.metric(weight, 3)
	s.VolumeCount = div.metric(volumes, 2)
	s.InvoiceValue = div.metric(invoice, 2)
	s.TotalFreight = div.metric(freight, 2)
	return s
}

type divisors struct {
	hasRange  bool
	business  int64
	active    int64
	shipments int64
}

func (d divisors) metric(total decimal.Decimal, places int32) Metric {
	m := Metric{
		Total:       total.Round(places).InexactFloat64(),
		PerShipment: total.Div(decimal.NewFromInt(d.shipments)).Round(places).InexactFloat64(),
	}
	if !d.hasRange {
		m.PerBusinessDay = m.Total
		m.PerActiveDay = m.Total
		return m
	}
	m.PerBusinessDay = total.Div(decimal.NewFromInt(d.business)).Round(places).InexactFloat64()
	m.PerActiveDay = total.Div(decimal.NewFromInt(d.active)).Round(places).InexactFloat64()
	return m
}

// amount 非有限值（NaN、±Inf）按 0 计入合计
func amount(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func atLeastOne(n int) int64 {
	if n < 1 {
		return 1
	}
	return int64(n)
}

// BusinessDays 闭区间内周一至周五的天数
func BusinessDays(start, end time.Time) int {
	y, m, d := start.Date()
	cur := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	y, m, d = end.Date()
	last := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	n := 0
	for !cur.After(last) {
		if wd := cur.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
		cur = cur.AddDate(0, 0, 1)
	}
	return n
}

// ActiveDays 记录中出现的不同日期数
func ActiveDays(records []*model.ShipmentRecord) int {
	seen := make(map[string]struct{})
	for _, r := range records {
		if t, ok := parseDate(r.Date); ok {
			seen[t.Format(model.DateLayout)] = struct{}{}
		}
	}
	return len(seen)
}

func parseDate(raw string) (time.Time, bool) {
	t, err := time.Parse(model.DateLayout, raw)
	return t, err == nil
}
