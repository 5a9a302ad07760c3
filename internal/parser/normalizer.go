package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"freightdash/internal/model"
)

// Normalizer 单元格值规范化；任何输入都不会失败，无法解析时采用默认值并返回异常说明
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer 创建规范化器，now 为空时使用 time.Now（日期兜底值）
func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// Apply 按字段类型规范化原始值并写入记录，返回异常说明（空串表示正常）
func (n *Normalizer) Apply(rec *model.ShipmentRecord, spec model.FieldSpec, raw interface{}) string {
	switch spec.Kind {
	case model.KindDecimal:
		v, ok := Decimal(raw)
		rec.SetDecimal(spec.Name, v)
		if !ok {
			return fmt.Sprintf("valor numérico inválido: %v, registrado como 0", raw)
		}
	case model.KindInteger:
		v, ok := Integer(raw)
		rec.VolumeCount = v
		if !ok {
			return fmt.Sprintf("valor inteiro inválido: %v, registrado como 0", raw)
		}
	case model.KindDate:
		d, ok := Date(raw)
		if !ok {
			d = DateOnly(n.now())
		}
		rec.Date = d.Format(model.DateLayout)
		if !ok {
			return fmt.Sprintf("data inválida: %v, usada a data de hoje %s", raw, rec.Date)
		}
	default:
		rec.SetText(spec.Name, Text(raw))
	}
	return ""
}

// Text 字符串字段：数字按最短形式输出，日期按 YYYY-MM-DD 输出
func Text(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Time:
		return v.Format(model.DateLayout)
	case nil:
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(raw))
}

// Decimal 小数字段：已是数值则保留；字符串只保留数字、逗号、句点和负号，
// 逗号视为小数点（"1.234,56" -> 1234.56）。失败或结果超出 float64 范围返回 0, false
func Decimal(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		cleaned := canonicalDecimal(keepRunes(v, "0123456789,.-"))
		if cleaned == "" {
			return 0, false
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return 0, false
		}
		return finite(d.InexactFloat64())
	}
	return 0, false
}

func finite(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// canonicalDecimal 统一小数分隔符为句点，去掉千分位
func canonicalDecimal(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}

// Integer 整数字段：字符串去掉所有非数字字符后解析。失败或超出 int 范围返回 0, false
func Integer(raw interface{}) (int, bool) {
	switch v := raw.(type) {
	case float64:
		return intFromFloat(v)
	case float32:
		return intFromFloat(float64(v))
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		digits := keepRunes(v, "0123456789")
		if digits == "" {
			return 0, false
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func intFromFloat(v float64) (int, bool) {
	if math.IsNaN(v) || v >= math.MaxInt || v < math.MinInt {
		return 0, false
	}
	return int(v), true
}

var genericDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02-01-2006",
	"02.01.2006",
	"2006.01.02",
	"20060102",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	time.RFC1123,
}

// Date 日期字段，结果只保留日期部分（UTC 零点）
// 含 "/" 按 DD/MM/YYYY，含 "-" 按 YYYY-MM-DD，其余尝试通用格式与 Excel 序列号
func Date(raw interface{}) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return DateOnly(v), true
	case float64:
		return excelSerialDate(v)
	case int:
		return excelSerialDate(float64(v))
	case string:
		return parseDateString(strings.TrimSpace(v))
	}
	return time.Time{}, false
}

// DateOnly 去掉时分秒
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseDateString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	datePart := s
	if i := strings.IndexAny(datePart, " T"); i > 0 {
		datePart = datePart[:i]
	}

	switch {
	case strings.Contains(datePart, "/"):
		if d, ok := dateFromParts(datePart, "/", 2, 1, 0); ok {
			return d, true
		}
	case strings.Contains(datePart, "-"):
		if d, ok := dateFromParts(datePart, "-", 0, 1, 2); ok {
			return d, true
		}
	}

	for _, layout := range genericDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOnly(t), true
		}
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return excelSerialDate(f)
	}
	return time.Time{}, false
}

// dateFromParts 按分隔符切分并按给定下标取年/月/日
func dateFromParts(s, sep string, yi, mi, di int) (time.Time, bool) {
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, false
		}
		nums[i] = n
	}
	year, month, day := nums[yi], nums[mi], nums[di]
	if len(strings.TrimSpace(parts[yi])) <= 2 {
		year += 2000
	}
	return validDate(year, month, day)
}

func validDate(year, month, day int) (time.Time, bool) {
	if year < 1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// excelSerialDate Excel 日期序列号（1900 日期系统）
func excelSerialDate(v float64) (time.Time, bool) {
	if v < 1 || v > 2958465 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(v, false)
	if err != nil {
		return time.Time{}, false
	}
	return DateOnly(t), true
}

func keepRunes(s, allowed string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(allowed, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
