package parser

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"freightdash/internal/model"
)

var (
	// ErrNoDataRows 工作簿没有数据行
	ErrNoDataRows = errors.New("workbook has no data rows")
	// ErrUnreadableWorkbook 文件无法按 xlsx 解析（包括旧版 .xls）
	ErrUnreadableWorkbook = errors.New("unreadable spreadsheet")
)

// DataRow 数据行
type DataRow struct {
	Index  int          // 数据行序号，从 1 开始（表头下第一行为 1）
	Values model.RawRow // 表头 -> 原始值；空单元格不出现
}

// SheetData 首个工作表的内容
type SheetData struct {
	SheetName string
	Headers   []string
	Rows      []DataRow
}

// ReadWorkbook 读取工作簿的第一个 Sheet：第一行为表头，其余为数据行
// 数值单元格返回 float64，日期格式的数值单元格返回 time.Time，其余返回去空白的 string
func ReadWorkbook(r io.Reader) (*SheetData, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoDataRows
	}
	sheetName := sheets[0]

	rawRows, err := file.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	formattedRows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	if len(rawRows) < 2 {
		return nil, ErrNoDataRows
	}

	data := &SheetData{SheetName: sheetName}
	for _, h := range rawRows[0] {
		data.Headers = append(data.Headers, strings.TrimSpace(h))
	}

	for i := 1; i < len(rawRows); i++ {
		values := make(model.RawRow)
		for col, header := range data.Headers {
			if header == "" || col >= len(rawRows[i]) {
				continue
			}
			raw := strings.TrimSpace(rawRows[i][col])
			if raw == "" {
				continue
			}
			formatted := cellAt(formattedRows, i, col)
			values[header] = typedCell(file, sheetName, col+1, i+1, raw, formatted)
		}
		if len(values) == 0 {
			continue
		}
		data.Rows = append(data.Rows, DataRow{Index: i, Values: values})
	}

	if len(data.Rows) == 0 {
		return nil, ErrNoDataRows
	}
	return data, nil
}

// typedCell 根据单元格类型还原原始值
func typedCell(file *excelize.File, sheet string, col, row int, raw, formatted string) interface{} {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return raw
	}
	cellType, err := file.GetCellType(sheet, axis)
	if err != nil {
		return raw
	}

	switch cellType {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeBool, excelize.CellTypeError,
		excelize.CellTypeDate:
		return raw
	}

	num, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	if looksLikeDate(formatted) {
		if t, ok := excelSerialDate(num); ok {
			return t
		}
	}
	return num
}

// looksLikeDate 格式化后的文本是否为日期显示
func looksLikeDate(formatted string) bool {
	s := strings.TrimPrefix(strings.TrimSpace(formatted), "-")
	return strings.ContainsAny(s, "/-")
}

func cellAt(rows [][]string, row, col int) string {
	if row >= len(rows) || col >= len(rows[row]) {
		return ""
	}
	return rows[row][col]
}
