package model

// RawRow 表头 -> 原始单元格值（string / float64 / time.Time），仅在导入期间存在
type RawRow map[string]interface{}

// FieldMatch 规范字段与本文件中命中的表头
type FieldMatch struct {
	Field  FieldName `json:"field"`
	Header string    `json:"header"`
}

// MissingField 缺失的必填字段及可接受的表头写法
type MissingField struct {
	Field           FieldName `json:"field"`
	AcceptedHeaders []string  `json:"acceptedHeaders"`
}

// RowFailure 单行导入失败（不中断整批）
type RowFailure struct {
	RowIndex int    `json:"rowIndex"` // 数据行序号，从 1 开始
	Reason   string `json:"reason"`
	Raw      RawRow `json:"raw"`
}

// RowWarning 单元格规范化异常（已采用默认值）
type RowWarning struct {
	RowIndex int       `json:"rowIndex"`
	Field    FieldName `json:"field"`
	Raw      string    `json:"raw"`
	Message  string    `json:"message"`
}

// ImportReport 导入报告
type ImportReport struct {
	ImportID     string       `json:"importId"`
	Filename     string       `json:"filename"`
	Checksum     string       `json:"checksum,omitempty"`
	TotalRows    int          `json:"totalRows"`
	Inserted     int          `json:"inserted"`
	Failures     []RowFailure `json:"failures"`
	Warnings     []RowWarning `json:"warnings"`
	FieldsUsed   []FieldMatch `json:"fieldsUsed"`
	HeadersFound []string     `json:"headersFound"`
	DurationMs   int64        `json:"durationMs"`
}

// ImportLog 导入日志
type ImportLog struct {
	ID           string  `json:"id"`
	Filename     string  `json:"filename"`
	Checksum     string  `json:"checksum"`
	FileSize     int64   `json:"fileSize"`
	TotalRows    int     `json:"totalRows"`
	InsertedRows int     `json:"insertedRows"`
	FailedRows   int     `json:"failedRows"`
	Status       string  `json:"status"` // processing/completed/failed
	ErrorMessage string  `json:"errorMessage,omitempty"`
	StartedAt    string  `json:"startedAt"`
	CompletedAt  *string `json:"completedAt,omitempty"`
}
