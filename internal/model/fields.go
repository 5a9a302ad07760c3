package model

// FieldName 规范字段名（与表头措辞无关）
type FieldName string

const (
	FieldDate              FieldName = "date"
	FieldOriginCity        FieldName = "originCity"
	FieldOriginState       FieldName = "originState"
	FieldOriginBase        FieldName = "originBase"
	FieldInvoiceNumber     FieldName = "invoiceNumber"
	FieldInvoiceValue      FieldName = "invoiceValue"
	FieldVolumeCount       FieldName = "volumeCount"
	FieldRealWeight        FieldName = "realWeight"
	FieldCubicWeight       FieldName = "cubicWeight"
	FieldDestinationCity   FieldName = "destinationCity"
	FieldDestinationState  FieldName = "destinationState"
	FieldDestinationBase   FieldName = "destinationBase"
	FieldSector            FieldName = "sector"
	FieldFreightWeightCost FieldName = "freightWeightCost"
	FieldInsuranceValue    FieldName = "insuranceValue"
	FieldTotalFreight      FieldName = "totalFreight"
)

// FieldKind 字段语义类型
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindDecimal FieldKind = "decimal"
	KindInteger FieldKind = "integer"
	KindDate    FieldKind = "date"
)

// FieldSpec 规范字段定义
type FieldSpec struct {
	Name     FieldName `json:"name"`
	Column   string    `json:"column"` // 数据库列名
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`
}

// Fields 全部规范字段，顺序即数据库列顺序（id 除外）
var Fields = []FieldSpec{
	{Name: FieldDate, Column: "date", Kind: KindDate, Required: true},
	{Name: FieldOriginCity, Column: "origin_city", Kind: KindString, Required: true},
	{Name: FieldOriginState, Column: "origin_state", Kind: KindString, Required: true},
	{Name: FieldOriginBase, Column: "origin_base", Kind: KindString, Required: true},
	{Name: FieldInvoiceNumber, Column: "invoice_number", Kind: KindString, Required: true},
	{Name: FieldInvoiceValue, Column: "invoice_value", Kind: KindDecimal},
	{Name: FieldVolumeCount, Column: "volume_count", Kind: KindInteger},
	{Name: FieldRealWeight, Column: "real_weight", Kind: KindDecimal},
	{Name: FieldCubicWeight, Column: "cubic_weight", Kind: KindDecimal},
	{Name: FieldDestinationCity, Column: "destination_city", Kind: KindString},
	{Name: FieldDestinationState, Column: "destination_state", Kind: KindString},
	{Name: FieldDestinationBase, Column: "destination_base", Kind: KindString},
	{Name: FieldSector, Column: "sector", Kind: KindString},
	{Name: FieldFreightWeightCost, Column: "freight_weight_cost", Kind: KindDecimal},
	{Name: FieldInsuranceValue, Column: "insurance_value", Kind: KindDecimal},
	{Name: FieldTotalFreight, Column: "total_freight", Kind: KindDecimal},
}

var fieldIndex = func() map[FieldName]FieldSpec {
	m := make(map[FieldName]FieldSpec, len(Fields))
	for _, f := range Fields {
		m[f.Name] = f
	}
	return m
}()

// LookupField 按规范名查找字段定义
func LookupField(name FieldName) (FieldSpec, bool) {
	f, ok := fieldIndex[name]
	return f, ok
}

// RequiredFields 必填规范字段（按定义顺序）
func RequiredFields() []FieldName {
	var out []FieldName
	for _, f := range Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Columns 数据库列名（按定义顺序，不含 id）
func Columns() []string {
	cols := make([]string, len(Fields))
	for i, f := range Fields {
		cols[i] = f.Column
	}
	return cols
}
