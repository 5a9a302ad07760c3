package model

import "strings"

// DateLayout 日期持久化格式
const DateLayout = "2006-01-02"

// ShipmentRecord 运单记录（唯一持久化实体）
type ShipmentRecord struct {
	ID int64 `json:"id"`

	Date          string `json:"date"` // YYYY-MM-DD
	OriginCity    string `json:"originCity"`
	OriginState   string `json:"originState"`
	OriginBase    string `json:"originBase"`
	InvoiceNumber string `json:"invoiceNumber"` // NF，不做唯一性约束

	InvoiceValue float64 `json:"invoiceValue"`
	VolumeCount  int     `json:"volumeCount"`
	RealWeight   float64 `json:"realWeight"`
	CubicWeight  float64 `json:"cubicWeight"`

	DestinationCity  string `json:"destinationCity"`
	DestinationState string `json:"destinationState"`
	DestinationBase  string `json:"destinationBase"`
	Sector           string `json:"sector"`

	FreightWeightCost float64 `json:"freightWeightCost"`
	InsuranceValue    float64 `json:"insuranceValue"`
	TotalFreight      float64 `json:"totalFreight"`
}

// Text 返回字符串类字段的值，非字符串字段返回空串
func (r *ShipmentRecord) Text(name FieldName) string {
	switch name {
	case FieldDate:
		return r.Date
	case FieldOriginCity:
		return r.OriginCity
	case FieldOriginState:
		return r.OriginState
	case FieldOriginBase:
		return r.OriginBase
	case FieldInvoiceNumber:
		return r.InvoiceNumber
	case FieldDestinationCity:
		return r.DestinationCity
	case FieldDestinationState:
		return r.DestinationState
	case FieldDestinationBase:
		return r.DestinationBase
	case FieldSector:
		return r.Sector
	}
	return ""
}

// SetText 设置字符串类字段
func (r *ShipmentRecord) SetText(name FieldName, v string) {
	switch name {
	case FieldDate:
		r.Date = v
	case FieldOriginCity:
		r.OriginCity = v
	case FieldOriginState:
		r.OriginState = v
	case FieldOriginBase:
		r.OriginBase = v
	case FieldInvoiceNumber:
		r.InvoiceNumber = v
	case FieldDestinationCity:
		r.DestinationCity = v
	case FieldDestinationState:
		r.DestinationState = v
	case FieldDestinationBase:
		r.DestinationBase = v
	case FieldSector:
		r.Sector = v
	}
}

// SetDecimal 设置小数类字段
func (r *ShipmentRecord) SetDecimal(name FieldName, v float64) {
	switch name {
	case FieldInvoiceValue:
		r.InvoiceValue = v
	case FieldRealWeight:
		r.RealWeight = v
	case FieldCubicWeight:
		r.CubicWeight = v
	case FieldFreightWeightCost:
		r.FreightWeightCost = v
	case FieldInsuranceValue:
		r.InsuranceValue = v
	case FieldTotalFreight:
		r.TotalFreight = v
	}
}

// MissingRequired 返回为空的必填字段
func (r *ShipmentRecord) MissingRequired() []FieldName {
	var missing []FieldName
	for _, name := range RequiredFields() {
		if strings.TrimSpace(r.Text(name)) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Values 按 Fields 顺序返回列值（用于 INSERT）
func (r *ShipmentRecord) Values() []interface{} {
	return []interface{}{
		r.Date, r.OriginCity, r.OriginState, r.OriginBase, r.InvoiceNumber,
		r.InvoiceValue, r.VolumeCount, r.RealWeight, r.CubicWeight,
		r.DestinationCity, r.DestinationState, r.DestinationBase, r.Sector,
		r.FreightWeightCost, r.InsuranceValue, r.TotalFreight,
	}
}
