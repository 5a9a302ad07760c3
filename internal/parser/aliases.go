package parser

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"

	"freightdash/internal/model"
)

// AliasTable 表头写法 -> 规范字段（多对一）
type AliasTable map[string]model.FieldName

// DefaultAliases 内置表头别名
func DefaultAliases() AliasTable {
	return AliasTable{
		"Data":         model.FieldDate,
		"DATA":         model.FieldDate,
		"Data Emissão": model.FieldDate,
		"Data Emissao": model.FieldDate,
		"Dt Emissão":   model.FieldDate,
		"Data Coleta":  model.FieldDate,

		"Cidade Origem":    model.FieldOriginCity,
		"Cidade de Origem": model.FieldOriginCity,
		"Origem":           model.FieldOriginCity,

		"UF Origem":     model.FieldOriginState,
		"UF de Origem":  model.FieldOriginState,
		"Estado Origem": model.FieldOriginState,

		"Base Origem":    model.FieldOriginBase,
		"Base de Origem": model.FieldOriginBase,
		"Filial Origem":  model.FieldOriginBase,

		"NF":          model.FieldInvoiceNumber,
		"Nota Fiscal": model.FieldInvoiceNumber,
		"Nº NF":       model.FieldInvoiceNumber,
		"N° NF":       model.FieldInvoiceNumber,
		"Numero NF":   model.FieldInvoiceNumber,
		"Número NF":   model.FieldInvoiceNumber,

		"Valor da Nota": model.FieldInvoiceValue,
		"Valor Nota":    model.FieldInvoiceValue,
		"Valor NF":      model.FieldInvoiceValue,
		"Vlr Nota":      model.FieldInvoiceValue,

		"Volumes":     model.FieldVolumeCount,
		"Volume":      model.FieldVolumeCount,
		"Qtd Volumes": model.FieldVolumeCount,

		"Peso":      model.FieldRealWeight,
		"Peso Real": model.FieldRealWeight,

		"Peso Cubado": model.FieldCubicWeight,
		"Cubagem":     model.FieldCubicWeight,

		"Cidade Destino":    model.FieldDestinationCity,
		"Cidade de Destino": model.FieldDestinationCity,
		"Destino":           model.FieldDestinationCity,

		"UF Destino":     model.FieldDestinationState,
		"UF de Destino":  model.FieldDestinationState,
		"Estado Destino": model.FieldDestinationState,

		"Base":         model.FieldDestinationBase,
		"Base Destino": model.FieldDestinationBase,
		"Filial":       model.FieldDestinationBase,

		"Setor":   model.FieldSector,
		"Roteiro": model.FieldSector,

		"Frete Peso": model.FieldFreightWeightCost,

		"Seguro":       model.FieldInsuranceValue,
		"Valor Seguro": model.FieldInsuranceValue,

		"Total Frete": model.FieldTotalFreight,
		"Frete Total": model.FieldTotalFreight,
		"Valor Frete": model.FieldTotalFreight,
	}
}

// Variants 反向索引：规范字段 -> 可接受的表头写法（排序后）
func (t AliasTable) Variants() map[model.FieldName][]string {
	out := make(map[model.FieldName][]string)
	for header, field := range t {
		out[field] = append(out[field], header)
	}
	for field := range out {
		sort.Strings(out[field])
	}
	return out
}

// Clone 复制别名表
func (t AliasTable) Clone() AliasTable {
	out := make(AliasTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// LoadAliasFile 在内置别名基础上合并 YAML 文件中的别名
func LoadAliasFile(path string, base AliasTable) (AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias file: %w", err)
	}

	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse alias file: %w", err)
	}

	out := base.Clone()
	for header, field := range f.Aliases {
		name := model.FieldName(field)
		if _, ok := model.LookupField(name); !ok {
			return nil, fmt.Errorf("alias %q points to unknown field %q", header, field)
		}
		out[header] = name
	}
	return out, nil
}
