package parser

import "testing"

func TestNormalizeHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Nota Fiscal", "nota fiscal"},
		{"  CIDADE_DESTINO ", "cidade destino"},
		{"Cidade\nDestino", "cidade destino"},
		{"Peso\tReal", "peso real"},
		{"Nº  Nota", "nº nota"},
		{"Município Origem", "municipio origem"},
		{"\ufeffData", "data"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeHeader(tt.in); got != tt.want {
			t.Fatalf("NormalizeHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeHeader_AliasVariantsCollapse(t *testing.T) {
	t.Parallel()

	a := NormalizeHeader("Valor da NF")
	b := NormalizeHeader("valor  da nf")
	c := NormalizeHeader("VALOR_DA_NF")
	if a != b || b != c {
		t.Fatalf("variants should collapse: %q %q %q", a, b, c)
	}
}
