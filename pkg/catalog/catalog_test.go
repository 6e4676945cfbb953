package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, "motorista", c.DefaultType())
	require.Len(t, c.Types(), 3)
	assert.Equal(t, "motorista", c.Types()[0].Name)

	vehicle, ok := c.Lookup("veiculo")
	require.True(t, ok)
	assert.Equal(t, "CRLV", vehicle.Checklist[0].Name)
	assert.True(t, vehicle.Checklist[0].Mandatory)
}

func TestResolve(t *testing.T) {
	c := Default()

	tests := []struct {
		name       string
		candidates []string
		want       string
		wantErr    error
	}{
		{name: "explicit", candidates: []string{"veiculo", "motorista"}, want: "veiculo"},
		{name: "falls back to second", candidates: []string{"", "transportadora"}, want: "transportadora"},
		{name: "default", candidates: []string{"", ""}, want: "motorista"},
		{name: "none", want: "motorista"},
		{name: "unknown", candidates: []string{"navio"}, wantErr: ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Resolve(tt.candidates...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestValidateFields(t *testing.T) {
	c := Default()

	tests := []struct {
		name     string
		typeName string
		fields   map[string]any
		wantErr  error
	}{
		{name: "valid", typeName: "veiculo", fields: map[string]any{"rntrc": "12345678", "axles": 3}},
		{name: "nil fields", typeName: "veiculo"},
		{name: "bad pattern", typeName: "veiculo", fields: map[string]any{"rntrc": "abc"}, wantErr: ErrInvalidFields},
		{name: "out of range", typeName: "veiculo", fields: map[string]any{"axles": 12}, wantErr: ErrInvalidFields},
		{name: "no schema", typeName: "transportadora", fields: map[string]any{"anything": true}},
		{name: "unknown type", typeName: "navio", wantErr: ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.ValidateFields(tt.typeName, tt.fields)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")

	err := os.WriteFile(path, []byte(`{
		"default_type": "agregado",
		"types": [{"name": "agregado", "checklist": [{"name": "Contrato", "mandatory": true}]}]
	}`), 0600)
	require.NoError(t, err)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "agregado", c.DefaultType())

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"default_type": "x", "types": []}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"default_type": "a", "types": [{"name": "a"}, {"name": "a"}]}`))
	assert.Error(t, err)

	c, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "motorista", c.DefaultType())
}
