package whitelist

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		column  string
		want    []string
		wantErr error
	}{
		{
			name:   "plain header",
			input:  "cedula,nombre\nV123,Ana\n v456 ,Luis\n",
			column: "cedula",
			want:   []string{"V123", "V456"},
		},
		{
			name:   "bom and mixed case header",
			input:  "\ufeff Cedula ,Nombre\n123,Ana\n",
			column: "cedula",
			want:   []string{"123"},
		},
		{
			name:   "semicolon separated",
			input:  "nombre;cedula\nAna;777\nLuis;888\n",
			column: "CEDULA",
			want:   []string{"777", "888"},
		},
		{
			name:   "blank and short rows are ignored",
			input:  "nombre,cedula\nAna,\nLuis\nEva,999\n",
			column: "cedula",
			want:   []string{"999"},
		},
		{
			name:    "missing column",
			input:   "nombre,apellido\nAna,Diaz\n",
			column:  "cedula",
			wantErr: errMissingColumn,
		},
		{
			name:    "header only",
			input:   "cedula\n",
			column:  "cedula",
			wantErr: errEmpty,
		},
		{
			name:    "empty file",
			input:   "",
			column:  "cedula",
			wantErr: errEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Parse(strings.NewReader(tt.input), tt.column)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.NewWhitelistSet(tt.want...), set)
		})
	}
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graduacion.csv")
	require.NoError(t, os.WriteFile(path, []byte("cedula\n123\n"), 0o644))

	set, err := NewFileLoader(path, "").Load(context.Background())
	require.NoError(t, err)
	assert.True(t, set.Contains(" 123 "))

	_, err = NewFileLoader(filepath.Join(dir, "missing.csv"), "cedula").Load(context.Background())
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte("nombre\nAna\n"), 0o644))
	_, err = NewFileLoader(path, "cedula").Load(context.Background())
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, errMissingColumn)
}
