package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadCSV(t *testing.T) {
	tests := []struct {
		name     string
		csv      string
		wantRows int
		wantErr  string
	}{
		{
			name:     "two questions",
			csv:      "question,topic\nWhat is dark matter?,cosmology\nWhy is there an arrow of time?,thermodynamics\n",
			wantRows: 2,
		},
		{
			name:     "quoted commas",
			csv:      "question\n\"If a, b, and c commute, what follows?\"\n",
			wantRows: 1,
		},
		{
			name:     "headers only",
			csv:      "question\n",
			wantRows: 0,
		},
		{
			name:    "mismatched column count",
			csv:     "question,topic\nok,fine\nbad\n",
			wantErr: "wrong number of fields",
		},
		{
			name:    "empty file",
			csv:     "",
			wantErr: "no header row",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, t.TempDir(), "q.csv", tt.csv)
			rows, err := LoadCSV(p)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, rows, tt.wantRows)
		})
	}
}

func TestLoadCSV_Values(t *testing.T) {
	p := writeFile(t, t.TempDir(), "q.csv", "question,topic\nWhat is dark matter?,cosmology\n")
	rows, err := LoadCSV(p)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "What is dark matter?", rows[0]["question"])
	assert.Equal(t, "cosmology", rows[0]["topic"])
}

func TestLoadCSV_MissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv: open")
}
