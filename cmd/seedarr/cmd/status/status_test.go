package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsData(t *testing.T) {
	data := statsData(map[string]any{
		"daemon": map[string]any{
			"running":     true,
			"subscribers": float64(2),
		},
		"runtime": map[string]any{
			"goroutines": float64(12),
			"load":       0.5,
		},
		"cache": nil,
	})

	assert.Equal(t, []string{"Stat", "Value"}, data.Headers)
	assert.Equal(t, [][]string{
		{"cache", "-"},
		{"daemon.running", "true"},
		{"daemon.subscribers", "2"},
		{"runtime.goroutines", "12"},
		{"runtime.load", "0.50"},
	}, data.Rows)
}
