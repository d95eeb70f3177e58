package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		given   string
		address string
		want    string
	}{
		{"explicit name wins", "Ann", "someone@example.com", "Ann"},
		{"explicit name is trimmed", "  Ann ", "someone@example.com", "Ann"},
		{"dotted local part", "", "ann.lee@example.com", "Ann Lee"},
		{"single piece local part", " ", "ann@example.com", "Ann"},
		{"first and last of many pieces", "", "ann_b-lee@example.com", "Ann Lee"},
		{"no usable local part", "", "@example.com", "User"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.given, tt.address))
		})
	}
}
