package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveK(t *testing.T) {
	tests := []struct {
		name     string
		flagK    int
		defaultK int
		want     int
	}{
		{"flag wins", 5, 12, 5},
		{"config default", 0, 8, 8},
		{"server default", 0, 0, 12},
		{"capped", 500, 12, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveK(tt.flagK, tt.defaultK))
		})
	}
}
