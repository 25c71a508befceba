package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginPatterns(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		want    []string
	}{
		{"urls", []string{"http://localhost:5173", "https://cad.example.com"}, []string{"localhost:5173", "cad.example.com"}},
		{"bare hosts", []string{"localhost:3000"}, []string{"localhost:3000"}},
		{"wildcard", []string{"http://localhost:5173", "*"}, []string{"*"}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, originPatterns(tt.origins))
		})
	}
}
