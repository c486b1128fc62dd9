package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type valueImpl struct {
	items []string
}

func (valueImpl) String() string { return "value" }

func TestIsNotNil(t *testing.T) {
	var (
		nilPtr   *valueImpl
		nilIface interface{ String() string }
	)
	tests := []struct {
		name     string
		obtained interface{}
		want     bool
	}{
		{name: "nil", obtained: nil, want: false},
		{name: "nil interface", obtained: nilIface, want: false},
		{name: "nil pointer", obtained: nilPtr, want: false},
		{name: "nil map", obtained: map[string]int(nil), want: false},
		{name: "pointer", obtained: &valueImpl{}, want: true},
		{name: "struct value", obtained: valueImpl{items: []string{"a"}}, want: true},
		{name: "number", obtained: 42, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got bool
			assert.NotPanics(t, func() { got, _ = IsNotNil(tt.obtained, "param")() })
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Juan Dela Cruz", CleanString("  Juan Dela Cruz\n"))
	assert.Equal(t, "juan@test.ph", CleanString(" JUAN@test.ph ", true))
}
