package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeProjectName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"requests", "requests"},
		{"Django", "django"},
		{"python_dateutil", "python-dateutil"},
		{"zope.interface", "zope-interface"},
		{"foo--bar__baz", "foo-bar-baz"},
		{"a-._b", "a-b"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeProjectName(tt.in), "input %q", tt.in)
	}
}
