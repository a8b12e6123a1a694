package security_test

import (
	"testing"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/security"
	"github.com/stretchr/testify/require"
)

func TestNewOriginList(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want security.OriginList
	}{
		{"empty", nil, security.OriginList{}},
		{"strips trailing slash", []string{"https://a.example/"}, security.OriginList{"https://a.example"}},
		{"drops blanks", []string{"", "  ", "https://a.example"}, security.OriginList{"https://a.example"}},
		{
			"dedupes keeping first-seen order",
			[]string{"https://b.example", "https://a.example/", "https://b.example/", "https://a.example"},
			security.OriginList{"https://b.example", "https://a.example"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, security.NewOriginList(tt.raw...))
		})
	}
}

func TestOriginList_Contains(t *testing.T) {
	l := security.NewOriginList("https://a.example")
	require.True(t, l.Contains("https://a.example/"))
	require.False(t, l.Contains("https://b.example"))
	require.Equal(t, "https://a.example", l.String())
}
