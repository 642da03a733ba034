package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitFields(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"plain", "a,b,c", []string{"a", "b", "c"}},
		{"trimmed", " a , b ,c ", []string{"a", "b", "c"}},
		{"quoted comma", `"1,000,000",x`, []string{"1,000,000", "x"}},
		{"doubled quote", `"say ""hi""",y`, []string{`say "hi"`, "y"}},
		{"trailing empty", "a,", []string{"a", ""}},
		{"empty line", "", []string{""}},
		{"korean", "서울,강남구", []string{"서울", "강남구"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitFields(tt.line))
		})
	}
}
