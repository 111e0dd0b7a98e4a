package verifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameCorroborated(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		surname string
		want    bool
	}{
		{"exact hit", "REPUBLIC OF UTOPIA ERIKSSON ANNA", "Eriksson", true},
		{"one OCR error", "ERIKSSQN ANNA", "Eriksson", true},
		{"inside mrz line", "P<UTOERIKSSON<<ANNA<MARIA", "Eriksson", true},
		{"absent", "completely unrelated text", "Eriksson", false},
		{"empty surname never blocks", "anything", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nameCorroborated(tt.text, tt.surname))
		})
	}
}
