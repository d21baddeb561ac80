package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSender(t *testing.T) {
	cases := []struct {
		name      string
		from      string
		wantName  string
		wantEmail string
	}{
		{"named address", "Sarah Chen <sarah.chen@acme.com>", "Sarah Chen", "sarah.chen@acme.com"},
		{"quoted name", `"Chen, Sarah" <sarah@acme.com>`, "Chen, Sarah", "sarah@acme.com"},
		{"bare address", "john.smith@example.com", "John Smith", "john.smith@example.com"},
		{"hyphenated local part", "mary-jane_watson@example.com", "Mary Jane Watson", "mary-jane_watson@example.com"},
		{"angle brackets without name", "<orders@example.com>", "Orders", "orders@example.com"},
		{"unparseable", "not an address", "Customer", ""},
		{"empty", "", "Customer", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			name, email := ParseSender(tc.from)
			assert.Equal(t, tc.wantName, name)
			assert.Equal(t, tc.wantEmail, email)
		})
	}
}
