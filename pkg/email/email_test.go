package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidShape(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"ada@example.com", true},
		{"a.b+tag@mail.example.org", true},
		{"", false},
		{"not-an-email", false},
		{"@example.com", false},
		{"ada@", false},
		{"ada@example", false},
		{"ada@example.", false},
		{"ada@@example.com", false},
		{"ada lovelace@example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidShape(tt.addr))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ada@example.com", Normalize("  Ada@Example.COM "))
}

func TestDeriveNameFromEmail(t *testing.T) {
	tests := []struct {
		email string
		first string
		last  string
	}{
		{"ada.lovelace@example.com", "Ada", "Lovelace"},
		{"grace_hopper@example.com", "Grace", "Hopper"},
		{"linus@example.com", "Linus", "User"},
		{"a.b.c@example.com", "A", "C"},
		{"...@example.com", "User", "User"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			first, last := DeriveNameFromEmail(tt.email)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		})
	}
}
