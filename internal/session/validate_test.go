package session

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"main", false},
		{"book-club_2", false},
		{"7am", false},
		{strings.Repeat("a", 64), false},
		{"", true},
		{"-flag", true},
		{"_hidden", true},
		{"Main", true},
		{"my session", true},
		{"../etc", true},
		{"my/session", true},
		{strings.Repeat("a", 65), true},
	}
	for _, tt := range tests {
		err := ValidateName(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidName) {
			t.Errorf("ValidateName(%q) error = %v, want ErrInvalidName", tt.input, err)
		}
	}
}
