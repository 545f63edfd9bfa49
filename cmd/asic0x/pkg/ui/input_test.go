package ui

import "testing"

func TestEtherTypeRune(t *testing.T) {
	for _, r := range "0123456789abcdefABCDEFxX, " {
		if !EtherTypeRune(r) {
			t.Errorf("EtherTypeRune(%q) = false", r)
		}
	}
	for _, r := range "gGz;-\t" {
		if EtherTypeRune(r) {
			t.Errorf("EtherTypeRune(%q) = true", r)
		}
	}
}

func TestInputInsertable(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		pos  int
		ch   rune
		want bool
	}{
		{"any printable", Input{}, 0, 'q', true},
		{"control rune", Input{}, 0, '\x01', false},
		{"below limit", Input{MaxLength: 4}, 3, '0', true},
		{"at limit", Input{MaxLength: 4}, 4, '0', false},
		{"accepted", Input{Accept: EtherTypeRune}, 0, 'x', true},
		{"rejected", Input{Accept: EtherTypeRune}, 0, 'q', false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.insertable(tt.pos, tt.ch); got != tt.want {
				t.Errorf("insertable(%d, %q) = %v, want %v", tt.pos, tt.ch, got, tt.want)
			}
		})
	}
}
