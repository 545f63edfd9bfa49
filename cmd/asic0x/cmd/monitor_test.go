package cmd

import (
	"reflect"
	"testing"
)

func TestParseEtherTypes(t *testing.T) {
	tests := []struct {
		in      string
		want    []uint16
		wantErr bool
	}{
		{"", nil, false},
		{"0x0800", []uint16{0x0800}, false},
		{"0x0806, 0x86dd,", []uint16{0x0806, 0x86DD}, false},
		{"2048", []uint16{0x0800}, false},
		{"0x10000", nil, true},
		{"arp", nil, true},
	}
	for _, tt := range tests {
		got, err := parseEtherTypes(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseEtherTypes(%q) error = %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseEtherTypes(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInFilters(t *testing.T) {
	t.Cleanup(func() { filters = nil })
	filters = nil
	if !inFilters(0x0800) {
		t.Error("empty filter rejected a frame")
	}
	filters = []uint16{0x0806}
	if inFilters(0x0800) || !inFilters(0x0806) {
		t.Error("filter mismatch")
	}
}
