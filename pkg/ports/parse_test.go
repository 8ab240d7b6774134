package ports

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"80", []int{80}, false},
		{"22, 80,443", []int{22, 80, 443}, false},
		{"80,22,80", []int{80, 22}, false},
		{"20-23,22", []int{20, 21, 22, 23}, false},
		{"", nil, true},
		{" , ", nil, true},
		{"http", nil, true},
		{"0", nil, true},
		{"65536", nil, true},
		{"30-20", nil, true},
		{"1-", nil, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseRange(t *testing.T) {
	start, end, err := ParseRange(" 1000 - 1010 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != 1000 || end != 1010 {
		t.Errorf("got %d-%d, want 1000-1010", start, end)
	}
	if _, _, err := ParseRange("1000"); err == nil {
		t.Error("expected error without dash")
	}
}
