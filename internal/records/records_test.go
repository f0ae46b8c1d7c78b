package records

import (
	"encoding/json"
	"testing"
)

type namedList []any

func TestInt(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want int
		ok   bool
	}{
		{"int", 2010, 2010, true},
		{"int64", int64(1999), 1999, true},
		{"int32", int32(7), 7, true},
		{"uint", uint(3), 3, true},
		{"float64 integral", float64(2015), 2015, true},
		{"float64 fractional", 2015.5, 0, false},
		{"json number int", json.Number("2011"), 2011, true},
		{"json number float integral", json.Number("2011.0"), 2011, true},
		{"json number fractional", json.Number("2011.7"), 0, false},
		{"string int", "2020", 2020, true},
		{"string padded", "  2020 ", 2020, true},
		{"string float integral", "2020.0", 2020, true},
		{"string garbage", "unknown", 0, false},
		{"empty string", "", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
		{"slice", []any{1}, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Int(tc.in)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("Int(%v) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestIsEmpty(t *testing.T) {
	empty := []any{nil, "", "   ", "\t\n", []any{}, []string{}, map[string]any{}, namedList{}}
	for _, v := range empty {
		if !IsEmpty(v) {
			t.Errorf("IsEmpty(%#v) = false, want true", v)
		}
	}

	present := []any{0, false, "x", []any{nil}, []string{""}, map[string]any{"k": nil}, namedList{"a"}, 3.14}
	for _, v := range present {
		if IsEmpty(v) {
			t.Errorf("IsEmpty(%#v) = true, want false", v)
		}
	}
}

func TestListLen(t *testing.T) {
	cases := []struct {
		in   any
		want int
	}{
		{[]any{"a", "b", "c"}, 3},
		{[]string{"a"}, 1},
		{namedList{"a", "b"}, 2},
		{[]any{}, 0},
		{"scalar", 0},
		{42, 0},
		{nil, 0},
		{map[string]any{"k": "v"}, 0},
	}
	for _, tc := range cases {
		if got := ListLen(tc.in); got != tc.want {
			t.Errorf("ListLen(%#v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
