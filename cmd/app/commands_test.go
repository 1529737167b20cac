package main

import (
	"errors"
	"testing"

	"github.com/starford/idlepick/internal/apperr"
	"github.com/starford/idlepick/internal/models"
)

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"10,20", "30 570", " "})
	if err != nil {
		t.Fatalf("parseIDs: %v", err)
	}
	want := []models.AppID{10, 20, 30, 570}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %d, want %d", i, ids[i], want[i])
		}
	}
}

func TestParseIDs_Invalid(t *testing.T) {
	for _, in := range []string{"abc", "-1", "99999999999"} {
		if _, err := parseIDs([]string{in}); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("parseIDs(%q) err = %v, want ErrValidation", in, err)
		}
	}
}

func TestMask(t *testing.T) {
	cases := map[string]string{
		"":                 "(none)",
		"abc":              "****",
		"ABCDEF0123456789": "************6789",
	}
	for in, want := range cases {
		if got := mask(in); got != want {
			t.Errorf("mask(%q) = %q, want %q", in, got, want)
		}
	}
}
