package inspect

import (
	"errors"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr error
	}{
		{"/mboards/0", "/mboards/0", nil},
		{"mboards/0", "/mboards/0", nil},
		{"  mboards/0/ ", "/mboards/0", nil},
		{"/", "/", nil},
		{"", "", ErrEmptyPath},
		{"/a//b", "", ErrInvalidPath},
		{"/a/../b", "", ErrInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizePath(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NormalizePath(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizePath(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/mboards/0/rx_dsps/*/freq/value", "/mboards/0/rx_dsps/1/freq/value", true},
		{"/mboards/0/rx_dsps/*/freq/value", "/mboards/0/rx_dsps/1/rate/value", false},
		{"/mboards/0/rx_dsps/*", "/mboards/0/rx_dsps/1/freq/value", false},
		{"/mboards/0/**", "/mboards/0/rx_dsps/1/freq/value", true},
		{"/mboards/0/**", "/mboards/0", true},
		{"/mboards/1/**", "/mboards/0/name", false},
		{"/a/b", "/a/b", true},
		{"/a/b", "/a", false},
	}
	for _, tt := range tests {
		if got := Match(tt.pattern, tt.path); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

func TestFilter(t *testing.T) {
	paths := []string{"/a/0/x", "/a/1/x", "/a/1/y"}
	got := Filter("/a/*/x", paths)
	if len(got) != 2 || got[0] != "/a/0/x" || got[1] != "/a/1/x" {
		t.Errorf("Filter() = %v", got)
	}
}

func TestPatternRoot(t *testing.T) {
	tests := map[string]string{
		"/mboards/0/rx_dsps/*/freq": "/mboards/0/rx_dsps",
		"/*":                        "/",
		"/a/b":                      "/a/b",
		"/a/**":                     "/a",
	}
	for pattern, want := range tests {
		if got := PatternRoot(pattern); got != want {
			t.Errorf("PatternRoot(%q) = %q, want %q", pattern, got, want)
		}
	}
}

func TestRelative(t *testing.T) {
	tests := []struct {
		root, path, want string
	}{
		{"/", "/a/b", "a/b"},
		{"/a", "/a/b", "b"},
		{"/a", "/a", ""},
		{"/a", "/ab/c", "/ab/c"},
	}
	for _, tt := range tests {
		if got := Relative(tt.root, tt.path); got != tt.want {
			t.Errorf("Relative(%q, %q) = %q, want %q", tt.root, tt.path, got, tt.want)
		}
	}
}
