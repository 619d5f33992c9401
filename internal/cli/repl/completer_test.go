package repl

import (
	"reflect"
	"testing"
)

func TestCompleter_Complete(t *testing.T) {
	c := NewCompleter([]string{"session list", "session show", "sync", "status"})

	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{"session prefix", "session", []string{"session list", "session show"}},
		{"session l prefix", "session l", []string{"session list"}},
		{"s prefix", "s", []string{"session list", "session show", "status", "sync"}},
		{"builtin", "h", []string{"help", "history"}},
		{"no match", "xyz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Complete(tt.prefix); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Complete(%q) = %v, want %v", tt.prefix, got, tt.want)
			}
		})
	}
}

func TestCompleter_EmptyPrefixListsAll(t *testing.T) {
	c := NewCompleter([]string{"sync"})
	if got := len(c.Complete("")); got != 1+len(builtins) {
		t.Errorf("Complete(\"\") = %d entries, want %d", got, 1+len(builtins))
	}
}
