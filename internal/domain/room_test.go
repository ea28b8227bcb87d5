package domain_test

import (
	"testing"

	"github.com/rensmac/taskboard/internal/domain"
)

func TestNewRoomKey_Normalizes(t *testing.T) {
	a := domain.NewRoomKey("Acme", "blib-3")
	b := domain.NewRoomKey("acme", "BLIB-3")

	if a != b {
		t.Errorf("keys differ after normalization: %v vs %v", a, b)
	}
	if a.OrgSlug != "acme" {
		t.Errorf("org slug not lowercased: %q", a.OrgSlug)
	}
	if a.TaskRef != "BLIB-3" {
		t.Errorf("task ref not uppercased: %q", a.TaskRef)
	}
}

func TestRoomKey_Channel(t *testing.T) {
	k := domain.NewRoomKey("acme", "blib-3")
	want := "task_comments:acme:BLIB-3"
	if got := k.Channel(); got != want {
		t.Errorf("channel mismatch: got %q, want %q", got, want)
	}
}
