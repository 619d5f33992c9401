package service

import (
	"context"
	"errors"
	"testing"

	"github.com/yndnr/sessbox-go/internal/core/domain"
	"github.com/yndnr/sessbox-go/internal/storage/memory"
)

func TestBlocklistService_Persistence(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	b := NewBlocklistService(store)
	if err := b.Load(ctx); err != nil {
		t.Fatalf("Load() on empty store error = %v", err)
	}
	if added, err := b.Add(ctx, "Bank.Example"); err != nil || !added {
		t.Fatalf("Add() = %v, %v", added, err)
	}
	if added, _ := b.Add(ctx, "bank.example"); added {
		t.Error("duplicate Add() reported insertion")
	}
	b.Add(ctx, "*.corp.internal")

	reloaded := NewBlocklistService(store)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got := reloaded.Entries()
	if len(got) != 2 || got[0] != "*.corp.internal" || got[1] != "bank.example" {
		t.Errorf("Entries() = %v", got)
	}
	if !reloaded.Blocked("https://vpn.corp.internal/") {
		t.Error("wildcard entry not applied after reload")
	}

	if removed, err := reloaded.Remove(ctx, "bank.example"); err != nil || !removed {
		t.Errorf("Remove() = %v, %v", removed, err)
	}
	if removed, _ := reloaded.Remove(ctx, "bank.example"); removed {
		t.Error("second Remove() reported removal")
	}
}

func TestBlocklistService_Errors(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	b := NewBlocklistService(store)

	if _, err := b.Add(ctx, "  "); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("Add(blank) error = %v, want ErrInvalidArgument", err)
	}

	store.FailWrites(errors.New("disk full"))
	if _, err := b.Add(ctx, "example.com"); !errors.Is(err, domain.ErrStorage) {
		t.Errorf("Add() error = %v, want ErrStorage", err)
	}
	if b.Blocked("example.com") {
		t.Error("failed Add() must not change the list")
	}

	store.FailWrites(nil)
	if err := store.Set(ctx, "sessbox/blocklist", []byte("{broken")); err != nil {
		t.Fatal(err)
	}
	if err := b.Load(ctx); !errors.Is(err, domain.ErrStorage) {
		t.Errorf("Load() of corrupt data error = %v, want ErrStorage", err)
	}
}
