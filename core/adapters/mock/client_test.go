package mock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/netresearch/occi-now/core/adapters/mock"
	"github.com/netresearch/occi-now/core/domain"
	"github.com/netresearch/occi-now/core/ports"
)

func TestMockImplementsInterfaces(t *testing.T) {
	var _ ports.NetworkBackend = (*mock.NetworkBackend)(nil)
	var _ ports.BackendFactory = (*mock.Factory)(nil)
}

func TestNetworkBackendCreateAssignsID(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewNetworkBackend()

	id, err := backend.Create(ctx, ports.RawNetwork{"id": "ignored", "title": "n1"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id == "" || id == "ignored" {
		t.Fatalf("Create() id = %q, want a fresh identifier", id)
	}

	got, err := backend.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got["title"] != "n1" {
		t.Errorf("Get() title = %v, want n1", got["title"])
	}
	if got.ID() != id {
		t.Errorf("Get() id = %q, want %q", got.ID(), id)
	}
	if len(backend.CreateCalls) != 1 {
		t.Errorf("CreateCalls = %d, want 1", len(backend.CreateCalls))
	}
}

func TestNetworkBackendGetMissing(t *testing.T) {
	backend := mock.NewNetworkBackend()

	got, err := backend.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Errorf("Get() = %v, want nil", got)
	}
}

func TestNetworkBackendKeepsOrder(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewNetworkBackend()
	backend.SetNetworks(
		ports.RawNetwork{"id": "a"},
		ports.RawNetwork{"id": "b"},
		ports.RawNetwork{"id": "c"},
	)

	if err := backend.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	list, err := backend.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].ID() != "a" || list[1].ID() != "c" {
		t.Errorf("List() = %v, want [a c]", list)
	}
}

func TestNetworkBackendUpdateMergesRange(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewNetworkBackend()
	backend.SetNetworks(ports.RawNetwork{
		"id":    "n1",
		"title": "old",
		"range": ports.RawRange{"address": "10.0.0.0/24", "gateway": "10.0.0.1"},
	})

	err := backend.Update(ctx, "n1", ports.RawNetwork{
		"title": "new",
		"range": ports.RawRange{"gateway": "10.0.0.254"},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := backend.Get(ctx, "n1")
	if got["title"] != "new" {
		t.Errorf("title = %v, want new", got["title"])
	}
	rng := got.Range()
	if rng["address"] != "10.0.0.0/24" || rng["gateway"] != "10.0.0.254" {
		t.Errorf("range = %v, want merged address and gateway", rng)
	}
}

func TestNetworkBackendReplaceDropsMissingKeys(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewNetworkBackend()
	backend.SetNetworks(ports.RawNetwork{"id": "n1", "title": "old", "vlan": 10})

	if err := backend.Replace(ctx, "n1", ports.RawNetwork{"id": "other", "title": "new"}); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	got, _ := backend.Get(ctx, "n1")
	if got["title"] != "new" || got.ID() != "n1" {
		t.Errorf("Get() = %v, want title new under id n1", got)
	}
	if _, ok := got["vlan"]; ok {
		t.Errorf("vlan survived Replace: %v", got)
	}
	if len(backend.ReplaceCalls) != 1 || len(backend.UpdateCalls) != 0 {
		t.Errorf("calls = %d replace, %d update, want 1 and 0", len(backend.ReplaceCalls), len(backend.UpdateCalls))
	}
}

func TestNetworkBackendUnknownID(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewNetworkBackend()

	if err := backend.Update(ctx, "x", ports.RawNetwork{}); !domain.IsNotFound(err) {
		t.Errorf("Update() error = %v, want not found", err)
	}
	if err := backend.Replace(ctx, "x", ports.RawNetwork{}); !domain.IsNotFound(err) {
		t.Errorf("Replace() error = %v, want not found", err)
	}
	if err := backend.Delete(ctx, "x"); !domain.IsNotFound(err) {
		t.Errorf("Delete() error = %v, want not found", err)
	}
}

func TestNetworkBackendListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewNetworkBackend()
	backend.SetNetworks(ports.RawNetwork{"id": "n1", "title": "keep"})

	list, _ := backend.List(ctx)
	list[0]["title"] = "changed"

	got, _ := backend.Get(ctx, "n1")
	if got["title"] != "keep" {
		t.Errorf("stored title = %v, want keep", got["title"])
	}
}

func TestNetworkBackendHooks(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewNetworkBackend()
	boom := errors.New("boom")
	backend.OnDelete = func(context.Context, string) error { return boom }

	if err := backend.Delete(ctx, "x"); !errors.Is(err, boom) {
		t.Errorf("Delete() error = %v, want %v", err, boom)
	}
	if len(backend.DeleteCalls) != 1 || backend.DeleteCalls[0] != "x" {
		t.Errorf("DeleteCalls = %v, want [x]", backend.DeleteCalls)
	}
}

func TestFactoryRecordsUsers(t *testing.T) {
	ctx := context.Background()
	factory := mock.NewFactory()

	b1, err := factory.NewNetworkBackend(ctx, domain.DelegatedUser{Identity: "alice"})
	if err != nil {
		t.Fatalf("NewNetworkBackend() error = %v", err)
	}
	b2, _ := factory.NewNetworkBackend(ctx, domain.DelegatedUser{Identity: "bob"})

	if b1 != b2 {
		t.Error("sessions should share the same backend")
	}
	if factory.Sessions() != 2 {
		t.Errorf("Sessions() = %d, want 2", factory.Sessions())
	}
	if factory.Users[1].Identity != "bob" {
		t.Errorf("Users[1] = %q, want bob", factory.Users[1].Identity)
	}
}
