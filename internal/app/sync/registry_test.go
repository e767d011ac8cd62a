package sync_test

import (
	"testing"

	"github.com/dalemusser/greencrew/internal/app/store"
	"github.com/dalemusser/greencrew/internal/app/sync"
	"go.uber.org/zap"
)

func newCountingFactory(factories, teardowns *int) sync.ListenerFactory {
	return func() (store.Unsubscribe, error) {
		*factories++
		return func() { *teardowns++ }, nil
	}
}

func TestRegistrySubscribeReplacesExisting(t *testing.T) {
	reg := sync.NewRegistry(zap.NewNop())

	var factories, teardowns int
	if err := reg.Subscribe("k", newCountingFactory(&factories, &teardowns)); err != nil {
		t.Fatalf("first Subscribe: %v", err)
	}
	if err := reg.Subscribe("k", newCountingFactory(&factories, &teardowns)); err != nil {
		t.Fatalf("second Subscribe: %v", err)
	}

	// Two factories ran, exactly one teardown (of the first handle).
	if factories != 2 {
		t.Errorf("factories = %d, want 2", factories)
	}
	if teardowns != 1 {
		t.Errorf("teardowns = %d, want 1", teardowns)
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestRegistryUnsubscribe(t *testing.T) {
	reg := sync.NewRegistry(zap.NewNop())

	var factories, teardowns int
	if err := reg.Subscribe("k", newCountingFactory(&factories, &teardowns)); err != nil {
		t.Fatal(err)
	}

	reg.Unsubscribe("k")
	if teardowns != 1 {
		t.Errorf("teardowns = %d, want 1", teardowns)
	}
	if reg.Has("k") {
		t.Error("Has(k) = true after Unsubscribe")
	}

	// Absent key is a no-op.
	reg.Unsubscribe("k")
	reg.Unsubscribe("never-existed")
	if teardowns != 1 {
		t.Errorf("teardowns = %d after no-op unsubscribes, want 1", teardowns)
	}
}

func TestRegistryUnsubscribeAllIdempotent(t *testing.T) {
	reg := sync.NewRegistry(zap.NewNop())

	var factories, teardowns int
	for _, key := range []string{"a", "b", "c"} {
		if err := reg.Subscribe(key, newCountingFactory(&factories, &teardowns)); err != nil {
			t.Fatal(err)
		}
	}

	reg.UnsubscribeAll()
	if teardowns != 3 {
		t.Errorf("teardowns = %d, want 3", teardowns)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}

	// Second full teardown invokes nothing further.
	reg.UnsubscribeAll()
	if teardowns != 3 {
		t.Errorf("teardowns = %d after second UnsubscribeAll, want 3", teardowns)
	}
}

func TestRegistryFactoryErrorNotStored(t *testing.T) {
	reg := sync.NewRegistry(zap.NewNop())

	wantErr := errTest
	err := reg.Subscribe("k", func() (store.Unsubscribe, error) {
		return nil, wantErr
	})
	if err != wantErr {
		t.Fatalf("Subscribe() err = %v, want %v", err, wantErr)
	}
	if reg.Has("k") {
		t.Error("failed subscription was stored")
	}
}

// A factory whose snapshot handler fires synchronously and subscribes
// other keys must not deadlock or corrupt the registry.
func TestRegistryReentrantSubscribe(t *testing.T) {
	reg := sync.NewRegistry(zap.NewNop())

	var innerTeardowns int
	err := reg.Subscribe("outer", func() (store.Unsubscribe, error) {
		inner := reg.Subscribe("inner", func() (store.Unsubscribe, error) {
			return func() { innerTeardowns++ }, nil
		})
		if inner != nil {
			t.Fatalf("inner Subscribe: %v", inner)
		}
		return func() {}, nil
	})
	if err != nil {
		t.Fatalf("outer Subscribe: %v", err)
	}

	if reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reg.Len())
	}
	reg.UnsubscribeAll()
	if innerTeardowns != 1 {
		t.Errorf("inner teardowns = %d, want 1", innerTeardowns)
	}
}
