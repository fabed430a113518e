package session

import (
	"sync"
	"testing"
)

func TestStoreLifecycle(t *testing.T) {
	store := NewStore()

	if store.Has(1) {
		t.Error("Has(1) = true on empty store")
	}
	if store.Get(1) != nil {
		t.Error("Get(1) != nil on empty store")
	}

	store.Set(1, &Session{Step: StepTitle})

	if !store.Has(1) {
		t.Error("Has(1) = false after Set")
	}
	sess := store.Get(1)
	if sess == nil || sess.Step != StepTitle {
		t.Fatalf("Get(1) = %+v, want step %q", sess, StepTitle)
	}

	sess.Step = StepPriority
	sess.Draft.Title = "Отчет"
	store.Set(1, sess)

	got := store.Get(1)
	if got.Step != StepPriority || got.Draft.Title != "Отчет" {
		t.Errorf("Get(1) = %+v after update", got)
	}

	store.Delete(1)
	if store.Has(1) {
		t.Error("Has(1) = true after Delete")
	}
	// Deleting a missing session is a no-op.
	store.Delete(1)
}

func TestStoreIsolatesUsers(t *testing.T) {
	store := NewStore()
	store.Set(1, &Session{Step: StepTitle})
	store.Set(2, &Session{Step: StepDate})

	if store.Get(1).Step != StepTitle {
		t.Error("user 1 session overwritten")
	}
	if store.Get(2).Step != StepDate {
		t.Error("user 2 session overwritten")
	}

	store.Delete(1)
	if !store.Has(2) {
		t.Error("deleting user 1 removed user 2's session")
	}
}

func TestClear(t *testing.T) {
	store := NewStore()
	for id := int64(1); id <= 5; id++ {
		store.Set(id, &Session{Step: StepTitle})
	}
	if store.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", store.Len())
	}

	store.Clear()
	if store.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", store.Len())
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			store.Set(id, &Session{Step: StepTitle})
			_ = store.Get(id)
			_ = store.Has(id)
			store.Delete(id)
		}(int64(i % 4))
	}
	wg.Wait()
}
