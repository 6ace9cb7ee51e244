package primitive_test

import (
	"testing"

	"github.com/calvinalkan/shmregion/primitive"
)

type stubLockKind struct{ uid uint8 }

func (k stubLockKind) UID() uint8       { return k.uid }
func (k stubLockKind) BodySize() uint64 { return 0 }
func (k stubLockKind) Init(d *primitive.LockDescriptor, owner bool) error { return nil }

type stubEventKind struct{ uid uint8 }

func (k stubEventKind) UID() uint8       { return k.uid }
func (k stubEventKind) BodySize() uint64 { return 0 }
func (k stubEventKind) Init(d *primitive.EventDescriptor, owner bool) error { return nil }

func Test_RegisterLockKind_Makes_Kind_Findable_By_UID(t *testing.T) {
	t.Parallel()

	kind := stubLockKind{uid: 200}
	primitive.RegisterLockKind(kind)

	got, ok := primitive.LockKindByUID(200)
	if !ok {
		t.Fatal("LockKindByUID(200) not found after Register")
	}

	if got.UID() != 200 {
		t.Fatalf("got uid %d, want 200", got.UID())
	}
}

func Test_LockKindByUID_Returns_False_For_Unknown_UID(t *testing.T) {
	t.Parallel()

	_, ok := primitive.LockKindByUID(255)
	if ok {
		t.Fatal("LockKindByUID(255) unexpectedly found")
	}
}

func Test_RegisterLockKind_Panics_On_Duplicate_UID(t *testing.T) {
	t.Parallel()

	primitive.RegisterLockKind(stubLockKind{uid: 201})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate uid registration")
		}
	}()

	primitive.RegisterLockKind(stubLockKind{uid: 201})
}

func Test_RegisterEventKind_Makes_Kind_Findable_By_UID(t *testing.T) {
	t.Parallel()

	kind := stubEventKind{uid: 200}
	primitive.RegisterEventKind(kind)

	got, ok := primitive.EventKindByUID(200)
	if !ok {
		t.Fatal("EventKindByUID(200) not found after Register")
	}

	if got.UID() != 200 {
		t.Fatalf("got uid %d, want 200", got.UID())
	}
}
