package bolt

import (
	"path/filepath"
	"testing"

	"github.com/louisbranch/tabletop.chat/internal/storage"
	"github.com/louisbranch/tabletop.chat/internal/storage/storetest"
)

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("blank path accepted")
	}
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store {
		store, err := Open(filepath.Join(t.TempDir(), "game.db"))
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}
