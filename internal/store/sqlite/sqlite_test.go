package sqlite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/victorbash400/canary/internal/store"
	"github.com/victorbash400/canary/internal/store/storetest"
)

func TestSQLiteStoreCompliance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		db, err := Open(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		s, err := NewWithDB(db)
		require.NoError(t, err)
		return s
	})
}
