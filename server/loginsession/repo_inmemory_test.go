package loginsession_test

import (
	"testing"
	"time"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/errors"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/server/loginsession"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLoginSessionRepo(t *testing.T) {
	r := loginsession.NewInMemoryLoginSessionRepo()
	signedIn := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	t.Run("rejects empty surface", func(t *testing.T) {
		require.True(t, errors.Is(r.Upsert("", loginsession.Session{}), errors.ErrInvalidIdentifier))
		_, err := r.Get("")
		require.True(t, errors.Is(err, errors.ErrInvalidIdentifier))
		require.True(t, errors.Is(r.Delete(""), errors.ErrInvalidIdentifier))
	})

	t.Run("upsert replaces", func(t *testing.T) {
		require.NoError(t, r.Upsert("a", loginsession.Session{SurfaceID: "ignored", Subject: "first", SignedInAt: signedIn}))
		require.NoError(t, r.Upsert("a", loginsession.Session{Subject: "second", SignedInAt: signedIn}))

		got, err := r.Get("a")
		require.NoError(t, err)
		require.Equal(t, "a", got.SurfaceID)
		require.Equal(t, "second", got.Subject)
		require.Equal(t, 1, r.Count())
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, r.Delete("a"))
		require.NoError(t, r.Delete("a"))
		_, err := r.Get("a")
		require.True(t, errors.Is(err, errors.ErrNotFound))
		require.Equal(t, 0, r.Count())
	})
}
