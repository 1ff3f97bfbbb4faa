package plaintext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

func TestExtensionsAndPriority(t *testing.T) {
	l := New()
	assert.Equal(t, []string{".txt", ".text"}, l.Extensions())
	assert.Equal(t, 5, l.Priority())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mall_lease.txt")
	require.NoError(t, os.WriteFile(path, []byte("ARTICLE 1\r\nPremises.  \n\n\n\nARTICLE 2\fRent."), 0o600))

	n, err := New().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "ARTICLE 1\nPremises.\n\nARTICLE 2\n\nRent.", n.Text)
	assert.Equal(t, "mall lease", n.Title)
	assert.Equal(t, "text", n.Format)
	require.Len(t, n.Pages, 2)
	assert.Equal(t, 2, n.PageAt(len(n.Text)-1))
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte(" \n\t\n"), 0o600))
	_, err := New().Load(ctx, empty)
	assert.ErrorIs(t, err, domain.ErrCorruptDocument)

	_, err = New().Load(ctx, filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = New().Load(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
