package docx

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

const body = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>ARTICLE 3</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve">RENT </w:t></w:r></w:p>
<w:p><w:r><w:t>Tenant shall pay</w:t></w:r><w:r><w:br/><w:t>monthly in advance.</w:t></w:r></w:p>
<w:p/>
<w:p><w:r><w:br w:type="page"/></w:r></w:p>
<w:p><w:r><w:t>ARTICLE 4 SECURITY DEPOSIT</w:t></w:r></w:p>
</w:body>
</w:document>`

const core = `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title> Retail Lease </dc:title>
</cp:coreProperties>`

// writeDocx builds a minimal DOCX archive with the given parts.
func writeDocx(t *testing.T, name string, parts map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for part, content := range parts {
		w, err := zw.Create(part)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func TestExtensionsAndPriority(t *testing.T) {
	l := New()
	assert.Equal(t, []string{".docx"}, l.Extensions())
	assert.Equal(t, 50, l.Priority())
}

func TestLoad(t *testing.T) {
	path := writeDocx(t, "lease.docx", map[string]string{documentPart: body, corePart: core})

	n, err := New().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "ARTICLE 3\tRENT\n\nTenant shall pay\nmonthly in advance.\n\nARTICLE 4 SECURITY DEPOSIT", n.Text)
	assert.Equal(t, "docx", n.Format)
	assert.Equal(t, "Retail Lease", n.Title)
	require.Len(t, n.Pages, 2)
	assert.Equal(t, 2, n.PageAt(len(n.Text)-1))
	assert.Equal(t, 1, n.PageAt(0))
}

func TestLoad_TitleFallsBackToFileName(t *testing.T) {
	path := writeDocx(t, "Church_Lease.docx", map[string]string{documentPart: body})

	n, err := New().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Church Lease", n.Title)
}

func TestLoadFormat(t *testing.T) {
	path := writeDocx(t, "lease.docx", map[string]string{documentPart: body})

	n, err := LoadFormat(context.Background(), path, "doc")
	require.NoError(t, err)
	assert.Equal(t, "doc", n.Format)
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()

	notZip := filepath.Join(t.TempDir(), "bad.docx")
	require.NoError(t, os.WriteFile(notZip, []byte("not a zip"), 0o600))
	_, err := New().Load(ctx, notZip)
	assert.ErrorIs(t, err, domain.ErrCorruptDocument)

	missing := writeDocx(t, "empty.docx", map[string]string{"other.xml": "<x/>"})
	_, err = New().Load(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrCorruptDocument)

	malformed := writeDocx(t, "malformed.docx", map[string]string{documentPart: "<w:document><w:body><w:p>"})
	_, err = New().Load(ctx, malformed)
	assert.ErrorIs(t, err, domain.ErrCorruptDocument)

	blank := writeDocx(t, "blank.docx", map[string]string{documentPart: "<w:document><w:body><w:p/></w:body></w:document>"})
	_, err = New().Load(ctx, blank)
	assert.ErrorIs(t, err, domain.ErrCorruptDocument)

	_, err = New().Load(ctx, "/no/such.docx")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoad_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Load(ctx, "whatever.docx")
	assert.ErrorIs(t, err, context.Canceled)
}
