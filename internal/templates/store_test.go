package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_Render(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "tpl-1.html"),
		[]byte("<p>Hallo {customerName}, Bestellung {orderNumber} über {amountTotal} EUR.</p>"),
		0o600,
	))

	s := NewStore(dir)
	out, err := s.Render("tpl-1", map[string]string{
		"customerName": "Max Muster",
		"orderNumber":  "10042",
		"amountTotal":  "129.90",
	})
	require.NoError(t, err)
	require.Equal(t, "<p>Hallo Max Muster, Bestellung 10042 über 129.90 EUR.</p>", out)
}

func TestStore_Render_UnknownPlaceholderKept(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tpl.html"), []byte("{known} {unknown}"), 0o600))

	s := NewStore(dir)
	out, err := s.Render("tpl", map[string]string{"known": "x"})
	require.NoError(t, err)
	require.Equal(t, "x {unknown}", out)
}

func TestStore_Render_Missing(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Render("nope", nil)
	require.ErrorIs(t, err, ErrTemplateMissing)
}
