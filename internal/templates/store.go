package templates

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrTemplateMissing means no template file exists for the requested id. The
// affected order is skipped, nothing is partially sent.
var ErrTemplateMissing = errors.New("template missing")

// Store serves HTML mail bodies from a directory of <templateID>.html files
// with {placeholder} substitution. Files are read per render so template
// edits take effect without a restart.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Render(templateID string, data map[string]string) (string, error) {
	path := filepath.Join(s.dir, templateID+".html")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrapf(ErrTemplateMissing, "template %s", templateID)
		}
		return "", errors.Wrapf(err, "read template %s", templateID)
	}

	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(string(raw)), nil
}
