// Package index implements package metadata resolution: local storage first,
// then ordered upstream proxies.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pkgindex/internal/domain"
)

// LocalStore reads package metadata from the index directory. Each project
// lives under <root>/<normalized-name>/package.json with its files alongside.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: dir}
}

// Root returns the index directory.
func (s *LocalStore) Root() string { return s.root }

// Get loads a locally stored package. File URLs are rewritten to absolute
// download URLs under baseURL so clients never see storage paths.
func (s *LocalStore) Get(name, baseURL string) (*domain.Package, error) {
	raw, err := os.ReadFile(filepath.Join(s.root, name, "package.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound("package %q not in local index", name)
		}
		return nil, fmt.Errorf("read package metadata: %w", err)
	}

	var pkg domain.Package
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil, fmt.Errorf("decode package metadata for %q: %w", name, err)
	}

	base := strings.TrimSuffix(baseURL, "/")
	for i := range pkg.Releases {
		for j := range pkg.Releases[i].Files {
			f := &pkg.Releases[i].Files[j]
			f.URL = base + "/files/" + name + "/" + f.Filename
		}
	}
	pkg.Name = name
	pkg.Local = true
	return &pkg, nil
}
