package script

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/text/language"
)

//go:embed data/scripts.*
var bundled embed.FS

// DefaultLanguage is used when nothing better matches.
const DefaultLanguage = "en"

// #region catalog

// Catalog holds one library per language and matches requested language
// tags (en-US, es-419, ...) against them. Safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	fallback language.Tag
	libs     map[language.Tag]*Library
	tags     []language.Tag
	matcher  language.Matcher
}

// NewCatalog creates an empty catalog whose fallback language is defaultLang.
func NewCatalog(defaultLang string) (*Catalog, error) {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("parse default language %q: %w", defaultLang, err)
	}
	return &Catalog{
		fallback: tag,
		libs:     make(map[language.Tag]*Library),
	}, nil
}

// Add validates lib and installs it, replacing any library with the same language.
func (c *Catalog) Add(lib *Library) error {
	if err := lib.Validate(); err != nil {
		return err
	}
	tag, err := language.Parse(lib.Language)
	if err != nil {
		return fmt.Errorf("parse library language %q: %w", lib.Language, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.libs[tag] = lib
	c.rebuildLocked()
	return nil
}

// rebuildLocked orders tags with the fallback first, as language.NewMatcher
// treats the first tag as the default.
func (c *Catalog) rebuildLocked() {
	tags := make([]language.Tag, 0, len(c.libs))
	for t := range c.libs {
		if t != c.fallback {
			tags = append(tags, t)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].String() < tags[j].String() })
	if _, ok := c.libs[c.fallback]; ok {
		tags = append([]language.Tag{c.fallback}, tags...)
	}
	c.tags = tags
	c.matcher = language.NewMatcher(tags)
}

// Library returns the best library for lang, or nil if the catalog is empty.
func (c *Catalog) Library(lang string) *Library {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.tags) == 0 {
		return nil
	}
	want, err := language.Parse(lang)
	if err != nil {
		want = c.fallback
	}
	_, idx, _ := c.matcher.Match(want)
	return c.libs[c.tags[idx]]
}

// Languages lists the installed languages, fallback first.
func (c *Catalog) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.tags))
	for i, t := range c.tags {
		out[i] = t.String()
	}
	return out
}

// #endregion catalog

// #region loaders

// LoadBundled returns a catalog holding the libraries compiled into the binary.
func LoadBundled(defaultLang string) (*Catalog, error) {
	c, err := NewCatalog(defaultLang)
	if err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(bundled, "data")
	if err != nil {
		return nil, fmt.Errorf("read bundled libraries: %w", err)
	}
	for _, e := range entries {
		lang, ext, ok := splitLibraryName(e.Name())
		if !ok {
			continue
		}
		data, err := bundled.ReadFile("data/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read bundled %s: %w", e.Name(), err)
		}
		lib, err := parseWithLanguage(data, ext, lang)
		if err != nil {
			return nil, fmt.Errorf("bundled %s: %w", e.Name(), err)
		}
		if err := c.Add(lib); err != nil {
			return nil, fmt.Errorf("bundled %s: %w", e.Name(), err)
		}
	}
	return c, nil
}

// LoadDir adds every scripts.<lang>.<ext> file found in dir. Any invalid
// file aborts the load; libraries added before the failure stay installed.
func (c *Catalog) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read scripts dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, _, ok := splitLibraryName(e.Name()); !ok {
			continue
		}
		lib, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		if err := c.Add(lib); err != nil {
			return fmt.Errorf("install %s: %w", e.Name(), err)
		}
	}
	return nil
}

// #endregion loaders
