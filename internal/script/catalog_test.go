package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/calmbridge/internal/triage"
)

func TestLoadBundled(t *testing.T) {
	c, err := LoadBundled(DefaultLanguage)
	if err != nil {
		t.Fatalf("LoadBundled: %v", err)
	}
	langs := c.Languages()
	if len(langs) < 2 || langs[0] != "en" {
		t.Fatalf("expected en first among bundled languages, got %v", langs)
	}

	en := c.Library("en")
	if p, _ := en.Phrase("fox"); p != "a friendly fox" {
		t.Fatalf("expected bundled fox phrase, got %q", p)
	}
	for _, tag := range triage.StateTags {
		if _, ok := en.Template(tag); !ok {
			t.Fatalf("bundled en library missing %s", tag)
		}
	}
}

func TestCatalog_Matching(t *testing.T) {
	c, err := LoadBundled(DefaultLanguage)
	if err != nil {
		t.Fatalf("LoadBundled: %v", err)
	}
	cases := map[string]string{
		"en-US":    "en",
		"es-MX":    "es",
		"es":       "es",
		"ja":       "en",
		"":         "en",
		"!!bogus!": "en",
	}
	for in, want := range cases {
		if got := c.Library(in).Language; got != want {
			t.Errorf("Library(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestCatalog_EmptyReturnsNil(t *testing.T) {
	c, err := NewCatalog("en")
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if c.Library("en") != nil {
		t.Fatal("expected nil library from empty catalog")
	}
}

func TestCatalog_AddRejectsInvalid(t *testing.T) {
	c, _ := NewCatalog("en")
	if err := c.Add(&Library{Language: "en"}); err == nil {
		t.Fatal("expected invalid library to be rejected")
	}
	if len(c.Languages()) != 0 {
		t.Fatal("invalid library should not be installed")
	}
}

func TestCatalog_LoadDirOverridesBundled(t *testing.T) {
	c, err := LoadBundled(DefaultLanguage)
	if err != nil {
		t.Fatalf("LoadBundled: %v", err)
	}
	dir := t.TempDir()
	doc := `{"anchors":{"IDLE":"a teddy bear","DRILL":"b","INJECTION":"c"},
		"script":{"CALM":"1","RECOVER":"2","ALERT":"3"}}`
	if err := os.WriteFile(filepath.Join(dir, "scripts.en.json"), []byte(doc), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0644)

	if err := c.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if got, _ := c.Library("en").DefaultAnchor(StepIdle); got != "a teddy bear" {
		t.Fatalf("expected override, got %q", got)
	}
}

func TestCatalog_LoadDirMissing(t *testing.T) {
	c, _ := NewCatalog("en")
	if err := c.LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing dir")
	}
}

func TestStatic(t *testing.T) {
	lib := fullLibrary()
	if Static(lib).Library("anything") != lib {
		t.Fatal("static source should always return its library")
	}
}
