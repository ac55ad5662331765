package script

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// #region parse

// Parse decodes a library from data. format is "json", "yaml" or "yml".
// The result is validated before it is returned.
func Parse(data []byte, format string) (*Library, error) {
	lib, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return lib, nil
}

func decode(data []byte, format string) (*Library, error) {
	var lib Library
	switch strings.ToLower(format) {
	case "json":
		if err := json.Unmarshal(data, &lib); err != nil {
			return nil, fmt.Errorf("parse json library: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &lib); err != nil {
			return nil, fmt.Errorf("parse yaml library: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported library format %q", format)
	}
	return &lib, nil
}

// #endregion parse

// #region load-file

// LoadFile reads a library from path. Files are named scripts.<lang>.<ext>;
// when the document has no language field the one in the name is used.
func LoadFile(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read library %s: %w", path, err)
	}
	lang, ext, ok := splitLibraryName(filepath.Base(path))
	if !ok {
		return nil, fmt.Errorf("library file %s is not named scripts.<lang>.<json|yaml>", path)
	}
	lib, err := parseWithLanguage(data, ext, lang)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return lib, nil
}

// parseWithLanguage fills a missing language from the file name before
// validating.
func parseWithLanguage(data []byte, ext, lang string) (*Library, error) {
	lib, err := decode(data, ext)
	if err != nil {
		return nil, err
	}
	if lib.Language == "" {
		lib.Language = lang
	}
	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return lib, nil
}

// splitLibraryName parses "scripts.en.json" into ("en", "json").
func splitLibraryName(name string) (lang, ext string, ok bool) {
	parts := strings.Split(name, ".")
	if len(parts) != 3 || parts[0] != "scripts" || parts[1] == "" {
		return "", "", false
	}
	switch parts[2] {
	case "json", "yaml", "yml":
		return parts[1], parts[2], true
	}
	return "", "", false
}

// #endregion load-file
