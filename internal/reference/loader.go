package reference

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog/*.yaml
var builtin embed.FS

const fallbackIcon = "Database"

// DefaultCatalog - встроенный справочник из catalog/sections.yaml.
func DefaultCatalog() *Catalog {
	data, err := builtin.ReadFile("catalog/sections.yaml")
	if err != nil {
		panic(err)
	}
	c, err := parse(data)
	if err != nil {
		panic(fmt.Errorf("embedded catalog: %w", err))
	}
	return c
}

// LoadCatalog читает справочник из файла или из всех *.yaml/*.yml папки
// (файлы сливаются в алфавитном порядке). Пустой путь - встроенный справочник.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return parse(data)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() && (strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml")) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	merged := &Catalog{}
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(path, name))
		if err != nil {
			return nil, err
		}
		var part Catalog
		if err := yaml.Unmarshal(data, &part); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if part.DefaultIcon != "" {
			merged.DefaultIcon = part.DefaultIcon
		}
		merged.Icons = append(merged.Icons, part.Icons...)
		merged.Sections = append(merged.Sections, part.Sections...)
	}
	return merged, merged.normalize()
}

func parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, c.normalize()
}

func (c *Catalog) normalize() error {
	if c.DefaultIcon == "" {
		c.DefaultIcon = fallbackIcon
	}
	if !c.HasIcon(c.DefaultIcon) {
		c.Icons = append(c.Icons, c.DefaultIcon)
	}
	seen := map[string]bool{}
	for i := range c.Sections {
		s := &c.Sections[i]
		if s.Key == "" || s.Route == "" {
			return fmt.Errorf("builtin section #%d: key and route are required", i)
		}
		if seen[strings.ToLower(s.Key)] {
			return fmt.Errorf("builtin section %q declared twice", s.Key)
		}
		seen[strings.ToLower(s.Key)] = true
		if s.Title == "" {
			s.Title = s.Key
		}
		s.Icon = c.Icon(s.Icon)
	}
	return nil
}

func equalFold(a, b string) bool { return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) }
