package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed site.yaml
var defaultSite []byte

// Portfolio описание сайта вместе с проверенным каталогом роликов
type Portfolio struct {
	Site    Site
	Catalog *Catalog
}

// Parse разбирает YAML-описание сайта
func Parse(data []byte) (*Portfolio, error) {
	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("failed to parse site: %w", err)
	}

	cat, err := New(site.Reels)
	if err != nil {
		return nil, fmt.Errorf("invalid reel catalog: %w", err)
	}

	return &Portfolio{Site: site, Catalog: cat}, nil
}

// LoadFile читает описание сайта из файла
func LoadFile(path string) (*Portfolio, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site file: %w", err)
	}
	return Parse(data)
}

// Default возвращает встроенный сайт SKB
func Default() *Portfolio {
	p, err := Parse(defaultSite)
	if err != nil {
		panic(err)
	}
	return p
}

// Load читает файл, если путь задан, иначе возвращает встроенный сайт
func Load(path string) (*Portfolio, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
