package app

import (
	"fmt"
	"math"
	"os"

	"github.com/admin/astro-natal/internal/domain"
	"gopkg.in/yaml.v3"
)

// orbsFile формат файла переопределения орбисов:
//
//	orbs:
//	  square: 5
//	  trine: 6
type orbsFile struct {
	Orbs map[string]float64 `yaml:"orbs"`
}

// loadOrbOverrides читает файл орбисов; пустой путь - без переопределений
func loadOrbOverrides(path string) (map[domain.AspectType]float64, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read orbs file: %w", err)
	}

	var file orbsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse orbs file %s: %w", path, err)
	}

	out := make(map[domain.AspectType]float64, len(file.Orbs))
	for name, orb := range file.Orbs {
		aspect, err := domain.ParseAspectType(name)
		if err != nil {
			return nil, fmt.Errorf("orbs file %s: %w", path, err)
		}
		if orb < 0 || math.IsNaN(orb) || math.IsInf(orb, 0) {
			return nil, fmt.Errorf("orbs file %s: invalid orb %v for %s", path, orb, name)
		}
		out[aspect] = orb
	}
	return out, nil
}
