package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-crowd/internal/sim"
	"github.com/pixil98/go-crowd/internal/storage"
	"github.com/pixil98/go-errors"
)

type StorageConfig struct {
	Targets   AssetConfig[*sim.Target]   `json:"targets"`
	Visitors  AssetConfig[*sim.Visitor]  `json:"visitors"`
	Scenarios AssetConfig[*sim.Scenario] `json:"scenarios"`
}

func (c *StorageConfig) BuildDictionary() (*sim.Dictionary, error) {
	targets, err := c.Targets.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating target store: %w", err)
	}
	visitors, err := c.Visitors.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating visitor store: %w", err)
	}
	scenarios, err := c.Scenarios.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating scenario store: %w", err)
	}

	dict := &sim.Dictionary{
		Targets:   targets,
		Visitors:  visitors,
		Scenarios: scenarios,
	}

	if err := dict.Resolve(); err != nil {
		return nil, fmt.Errorf("resolving references: %w", err)
	}

	return dict, nil
}

func (c *StorageConfig) Validate() error {
	el := errors.NewErrorList()
	el.Add(c.Targets.Validate("targets"))
	el.Add(c.Visitors.Validate("visitors"))
	el.Add(c.Scenarios.Validate("scenarios"))
	return el.Err()
}

type AssetConfig[T storage.ValidatingSpec] struct {
	Path string `json:"path"`
}

func (c *AssetConfig[T]) Validate(name string) error {
	if c.Path == "" {
		return fmt.Errorf("%s: path is required", name)
	}
	_, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("%s: invalid path %q: %w", name, c.Path, err)
	}

	return nil
}

func (c *AssetConfig[T]) BuildFileStore() (*storage.FileStore[T], error) {
	return storage.NewFileStore[T](c.Path)
}
