// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lanternid/lantern/pkg/flows"
	"github.com/lanternid/lantern/pkg/logger"
	"github.com/lanternid/lantern/pkg/oauth"
	"github.com/lanternid/lantern/pkg/storage"
)

// Seed is the YAML shape of the startup data file: the providers,
// applications and flows to register before serving.
type Seed struct {
	Providers    []oauth.Provider    `yaml:"providers"`
	Applications []oauth.Application `yaml:"applications"`
	Flows        []flows.Flow        `yaml:"flows"`
}

// LoadSeed parses a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	seed := &Seed{}
	if err := yaml.Unmarshal(data, seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return seed, nil
}

// Apply registers the seed's records with the store and planner.
func (s *Seed) Apply(ctx context.Context, store storage.Store, planner *flows.Planner) error {
	for i := range s.Providers {
		if err := store.AddProvider(ctx, &s.Providers[i]); err != nil {
			return fmt.Errorf("failed to seed provider %q: %w", s.Providers[i].ClientID, err)
		}
	}
	for i := range s.Applications {
		if err := store.AddApplication(ctx, &s.Applications[i]); err != nil {
			return fmt.Errorf("failed to seed application %q: %w", s.Applications[i].Slug, err)
		}
	}
	for i := range s.Flows {
		planner.AddFlow(&s.Flows[i])
	}
	logger.Infow("seeded configuration",
		"providers", len(s.Providers),
		"applications", len(s.Applications),
		"flows", len(s.Flows),
	)
	return nil
}
