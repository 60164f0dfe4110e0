//go:build wireinject

package main

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/arena"
	"github.com/cory-johannsen/skirmish/internal/config"
)

func initializeArena(cfg *config.Config, logger *zap.Logger) (*arena.Arena, func(), error) {
	wire.Build(
		wire.FieldsOf(new(*config.Config), "RNG", "Combat", "Content", "Scripting", "Arena"),
		arena.ProviderSet,
	)
	return nil, nil, nil
}
