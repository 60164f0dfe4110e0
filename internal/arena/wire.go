package arena

import "github.com/google/wire"

// ProviderSet builds an Arena and its dependencies from the config sections.
var ProviderSet = wire.NewSet(
	NewProvider,
	NewScripts,
	NewCatalog,
	NewRules,
	NewEffectEngine,
	NewResolver,
	NewScheduler,
	NewDecider,
	New,
)
