package systems

import (
	_ "embed"
)

//go:embed default_systems.toml
var defaultSystems string
