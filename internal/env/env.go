package env

import "github.com/danielsmyers/evolution-bridge/internal/config"

var Cfg *config.Config
