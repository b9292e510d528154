package main

import (
	"github.com/jackedney/criticality/internal/config"
)

// configShim is a thin alias over config.Config so main.go's pre-run logging
// setup doesn't need to import internal/config directly.
type configShim = config.Config

func loadConfig(path string) (*configShim, error) {
	return config.Load(path)
}
