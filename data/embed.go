// Package data holds embedded assets (e.g. the default client config) at repo root data/ for clarity.
package data

import _ "embed"

//go:embed traindash.yaml
var DefaultConfigYAML []byte
