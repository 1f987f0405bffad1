// Package configs provides embedded configuration templates for veyra.
//
// Templates are embedded at build time using Go's //go:embed directive, so
// they travel with every distribution (go install, binary release).
//
// Template files:
//   - user-config.example.yaml: machine-specific settings (Ollama host, cache root)
//   - project-config.example.yaml: project-specific settings (paths, search weights)
//
// Configuration hierarchy (see internal/config.Load):
//  1. Hardcoded defaults (internal/config.NewConfig)
//  2. User config (~/.config/veyra/config.yaml)
//  3. Project config (.veyra.yaml)
//  4. Environment variables (VEYRA_*)
package configs

import _ "embed"

// UserConfigTemplate is written by `veyra config init` to the user config path.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is a starter .veyra.yaml for a project root. No CLI
// command writes it out.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
