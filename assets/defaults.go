package assets

import (
	_ "embed"
)

// DefaultRulesYAML contains the embedded default rule document. It is used
// whenever the configured rules file does not exist.
//
//go:embed defaults/rules.yaml
var DefaultRulesYAML []byte
