package config

import (
	"os"
	"regexp"
)

// envPattern matches ${VAR} or ${VAR:-default}.
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnv expands ${VAR} / ${VAR:-default} references in raw config text
// against the supervisor's own environment, before the document is parsed as
// YAML. This lets a deployment parameterize config.yml without a templating
// layer on top of it.
func expandEnv(content string) string {
	return envPattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		name, def := parts[1], ""
		if len(parts) >= 3 {
			def = parts[2]
		}
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return def
	})
}
