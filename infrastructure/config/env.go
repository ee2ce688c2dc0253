package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	domainconfig "github.com/felixgeelhaar/goap/domain/config"
)

// envRef matches ${NAME}, ${NAME:-fallback}, ${NAME:?message} and $NAME.
// A dollar sign not followed by a name, as in "$100", is left alone.
var envRef = regexp.MustCompile(`\$(?:\{([A-Za-z_][A-Za-z0-9_]*)(?:(:[-?])([^}]*))?\}|([A-Za-z_][A-Za-z0-9_]*))`)

// expandEnv substitutes every environment reference in s in a single pass,
// so substituted values are never expanded again. Unset references become
// empty; with strict they are also reported. ${NAME:?message} is reported
// whenever NAME is unset or empty.
func expandEnv(s string, strict bool) (string, error) {
	var missing []string
	out := envRef.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		name, op, arg := m[1], m[2], m[3]
		if name == "" {
			name = m[4]
		}

		value, set := os.LookupEnv(name)
		switch op {
		case ":-":
			if value == "" {
				return arg
			}
		case ":?":
			if value == "" {
				missing = append(missing, name+": "+arg)
			}
		default:
			if !set && strict {
				missing = append(missing, name)
			}
		}
		return value
	})
	if len(missing) > 0 {
		return out, fmt.Errorf("%w: %s", domainconfig.ErrMissingEnvVar, strings.Join(missing, ", "))
	}
	return out, nil
}

// ExpandEnv substitutes environment references in s. Unset variables
// expand to the empty string.
func ExpandEnv(s string) string {
	out, _ := expandEnv(s, false)
	return out
}

// ExpandEnvStrict is ExpandEnv that fails on any unset variable.
func ExpandEnvStrict(s string) (string, error) {
	return expandEnv(s, true)
}
