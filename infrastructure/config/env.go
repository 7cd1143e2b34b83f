package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	domainconfig "github.com/felixgeelhaar/agentsim/domain/config"
)

var (
	// ${VAR}, ${VAR:-default}, ${VAR:?message}
	bracketPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*|:\?[^}]*)?\}`)
	// $VAR
	simplePattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// envExpander expands environment variables in configuration text.
type envExpander struct {
	// strict fails if a referenced variable is not set.
	strict  bool
	missing []string
	lookup  func(string) (string, bool)
}

// Expand expands environment variables in the input string.
// Supported patterns:
//   - ${VAR} expands to the value of VAR
//   - ${VAR:-default} expands to VAR, or default when unset or empty
//   - ${VAR:?message} fails when VAR is unset or empty
//   - $VAR simple expansion
func (e *envExpander) Expand(input string) (string, error) {
	e.missing = nil
	lookup := e.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	result := bracketPattern.ReplaceAllStringFunc(input, func(match string) string {
		name, modifier, _ := strings.Cut(match[2:len(match)-1], ":")
		value, exists := lookup(name)

		switch {
		case strings.HasPrefix(modifier, "-"):
			if !exists || value == "" {
				return modifier[1:]
			}
		case strings.HasPrefix(modifier, "?"):
			if !exists || value == "" {
				e.missing = append(e.missing, fmt.Sprintf("%s: %s", name, modifier[1:]))
				return match
			}
		case !exists:
			if e.strict {
				e.missing = append(e.missing, name)
			}
			return ""
		}
		return value
	})

	result = simplePattern.ReplaceAllStringFunc(result, func(match string) string {
		value, exists := lookup(match[1:])
		if !exists {
			if e.strict {
				e.missing = append(e.missing, match[1:])
			}
			return ""
		}
		return value
	})

	if len(e.missing) > 0 {
		return "", fmt.Errorf("%w: %s", domainconfig.ErrMissingEnvVar, strings.Join(e.missing, ", "))
	}
	return result, nil
}

// ExpandEnv expands environment variables, leaving unset ones empty.
func ExpandEnv(input string) string {
	result, _ := (&envExpander{}).Expand(input)
	return result
}

// ExpandEnvStrict expands environment variables and returns an error for missing vars.
func ExpandEnvStrict(input string) (string, error) {
	return (&envExpander{strict: true}).Expand(input)
}
