package service

import (
	"os"

	"github.com/tidwall/gjson"
)

// ResolveCredential returns the first non-empty credential source, in order:
// the inline provider config JSON, the environment entry the provider row
// names, then the vendor's default environment name. The secret itself is
// never stored in a provider row; only inline overrides live there.
func ResolveCredential(inlineConfig, key, envName, defaultEnv string) string {
	if v := gjson.Get(inlineConfig, key).String(); v != "" {
		return v
	}
	if envName != "" {
		if v := os.Getenv(envName); v != "" {
			return v
		}
	}
	if defaultEnv != "" {
		return os.Getenv(defaultEnv)
	}
	return ""
}
