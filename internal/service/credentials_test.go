package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveCredentialPrecedence(t *testing.T) {
	t.Setenv("TEST_NAMED_KEY", "from-named-env")
	t.Setenv("TEST_DEFAULT_KEY", "from-default-env")

	// Inline config wins over everything.
	got := ResolveCredential(`{"api_key":"inline-value"}`, "api_key", "TEST_NAMED_KEY", "TEST_DEFAULT_KEY")
	assert.Equal(t, "inline-value", got)

	// Named env wins over the default env name.
	got = ResolveCredential(`{}`, "api_key", "TEST_NAMED_KEY", "TEST_DEFAULT_KEY")
	assert.Equal(t, "from-named-env", got)

	// Default env is the last resort.
	got = ResolveCredential("", "api_key", "", "TEST_DEFAULT_KEY")
	assert.Equal(t, "from-default-env", got)

	// Empty named env falls through instead of masking the default.
	t.Setenv("TEST_NAMED_KEY", "")
	got = ResolveCredential("", "api_key", "TEST_NAMED_KEY", "TEST_DEFAULT_KEY")
	assert.Equal(t, "from-default-env", got)

	got = ResolveCredential("", "api_key", "", "")
	assert.Equal(t, "", got)
}

func TestResolveCredentialIgnoresMalformedConfig(t *testing.T) {
	t.Setenv("TEST_FALLBACK", "fallback")
	got := ResolveCredential("not json at all", "api_key", "TEST_FALLBACK", "")
	assert.Equal(t, "fallback", got)
}
