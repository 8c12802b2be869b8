package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/typefighter/pkg/cli"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.True(t, cfg.IsWarningEnabled(WarnTypeMismatch))
	for _, w := range []Warning{WarnArity, WarnAnnotation, WarnUnknownTag, WarnRedefined} {
		assert.False(t, cfg.IsWarningEnabled(w), cfg.WarningName(w))
	}
	for f := Feature(0); f < FeatCount; f++ {
		assert.True(t, cfg.IsFeatureEnabled(f), cfg.Features[f].Name)
	}
	assert.Len(t, cfg.WarningMap, int(WarnCount))
	assert.Len(t, cfg.FeatureMap, int(FeatCount))
}

func TestApplyFlag(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.applyFlag("-Warity"))
	require.NoError(t, cfg.applyFlag("-Wno-type-mismatch"))
	require.NoError(t, cfg.applyFlag("-Fno-ident-chase"))
	assert.True(t, cfg.IsWarningEnabled(WarnArity))
	assert.False(t, cfg.IsWarningEnabled(WarnTypeMismatch))
	assert.False(t, cfg.IsFeatureEnabled(FeatIdentChase))

	require.NoError(t, cfg.applyFlag("-Wall"))
	for w := Warning(0); w < WarnCount; w++ {
		assert.True(t, cfg.IsWarningEnabled(w))
	}
	require.NoError(t, cfg.applyFlag("-Wno-all"))
	for w := Warning(0); w < WarnCount; w++ {
		assert.False(t, cfg.IsWarningEnabled(w))
	}

	assert.EqualError(t, cfg.applyFlag("-Wbogus"), "unknown warning 'bogus'")
	assert.EqualError(t, cfg.applyFlag("-Fbogus"), "unknown feature 'bogus'")
	assert.EqualError(t, cfg.applyFlag("-x"), "unrecognized flag '-x'")
}

func TestProcessFlagsAppliesAllFirst(t *testing.T) {
	cfg := NewConfig()
	names := []string{"Wno-arity", "Wall", "Fno-directives"}
	cfg.ProcessFlags(func(fn func(string)) {
		for _, n := range names {
			fn(n)
		}
	})
	assert.False(t, cfg.IsWarningEnabled(WarnArity))
	assert.True(t, cfg.IsWarningEnabled(WarnRedefined))
	assert.False(t, cfg.IsFeatureEnabled(FeatDirectives))
}

func TestDirectiveFlags(t *testing.T) {
	flags, ok := DirectiveFlags(" [tf]: -Warity  -Fno-ident-chase ")
	assert.True(t, ok)
	assert.Equal(t, "-Warity  -Fno-ident-chase", flags)

	_, ok = DirectiveFlags(" typefighter")
	assert.False(t, ok)

	cfg := NewConfig()
	err := cfg.ProcessDirectiveFlags(flags + " -Wnope -Fnope")
	assert.EqualError(t, err, "unknown warning 'nope'")
	assert.True(t, cfg.IsWarningEnabled(WarnArity))
	assert.False(t, cfg.IsFeatureEnabled(FeatIdentChase))
}

func TestClone(t *testing.T) {
	cfg := NewConfig()
	clone := cfg.Clone()
	clone.SetWarning(WarnArity, true)
	clone.SetFeature(FeatDirectives, false)
	assert.False(t, cfg.IsWarningEnabled(WarnArity))
	assert.True(t, cfg.IsFeatureEnabled(FeatDirectives))
	assert.True(t, clone.IsWarningEnabled(WarnArity))
}

func TestSetupFlagGroups(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("typefighter")
	warnings, features := cfg.SetupFlagGroups(fs)
	require.Len(t, warnings, int(WarnCount))
	require.Len(t, features, int(FeatCount))

	require.NoError(t, fs.Parse([]string{"-Warity", "-Fno-directives", "a.js"}))
	assert.True(t, *warnings[WarnArity].Enabled)
	assert.True(t, *features[FeatDirectives].Disabled)
	assert.Equal(t, []string{"a.js"}, fs.Args())
	assert.NotNil(t, fs.Lookup("Wno-type-mismatch"))
	assert.Nil(t, fs.Lookup("Wbogus"))
}
