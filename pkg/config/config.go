package config

import (
	"fmt"
	"strings"

	"github.com/xplshn/typefighter/pkg/cli"
	"golang.org/x/exp/slices"
)

type Feature int

const (
	FeatLineComments Feature = iota
	FeatBlockComments
	FeatIdentChase
	FeatDirectives
	FeatCount
)

type Warning int

const (
	WarnTypeMismatch Warning = iota
	WarnArity
	WarnAnnotation
	WarnUnknownTag
	WarnRedefined
	WarnCount
)

// DirectivePrefix starts an in-source flag directive: "// [tf]: -Warity".
const DirectivePrefix = "[tf]:"

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
	}

	features := map[Feature]Info{
		FeatLineComments:  {"line-comments", true, "Scan '//' comments for typefighter annotations."},
		FeatBlockComments: {"block-comments", true, "Scan '/* */' comments for typefighter annotations."},
		FeatIdentChase:    {"ident-chase", true, "Infer identifier types by following their declarations."},
		FeatDirectives:    {"directives", true, "Honor `// [tf]:` flag directives in source files."},
	}

	warnings := map[Warning]Info{
		WarnTypeMismatch: {"type-mismatch", true, "Report arguments whose type differs from the annotated input."},
		WarnArity:        {"arity", false, "Report calls whose argument count differs from the annotated inputs."},
		WarnAnnotation:   {"annotation", false, "Report @input/@output lines without an @function, and nameless @function lines."},
		WarnUnknownTag:   {"unknown-tag", false, "Report annotation types other than string, number, boolean and unknown."},
		WarnRedefined:    {"redefined", false, "Report @function annotations that replace an earlier one."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// Clone returns an independent copy, used to apply per-file directives.
func (c *Config) Clone() *Config {
	clone := &Config{
		Features:   make(map[Feature]Info, len(c.Features)),
		Warnings:   make(map[Warning]Info, len(c.Warnings)),
		FeatureMap: c.FeatureMap,
		WarningMap: c.WarningMap,
	}
	for k, v := range c.Features {
		clone.Features[k] = v
	}
	for k, v := range c.Warnings {
		clone.Warnings[k] = v
	}
	return clone
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// WarningName returns the flag name of wt, as shown in "[-Wname]".
func (c *Config) WarningName(wt Warning) string { return c.Warnings[wt].Name }

// SetupFlagGroups registers the -W and -F flag groups on fs. The returned
// entries are indexed by Warning and Feature respectively.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) ([]cli.FlagGroupEntry, []cli.FlagGroupEntry) {
	warningFlags := make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := new(bool), new(bool)
		*enabled = info.Enabled
		warningFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description, Enabled: enabled, Disabled: disabled,
		}
	}

	featureFlags := make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		enabled, disabled := new(bool), new(bool)
		*enabled = info.Enabled
		featureFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description, Enabled: enabled, Disabled: disabled,
		}
	}

	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning flag", "Available Warning Flags:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature flag", "Available Feature Flags:", featureFlags)
	return warningFlags, featureFlags
}

func (c *Config) applyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}

	if isWarning {
		if w, ok := c.WarningMap[name]; ok {
			c.SetWarning(w, enable)
			return nil
		}
		return fmt.Errorf("unknown warning '%s'", name)
	}
	if f, ok := c.FeatureMap[name]; ok {
		c.SetFeature(f, enable)
		return nil
	}
	return fmt.Errorf("unknown feature '%s'", name)
}

// ProcessFlags applies -W/-F flag names reported by visitFlag. -Wall and
// -Wno-all are applied first so that specific flags override them.
func (c *Config) ProcessFlags(visitFlag func(fn func(name string))) {
	isAll := func(name string) bool { return slices.Contains([]string{"Wall", "Wno-all"}, name) }
	visitFlag(func(name string) {
		if isAll(name) {
			c.applyFlag("-" + name)
		}
	})
	visitFlag(func(name string) {
		if !isAll(name) {
			c.applyFlag("-" + name)
		}
	})
}

// ProcessDirectiveFlags applies the flags of one directive and returns the
// first flag it could not apply.
func (c *Config) ProcessDirectiveFlags(flagStr string) error {
	var firstErr error
	for _, flag := range strings.Fields(flagStr) {
		if err := c.applyFlag(flag); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DirectiveFlags extracts the flag text of a line comment body such as
// " [tf]: -Warity". ok is false when the comment is not a directive.
func DirectiveFlags(commentBody string) (flags string, ok bool) {
	body := strings.TrimSpace(commentBody)
	if !strings.HasPrefix(body, DirectivePrefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(body, DirectivePrefix)), true
}
