// Package cliflags implements a koanf.Provider that exposes the flags
// of a cli.Context as a configuration layer.
package cliflags

import (
	"errors"
	"fmt"

	"github.com/knadh/koanf/maps"
	"github.com/urfave/cli/v2"
)

// CLIFlags provides the set flags of a cli.Context as a raw
// map[string]any.
type CLIFlags struct {
	values map[string]any
}

// Provider reads the flags set on ctx. The optional cb maps a flag
// name to a config key; if delim is non-empty the resulting keys are
// treated as flat paths and unflattened by it.
func Provider(ctx *cli.Context, delim string, cb func(string) string) *CLIFlags {
	flags := map[string]cli.Flag{}
	for _, flag := range ctx.App.VisibleFlags() {
		flags[flag.Names()[0]] = flag
	}
	for _, flag := range ctx.Command.VisibleFlags() {
		flags[flag.Names()[0]] = flag
	}

	values := make(map[string]any)

	// FlagNames lists only flags that were actually set, never bare
	// defaults
	for _, name := range ctx.FlagNames() {
		flag, ok := flags[name]
		if !ok {
			continue
		}

		value, err := flagValue(ctx, flag)
		if err != nil {
			continue
		}

		key := name
		if cb != nil {
			key = cb(name)
		}
		values[key] = value
	}

	// unflatten if the callback produced nested keys
	if delim != "" {
		values = maps.Unflatten(values, delim)
	}

	return &CLIFlags{values: values}
}

// ReadBytes is not supported by this provider.
func (p *CLIFlags) ReadBytes() ([]byte, error) {
	return nil, errors.New("cliflags provider does not support this method")
}

// Read returns the collected flag values.
func (p *CLIFlags) Read() (map[string]any, error) {
	return p.values, nil
}

func flagValue(ctx *cli.Context, flag cli.Flag) (any, error) {
	name := flag.Names()[0]

	switch flag.(type) {
	case *cli.StringFlag:
		return ctx.String(name), nil
	case *cli.StringSliceFlag:
		return ctx.StringSlice(name), nil
	case *cli.PathFlag:
		return ctx.Path(name), nil
	case *cli.IntFlag:
		return ctx.Int(name), nil
	case *cli.IntSliceFlag:
		return ctx.IntSlice(name), nil
	case *cli.Int64Flag:
		return ctx.Int64(name), nil
	case *cli.Int64SliceFlag:
		return ctx.Int64Slice(name), nil
	case *cli.BoolFlag:
		return ctx.Bool(name), nil
	case *cli.Float64Flag:
		return ctx.Float64(name), nil
	case *cli.Float64SliceFlag:
		return ctx.Float64Slice(name), nil
	case *cli.DurationFlag:
		return ctx.Duration(name), nil
	}

	return nil, fmt.Errorf("unsupported flag type %T", flag)
}
