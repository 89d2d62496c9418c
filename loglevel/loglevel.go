// Copyright (c) The ApeGears Authors
// SPDX-License-Identifier: MPL-2.0

// Package loglevel wires hclog levels into argument parsing: a level
// argument type, plus helpers that install the conventional --log-level
// and --log-levels options and apply the parsed overrides to loggers.
package loglevel

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/posener/complete"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/shx2/apegears"
)

// levelNames are the accepted level tokens, in severity order.
var levelNames = []string{"trace", "debug", "info", "warn", "error", "off"}

// ParseLevel converts a level name to an hclog.Level. Matching is
// case-insensitive.
func ParseLevel(s string) (interface{}, error) {
	lvl := hclog.LevelFromString(strings.ToLower(s))
	if lvl == hclog.NoLevel {
		return nil, fmt.Errorf("'%s' not valid. Must be one of: %s", s, strings.Join(levelNames, ", "))
	}
	return lvl, nil
}

// Spec returns the argument spec for an hclog.Level value. It is also
// registered in apegears.DefaultRegistry under the "log-level" tag and
// the hclog.Level type.
func Spec() *apegears.Spec {
	return &apegears.Spec{
		Names:      []string{"log-level", "L"},
		FromString: ParseLevel,
		Help:       "Log level: trace/debug/info/warn/error/off.",
		Metavar:    "LOG_LEVEL",
		Completion: complete.PredictSet(levelNames...),
	}
}

// AddLevelOption installs a --log-level/-L option that sets the level of
// the given loggers once parsing completes. With no loggers it addresses
// hclog's default logger.
func AddLevelOption(p *apegears.Parser, loggers ...hclog.Logger) (*apegears.Argument, error) {
	if len(loggers) == 0 {
		loggers = []hclog.Logger{hclog.Default()}
	}
	return p.AddOption(&apegears.OptionVar{
		Type: "log-level",
		PostProcess: func(v interface{}) (interface{}, error) {
			lvl, ok := v.(hclog.Level)
			if !ok {
				return nil, fmt.Errorf("log level got %T, want a level", v)
			}
			for _, lg := range loggers {
				lg.SetLevel(lvl)
			}
			return v, nil
		},
	})
}

// AddOption installs a --log-levels option taking LOGGER=LEVEL overrides.
// Once parsing completes each override is applied to the logger of that
// name; "" and "root" address the unnamed root logger. Overrides naming
// no known logger fail the parse, aggregated.
func AddOption(p *apegears.Parser, loggers ...hclog.Logger) (*apegears.Argument, error) {
	if len(loggers) == 0 {
		loggers = []hclog.Logger{hclog.Default()}
	}
	return p.AddDict(&apegears.DictVar{
		Flags:      []string{"--log-levels"},
		Type:       "log-level",
		KeyMetavar: "LOGGER",
		Help: `Override log levels per logger, as LOGGER=LEVEL.
An empty LOGGER addresses the root logger.`,
		PostProcess: func(v interface{}) (interface{}, error) {
			overrides, ok := v.(*orderedmap.OrderedMap[interface{}, interface{}])
			if !ok {
				return nil, fmt.Errorf("log levels got %T, want overrides", v)
			}
			return v, Apply(overrides, loggers...)
		},
	})
}

// Apply sets each override's level on the loggers matching its name.
func Apply(overrides *orderedmap.OrderedMap[interface{}, interface{}], loggers ...hclog.Logger) error {
	var mErr *multierror.Error
	for pair := overrides.Oldest(); pair != nil; pair = pair.Next() {
		name, _ := pair.Key.(string)
		lvl, ok := pair.Value.(hclog.Level)
		if !ok {
			mErr = multierror.Append(mErr, fmt.Errorf("override for %q is %T, want a level", name, pair.Value))
			continue
		}
		matched := false
		for _, lg := range loggers {
			if matchLogger(lg, name) {
				lg.SetLevel(lvl)
				matched = true
			}
		}
		if !matched {
			mErr = multierror.Append(mErr, fmt.Errorf("no logger named %q", name))
		}
	}
	return mErr.ErrorOrNil()
}

func matchLogger(lg hclog.Logger, name string) bool {
	if lg.Name() == name {
		return true
	}
	return lg.Name() == "" && (name == "" || name == "root")
}

func init() {
	s := Spec()
	apegears.Register("log-level", s)
	apegears.Register(hclog.NoLevel, s)
}
