// Package datalog is the facade over the compiler middle-end: it drives the
// rewrite pipeline, the lowering, the interpreter generator and the
// executor over one program, and exposes the results.
package datalog

import (
	"github.com/spf13/cast"

	"github.com/gitrdm/godatalog/pkg/ast"
)

// Config carries the options the core reads. The zero value is a working
// default configuration.
type Config struct {
	// SIPS names the cost metric used by literal reordering; empty selects
	// all-bound.
	SIPS string
	// RamSIPS names the cost metric used by the lowering; empty selects
	// all-bound.
	RamSIPS string
	// Provenance selects the provenance translation strategy and disables
	// inequality indices.
	Provenance bool
	// Profile enables per-operation frequency counters.
	Profile bool
	// DebugReport enables intermediate analysis dumps.
	DebugReport bool
	// ProfileUse points at a profile log seeding the profile-use analysis.
	ProfileUse string
	// Jobs is the worker count for parallel regions.
	Jobs int
}

// ConfigFromMap builds a Config from a loosely typed option map, coercing
// values with the usual liberality of configuration files.
func ConfigFromMap(options map[string]any) Config {
	return Config{
		SIPS:        cast.ToString(options["SIPS"]),
		RamSIPS:     cast.ToString(options["RamSIPS"]),
		Provenance:  cast.ToBool(options["provenance"]),
		Profile:     cast.ToBool(options["profile"]),
		DebugReport: cast.ToBool(options["debug-report"]),
		ProfileUse:  cast.ToString(options["profile-use"]),
		Jobs:        cast.ToInt(options["jobs"]),
	}
}

func (c Config) options() ast.Options {
	return ast.Options{
		SIPS:           c.SIPS,
		RamSIPS:        c.RamSIPS,
		Provenance:     c.Provenance,
		Profile:        c.Profile,
		DebugReport:    c.DebugReport,
		ProfileUsePath: c.ProfileUse,
		Jobs:           c.Jobs,
	}
}
