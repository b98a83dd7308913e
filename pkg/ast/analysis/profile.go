package analysis

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gitrdm/godatalog/pkg/ast"
)

const profileUseName = "profile-use"

// ProfileUse loads relation sizes from a prior profile log so the
// profile-guided SIPS metric can rank atoms by measured cardinality.
// Unknown relations report an infinite size.
//
// The reader consumes the line-oriented profile format; only
// "@relation-size;<name>;<size>" records are of interest here.
type ProfileUse struct {
	sizes map[string]float64
}

// ProfileUseOf returns the cached profile-use analysis of the unit.
func ProfileUseOf(tu *ast.TranslationUnit) *ProfileUse {
	return tu.Analysis(profileUseName, func() ast.Analysis {
		return &ProfileUse{}
	}).(*ProfileUse)
}

// Name implements ast.Analysis.
func (p *ProfileUse) Name() string { return profileUseName }

// Run implements ast.Analysis.
func (p *ProfileUse) Run(tu *ast.TranslationUnit) {
	p.sizes = make(map[string]float64)
	path := tu.Opts.ProfileUsePath
	if path == "" {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		tu.Report.AddWarning(fmt.Sprintf("cannot read profile log %s: %v", path, err), ast.SrcLoc{})
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ";")
		if len(fields) < 3 || fields[0] != "@relation-size" {
			continue
		}
		size, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			continue
		}
		p.sizes[fields[1]] = size
	}
}

// HasSizes reports whether any sizes were loaded.
func (p *ProfileUse) HasSizes() bool { return len(p.sizes) > 0 }

// RelationSize returns the recorded size of the named relation, or +Inf when
// the profile has no record for it.
func (p *ProfileUse) RelationSize(name ast.QualifiedName) float64 {
	if size, ok := p.sizes[name.String()]; ok {
		return size
	}
	return math.Inf(1)
}

func (p *ProfileUse) String() string {
	var sb strings.Builder
	for name, size := range p.sizes {
		fmt.Fprintf(&sb, "%s: %g\n", name, size)
	}
	return sb.String()
}
