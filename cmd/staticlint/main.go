// Command staticlint bundles the analyzers TinyApp is checked with: a set of
// passes from the Go toolchain, third-party analyzers, the staticcheck analyzers
// enabled in config.json, and the project-specific noglobalmap analyzer.
//
// config.json is looked up next to the binary:
//
//	{"Staticcheck": ["SA1000", "SA4006", "S1000", "ST1005"]}
package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/analysis/lint"
	"honnef.co/go/tools/simple"
	"honnef.co/go/tools/staticcheck"
	"honnef.co/go/tools/stylecheck"

	"github.com/patric-chuzhbe/tinyapp/cmd/staticlint/noglobalmap"
)

// Config is the name of the JSON configuration file that lists enabled staticcheck analyzers.
const Config = `config.json`

// ConfigData describes the structure of the configuration file.
// Staticcheck holds analyzer names from the SA, S and ST groups, e.g. "SA1000", "S1000".
type ConfigData struct {
	Staticcheck []string
}

func main() {
	appfile, err := os.Executable()
	if err != nil {
		panic(err)
	}
	data, err := os.ReadFile(filepath.Join(filepath.Dir(appfile), Config))
	if err != nil {
		panic(err)
	}
	var cfg ConfigData
	if err = json.Unmarshal(data, &cfg); err != nil {
		panic(err)
	}

	myChecks := []*analysis.Analyzer{
		copylock.Analyzer,
		httpresponse.Analyzer, // response bodies used before the error check
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		noglobalmap.Analyzer,
	}

	checks := make(map[string]bool)
	for _, v := range cfg.Staticcheck {
		checks[v] = true
	}

	for _, group := range [][]*analysis.Analyzer{
		analyzersOf(staticcheck.Analyzers),
		analyzersOf(simple.Analyzers),
		analyzersOf(stylecheck.Analyzers),
	} {
		for _, v := range group {
			if checks[v.Name] {
				myChecks = append(myChecks, v)
			}
		}
	}

	multichecker.Main(myChecks...)
}

func analyzersOf(group []*lint.Analyzer) []*analysis.Analyzer {
	result := make([]*analysis.Analyzer, 0, len(group))
	for _, v := range group {
		result = append(result, v.Analyzer)
	}
	return result
}
