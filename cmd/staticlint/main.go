// Command staticlint runs the project's static checks as a single multichecker binary.
//
// It always runs a fixed set of analyzers from golang.org/x/tools, ineffassign,
// nilerr and noosexit. Staticcheck analyzers are enabled by name from a JSON
// config; the embedded config.json is used unless STATICLINT_CONFIG points to another file.
//
//	go build -o staticlint ./cmd/staticlint
//	./staticlint ./...
package main

import (
	_ "embed"
	"encoding/json"
	"log"
	"os"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/staticcheck"

	"github.com/patric-chuzhbe/linkshrt/cmd/staticlint/noosexit"
)

// ConfigEnv names the variable holding an alternative config path.
const ConfigEnv = "STATICLINT_CONFIG"

//go:embed config.json
var defaultConfig []byte

// Settings lists the staticcheck analyzers to enable, e.g. "SA1000", "SA4010".
type Settings struct {
	Staticcheck []string `json:"staticcheck"`
}

func loadSettings() (*Settings, error) {
	data := defaultConfig
	if path := os.Getenv(ConfigEnv); path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

func analyzers(settings *Settings) []*analysis.Analyzer {
	checks := []*analysis.Analyzer{
		copylock.Analyzer,
		errorsas.Analyzer,
		httpresponse.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		noosexit.Analyzer,
	}

	enabled := make(map[string]bool, len(settings.Staticcheck))
	for _, name := range settings.Staticcheck {
		enabled[name] = true
	}
	for _, v := range staticcheck.Analyzers {
		if enabled[v.Analyzer.Name] {
			checks = append(checks, v.Analyzer)
		}
	}

	return checks
}

func main() {
	settings, err := loadSettings()
	if err != nil {
		log.Fatalf("unable to load staticlint settings: %v", err)
	}

	multichecker.Main(analyzers(settings)...)
}
