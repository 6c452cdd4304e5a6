package checks

import (
	"fmt"
	"strings"

	"github.com/c360studio/odoolint/config"
	"github.com/c360studio/odoolint/extract"
)

type csvSite struct {
	path string
	line int
}

// checkCSV reports duplicate external ids across the CSV data files
// of one addon, keyed by manifest section plus id so demo and data
// namespaces stay separate.
func checkCSV(cfg *config.Config, units []*extract.Unit, result *Result) {
	ids := make(map[string][]csvSite)
	var order []string

	for _, unit := range units {
		if unit.ParseError != nil {
			result.Add("csv_syntax_error",
				fmt.Sprintf("%s:%d %s", unit.Path, unit.ParseError.Line, unit.ParseError.Message))
			continue
		}
		for _, row := range unit.CSV.Rows {
			key := fmt.Sprintf("%s/%s", unit.Section, row.ID)
			if _, seen := ids[key]; !seen {
				order = append(order, key)
			}
			ids[key] = append(ids[key], csvSite{unit.Path, row.Line})
		}
	}

	for _, key := range order {
		sites := ids[key]
		if len(sites) < 2 {
			continue
		}
		others := make([]string, 0, len(sites)-1)
		for _, site := range sites[1:] {
			others = append(others, fmt.Sprintf("%s:%d", site.path, site.line))
		}
		result.Add("csv_duplicate_record_id",
			fmt.Sprintf("%s:%d Duplicate CSV record id %q in %s",
				sites[0].path, sites[0].line, key, strings.Join(others, ", ")))
	}
}
