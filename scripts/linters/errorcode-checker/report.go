package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// report is the outcome of one run: everything declared plus every finding.
type report struct {
	Declared []declaredCode `json:"declared"`
	Findings []finding      `json:"findings"`
}

func (r *report) print(w io.Writer, format string, verbose bool) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	if verbose {
		fmt.Fprintf(w, "%d error codes registered\n", len(r.Declared))
		for _, d := range r.Declared {
			fmt.Fprintf(w, "  %s = %q (%s:%d)\n", d.Name, d.Value, d.File, d.Line)
		}
	}

	if len(r.Findings) == 0 {
		fmt.Fprintf(w, "ok: %d error codes, no violations\n", len(r.Declared))
		return nil
	}

	sorted := make([]finding, len(r.Findings))
	copy(sorted, r.Findings)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].File != sorted[j].File {
			return sorted[i].File < sorted[j].File
		}
		return sorted[i].Line < sorted[j].Line
	})

	for _, f := range sorted {
		fmt.Fprintf(w, "%s:%d: [%s] %s\n", f.File, f.Line, f.Kind, f.Text)
	}
	fmt.Fprintf(w, "%d violations\n", len(sorted))
	return nil
}

// failed reports whether any finding kind is configured to fail the run.
func (r *report) failed(cfg *Config) bool {
	for _, f := range r.Findings {
		switch f.Kind {
		case "unused":
			if cfg.ExitOnUnused {
				return true
			}
		case "mismatched":
			if cfg.ExitOnMismatched {
				return true
			}
		case "duplicate":
			if cfg.ExitOnDuplicate {
				return true
			}
		case "forbidden":
			if cfg.ExitOnForbidden {
				return true
			}
		}
	}
	return false
}
