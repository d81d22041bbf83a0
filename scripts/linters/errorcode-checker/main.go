// Command errorcode-checker enforces the repository's error conventions:
// every code registered through MustNewCode is actually used, code strings
// carry the prefix of the package that declares them, no string is
// registered twice, and library packages do not fall back to fmt.Errorf or
// the stdlib errors constructors.
package main

import (
	"flag"
	"log"
	"os"
)

func main() {
	var (
		dir        = flag.String("dir", ".", "directory tree to check")
		configPath = flag.String("config", "", "path to configuration file")
		format     = flag.String("format", "", "output format: human or json (overrides config)")
		verbose    = flag.Bool("verbose", false, "list every registered code")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("errorcode-checker: %v", err)
	}
	if *format != "" {
		cfg.OutputFormat = *format
	}
	if *verbose {
		cfg.Verbose = true
	}

	result, err := check(*dir, cfg)
	if err != nil {
		log.Fatalf("errorcode-checker: %v", err)
	}

	if err := result.print(os.Stdout, cfg.OutputFormat, cfg.Verbose); err != nil {
		log.Fatalf("errorcode-checker: %v", err)
	}

	if result.failed(cfg) {
		os.Exit(1)
	}
}
