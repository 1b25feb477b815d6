package cli

import (
	"flag"
	"os"
)

// CommonFlags are accepted by every command.
type CommonFlags struct {
	ConfigPath string
	Verbose    bool
}

func (c *CommonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigPath, "config", "config.yaml", "Configuration file (falls back to environment variables)")
	fs.BoolVar(&c.Verbose, "verbose", false, "Verbose output")
}

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	CommonFlags
	Port    int
	NoSweep bool
}

// ParseServeFlags parses command line flags for the serve command.
func ParseServeFlags(args []string) (*ServeFlags, error) {
	flags := &ServeFlags{}
	fs := flag.NewFlagSet("api", flag.ContinueOnError)
	flags.register(fs)
	fs.IntVar(&flags.Port, "port", 0, "Port to listen on (overrides config)")
	fs.BoolVar(&flags.NoSweep, "no-sweep", false, "Do not run the background invoice sweep")
	return flags, fs.Parse(args)
}

// ReportFlags holds the CLI flags for the forecast-report command.
type ReportFlags struct {
	CommonFlags
	ProjectID      string
	IncludePending bool
	CSVPath        string
	XLSXPath       string
	Verify         bool
}

// ParseReportFlags parses command line flags for the forecast-report
// command. include-pending defaults to the configured value when unset.
func ParseReportFlags(args []string) (*ReportFlags, map[string]bool, error) {
	flags := &ReportFlags{}
	fs := flag.NewFlagSet("forecast-report", flag.ContinueOnError)
	flags.register(fs)
	fs.StringVar(&flags.ProjectID, "project", "", "Project ID (required)")
	fs.BoolVar(&flags.IncludePending, "include-pending", false, "Include pending change order columns")
	fs.StringVar(&flags.CSVPath, "csv", "", "Also write the report as CSV to this path")
	fs.StringVar(&flags.XLSXPath, "xlsx", "", "Also write the report as XLSX to this path")
	fs.BoolVar(&flags.Verify, "verify", false, "Run consistency checks and exit non-zero if any fail")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return flags, set, nil
}

// SweepFlags holds the CLI flags for the match-sweep command.
type SweepFlags struct {
	CommonFlags
	Concurrency int
}

// ParseSweepFlags parses command line flags for the match-sweep command.
func ParseSweepFlags(args []string) (*SweepFlags, error) {
	flags := &SweepFlags{}
	fs := flag.NewFlagSet("match-sweep", flag.ContinueOnError)
	flags.register(fs)
	fs.IntVar(&flags.Concurrency, "concurrency", 0, "Invoices matched at once (overrides config)")
	return flags, fs.Parse(args)
}

// Args returns the process arguments without the program name.
func Args() []string {
	return os.Args[1:]
}
