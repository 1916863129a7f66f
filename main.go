// Package main provides a command-line tool that reports client history
// across a Meraki organization, organization-wide by device and grouped by
// network, as console tables and optional Excel workbooks.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"Meraki-Client-History-Report/pkg/config"
	"Meraki-Client-History-Report/pkg/filters"
	"Meraki-Client-History-Report/pkg/logger"
	"Meraki-Client-History-Report/pkg/meraki"
	"Meraki-Client-History-Report/pkg/output"
	"Meraki-Client-History-Report/pkg/report"

	"github.com/joho/godotenv"
)

// Version information injected at build time via ldflags.
// Build with: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=<git-sha> -X main.BuildTime=<timestamp>"
var (
	Version   = "dev"     // Version set at build time
	Commit    = "unknown" // Git commit SHA set at build time
	BuildTime = "unknown" // Build timestamp set at build time
)

func main() {
	_ = godotenv.Load()

	optionFlag := flag.String("option", "all", "Product type to report: all, wired, wireless")
	rawFlag := flag.Bool("raw", false, "Export all raw client data without filtering")
	orgFlag := flag.String("org", "", "Organization name (default from .env)")
	tuningFlag := flag.String("config", "", "Optional YAML tuning file")
	logFileFlag := flag.String("log-file", "", "Log file path")
	logLevelFlag := flag.String("log-level", "", "Log level: DEBUG, INFO, WARNING, ERROR, CRITICAL")
	versionFlag := flag.Bool("version", false, "Show version and exit")
	helpFlag := flag.Bool("help", false, "Show help")
	flag.Usage = func() {
		printUsage(os.Stdout)
	}
	flag.Parse()

	if *helpFlag {
		printUsage(os.Stdout)
		return
	}
	if *versionFlag {
		printVersion(os.Stdout)
		return
	}

	ov := config.Overrides{
		OrgName:    *orgFlag,
		LogFile:    *logFileFlag,
		LogLevel:   *logLevelFlag,
		TuningFile: *tuningFlag,
	}
	if err := run(*optionFlag, *rawFlag, ov); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

// run is the single exit boundary: every failure below it comes back as an
// error and main decides the process exit code.
func run(option string, raw bool, ov config.Overrides) error {
	// Bad CLI input is rejected before any network call.
	mode, err := filters.ParseMode(option)
	if err != nil {
		return err
	}

	cfg, err := config.Load(ov)
	if err != nil {
		return err
	}
	cfg.PrintTable(os.Stdout)

	log := logger.New(cfg.LogFile, logger.ParseLogLevel(cfg.LogLevel))
	defer log.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "Interrupt received, shutting down.")
		os.Exit(1)
	}()

	ctx := context.Background()
	dash := meraki.NewDashboard(cfg.APIKey, cfg.BaseURL)

	orgs, err := dash.GetOrganizations(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch organizations: %w", err)
	}
	fmt.Printf("Found %d organization(s).\n", len(orgs))

	org, err := resolveOrganization(cfg.OrgName, orgs, promptForOrganization)
	if err != nil {
		return err
	}
	fmt.Printf("Working with Org: %s\n\n", org.Name)
	log.Infof("Resolved organization %s (%s)", org.Name, org.ID)

	fetcher := report.NewFetcher(dash, log, report.Options{
		Timespan:            cfg.Timespan,
		MaxRetries:          cfg.Tuning.MaxRetries,
		RateLimitPause:      cfg.Tuning.RateLimitPause(),
		PacingDelay:         cfg.Tuning.PacingDelay(),
		BurstAllowance:      cfg.Tuning.BurstAllowance,
		AllowedProductTypes: cfg.Tuning.AllowedProductTypes,
	})

	if !cfg.ReportOrgWide && !cfg.ReportByNetwork {
		fmt.Println("No report selected: set REPORT_ORG_WIDE and/or REPORT_BY_NETWORK to true.")
		return nil
	}

	if cfg.ReportOrgWide {
		if err := runOrgWideReport(ctx, fetcher, cfg, org, mode, raw, log); err != nil {
			return err
		}
	}
	if cfg.ReportByNetwork {
		if err := runNetworkReport(ctx, fetcher, cfg, org, mode, raw, log); err != nil {
			return err
		}
	}

	log.Infof("Script completed successfully!")
	return nil
}

// runOrgWideReport fetches client history per device and renders the device
// inventory, the client table, and the optional workbook.
func runOrgWideReport(ctx context.Context, fetcher *report.Fetcher, cfg *config.Config, org meraki.Organization, mode filters.Mode, raw bool, log *logger.Logger) error {
	fmt.Println("Generating organization-wide report...")
	units, err := fetcher.FetchByDevice(ctx, org.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch devices for organization %s: %w", org.Name, err)
	}
	units = report.AssembleDevices(units, mode, raw)

	devices := make([]meraki.Device, 0, len(units))
	for _, unit := range units {
		devices = append(devices, unit.Device)
	}
	output.WriteDeviceTable(os.Stdout, devices)

	if raw {
		output.WriteRawTable(os.Stdout, flattenDeviceClients(units))
	} else {
		output.WriteSummaryTable(os.Stdout, report.DeviceSummaries(units))
	}

	if cfg.Excel {
		if !report.HasDeviceClients(units) {
			fmt.Println("No data available to export to Excel.")
			return nil
		}
		path, err := output.ExportDeviceWorkbook(cfg.Tuning.ReportDir, units, raw, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("Data exported successfully to %s.\n", path)
		log.Infof("Excel report (organization-wide) generated: %s", path)
	}
	return nil
}

// runNetworkReport fetches client history per network and renders the
// client table and the optional workbook.
func runNetworkReport(ctx context.Context, fetcher *report.Fetcher, cfg *config.Config, org meraki.Organization, mode filters.Mode, raw bool, log *logger.Logger) error {
	fmt.Println("Generating report by network...")
	units, err := fetcher.FetchByNetwork(ctx, org.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch networks for organization %s: %w", org.Name, err)
	}
	units = report.AssembleNetworks(units, mode, raw)

	if raw {
		output.WriteRawTable(os.Stdout, flattenNetworkClients(units))
	} else {
		output.WriteSummaryTable(os.Stdout, report.NetworkSummaries(units))
	}

	if cfg.Excel {
		if !report.HasClients(units) {
			fmt.Println("No data available to export to Excel.")
			return nil
		}
		path, err := output.ExportNetworkWorkbook(cfg.Tuning.ReportDir, units, raw, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("Data exported successfully to %s.\n", path)
		log.Infof("Excel report (by network) generated: %s", path)
	}
	return nil
}

// orgChooser asks the user to pick one of the listed organization names.
// It must return a name from the list.
type orgChooser func(names []string) (string, error)

// resolveOrganization finds an organization by exact, case-sensitive name.
// A single organization is selected without prompting. With several
// organizations, an absent or unmatched name falls back to choose, which is
// called with the known name set and must answer from that set.
func resolveOrganization(name string, orgs []meraki.Organization, choose orgChooser) (meraki.Organization, error) {
	if len(orgs) == 0 {
		return meraki.Organization{}, errors.New("no organizations are accessible with this API key")
	}

	if name != "" {
		for _, org := range orgs {
			if org.Name == name {
				return org, nil
			}
		}
		fmt.Printf("Organization %q was not found.\n", name)
	}

	if len(orgs) == 1 {
		return orgs[0], nil
	}

	if choose == nil {
		return meraki.Organization{}, errors.New("no organization selected")
	}
	names := make([]string, 0, len(orgs))
	for _, org := range orgs {
		names = append(names, org.Name)
	}
	chosen, err := choose(names)
	if err != nil {
		return meraki.Organization{}, err
	}
	for _, org := range orgs {
		if org.Name == chosen {
			return org, nil
		}
	}
	return meraki.Organization{}, fmt.Errorf("organization %q not found", chosen)
}

// promptForOrganization lists the available organizations on stdout and
// reads choices from stdin until one matches the list exactly.
func promptForOrganization(names []string) (string, error) {
	fmt.Println("Available organizations:")
	for _, name := range names {
		fmt.Printf("- %s\n", name)
	}
	fmt.Println("\nNote: Meraki organization names are case sensitive")

	known := make(map[string]struct{}, len(names))
	for _, name := range names {
		known[name] = struct{}{}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("Which organization should we use? ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", errors.New("no organization selected")
		}
		answer := scanner.Text()
		if _, ok := known[answer]; ok {
			return answer, nil
		}
		fmt.Println("Please choose one of the listed organizations.")
	}
}

func flattenDeviceClients(units []report.DeviceUnit) []meraki.Client {
	var clients []meraki.Client
	for _, unit := range units {
		clients = append(clients, unit.Clients...)
	}
	return clients
}

func flattenNetworkClients(units []report.NetworkUnit) []meraki.Client {
	var clients []meraki.Client
	for _, unit := range units {
		clients = append(clients, unit.Clients...)
	}
	return clients
}

// printUsage writes help text to the specified file.
func printUsage(w *os.File) {
	fmt.Fprintln(w, "Meraki-Client-History-Report - client history reporting for a Meraki organization")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  Meraki-Client-History-Report --option wireless")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  --option <all|wired|wireless>  Product type to report (default all)")
	fmt.Fprintln(w, "  --raw                          Export all raw client data without filtering")
	fmt.Fprintln(w, "  --org <name>                   Organization name (default from .env)")
	fmt.Fprintln(w, "  --config <file>                Optional YAML tuning file")
	fmt.Fprintln(w, "  --log-file <filename>          Log file path (default from .env)")
	fmt.Fprintln(w, "  --log-level <level>            DEBUG | INFO | WARNING | ERROR | CRITICAL")
	fmt.Fprintln(w, "  --version                      Show version and exit")
	fmt.Fprintln(w, "  --help                         Show this help")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  MERAKI_API_KEY       Meraki Dashboard API key (required)")
	fmt.Fprintln(w, "  MERAKI_ORG_NAME      Organization name (optional; prompts when several exist)")
	fmt.Fprintln(w, "  REPORT_ORG_WIDE      true to report client history by device")
	fmt.Fprintln(w, "  REPORT_BY_NETWORK    true to report client history by network")
	fmt.Fprintln(w, "  EXCEL                true to export Excel workbooks")
	fmt.Fprintln(w, "  TIMESPAN_IN_SECONDS  Client history window, 1..2678400 (default 86400)")
	fmt.Fprintln(w, "  LOGGER_LEVEL         DEBUG | INFO | WARNING | ERROR | CRITICAL")
	fmt.Fprintln(w, "  LOG_FILE             Log file path")
	fmt.Fprintln(w, "  REPORT_DIR           Directory for Excel output (default reports)")
	fmt.Fprintln(w, "  MERAKI_BASE_URL      API base URL (default https://api.meraki.com/api/v1)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  Meraki-Client-History-Report")
	fmt.Fprintln(w, "  Meraki-Client-History-Report --option wired")
	fmt.Fprintln(w, "  Meraki-Client-History-Report --option wireless --raw")
	fmt.Fprintln(w, "  Meraki-Client-History-Report --org \"My Org\" --config tuning.yaml")
}

// printVersion writes version and build information to the specified file.
func printVersion(w *os.File) {
	fmt.Fprintf(w, "Meraki-Client-History-Report version %s\n", Version)
	fmt.Fprintf(w, "  Commit:     %s\n", Commit)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
}
