// Command bacnet-log views and analyzes protocol capture files.
//
// Capture files are written by bacnet-device when log.protocol_file (or
// BACNET_LOG_PROTOCOL_FILE) is set.
//
// Usage:
//
//	bacnet-log <command> [flags] <file.blog>
//
// Commands:
//
//	view     View the capture in human-readable format
//	export   Export the capture to JSONL or CSV
//	filter   Filter the capture into a new file
//	stats    Show statistics about the capture
//
// Examples:
//
//	# View all events
//	bacnet-log view device.blog
//
//	# View only writes to one object
//	bacnet-log view -service write-property -object av:1 device.blog
//
//	# Export outgoing messages to CSV
//	bacnet-log export -format csv -direction out device.blog
//
//	# Keep one connection's events
//	bacnet-log filter -conn-id abc12345 -o conn.blog device.blog
//
//	# Show statistics
//	bacnet-log stats device.blog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bacnet-stack/bacnet-go/cmd/bacnet-log/commands"
)

const usage = `bacnet-log - BACnet Protocol Log Analyzer

Usage:
  bacnet-log <command> [flags] <file.blog>

Commands:
  view     View the capture in human-readable format
  export   Export the capture to JSONL or CSV
  filter   Filter the capture into a new file
  stats    Show statistics about the capture

Use "bacnet-log <command> -help" for more information about a command.
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, usage)
		return 1
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "view":
		return runView(args)
	case "export":
		return runExport(args)
	case "filter":
		return runFilter(args)
	case "stats":
		return runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		return 1
	}
}

// newFlagSet creates a command flag set with a usage header.
func newFlagSet(name, synopsis, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "bacnet-log %s - %s\n\nUsage:\n  bacnet-log %s\n\nFlags:\n", name, summary, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// addFilterFlags registers the event filter flags on fs.
func addFilterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	opts := &commands.FilterOptions{}
	fs.StringVar(&opts.ConnID, "conn-id", "", "Filter by connection ID")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (transport, wire, service)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (message, state, error)")
	fs.StringVar(&opts.Service, "service", "", "Filter by service (e.g. write-property)")
	fs.StringVar(&opts.Object, "object", "", "Filter by object (e.g. analog-value:1)")
	return opts
}

// parseArgs parses the flags and returns the capture file path.
func parseArgs(fs *flag.FlagSet, args []string) (string, bool) {
	if err := fs.Parse(args); err != nil {
		return "", false
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		return "", false
	}
	return fs.Arg(0), true
}

func runView(args []string) int {
	fs := newFlagSet("view", "view [flags] <file.blog>", "View the capture in human-readable format")
	opts := addFilterFlags(fs)
	path, ok := parseArgs(fs, args)
	if !ok {
		return 1
	}

	filter, err := commands.BuildFilter(*opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runExport(args []string) int {
	fs := newFlagSet("export", "export [flags] <file.blog>", "Export the capture to JSONL or CSV")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	opts := addFilterFlags(fs)
	path, ok := parseArgs(fs, args)
	if !ok {
		return 1
	}

	filter, err := commands.BuildFilter(*opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := commands.RunExport(path, *format, *output, filter); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runFilter(args []string) int {
	fs := newFlagSet("filter", "filter -o <out.blog> [flags] <file.blog>", "Filter the capture into a new file")
	output := fs.String("o", "", "Output file (required)")
	opts := addFilterFlags(fs)
	path, ok := parseArgs(fs, args)
	if !ok {
		return 1
	}
	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		return 1
	}

	filter, err := commands.BuildFilter(*opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := commands.RunFilter(path, *output, filter, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runStats(args []string) int {
	fs := newFlagSet("stats", "stats <file.blog>", "Show statistics about the capture")
	path, ok := parseArgs(fs, args)
	if !ok {
		return 1
	}
	if err := commands.RunStats(path, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
