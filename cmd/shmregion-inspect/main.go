// shmregion-inspect is a small diagnostic CLI for shmregion: it can create
// a region with a declared layout, or open an existing one (by OS name or
// link file) and print its resolved layout.
//
// Usage:
//
//	shmregion-inspect create [options]
//	shmregion-inspect open [options]
//
// Options for 'create':
//
//	-s, --size          User region size in bytes (required)
//	-l, --link          Link file path to publish the OS name at
//	-n, --name          Explicit OS object name (default: synthesized)
//	-m, --mutex         Add a Mutex lock covering the whole user region
//	    --overwrite     Overwrite an existing link file
//
// Options for 'open':
//
//	-l, --link          Link file path to resolve the OS name from
//	-n, --name          Explicit OS object name
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/shmregion"
	"github.com/calvinalkan/shmregion/internal/lockprim"
)

func main() {
	os.Exit(run(os.Stdout, os.Stderr, os.Args[1:]))
}

func run(out, errOut io.Writer, args []string) int {
	if len(args) == 0 {
		printUsage(errOut)

		return 1
	}

	switch args[0] {
	case "create":
		return cmdCreate(out, errOut, args[1:])
	case "open":
		return cmdOpen(out, errOut, args[1:])
	case "-h", "--help", "help":
		printUsage(out)

		return 0
	default:
		fmt.Fprintf(errOut, "error: unknown command %q\n\n", args[0])
		printUsage(errOut)

		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: shmregion-inspect <create|open> [options]")
}

func cmdCreate(out, errOut io.Writer, args []string) int {
	flagSet := flag.NewFlagSet("create", flag.ContinueOnError)
	flagSet.SetOutput(errOut)

	size := flagSet.Uint64P("size", "s", 0, "User region size in bytes (required)")
	link := flagSet.StringP("link", "l", "", "Link file path to publish the OS name at")
	name := flagSet.StringP("name", "n", "", "Explicit OS object name")
	mutex := flagSet.BoolP("mutex", "m", false, "Add a Mutex lock covering the whole user region")
	overwrite := flagSet.Bool("overwrite", false, "Overwrite an existing link file")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}

		fmt.Fprintf(errOut, "error: %v\n", err)

		return 1
	}

	if *size == 0 {
		fmt.Fprintln(errOut, "error: --size is required and must be > 0")

		return 1
	}

	cfg := shmregion.NewConfig().SetUserSize(*size)

	if *link != "" {
		cfg = cfg.SetLinkPath(*link)
	}

	if *name != "" {
		cfg = cfg.SetOSName(*name)
	}

	if *overwrite {
		cfg = cfg.OverwriteLink()
	}

	if *mutex {
		var err error

		cfg, err = cfg.AddLock(lockprim.Mutex, 0, *size)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)

			return 1
		}
	}

	region, err := cfg.Create()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)

		return 1
	}
	defer region.Close() //nolint:errcheck // best-effort cleanup on process exit

	printLayout(out, region)

	return 0
}

func cmdOpen(out, errOut io.Writer, args []string) int {
	flagSet := flag.NewFlagSet("open", flag.ContinueOnError)
	flagSet.SetOutput(errOut)

	link := flagSet.StringP("link", "l", "", "Link file path to resolve the OS name from")
	name := flagSet.StringP("name", "n", "", "Explicit OS object name")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}

		fmt.Fprintf(errOut, "error: %v\n", err)

		return 1
	}

	if *link == "" && *name == "" {
		fmt.Fprintln(errOut, "error: one of --link or --name is required")

		return 1
	}

	cfg := shmregion.NewConfig()

	if *link != "" {
		cfg = cfg.SetLinkPath(*link)
	}

	if *name != "" {
		cfg = cfg.SetOSName(*name)
	}

	region, err := cfg.Open()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)

		return 1
	}
	defer region.Close() //nolint:errcheck // best-effort cleanup on process exit

	printLayout(out, region)

	return 0
}

func printLayout(out io.Writer, region *shmregion.Region) {
	cfg := region.Config()

	fmt.Fprintf(out, "os_name:    %s\n", cfg.OSName())
	fmt.Fprintf(out, "user_size:  %d\n", cfg.UserSize())
	fmt.Fprintf(out, "meta_size:  %d\n", cfg.MetaSize())
	fmt.Fprintf(out, "num_locks:  %d\n", cfg.NumLocks())
	fmt.Fprintf(out, "num_events: %d\n", cfg.NumEvents())

	for i := range cfg.NumLocks() {
		l := cfg.GetLock(i)
		fmt.Fprintf(out, "  lock[%d]: uid=%d offset=%d length=%d\n", i, l.Kind.UID(), l.Offset, l.Length)
	}

	for i := range cfg.NumEvents() {
		e := cfg.GetEvent(i)
		fmt.Fprintf(out, "  event[%d]: uid=%d\n", i, e.Kind.UID())
	}
}
