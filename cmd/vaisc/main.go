// Command vaisc is the thin CLI driver wiring internal/query into a
// build/run/check surface: one flag.FlagSet, colorized human-facing
// output, subcommand dispatch. It is explicitly a peripheral/
// external-collaborator surface — the compiler's actual behavior
// lives in the internal packages this binary only calls into.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/vaislang/vais/internal/config"
	"github.com/vaislang/vais/internal/depgraph"
	"github.com/vaislang/vais/internal/diag"
	"github.com/vaislang/vais/internal/effects"
	"github.com/vaislang/vais/internal/jit"
	vaislog "github.com/vaislang/vais/internal/log"
	"github.com/vaislang/vais/internal/query"
	"github.com/vaislang/vais/internal/sourcestore"
)

var (
	Version = "dev"
	Commit  = "unknown"

	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	var (
		versionFlag = flag.Bool("version", false, "print version information")
		helpFlag    = flag.Bool("help", false, "show help")
		debugFlag   = flag.Bool("debug", false, "enable debug-level compiler logging")
		multiErr    = flag.Bool("multi-error", false, "collect every type error instead of failing fast")
		target      = flag.String("target", "native", "target triple for code generation")
		entry       = flag.String("entry", "main", "entry function name for run")
		configPath  = flag.String("config", "", "path to a YAML config file overriding defaults")
	)
	flag.Parse()
	vaislog.SetDebug(*debugFlag)

	if *versionFlag {
		printVersion()
		return
	}
	if *helpFlag || flag.NArg() == 0 {
		printHelp()
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *multiErr {
		cfg.MultiError = true
	}
	if *target != "native" {
		cfg.Target = *target
	}

	command := flag.Arg(0)
	switch command {
	case "check":
		if flag.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "%s: missing file argument\n", red("Error"))
			os.Exit(1)
		}
		checkFile(flag.Arg(1), cfg)
	case "run":
		if flag.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "%s: missing file argument\n", red("Error"))
			os.Exit(1)
		}
		runFile(flag.Arg(1), cfg, *entry)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", red("Error"), command)
		printHelp()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("vaisc %s\n", bold(Version))
	if Commit != "unknown" {
		fmt.Printf("Commit: %s\n", Commit)
	}
}

func printHelp() {
	fmt.Println(bold("vaisc - the Vais systems language compiler"))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  vaisc <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Printf("  %s <file>     Type-check a file without running it\n", cyan("check"))
	fmt.Printf("  %s <file>       Compile and execute a file's entry function\n", cyan("run"))
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --version        Print version information")
	fmt.Println("  --debug          Enable debug-level compiler logging")
	fmt.Println("  --multi-error    Collect every type error instead of failing fast")
	fmt.Println("  --target <t>     Target triple for code generation (default native)")
	fmt.Println("  --entry <name>   Entry function name for run (default main)")
	fmt.Println("  --config <path>  Load a YAML config file overriding defaults")
}

func newDatabase(path string, cfg config.Config) (*query.Database, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file %q: %w", path, err)
	}
	store := sourcestore.New()
	store.SetSourceText(path, string(content))
	db := query.New(store, depgraph.New())
	db.MultiError = cfg.MultiError
	db.MaxParseDepth = cfg.MaxParseDepth
	db.CallThreshold = cfg.CallThreshold
	db.OSRThreshold = cfg.OSRThreshold
	return db, nil
}

func checkFile(path string, cfg config.Config) {
	db, err := newDatabase(path, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}

	fmt.Printf("%s Type checking %s...\n", cyan("→"), path)
	diags, checkErr := db.TypeCheck(path)
	printDiagnostics(diags)
	if checkErr != nil {
		os.Exit(1)
	}
	fmt.Printf("\n%s No errors found!\n", green("✓"))
}

func runFile(path string, cfg config.Config, entry string) {
	db, err := newDatabase(path, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}

	if _, err := db.GenerateIR(path, cfg.Target); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Compile error"), err)
		os.Exit(1)
	}

	db.SetJITModule(jit.NewModule())

	ectx := effects.NewContext()
	ectx.Grant(effects.NewCapability("Clock"))
	ectx.Grant(effects.NewCapability("IO"))
	db.SetEffectsContext(ectx)

	result, err := db.ExecuteFunction(path, cfg.Target, entry, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Runtime error"), err)
		os.Exit(1)
	}
	fmt.Printf("%s %s() = %s\n", green("✓"), entry, result.String())
}

func printDiagnostics(diags diag.List) {
	for _, d := range diags {
		switch d.Severity {
		case diag.SeverityWarning:
			fmt.Fprintf(os.Stderr, "%s %s\n", yellow("warning:"), d.Error())
		default:
			fmt.Fprintf(os.Stderr, "%s %s\n", red("error:"), d.Error())
		}
	}
}
