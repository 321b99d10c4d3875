package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nafeeshossain/allergen-detector/pkg/importer"
)

func sourcesDBPath(outputDir string) string {
	return filepath.Join(outputDir, "sources.db")
}

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	source := fs.String("source", "", "adapter ID to import (e.g. builtin-defaults)")
	all := fs.Bool("all", false, "import all available sources")
	setURL := fs.String("set-url", "", "override the source URL for --source before importing")
	outputDir := fs.String("output-dir", "catalogs", "output directory for catalogs")
	fs.Parse(args)

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}

	// Open source DB and seed defaults.
	sdb, err := importer.OpenSourceDB(sourcesDBPath(*outputDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open sources.db: %v\n", err)
		os.Exit(1)
	}
	defer sdb.Close()

	if err := sdb.Seed(importer.All()); err != nil {
		fmt.Fprintf(os.Stderr, "seed sources: %v\n", err)
		os.Exit(1)
	}

	if !*all && *source == "" {
		fmt.Println("Available sources:")
		fmt.Println()
		sources, _ := sdb.ListSources()
		for _, src := range sources {
			status := ""
			if src.LastStatus != nil {
				status = fmt.Sprintf("  [%d]", *src.LastStatus)
			}
			fmt.Printf("  %-20s  %s  (-> %s)%s\n", src.AdapterID, src.Description, src.CatalogID, status)
		}
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  allergen-detector import --source <id> [--output-dir <dir>]")
		fmt.Println("  allergen-detector import --all [--output-dir <dir>]")
		return
	}

	if *setURL != "" {
		if *source == "" {
			fmt.Fprintln(os.Stderr, "--set-url requires --source")
			os.Exit(1)
		}
		if err := sdb.SetURL(*source, *setURL); err != nil {
			fmt.Fprintf(os.Stderr, "set url: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	if *all {
		for _, a := range importer.All() {
			if err := runImport(ctx, sdb, a, *outputDir); err != nil {
				fmt.Fprintf(os.Stderr, "[%s] FAILED: %v\n", a.ID(), err)
				continue
			}
		}
		return
	}

	a, err := importer.Get(*source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		fmt.Println("\nAvailable sources:")
		for _, a := range importer.All() {
			fmt.Printf("  %s\n", a.ID())
		}
		os.Exit(1)
	}

	if err := runImport(ctx, sdb, a, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "[%s] FAILED: %v\n", a.ID(), err)
		os.Exit(1)
	}
}

func runImport(ctx context.Context, sdb *importer.SourceDB, a importer.Adapter, outputDir string) error {
	url, err := sdb.GetURL(a.ID())
	if err != nil {
		return fmt.Errorf("resolve url: %w", err)
	}

	fmt.Printf("[%s] importing...\n", a.ID())
	if err := a.Import(ctx, url, outputDir); err != nil {
		return err
	}
	fmt.Printf("[%s] OK -> %s/%s/\n", a.ID(), outputDir, a.CatalogID())
	return nil
}
