// Command boxctl inspects a box cache directory: lists cached artifacts,
// verifies container integrity, and removes fingerprints. Telemetry follows
// the config file's telemetry section; without one, logging defaults to
// info-level JSON on stderr.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	flag "github.com/spf13/pflag"

	"github.com/jonwraymond/boxcache/cache"
	"github.com/jonwraymond/boxcache/config"
	"github.com/jonwraymond/boxcache/container"
	"github.com/jonwraymond/boxcache/observe"
)

const version = "0.1.0"

const usage = `Usage: boxctl [flags] <command>

Commands:
  ls                        list cached artifacts
  verify <file>             check that a container file is readable
  rm --fingerprint <fp>     remove all seed variants of a fingerprint

Flags:
`

func main() {
	flags := flag.NewFlagSet("boxctl", flag.ContinueOnError)
	configPath := flags.String("config", "", "config file path (HuJSON)")
	dir := flags.String("dir", "", "cache directory (overrides config)")
	fingerprint := flags.String("fingerprint", "", "fingerprint for rm")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}

	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if flags.NArg() < 1 {
		flags.Usage()
		os.Exit(2)
	}

	if err := run(flags, *configPath, *dir, *fingerprint); err != nil {
		fmt.Fprintln(os.Stderr, "boxctl:", err)
		os.Exit(1)
	}
}

func run(flags *flag.FlagSet, configPath, dir, fingerprint string) error {
	cfg, err := resolveConfig(configPath, dir)
	if err != nil {
		return err
	}

	ctx := context.Background()
	obs, err := observe.NewObserver(ctx, cfg.Telemetry.Observe("boxctl", version))
	if err != nil {
		return err
	}
	defer obs.Shutdown(ctx)
	log := obs.Logger()

	switch flags.Arg(0) {
	case "ls":
		return runLs(ctx, log, cfg.CacheDir)
	case "verify":
		if flags.NArg() < 2 {
			return fmt.Errorf("verify needs a container file argument")
		}
		return runVerify(flags.Arg(1))
	case "rm":
		if fingerprint == "" {
			return fmt.Errorf("rm needs --fingerprint")
		}
		return runRm(ctx, log, cfg.CacheDir, fingerprint)
	default:
		return fmt.Errorf("unknown command %q", flags.Arg(0))
	}
}

// resolveConfig builds the effective configuration: defaults, then the
// config file if given, with the --dir flag winning for the cache directory.
func resolveConfig(configPath, dir string) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if dir != "" {
		cfg.CacheDir = dir
	}
	return cfg, nil
}

func runLs(ctx context.Context, log observe.Logger, dir string) error {
	if dir == "" {
		return fmt.Errorf("no cache directory: pass --dir or --config")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var rows []cache.Entry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ent, ok := cache.ParseFileName(e.Name())
		if !ok {
			log.Debug(ctx, "skipping file outside the cache filename contract",
				observe.Field{Key: "file", Value: e.Name()})
			continue
		}
		rows = append(rows, ent)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Kind != rows[j].Kind {
			return rows[i].Kind < rows[j].Kind
		}
		if rows[i].Fingerprint != rows[j].Fingerprint {
			return rows[i].Fingerprint < rows[j].Fingerprint
		}
		return rows[i].Seed < rows[j].Seed
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tFINGERPRINT\tSEED")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\n", r.Kind, r.Fingerprint, r.Seed)
	}
	return w.Flush()
}

func runVerify(path string) error {
	h, err := container.NewStore().Open(path)
	if err != nil {
		return err
	}
	if err := h.Close(); err != nil {
		return err
	}
	fmt.Println("ok:", path)
	return nil
}

func runRm(ctx context.Context, log observe.Logger, dir, fingerprint string) error {
	if dir == "" {
		return fmt.Errorf("no cache directory: pass --dir or --config")
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*_"+fingerprint+"_r*.*"))
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no containers match fingerprint %s", fingerprint)
	}
	for _, m := range matches {
		ent, ok := cache.ParseFileName(filepath.Base(m))
		if !ok {
			continue
		}
		if err := os.Remove(m); err != nil {
			return err
		}
		log.Info(ctx, "removed cached container",
			observe.Field{Key: "record.kind", Value: ent.Kind},
			observe.Field{Key: "record.fingerprint", Value: ent.Fingerprint},
			observe.Field{Key: "record.seed", Value: ent.Seed},
		)
		fmt.Println("removed:", m)
	}
	return nil
}
