package main

import (
	"fmt"
	"os"
	"time"

	"fpscan/internal/app"
	"fpscan/internal/config"
	"fpscan/internal/model"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an FPApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. app.OpScan).
func newApp(operation string) (*app.FPApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewFPApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "fpscan",
	Short: "Incremental filesystem fingerprint scanner",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Printf("DB Dir:   %s\n", defaults["db_dir"])
		fmt.Println("Run `fpscan db migrate` to create the database.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:   %s\n", cfg.HostID)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Database:  %s\n", cfg.Database.Type)
		if len(cfg.Scan.Exclude) > 0 {
			fmt.Printf("Exclude:   %v\n", cfg.Scan.Exclude)
		}
		if len(cfg.Scan.Include) > 0 {
			fmt.Printf("Include:   %v\n", cfg.Scan.Include)
		}
		if cfg.Metrics.PushgatewayURL != "" {
			fmt.Printf("Metrics:   %s (job %s)\n", cfg.Metrics.PushgatewayURL, cfg.Metrics.Job)
		}
		if cfg.Events.NATSURL != "" {
			fmt.Printf("Events:    %s (%s.scan.*)\n", cfg.Events.NATSURL, cfg.Events.SubjectPrefix)
		}
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the fingerprint database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.OpMigrateDB)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.MigrateDB(); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		fmt.Println("Database is up to date.")
		return nil
	},
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan [PATH...]",
	Short: "Index files and detect vanished ones",
	Long: "Index files and detect vanished ones.\n\n" +
		"A single directory argument is scanned as a tree, honouring the exclude and\n" +
		"include rules. Several arguments, or a single file, are scanned as a list of files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		exclude, _ := cmd.Flags().GetStringArray("exclude")
		include, _ := cmd.Flags().GetStringArray("include")
		minSize, _ := cmd.Flags().GetString("min-size")
		maxSize, _ := cmd.Flags().GetString("max-size")

		a, err := newApp(app.OpScan)
		if err != nil {
			return err
		}
		defer a.Close()

		paths := args
		if len(paths) == 0 {
			paths = []string{"."}
		}

		run, err := a.Scan(paths, app.ScanOptions{
			Force:   force,
			Exclude: exclude,
			Include: include,
			MinSize: minSize,
			MaxSize: maxSize,
		})
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		fmt.Printf("Forward: %d scanned, %d processed, %d errors\n",
			run.Forward.Scanned, run.Forward.Processed, run.Forward.Errors)
		fmt.Printf("Reverse: %d scanned, %d processed, %d errors\n",
			run.Reverse.Scanned, run.Reverse.Processed, run.Reverse.Errors)
		return nil
	},
}

// ls command
var lsCmd = &cobra.Command{
	Use:   "ls [DIR]",
	Short: "List stored fingerprints",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vanished, _ := cmd.Flags().GetBool("vanished")

		a, err := newApp(app.OpList)
		if err != nil {
			return err
		}
		defer a.Close()

		target := "."
		if len(args) > 0 {
			target = args[0]
		}

		fps, err := a.ListFingerprints(target, vanished)
		if err != nil {
			return err
		}

		if len(fps) == 0 {
			fmt.Println("No fingerprints found.")
			return nil
		}

		for _, fp := range fps {
			indicator := " "
			if fp.IsVanished() {
				indicator = "V"
			}
			fmt.Printf("%s %s  %8s  %s\n", indicator, shortMD5(fp.MD5), humanize.Bytes(uint64(fp.Size)), fp.LongFilename)
		}
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show FILE",
	Short: "View a stored fingerprint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.OpShow)
		if err != nil {
			return err
		}
		defer a.Close()

		fp, err := a.ShowFingerprint(args[0])
		if err != nil {
			return err
		}
		if fp == nil {
			fmt.Println("No fingerprint recorded.")
			return nil
		}

		printFingerprint(fp)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View scan history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(app.OpHistory)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No scans recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if r.FinishedAt.Valid {
				d := r.FinishedAt.Time.Sub(r.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			force := ""
			if r.Force {
				force = " [force]"
			}
			fmt.Printf("#%d  %s  %-7s  %-10s  fwd %d/%d  rev %d/%d/%d  %s%s\n",
				r.ID,
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.Status,
				duration,
				r.Forward.Scanned, r.Forward.Processed,
				r.Reverse.Scanned, r.Reverse.Processed, r.Reverse.Errors,
				r.Scope,
				force,
			)
		}
		return nil
	},
}

func shortMD5(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}

func printFingerprint(fp *model.Fingerprint) {
	fmt.Printf("UUID:     %s\n", fp.UUID)
	fmt.Printf("Path:     %s\n", fp.LongFilename)
	fmt.Printf("Size:     %s (%d bytes)\n", humanize.Bytes(uint64(fp.Size)), fp.Size)
	fmt.Printf("Modified: %s\n", fp.MTime.Format("2006-01-02 15:04:05"))
	fmt.Printf("MD5:      %s\n", fp.MD5)
	if fp.IsVanished() {
		fmt.Printf("Vanished: %s (%s)\n", fp.VanishedAt.Time.Format("2006-01-02 15:04:05"), humanize.Time(fp.VanishedAt.Time))
	}
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// db subcommands
	dbCmd.AddCommand(dbMigrateCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolP("force", "f", false, "Re-digest files even if their modification time is unchanged")
	scanCmd.Flags().StringArrayP("exclude", "x", nil, "Exclude names or path elements matching pattern (repeatable)")
	scanCmd.Flags().StringArrayP("include", "i", nil, "Only index files whose name matches pattern (repeatable)")
	scanCmd.Flags().String("min-size", "", "Skip files smaller than this size (e.g. 1KB)")
	scanCmd.Flags().String("max-size", "", "Skip files larger than this size (e.g. 2GiB)")
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().BoolP("vanished", "v", false, "Only list vanished fingerprints")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of scans to show")
}
