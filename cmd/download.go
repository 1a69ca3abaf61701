package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/brogergvhs/batocbz/internal/config"
	"github.com/brogergvhs/batocbz/internal/downloader"
	"github.com/brogergvhs/batocbz/internal/errs"
	"github.com/brogergvhs/batocbz/internal/fetcher"
	"github.com/brogergvhs/batocbz/internal/pipeline"
	"github.com/brogergvhs/batocbz/internal/providers/bato"
	"github.com/brogergvhs/batocbz/internal/ui"
	"github.com/brogergvhs/batocbz/internal/util"

	"github.com/spf13/cobra"
)

var (
	flagUntilLast    bool
	flagKeepFiles    bool
	flagNoConvert    bool
	flagSkipDownload bool

	flagOutput     string
	flagNoProgress bool

	// headers/auth
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string
)

var downloadCmd = &cobra.Command{
	Use:   "download <url>...",
	Short: "Download chapters and produce CBZ files. Uses the defaults from the selected config, overwritten by CLI flags",
	Long: `Download one or more bato.to addresses.

A chapter address downloads that chapter. A series address starts at the
first chapter and follows the "next chapter" links to the last one.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDownload,
}

func init() {
	f := downloadCmd.Flags()

	f.BoolVarP(&flagUntilLast, "until-last-chapter", "l", false, "keep following next chapter links until the last chapter")
	f.BoolVarP(&flagKeepFiles, "keep-files", "k", false, "keep the downloaded images after the CBZ was written")
	f.BoolVarP(&flagNoConvert, "no-convert", "n", false, "do not build a CBZ, only download images")
	f.BoolVarP(&flagSkipDownload, "skip-download", "s", false, "do not download images, work with what is already on disk")

	f.StringVar(&flagOutput, "output", "", "output folder for chapter folders and CBZ files")
	f.BoolVar(&flagNoProgress, "no-progress", false, "disable progress bars")

	f.StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	f.StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	f.StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, usedPath, err := config.LoadMerged(config.Options{
		IgnoreConfig:     flagIgnoreConfig,
		Debug:            flagDebug,
		Output:           flagOutput,
		UntilLastChapter: flagUntilLast,
		KeepFiles:        flagKeepFiles,
		NoConvert:        flagNoConvert,
		SkipDownload:     flagSkipDownload,
		NoProgress:       flagNoProgress,
		Cookie:           flagCookie,
		CookieFile:       flagCookieFile,
		UserAgent:        flagUserAgent,
	})
	if err != nil {
		return errs.New(errs.KindConfiguration, "", err)
	}

	out := cmd.OutOrStdout()
	log := &ui.Logger{Debug: cfg.Debug, Out: out}

	if usedPath != "" {
		fmt.Fprintf(out, "Config file: %s\n", usedPath)
	}
	if cfg.Debug {
		fmt.Fprintln(out, "Full config:")
		cfg.Print(out)
		fmt.Fprintln(out)
	}

	if err := os.MkdirAll(cfg.Output, 0755); err != nil {
		return errs.New(errs.KindDirectory, cfg.Output, err)
	}

	var pm *ui.MPBProgressManager
	var progress pipeline.ProgressFactory
	if cfg.Progress {
		pm = ui.NewProgressManager(out)
		progress = func(title string) pipeline.Progress {
			return pm.Register(title)
		}
	}

	p, err := buildPipeline(cfg, log, progress)
	if err != nil {
		return err
	}

	stats := p.RunAll(cmd.Context(), args, pipeline.RunOptions{
		ContinueToNext: cfg.UntilLastChapter,
		KeepFiles:      cfg.KeepFiles,
		BuildArchive:   cfg.Convert,
		SkipDownload:   cfg.SkipDownload,
	})

	if pm != nil {
		pm.Close()
	}

	stats.Print(out)

	if len(stats.Failed) > 0 {
		return fmt.Errorf("%d of %d addresses failed", len(stats.Failed), len(args))
	}

	fmt.Fprintln(out, "\nAll done.")
	return nil
}

func buildPipeline(cfg *config.Config, log *ui.Logger, progress pipeline.ProgressFactory) (*pipeline.Pipeline, error) {
	site, err := bato.New(cfg.SiteURL, cfg.AllowedHosts...)
	if err != nil {
		return nil, errs.New(errs.KindConfiguration, "", err)
	}

	clientOpts := util.HTTPClientOptions{
		UserAgent:        util.PickUserAgent(cfg.UserAgent),
		Cookie:           cfg.Cookie,
		CookieFile:       cfg.CookieFile,
		CloudflareBypass: cfg.CloudflareBypass,
		DebugLogger:      log,
	}

	clientOpts.Timeout = time.Duration(cfg.PageTimeout) * time.Second
	pageClient, err := util.NewHTTPClient(clientOpts)
	if err != nil {
		return nil, err
	}

	clientOpts.Timeout = time.Duration(cfg.ImageTimeout) * time.Second
	imageClient, err := util.NewHTTPClient(clientOpts)
	if err != nil {
		return nil, err
	}

	return pipeline.New(pipeline.Deps{
		Site:  site,
		Pages: fetcher.New(pageClient, site.Validate, log),
		Images: downloader.New(imageClient, log, downloader.Options{
			Attempts: cfg.ImageAttempts,
			Backoff:  time.Duration(cfg.RetryDelay) * time.Second,
		}),
		Log:        log,
		Progress:   progress,
		OutputDir:  cfg.Output,
		ArchiveExt: cfg.ArchiveExt,
	}), nil
}
