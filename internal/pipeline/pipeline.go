// Package pipeline drives one chapter chain at a time: fetch, extract,
// download, archive, clean up, then follow the "next chapter" link.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brogergvhs/batocbz/internal/chapters"
	"github.com/brogergvhs/batocbz/internal/downloader"
	"github.com/brogergvhs/batocbz/internal/errs"
	"github.com/brogergvhs/batocbz/internal/providers"
	"github.com/brogergvhs/batocbz/internal/ui"
	"github.com/brogergvhs/batocbz/internal/util"
)

// RunOptions is copied into every call; nothing reads options from
// package state.
type RunOptions struct {
	ContinueToNext bool
	KeepFiles      bool
	BuildArchive   bool
	SkipDownload   bool
}

type PageFetcher interface {
	Fetch(ctx context.Context, address string) (*providers.Page, error)
}

type ImageRetriever interface {
	DownloadImages(
		ctx context.Context,
		locators []string,
		folder string,
		referer string,
		obs downloader.Observer,
	) (*downloader.Result, error)
}

// Progress is the per-chapter view handed to the image retriever.
type Progress interface {
	downloader.Observer
	SetTotal(total int)
	MarkDone()
}

type ProgressFactory func(title string) Progress

type Deps struct {
	Site       providers.Site
	Pages      PageFetcher
	Images     ImageRetriever
	Log        *ui.Logger
	Progress   ProgressFactory
	OutputDir  string
	ArchiveExt string
}

type Pipeline struct {
	site       providers.Site
	pages      PageFetcher
	images     ImageRetriever
	log        *ui.Logger
	progress   ProgressFactory
	outputDir  string
	archiveExt string
}

func New(d Deps) *Pipeline {
	ext := strings.TrimPrefix(d.ArchiveExt, ".")
	if ext == "" {
		ext = "cbz"
	}
	out := d.OutputDir
	if out == "" {
		out = "."
	}

	return &Pipeline{
		site:       d.Site,
		pages:      d.Pages,
		images:     d.Images,
		log:        d.Log,
		progress:   d.Progress,
		outputDir:  out,
		archiveExt: ext,
	}
}

// RunAll processes every address in order. A failed address is recorded
// and the next one still runs.
func (p *Pipeline) RunAll(ctx context.Context, addresses []string, opts RunOptions) *ui.Stats {
	stats := ui.NewStats()

	for _, address := range addresses {
		if ctx.Err() != nil {
			stats.Failed = append(stats.Failed, ui.FailedAddress{Address: address, Err: ctx.Err()})
			continue
		}

		if err := p.Run(ctx, address, opts, stats); err != nil {
			p.log.Errorf("%v\n", err)
			stats.Failed = append(stats.Failed, ui.FailedAddress{Address: address, Err: err})
		}
	}

	return stats
}

// Run processes the chain starting at address. A series address starts at
// its first chapter and always walks to the last one. The first fatal
// error ends the chain.
func (p *Pipeline) Run(ctx context.Context, address string, opts RunOptions, stats *ui.Stats) error {
	if stats == nil {
		stats = ui.NewStats()
	}

	kind := p.site.Classify(address)
	if kind == providers.Invalid {
		return errs.New(errs.KindValidation, address, errors.New("not a series or chapter address"))
	}
	if err := p.site.Validate(address); err != nil {
		return err
	}

	page, err := p.pages.Fetch(ctx, address)
	if err != nil {
		return err
	}

	chain := opts.ContinueToNext
	if kind == providers.Collection {
		first, err := p.site.FirstUnitOf(page)
		if err != nil {
			return err
		}
		p.log.Infof("Series page, starting from %s\n", first)

		page, err = p.pages.Fetch(ctx, first)
		if err != nil {
			return err
		}
		chain = true
	}

	visited := map[string]bool{}
	for {
		visited[page.Address] = true

		if err := p.chapter(ctx, page, opts, stats); err != nil {
			return err
		}

		if !chain {
			return nil
		}

		id, ok := p.site.NextUnitID(page)
		if !ok {
			p.log.Infof("Reached last chapter\n")
			return nil
		}

		next := p.site.UnitAddressFor(id)
		if visited[next] {
			p.log.Warnf("Next chapter %s was already processed, stopping\n", next)
			return nil
		}

		page, err = p.pages.Fetch(ctx, next)
		if err != nil {
			return err
		}
	}
}

func (p *Pipeline) chapter(ctx context.Context, page *providers.Page, opts RunOptions, stats *ui.Stats) error {
	m, err := chapters.Extract(page)
	if err != nil {
		return err
	}

	p.log.Infof("Name of chapter: %s\n", m.RawTitle)
	p.log.Infof("Found %d images\n", len(m.Images))

	folder := filepath.Join(p.outputDir, m.Title)
	if err := os.MkdirAll(folder, 0755); err != nil {
		return errs.New(errs.KindDirectory, folder, err)
	}

	if !opts.SkipDownload {
		if err := p.download(ctx, page.Address, m, folder, stats); err != nil {
			return err
		}
	}

	if !opts.BuildArchive {
		if !opts.KeepFiles {
			p.log.Infof("No archive was built, keeping %s\n", folder)
		}
		stats.Chapters++
		p.log.Infof("Done\n")
		return nil
	}

	output := filepath.Join(p.outputDir, m.Title+"."+p.archiveExt)
	if err := util.CreateCBZ(ctx, folder, m.Title, output); err != nil {
		return errs.New(errs.KindArchive, output, err)
	}
	if err := util.VerifyCBZ(ctx, output, folder); err != nil {
		if rerr := os.Remove(output); rerr != nil {
			p.log.Warnf("Could not remove unverified archive %s: %v\n", output, rerr)
		}
		return errs.New(errs.KindArchive, output, fmt.Errorf("verify: %w", err))
	}
	p.log.Infof("Saved as %s\n", output)

	if !opts.KeepFiles {
		p.log.Infof("Cleaning up...\n")
		if err := util.CleanupFolder(folder); err != nil {
			p.log.Warnf("Could not remove %s: %v\n", folder, err)
		}
	}

	stats.Chapters++
	p.log.Infof("Done\n")

	return nil
}

func (p *Pipeline) download(ctx context.Context, referer string, m *chapters.Manifest, folder string, stats *ui.Stats) error {
	var obs downloader.Observer
	var bar Progress
	if p.progress != nil {
		bar = p.progress(m.Title)
		bar.SetTotal(len(m.Images))
		obs = bar
	}

	res, err := p.images.DownloadImages(ctx, m.Images, folder, referer, obs)
	if bar != nil {
		bar.MarkDone()
	}
	if err != nil {
		return err
	}

	stats.Images += len(res.Files)
	stats.Bytes += res.Bytes
	for _, sk := range res.Skipped {
		stats.Skipped = append(stats.Skipped, ui.SkippedImage{
			Chapter: m.Title,
			Index:   sk.Index,
			Locator: sk.Locator,
			Err:     sk.Err,
		})
	}
	if len(res.Skipped) > 0 {
		p.log.Warnf("%d of %d images of %s were skipped\n", len(res.Skipped), len(m.Images), m.Title)
	}

	return nil
}
