// Command pdfedit applies tracked edits to a PDF from the command line:
// page deletion and rotation, watermark and page-number overlays, an
// annotation JSON import, and form flattening.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/wudi/pdfedit/config"
	"github.com/wudi/pdfedit/export"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/overlay"
	"github.com/wudi/pdfedit/pagemgr"
	"github.com/wudi/pdfedit/session"
)

type options struct {
	input       string
	output      string
	configPath  string
	deletePages string
	rotatePages string
	watermark   string
	pageNumbers bool
	annotations string
	flatten     bool
	skipAnnots  bool
	verbose     bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdfedit: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "pdfedit: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: pdfedit [flags] <input.pdf>\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&opts.output, "out", "", "Output path (default <input>-edited.pdf)")
	flag.StringVar(&opts.configPath, "config", "", "Editor configuration YAML")
	flag.StringVar(&opts.deletePages, "delete", "", "Comma-separated 1-based pages to delete")
	flag.StringVar(&opts.rotatePages, "rotate", "", "Comma-separated pages to rotate 90 degrees clockwise")
	flag.StringVar(&opts.watermark, "watermark", "", "Diagonal watermark text")
	flag.BoolVar(&opts.pageNumbers, "page-numbers", false, "Stamp page numbers bottom center")
	flag.StringVar(&opts.annotations, "annotations", "", "Annotation JSON file to import")
	flag.BoolVar(&opts.flatten, "flatten", false, "Flatten form fields into page content")
	flag.BoolVar(&opts.skipAnnots, "skip-annotations", false, "Leave annotations out of the output")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	flag.Parse()

	if flag.NArg() != 1 {
		return opts, fmt.Errorf("exactly one input file required")
	}
	opts.input = flag.Arg(0)
	if opts.output == "" {
		opts.output = strings.TrimSuffix(opts.input, ".pdf") + "-edited.pdf"
	}
	return opts, nil
}

func run(opts options) error {
	ctx := context.Background()

	data, err := os.ReadFile(opts.input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	sessOpts := session.Options{}
	if opts.verbose {
		sessOpts.Logger = observability.NewStderrLogger()
	}
	if opts.configPath != "" {
		cfg, err := config.LoadFile(opts.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		sessOpts.Config = &cfg
	}

	s, err := session.Open(ctx, opts.input, data, sessOpts)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.deletePages != "" {
		pages, err := parsePages(opts.deletePages)
		if err != nil {
			return fmt.Errorf("-delete: %w", err)
		}
		s.Pages().DeleteMany(pages)
	}
	if opts.rotatePages != "" {
		pages, err := parsePages(opts.rotatePages)
		if err != nil {
			return fmt.Errorf("-rotate: %w", err)
		}
		for _, p := range pages {
			s.Pages().Rotate(p, pagemgr.RotateRight)
		}
	}
	if opts.watermark != "" {
		err := s.Overlays().SetWatermark(overlay.Watermark{
			Text:     opts.watermark,
			Opacity:  0.2,
			Position: overlay.PosDiagonal,
		})
		if err != nil {
			return fmt.Errorf("-watermark: %w", err)
		}
	}
	if opts.pageNumbers {
		err := s.Overlays().SetPageNumbers(overlay.PageNumbers{
			Position: overlay.PosBottomCenter,
		})
		if err != nil {
			return fmt.Errorf("-page-numbers: %w", err)
		}
	}
	if opts.annotations != "" {
		raw, err := os.ReadFile(opts.annotations)
		if err != nil {
			return fmt.Errorf("read annotations: %w", err)
		}
		if !s.Annotations().Import(string(raw)) {
			return fmt.Errorf("annotation file %s is not valid", opts.annotations)
		}
	}

	exportOpts := s.ExportOptions()
	if opts.flatten {
		exportOpts.FlattenForms = true
	}
	if opts.skipAnnots {
		exportOpts.SkipAnnotations = true
	}
	if opts.verbose {
		exportOpts.Progress = func(stage export.Stage, percent int) {
			fmt.Fprintf(os.Stderr, "%3d%% %s\n", percent, stage)
		}
	}

	out, err := s.Export(ctx, exportOpts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.output, out, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Printf("Wrote %s (%d pages, %d bytes)\n",
		opts.output, len(s.Pages().VisiblePages()), len(out))
	return nil
}

func parsePages(spec string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid page %q", part)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no pages given")
	}
	return out, nil
}
