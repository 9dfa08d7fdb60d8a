package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wilkie/gutenberg/internal/book"
	"github.com/wilkie/gutenberg/internal/chapter"
	"github.com/wilkie/gutenberg/internal/source"
	"github.com/wilkie/gutenberg/internal/state"
	"github.com/wilkie/gutenberg/internal/style"
)

func runBuild(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	dir := cmd.Args().Get(0)
	if dir == "" {
		return errors.New("no book directory has been specified")
	}
	dst := cmd.Args().Get(1)
	if dst == "" {
		dst = "."
	}

	fallback := cmd.String("style")
	if fallback == "" {
		fallback = env.Cfg.Build.DefaultStyle
	}
	b, err := book.LoadWithStyle(dir, fallback)
	if err != nil {
		return err
	}
	if len(b.Chapters) == 0 {
		return fmt.Errorf("no chapters found in '%s'", dir)
	}

	res, err := book.NewBuilder(book.Options{
		StylesDir:    env.Cfg.Build.StylesDir,
		Hyphenators:  env.Hyphenators,
		Workers:      env.Cfg.Build.Workers,
		PageCapacity: env.Cfg.Build.PageCapacity,
		PDFFallback:  env.Cfg.Build.PDFFallbackPdftotext,
		Logger:       env.Log,
		OnStage: func(s book.Stage) {
			env.Log.Debug("Build stage", zap.String("stage", string(s)))
		},
		OnChapter: func(e book.ChapterEvent) {
			env.Log.Debug("Chapter rendered", zap.String("chapter", e.Name), zap.Duration("elapsed", e.Elapsed), zap.Error(e.Err))
		},
	}).Build(ctx, b)
	if err != nil {
		return err
	}
	if err := res.Save(dst); err != nil {
		return err
	}
	env.Log.Info("Book written", zap.String("location", filepath.Join(dst, "index.html")), zap.Int("pages", len(res.Pages)))
	return nil
}

func runRender(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	path := cmd.Args().Get(0)
	if path == "" {
		return errors.New("no chapter file has been specified")
	}
	st, err := style.Load(env.Cfg.Build.StylesDir, env.Cfg.Build.DefaultStyle, env.Log)
	if err != nil {
		return err
	}
	c, err := chapter.Load(path, chapter.Options{
		Index:       "1",
		Style:       st,
		Hyphenators: env.Hyphenators,
		Logger:      env.Log,
	})
	if err != nil {
		return err
	}
	return output(cmd.Args().Get(1), c.HTML)
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	path := cmd.Args().Get(0)
	if path == "" {
		return errors.New("no source file has been specified")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open source: %w", err)
	}
	defer f.Close()

	md, err := source.Convert(f, path)
	if err != nil {
		return err
	}
	env.Log.Debug("Document imported", zap.String("source", path), zap.Int("bytes", len(md)))
	return output(cmd.Args().Get(1), md)
}

func output(fname, content string) (err error) {
	var w io.Writer = os.Stdout
	if fname != "" {
		f, cerr := os.Create(fname)
		if cerr != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, cerr)
		}
		defer multierr.AppendInvoke(&err, multierr.Close(f))
		w = f
	}
	if _, err := io.WriteString(w, content); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	return nil
}
