package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wilkie/gutenberg/internal/config"
	"github.com/wilkie/gutenberg/internal/state"
)

var version = "dev"

// initializeAppContext prepares configuration and logging after the command
// line has been parsed.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.NArg() == 0 {
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)
	configFile := cmd.String("config")
	if err := env.Prepare(configFile, cmd.Bool("debug")); err != nil {
		return ctx, fmt.Errorf("unable to prepare environment: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", version), zap.String("runtime", runtime.Version()))
	if len(configFile) == 0 {
		env.Log.Info("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	env.RestoreStdLog()
	return nil
}

var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	env := state.EnvFromContext(ctx)
	if env.Cfg != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            config.AppName,
		Usage:           "builds paginated HTML books from Markdown chapters",
		Version:         version + " (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log at debug level on the console"},
		},
		Commands: []*cli.Command{
			{
				Name:         "build",
				Usage:        "Builds the book in a directory into index.html and its style assets",
				OnUsageError: usageErrorHandler,
				Action:       runBuild,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "style", Usage: "use style `NAME` when book.yml does not name one"},
				},
				ArgsUsage: "BOOK_DIR [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
BOOK_DIR:
    directory holding book.yml and chapter files (md, markdown, txt, html, csv, pdf, docx)

DESTINATION:
    output directory, if absent - current working directory
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "render",
				Usage:        "Renders a single chapter to an HTML fragment",
				OnUsageError: usageErrorHandler,
				Action:       runRender,
				ArgsUsage:    "CHAPTER_FILE [DESTINATION]",
			},
			{
				Name:         "import",
				Usage:        "Converts a document (txt, csv, html, pdf, docx) to chapter Markdown",
				OnUsageError: usageErrorHandler,
				Action:       runImport,
				ArgsUsage:    "FILE [DESTINATION]",
			},
			{
				Name:         "serve",
				Usage:        "Runs the HTTP build service",
				OnUsageError: usageErrorHandler,
				Action:       runServe,
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
			},
		},
	}

	var err error
	// os.Exit is called at the end of main, no deferred functions may follow
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	cfg := env.Cfg
	which := "actual"
	if cmd.Bool("default") || cfg == nil {
		cfg, which = config.Default(), "default"
	}
	data, err := config.Dump(cfg)
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	fname := cmd.Args().Get(0)
	if len(fname) == 0 {
		env.Log.Info("Outputting configuration", zap.String("state", which), zap.String("file", "STDOUT"))
		_, err = os.Stdout.Write(data)
	} else {
		env.Log.Info("Outputting configuration", zap.String("state", which), zap.String("file", fname))
		err = os.WriteFile(fname, data, 0o644)
	}
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
