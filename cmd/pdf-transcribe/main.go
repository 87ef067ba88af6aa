package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v2"

	"github.com/Epistemic-Technology/pdf-transcribe/internal/config"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/llm"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/logger"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/operations"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/pages"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/pdf"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/storage"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/transcribe"
	"github.com/Epistemic-Technology/pdf-transcribe/models"
	"github.com/Epistemic-Technology/pdf-transcribe/server"
)

// Version information (set during build)
var (
	Version = "dev"
	Commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "pdf-transcribe",
		Usage:   "Transcribe the text of PDF pages with a vision model",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
				EnvVars: []string{config.ConfigPathEnv},
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "Transcription provider (openai, gemini or ollama)",
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Vision model to use",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "Override the provider endpoint",
			},
			&cli.IntFlag{
				Name:  "requests-per-minute",
				Usage: "Pace requests to the provider (0 disables pacing)",
			},
			&cli.Float64Flag{
				Name:  "scale",
				Usage: "Render scale relative to 72 DPI",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-output",
				Usage: "Log destination (file, stderr or discard)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "pages",
				Usage:     "Show the page count of a PDF and validate a page range",
				ArgsUsage: "<file|url|zotero:KEY>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "pages", Aliases: []string{"p"}, Usage: "Page range to validate, e.g. \"1-5, 8\""},
				},
				Action: pagesAction,
			},
			{
				Name:      "transcribe",
				Usage:     "Transcribe selected pages of a PDF to a text file",
				ArgsUsage: "<file|url|zotero:KEY>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "pages", Aliases: []string{"p"}, Usage: "Pages to transcribe, e.g. \"1-5, 8, 12-15\" (default: all)"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: config.DefaultOutputFile, Usage: "Output file, \"-\" for stdout"},
					&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Do not draw a progress bar"},
				},
				Action: transcribeAction,
			},
			{
				Name:  "serve",
				Usage: "Run the MCP server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "transport", Aliases: []string{"t"}, Value: "stdio", Usage: "Transport type (stdio or http)"},
					&cli.StringFlag{Name: "addr", Value: "localhost:18080", Usage: "Listen address for the http transport"},
				},
				Action: serveAction,
			},
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, c.App.Version)
					return nil
				},
			},
		},
	}
}

// loadConfig applies command line overrides on top of the file and environment configuration
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("provider") {
		cfg.Transcription.Provider = c.String("provider")
	}
	if c.IsSet("model") {
		cfg.Transcription.Model = c.String("model")
	}
	if c.IsSet("base-url") {
		cfg.Transcription.BaseURL = c.String("base-url")
	}
	if c.IsSet("requests-per-minute") {
		cfg.Transcription.RequestsPerMinute = c.Int("requests-per-minute")
	}
	if c.IsSet("scale") {
		cfg.Scale = c.Float64("scale")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-output") {
		cfg.Log.Output = c.String("log-output")
	}
	cfg.ResolveAPIKey()
	return cfg, cfg.Validate()
}

// newService wires the fetcher, pipeline and store. The transcriber is only built when needed,
// so commands that never call the model work without credentials.
func newService(ctx context.Context, cfg config.Config, log logger.Logger, withTranscriber bool) (*operations.Service, error) {
	svc := &operations.Service{
		Fetcher: pdf.NewFetcher(cfg.Zotero, cfg.MaxFileSizeBytes()),
		Store:   storage.NewMemoryStore(),
		Logger:  log,
	}
	if !withTranscriber {
		return svc, nil
	}

	limiter := llm.NewRequestLimiter(cfg.Transcription.RequestsPerMinute)
	transcriber, err := llm.NewTranscriber(ctx, cfg.Transcription, limiter, log)
	if err != nil {
		return nil, err
	}

	pipeline := transcribe.NewPipeline(pdf.NewFitzOpener(), transcriber, log)
	pipeline.Scale = cfg.Scale
	pipeline.JPEGQuality = cfg.JPEGQuality
	svc.Pipeline = pipeline
	return svc, nil
}

// parseSource interprets a command line argument as a URL, a zotero:KEY reference or a local path
func parseSource(arg string) models.SourceInfo {
	switch {
	case strings.HasPrefix(arg, "http://"), strings.HasPrefix(arg, "https://"):
		return models.SourceInfo{URL: arg}
	case strings.HasPrefix(arg, "zotero:"):
		return models.SourceInfo{ZoteroID: strings.TrimPrefix(arg, "zotero:")}
	default:
		return models.SourceInfo{Path: arg}
	}
}

func sourceArg(c *cli.Context) (models.SourceInfo, error) {
	if c.NArg() != 1 {
		return models.SourceInfo{}, fmt.Errorf("expected exactly one PDF argument, got %d", c.NArg())
	}
	return parseSource(c.Args().First()), nil
}

func pagesAction(c *cli.Context) error {
	source, err := sourceArg(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	svc, err := newService(c.Context, cfg, log, false)
	if err != nil {
		return err
	}

	data, err := svc.LoadPDF(c.Context, operations.Request{Source: source})
	if err != nil {
		return err
	}
	selection, err := svc.SelectPages(data, c.String("pages"))
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Pages: %d\n", selection.PageCount)
	fmt.Fprintf(out, "Default range: %s\n", pages.DefaultExpression(selection.PageCount))
	if c.IsSet("pages") {
		fmt.Fprintf(out, "Selected (%d): %s\n", len(selection.Pages), pages.FormatPageSet(selection.Pages))
	}
	return nil
}

func transcribeAction(c *cli.Context) error {
	source, err := sourceArg(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	svc, err := newService(c.Context, cfg, log, true)
	if err != nil {
		return err
	}

	var progress transcribe.ProgressReporter = transcribe.Discard
	bar := newBarReporter(c.App.ErrWriter)
	if !c.Bool("quiet") {
		progress = bar
	}

	info, _, err := svc.GetOrTranscribe(c.Context, operations.Request{Source: source, Pages: c.String("pages")}, progress)
	bar.Finish()
	if err != nil {
		return err
	}

	output := c.String("output")
	if output == "-" {
		_, err = fmt.Fprintln(c.App.Writer, info.Text)
		return err
	}
	if err := os.WriteFile(output, []byte(info.Text), 0644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	fmt.Fprintf(c.App.ErrWriter, "Transcribed %d pages to %s\n", len(info.Pages), output)
	return nil
}

// newServeService builds the server's service. Missing credentials only disable transcription,
// so page inspection still works and pdf-transcribe reports the missing key as a tool error.
func newServeService(ctx context.Context, cfg config.Config, log logger.Logger) (*operations.Service, error) {
	svc, err := newService(ctx, cfg, log, true)
	var credErr *llm.MissingCredentialError
	if !errors.As(err, &credErr) {
		return svc, err
	}
	log.Warn("Transcription disabled: %v", err)
	svc, err = newService(ctx, cfg, log, false)
	if err != nil {
		return nil, err
	}
	svc.Unavailable = credErr
	return svc, nil
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	svc, err := newServeService(c.Context, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Store.Close()

	srv := server.CreateServer(svc, Version, log)

	switch c.String("transport") {
	case "stdio":
		log.Info("Starting pdf-transcribe MCP server on stdio")
		return srv.Run(c.Context, &mcp.StdioTransport{})
	case "http":
		return serveHTTP(c.Context, srv, c.String("addr"), log)
	default:
		return fmt.Errorf("unknown transport %q (expected stdio or http)", c.String("transport"))
	}
}

func serveHTTP(ctx context.Context, srv *mcp.Server, addr string, log logger.Logger) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting pdf-transcribe MCP server on http://%s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("Shutting down MCP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
