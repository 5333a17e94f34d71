// Package main is the docqa CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/docqa/internal/app"
	"github.com/hyperjump/docqa/internal/cli"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/server"
	"github.com/hyperjump/docqa/internal/watcher"
	"github.com/hyperjump/docqa/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/docqa/config.yaml"
	defaultServerURL  = "http://localhost:8080"
	clientTimeout     = 10 * time.Minute
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// A missing .env is normal; the environment may already carry the keys.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "upload":
		runUpload()
	case "process":
		runProcess()
	case "push":
		runPush()
	case "assets":
		runAssets()
	case "delete":
		runDelete()
	case "search":
		runSearch()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("docqa version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if len(cfg.Watch.Inboxes) > 0 {
		inbox := watcher.NewWatcher(cfg.Watch.Inboxes, cfg.Files.AllowedExtensions,
			watcher.UploadTo(ctx, components.Storage, components.Uploader, logger),
			watcher.WithLogger(logger))
		if err := inbox.Start(ctx); err != nil {
			logger.Fatal("Failed to start inbox watcher", zap.Error(err))
		}
		go inbox.SyncExistingFiles()
		defer inbox.Stop()
	}

	srv := server.NewServer(cfg, components.Services(), logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
		}
	}

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// clientFlags are shared by commands that talk to a running server.
type clientFlags struct {
	server  *string
	project *int64
	output  *string
}

func addClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		server:  fs.String("server", defaultServerURL, "server URL"),
		project: fs.Int64("project", 1, "project id"),
		output:  fs.String("output", "text", "output format: text or json"),
	}
}

func (f clientFlags) client() *cli.Client {
	return cli.NewClient(*f.server, clientTimeout)
}

func (f clientFlags) format() cli.OutputFormat {
	switch *f.output {
	case "text", "json":
		return cli.OutputFormat(*f.output)
	}
	fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *f.output)
	os.Exit(1)
	return ""
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s failed: %v\n", what, err)
	os.Exit(1)
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	cf := addClientFlags(fs)
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	if fs.NArg() < 1 {
		fmt.Println("Usage: docqa upload [flags] <file>...")
		os.Exit(1)
	}
	res, err := cf.client().Upload(context.Background(), *cf.project, fs.Args())
	if res != nil {
		for _, f := range res.Uploaded {
			fmt.Printf("uploaded  %s (asset %d)\n", f.OriginalName, f.AssetID)
		}
		for _, f := range res.Rejected {
			fmt.Printf("rejected  %s: %s\n", f.OriginalName, f.Error)
		}
	}
	if err != nil {
		fail("Upload", err)
	}
}

func runProcess() {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	cf := addClientFlags(fs)
	chunkSize := fs.Int("chunk-size", 0, "chunk size in characters (0 = server default)")
	overlap := fs.Int("overlap", 0, "chunk overlap in characters (0 = server default)")
	reset := fs.Bool("reset", false, "discard existing chunks, tables, and vectors first")
	_ = fs.Parse(os.Args[2:])

	res, err := cf.client().Process(context.Background(), *cf.project, models.ProcessRequest{
		ChunkSize:   *chunkSize,
		OverlapSize: *overlap,
		DoReset:     *reset,
	})
	if err != nil {
		fail("Process", err)
	}
	fmt.Printf("Processed %d file(s), skipped %d, inserted %d chunk(s)\n", res.ProcessedFiles, res.SkippedFiles, res.InsertedChunks)
}

func runPush() {
	fs := flag.NewFlagSet("push", flag.ExitOnError)
	cf := addClientFlags(fs)
	reset := fs.Bool("reset", false, "recreate the collection first")
	_ = fs.Parse(os.Args[2:])

	res, err := cf.client().Push(context.Background(), *cf.project, *reset)
	if err != nil {
		if res != nil && res.InsertedCount > 0 {
			fmt.Printf("Indexed %d chunk(s) before the failure\n", res.InsertedCount)
		}
		fail("Push", err)
	}
	fmt.Printf("Indexed %d chunk(s) into %s\n", res.InsertedCount, res.Collection)
}

func runAssets() {
	fs := flag.NewFlagSet("assets", flag.ExitOnError)
	cf := addClientFlags(fs)
	_ = fs.Parse(os.Args[2:])
	format := cf.format()
	assets, err := cf.client().Assets(context.Background(), *cf.project)
	if err != nil {
		fail("List assets", err)
	}
	if err := cli.WriteAssets(os.Stdout, assets, format); err != nil {
		fail("Output", err)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	cf := addClientFlags(fs)
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	if fs.NArg() != 1 {
		fmt.Println("Usage: docqa delete [flags] <asset-id>")
		os.Exit(1)
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		fmt.Printf("Invalid asset id: %s\n", fs.Arg(0))
		os.Exit(1)
	}
	if err := cf.client().DeleteAsset(context.Background(), *cf.project, id); err != nil {
		fail("Delete", err)
	}
	fmt.Printf("Asset deleted: %d\n", id)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	cf := addClientFlags(fs)
	limit := fs.Int("limit", 0, "maximum results (0 = server default)")
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	query := buildQuery(fs.Args())
	if query == "" {
		fmt.Println("Usage: docqa search [flags] <query>")
		os.Exit(1)
	}
	format := cf.format()
	results, err := cf.client().Search(context.Background(), *cf.project, models.SearchQuery{Text: query, Limit: *limit})
	if err != nil {
		fail("Search", err)
	}
	if err := cli.WriteSearchResults(os.Stdout, results, format); err != nil {
		fail("Output", err)
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	cf := addClientFlags(fs)
	limit := fs.Int("limit", 0, "chunks to retrieve (0 = server default)")
	trace := fs.Bool("trace", false, "include the pipeline trace, reasoning, and generated SQL")
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	question := buildQuery(fs.Args())
	if question == "" {
		fmt.Println("Usage: docqa ask [flags] <question>")
		os.Exit(1)
	}
	format := cf.format()
	ans, err := cf.client().Ask(context.Background(), *cf.project, models.SearchQuery{Text: question, Limit: *limit, IncludeTrace: *trace})
	if err != nil {
		fail("Ask", err)
	}
	if err := cli.WriteAnswer(os.Stdout, ans, format); err != nil {
		fail("Output", err)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cf := addClientFlags(fs)
	_ = fs.Parse(os.Args[2:])
	format := cf.format()
	st, err := cf.client().Status(context.Background())
	if err != nil {
		fail("Status", err)
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fail("Output", err)
	}
}

// buildQuery joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// reorderArgs moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse sees them. Go's flag package stops at
// the first non-flag argument, so `docqa ask "question" -project 2` would otherwise
// leave -project unparsed.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printUsage() {
	fmt.Println(`docqa - Question answering over uploaded documents and spreadsheets

Usage:
  docqa server [flags]              Start the HTTP server (and inbox watcher)
  docqa upload [flags] <file>...    Upload files to a project
  docqa process [flags]             Chunk uploaded files and load tables
  docqa push [flags]                Embed chunks into the project collection
  docqa assets [flags]              List uploaded assets
  docqa delete [flags] <asset-id>   Delete an asset and everything derived from it
  docqa search [flags] <query>      Show the nearest chunks
  docqa ask [flags] <question>      Answer a question from project content
  docqa status [flags]              Show server statistics
  docqa version                     Show version
  docqa help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/docqa/config.yaml)
  --debug            Enable debug logging

Client Flags:
  --server string    Server URL (default: http://localhost:8080)
  --project int      Project id (default: 1)
  --output string    text or json (assets, search, ask, status)

Examples:
  docqa upload --project 2 report.pdf sales.csv
  docqa process --project 2 --reset
  docqa push --project 2
  docqa ask --project 2 how many sales were in the north region?`)
}
