// Package main is the entry point for the spiral CLI: eval a document
// file directly, serve the HTTP/gRPC front ends, or bootstrap a stdlib
// directory and list what it installs.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spiral-lang/spiral/pkg/api"
	"github.com/spiral-lang/spiral/pkg/config"
	"github.com/spiral-lang/spiral/pkg/document"
	"github.com/spiral-lang/spiral/pkg/driver"
	"github.com/spiral-lang/spiral/pkg/environ"
	"github.com/spiral-lang/spiral/pkg/grpcapi"
	"github.com/spiral-lang/spiral/pkg/registry"
	"github.com/spiral-lang/spiral/pkg/stdlib"
	"github.com/spiral-lang/spiral/pkg/stdlibloader"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "spiral",
	Short: "SPIRAL IR document evaluator",
}

func main() {
	rootCmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	rootCmd.SetVersionTemplate("spiral version {{.Version}}\n")
	rootCmd.AddCommand(evalCmd, serveCmd, stdlibCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var evalCmd = &cobra.Command{
	Use:   "eval [document.json]",
	Short: "Evaluate a SPIRAL IR document file and print its result",
	Args:  cobra.ExactArgs(1),
	RunE:  runEval,
}

var stdlibDirFlag string
var maxStepsFlag int
var traceFlag bool
var asyncFlag bool

func init() {
	evalCmd.Flags().StringVar(&stdlibDirFlag, "stdlib-dir", "", "directory of CIR module documents to bootstrap before evaluating (env STDLIB_DIR)")
	evalCmd.Flags().IntVar(&maxStepsFlag, "max-steps", 0, "step budget override (default from config, env MAX_STEPS)")
	evalCmd.Flags().BoolVar(&traceFlag, "trace", false, "enable evaluation tracing")
	evalCmd.Flags().BoolVar(&asyncFlag, "async", false, "enable the async (PIR) tier")
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".spiralrc.yaml")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	stdlibDir := envOrDefault("STDLIB_DIR", stdlibDirFlag)
	if stdlibDir == "" {
		stdlibDir = cfg.StdlibDir
	}
	ops, defs, err := buildRegistry(stdlibDir)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}
	doc, err := document.Decode(raw)
	if err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}

	maxSteps := cfg.MaxSteps
	if maxStepsFlag != 0 {
		maxSteps = maxStepsFlag
	} else if v := os.Getenv("MAX_STEPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing MAX_STEPS: %w", err)
		}
		maxSteps = n
	}

	result, err := driver.Evaluate(doc, ops, defs, driver.Options{
		MaxSteps: maxSteps,
		Trace:    traceFlag || cfg.Trace,
		Async:    asyncFlag,
	})
	if err != nil {
		return fmt.Errorf("evaluating: %w", err)
	}

	out, err := json.Marshal(result.Value)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC front ends",
	RunE:  runServe,
}

var listenFlag string
var grpcListenFlag string
var serveStdlibDirFlag string

func init() {
	serveCmd.Flags().StringVar(&listenFlag, "listen", "", "HTTP bind address (default from config, env LISTEN)")
	serveCmd.Flags().StringVar(&grpcListenFlag, "grpc-listen", "", "gRPC bind address (default from config, env GRPC_LISTEN)")
	serveCmd.Flags().StringVar(&serveStdlibDirFlag, "stdlib-dir", "", "directory of CIR module documents to bootstrap at startup (env STDLIB_DIR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".spiralrc.yaml")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	listen := cfg.Listen
	if v := envOrDefault("LISTEN", listenFlag); v != "" {
		listen = v
	}
	grpcListen := cfg.GRPCListen
	if v := envOrDefault("GRPC_LISTEN", grpcListenFlag); v != "" {
		grpcListen = v
	}

	stdlibDir := envOrDefault("STDLIB_DIR", serveStdlibDirFlag)
	if stdlibDir == "" {
		stdlibDir = cfg.StdlibDir
	}
	ops, defs, err := buildRegistry(stdlibDir)
	if err != nil {
		return err
	}

	httpServer := api.New(ops, defs)
	grpcServer := grpcapi.New(ops, defs)

	go func() {
		log.Printf("gRPC server listening on %s", grpcListen)
		if err := grpcServer.Serve(grpcListen); err != nil {
			log.Fatalf("gRPC server error: %v", err)
		}
	}()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down spiral server...")
		grpcServer.GracefulStop()
		if err := httpServer.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("spiral HTTP server listening on %s", listen)
	return httpServer.Listen(listen)
}

var stdlibCmd = &cobra.Command{
	Use:   "stdlib [dir]",
	Short: "Bootstrap a stdlib directory and list the operators it installs",
	Args:  cobra.ExactArgs(1),
	RunE:  runStdlib,
}

func runStdlib(cmd *cobra.Command, args []string) error {
	ops, _, err := buildRegistry(args[0])
	if err != nil {
		return err
	}
	for _, op := range ops.List() {
		fmt.Printf("%s:%s/%d\n", op.NS, op.Name, op.Arity)
	}
	return nil
}

// buildRegistry installs the built-in operator set, then layers a
// directory of CIR module documents on top via stdlibloader (two-phase
// bootstrap, spec.md §4.9). dir == "" skips the loader step.
func buildRegistry(dir string) (*registry.Registry, *environ.DefTable, error) {
	ops := registry.New()
	stdlib.Register(ops)
	defs := environ.NewDefTable(nil)

	if dir == "" {
		return ops, defs, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading stdlib dir: %w", err)
	}

	var modules []stdlibloader.Module
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		doc, err := document.Decode(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding %s: %w", entry.Name(), err)
		}
		ns := strings.TrimSuffix(entry.Name(), ".json")
		modules = append(modules, stdlibloader.Module{NS: ns, Doc: doc})
	}

	if err := stdlibloader.Load(ops, defs, modules); err != nil {
		return nil, nil, fmt.Errorf("loading stdlib dir: %w", err)
	}
	return ops, defs, nil
}

func envOrDefault(key, flagVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return os.Getenv(key)
}
