package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/offline-player-go/api"
	"github.com/yourusername/offline-player-go/api/handlers"
	"github.com/yourusername/offline-player-go/internal/app"
	"github.com/yourusername/offline-player-go/internal/domain"
	"github.com/yourusername/offline-player-go/internal/infrastructure"
	"github.com/yourusername/offline-player-go/pkg/dispatch"
	"github.com/yourusername/offline-player-go/pkg/logger"
)

var (
	serverMode  = flag.Bool("server-mode", false, "Internal flag: run in server mode (called by daemon)")
	configPath  = flag.String("config", "", "Path to config file (default ./configs, ~/.offline-player or /etc/offline-player)")
	writeConfig = flag.String("write-config", "", "Write the default configuration to this path and exit")
)

func main() {
	flag.Parse()

	if *writeConfig != "" {
		if err := app.SaveConfig(domain.DefaultConfig(), *writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *writeConfig)
		return
	}

	if !*serverMode {
		startAsDaemon()
		return
	}

	runServer()
}

// startAsDaemon re-executes the binary in server mode, detached from the terminal
func startAsDaemon() {
	execPath, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}

	args := []string{"-server-mode"}
	if *configPath != "" {
		args = append(args, "-config", *configPath)
	}

	cmd := exec.Command(execPath, args...)
	cmd.Dir = cwd
	cmd.Env = os.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open /dev/null: %v\n", err)
		os.Exit(1)
	}
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start daemon: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Server started as daemon (PID: %d)\n", cmd.Process.Pid)
	os.Exit(0)
}

func runServer() {
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Download.LogsDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer multiLog.Close()

	general, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		general = logger.NewDefault()
	}

	logAdapter := logger.NewLoggerAdapter(general, multiLog)
	defer logAdapter.Sync()
	log := logAdapter.General()

	log.Info("Starting offline player server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("base_dir", config.Download.BaseDir))

	if err := os.MkdirAll(config.Download.BaseDir, 0755); err != nil {
		log.Fatal("Failed to create download directory", zap.Error(err))
	}

	repo, err := infrastructure.NewSQLiteAssetRepository(config.Storage.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	client := infrastructure.NewHTTPClient(
		infrastructure.WithTimeout(config.Download.RequestTimeout),
		infrastructure.WithUserAgent("offline-player/"+handlers.Version),
	)
	cdm := infrastructure.NewEnvelopeCDM()
	stats := infrastructure.NewHTTPStatsReporter(&config.Stats, client, logger.Component(log, "stats"))

	runtime := app.NewRuntime(config, app.Adapters{
		Bookmarks:  repo,
		Keys:       repo,
		Bookmarker: infrastructure.NewFileBookmarker(),
		License:    infrastructure.NewHTTPLicenseClient(client, logAdapter.License()),
		Transfer: func(delegate domain.TransferDelegate, queue *dispatch.SerialQueue) domain.TransferSession {
			return infrastructure.NewHLSSession(client, config.Download.BaseDir, delegate, queue, cdm, logAdapter.Download())
		},
		Loader: infrastructure.NewHLSAssetLoader(client, cdm, config.Download.MinimumBitrate, logAdapter.Playback()),
		Stats:  stats,
	}, logAdapter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe := runtime.Bus.Subscribe()
	notifier := infrastructure.NewNotificationService(&config.Notification, logger.Component(log, "notifier"))
	go notifier.Watch(ctx, events)

	monitor := infrastructure.NewReachabilityMonitor(&config.Reachability, runtime.Bus, logger.Component(log, "reachability"))
	go monitor.Run(ctx)

	health := handlers.NewHealthHandler(monitor, repo)
	router := api.SetupRouter(runtime, health, logAdapter, multiLog.GetLogsDir())

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	cancel()
	unsubscribe()
	runtime.Close()
	stats.Wait()

	log.Info("Server exited")
}
