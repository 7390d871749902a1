package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/bookvoice/web"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web form",
	Long: paragraph(fmt.Sprintf("\n%s the upload form. PDFs are converted one job at a time and the chapters can be downloaded when they are done.",
		keyword("Serve"))),
	Example: paragraph("bookvoice serve\nbookvoice serve --host 0.0.0.0 --port 9000"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().String("host", "", "interface to listen on")
	serveCmd.Flags().Int("port", 0, "port to listen on")
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logToStderr()

	env, err := web.LoadConfig()
	if err != nil {
		return fmt.Errorf("reading server environment: %w", err)
	}
	cfg, err := ttsConfig()
	if err != nil {
		return err
	}
	audioCache, err := openCache()
	if err != nil {
		log.Warn("cache disabled", "error", err)
	}
	if audioCache != nil {
		defer func() { _ = audioCache.Close() }()
	}

	addr := net.JoinHostPort(viper.GetString("server.host"), strconv.Itoa(viper.GetInt("server.port")))
	srv, err := web.New(web.Options{
		Addr:       addr,
		TTS:        cfg,
		ChunkSize:  viper.GetInt("chunk_size"),
		OutputDir:  outputDir(),
		VoiceMatch: viper.GetBool("voice_match.enabled"),
		Cache:      audioCache,
		Env:        env,
	})
	if err != nil {
		return err //nolint:wrapcheck
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if path := viper.ConfigFileUsed(); path != "" {
		go watchConfig(ctx, path, srv)
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutting down: %w", err)
	}
	return <-errc
}

// watchConfig re-reads the config file when it changes and hands the new
// engine defaults to the server. Running jobs keep their settings.
func watchConfig(ctx context.Context, path string, srv *web.Server) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error("error creating fsnotify watcher", "error", err)
		return
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		log.Error("error adding dir to fsnotify watcher", "error", err)
		return
	}
	log.Info("fsnotify watching dir", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != path || (!event.Has(fsnotify.Write) && !event.Has(fsnotify.Create)) {
				continue
			}
			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)

			if err := viper.ReadInConfig(); err != nil {
				log.Warn("Could not parse configuration file", "err", err)
				continue
			}
			if err := validateConfig(); err != nil {
				log.Warn("ignoring invalid configuration", "err", err)
				continue
			}
			cfg, err := ttsConfig()
			if err != nil {
				log.Warn("ignoring invalid engine configuration", "err", err)
				continue
			}
			srv.SetTTSConfig(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Debug("fsnotify error", "dir", dir, "error", err)
		}
	}
}
