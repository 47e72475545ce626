package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"shirley/internal/chat"
	"shirley/internal/clock"
	"shirley/internal/command"
	"shirley/internal/ipc"
	"shirley/internal/live"
	"shirley/internal/llm"
	"shirley/internal/notify"
	"shirley/internal/proxy"
	"shirley/internal/relay"
	"shirley/internal/store"
	"shirley/internal/weather"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	addr := cli.StringP("addr", "a", ":3000", "HTTP listen address")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address for upstream calls")
	model := cli.StringP("model", "m", llm.DefaultOptions().Model, "Chat model")
	temperature := cli.Float64("temperature", llm.DefaultOptions().Temperature, "Sampling temperature")
	dataDir := cli.StringP("data", "d", "", "Badger data directory (empty keeps everything in memory)")
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	relayURL := cli.String("relay-url", "", "Remote relay base URL (empty answers in-process)")
	lat := cli.Float64("lat", 0, "Default weather latitude")
	lon := cli.Float64("lon", 0, "Default weather longitude")
	wakeWord := cli.StringP("wake-word", "w", command.DefaultConfig().WakeWord, "Wake word")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Error("OPENAI_API_KEY not set")
		os.Exit(1)
	}
	if port := os.Getenv("PORT"); port != "" && !cli.CommandLine.Changed("addr") {
		*addr = ":" + port
	}

	httpClient, err := proxy.NewHTTPClient(*proxyAddr)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", *proxyAddr, "err", err)
		os.Exit(1)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	completer := llm.NewOpenAI(openai.NewClient(opts...), llm.Options{
		Model:       *model,
		Temperature: *temperature,
	})
	chatService := chat.NewService(completer, log.Default())

	log.Debug("Loaded model", "model", *model)

	st, err := store.Open(*dataDir, log.Default())
	if err != nil {
		log.Error("Failed to open store", "dir", *dataDir, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	var transport relay.Transport = chatService
	if *relayURL != "" {
		transport = relay.NewHTTPTransport(*relayURL, httpClient)
		log.Info("Relaying to remote", "url", *relayURL)
	}

	var location *weather.Location
	if *lat != 0 || *lon != 0 {
		location = &weather.Location{Lat: *lat, Lon: *lon}
	}

	cfg := command.DefaultConfig()
	cfg.WakeWord = *wakeWord

	sessions := live.NewServer(live.Config{
		Transport:  transport,
		Store:      st,
		Weather:    weather.NewClient(httpClient),
		Location:   location,
		Classifier: command.NewClassifier(cfg, command.DefaultRules()),
		Clock:      clock.Real(),
		Logger:     log.Default(),
	})

	mux := http.NewServeMux()
	mux.Handle("/api/chat", chatService)
	mux.Handle("/ws", sessions)
	mux.Handle("/chime.wav", notify.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctl, err := ipc.StartServer(*socket, controlHandler(sessions, st))
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer ctl.Close()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Error("Failed to listen", "addr", *addr, "err", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", "err", err)
			stop()
		}
	}()

	log.Info("Boot up - successful", "addr", ln.Addr().String(), "socket", *socket)
	<-ctx.Done()

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Shutdown incomplete", "err", err)
	}
}
