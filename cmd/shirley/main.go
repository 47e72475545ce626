package main

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"shirley/internal/audio"
	"shirley/internal/local"
	"shirley/internal/notify"
	"shirley/internal/speech"
	"shirley/internal/tts"
	"shirley/pkg/audioconv"
	"shirley/pkg/protocol"
	"shirley/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	url := cli.StringP("url", "u", "ws://localhost:3000/ws", "Daemon live session url")
	useMic := cli.Bool("mic", false, "Recognize speech from the default microphone")
	file := cli.StringP("file", "f", "", "Recognize speech from an audio file (wav/mp3/ogg)")
	model := cli.StringP("model", "m", "models/ggml-medium.bin", "Whisper model path")
	voice := cli.StringP("voice", "v", "he", "espeak-ng voice")
	contactsFile := cli.StringP("contacts", "c", "", "JSON address book [{name, phone}]")
	lat := cli.Float64("lat", 0, "Latitude reported for weather questions")
	lon := cli.Float64("lon", 0, "Longitude reported for weather questions")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	godotenv.Load(*envFile)
	if env := os.Getenv("SHIRLEY_URL"); env != "" && !cli.CommandLine.Changed("url") {
		*url = env
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := tts.NewSink(*voice, nil, log.Default())
	defer sink.Close()

	c := &console{
		out:  os.Stdout,
		sink: sink,
		chime: func() {
			if err := notify.Play(); err != nil {
				log.Warn("Failed to play chime", "err", err)
			}
		},
		open: func(target string) error {
			return exec.Command("xdg-open", target).Start()
		},
	}

	if cli.CommandLine.Changed("lat") && cli.CommandLine.Changed("lon") {
		c.location = &[2]float64{*lat, *lon}
	}

	if *contactsFile != "" {
		contacts, err := loadContacts(*contactsFile)
		if err != nil {
			log.Error("Failed to load contacts", "file", *contactsFile, "err", err)
			os.Exit(1)
		}
		c.contacts = contacts
	}

	if *useMic || *file != "" {
		tr, err := stt.NewTranscriber(*model, stt.DefaultOptions())
		if err != nil {
			log.Error("Failed to init whisper", "err", err)
			os.Exit(1)
		}
		defer tr.Close()

		capture := fileCapture(*file)
		if *useMic {
			rec := audio.NewRecorder(audio.DefaultConfig())
			if err := rec.Init(); err != nil {
				log.Error("Failed to init audio", "err", err)
				os.Exit(1)
			}
			defer rec.Close()
			capture = rec.Record
		}
		c.src = local.NewSource(capture, tr, log.Default())
		log.Debug("Loaded recognizer", "model", *model)
	}

	incoming := make(chan *protocol.Message, 16)
	connected := make(chan struct{}, 1)
	client, err := protocol.NewClient(protocol.ClientConfig{
		URL:     *url,
		EmitOut: func(m *protocol.Message) { incoming <- m },
		OnConnect: func() {
			select {
			case connected <- struct{}{}:
			default:
			}
		},
	})
	if err != nil {
		log.Error("Failed to connect to daemon", "url", *url, "err", err)
		os.Exit(1)
	}
	c.send = client.Transmit
	go client.Run(ctx)

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		stop()
	}()

	var events <-chan speech.SourceEvent
	if c.src != nil {
		events = c.src.Events()
	}

	log.Info("Connected", "url", *url, "mic", *useMic, "file", *file)
	for {
		select {
		case <-ctx.Done():
			client.Close()
			return
		case <-connected:
			c.hello()
		case m := <-incoming:
			c.onServer(ctx, m)
		case line := <-lines:
			c.onLine(line)
		case ev := <-events:
			c.onSource(ev)
		}
	}
}

// fileCapture yields the decoded file once; later sessions hear silence.
func fileCapture(path string) local.Capture {
	var once sync.Once
	return func(ctx context.Context) ([]float32, error) {
		var (
			pcm []float32
			err error
		)
		once.Do(func() {
			pcm, err = audioconv.DecodeFile(ctx, path, audioconv.Options{})
		})
		return pcm, err
	}
}

func loadContacts(path string) ([]protocol.Contact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var contacts []protocol.Contact
	if err := json.Unmarshal(data, &contacts); err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []protocol.Contact{}
	}
	return contacts, nil
}
