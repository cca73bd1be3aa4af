package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Krimson/dig-music/internal/emulator"
	"github.com/Krimson/dig-music/internal/logger"
)

func main() {
	var (
		transport   = flag.String("transport", "tcp", "transport: tcp or mqtt")
		addr        = flag.String("addr", "localhost:7777", "tcp listen address")
		brokerURL   = flag.String("broker", "tcp://localhost:1883", "mqtt broker url")
		topic       = flag.String("topic", "digmusic/rr", "mqtt topic")
		mood        = flag.String("mood", "calm", "initial mood: calm or excited")
		switchEvery = flag.Duration("switch-every", 0, "switch mood periodically (0 = never)")
		seed        = flag.Int64("seed", time.Now().UnixNano(), "rng seed")
	)
	flag.Parse()

	zlog, err := logger.New("info", "console", "rr-emulator")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zlog.Sync()

	gen := emulator.NewRRGenerator(emulator.DefaultGeneratorConfig(), *seed)
	if *mood == string(emulator.MoodExcited) {
		gen.SetMood(emulator.MoodExcited)
	}

	var sender emulator.Sender
	switch *transport {
	case "mqtt":
		sender, err = emulator.NewMQTTSender(*brokerURL, *topic, "rr-emulator", zlog)
	default:
		sender, err = emulator.NewTCPSender(*addr, zlog)
	}
	if err != nil {
		zlog.Fatal("failed to init sender", zap.Error(err))
	}
	defer sender.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		shutdownChan := make(chan os.Signal, 1)
		signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
		<-shutdownChan
		cancel()
	}()

	if *switchEvery > 0 {
		go func() {
			ticker := time.NewTicker(*switchEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					next := emulator.MoodCalm
					if gen.Mood() == emulator.MoodCalm {
						next = emulator.MoodExcited
					}
					gen.SetMood(next)
					zlog.Info("mood switched", zap.String("mood", string(next)))
				}
			}
		}()
	}

	zlog.Info("emulator running",
		zap.String("transport", *transport),
		zap.String("mood", string(gen.Mood())),
	)

	if err := emulator.Run(ctx, gen, sender, zlog); err != nil {
		zlog.Error("emulator stopped with error", zap.Error(err))
	}
	zlog.Info("emulator stopped")
}
