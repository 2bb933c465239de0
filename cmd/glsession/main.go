// glsession - MQTT session tap for Gray Logic deployments.
//
// Opens one managed broker session, subscribes to the configured topics
// and logs every decoded, non-self message. Useful for watching a live
// bus without reacting to your own traffic, and as a reference consumer
// of the session library.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-session/codec"
	"github.com/nerrad567/gray-logic-session/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-session/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-session/metrics"
	"github.com/nerrad567/gray-logic-session/session"
	"github.com/nerrad567/gray-logic-session/store/sqlitestore"
	"github.com/nerrad567/gray-logic-session/transport"
	"github.com/nerrad567/gray-logic-session/transport/pahov3"
	"github.com/nerrad567/gray-logic-session/transport/pahov5"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability.
func run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("glsession", flag.ContinueOnError)
	configPath := flags.String("config", configPathDefault(), "path to config.yaml")
	publishTopic := flags.String("publish", "", "publish a value to this topic after connecting")
	publishValue := flags.String("value", "", "value for -publish (encoded per session.mode)")
	retain := flags.Bool("retain", false, "set the retain flag on -publish")
	if err := flags.Parse(args); err != nil {
		return err
	}

	log := logging.Default()
	log.Info("starting glsession", "version", version, "commit", commit)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", *configPath, "broker", cfg.MQTT.URL)

	mode, err := codec.ParseMode(cfg.Session.Mode)
	if err != nil {
		return err
	}

	// Open the session on the configured transport.
	sess, err := session.Open(ctx, buildDialer(cfg, log), transportConfig(cfg))
	if err != nil {
		return fmt.Errorf("opening session: %w", err)
	}
	defer func() {
		log.Info("closing session")
		if closeErr := sess.Close(); closeErr != nil {
			log.Error("error closing session", "error", closeErr)
		}
	}()

	sess.SetLogger(log.With("component", "session"))
	sess.SetOnStatus(func(s session.Status) {
		log.Info("session status", "status", s.String())
	})
	sess.SetOnError(func(err error) {
		log.Error("session transport error", "error", err)
	})
	log.Info("session open", "identity", sess.Identity(), "status", sess.Status().String())

	// Telemetry is optional; the session runs fine without it.
	if cfg.InfluxDB.Enabled {
		recorder, recErr := metrics.Connect(metrics.Config{
			Enabled:       cfg.InfluxDB.Enabled,
			URL:           cfg.InfluxDB.URL,
			Token:         cfg.InfluxDB.Token,
			Org:           cfg.InfluxDB.Org,
			Bucket:        cfg.InfluxDB.Bucket,
			BatchSize:     cfg.InfluxDB.BatchSize,
			FlushInterval: time.Duration(cfg.InfluxDB.FlushInterval) * time.Second,
		}, sess.Identity())
		if recErr != nil {
			log.Warn("telemetry disabled", "error", recErr)
		} else {
			defer recorder.Close()
			sess.SetRecorder(recorder)
			log.Info("telemetry enabled", "url", cfg.InfluxDB.URL)
		}
	}

	// Subscribe to the configured topics, excluding our own publications
	// when asked to.
	// #nosec G115 -- qos validated to 0..2 by config.Validate
	qos := byte(cfg.Session.QoS)
	for _, topic := range cfg.Session.Topics {
		sub, subErr := sess.SubscribeTopic(ctx, topic, session.SubscribeOptions{
			QoS:         qos,
			ExcludeSelf: cfg.Session.ExcludeSelf,
			SelfWindow:  cfg.Session.SelfWindow(),
			Mode:        mode,
			OnMessage: func(value any, msg transport.Message) {
				log.Info("message",
					"topic", msg.Topic,
					"value", value,
					"retained", msg.Retained,
				)
			},
		})
		if subErr != nil {
			return fmt.Errorf("subscribing to %q: %w", topic, subErr)
		}
		defer sub.Close()
		log.Info("subscribed", "topic", topic)
	}

	if *publishTopic != "" {
		if pubErr := sess.Publish(ctx, *publishTopic, *publishValue, session.PublishOptions{
			QoS:    qos,
			Retain: *retain,
			Mode:   mode,
		}); pubErr != nil {
			return fmt.Errorf("publishing to %q: %w", *publishTopic, pubErr)
		}
		log.Info("published", "topic", *publishTopic)
	}

	// Reconfigure the session when connection parameters change on disk.
	watchErr := config.Watch(ctx, *configPath,
		func(next *config.Config) {
			if next.MQTT == cfg.MQTT {
				return
			}
			log.Info("connection parameters changed, reconfiguring", "broker", next.MQTT.URL)
			if recfgErr := sess.Reconfigure(ctx, transportConfig(next)); recfgErr != nil {
				log.Error("reconfigure failed", "error", recfgErr)
				return
			}
			cfg = next
		},
		func(err error) {
			log.Warn("config watch", "error", err)
		},
	)
	if watchErr != nil {
		log.Warn("config watching disabled", "error", watchErr)
	}

	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// buildDialer selects the transport adapter for the configured protocol
// version.
func buildDialer(cfg *config.Config, log *logging.Logger) transport.Dialer {
	if cfg.MQTT.Protocol == 4 {
		opts := pahov3.Options{}
		if cfg.Store.Enabled {
			st := sqlitestore.New(cfg.Store.Path)
			st.SetLogger(log.With("component", "store"))
			opts.Store = st
		}
		return pahov3.Dialer(opts)
	}
	return pahov5.Dial
}

// transportConfig maps the file configuration onto the transport config.
func transportConfig(cfg *config.Config) transport.Config {
	return transport.Config{
		URL:               cfg.MQTT.URL,
		ClientID:          cfg.MQTT.ClientID,
		Username:          cfg.MQTT.Username,
		Password:          cfg.MQTT.Password,
		KeepAlive:         cfg.MQTT.KeepAliveDuration(),
		CleanSession:      cfg.MQTT.CleanSession,
		InitialRetryDelay: time.Duration(cfg.MQTT.Reconnect.InitialDelay) * time.Second,
		MaxRetryDelay:     time.Duration(cfg.MQTT.Reconnect.MaxDelay) * time.Second,
	}
}

// configPathDefault resolves the default config path, honouring the
// GLSESSION_CONFIG environment variable.
func configPathDefault() string {
	if path := os.Getenv("GLSESSION_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
