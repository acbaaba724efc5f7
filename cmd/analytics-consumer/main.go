// Command analytics-consumer reads the battleship analytics topic and
// prints running aggregates.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harryalloyd/battleship/internal/analytics"
	"github.com/segmentio/kafka-go"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "analytics-consumer",
		Usage: "aggregate battleship match analytics from Kafka",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "brokers",
				Value:   []string{"localhost:9092"},
				Usage:   "Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "topic",
				Value:   "battleship.analytics",
				Usage:   "analytics topic",
				Sources: cli.EnvVars("KAFKA_TOPIC"),
			},
			&cli.StringFlag{
				Name:    "group",
				Value:   "analytics",
				Usage:   "consumer group; empty reads the topic from the first offset",
				Sources: cli.EnvVars("KAFKA_GROUP"),
			},
			&cli.DurationFlag{
				Name:    "every",
				Value:   10 * time.Second,
				Usage:   "snapshot print interval",
				Sources: cli.EnvVars("REPORT_EVERY"),
			},
			&cli.IntFlag{
				Name:  "top",
				Value: 5,
				Usage: "number of shooters listed per snapshot",
			},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	brokers := cmd.StringSlice("brokers")
	topic := cmd.String("topic")
	group := cmd.String("group")
	top := int(cmd.Int("top"))

	log.Printf("Analytics consumer started. brokers=%v topic=%s group=%s", brokers, topic, group)

	rc := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 10e6,
	}
	if group == "" {
		rc.StartOffset = kafka.FirstOffset
	}
	r := kafka.NewReader(rc)
	defer r.Close()

	agg := analytics.NewAggregates()

	every := cmd.Duration("every")
	if every <= 0 {
		every = 10 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				agg.Report(top).Print(os.Stdout)
			}
		}
	}()

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				agg.Report(top).Print(os.Stdout)
				return nil
			}
			log.Printf("read error: %v", err)
			time.Sleep(time.Second)
			continue
		}
		ev, err := analytics.Decode(m.Value)
		if err != nil {
			log.Printf("skipping message at offset %d: %v", m.Offset, err)
			continue
		}
		agg.Add(ev)
	}
}
