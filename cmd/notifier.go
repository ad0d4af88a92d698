/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/alumni-connect/apiserver/config"
	"github.com/alumni-connect/apiserver/internal/logging"
	"github.com/alumni-connect/apiserver/internal/mq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// notifierCmd consumes domain events from the broker and logs one line per
// recipient notification.
var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Consume domain events from the message broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := logging.New(cfg.LogLevel, cfg.LogFormat)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if backend == nil {
			return errors.New("MQ_BACKEND is required for the notifier")
		}
		defer backend.Close()

		log.WithField("channel", cfg.MQ.EventsChannel).Info("notifier consuming")
		err = mq.Consume(ctx, backend, cfg.MQ.EventsChannel, log, func(_ context.Context, event mq.Event) error {
			log.WithFields(logrus.Fields{
				"event_id":     event.ID,
				"event_type":   event.Type,
				"actor_id":     event.ActorID,
				"recipient_id": event.RecipientID,
				"subject_id":   event.SubjectID,
			}).Info("notification")
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notifierCmd)
}
