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

	"github.com/quillpost/apiserver/internal/mq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var watchChannels []string

// eventsCmd groups message queue tooling.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect content events on the message queue",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log content events as they are published",
	Long: `Subscribes to content event channels and logs every message. Usage:

	quillpost events watch --channel content.generated
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer queue.Close()

		g, gctx := errgroup.WithContext(ctx)
		for _, channel := range watchChannels {
			g.Go(func() error {
				logger.Info("watching channel", zap.String("channel", channel))
				return queue.Subscribe(gctx, channel, logEvent(channel))
			})
		}

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsWatchCmd)

	eventsWatchCmd.Flags().StringSliceVar(
		&watchChannels,
		"channel",
		[]string{mq.ChannelContentGenerated, mq.ChannelContentDeleted},
		"channel to watch (repeatable)",
	)
}

func logEvent(channel string) mq.Handler {
	return func(_ context.Context, msg mq.Message) error {
		logger.Info("event received",
			zap.String("channel", channel),
			zap.String("id", msg.ID),
			zap.String("event_type", msg.Attributes[mq.AttrEventType]),
			zap.ByteString("data", msg.Data),
		)
		return nil
	}
}
