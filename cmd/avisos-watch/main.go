// avisos-watch is a terminal client for the announcement feed: it polls
// mis-avisos and unread-count on a fixed interval, prints alerts for new
// items and surfaces the aviso that must interrupt the user, mirroring the
// console UI's escalation behaviour.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coopvalles/asamblea-api/internal/dto"
	"github.com/coopvalles/asamblea-api/internal/poller"
)

func main() {
	var (
		baseURL  string
		token    string
		interval time.Duration
	)

	root := &cobra.Command{
		Use:   "avisos-watch",
		Short: "Watch the aviso feed and report escalations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return fmt.Errorf("--token is required")
			}
			return run(baseURL, token, interval)
		},
	}

	root.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080/api/v1", "API base URL")
	root.Flags().StringVar(&token, "token", "", "bearer token identifying the recipient")
	root.Flags().DurationVar(&interval, "interval", 5*time.Second, "poll interval")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(baseURL, token string, interval time.Duration) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	client := poller.NewClient(baseURL, token)

	var p *poller.Poller
	events := poller.Events{
		OnAlert: func(count int) {
			fmt.Printf("\a[alert] unread avisos: %d\n", count)
		},
		OnModal: func(item dto.FeedItem) {
			title := item.Body
			if item.Title != nil {
				title = *item.Title
			}
			fmt.Printf("[modal] %s (%s) %s\n", item.AvisoID, item.Priority, title)
			if item.RequiresConfirmation {
				fmt.Println("        confirmation required; confirming...")
				if err := p.ConfirmModal(context.Background(), item); err != nil {
					fmt.Printf("        confirm failed: %v\n", err)
				}
				return
			}
			p.DismissModal(item)
		},
	}

	p = poller.New(client, events, interval, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p.Run(ctx)
	return nil
}
