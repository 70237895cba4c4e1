package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.nanomsg.org/mangos/v3"

	"github.com/dd0wney/cluso-graphview/pkg/notify"
	"github.com/dd0wney/cluso-graphview/pkg/pubsub"
)

func watchCmd() *cobra.Command {
	var (
		address string
		topics  []string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow selection, model and scheduler notifications of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()
			if address == "" {
				address = a.cfg.Notify.Address
			}
			if address == "" {
				return errors.New("no notify address: set notify.address or --address")
			}

			subTopics := make([]pubsub.Topic, 0, len(topics))
			for _, t := range topics {
				subTopics = append(subTopics, pubsub.Topic(t))
			}
			sub, err := notify.NewSubscriber(address, subTopics...)
			if err != nil {
				return err
			}
			defer sub.Close()

			banner("watching " + address)
			ctx := cmd.Context()
			for ctx.Err() == nil {
				msg, err := sub.Recv(500 * time.Millisecond)
				if errors.Is(err, mangos.ErrRecvTimeout) {
					continue
				}
				if err != nil {
					if ctx.Err() != nil {
						break
					}
					return err
				}
				session := msg.Session
				if session == "" {
					session = "-"
				}
				fmt.Printf("%s %-9s %s %s\n",
					subtle.Sprint(msg.Time.Local().Format(time.TimeOnly)),
					info.Sprint(msg.Topic),
					subtle.Sprint(session),
					msg.Payload)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Publisher address (default notify.address)")
	cmd.Flags().StringSliceVar(&topics, "topic", nil, "Topics to follow: selection, model, scheduler (default all)")
	return cmd
}
