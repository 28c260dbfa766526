package cmd

import (
	"errors"

	"prema-client/internal/push"

	"github.com/spf13/cobra"
)

func newPushTestCmd(a *app) *cobra.Command {
	var deviceToken, title, body, kind, screen string
	cmd := &cobra.Command{
		Use:   "push-test",
		Short: "Send a test notification straight to APNs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deviceToken == "" {
				deviceToken = a.cfg.Push.DeviceToken
			}
			if deviceToken == "" {
				return errors.New("--device-token or push.device_token is required")
			}
			if a.cfg.Push.KeyPath == "" {
				return errors.New("push.key_path is required")
			}

			sender, err := push.NewAPNsSender(a.cfg.Push)
			if err != nil {
				return err
			}
			data := push.NotificationData{Type: kind, Screen: screen}
			if err := sender.Send(cmd.Context(), deviceToken, title, body, data); err != nil {
				return err
			}
			a.printf("Delivered; tapping it opens %s\n", data.Destination())
			return nil
		},
	}
	cmd.Flags().StringVar(&deviceToken, "device-token", "", "APNs device token (defaults to push.device_token)")
	cmd.Flags().StringVar(&title, "title", "Prema", "Alert title")
	cmd.Flags().StringVar(&body, "body", "You have a new match!", "Alert body")
	cmd.Flags().StringVar(&kind, "type", push.TypeMatch, "Notification type: match, message or like")
	cmd.Flags().StringVar(&screen, "screen", "", "Screen to open, overriding the type default")
	return cmd
}
