package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"prema-client/internal/api"
	"prema-client/internal/config"
	"prema-client/internal/photos"
	"prema-client/internal/push"
	"prema-client/internal/session"
	"prema-client/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app carries what every command needs. Backend state is opened lazily so
// commands like mock-server never touch local storage.
type app struct {
	configPath string
	logLevel   string

	cfg     *config.Config
	client  *api.Client
	store   storage.Store
	session *session.Manager
	out     io.Writer
}

// Execute runs the premactl command tree.
func Execute() {
	root, a := newRootCmd(os.Stdout)
	err := root.Execute()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) (*cobra.Command, *app) {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "premactl",
		Short:         "Command line client for the Prema dating backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg

			level := cfg.Log.Level
			if a.logLevel != "" {
				level = a.logLevel
			}
			setupLogger(level)
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newForgotPasswordCmd(a),
		newResetPasswordCmd(a),
		newProfileCmd(a),
		newBrowseCmd(a),
		newLikeCmd(a),
		newPassCmd(a),
		newLikesCmd(a),
		newMatchesCmd(a),
		newUnmatchCmd(a),
		newSpinCmd(a),
		newConversationsCmd(a),
		newChatCmd(a),
		newSendCmd(a),
		newMockServerCmd(a),
		newPushTestCmd(a),
	)
	return root, a
}

// open connects to the backend and restores the saved session.
func (a *app) open(ctx context.Context) error {
	if a.session != nil {
		return nil
	}

	client, err := api.New(a.cfg.API.BaseURL,
		api.WithTimeout(a.cfg.API.Timeout),
		api.WithLogger(log.Logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create api client: %w", err)
	}

	store, err := storage.Open(ctx, a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	uploader, err := a.uploader(ctx, client)
	if err != nil {
		store.Close()
		return err
	}

	opts := []session.Option{
		session.WithUploader(uploader),
		session.WithLogger(log.Logger),
		session.WithNavigator(session.NavigatorFunc(func(context.Context) error {
			log.Debug().Msg("Session ended")
			return nil
		})),
	}
	if a.cfg.Push.DeviceToken != "" {
		opts = append(opts, session.WithPushRegistrar(
			push.NewRegistrar(client, push.StaticToken(a.cfg.Push.DeviceToken), &log.Logger)))
	}

	a.client = client
	a.store = store
	a.session = session.New(client, store, opts...)
	a.session.Initialize(ctx)
	return nil
}

// requireLogin opens the backend and fails unless a session is active.
func (a *app) requireLogin(ctx context.Context) error {
	if err := a.open(ctx); err != nil {
		return err
	}
	if a.session.State().Status != session.StatusAuthenticated {
		return fmt.Errorf("not logged in: run `premactl login` first")
	}
	return nil
}

func (a *app) uploader(ctx context.Context, client *api.Client) (photos.Uploader, error) {
	if a.cfg.Photos.Mode == "s3" {
		u, err := photos.NewS3Uploader(ctx, client, a.cfg.Photos.AWS)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 uploader: %w", err)
		}
		return u, nil
	}
	return photos.NewBackendUploader(client), nil
}

// close waits for best-effort work started by the command, then releases
// storage.
func (a *app) close() {
	if a.session != nil {
		a.session.Tasks().Wait()
		for _, r := range a.session.Tasks().Failures() {
			log.Debug().Err(r.Err).Str("task", r.Name).Msg("Background task failed")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close storage")
		}
	}
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
