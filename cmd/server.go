package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prema-client/internal/fakeapi"
	"prema-client/internal/models"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var demoNames = []string{"Alex", "Sam", "Jordan", "Taylor", "Riley", "Casey", "Morgan", "Jamie", "Quinn", "Avery"}

func newMockServerCmd(a *app) *cobra.Command {
	var seed int
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run an in-memory backend for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend := fakeapi.New(a.cfg.Mock.JWTSecret)
			if err := seedDemoUsers(backend, seed); err != nil {
				return err
			}
			return runMockServer(a.cfg.Mock.Host, a.cfg.Mock.Port, backend)
		},
	}
	cmd.Flags().IntVar(&seed, "seed", 0, "Create this many demo accounts (password \"password\")")
	return cmd
}

// seedDemoUsers creates demo<i>@example.com accounts scattered around a
// fixed point, all of whom have already liked demo0.
func seedDemoUsers(backend *fakeapi.Server, n int) error {
	const baseLat, baseLon = 40.7128, -74.0060

	var first models.User
	for i := 0; i < n; i++ {
		lat := baseLat + float64(i)*0.01
		lon := baseLon - float64(i)*0.01
		gender := "female"
		if i%2 == 1 {
			gender = "male"
		}
		u, err := backend.SeedUser(models.RegisterData{
			Email:             fmt.Sprintf("demo%d@example.com", i),
			Password:          "password",
			Name:              demoNames[i%len(demoNames)],
			Age:               21 + i%30,
			Gender:            gender,
			SeekingGender:     "both",
			LocationLatitude:  &lat,
			LocationLongitude: &lon,
		})
		if err != nil {
			return fmt.Errorf("failed to seed demo user: %w", err)
		}
		if i == 0 {
			first = u
			continue
		}
		if err := backend.Like(u.ID, first.ID); err != nil {
			return fmt.Errorf("failed to seed demo like: %w", err)
		}
	}
	if n > 0 {
		log.Info().Int("count", n).Str("login", first.Email).Msg("Seeded demo users")
	}
	return nil
}

func runMockServer(host string, port int, backend *fakeapi.Server) error {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(corsMiddleware)

	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", backend.Handler())

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("host", host).
			Int("port", port).
			Msg("Starting mock server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("mock server failed to start: %w", err)
	case <-quit:
	}

	log.Info().Msg("Shutting down mock server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	backend.Hub().CloseAll()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Mock server exited")
	return nil
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
