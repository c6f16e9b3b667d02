package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/veselov/interview-coach/internal/interview"
	"github.com/veselov/interview-coach/internal/secrets"
	"github.com/veselov/interview-coach/internal/server"
	"github.com/veselov/interview-coach/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interview-coach HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", ":8080", "address for the http server to listen on")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	log.Info("starting the interview-coach", zap.String("version", version))

	if config == nil || config.Server == nil {
		log.Fatal("server configuration is required")
	}
	if config.Database == nil || config.Database.DSN == "" {
		log.Fatal("database dsn is required under database.dsn")
	}

	jwtSecret, err := secrets.Load(secrets.Source{
		Name:  "jwt secret",
		Value: config.Server.JWTSecret,
		File:  config.Server.JWTSecretFile,
	})
	if err != nil {
		log.Fatal(
			"loading jwt secret",
			zap.Error(err),
			zap.String("hint", "set JWT_SECRET_FILE environment variable or the 'server.jwt-secret' key in the configuration file"),
		)
	}

	// A missing Gemini credential is not fatal: sessions are still
	// constructible and answer submission fails fast instead.
	var iv interview.Interviewer
	if gi, ivErr := newInterviewer(ctx, config.AI, log); ivErr != nil {
		log.Warn("interviewer backend is not configured; answers will be rejected", zap.Error(ivErr))
	} else {
		iv = gi
	}

	db, err := store.Open(config.Database.DSN)
	if err != nil {
		log.Fatal("opening database", zap.Error(err))
	}

	srv := server.New(
		&server.Config{
			Addr:      viper.GetString("server.addr"),
			JWTSecret: jwtSecret,
		},
		log,
		store.NewUsers(db),
		store.NewInterviews(db),
		interview.NewRegistry(0),
		iv,
	)

	go func() {
		if listenErr := srv.Listen(); listenErr != nil {
			log.Fatal("http server stopped", zap.Error(listenErr))
		}
	}()

	<-ctx.Done()

	log.Info("shutting down")
	if err := srv.Shutdown(); err != nil {
		log.Fatal("shutting down http server", zap.Error(err))
	}
}
