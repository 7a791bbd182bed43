package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/taskkit/internal/chat"
	"github.com/jonathan/taskkit/internal/config"
	"github.com/jonathan/taskkit/internal/db"
	"github.com/jonathan/taskkit/internal/llm"
	"github.com/jonathan/taskkit/internal/server"
	"github.com/jonathan/taskkit/internal/server/ratelimit"
)

var (
	servePort          int
	serveSecureCookies bool
	serveSessionTTL    time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat web app with signup and login",
	Long: `Serve the chat page, signup and login forms and the /chat endpoint.

Environment:
  GEMINI_API_KEY   required, key for the hosted chat model
  GEMINI_MODEL     optional model name
  DATABASE_TYPE    sqlite (default) or postgres
  DATABASE_URL     connection string or sqlite path
  JWT_SECRET       signing secret for the session cookie
  PASSWORD_PEPPER  optional pepper mixed into password hashes
  RATE_LIMIT_*     rate limiter settings (RATE_LIMIT_CHAT_LIMIT: chat messages per minute)`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, fmt.Sprintf("Port to listen on (default %d)", server.DefaultPort))
	serveCmd.Flags().BoolVar(&serveSecureCookies, "secure-cookies", false, "Mark session cookies Secure (use behind HTTPS)")
	serveCmd.Flags().DurationVar(&serveSessionTTL, "chat-ttl", chat.DefaultIdleTTL, "Drop chat histories idle longer than this")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	port := servePort
	if port == 0 {
		port = fileCfg.Port
	}

	llmCfg, err := config.NewLLMConfig()
	if err != nil {
		return err
	}
	pwCfg, err := config.NewPasswordConfig()
	if err != nil {
		return err
	}
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	dbSettings, err := config.NewDatabaseSettings()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	database, err := db.Open(dbSettings)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(database); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
	}()
	if err := db.Migrate(database); err != nil {
		return err
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig().WithModel(llmCfg.Model), llmCfg.APIKey)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	history := chat.NewHistoryStore(serveSessionTTL, serveSessionTTL/4)
	defer history.Stop()

	srv, err := server.New(server.Config{
		Port:          port,
		SecureCookies: serveSecureCookies,
	}, server.Deps{
		Chat:        chat.NewService(client, history, logger),
		Users:       server.NewUserService(db.NewUserRepository(database), pwCfg),
		JWT:         server.NewJWTService(jwtCfg),
		RateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	logger.Info("chat server configured",
		zap.Int("port", port),
		zap.String("model", llmCfg.Model),
		zap.String("database", dbSettings.Type))
	return srv.Run(ctx)
}
