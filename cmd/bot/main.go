// Command bot runs the marketplace Telegram bot: it initializes the SQLite
// schema (idempotent, safe on every start) and then processes updates until
// stopped.
package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/someout/market-bot/internal/bot"
	"github.com/someout/market-bot/internal/db"
)

func main() {
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", "market-bot").
		Logger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env")
	}

	cfg, dbPath := loadConfig(log)

	log.Info().Str("path", dbPath).Msg("initializing database")
	store, err := db.Open(dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	log.Info().Msg("starting telegram bot")
	b, err := bot.New(cfg, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize bot")
	}

	if err := b.Run(); err != nil {
		log.Fatal().Err(err).Msg("bot error")
	}
}

func loadConfig(log zerolog.Logger) (bot.Config, string) {
	cfg := bot.Config{
		Token:            mustGetEnv(log, "BOT_TOKEN"),
		ModerationChatID: mustGetEnvInt64(log, "MODERATION_CHAT_ID"),
		PublishChannelID: mustGetEnvInt64(log, "PUBLISH_CHANNEL_ID"),

		StartImagePath: getEnvOrDefault("START_IMAGE_PATH", "assets/start.png"),
		StartImageURL:  os.Getenv("START_IMAGE_URL"),

		TermsURL:   getEnvOrDefault("TERMS_URL", "https://t.me/makintoshit"),
		ChannelURL: getEnvOrDefault("CHANNEL_URL", "https://t.me/goosebump3s"),

		HelpSupportUser: getEnvOrDefault("HELP_SUPPORT_USERNAME", "usertexpodderzhki"),
		HelpNewsUser:    getEnvOrDefault("HELP_NEWS_USERNAME", "someout"),
		HelpOffersUser:  getEnvOrDefault("HELP_OFFERS_USERNAME", "someout_offers"),
		HelpAdsUser:     getEnvOrDefault("HELP_ADS_USERNAME", "makintoshit"),
	}

	return cfg, getEnvOrDefault("DB_PATH", "bot.db")
}

func mustGetEnv(log zerolog.Logger, key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatal().Str("key", key).Msg("required environment variable is not set")
	}
	return value
}

func mustGetEnvInt64(log zerolog.Logger, key string) int64 {
	value, err := strconv.ParseInt(mustGetEnv(log, key), 10, 64)
	if err != nil {
		log.Fatal().Str("key", key).Err(err).Msg("environment variable must be an integer")
	}
	return value
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
