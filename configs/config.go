package config

import "os"

type Webhooks struct {
	PublishURL string
	EnhanceURL string
}

type Config struct {
	GoogleClientID       string
	GoogleClientSecret   string
	GoogleRedirectURI    string
	LinkedinClientID     string
	LinkedinClientSecret string
	LinkedinRedirectURI  string
	TwitterClientID      string
	TwitterClientSecret  string
	TwitterRedirectURI   string
	GeminiAPIKey         string
	PostgresURI          string
	RedisURI             string
	FrontendURL          string
	Webhooks             Webhooks
	SecretKey            string
	EncryptionKey        string
	CookieName           string
	Port                 string
}

func LoadConfig() *Config {
	return &Config{
		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:    getEnv("GOOGLE_REDIRECT_URI", ""),
		LinkedinClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
		LinkedinClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
		LinkedinRedirectURI:  getEnv("LINKEDIN_REDIRECT_URI", ""),
		TwitterClientID:      getEnv("TWITTER_CLIENT_ID", ""),
		TwitterClientSecret:  getEnv("TWITTER_CLIENT_SECRET", ""),
		TwitterRedirectURI:   getEnv("TWITTER_REDIRECT_URI", ""),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		PostgresURI:          getEnv("POSTGRES_URI", ""),
		RedisURI:             getEnv("REDIS_URI", ""),
		FrontendURL:          getEnv("FRONTEND_URL", "http://localhost:5173"),
		Webhooks: Webhooks{
			PublishURL: getEnv("N8N_PUBLISH_WEBHOOK", ""),
			EnhanceURL: getEnv("N8N_ENHANCE_WEBHOOK", ""),
		},
		SecretKey:     getEnv("SECRET_KEY", ""),
		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		CookieName:    getEnv("COOKIE_NAME", "postpilot_session"),
		Port:          getEnv("PORT", "3000"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
