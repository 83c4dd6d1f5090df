// config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // la imagen final no trae zoneinfo

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const defaultSessionHours = 8

type Config struct {
	Port           string
	Env            string
	MongoURI       string
	MongoDBName    string
	RabbitURL      string
	RedisURL       string
	JWTSecret      string
	SessionHours   int
	PublicBaseURL  string
	StorageBucket  string
	Timezone       string
	MaxUploadBytes int64
	CORSOrigins    []string
}

// Load lee la configuración del entorno. Un .env en el directorio actual es opcional.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("APP_ENV", "development"),
		MongoURI:       getEnv("MONGO_URI", "mongodb://host.docker.internal:27017"),
		MongoDBName:    getEnv("MONGO_DB_NAME", "compras_db"),
		RabbitURL:      getEnv("RABBIT_URL", "amqp://host.docker.internal"),
		RedisURL:       getEnv("REDIS_URL", "redis://host.docker.internal:6379/0"),
		JWTSecret:      getEnv("JWT_SECRET", "dev_secret_cambiar_en_produccion"),
		SessionHours:   getEnvInt("SESSION_HOURS", defaultSessionHours),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		StorageBucket:  getEnv("STORAGE_BUCKET", "comprobantes"),
		Timezone:       getEnv("TIMEZONE", "America/La_Paz"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 5*1024*1024)),
		CORSOrigins:    getEnvList("CORS_ORIGINS", "http://localhost:5173"),
	}
}

// Location devuelve la zona horaria usada para "hoy" y para las fechas exportadas.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", c.Timezone).Msg("zona horaria inválida, usando UTC")
		return time.UTC
	}
	return loc
}

// SessionTTL nunca es cero: SESSION_HOURS <= 0 vuelve al valor por defecto.
func (c *Config) SessionTTL() time.Duration {
	if c.SessionHours <= 0 {
		return defaultSessionHours * time.Hour
	}
	return time.Duration(c.SessionHours) * time.Hour
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("valor numérico inválido, usando el predeterminado")
		return fallback
	}
	return n
}

// getEnvList separa por comas y descarta elementos vacíos.
func getEnvList(key, fallback string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, fallback), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
