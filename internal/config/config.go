package config

import (
	"os"
	"strconv"
	"strings"
)

// Config é a configuração do serviço, lida do ambiente no arranque.
type Config struct {
	Port   string
	DBPath string
	// DocsDir é a raiz da árvore de documentos dos pacientes
	// (Documentos_Pacientes, partilhada com a aplicação desktop).
	DocsDir string
	// PublicURL é a base dos links de verificação impressos nos PDFs.
	PublicURL string

	JWTSecret []byte
	// Credencial única do terapeuta: a aplicação desktop autentica-se com
	// esta password (hash bcrypt) e recebe um JWT.
	PractitionerName         string
	PractitionerPasswordHash string

	CORSOrigins       []string
	RequestTimeoutSec int

	LogLevel  string
	LogFormat string

	SeedDemo bool
}

func Load() *Config {
	cors := getEnv("CORS_ORIGINS", "*")
	var origins []string
	for _, o := range strings.Split(cors, ",") {
		if t := strings.TrimSpace(o); t != "" {
			origins = append(origins, t)
		}
	}
	jwtSecret := os.Getenv("BIODESK_JWT_SECRET")
	if len(jwtSecret) < 32 {
		jwtSecret = "biodesk-dev-secret-min-32-chars!!!!!"
	}
	return &Config{
		Port:                     getEnv("PORT", "8080"),
		DBPath:                   getEnv("BIODESK_DB_PATH", "pacientes.db"),
		DocsDir:                  getEnv("BIODESK_DOCS_DIR", "Documentos_Pacientes"),
		PublicURL:                getEnv("BIODESK_PUBLIC_URL", "http://localhost:8080"),
		JWTSecret:                []byte(jwtSecret),
		PractitionerName:         getEnv("BIODESK_PRACTITIONER_NAME", "Nuno Correia"),
		PractitionerPasswordHash: os.Getenv("BIODESK_PRACTITIONER_PASSWORD_HASH"),
		CORSOrigins:              origins,
		RequestTimeoutSec:        getEnvInt("REQUEST_TIMEOUT_SEC", 30),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		LogFormat:                getEnv("LOG_FORMAT", "text"),
		SeedDemo:                 os.Getenv("SEED_DEMO") == "1" || strings.EqualFold(os.Getenv("SEED_DEMO"), "true"),
	}
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getEnvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}
