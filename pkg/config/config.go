package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	Telegram  TelegramConfig
	Store     StoreConfig
	DB        DBConfig
	Storage   StorageConfig
	Session   SessionConfig
	HTTP      HTTPConfig
	JWT       JWTConfig
	Admin     AdminConfig
	Inventory InventoryConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
	TimeZone string // zona horaria para fechas escritas en las hojas
}

// Location carga la zona horaria configurada; si no es válida usa UTC.
func (c AppConfig) Location() *time.Location {
	if c.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TelegramConfig bot de Telegram.
type TelegramConfig struct {
	Token        string
	Debug        bool
	AllowedUsers []int64 // vacío = cualquier usuario
}

// Drivers del almacén tabular.
const (
	StoreSheets   = "sheets"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// StoreConfig almacén tabular (Google Sheets, PostgreSQL o memoria).
type StoreConfig struct {
	Driver          string
	SpreadsheetID   string
	CredentialsFile string // JSON de cuenta de servicio de Google
	SheetsEndpoint  string
	MaxRetries      int
	RetryBase       time.Duration
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// StorageConfig almacenamiento S3 compatible para fotos de evidencia.
type StorageConfig struct {
	Enabled      bool
	Bucket       string
	Endpoint     string // vacío = AWS; MinIO/R2 requieren endpoint propio
	Region       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	PublicURL    string // prefijo para armar URLs públicas; vacío = endpoint/bucket
	Folders      map[string]string
}

// Folder carpeta para el tipo de operación; si no está configurada usa el tipo mismo.
func (c StorageConfig) Folder(operationType string) string {
	if f, ok := c.Folders[operationType]; ok && f != "" {
		return f
	}
	return operationType
}

// Drivers de sesión.
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// SessionConfig estado de conversación.
type SessionConfig struct {
	Driver             string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	FlowTimeout        time.Duration
	ProcessFlowTimeout time.Duration
}

// HTTPConfig servidor HTTP de administración.
type HTTPConfig struct {
	Enabled bool
	Host    string
	Port    int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// AdminConfig credenciales del usuario administrador del API HTTP.
type AdminConfig struct {
	User         string
	PasswordHash string // bcrypt
}

// InventoryConfig parámetros del inventario.
type InventoryConfig struct {
	ShrinkageRatios string // "CEREZO_MOTE=0.85,..." sobrescribe las relaciones por defecto
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	allowed, err := parseUserIDs(getString(v, "TELEGRAM_ALLOWED_USERS", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "cafe-bot"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
			TimeZone: getString(v, "TZ", "America/Bogota"),
		},
		Telegram: TelegramConfig{
			Token:        getString(v, "TELEGRAM_TOKEN", ""),
			Debug:        getBool(v, "TELEGRAM_DEBUG", false),
			AllowedUsers: allowed,
		},
		Store: StoreConfig{
			Driver:          strings.ToLower(getString(v, "STORE_DRIVER", StoreSheets)),
			SpreadsheetID:   getString(v, "SPREADSHEET_ID", ""),
			CredentialsFile: getString(v, "GOOGLE_CREDENTIALS_FILE", "credentials.json"),
			SheetsEndpoint:  getString(v, "SHEETS_ENDPOINT", "https://sheets.googleapis.com/"),
			MaxRetries:      getInt(v, "SHEETS_MAX_RETRIES", 5),
			RetryBase:       time.Duration(getInt(v, "SHEETS_RETRY_BASE_MS", 500)) * time.Millisecond,
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "cafe_bot"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		Storage: StorageConfig{
			Enabled:      getBool(v, "STORAGE_ENABLED", false),
			Bucket:       getString(v, "STORAGE_BUCKET", ""),
			Endpoint:     getString(v, "STORAGE_ENDPOINT", ""),
			Region:       getString(v, "STORAGE_REGION", "us-east-1"),
			AccessKey:    getString(v, "STORAGE_ACCESS_KEY", ""),
			SecretKey:    getString(v, "STORAGE_SECRET_KEY", ""),
			UsePathStyle: getBool(v, "STORAGE_USE_PATH_STYLE", true),
			PublicURL:    getString(v, "STORAGE_PUBLIC_URL", ""),
			Folders: map[string]string{
				"compra":   getString(v, "STORAGE_FOLDER_COMPRAS", "compras"),
				"venta":    getString(v, "STORAGE_FOLDER_VENTAS", "ventas"),
				"adelanto": getString(v, "STORAGE_FOLDER_ADELANTOS", "adelantos"),
				"gasto":    getString(v, "STORAGE_FOLDER_GASTOS", "gastos"),
			},
		},
		Session: SessionConfig{
			Driver:             strings.ToLower(getString(v, "SESSION_DRIVER", SessionMemory)),
			RedisAddr:          getString(v, "REDIS_ADDR", "localhost:6379"),
			RedisPassword:      getString(v, "REDIS_PASSWORD", ""),
			RedisDB:            getInt(v, "REDIS_DB", 0),
			FlowTimeout:        time.Duration(getInt(v, "FLOW_TIMEOUT_MINUTES", 10)) * time.Minute,
			ProcessFlowTimeout: time.Duration(getInt(v, "PROCESS_FLOW_TIMEOUT_MINUTES", 10)) * time.Minute,
		},
		HTTP: HTTPConfig{
			Enabled: getBool(v, "HTTP_ENABLED", true),
			Host:    getString(v, "HTTP_HOST", "0.0.0.0"),
			Port:    getInt(v, "HTTP_PORT", 8080),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "cafe-bot"),
		},
		Admin: AdminConfig{
			User:         getString(v, "ADMIN_USER", "admin"),
			PasswordHash: getString(v, "ADMIN_PASSWORD_HASH", ""),
		},
		Inventory: InventoryConfig{
			ShrinkageRatios: getString(v, "SHRINKAGE_RATIOS", ""),
		},
	}

	return cfg, nil
}

// Validate revisa que estén los valores obligatorios para los drivers elegidos.
func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("TELEGRAM_TOKEN es obligatorio"))
	}
	switch c.Store.Driver {
	case StoreSheets:
		if c.Store.SpreadsheetID == "" {
			errs = append(errs, errors.New("SPREADSHEET_ID es obligatorio con STORE_DRIVER=sheets"))
		}
		if c.Store.CredentialsFile == "" {
			errs = append(errs, errors.New("GOOGLE_CREDENTIALS_FILE es obligatorio con STORE_DRIVER=sheets"))
		}
	case StorePostgres:
		if c.DB.DatabaseURL == "" && c.DB.Host == "" {
			errs = append(errs, errors.New("DATABASE_URL o DB_HOST es obligatorio con STORE_DRIVER=postgres"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER desconocido: %q", c.Store.Driver))
	}
	switch c.Session.Driver {
	case SessionMemory:
	case SessionRedis:
		if c.Session.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR es obligatorio con SESSION_DRIVER=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("SESSION_DRIVER desconocido: %q", c.Session.Driver))
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		errs = append(errs, errors.New("STORAGE_BUCKET es obligatorio con STORAGE_ENABLED=true"))
	}
	if c.HTTP.Enabled && c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET es obligatorio con HTTP_ENABLED=true"))
	}
	return errors.Join(errs...)
}

func parseUserIDs(raw string) ([]int64, error) {
	var out []int64
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_ALLOWED_USERS: id inválido %q", p)
		}
		out = append(out, id)
	}
	return out, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			return def
		}
		return b
	}
	return def
}
