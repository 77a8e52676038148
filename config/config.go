package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Модель
	ModelPath         string
	ModelMetadataPath string
	LabelsPath        string
	ONNXRuntimeLib    string

	// Пороги решения
	StrongDefectThreshold   float64
	ModerateDefectThreshold float64
	WeakDefectThreshold     float64
	WeakNormalCeiling       float64
	QuantizationPolicy      string

	// Цикл инспекции
	InferenceInterval time.Duration
	HysteresisHold    time.Duration
	CapturePolicy     string
	CaptureCooldown   time.Duration

	// Камера
	CameraSource string
	CameraWidth  int
	CameraHeight int
	CameraFPS    int

	// Рекомендации
	GeminiAPIKey     string
	GeminiModel      string
	GeminiMaxRetries int

	// Интерфейсы
	HTTPAddr      string
	TelegramToken string

	// MQTT
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	MQTTTopic    string
	EquipmentID  string

	LogLevel       string
	LogDevelopment bool
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	p := &parser{}
	cfg := &Config{
		ModelPath:         getEnv("MODEL_PATH", "models/equipment.onnx"),
		ModelMetadataPath: getEnv("MODEL_METADATA_PATH", "models/metadata.json"),
		LabelsPath:        getEnv("LABELS_PATH", "models/labels.txt"),
		ONNXRuntimeLib:    getEnv("ONNXRUNTIME_LIB", ""),

		StrongDefectThreshold:   p.float("STRONG_DEFECT_THRESHOLD", 0.40),
		ModerateDefectThreshold: p.float("MODERATE_DEFECT_THRESHOLD", 0.25),
		WeakDefectThreshold:     p.float("WEAK_DEFECT_THRESHOLD", 0.15),
		WeakNormalCeiling:       p.float("WEAK_NORMAL_CEILING", 0.60),
		QuantizationPolicy:      getEnv("QUANTIZATION_POLICY", "requantize"),

		InferenceInterval: p.duration("INFERENCE_INTERVAL", 250*time.Millisecond),
		HysteresisHold:    p.duration("HYSTERESIS_HOLD", 4*time.Second),
		CapturePolicy:     getEnv("CAPTURE_POLICY", "every_tick"),
		CaptureCooldown:   p.duration("CAPTURE_COOLDOWN", 10*time.Second),

		CameraSource: getEnv("CAMERA_SOURCE", "0"),
		CameraWidth:  p.int("CAMERA_WIDTH", 640),
		CameraHeight: p.int("CAMERA_HEIGHT", 480),
		CameraFPS:    p.int("CAMERA_FPS", 24),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiMaxRetries: p.int("GEMINI_MAX_RETRIES", 3),

		HTTPAddr:      getEnv("HTTP_ADDR", ":8000"),
		TelegramToken: getEnv("TELEGRAM_TOKEN", ""),

		MQTTBroker:   getEnv("MQTT_BROKER", ""),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "equipment-guard"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),
		MQTTTopic:    getEnv("MQTT_TOPIC", "equipment/{equipment_id}/state"),
		EquipmentID:  getEnv("EQUIPMENT_ID", "default"),

		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogDevelopment: p.bool("LOG_DEVELOPMENT", false),
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность значений.
func (c *Config) Validate() error {
	var errs []error
	if c.ModelPath == "" {
		errs = append(errs, errors.New("MODEL_PATH is required"))
	}
	if c.InferenceInterval <= 0 {
		errs = append(errs, errors.New("INFERENCE_INTERVAL must be positive"))
	}
	if c.HysteresisHold < 0 {
		errs = append(errs, errors.New("HYSTERESIS_HOLD must not be negative"))
	}
	if c.CaptureCooldown < 0 {
		errs = append(errs, errors.New("CAPTURE_COOLDOWN must not be negative"))
	}
	if c.CameraWidth <= 0 || c.CameraHeight <= 0 {
		errs = append(errs, fmt.Errorf("invalid camera resolution %dx%d", c.CameraWidth, c.CameraHeight))
	}
	if c.CameraFPS <= 0 {
		errs = append(errs, errors.New("CAMERA_FPS must be positive"))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR is required"))
	}
	if c.MQTTBroker != "" && c.EquipmentID == "" {
		errs = append(errs, errors.New("EQUIPMENT_ID is required when MQTT_BROKER is set"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// parser накапливает ошибки разбора, чтобы сообщить обо всех сразу.
type parser struct {
	errs []error
}

func (p *parser) float(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("parse %s: %w", key, err))
		return defaultValue
	}
	return v
}

func (p *parser) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("parse %s: %w", key, err))
		return defaultValue
	}
	return v
}

func (p *parser) bool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("parse %s: %w", key, err))
		return defaultValue
	}
	return v
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("parse %s: %w", key, err))
		return defaultValue
	}
	return v
}
