package config

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
)

// Config holds the settings shared by every entry point. Flag names double
// as environment variable names, so --dynamodb-table reads DYNAMODB_TABLE.
type Config struct {
	Scanner  string `flag:"scanner" validate:"oneof=textract gemini ollama"`
	Store    string `flag:"store" validate:"oneof=bolt sqlite dynamodb"`
	Storage  string `flag:"storage" validate:"oneof=local s3 none"`
	Notifier string `flag:"notifier" validate:"oneof=ses smtp log none"`

	AWSRegion string `flag:"aws-region"`

	DBPath        string `flag:"db" validate:"required_unless=Store dynamodb"`
	DynamoDBTable string `flag:"dynamodb-table" validate:"required_if=Store dynamodb"`
	StoragePath   string `flag:"storage-path" validate:"required_if=Storage local"`
	UploadBucket  string `flag:"upload-bucket" validate:"omitempty,excludesall=/"`

	SenderEmail     string `flag:"ses-sender-email" validate:"required_if=Notifier ses,required_if=Notifier smtp,omitempty,email"`
	RecipientEmails string `flag:"ses-recipient-email" validate:"required_if=Notifier ses,required_if=Notifier smtp"`

	SMTPHost string `flag:"smtp-host" validate:"required_if=Notifier smtp"`
	SMTPPort int    `flag:"smtp-port" validate:"min=1,max=65535"`
	SMTPUser string `flag:"smtp-user" validate:"required_with=SMTPPass"`
	SMTPPass string `flag:"smtp-pass"`

	GeminiKey   string `flag:"gemini-api-key" validate:"required_if=Scanner gemini"`
	GeminiModel string `flag:"gemini-model" validate:"required_if=Scanner gemini"`
	OllamaURL   string `flag:"ollama-url" validate:"required_if=Scanner ollama,omitempty,url"`
	OllamaModel string `flag:"ollama-model" validate:"required_if=Scanner ollama"`

	Port     int    `flag:"port" validate:"min=1,max=65535"`
	AuthUser string `flag:"auth-user" validate:"required_with=AuthPass"`
	AuthPass string `flag:"auth-pass" validate:"required_with=AuthUser"`
}

// Register adds every setting to fs with its default and returns the
// Config the parsed values are written to.
func Register(fs *ff.FlagSet) *Config {
	c := &Config{}
	fs.StringVar(&c.Scanner, 0, "scanner", "textract", "Expense analyzer: textract, gemini or ollama")
	fs.StringVar(&c.Store, 0, "store", "bolt", "Receipt store: bolt, sqlite or dynamodb")
	fs.StringVar(&c.Storage, 0, "storage", "s3", "Document storage: local, s3 or none")
	fs.StringVar(&c.Notifier, 0, "notifier", "log", "Notification sink: ses, smtp, log or none")

	fs.StringVar(&c.AWSRegion, 0, "aws-region", "", "AWS region (defaults to the SDK's resolution)")

	fs.StringVar(&c.DBPath, 0, "db", "receipts.db", "Database file path for bolt and sqlite")
	fs.StringVar(&c.DynamoDBTable, 0, "dynamodb-table", "Receipts", "DynamoDB table name")
	fs.StringVar(&c.StoragePath, 0, "storage-path", "./documents", "Local document storage directory")
	fs.StringVar(&c.UploadBucket, 0, "upload-bucket", "", "Bucket uploaded documents are stored in (uploads disabled when empty)")

	fs.StringVar(&c.SenderEmail, 0, "ses-sender-email", "", "Notification sender address")
	fs.StringVar(&c.RecipientEmails, 0, "ses-recipient-email", "", "Notification recipient addresses, comma separated")

	fs.StringVar(&c.SMTPHost, 0, "smtp-host", "", "SMTP server host")
	fs.IntVar(&c.SMTPPort, 0, "smtp-port", 587, "SMTP server port")
	fs.StringVar(&c.SMTPUser, 0, "smtp-user", "", "SMTP username (optional)")
	fs.StringVar(&c.SMTPPass, 0, "smtp-pass", "", "SMTP password (optional)")

	fs.StringVar(&c.GeminiKey, 0, "gemini-api-key", "", "Google Gemini API key")
	fs.StringVar(&c.GeminiModel, 0, "gemini-model", "gemini-2.5-pro", "Google Gemini model name")
	fs.StringVar(&c.OllamaURL, 0, "ollama-url", "http://localhost:11434", "Ollama API base URL")
	fs.StringVar(&c.OllamaModel, 0, "ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")

	fs.IntVar(&c.Port, 0, "port", 8080, "HTTP server port")
	fs.StringVar(&c.AuthUser, 0, "auth-user", "", "Basic auth username (optional)")
	fs.StringVar(&c.AuthPass, 0, "auth-pass", "", "Basic auth password (optional)")
	return c
}

// LoadDotEnv copies a .env file, if present, into the environment
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}
}

// Recipients splits the recipient list
func (c *Config) Recipients() []string {
	var out []string
	for _, addr := range strings.Split(c.RecipientEmails, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// NeedsAWS reports whether any selected backend is an AWS service
func (c *Config) NeedsAWS() bool {
	return c.Scanner == "textract" || c.Store == "dynamodb" || c.Storage == "s3" || c.Notifier == "ses"
}

// Validate checks the selected backends have what they need
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("flag")
	})

	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating config: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}

	// Textract fetches documents from S3 itself, so local files are never visible to it
	if c.Scanner == "textract" && c.Storage == "local" {
		return errors.New("invalid config: --scanner textract reads documents from S3; use --storage s3 or none")
	}

	for _, addr := range c.Recipients() {
		if err := v.Var(addr, "email"); err != nil {
			return fmt.Errorf("invalid config: --ses-recipient-email %q is not an email address", addr)
		}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	name := "--" + fe.Field()
	switch fe.Tag() {
	case "required_if", "required_unless", "required_with":
		return fmt.Sprintf("%s is required", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be an email address", name)
	case "url":
		return fmt.Sprintf("%s must be a URL", name)
	case "min", "max":
		return fmt.Sprintf("%s is out of range", name)
	default:
		return fmt.Sprintf("%s failed %s", name, fe.Tag())
	}
}
