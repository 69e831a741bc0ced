package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Logger LoggerConfig  `mapstructure:"logger"`
	Poll   PollConfig    `mapstructure:"poll"`
	Modems []ModemConfig `mapstructure:"modems"`
}

type LoggerConfig struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"`
	OutputPaths []string `mapstructure:"output_paths"`
}

type PollConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRedirects  int           `mapstructure:"max_redirects"`
	DetectRetries int           `mapstructure:"detect_retries"`
	Diagnostics   bool          `mapstructure:"diagnostics"`
}

// ModemConfig describes one modem instance. The host application hands these
// over already validated; Validate covers the CLI path.
type ModemConfig struct {
	Host      string `mapstructure:"host"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Parser    string `mapstructure:"parser"`
	AuthKind  string `mapstructure:"auth_kind"`
	VerifySSL bool   `mapstructure:"verify_ssl"`
	LegacySSL bool   `mapstructure:"legacy_ssl"`

	Timeout time.Duration `mapstructure:"timeout"`

	Form     FormConfig     `mapstructure:"form"`
	HNAP     HNAPConfig     `mapstructure:"hnap"`
	URLToken URLTokenConfig `mapstructure:"url_token"`
}

// FormConfig parameterizes the form-based auth strategies.
type FormConfig struct {
	Action           string `mapstructure:"action"`
	Method           string `mapstructure:"method"`
	UsernameField    string `mapstructure:"username_field"`
	PasswordField    string `mapstructure:"password_field"`
	SuccessRedirect  string `mapstructure:"success_redirect"`
	MinResponseBytes int    `mapstructure:"min_response_bytes"`
	DynamicSelector  string `mapstructure:"dynamic_selector"`
}

type HNAPConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Namespace string `mapstructure:"namespace"`
	Algorithm string `mapstructure:"algorithm"` // "md5" or "sha256"
}

type URLTokenConfig struct {
	LoginPath   string `mapstructure:"login_path"`
	TokenParam  string `mapstructure:"token_param"`
	CookieName  string `mapstructure:"cookie_name"`
	SendAuthHdr bool   `mapstructure:"send_auth_header"`
	SendAjaxHdr bool   `mapstructure:"send_ajax_header"`
}

func Default() *Config {
	return &Config{
		Logger: LoggerConfig{Level: "info", Format: "json"},
		Poll: PollConfig{
			Timeout:       30 * time.Second,
			MaxRedirects:  5,
			DetectRetries: 10,
		},
	}
}

func (c *Config) Validate() error {
	if len(c.Modems) == 0 {
		return fmt.Errorf("no modems configured")
	}
	for i, m := range c.Modems {
		if strings.TrimSpace(m.Host) == "" {
			return fmt.Errorf("modem %d: host is required", i)
		}
	}
	return nil
}
