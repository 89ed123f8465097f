package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"mercator-hq/aegis/pkg/config"
)

// ErrSecretTooShort is returned when a resolved secret is shorter than the
// configured minimum length.
var ErrSecretTooShort = errors.New("signing secret is too short")

// ErrNoSecret is returned when no secret source yields a value.
var ErrNoSecret = errors.New("no signing secret configured")

// Source supplies the current signing secret.
//
// Implementations include a static value, an environment variable and a
// watched file. Secret must be safe for concurrent use.
type Source interface {
	// Secret returns the current secret bytes.
	Secret() []byte

	// Provider returns the source name (static, env, file).
	Provider() string

	// Close releases background resources such as file watchers.
	Close() error
}

// StaticSource is a fixed secret.
type StaticSource struct {
	value    []byte
	provider string
}

// NewStaticSource wraps value as a Source.
func NewStaticSource(value string) *StaticSource {
	return &StaticSource{value: []byte(value), provider: "static"}
}

// NewEnvSource reads the secret from the environment variable name once.
// Rotating an environment secret requires a restart.
func NewEnvSource(name string) (*StaticSource, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return nil, fmt.Errorf("%w: environment variable %s is empty", ErrNoSecret, name)
	}
	return &StaticSource{value: []byte(value), provider: "env"}, nil
}

// Secret returns the secret bytes.
func (s *StaticSource) Secret() []byte { return s.value }

// Provider returns "static" or "env".
func (s *StaticSource) Provider() string { return s.provider }

// Close is a no-op.
func (s *StaticSource) Close() error { return nil }

// FromConfig resolves the signing secret from cfg. Sources are tried in
// order: inline secret, secret file, environment variable. The resolved
// secret must be at least cfg.MinSecretLength bytes long.
func FromConfig(cfg *config.AuthConfig) (Source, error) {
	var (
		src Source
		err error
	)
	switch {
	case cfg.Secret != "":
		src = NewStaticSource(cfg.Secret)
	case cfg.SecretFile != "":
		src, err = NewFileSource(cfg.SecretFile, cfg.WatchSecret, cfg.MinSecretLength)
	case cfg.SecretEnv != "":
		src, err = NewEnvSource(cfg.SecretEnv)
	default:
		return nil, ErrNoSecret
	}
	if err != nil {
		return nil, err
	}

	if err := checkLength(src.Secret(), cfg.MinSecretLength); err != nil {
		_ = src.Close()
		return nil, err
	}
	return src, nil
}

func checkLength(secret []byte, min int) error {
	if len(secret) < min {
		return fmt.Errorf("%w: %d bytes, need at least %d", ErrSecretTooShort, len(secret), min)
	}
	return nil
}
