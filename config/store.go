package config

import (
	"cfdns/log"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "domains.json"

// BackupTimeLayout is embedded in backup file names. It is ISO-8601 with the
// colons replaced, so the name is valid on every filesystem.
const BackupTimeLayout = "2006-01-02T15-04-05.000000"

var (
	ErrNotExist  = errors.New("no configuration file present")
	ErrMalformed = errors.New("configuration file is malformed")
)

type codec struct {
	name      string
	marshal   func(v any) ([]byte, error)
	unmarshal func(data []byte, v any) error
}

var (
	jsonCodec = codec{
		name: "json",
		marshal: func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		},
		unmarshal: json.Unmarshal,
	}
	tomlCodec = codec{name: "toml", marshal: toml.Marshal, unmarshal: toml.Unmarshal}
	yamlCodec = codec{name: "yaml", marshal: yaml.Marshal, unmarshal: yaml.Unmarshal}
)

func codecFor(path string) codec {
	switch {
	case strings.HasSuffix(path, ".toml"):
		return tomlCodec
	case strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml"):
		return yamlCodec
	default:
		return jsonCodec
	}
}

// Store reads and writes the configuration document at Path. The encoding is
// picked from the file suffix.
type Store struct {
	Path string

	now func() time.Time
}

func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{Path: path, now: time.Now}
}

func (s *Store) Exists() bool {
	info, err := os.Stat(s.Path)
	return err == nil && !info.IsDir()
}

// Load returns ErrNotExist when there is no document, and an error wrapping
// ErrMalformed when the document cannot be decoded.
func (s *Store) Load(ctx context.Context) (*Config, error) {
	c := codecFor(s.Path)
	ctx = log.SWith(ctx, "path", s.Path, "format", c.name)

	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		log.S(ctx).Debugw("config file not found")
		return nil, ErrNotExist
	}
	if err != nil {
		log.S(ctx).Errorw("failed read config", zap.Error(err))
		return nil, fmt.Errorf("failed read config: %w", err)
	}

	conf := &Config{}
	if err := c.unmarshal(data, conf); err != nil {
		log.S(ctx).Warnw("failed decode config", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	log.S(ctx).Debugw("config loaded", "zones", len(conf.Domains))
	return conf, nil
}

// Save replaces the document. The new content is written to a temporary file
// next to the target and renamed over it.
func (s *Store) Save(ctx context.Context, conf *Config) (err error) {
	c := codecFor(s.Path)
	ctx = log.SWith(ctx, "path", s.Path, "format", c.name)

	data, err := c.marshal(conf)
	if err != nil {
		log.S(ctx).Errorw("failed encode config", zap.Error(err), log.Internal)
		return fmt.Errorf("failed encode config: %w", err)
	}

	dir, base := filepath.Split(s.Path)
	if dir == "" {
		dir = "."
	}

	f, err := os.CreateTemp(dir, base+".tmp*")
	if err != nil {
		log.S(ctx).Errorw("failed create temp file", zap.Error(err))
		return fmt.Errorf("failed create temp file: %w", err)
	}

	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		log.S(ctx).Errorw("failed write config", zap.Error(err))
		return fmt.Errorf("failed write config: %w", err)
	}

	if err = f.Close(); err != nil {
		log.S(ctx).Errorw("failed write config", zap.Error(err))
		return fmt.Errorf("failed write config: %w", err)
	}

	// holds the API token
	if err = os.Chmod(f.Name(), 0o600); err != nil {
		log.S(ctx).Errorw("failed set config permissions", zap.Error(err))
		return fmt.Errorf("failed set config permissions: %w", err)
	}

	if err = os.Rename(f.Name(), s.Path); err != nil {
		log.S(ctx).Errorw("failed replace config", zap.Error(err))
		return fmt.Errorf("failed replace config: %w", err)
	}

	log.S(ctx).Debugw("config saved", "bytes", len(data))
	return nil
}

// BackupPath is the sibling file name a backup taken at t is written to,
// e.g. domains_2024-01-02T15-04-05.000000.json.bak.
func (s *Store) BackupPath(t time.Time) string {
	dir, base := filepath.Split(s.Path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s.bak", stem, t.Format(BackupTimeLayout), ext))
}

// Backup copies the current document bytes to a timestamped sibling and
// returns its path.
func (s *Store) Backup(ctx context.Context) (string, error) {
	ctx = log.SWith(ctx, "path", s.Path)

	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotExist
	}
	if err != nil {
		log.S(ctx).Errorw("failed read config", zap.Error(err))
		return "", fmt.Errorf("failed read config: %w", err)
	}

	now := time.Now
	if s.now != nil {
		now = s.now
	}

	target := s.BackupPath(now())
	if err := os.WriteFile(target, data, 0o600); err != nil {
		log.S(ctx).Errorw("failed write backup", "backup", target, zap.Error(err))
		return "", fmt.Errorf("failed write backup: %w", err)
	}

	log.S(ctx).Infow("config backed up", "backup", target)
	return target, nil
}
