// Package config loads named cloud definitions from a clouds.yaml file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/joona/osckit/session"
)

// EnvConfigFile overrides the default clouds.yaml location.
const EnvConfigFile = "OS_CLIENT_CONFIG_FILE"

// Auth holds the credentials block of a cloud.
type Auth struct {
	AuthURL           string `yaml:"auth_url" validate:"omitempty,url"`
	Username          string `yaml:"username"`
	UserID            string `yaml:"user_id"`
	Password          string `yaml:"password"`
	UserDomainName    string `yaml:"user_domain_name"`
	ProjectName       string `yaml:"project_name"`
	ProjectID         string `yaml:"project_id"`
	ProjectDomainName string `yaml:"project_domain_name"`
	Token             string `yaml:"token"`
	Endpoint          string `yaml:"endpoint" validate:"omitempty,url"`
}

// Cloud is one entry under "clouds:".
type Cloud struct {
	Name       string `yaml:"-"`
	AuthType   string `yaml:"auth_type"`
	Auth       Auth   `yaml:"auth"`
	RegionName string `yaml:"region_name"`
	Interface  string `yaml:"interface" validate:"omitempty,oneof=public internal admin"`
	Verify     *bool  `yaml:"verify"`
	CACert     string `yaml:"cacert"`
	Cert       string `yaml:"cert"`
	Key        string `yaml:"key"`
}

// AuthOptions converts the credentials block for the session layer.
func (c Cloud) AuthOptions() session.AuthOptions {
	return session.AuthOptions{
		AuthURL:           c.Auth.AuthURL,
		Username:          c.Auth.Username,
		UserID:            c.Auth.UserID,
		Password:          c.Auth.Password,
		UserDomainName:    c.Auth.UserDomainName,
		ProjectName:       c.Auth.ProjectName,
		ProjectID:         c.Auth.ProjectID,
		ProjectDomainName: c.Auth.ProjectDomainName,
		Token:             c.Auth.Token,
		Endpoint:          c.Auth.Endpoint,
	}
}

// Config is a parsed clouds.yaml.
type Config struct {
	Path   string           `yaml:"-"`
	Clouds map[string]Cloud `yaml:"clouds"`
}

// Path returns $OS_CLIENT_CONFIG_FILE or ~/.config/openstack/clouds.yaml.
func Path() (string, error) {
	if path := os.Getenv(EnvConfigFile); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "openstack", "clouds.yaml"), nil
}

// Load reads and validates the clouds file.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadOptional is Load, but a missing file yields an empty config.
func LoadOptional() (*Config, error) {
	cfg, err := Load()
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{Clouds: map[string]Cloud{}}, nil
	}
	return cfg, err
}

// LoadFile reads and validates the clouds file at path.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Path = path
	if cfg.Clouds == nil {
		cfg.Clouds = map[string]Cloud{}
	}

	v := validator.New()
	for _, name := range cfg.Names() {
		cloud := cfg.Clouds[name]
		cloud.Name = name
		if err := v.Struct(cloud); err != nil {
			return nil, fmt.Errorf("cloud %q in %s: %w", name, path, describe(err))
		}
		cfg.Clouds[name] = cloud
	}
	return &cfg, nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "url":
		return fmt.Errorf("%s is not a valid URL: %q", fe.Field(), fe.Value())
	}
	return err
}

// Names lists the defined clouds in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Clouds))
	for name := range c.Clouds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve looks up a cloud by name.
func (c *Config) Resolve(name string) (Cloud, error) {
	cloud, ok := c.Clouds[name]
	if !ok {
		return Cloud{}, errors.New("cloud " + name + " was not found in " + c.Path)
	}
	return cloud, nil
}
