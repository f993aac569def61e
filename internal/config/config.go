// Package config decodes and validates the daemon's YAML configuration:
// WorldAnvil credentials, the list of tracked worlds, and the remote
// repository URL. This package owns only parsing and schema validation;
// secret resolution lives in internal/secrets.
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/lcgerke/wasync/internal/sync"
)

// githubSSHURLPattern matches git@github.com:<user>/<repo>.git where user is
// 1-15 alphanumerics and repo is 1-35 alphanumerics/hyphens.
var githubSSHURLPattern = regexp.MustCompile(`^git@github\.com:[A-Za-z0-9]{1,15}/[A-Za-z0-9-]{1,35}\.git$`)

// File is the root of the on-disk YAML configuration.
type File struct {
	WorldAnvil WorldAnvilConfig `yaml:"WorldAnvil" validate:"required"`
	RemoteRepo RemoteRepoConfig `yaml:"remote_repo" validate:"required"`
}

// WorldAnvilConfig holds the upstream credentials and the list of worlds to
// mirror.
type WorldAnvilConfig struct {
	Credentials CredentialsConfig `yaml:"credentials" validate:"required"`
	Track       TrackConfig       `yaml:"track"`
}

// CredentialsConfig holds the WorldAnvil API credentials.
type CredentialsConfig struct {
	ApplicationKey      string `yaml:"application_key" validate:"required,len=128,hexadecimal"`
	AuthenticationToken string `yaml:"authentication_token" validate:"required,len=249,alphanum"`
}

// TrackConfig lists the worlds the daemon should mirror.
type TrackConfig struct {
	Worlds []WorldEntry `yaml:"worlds" validate:"dive"`
}

// WorldEntry is one tracked world and which kinds within it to mirror.
type WorldEntry struct {
	URL          string       `yaml:"url" validate:"required,url,max=50"`
	TrackChanges TrackChanges `yaml:"track_changes"`
}

// TrackChanges is the per-kind opt-in for one world. ArticleBlocks, Images,
// and Maps are finer granularity than the three kinds the Synchronizer
// models (world/category/article); WorldConfigs folds them into Articles
// rather than each driving a distinct kind loop.
type TrackChanges struct {
	World         bool `yaml:"world"`
	Categories    bool `yaml:"categories"`
	Articles      bool `yaml:"articles"`
	ArticleBlocks bool `yaml:"article_blocks"`
	Images        bool `yaml:"images"`
	Maps          bool `yaml:"maps"`
}

// RemoteRepoConfig names the single shared git remote every tracked world is
// mirrored into.
type RemoteRepoConfig struct {
	RemoteRepositoryURL string `yaml:"remote_repository_url" validate:"required,github_ssh_url"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("github_ssh_url", func(fl validator.FieldLevel) bool {
		return githubSSHURLPattern.MatchString(fl.Field().String())
	})
	return v
}

// Load reads and validates the YAML configuration file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse validates and decodes raw YAML config bytes.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing config yaml: %w", err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &f, nil
}

// WorldConfigs converts the parsed track.worlds list into the Synchronizer's
// view of them. Identifiers are resolved by the Synchronizer itself from the
// configured URL; this conversion only carries the URL and the per-kind
// opt-ins.
func (f *File) WorldConfigs() []sync.WorldConfig {
	worlds := make([]sync.WorldConfig, 0, len(f.WorldAnvil.Track.Worlds))
	for _, w := range f.WorldAnvil.Track.Worlds {
		worlds = append(worlds, sync.WorldConfig{
			URL:             w.URL,
			TrackWorld:      w.TrackChanges.World,
			TrackCategories: w.TrackChanges.Categories,
			TrackArticles:   w.TrackChanges.Articles || w.TrackChanges.ArticleBlocks || w.TrackChanges.Images || w.TrackChanges.Maps,
		})
	}
	return worlds
}
