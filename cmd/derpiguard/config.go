package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ponymod/derpiguard/tagmod/policy"
)

// On-disk configuration file. Secrets in here can be overridden from the environment or CLI flags.
type FileConfig struct {
	Discord struct {
		Token string `json:"token"`
	} `json:"discord"`
	Derpi struct {
		ApiKey     string            `json:"apiKey"`
		BannedTags policy.BannedTags `json:"bannedTags"`
	} `json:"derpi"`
}

func LoadFileConfig(path string) (*FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	var fc FileConfig
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &fc, nil
}

// Applies non-empty overrides, then checks that required secrets are present.
func (fc *FileConfig) Resolve(token, apiKey string, needToken bool) error {
	if token != "" {
		fc.Discord.Token = token
	}
	if apiKey != "" {
		fc.Derpi.ApiKey = apiKey
	}
	if needToken && fc.Discord.Token == "" {
		return errors.New("discord token not configured (config file or DISCORD_TOKEN)")
	}
	if fc.Derpi.ApiKey == "" {
		return errors.New("derpibooru API key not configured (config file or DERPI_API_KEY)")
	}
	return nil
}
