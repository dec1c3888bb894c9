// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration, loaded from ~/.hvac-copilot/config.yaml
// when present. Every field has a working default so the tool runs with
// no config file at all.
type Config struct {
	// Server is the copilot base URL.
	Server string `yaml:"server"`

	// Token is an optional bearer token. When empty the dev identity
	// headers are sent instead.
	Token string `yaml:"token"`

	// Tenant and User fill the dev identity headers.
	Tenant string `yaml:"tenant"`
	User   string `yaml:"user"`

	// Offline forces the canned responder, no server required.
	Offline bool `yaml:"offline"`
}

var config = Config{
	Server: "http://localhost:12300",
	Tenant: "dev-tenant",
	User:   "dev-user",
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "hvac-copilot",
	Short: "Field-service copilot for HVAC job questions",
	Long: `hvac-copilot answers technician questions about a job using the
job's visit notes, equipment history, and maintenance records.

Run 'hvac-copilot chat --job <id>' for an interactive session, or
'hvac-copilot ask --job <id> "question"' for a one-shot answer.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.hvac-copilot/config.yaml)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		loadConfig()
	}
}

// loadConfig merges the YAML config file over the defaults. A missing
// file is fine; a malformed one is fatal so typos don't silently fall
// back to defaults.
func loadConfig() {
	path := configPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		path = filepath.Join(home, ".hvac-copilot", "config.yaml")
	}

	yamlFile, err := os.ReadFile(path)
	if err != nil {
		if configPath != "" {
			log.Fatalf("Error reading config %s: %v", path, err)
		}
		return
	}
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		log.Fatalf("Error parsing %s: %v", path, err)
	}
}
