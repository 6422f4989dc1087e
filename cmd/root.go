/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/valpere/glosstran/internal/config"
)

var version = "0.1.0"

var (
	cfgFile  string
	envFile  string
	logLevel string
	dbPath   string

	// cfg is populated by the root PersistentPreRunE before any RunE runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "glosstran",
	Short: "Glossary-grounded LLM translator",
	Long: `A CLI application that translates domain texts with an LLM while keeping
terminology consistent with a curated glossary.

Glossary terms relevant to each sentence are found by exact substring
matching and by embedding similarity, handed to the model as binding
renderings, and checked in the translation afterwards.

Start with "glosstran embed" to build the glossary database, then use
"glosstran translate".`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}

		v := config.New()
		if err := config.ReadFile(v, cfgFile); err != nil {
			return err
		}
		flags := rootCmd.PersistentFlags()
		if err := v.BindPFlag("log_level", flags.Lookup("log-level")); err != nil {
			return err
		}
		if err := v.BindPFlag("database", flags.Lookup("db")); err != nil {
			return err
		}

		c, err := config.Decode(v)
		if err != nil {
			return err
		}
		cfg = c
		setupLogging(cfg.LogLevel)
		return nil
	},
}

func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./glosstran.yaml or ~/.config/glosstran/glosstran.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file with API keys")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "glosstran.db", "SQLite database path")
}
