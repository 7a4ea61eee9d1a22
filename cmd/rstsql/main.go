/*
 * Copyright 2022 RapidLoop, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/rapidloop/rstsql"
)

var (
	flagset      = pflag.NewFlagSet("", pflag.ContinueOnError)
	fport        = flagset.Int("port", 8080, "port to listen on")
	fbind        = flagset.String("bind", "127.0.0.1", "IPv4/IPv6 address to bind to")
	flogConfig   = flagset.String("log-config", "", "path to a log configuration file (optional)")
	fdslPath     = flagset.String("dsl-path", "/DSL", "root of the DSL directory tree")
	fdbURI       = flagset.String("db-uri", "", "PostgreSQL connection string")
	fcorsOrigins = flagset.String("cors-allowed-origins", "", "comma-separated list of allowed CORS origins (disabled if empty)")
	fcompress    = flagset.Bool("compress", false, "enable response compression")
	fdbMaxConns  = flagset.Int("db-max-conns", 0, "maximum database pool connections (0 = driver default)")
)

var version string // set during build

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: rstsql [options]
rstsql publishes a directory of SQL files as an HTTP+JSON API against a
PostgreSQL database.

Options:
`)
	flagset.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
The flags --port, --bind, --log-config, --dsl-path and --db-uri can also be
set via an environment variable of the same name, upper-cased with dashes
turned to underscores (eg. --db-uri -> DB_URI).
`)
}

func main() {
	flagset.Usage = usage
	if err := flagset.Parse(os.Args[1:]); err == pflag.ErrHelp {
		return
	} else if err != nil {
		usage()
		os.Exit(1)
	}
	applyEnvOverrides()

	log.SetFlags(0)
	os.Exit(realmain())
}

// applyEnvOverrides lets an environment variable override a flag's value
// when the flag was not explicitly set on the command line, matching
// "--db-uri" to "DB_URI" etc. pflag itself has no env binding.
func applyEnvOverrides() {
	lookup := func(name string) (string, bool) {
		envName := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		return os.LookupEnv(envName)
	}

	setIfUnset := func(name string, apply func(string)) {
		if flagset.Changed(name) {
			return
		}
		if v, ok := lookup(name); ok {
			apply(v)
		}
	}

	setIfUnset("port", func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			*fport = n
		}
	})
	setIfUnset("bind", func(v string) { *fbind = v })
	setIfUnset("log-config", func(v string) { *flogConfig = v })
	setIfUnset("dsl-path", func(v string) { *fdslPath = v })
	setIfUnset("db-uri", func(v string) { *fdbURI = v })
}

type logConfig struct {
	Level string `json:"level"`
	JSON  bool   `json:"json"`
}

func setupLogger() zerolog.Logger {
	cfg := logConfig{Level: "info"}
	if *flogConfig != "" {
		raw, err := os.ReadFile(*flogConfig)
		if err != nil {
			log.Printf("rstsql: warning: failed to read log config %q: %v", *flogConfig, err)
		} else if err := json.Unmarshal(raw, &cfg); err != nil {
			log.Printf("rstsql: warning: failed to parse log config %q: %v", *flogConfig, err)
		}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	if cfg.JSON {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	out := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05.999",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

func realmain() int {
	if err := rstsql.ValidatePort(*fport); err != nil {
		log.Printf("rstsql: %v", err)
		return 1
	}
	if err := rstsql.ValidateBind(*fbind); err != nil {
		log.Printf("rstsql: %v", err)
		return 1
	}

	logger := setupLogger()

	var corsOrigins []string
	if *fcorsOrigins != "" {
		corsOrigins = strings.Split(*fcorsOrigins, ",")
	}

	cfg := rstsql.Config{
		Bind:               *fbind,
		Port:               *fport,
		DSLPath:            *fdslPath,
		DBURI:              *fdbURI,
		DBMaxConns:         int32(*fdbMaxConns),
		CORSAllowedOrigins: corsOrigins,
		Compress:           *fcompress,
		Version:            version,
	}

	server, err := rstsql.NewAPIServer(cfg, logger)
	if err != nil {
		log.Printf("rstsql: failed to create server: %v", err)
		return 1
	}
	if err := server.Start(); err != nil {
		log.Printf("rstsql: failed to start server: %v", err)
		return 1
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	<-ch
	signal.Stop(ch)
	close(ch)

	if err := server.Stop(time.Minute); err != nil {
		log.Printf("rstsql: warning: failed to stop server: %v", err)
	}

	return 0
}
