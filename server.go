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

// Package rstsql publishes a directory of SQL files as an HTTP+JSON API
// against a PostgreSQL database. Each file under the DSL tree becomes one
// endpoint; an OpenAPI 3 document and a Swagger UI are generated from the
// same files. See cmd/rstsql for the CLI entry point.
package rstsql

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/rapidloop/rstsql/internal/cache"
	"github.com/rapidloop/rstsql/internal/codec"
	"github.com/rapidloop/rstsql/internal/dsl"
	"github.com/rapidloop/rstsql/internal/oas"
)

const (
	readTimeout  = time.Minute
	writeTimeout = 5 * time.Minute
	idleTimeout  = 2 * time.Minute
)

// Config is everything needed to build and start an APIServer.
type Config struct {
	Bind    string
	Port    int
	DSLPath string
	DBURI   string

	// DBMaxConns of 0 leaves the pool at the driver default.
	DBMaxConns int32

	// CORSAllowedOrigins, if non-empty, enables CORS with this origin
	// list. Ambient: not part of the DSL/HTTP contract.
	CORSAllowedOrigins []string

	// Compress enables response compression middleware.
	Compress bool

	// Version is reported as info.version in the OpenAPI document.
	Version string
}

// APIServer loads a DSL catalog, compiles its OpenAPI document, and serves
// both over HTTP once started.
type APIServer struct {
	cfg     Config
	logger  zerolog.Logger
	catalog *dsl.Catalog
	doc     *oas.Document
	cache   *cache.Cache

	pool *pgxpool.Pool
	srv  *http.Server

	bgctx    context.Context
	bgcancel context.CancelFunc
}

// NewAPIServer loads the DSL catalog from cfg.DSLPath and compiles the
// OpenAPI document. It does not connect to the database or start listening;
// call Start for that.
func NewAPIServer(cfg Config, logger zerolog.Logger) (*APIServer, error) {
	catalog, err := dsl.Load(cfg.DSLPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load DSL tree: %w", err)
	}

	version := cfg.Version
	if version == "" {
		version = "0.0.0"
	}
	doc := oas.Build(catalog, version)

	return &APIServer{
		cfg:     cfg,
		logger:  logger,
		catalog: catalog,
		doc:     doc,
		cache:   cache.New(),
	}, nil
}

// Start connects to the database and begins serving HTTP requests.
func (a *APIServer) Start() error {
	a.bgctx, a.bgcancel = context.WithCancel(context.Background())

	pool, err := connectPool(a.bgctx, a.cfg.DBURI, a.cfg.DBMaxConns)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	a.pool = pool

	r := chi.NewRouter()
	a.setupRouter(r)
	var h http.Handler = r
	if a.cfg.Compress {
		h = middleware.Compress(5)(h)
	}

	addr := net.JoinHostPort(a.cfg.Bind, strconv.Itoa(a.cfg.Port))
	lnr, err := net.Listen("tcp", addr)
	if err != nil {
		a.pool.Close()
		return err
	}
	a.srv = &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	go a.srv.Serve(lnr)
	a.logger.Info().Str("listen", addr).Msg("rstsql API server started")

	return nil
}

// Stop shuts down the HTTP server and closes the database pool, waiting up
// to timeout for in-flight requests to finish.
func (a *APIServer) Stop(timeout time.Duration) error {
	if a.srv == nil {
		return nil
	}

	a.logger.Info().Msg("stop request received, shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.bgcancel()

	if err := a.srv.Shutdown(ctx); err != nil {
		return err
	}
	a.srv = nil

	if a.pool != nil {
		a.pool.Close()
	}

	a.logger.Info().Msg("rstsql API server stopped")
	return nil
}

type loggerForCORS struct {
	logger zerolog.Logger
}

func (l *loggerForCORS) Printf(f string, args ...interface{}) {
	l.logger.Debug().Msgf(f, args...)
}

func (a *APIServer) setupRouter(r *chi.Mux) {
	if len(a.cfg.CORSAllowedOrigins) > 0 {
		c := cors.New(cors.Options{AllowedOrigins: a.cfg.CORSAllowedOrigins})
		c.Log = &loggerForCORS{logger: a.logger.With().Bool("cors", true).Logger()}
		r.Use(c.Handler)
	}

	r.Use(a.accessLog)

	r.Get("/docs/openapi.json", a.serveOpenAPIJSON)
	r.Get("/docs", a.serveSwaggerUI)

	for _, ep := range a.catalog.Endpoints() {
		ep := ep
		r.Method(ep.Method, ep.URLPath, a.makeHandler(ep))
	}
}

// accessLog emits "<uri> - <status>" for every response.
func (a *APIServer) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.logger.Info().Msgf("%s - %d", r.RequestURI, ww.Status())
	})
}

func (a *APIServer) serveOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a.doc); err != nil {
		a.logger.Error().Err(err).Msg("error writing openapi document")
	}
}

// serveSwaggerUI serves a minimal page that loads the swagger-ui-dist
// bundle from a CDN and points it at /docs/openapi.json. There is no
// vendored Swagger UI asset bundle to embed.
func (a *APIServer) serveSwaggerUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, swaggerUIPage)
}

const swaggerUIPage = `<!DOCTYPE html>
<html>
<head>
  <title>RstSQL API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist/swagger-ui-bundle.js"></script>
  <script>
    window.onload = () => {
      window.ui = SwaggerUIBundle({
        url: "/docs/openapi.json",
        dom_id: "#swagger-ui",
      });
    };
  </script>
</body>
</html>
`

// writeError writes a JSON {"error": msg} body with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (a *APIServer) makeHandler(ep dsl.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values, err := gatherValues(r, ep)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		args, err := codec.Bind(ep.ParamOrder, values)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		useCache := ep.Method == "GET" && ep.Declaration.Cache > 0
		var cacheKey uint64
		if useCache {
			cacheKey = cache.Key(ep.URLPath, args)
			if body, contentType, ok := a.cache.Get(cacheKey); ok {
				w.Header().Set("Content-Type", contentType)
				_, _ = w.Write(body)
				return
			}
		}

		rows, err := a.pool.Query(r.Context(), ep.RewrittenSQL, args...)
		if err != nil {
			a.logger.Error().Err(err).Str("endpoint", ep.URLPath).Msg("query failed")
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
		defer rows.Close()

		result := make([]*codec.Row, 0)
		for rows.Next() {
			row, err := codec.DecodeRow(rows)
			if err != nil {
				a.logger.Error().Err(err).Str("endpoint", ep.URLPath).Msg("failed to decode row")
				writeError(w, http.StatusInternalServerError, "database error")
				return
			}
			result = append(result, row)
		}
		if err := rows.Err(); err != nil {
			a.logger.Error().Err(err).Str("endpoint", ep.URLPath).Msg("query failed")
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}

		contentType := "application/json"
		var body []byte
		if ep.Declaration.Response.Format == "csv" {
			contentType = "text/csv; charset=utf-8"
			body, err = encodeCSV(result)
		} else {
			body, err = json.Marshal(result)
		}
		if err != nil {
			a.logger.Error().Err(err).Str("endpoint", ep.URLPath).Msg("failed to encode response")
			writeError(w, http.StatusInternalServerError, "encode error")
			return
		}

		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)

		if useCache {
			a.cache.Set(cacheKey, body, contentType, time.Duration(ep.Declaration.Cache*float64(time.Second)))
		}
	}
}

// gatherValues builds the name->value map an endpoint's params bind
// against, per the GET/POST contracts.
func gatherValues(r *http.Request, ep dsl.Endpoint) (map[string]any, error) {
	values := make(map[string]any)

	if ep.Method == "GET" {
		q := r.URL.Query()
		for _, name := range ep.ParamOrder {
			if vs, ok := q[name]; ok && len(vs) > 0 {
				values[name] = vs[0]
			}
		}
		return values, nil
	}

	// POST
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("invalid json body: %w", err)
	}

	if m, ok := raw.(map[string]any); ok {
		return m, nil
	}
	if len(ep.ParamOrder) == 0 {
		return values, nil
	}
	return nil, fmt.Errorf("request body must be a json object")
}

func encodeCSV(rows []*codec.Row) ([]byte, error) {
	var buf bytes.Buffer
	enc := csv.NewWriter(&buf)
	for _, row := range rows {
		vals := row.OrderedValues()
		strs := make([]string, len(vals))
		for i, v := range vals {
			strs[i] = fmt.Sprintf("%v", v)
		}
		if err := enc.Write(strs); err != nil {
			return nil, err
		}
	}
	enc.Flush()
	if err := enc.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
