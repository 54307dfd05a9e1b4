package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/floodlab/floodarea/internal/config"
	"github.com/floodlab/floodarea/internal/geotiff"
	"github.com/floodlab/floodarea/internal/pipeline"
	"github.com/floodlab/floodarea/internal/report"
	"github.com/floodlab/floodarea/internal/vector"
	"github.com/floodlab/floodarea/internal/zonal"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an HTTP server that runs flood reports on request",
	Long: `Serves flood area reports over HTTP. POST raster and zone paths to
/v1/reports and get the aggregated table back as JSON, CSV, or GeoJSON.

Examples:
  floodarea serve --port 8080
  curl -s localhost:8080/v1/reports \
    -d '{"raster":"depth.tif","zones":"villages.shp","unit":"rai"}'`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: buildRouter(cfg),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// buildRouter wires the HTTP routes. The health endpoint stays outside the
// rate-limited group so probes never compete with report traffic.
func buildRouter(cfg *config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", handleHealth)

	limiter := rate.NewLimiter(rate.Limit(float64(cfg.Server.RatePerMinute)/60.0), cfg.Server.Burst)
	r.Group(func(r chi.Router) {
		r.Use(rateLimit(limiter))
		r.Post("/v1/reports", handleReport(cfg))
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type reportRequest struct {
	Raster     string    `json:"raster"`
	Zones      string    `json:"zones"`
	Thresholds []float64 `json:"thresholds"`
	Unit       string    `json:"unit"`
	IDField    string    `json:"id_field"`
	NameField  string    `json:"name_field"`
	Encoding   string    `json:"encoding"`
	Layer      string    `json:"layer"`
	DepthStats bool      `json:"depth_stats"`
	Format     string    `json:"format"`
}

type reportResponse struct {
	RunID      string     `json:"run_id"`
	Unit       string     `json:"unit"`
	Columns    []string   `json:"columns"`
	Rows       [][]string `json:"rows"`
	Zones      int        `json:"zones"`
	NoOverlap  int        `json:"no_overlap"`
	Failed     int        `json:"failed"`
	DurationMS int64      `json:"duration_ms"`
}

func handleReport(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Raster == "" || req.Zones == "" {
			writeError(w, http.StatusBadRequest, "raster and zones are required")
			return
		}
		switch req.Format {
		case "", "json", "csv", "geojson":
		default:
			writeError(w, http.StatusUnprocessableEntity,
				fmt.Sprintf("unknown response format %q (want json, csv, or geojson)", req.Format))
			return
		}

		unit, err := zonal.ParseUnit(firstOf(req.Unit, cfg.Defaults.Unit))
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		thresholds := req.Thresholds
		if thresholds == nil {
			thresholds = cfg.Defaults.Thresholds
		}

		params := pipeline.Params{
			RasterPath: req.Raster,
			ZonesPath:  req.Zones,
			Thresholds: thresholds,
			Unit:       unit,
			IDField:    firstOf(req.IDField, cfg.Zones.IDField),
			NameField:  firstOf(req.NameField, cfg.Zones.NameField),
			Encoding:   firstOf(req.Encoding, cfg.Zones.Encoding),
			Layer:      firstOf(req.Layer, cfg.Zones.Layer),
			Workers:    cfg.Run.Workers,
			DepthStats: req.DepthStats || cfg.Run.DepthStats,
		}

		ctx := r.Context()
		if secs := cfg.Run.TimeoutSecs; secs > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
			defer cancel()
		}

		res, err := pipeline.Run(ctx, params)
		if err != nil {
			switch {
			case clientInputError(err):
				// The caller supplied the paths and parameters, so both are
				// client errors rather than server faults.
				writeError(w, http.StatusUnprocessableEntity, err.Error())
			default:
				zap.L().Error("serve: report failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "report failed")
			}
			return
		}

		switch req.Format {
		case "csv":
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", `attachment; filename="flood_report.csv"`)
			if err := report.WriteCSV(res.Report, w); err != nil {
				zap.L().Error("serve: write csv response", zap.Error(err))
			}
		case "geojson":
			w.Header().Set("Content-Type", "application/geo+json")
			if err := report.WriteGeoJSON(res.Report, res.Zones, w); err != nil {
				zap.L().Error("serve: write geojson response", zap.Error(err))
			}
		default:
			writeReportJSON(w, res)
		}
	}
}

func writeReportJSON(w http.ResponseWriter, res *pipeline.Result) {
	rows := make([][]string, len(res.Report.Rows))
	for i, row := range res.Report.Rows {
		rows[i] = report.Values(res.Report, row)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reportResponse{
		RunID:      res.Report.Summary.RunID,
		Unit:       string(res.Report.Unit),
		Columns:    report.Columns(res.Report),
		Rows:       rows,
		Zones:      res.Report.Summary.Zones,
		NoOverlap:  res.Report.Summary.NoOverlap,
		Failed:     res.Report.Summary.Failed,
		DurationMS: res.Duration.Milliseconds(),
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// clientInputError reports run failures caused by what the caller sent
// rather than by the server: bad parameters, missing files, or inputs
// the readers cannot make sense of.
func clientInputError(err error) bool {
	return eris.Is(err, zonal.ErrConfig) ||
		eris.Is(err, fs.ErrNotExist) ||
		eris.Is(err, vector.ErrUnsupported) ||
		eris.Is(err, geotiff.ErrUnsupported) ||
		eris.Is(err, geotiff.ErrNoGeoreference)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
