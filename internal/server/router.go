package server

import (
	"hotelscore/internal/score"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes limits the batch score request body.
const maxBodyBytes = 1 << 20

// Router manages the routes of the scoring service.
// Handles batch scoring, rule listing and rule configuration.
type Router struct {
	// engine — scoring engine serving every request.
	engine *score.Engine
	// validator — schema check of batch score payloads.
	validator *hotelListValidator
	// metrics — Prometheus collectors exposed on /metrics.
	metrics *metrics
	// corsOrigin — value of Access-Control-Allow-Origin.
	corsOrigin string
}

// Mux returns a configured chi router with registered handlers.
// Registers the following routes:
// - POST /hotels/score.json — scores a list of hotels
// - GET /rules.json — lists active rules
// - POST /rules/{item}/score — turns a rule on/off and/or sets its value
// - GET /shortlist/{item} — lists shortlisted IDs of a kind
// - GET /healthz — liveness probe
// - GET /metrics — Prometheus metrics
//
// Trailing slashes are ignored, so /rules/hotel/score/ is served too.
func (ar *Router) Mux() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(ar.metrics.Middleware, requestLogger, cors(ar.corsOrigin))

	r.Post("/hotels/score.json", ar.scoreHandler)
	r.Get("/rules.json", ar.rulesHandler)
	r.Post("/rules/{item}/score", ar.configureHandler)
	r.Get("/shortlist/{item}", ar.shortlistHandler)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", ar.metrics.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, ErrCodeNotFound, "Route not found")
	})

	return r
}

// scoreHandler handles POST requests with a JSON list of {hotelId, countryId}.
// Responds with [{hotelId, score}] in the order of the request.
func (ar *Router) scoreHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		slog.Warn("Unable to read hotel list", "error", err)
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid hotel list")
		return
	}
	defer r.Body.Close()

	queries, err := ar.validator.Decode(body)
	if err != nil {
		slog.Warn("Supplied hotel list is invalid", "error", err)
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid hotel list")
		return
	}

	results, err := ar.engine.ScoreAll(r.Context(), queries)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	ar.metrics.scored.Add(float64(len(results)))
	slog.Debug("Scored hotels", "count", len(results))
	writeJSON(w, results)
}

// ruleView is the listing shape of a rule: the kind is given by which score
// field is present.
type ruleView struct {
	ScoreHotel   *float64 `json:"scoreHotel,omitempty"`
	ScoreCountry *float64 `json:"scoreCountry,omitempty"`
	Active       bool     `json:"active"`
}

func newRuleView(r score.Rule) ruleView {
	v := r.Value
	view := ruleView{Active: r.Active}
	switch r.Kind {
	case score.Hotel:
		view.ScoreHotel = &v
	case score.Country:
		view.ScoreCountry = &v
	}
	return view
}

// rulesHandler lists the active rules, e.g. [{"scoreHotel":5,"active":true}].
func (ar *Router) rulesHandler(w http.ResponseWriter, r *http.Request) {
	rules, err := ar.engine.ActiveRules(r.Context())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	views := make([]ruleView, 0, len(rules))
	for _, rule := range rules {
		views = append(views, newRuleView(rule))
	}
	writeJSON(w, views)
}

// configureHandler handles POST /rules/{item}/score?turn=on|off&value=N.
// At least one of turn and value must be supplied.
func (ar *Router) configureHandler(w http.ResponseWriter, r *http.Request) {
	item := chi.URLParam(r, "item")
	if _, err := score.ParseItemKind(item); err != nil {
		writeEngineError(w, r, err)
		return
	}

	query := r.URL.Query()
	var opts score.ConfigureOptions

	if query.Has("turn") {
		var turn bool
		switch query.Get("turn") {
		case "on":
			turn = true
		case "off":
			turn = false
		default:
			writeError(w, r, http.StatusBadRequest, ErrCodeInvalidParameter, "turn must be 'on' or 'off'")
			return
		}
		opts.Turn = &turn
	}

	if query.Has("value") {
		value, err := strconv.ParseFloat(query.Get("value"), 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, ErrCodeInvalidParameter, "value must be a number")
			return
		}
		opts.Value = &value
	}

	modified, err := ar.engine.Configure(r.Context(), item, opts)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	ar.metrics.changes.WithLabelValues(item, strconv.FormatBool(modified)).Inc()
	writeJSON(w, map[string]bool{"success": true})
}

// shortlistHandler lists the shortlisted IDs of a kind as {"type":..., "ids":[...]}.
func (ar *Router) shortlistHandler(w http.ResponseWriter, r *http.Request) {
	item := chi.URLParam(r, "item")
	ids, err := ar.engine.Shortlisted(r.Context(), item)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	writeJSON(w, struct {
		Type string  `json:"type"`
		IDs  []int64 `json:"ids"`
	}{Type: item, IDs: ids})
}

// cors adds the cross-origin headers to every response and answers
// preflight requests itself.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "PUT, GET, POST, DELETE")
			h.Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs every request once it is served.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		slog.Info("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// NewRouter creates a new router.
// Parameters:
// - engine: scoring engine
// - corsOrigin: value of Access-Control-Allow-Origin
//
// Returns pointer to configured Router.
func NewRouter(engine *score.Engine, corsOrigin string) *Router {
	return &Router{
		engine:     engine,
		validator:  newHotelListValidator(),
		metrics:    newMetrics(),
		corsOrigin: corsOrigin,
	}
}
