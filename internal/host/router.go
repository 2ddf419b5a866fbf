package host

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"amsplayer/internal/block"
	"amsplayer/pkg/config"
	"amsplayer/pkg/middleware"
	"amsplayer/pkg/openapi"
	"amsplayer/pkg/problems"
)

// ScopeStudio guards the authoring view and handlers.
const ScopeStudio = "studio:write"

const maxHandlerBody = 1 << 20

// studioHandlers mutate the block or call Media Services with the org's credentials.
var studioHandlers = map[string]bool{
	"get_captions_and_video_info": true,
	"submit_studio_edits":         true,
}

type server struct {
	block *block.Block
	log   *zap.SugaredLogger
}

// NewRouter wires middleware, the block endpoints and the operational routes.
func NewRouter(cfg config.Config, log *zap.SugaredLogger, b *block.Block) (chi.Router, error) {
	static, err := fs.Sub(block.Static, "static")
	if err != nil {
		return nil, err
	}
	s := &server{block: b, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.Recover(log))
	r.Use(middleware.Tracing(cfg, log))
	r.Use(middleware.JWTAuth(cfg, log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/.well-known/openapi.json", apiDoc().ServeHandler("ams-player", "v1"))
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Route("/blocks/{usageID}", func(br chi.Router) {
		br.Get("/student_view", s.studentView)
		br.With(middleware.RequireScope(ScopeStudio)).Get("/studio_view", s.studioView)
		if cfg.TranscriptRPM > 0 {
			br.With(httprate.LimitByIP(cfg.TranscriptRPM, time.Minute)).
				Post("/handler/fetch_transcript", s.handler)
		}
		br.Post("/handler/{handler}", s.handler)
	})
	return r, nil
}

func apiDoc() *openapi.Registry {
	reg := openapi.NewRegistry()
	reg.DescribeScope(ScopeStudio, "Author block settings and browse Media Services assets")
	reg.Register(openapi.Operation{Method: "GET", Path: "/blocks/{usageID}/student_view", Summary: "Render the video player fragment", Tags: []string{"views"}})
	reg.Register(openapi.Operation{Method: "GET", Path: "/blocks/{usageID}/studio_view", Summary: "Render the authoring form fragment", Tags: []string{"views"}, Scopes: []string{ScopeStudio}})
	for _, h := range block.Handlers {
		op := openapi.Operation{Method: "POST", Path: "/blocks/{usageID}/handler/" + h, Summary: "Block JSON handler " + h, Tags: []string{"handlers"}}
		if studioHandlers[h] {
			op.Scopes = []string{ScopeStudio}
		}
		reg.Register(op)
	}
	return reg
}

func scopeIDs(r *http.Request) block.ScopeIDs {
	usage := chi.URLParam(r, "usageID")
	if u, err := url.PathUnescape(usage); err == nil {
		usage = u
	}
	return block.ScopeIDs{UserID: middleware.UserID(r.Context()), UsageID: usage}
}

func (s *server) studentView(w http.ResponseWriter, r *http.Request) {
	frag, err := s.block.StudentView(r.Context(), scopeIDs(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, frag)
}

func (s *server) studioView(w http.ResponseWriter, r *http.Request) {
	frag, err := s.block.StudioView(r.Context(), scopeIDs(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, frag)
}

func (s *server) handler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "handler")
	if name == "" {
		name = "fetch_transcript"
	}
	if studioHandlers[name] && !middleware.HasAnyScope(r.Context(), []string{ScopeStudio}) {
		problems.Write(w, http.StatusForbidden, "insufficient-scope", "Insufficient scope", "requires "+ScopeStudio)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxHandlerBody))
	if err != nil {
		problems.Write(w, http.StatusRequestEntityTooLarge, "payload-too-large", "Payload too large", "")
		return
	}
	res, err := s.block.Handle(r.Context(), scopeIDs(r), name, body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *block.ValidationError
	switch {
	case errors.As(err, &ve):
		p := problems.New(http.StatusBadRequest, "invalid-fields", "Invalid field values", "")
		p.Errors = ve.Messages
		problems.WriteProblem(w, p)
	case errors.Is(err, block.ErrBlockNotFound):
		problems.Write(w, http.StatusNotFound, "block-not-found", "Block not found", "")
	case errors.Is(err, block.ErrUnknownHandler):
		problems.Write(w, http.StatusNotFound, "unknown-handler", "Unknown handler", err.Error())
	case errors.Is(err, block.ErrBadPayload):
		problems.Write(w, http.StatusBadRequest, "invalid-json", "Invalid JSON payload", "")
	case errors.Is(err, block.ErrUpstream):
		s.log.Warnw("media services failure", "path", r.URL.Path, "request_id", middleware.RequestIDFrom(r.Context()), "err", err)
		problems.Write(w, http.StatusBadGateway, "upstream-failure", "Azure Media Services request failed", err.Error())
	default:
		s.log.Errorw("block request failed", "path", r.URL.Path, "request_id", middleware.RequestIDFrom(r.Context()), "err", err)
		problems.Write(w, http.StatusInternalServerError, "internal", "Internal error", "")
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
