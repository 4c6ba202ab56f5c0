package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studyreward/rewardbook/internal/schema"
	"github.com/studyreward/rewardbook/internal/service"
)

// Request body limits.
const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 32 << 20
)

// ServerOptions configures a Server.
type ServerOptions struct {
	// Logger for request and error logs (default: stderr logger).
	Logger *log.Logger
	// Hub is mounted at /ws when set.
	Hub http.Handler
	// Metrics mounts the Prometheus handler at /metrics.
	Metrics bool
}

// Server serves the business API over HTTP.
type Server struct {
	client Client
	router chi.Router
	logger *log.Logger
}

// NewServer routes every Client operation.
func NewServer(c Client, opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[api] ", log.LstdFlags)
	}
	s := &Server{client: c, logger: logger}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger(logger))

	r.Get("/health", s.health)
	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	if opts.Hub != nil {
		r.Handle("/ws", opts.Hub)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/task-templates", func(r chi.Router) {
			r.Get("/", s.listTemplates)
			r.Post("/", s.createTemplate)
			r.Put("/{id}", s.updateTemplate)
			r.Delete("/{id}", s.deleteTemplate)
		})
		r.Route("/task-executions", func(r chi.Router) {
			r.Get("/", s.listExecutions)
			r.Get("/active", s.activeExecution)
			r.Post("/start", s.startExecution)
			r.Post("/{id}/pause", s.executionAction(s.client.PauseExecution))
			r.Post("/{id}/resume", s.executionAction(s.client.ResumeExecution))
			r.Post("/{id}/cancel", s.executionAction(s.client.CancelExecution))
			r.Post("/{id}/complete", s.completeExecution)
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.listProducts)
			r.Post("/", s.createProduct)
			r.Put("/{id}", s.updateProduct)
			r.Delete("/{id}", s.deleteProduct)
		})
		r.Route("/user", func(r chi.Router) {
			r.Get("/data", s.userData)
			r.Get("/points", s.points)
			r.Get("/point-records", s.pointRecords)
			r.Get("/inventory", s.inventory)
			r.Get("/custom-style", s.customStyle)
			r.Put("/custom-style", s.updateCustomStyle)
			r.Post("/exchange", s.exchange)
		})
		r.Route("/data", func(r chi.Router) {
			r.Get("/export", s.export)
			r.Post("/import", s.importData)
			r.Post("/restore", s.restore)
		})
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
// ready, when non-nil, receives the bound address once listening.
func (s *Server) Serve(ctx context.Context, addr string, ready func(addr string)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("API server listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()
	if ready != nil {
		ready(ln.Addr().String())
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.logger.Println("API server stopped")
	return nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid request body")
		return false
	}
	return true
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ─── Task templates ──────────────────────────────────────────────────────────

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.client.ListTemplates(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

func (s *Server) createTemplate(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTemplateRequest
	if !decode(w, r, &req) {
		return
	}
	tpl, err := s.client.CreateTemplate(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, tpl)
}

func (s *Server) updateTemplate(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateTemplateRequest
	if !decode(w, r, &req) {
		return
	}
	tpl, err := s.client.UpdateTemplate(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tpl)
}

func (s *Server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.client.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, "Task template deleted successfully")
}

// ─── Executions ──────────────────────────────────────────────────────────────

func (s *Server) listExecutions(w http.ResponseWriter, r *http.Request) {
	list, err := s.client.ListExecutions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

func (s *Server) activeExecution(w http.ResponseWriter, r *http.Request) {
	e, err := s.client.ActiveExecution(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, e)
}

func (s *Server) startExecution(w http.ResponseWriter, r *http.Request) {
	var req service.StartRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := s.client.StartExecution(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, e)
}

func (s *Server) executionAction(fn func(context.Context, string) (*schema.TaskExecution, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := fn(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, e)
	}
}

func (s *Server) completeExecution(w http.ResponseWriter, r *http.Request) {
	res, err := s.client.CompleteExecution(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

// ─── Products ────────────────────────────────────────────────────────────────

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	list, err := s.client.ListProducts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var req service.CreateProductRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := s.client.CreateProduct(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateProductRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := s.client.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.client.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, "Product deleted successfully")
}

// ─── User ────────────────────────────────────────────────────────────────────

func (s *Server) userData(w http.ResponseWriter, r *http.Request) {
	data, err := s.client.UserData(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, data)
}

type pointsBody struct {
	Points float64 `json:"points"`
}

func (s *Server) points(w http.ResponseWriter, r *http.Request) {
	p, err := s.client.Points(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, pointsBody{Points: p})
}

func (s *Server) pointRecords(w http.ResponseWriter, r *http.Request) {
	q, err := parseRecordQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	page, err := s.client.PointRecords(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, page)
}

func parseRecordQuery(r *http.Request) (service.RecordQuery, error) {
	v := r.URL.Query()
	q := service.RecordQuery{Type: schema.RecordType(v.Get("type"))}

	ints := []struct {
		key string
		dst *int
	}{{"page", &q.Page}, {"pageSize", &q.PageSize}}
	for _, f := range ints {
		if raw := v.Get(f.key); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return q, fmt.Errorf("invalid %s: %q", f.key, raw)
			}
			*f.dst = n
		}
	}

	stamps := []struct {
		key string
		dst *int64
	}{{"since", &q.Since}, {"until", &q.Until}}
	for _, f := range stamps {
		if raw := v.Get(f.key); raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return q, fmt.Errorf("invalid %s: %q", f.key, raw)
			}
			*f.dst = n
		}
	}
	return q, nil
}

func (s *Server) inventory(w http.ResponseWriter, r *http.Request) {
	items, err := s.client.Inventory(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (s *Server) customStyle(w http.ResponseWriter, r *http.Request) {
	style, err := s.client.CustomStyle(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, style)
}

func (s *Server) updateCustomStyle(w http.ResponseWriter, r *http.Request) {
	var patch schema.CustomStyle
	if !decode(w, r, &patch) {
		return
	}
	style, err := s.client.UpdateCustomStyle(r.Context(), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, style)
}

func (s *Server) exchange(w http.ResponseWriter, r *http.Request) {
	var req service.ExchangeRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.client.Exchange(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

// ─── Data ────────────────────────────────────────────────────────────────────

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	data, err := s.client.Export(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	name := "study-reward-backup-" + time.Now().Format("2006-01-02") + ".json"
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(data)
}

// importData answers with the import result itself rather than a data
// envelope; its success and message fields line up with Response.
func (s *Server) importData(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}
	res := s.client.Import(r.Context(), data)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, res)
}

func (s *Server) restore(w http.ResponseWriter, r *http.Request) {
	doc, err := s.client.Restore(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, doc)
}
