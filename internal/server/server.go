package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"math/rand"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"DailyBias/internal/app"
	"DailyBias/internal/model"
	"DailyBias/internal/quiz"
	"DailyBias/internal/recorder"
)

//go:embed templates/*.html
var templateFS embed.FS

// Params configures the HTTP server.
type Params struct {
	ListenAddr string
	StaticDir  string
}

// Server serves the quiz pages. Routing is a static table: one generic
// handler parameterized by the symbol looked up in the App, no
// per-asset route registration.
type Server struct {
	p    Params
	app  *app.App
	rec  recorder.Recorder
	tmpl *template.Template
}

// NewServer creates the server and parses the embedded templates.
func NewServer(p Params, a *app.App, rec recorder.Recorder) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"inc": func(n int) int { return n + 1 },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Server{p: p, app: a, rec: rec, tmpl: tmpl}, nil
}

// Handler returns the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /daily_bias/{symbol}", s.handleQuiz)
	mux.HandleFunc("POST /daily_bias/{symbol}", s.handleSubmit)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.p.StaticDir))))
	return logRequests(mux)
}

// Run starts the HTTP server and blocks until the context is done or
// the listener fails.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	srv := &http.Server{
		Addr:    s.p.ListenAddr,
		Handler: s.Handler(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	log.Printf("[INFO] http server listening on %s", s.p.ListenAddr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

type indexData struct {
	Assets []app.AssetStatus
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index.html", indexData{Assets: s.app.Statuses()})
}

type quizItemView struct {
	Index    int
	SetupURL string
}

type quizData struct {
	Symbol string
	Items  []quizItemView
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	set, ok := s.lookupSet(w, r, symbol)
	if !ok {
		return
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	items := quiz.Present(set, rng)

	data := quizData{Symbol: symbol}
	for _, item := range items {
		data.Items = append(data.Items, quizItemView{
			Index:    item.Index,
			SetupURL: s.artifactURL(item.SetupPath),
		})
	}
	s.render(w, "quiz.html", data)
}

type resultItemView struct {
	Index      int
	Submitted  model.Sentiment
	Answered   bool
	Correct    bool
	Label      model.Sentiment
	SetupURL   string
	OutcomeURL string
}

type resultData struct {
	Symbol string
	Score  int
	Total  int
	Items  []resultItemView
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	set, ok := s.lookupSet(w, r, symbol)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form data", http.StatusBadRequest)
		return
	}
	sub := make(quiz.Submission, len(set.Items))
	for _, item := range set.Items {
		field := "prediction_" + strconv.Itoa(item.Index)
		if answer, ok := model.ParseSentiment(r.PostFormValue(field)); ok {
			sub[item.Index] = answer
		}
	}

	res := quiz.Score(set, sub)

	if err := s.rec.RecordAttempt(&recorder.Attempt{
		Asset: symbol,
		Score: res.Score,
		Total: res.Total,
	}); err != nil {
		log.Printf("[ERROR] record attempt for %s: %v", symbol, err)
	}

	data := resultData{Symbol: symbol, Score: res.Score, Total: res.Total}
	for _, item := range res.Items {
		data.Items = append(data.Items, resultItemView{
			Index:      item.Index,
			Submitted:  item.Submitted,
			Answered:   item.Answered,
			Correct:    item.Correct,
			Label:      item.Label,
			SetupURL:   s.artifactURL(item.SetupPath),
			OutcomeURL: s.artifactURL(item.OutcomePath),
		})
	}
	s.render(w, "results.html", data)
}

// lookupSet resolves the symbol to a ready quiz set, writing the
// degraded response itself when the asset is unknown or not ready.
func (s *Server) lookupSet(w http.ResponseWriter, r *http.Request, symbol string) (*quiz.Set, bool) {
	set, ok, err := s.app.Set(symbol)
	if ok {
		return set, true
	}
	switch {
	case errors.Is(err, app.ErrUnknownAsset):
		http.NotFound(w, r)
	case err != nil:
		http.Error(w, fmt.Sprintf("Failed to prepare %s test data.", symbol), http.StatusServiceUnavailable)
	default:
		http.Error(w, fmt.Sprintf("%s test data is still being prepared, try again shortly.", symbol), http.StatusServiceUnavailable)
	}
	return nil, false
}

// artifactURL maps a chart file path under the static dir to its URL.
func (s *Server) artifactURL(path string) string {
	rel, err := filepath.Rel(s.p.StaticDir, path)
	if err != nil {
		return "/static/" + filepath.ToSlash(path)
	}
	return "/static/" + filepath.ToSlash(rel)
}

func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("[ERROR] render %s: %v", name, err)
	}
}

// logRequests is a simple request logging middleware.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[INFO] %s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}
