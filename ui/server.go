package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"math"

	"amesdash/adapters/dataset"
	"amesdash/adapters/stats/engine"
	"amesdash/internal/config"

	"github.com/gin-gonic/gin"
)

// Server is the web server for the ANOVA dashboard.
type Server struct {
	router        *gin.Engine
	cfg           *config.Config
	loader        *dataset.Loader
	selector      *engine.Selector
	templates     *template.Template
	embeddedFiles embed.FS
}

// NewServer creates a new web server instance.
func NewServer(cfg *config.Config, loader *dataset.Loader, embeddedFiles embed.FS) *Server {
	return &Server{
		router:        gin.Default(),
		cfg:           cfg,
		loader:        loader,
		selector:      engine.NewSelector(),
		embeddedFiles: embeddedFiles,
	}
}

// Initialize parses the embedded templates and wires the routes.
func (s *Server) Initialize() error {
	funcMap := template.FuncMap{
		// p-values render in scientific notation, NaN as a dash.
		"pfmt": func(v float64) string {
			if math.IsNaN(v) {
				return "—"
			}
			return fmt.Sprintf("%.4e", v)
		},
		"ffmt": func(v float64) string {
			if math.IsNaN(v) {
				return "—"
			}
			return fmt.Sprintf("%.4f", v)
		},
		"join": joinComma,
	}

	templatesFS, err := fs.Sub(s.embeddedFiles, "ui/templates")
	if err != nil {
		return fmt.Errorf("failed to create templates filesystem: %w", err)
	}

	files, err := fs.Glob(templatesFS, "*.html")
	if err != nil {
		return fmt.Errorf("failed to glob templates: %w", err)
	}
	log.Printf("[TemplateInit] Found %d template files: %v", len(files), files)

	s.templates = template.New("").Funcs(funcMap)
	for _, file := range files {
		content, readErr := fs.ReadFile(templatesFS, file)
		if readErr != nil {
			return fmt.Errorf("failed to read template %s: %w", file, readErr)
		}
		if _, parseErr := s.templates.New(file).Parse(string(content)); parseErr != nil {
			return fmt.Errorf("failed to parse template %s: %w", file, parseErr)
		}
	}

	s.setupRoutes()
	return nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.POST("/reload", s.handleReload)

	// JSON endpoints for programmatic access.
	s.router.GET("/api/columns", s.handleColumns)
	s.router.GET("/api/analyze", s.handleAnalyzeJSON)
}

// Start starts the web server.
func (s *Server) Start(addr string) error {
	log.Printf("Starting ANOVA dashboard on http://%s", addr)
	return s.router.Run(addr)
}

func (s *Server) renderTemplate(c *gin.Context, templateName string, data interface{}) {
	c.Header("Content-Type", "text/html")
	if err := s.templates.ExecuteTemplate(c.Writer, templateName, data); err != nil {
		log.Printf("Template error: %v", err)
		c.AbortWithStatus(500)
	}
}

func joinComma(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}
