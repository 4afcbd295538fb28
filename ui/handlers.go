package ui

import (
	"html/template"
	"log"
	"net/http"

	"amesdash/adapters/dataset"
	"amesdash/domain/anova"
	"amesdash/internal/errors"

	"github.com/gin-gonic/gin"
)

// maxSelectedVariables caps how many categorical variables one analysis
// pass covers.
const maxSelectedVariables = 3

// pageData is everything index.html needs for one render.
type pageData struct {
	LoadError string

	Source       string
	RowCount     int
	PriceColumn  string
	Columns      []string
	Categoricals []string

	NoPriceColumn  bool
	NoCategoricals bool

	ShowPreview   bool
	PreviewHeader []string
	PreviewRows   [][]string

	Selected    []string
	SelectedSet map[string]bool
	Analyses    []*variableAnalysis

	Narrative template.HTML
}

// variableAnalysis is the per-variable view model: either a skip warning,
// an inline analysis error, or a full decision record with its plots.
type variableAnalysis struct {
	Variable   string
	Skipped    bool
	SkipReason string
	Error      string

	Record      *anova.DecisionRecord
	EffectLabel string

	HistogramHTML template.HTML
	QQPlotHTML    template.HTML
	BoxplotHTML   template.HTML
}

// handleIndex renders the dashboard: dataset overview, variable selector,
// and, when variables are selected, the per-variable analysis sections.
func (s *Server) handleIndex(c *gin.Context) {
	data := &pageData{SelectedSet: map[string]bool{}}

	ds, err := s.loader.Load(c.Request.Context())
	if err != nil {
		log.Printf("[handleIndex] dataset load failed: %v", err)
		data.LoadError = err.Error()
		s.renderTemplate(c, "index.html", data)
		return
	}

	data.Source = ds.Source
	data.RowCount = ds.Frame.RowCount()
	data.PriceColumn = ds.PriceColumn
	data.Columns = ds.Frame.Columns()
	data.Categoricals = ds.Categoricals
	data.NoPriceColumn = ds.PriceColumn == ""
	data.NoCategoricals = len(ds.Categoricals) == 0

	if data.NoPriceColumn || data.NoCategoricals {
		s.renderTemplate(c, "index.html", data)
		return
	}

	if c.Query("preview") == "1" {
		data.ShowPreview = true
		data.PreviewHeader = ds.Frame.Columns()
		data.PreviewRows = ds.Frame.Head(s.cfg.Data.PreviewRows)
	}

	selected := selectedVariables(c.QueryArray("vars"), ds.Categoricals)
	data.Selected = selected
	for _, v := range selected {
		data.SelectedSet[v] = true
	}

	for _, variable := range selected {
		data.Analyses = append(data.Analyses, s.analyzeVariable(ds, variable))
	}
	if len(data.Analyses) > 0 {
		data.Narrative = interpretationHTML()
	}

	s.renderTemplate(c, "index.html", data)
}

// analyzeVariable runs the test selection for one variable and attaches the
// rendered plots. Failures stay scoped to the returned view model.
func (s *Server) analyzeVariable(ds *dataset.Dataset, variable string) *variableAnalysis {
	va := &variableAnalysis{Variable: variable}

	sample, err := ds.SampleFor(variable)
	if err != nil {
		va.Error = err.Error()
		return va
	}

	rec, err := s.selector.Analyze(sample)
	if err != nil {
		if errors.IsCode(err, errors.CodeInsufficientData) {
			log.Printf("[analyzeVariable] skipping %q: %v", variable, err)
			va.Skipped = true
			va.SkipReason = err.Error()
			return va
		}
		va.Error = err.Error()
		return va
	}

	va.Record = rec
	if rec.AnalysisError != "" {
		// The fit or a test failed past the rejection gate; the table may be
		// empty, so no effect label or plots exist for this variable.
		va.Error = rec.AnalysisError
		return va
	}
	va.EffectLabel = rec.Table.Rows[0].Label

	if hist, qq, plotErr := ResidualPlots(sample); plotErr != nil {
		log.Printf("[analyzeVariable] residual plots failed for %q: %v", variable, plotErr)
	} else {
		va.HistogramHTML = hist
		va.QQPlotHTML = qq
	}

	if box, plotErr := PriceBoxplot(sample); plotErr != nil {
		log.Printf("[analyzeVariable] boxplot failed for %q: %v", variable, plotErr)
	} else {
		va.BoxplotHTML = box
	}

	return va
}

// selectedVariables validates the requested variables against the candidate
// list and caps the selection.
func selectedVariables(requested, candidates []string) []string {
	allowed := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		allowed[c] = true
	}

	var selected []string
	seen := make(map[string]bool)
	for _, v := range requested {
		if !allowed[v] || seen[v] {
			continue
		}
		seen[v] = true
		selected = append(selected, v)
		if len(selected) == maxSelectedVariables {
			break
		}
	}
	return selected
}

// handleReload drops the dataset cache and refetches.
func (s *Server) handleReload(c *gin.Context) {
	if _, err := s.loader.Reload(c.Request.Context()); err != nil {
		log.Printf("[handleReload] reload failed: %v", err)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// handleColumns returns the dataset's column roles as JSON.
func (s *Server) handleColumns(c *gin.Context) {
	ds, err := s.loader.Load(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"price_column": ds.PriceColumn,
		"categorical":  ds.Categoricals,
		"columns":      ds.Frame.Columns(),
		"rows":         ds.Frame.RowCount(),
		"source":       ds.Source,
	})
}

// handleAnalyzeJSON runs the selector for the requested variables and
// returns the decision records as JSON.
func (s *Server) handleAnalyzeJSON(c *gin.Context) {
	ds, err := s.loader.Load(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if ds.PriceColumn == "" {
		appErr := errors.NoPriceColumn("no usable price column")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"columns": ds.Frame.Columns(),
		})
		return
	}
	if len(ds.Categoricals) == 0 {
		appErr := errors.NoCategoricals("no categorical candidate columns")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"columns": ds.Frame.Columns(),
		})
		return
	}

	type varResult struct {
		Variable string                `json:"variable"`
		Skipped  bool                  `json:"skipped,omitempty"`
		Reason   string                `json:"reason,omitempty"`
		Record   *anova.DecisionRecord `json:"record,omitempty"`
	}

	var results []varResult
	for _, variable := range selectedVariables(c.QueryArray("vars"), ds.Categoricals) {
		va := s.analyzeVariable(ds, variable)
		res := varResult{Variable: variable, Skipped: va.Skipped, Record: va.Record}
		if va.Skipped {
			res.Reason = va.SkipReason
		} else if va.Error != "" {
			res.Reason = va.Error
		}
		results = append(results, res)
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}
