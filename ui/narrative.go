package ui

import (
	"html/template"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// interpretationMarkdown is the fixed reading guide shown under the analysis
// sections. It explains how to read the tables and what the classic Ames
// factors tend to show; it is not computed from the current selection.
const interpretationMarkdown = `
## How to read these results

Each selected variable gets a one-way ANOVA of sale price against its
levels. The **F statistic** compares the variation *between* the level
means to the variation *within* the levels; the **p-value** is the
probability of an F at least this large if the level means were truly
equal. A p-value below **0.05** is flagged as significant.

ANOVA's p-value is only trustworthy when its assumptions hold, so two
checks run alongside every fit:

- **Normality of residuals** — Shapiro-Wilk for samples up to 5000
  observations, Anderson-Darling above that. The histogram and Q-Q plot
  show the same thing visually: residuals hugging the reference curve
  and line suggest the assumption holds.
- **Homogeneity of variances** — Levene's test (median-centered) across
  the levels. Boxplots with wildly different spreads are the visual
  counterpart.

When either check fails, a **Kruskal-Wallis** test is reported as well.
It ranks the prices instead of using them directly, so it needs neither
normality nor equal variances; read its p-value the same way.

## What the Ames data usually shows

- **House style** and **neighborhood** separate price levels strongly:
  two-story and newer split-level homes sit well above one-story homes
  of similar age, and the spread between neighborhoods dwarfs most other
  factors.
- **Year sold** is usually *not* significant on its own. The 2006-2010
  window covers the housing downturn, yet the Ames market moved little
  year to year, so treating the year as a factor rarely clears 0.05.
- **Roof style** and other construction details often reach significance
  but with small between-group differences; check the boxplots before
  reading much into a small p-value, since a few rare levels with a
  handful of sales can drive the result.

## Recommendations

1. Prefer variables with a handful of well-populated levels. Factors
   where most levels have fewer than two observations are skipped, and
   near-empty levels make both ANOVA and Levene unstable.
2. When the Kruskal-Wallis row appears, report *its* p-value rather than
   the ANOVA one; the assumption checks failed for a reason.
3. A significant result says the level means differ somewhere, not
   where. Use the boxplot ordering to see which levels stand apart.
`

// interpretationHTML renders the interpretation guide to embeddable HTML.
func interpretationHTML() template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	rendered := markdown.ToHTML([]byte(interpretationMarkdown), p, renderer)
	return template.HTML(rendered)
}
