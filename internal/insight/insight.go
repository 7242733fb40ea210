// Package insight backfills marketing descriptions for projects that were
// listed without one.
package insight

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aquanexus/credits-cli/internal/model"
	"github.com/aquanexus/credits-cli/internal/store"
	"github.com/aquanexus/credits-cli/pkg/anthropic"
)

const systemPrompt = "Eres un redactor para un mercado de créditos de agua en México. " +
	"Escribe descripciones breves y atractivas de proyectos de ahorro hídrico. " +
	"Responde únicamente con la descripción, sin comillas ni preámbulo."

// Generator writes one-sentence project descriptions with the Messages API.
type Generator struct {
	client   anthropic.Client
	store    store.Store
	model    string
	maxChars int
}

// NewGenerator creates a Generator. maxChars caps the stored description
// length; non-positive means 200.
func NewGenerator(client anthropic.Client, s store.Store, model string, maxChars int) *Generator {
	if maxChars <= 0 {
		maxChars = 200
	}
	return &Generator{client: client, store: s, model: model, maxChars: maxChars}
}

// Describe generates a description for a single project without persisting it.
func (g *Generator) Describe(ctx context.Context, p *model.Project) (string, error) {
	prompt := fmt.Sprintf(
		"Proyecto: %s. Cultivo: %s. Tecnología: %s. Ubicación: %s. Ahorro de agua: %.0f m³ al año. "+
			"Índice de estrés hídrico: %.0f/100. Escribe una descripción de máximo %d caracteres.",
		p.Name, p.Crop, p.Technology, p.Location, p.WaterSavingsM3, p.RiskScore, g.maxChars,
	)

	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: 300,
		System:    systemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", eris.Wrapf(err, "insight: describe %s", p.ID)
	}
	resp.Usage.LogCost(g.model, "describe")

	return Clamp(strings.TrimSpace(resp.Text), g.maxChars), nil
}

// Backfill describes and persists every project missing a description, up to
// limit rows. It returns the number updated; a single project failing stops
// the run so a misconfigured key does not burn through the whole table.
func (g *Generator) Backfill(ctx context.Context, limit int) (int, error) {
	projects, err := g.store.ListProjectsMissingDescription(ctx, limit)
	if err != nil {
		return 0, eris.Wrap(err, "insight: list candidates")
	}

	updated := 0
	for i := range projects {
		p := &projects[i]

		text, err := g.Describe(ctx, p)
		if err != nil {
			return updated, err
		}
		if err := g.store.UpdateProjectDescription(ctx, p.ID, text); err != nil {
			return updated, eris.Wrapf(err, "insight: persist description %s", p.ID)
		}
		updated++

		zap.L().Info("description generated",
			zap.String("project_id", p.ID),
			zap.Int("chars", utf8.RuneCountInString(text)),
		)
	}
	return updated, nil
}

// Clamp truncates s to at most max runes, trimming back to a word boundary
// when one is near the cut.
func Clamp(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:max])
	if idx := strings.LastIndexByte(cut, ' '); idx > max*3/4 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ,;")
}
