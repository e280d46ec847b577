package api

import (
	"net/http"

	"stemforge/internal/config"
	"stemforge/internal/plans"

	"github.com/gin-gonic/gin"
)

type MetaHandler struct {
	Config *config.Config
}

func NewMetaHandler(cfg *config.Config) *MetaHandler {
	return &MetaHandler{Config: cfg}
}

func (h *MetaHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PlanLimits exposes the plan catalog so the frontend can render pricing and
// upload constraints before the user signs in.
func (h *MetaHandler) PlanLimits(c *gin.Context) {
	catalog := plans.Catalog()
	out := make([]gin.H, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, gin.H{
			"key":                 p.Key,
			"name":                p.Name,
			"maxUploadBytes":      p.MaxUploadBytes,
			"maxMonthlyRenders":   renderCeiling(p.MaxMonthlyRenders),
			"signedUrlTtlSeconds": p.SignedURLTTLSeconds,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"plans":                         out,
		"hasIdentityProviderConfigured": h.Config.HasIdentityProvider(),
	})
}

// planLimitsPayload shapes effective limits for upload responses.
func planLimitsPayload(plan plans.Plan, limits plans.Limits) gin.H {
	return gin.H{
		"key":                 plan.Key,
		"name":                plan.Name,
		"maxUploadBytes":      limits.MaxUploadBytes,
		"maxMonthlyRenders":   renderCeiling(limits.MaxMonthlyRenders),
		"signedUrlTtlSeconds": limits.SignedURLTTLSeconds,
	}
}

// renderCeiling maps the unbounded sentinel to JSON null.
func renderCeiling(max int64) interface{} {
	if max < 0 {
		return nil
	}
	return max
}
