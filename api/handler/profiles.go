package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tablescout/models"
	"github.com/use-agent/tablescout/profile"
)

// ListProfiles returns a handler for GET /api/v1/profiles.
func ListProfiles(reg *profile.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		list := reg.List()
		out := make([]models.ProfileSummary, 0, len(list))
		for _, p := range list {
			out = append(out, summarize(p))
		}
		c.JSON(http.StatusOK, gin.H{"profiles": out})
	}
}

// GetProfile returns a handler for GET /api/v1/profiles/:name. The full
// profile is returned so clients can copy it into their own profile file.
func GetProfile(reg *profile.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := lookupProfile(reg, c.Param("name"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func lookupProfile(reg *profile.Registry, name string) (profile.Profile, error) {
	p, ok := reg.Get(name)
	if !ok {
		return profile.Profile{}, models.NewScrapeError(
			models.ErrCodeProfileNotFound,
			fmt.Sprintf("unknown profile %q", name),
			nil,
		)
	}
	return p, nil
}

func summarize(p profile.Profile) models.ProfileSummary {
	return models.ProfileSummary{
		Name:        p.Name,
		Description: p.Description,
		URL:         p.URL,
		Columns:     p.Headers(),
		TargetCount: p.TargetCount,
		MaxPages:    p.MaxPages,
	}
}
