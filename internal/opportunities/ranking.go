package opportunities

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/hourtrack/backend/internal/geocode"
	"github.com/hourtrack/backend/internal/models"
)

// RankForSchool orders opportunities for a school-scoped browse: approved-org
// postings first, then within each tier by ascending distance from the
// school's reference point. Opportunities without resolvable coordinates, or
// when the school itself has none, sort last in their tier in their original
// order. The sort is stable so unranked entries keep the store's ordering.
func RankForSchool(list []models.Opportunity, approvedOrgs map[uuid.UUID]bool, schoolLat, schoolLng *float64) []models.Opportunity {
	ranked := make([]models.Opportunity, len(list))
	copy(ranked, list)

	sort.SliceStable(ranked, func(i, j int) bool {
		ai, aj := approvedOrgs[ranked[i].OrganizationID], approvedOrgs[ranked[j].OrganizationID]
		if ai != aj {
			return ai
		}
		return distanceFrom(&ranked[i], schoolLat, schoolLng) < distanceFrom(&ranked[j], schoolLat, schoolLng)
	})
	return ranked
}

func distanceFrom(o *models.Opportunity, schoolLat, schoolLng *float64) float64 {
	if schoolLat == nil || schoolLng == nil || o.Lat == nil || o.Lng == nil {
		return math.Inf(1)
	}
	return geocode.Distance(*schoolLat, *schoolLng, *o.Lat, *o.Lng)
}
