package opportunities

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hourtrack/backend/internal/models"
)

func coords(lat, lng float64) (*float64, *float64) {
	return &lat, &lng
}

func opp(title string, orgID uuid.UUID, lat, lng *float64) models.Opportunity {
	return models.Opportunity{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Title:          title,
		Lat:            lat,
		Lng:            lng,
	}
}

func titles(list []models.Opportunity) []string {
	out := make([]string, len(list))
	for i, o := range list {
		out[i] = o.Title
	}
	return out
}

func TestRankForSchool_ApprovedOrgsFirst(t *testing.T) {
	approvedOrg := uuid.New()
	otherOrg := uuid.New()
	schoolLat, schoolLng := coords(51.5, -0.1)

	farLat, farLng := coords(53.5, -2.2)
	nearLat, nearLng := coords(51.6, -0.1)

	list := []models.Opportunity{
		opp("other near", otherOrg, nearLat, nearLng),
		opp("approved far", approvedOrg, farLat, farLng),
		opp("approved near", approvedOrg, nearLat, nearLng),
	}

	ranked := RankForSchool(list, map[uuid.UUID]bool{approvedOrg: true}, schoolLat, schoolLng)
	assert.Equal(t, []string{"approved near", "approved far", "other near"}, titles(ranked))
}

func TestRankForSchool_DistanceWithinTier(t *testing.T) {
	orgID := uuid.New()
	schoolLat, schoolLng := coords(51.5, -0.1)

	closeLat, closeLng := coords(51.51, -0.1)
	midLat, midLng := coords(52.0, -0.1)
	farLat, farLng := coords(55.0, -3.0)

	list := []models.Opportunity{
		opp("far", orgID, farLat, farLng),
		opp("close", orgID, closeLat, closeLng),
		opp("mid", orgID, midLat, midLng),
	}

	ranked := RankForSchool(list, nil, schoolLat, schoolLng)
	assert.Equal(t, []string{"close", "mid", "far"}, titles(ranked))
}

func TestRankForSchool_MissingCoordinatesSortLast(t *testing.T) {
	approvedOrg := uuid.New()
	otherOrg := uuid.New()
	schoolLat, schoolLng := coords(51.5, -0.1)
	nearLat, nearLng := coords(51.6, -0.1)

	list := []models.Opportunity{
		opp("approved unlocated", approvedOrg, nil, nil),
		opp("approved near", approvedOrg, nearLat, nearLng),
		opp("other near", otherOrg, nearLat, nearLng),
		opp("other unlocated", otherOrg, nil, nil),
	}

	ranked := RankForSchool(list, map[uuid.UUID]bool{approvedOrg: true}, schoolLat, schoolLng)
	assert.Equal(t, []string{"approved near", "approved unlocated", "other near", "other unlocated"}, titles(ranked))
}

func TestRankForSchool_NoSchoolCoordinatesKeepsOrderWithinTiers(t *testing.T) {
	approvedOrg := uuid.New()
	otherOrg := uuid.New()
	nearLat, nearLng := coords(51.6, -0.1)

	list := []models.Opportunity{
		opp("other a", otherOrg, nearLat, nearLng),
		opp("approved a", approvedOrg, nearLat, nearLng),
		opp("other b", otherOrg, nil, nil),
		opp("approved b", approvedOrg, nil, nil),
	}

	ranked := RankForSchool(list, map[uuid.UUID]bool{approvedOrg: true}, nil, nil)
	assert.Equal(t, []string{"approved a", "approved b", "other a", "other b"}, titles(ranked))
}

func TestRankForSchool_DoesNotMutateInput(t *testing.T) {
	orgID := uuid.New()
	schoolLat, schoolLng := coords(51.5, -0.1)
	farLat, farLng := coords(55.0, -3.0)
	closeLat, closeLng := coords(51.51, -0.1)

	list := []models.Opportunity{
		opp("far", orgID, farLat, farLng),
		opp("close", orgID, closeLat, closeLng),
	}
	ranked := RankForSchool(list, nil, schoolLat, schoolLng)

	require.Equal(t, []string{"far", "close"}, titles(list))
	assert.Equal(t, []string{"close", "far"}, titles(ranked))
}
