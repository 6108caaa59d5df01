package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Listd-Technologies/listd-prd/internal/models"
	"github.com/Listd-Technologies/listd-prd/internal/refdata"
	"github.com/Listd-Technologies/listd-prd/internal/services"
)

// SearchHandler handles buyer-side discovery endpoints.
type SearchHandler struct {
	searchService services.ISearchService
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(searchService services.ISearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

func floatQuery(c *gin.Context, name string) *float64 {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &val
}

func intQuery(c *gin.Context, name string) *int {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &val
}

// SearchListings handles GET /v1/listing/search.
//
// Geography comes in one of three shapes: area (free-text place name),
// lat/lon/radius_km (circle), or polygon (pipe-separated lon,lat pairs
// in the "polygon" query param).
func (h *SearchHandler) SearchListings(c *gin.Context) {
	params := services.SearchParams{
		Mode:     refdata.TransactionMode(c.Query("mode")),
		Category: refdata.PropertyCategory(c.Query("category")),
		Query:    c.Query("q"),
		Area:     c.Query("area"),
		Cursor:   c.Query("cursor"),
		Sort:     c.Query("sort"),
	}

	params.PriceMin = floatQuery(c, "price_min")
	params.PriceMax = floatQuery(c, "price_max")
	params.SizeMin = floatQuery(c, "size_min")
	params.SizeMax = floatQuery(c, "size_max")
	params.BedroomsMin = intQuery(c, "bedrooms_min")
	params.BathroomsMin = intQuery(c, "bathrooms_min")

	if limit := intQuery(c, "limit"); limit != nil {
		params.Limit = *limit
	}

	lat, lon := floatQuery(c, "lat"), floatQuery(c, "lon")
	radius := floatQuery(c, "radius_km")
	if lat != nil && lon != nil && radius != nil {
		params.Circle = &models.Circle{
			Center:   *models.NewPoint(*lon, *lat),
			RadiusKM: *radius,
		}
	}
	if ring, ok := parsePolygon(c.Query("polygon")); ok {
		params.Polygon = &models.Polygon{Ring: ring}
	}

	var result *services.SearchResult
	err := retryStore(func() error {
		var err error
		result, err = h.searchService.Search(c.Request.Context(), params)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":        result.Listings,
		"total":       result.Total,
		"next_cursor": result.NextCursor,
	})
}

// parsePolygon decodes "lon,lat|lon,lat|..." into a ring.
func parsePolygon(raw string) ([][]float64, bool) {
	if raw == "" {
		return nil, false
	}
	var ring [][]float64
	for _, pair := range strings.Split(raw, "|") {
		coords := strings.Split(pair, ",")
		if len(coords) != 2 {
			return nil, false
		}
		lon, err1 := strconv.ParseFloat(coords[0], 64)
		lat, err2 := strconv.ParseFloat(coords[1], 64)
		if err1 != nil || err2 != nil {
			return nil, false
		}
		ring = append(ring, []float64{lon, lat})
	}
	return ring, len(ring) >= 3
}

// AreaCount handles GET /v1/area/count: the "type an area name, see N
// properties" teaser.
func (h *SearchHandler) AreaCount(c *gin.Context) {
	mode := refdata.TransactionMode(c.Query("mode"))
	category := refdata.PropertyCategory(c.Query("category"))
	area := c.Query("area")

	var count int64
	err := retryStore(func() error {
		var err error
		count, err = h.searchService.CountByArea(c.Request.Context(), mode, category, area)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"area": area, "count": count}})
}

// ResolveArea handles GET /v1/area/resolve.
func (h *SearchHandler) ResolveArea(c *gin.Context) {
	var place *models.Place
	err := retryStore(func() error {
		var err error
		place, err = h.searchService.ResolveArea(c.Request.Context(), c.Query("q"))
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"place":        place,
		"display_name": place.DisplayName(),
	}})
}
