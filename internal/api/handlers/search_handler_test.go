package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Listd-Technologies/listd-prd/internal/api/handlers"
	"github.com/Listd-Technologies/listd-prd/internal/apperrors"
	"github.com/Listd-Technologies/listd-prd/internal/models"
	"github.com/Listd-Technologies/listd-prd/internal/refdata"
	"github.com/Listd-Technologies/listd-prd/internal/services"
)

func TestSearchHandler_SearchListings_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSearchSvc := new(MockSearchService)
	handler := handlers.NewSearchHandler(mockSearchSvc)

	r := gin.New()
	r.GET("/v1/listing/search", handler.SearchListings)

	result := &services.SearchResult{
		Listings: []models.Listing{
			{Base: models.Base{ID: primitive.NewObjectID()}, Title: "Condo A"},
			{Base: models.Base{ID: primitive.NewObjectID()}, Title: "Condo B"},
		},
		Total:      12,
		NextCursor: "1700000000_abc",
	}
	mockSearchSvc.On("Search", mock.Anything, mock.MatchedBy(func(p services.SearchParams) bool {
		return p.Mode == refdata.ModeBuy &&
			p.Category == refdata.CategoryCondominium &&
			p.Query == "view" &&
			p.PriceMin != nil && *p.PriceMin == 1000000 &&
			p.Limit == 2
	})).Return(result, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listing/search?mode=Buy&category=Condominium&q=view&price_min=1000000&limit=2", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "1700000000_abc", resp["next_cursor"])
	assert.EqualValues(t, 12, resp["total"])
	data, ok := resp["data"].([]interface{})
	assert.True(t, ok)
	assert.Len(t, data, 2)
	mockSearchSvc.AssertExpectations(t)
}

func TestSearchHandler_SearchListings_CircleParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSearchSvc := new(MockSearchService)
	handler := handlers.NewSearchHandler(mockSearchSvc)

	r := gin.New()
	r.GET("/v1/listing/search", handler.SearchListings)

	mockSearchSvc.On("Search", mock.Anything, mock.MatchedBy(func(p services.SearchParams) bool {
		return p.Circle != nil &&
			p.Circle.RadiusKM == 5 &&
			p.Circle.Center.Coordinates[0] == 121.02 &&
			p.Circle.Center.Coordinates[1] == 14.55
	})).Return(&services.SearchResult{}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listing/search?mode=Rent&category=Condominium&lat=14.55&lon=121.02&radius_km=5", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSearchSvc.AssertExpectations(t)
}

func TestSearchHandler_SearchListings_PolygonParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSearchSvc := new(MockSearchService)
	handler := handlers.NewSearchHandler(mockSearchSvc)

	r := gin.New()
	r.GET("/v1/listing/search", handler.SearchListings)

	mockSearchSvc.On("Search", mock.Anything, mock.MatchedBy(func(p services.SearchParams) bool {
		return p.Polygon != nil && len(p.Polygon.Ring) == 3
	})).Return(&services.SearchResult{}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listing/search?mode=Buy&category=Vacant+Lot&polygon=120.9,14.5|121.1,14.5|121.0,14.6", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSearchSvc.AssertExpectations(t)
}

func TestSearchHandler_SearchListings_ValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSearchSvc := new(MockSearchService)
	handler := handlers.NewSearchHandler(mockSearchSvc)

	r := gin.New()
	r.GET("/v1/listing/search", handler.SearchListings)

	mockSearchSvc.On("Search", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewValidation("mode", "unknown transaction mode Lease"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listing/search?mode=Lease&category=Condominium", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSearchSvc.AssertExpectations(t)
}

func TestSearchHandler_AreaCount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSearchSvc := new(MockSearchService)
	handler := handlers.NewSearchHandler(mockSearchSvc)

	r := gin.New()
	r.GET("/v1/area/count", handler.AreaCount)

	mockSearchSvc.On("CountByArea", mock.Anything, refdata.ModeRent, refdata.CategoryCondominium, "Makati").
		Return(int64(37), nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/area/count?mode=Rent&category=Condominium&area=Makati", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			Area  string `json:"area"`
			Count int64  `json:"count"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Makati", resp.Data.Area)
	assert.EqualValues(t, 37, resp.Data.Count)
	mockSearchSvc.AssertExpectations(t)
}

func TestSearchHandler_ResolveArea(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSearchSvc := new(MockSearchService)
	handler := handlers.NewSearchHandler(mockSearchSvc)

	r := gin.New()
	r.GET("/v1/area/resolve", handler.ResolveArea)

	place := &models.Place{
		Base:  models.Base{ID: primitive.NewObjectID()},
		Level: models.PlaceLevelSubLocality,
		Name:  "Poblacion", City: "Makati", Region: "NCR",
	}
	mockSearchSvc.On("ResolveArea", mock.Anything, "poblacion").Return(place, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/area/resolve?q=poblacion", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			DisplayName string `json:"display_name"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Poblacion, Makati, NCR", resp.Data.DisplayName)
	mockSearchSvc.AssertExpectations(t)
}
