package controllers

import (
	"net/http"
	"strconv"

	"github.com/address-extractor/app/models"
	"github.com/address-extractor/app/responses"
	"github.com/address-extractor/internal/reference"
	"github.com/address-extractor/internal/search"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultPlaceLimit = 10

// PlacesController exposes gazetteer lookups and the place index
type PlacesController struct {
	ref      *reference.Reference
	searcher *search.PlaceSearcher
	maxLimit int
	logger   *zap.Logger
}

// NewPlacesController creates the controller; searcher may be nil
func NewPlacesController(ref *reference.Reference, searcher *search.PlaceSearcher, maxLimit int, logger *zap.Logger) *PlacesController {
	if maxLimit <= 0 {
		maxLimit = defaultPlaceLimit
	}
	return &PlacesController{ref: ref, searcher: searcher, maxLimit: maxLimit, logger: logger}
}

// Search queries the place index: ?q=phoenix&state=AZ&limit=5
func (pc *PlacesController) Search(c *gin.Context) {
	if pc.searcher == nil {
		c.JSON(http.StatusServiceUnavailable, responses.NewError("SEARCH_DISABLED", "the place index is not configured"))
		return
	}
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, responses.NewError("MISSING_QUERY", "q is required"))
		return
	}

	limit := defaultPlaceLimit
	if s := c.Query("limit"); s != "" {
		if l, err := strconv.Atoi(s); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > pc.maxLimit {
		limit = pc.maxLimit
	}

	state := c.Query("state")
	places, err := pc.searcher.Search(query, state, limit)
	if err != nil {
		pc.logger.Error("Place search failed", zap.String("query", query), zap.Error(err))
		c.JSON(http.StatusBadGateway, responses.NewError("SEARCH_ERROR", err.Error()))
		return
	}

	c.JSON(http.StatusOK, responses.PlaceSearchResponse{
		Query:  query,
		State:  state,
		Places: places,
		Total:  len(places),
	})
}

// GetZipcode returns the gazetteer row for a 5-digit or ZIP+4 code
func (pc *PlacesController) GetZipcode(c *gin.Context) {
	zipcode := c.Param("zipcode")
	info, ok := pc.ref.Lookup(zipcode)
	if !ok {
		c.JSON(http.StatusNotFound, responses.NewError("ZIPCODE_NOT_FOUND", "unknown zipcode "+zipcode))
		return
	}
	c.JSON(http.StatusOK, models.Place{
		Zipcode:   info.Zipcode,
		City:      info.City,
		State:     info.State,
		StateName: info.StateName,
		County:    info.County,
		Latitude:  info.Latitude,
		Longitude: info.Longitude,
	})
}
