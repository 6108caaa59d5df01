package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Listd-Technologies/listd-prd/internal/apperrors"
	"github.com/Listd-Technologies/listd-prd/internal/cache"
	"github.com/Listd-Technologies/listd-prd/internal/config"
	"github.com/Listd-Technologies/listd-prd/internal/db"
	"github.com/Listd-Technologies/listd-prd/internal/models"
	"github.com/Listd-Technologies/listd-prd/internal/refdata"
)

// earthRadiusKM converts a kilometer radius into the radians that
// $centerSphere expects.
const earthRadiusKM = 6378.1

// SearchParams is the full buyer-side query surface. Geography is one of
// Area (a named place), Circle, or Polygon; supplying more than one is a
// validation error.
type SearchParams struct {
	Mode     refdata.TransactionMode
	Category refdata.PropertyCategory

	Query string

	PriceMin *float64
	PriceMax *float64
	SizeMin  *float64
	SizeMax  *float64

	BedroomsMin  *int
	BathroomsMin *int

	Area    string
	Circle  *models.Circle
	Polygon *models.Polygon

	Limit  int
	Cursor string
	// Sort is "relevance" (default when Query is set), "newest"
	// (default otherwise) or "price_asc" / "price_desc".
	Sort string
}

// SearchResult is one page of matches plus the exact total for the whole
// filter.
type SearchResult struct {
	Listings   []models.Listing `json:"listings"`
	Total      int64            `json:"total"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// ISearchService is the buyer-side discovery surface. Only Active
// listings are ever visible through it.
type ISearchService interface {
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)
	ResolveArea(ctx context.Context, name string) (*models.Place, error)
	CountByArea(ctx context.Context, mode refdata.TransactionMode, category refdata.PropertyCategory, area string) (int64, error)
}

type searchService struct {
	db     *mongo.Database
	cfg    *config.Config
	counts *cache.AreaCountCache
}

// NewSearchService creates a new SearchService. The count cache may be
// nil; CountByArea then always hits the database.
func NewSearchService(database *mongo.Database, cfg *config.Config, counts *cache.AreaCountCache) ISearchService {
	return &searchService{db: database, cfg: cfg, counts: counts}
}

func (s *searchService) validate(params *SearchParams) error {
	if !refdata.ValidMode(params.Mode) {
		return apperrors.NewValidation("mode", "unknown transaction mode "+string(params.Mode))
	}
	if !refdata.ValidCategory(params.Category) {
		return apperrors.NewValidation("category", "unknown property category "+string(params.Category))
	}
	geoInputs := 0
	if params.Area != "" {
		geoInputs++
	}
	if params.Circle != nil {
		geoInputs++
		if params.Circle.RadiusKM <= 0 {
			return apperrors.NewValidation("circle.radius_km", "must be positive")
		}
	}
	if params.Polygon != nil {
		geoInputs++
		if len(params.Polygon.Ring) < 3 {
			return apperrors.NewValidation("polygon", "at least three vertices required")
		}
	}
	if geoInputs > 1 {
		return apperrors.NewValidation("geo", "area, circle and polygon are mutually exclusive")
	}
	if params.PriceMin != nil && params.PriceMax != nil && *params.PriceMin > *params.PriceMax {
		return apperrors.NewValidation("price", "min exceeds max")
	}
	if params.SizeMin != nil && params.SizeMax != nil && *params.SizeMin > *params.SizeMax {
		return apperrors.NewValidation("size", "min exceeds max")
	}
	if !refdata.HasRooms(params.Category) && (params.BedroomsMin != nil || params.BathroomsMin != nil) {
		return apperrors.NewValidation("bedrooms", "room filters do not apply to "+string(params.Category))
	}
	return nil
}

// buildFilter translates SearchParams into the Mongo filter document.
// Geometry uses $geoWithin rather than $near so it can combine with
// $text in a single query.
func (s *searchService) buildFilter(ctx context.Context, params SearchParams) (bson.M, error) {
	filter := bson.M{
		"status":   refdata.StatusActive,
		"mode":     params.Mode,
		"category": params.Category,
	}

	if params.Query != "" {
		filter["$text"] = bson.M{"$search": params.Query}
	}

	if params.PriceMin != nil || params.PriceMax != nil {
		price := bson.M{}
		if params.PriceMin != nil {
			price["$gte"] = *params.PriceMin
		}
		if params.PriceMax != nil {
			price["$lte"] = *params.PriceMax
		}
		filter["price.amount"] = price
	}

	if params.SizeMin != nil || params.SizeMax != nil {
		size := bson.M{}
		if params.SizeMin != nil {
			size["$gte"] = *params.SizeMin
		}
		if params.SizeMax != nil {
			size["$lte"] = *params.SizeMax
		}
		filter[refdata.SizeFieldBSON(params.Category)] = size
	}

	if params.BedroomsMin != nil {
		filter["details."+detailKey(params.Category)+".bedrooms"] = bson.M{"$gte": *params.BedroomsMin}
	}
	if params.BathroomsMin != nil {
		filter["details."+detailKey(params.Category)+".bathrooms"] = bson.M{"$gte": *params.BathroomsMin}
	}

	switch {
	case params.Circle != nil:
		filter["location.point"] = bson.M{"$geoWithin": bson.M{
			"$centerSphere": bson.A{
				params.Circle.Center.Coordinates,
				params.Circle.RadiusKM / earthRadiusKM,
			},
		}}
	case params.Polygon != nil:
		filter["location.point"] = bson.M{"$geoWithin": bson.M{
			"$geometry": bson.M{
				"type":        "Polygon",
				"coordinates": bson.A{params.Polygon.ClosedRing()},
			},
		}}
	case params.Area != "":
		place, err := s.ResolveArea(ctx, params.Area)
		if err != nil {
			return nil, err
		}
		applyPlaceFilter(filter, place)
	}

	return filter, nil
}

func detailKey(c refdata.PropertyCategory) string {
	switch c {
	case refdata.CategoryCondominium:
		return "condominium"
	case refdata.CategoryHouseAndLot:
		return "house_and_lot"
	case refdata.CategoryWarehouse:
		return "warehouse"
	case refdata.CategoryVacantLot:
		return "vacant_lot"
	}
	return ""
}

// applyPlaceFilter scopes the listing filter to the resolved place by
// matching the denormalized location fields at the place's level.
func applyPlaceFilter(filter bson.M, place *models.Place) {
	switch place.Level {
	case models.PlaceLevelRegion:
		filter["location.region"] = place.Name
	case models.PlaceLevelCity:
		filter["location.city"] = place.Name
	case models.PlaceLevelSubLocality:
		filter["location.city"] = place.City
		filter["location.sub_locality"] = place.Name
	}
}

// ResolveArea finds the best place match for a free-text area name via
// the places text index, preferring the most specific level.
func (s *searchService) ResolveArea(ctx context.Context, name string) (*models.Place, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidation("area", "required")
	}

	var place models.Place
	err := db.WithTimeout(ctx, "search.resolve_area", s.cfg.OpTimeout, func(ctx context.Context) error {
		opts := options.FindOne().
			SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
			SetSort(bson.M{"score": bson.M{"$meta": "textScore"}})
		return s.db.Collection(db.PlacesCollection).
			FindOne(ctx, bson.M{"$text": bson.M{"$search": name}}, opts).
			Decode(&place)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve area %q: %w", name, err)
	}
	return &place, nil
}

// Search runs one page of the buyer query and computes the exact total
// for the whole filter.
func (s *searchService) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if err := s.validate(&params); err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultPageLimit
	}
	if limit > s.cfg.MaxPageLimit {
		limit = s.cfg.MaxPageLimit
	}

	filter, err := s.buildFilter(ctx, params)
	if err != nil {
		return nil, err
	}

	sortField, sortDir := sortSpec(params.Sort)
	relevance := params.Query != "" && (params.Sort == "" || params.Sort == "relevance")
	pageFilter := filter
	opts := options.Find().SetLimit(int64(limit))
	var skip int64
	if relevance {
		// Multi-term matches must outrank single-term ones, so the text
		// score leads the sort with recency as the tiebreak. The score
		// cannot appear in a query filter, so relevance pages advance by
		// offset instead of a keyset boundary.
		opts.SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}})
		opts.SetSort(bson.D{
			{Key: "score", Value: bson.M{"$meta": "textScore"}},
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: -1},
		})
		if params.Cursor != "" {
			var ok bool
			if skip, ok = decodeOffsetCursor(params.Cursor); ok {
				opts.SetSkip(skip)
			} else {
				log.Printf("WARN: invalid search cursor received: %s", params.Cursor)
			}
		}
	} else {
		opts.SetSort(bson.D{{Key: sortField, Value: sortDir}, {Key: "_id", Value: -1}})
		if params.Cursor != "" {
			cursorClause, ok := decodeCursor(params.Cursor, sortField, sortDir)
			if ok {
				pageFilter = bson.M{"$and": bson.A{filter, cursorClause}}
			} else {
				log.Printf("WARN: invalid search cursor received: %s", params.Cursor)
			}
		}
	}

	var listings []models.Listing
	err = db.WithTimeout(ctx, "search.find", s.cfg.OpTimeout, func(ctx context.Context) error {
		cursor, err := s.db.Collection(db.ListingsCollection).Find(ctx, pageFilter, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &listings)
	})
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}

	var total int64
	err = db.WithTimeout(ctx, "search.count", s.cfg.OpTimeout, func(ctx context.Context) error {
		total, err = s.db.Collection(db.ListingsCollection).CountDocuments(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search count failed: %w", err)
	}

	result := &SearchResult{Listings: listings, Total: total}
	if len(listings) == limit {
		if relevance {
			result.NextCursor = encodeOffsetCursor(skip + int64(len(listings)))
		} else {
			last := listings[len(listings)-1]
			result.NextCursor = encodeCursor(&last, sortField)
		}
	}
	return result, nil
}

// CountByArea answers the "N properties in <area>" teaser, cached
// briefly so repeated keystroke lookups stay cheap. Stale counts within
// the TTL are acceptable.
func (s *searchService) CountByArea(ctx context.Context, mode refdata.TransactionMode, category refdata.PropertyCategory, area string) (int64, error) {
	if !refdata.ValidMode(mode) {
		return 0, apperrors.NewValidation("mode", "unknown transaction mode "+string(mode))
	}
	if !refdata.ValidCategory(category) {
		return 0, apperrors.NewValidation("category", "unknown property category "+string(category))
	}

	canonical := string(mode) + "|" + string(category) + "|" + strings.ToLower(strings.TrimSpace(area))
	key := s.counts.Key(canonical)
	if n, ok := s.counts.Get(ctx, key); ok {
		return n, nil
	}

	place, err := s.ResolveArea(ctx, area)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	filter := bson.M{
		"status":   refdata.StatusActive,
		"mode":     mode,
		"category": category,
	}
	applyPlaceFilter(filter, place)

	var total int64
	err = db.WithTimeout(ctx, "search.area_count", s.cfg.OpTimeout, func(ctx context.Context) error {
		total, err = s.db.Collection(db.ListingsCollection).CountDocuments(ctx, filter)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("area count failed for %q: %w", area, err)
	}

	s.counts.Set(ctx, key, total)
	return total, nil
}

func sortSpec(sort string) (string, int) {
	switch sort {
	case "price_asc":
		return "price.amount", 1
	case "price_desc":
		return "price.amount", -1
	default:
		return "created_at", -1
	}
}

// encodeCursor renders the page boundary as "<sortValue>_<idHex>".
// Timestamps carry millisecond precision to match what BSON stores, so
// listings created in the boundary's second are not skipped.
func encodeCursor(last *models.Listing, sortField string) string {
	switch sortField {
	case "price.amount":
		return strconv.FormatFloat(last.Price.Amount, 'f', -1, 64) + "_" + last.ID.Hex()
	default:
		return fmt.Sprintf("%d_%s", last.CreatedAt.UnixMilli(), last.ID.Hex())
	}
}

// Relevance pages advance by offset; see Search.
func encodeOffsetCursor(offset int64) string {
	return "o_" + strconv.FormatInt(offset, 10)
}

func decodeOffsetCursor(cursor string) (int64, bool) {
	raw, ok := strings.CutPrefix(cursor, "o_")
	if !ok {
		return 0, false
	}
	offset, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || offset < 0 {
		return 0, false
	}
	return offset, true
}

// decodeCursor turns the boundary back into the keyset clause for the
// next page.
func decodeCursor(cursor, sortField string, sortDir int) (bson.M, bool) {
	parts := strings.Split(cursor, "_")
	if len(parts) != 2 {
		return nil, false
	}
	lastID, err := primitive.ObjectIDFromHex(parts[1])
	if err != nil {
		return nil, false
	}

	var boundary interface{}
	if sortField == "created_at" {
		ms, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil, false
		}
		boundary = time.UnixMilli(ms)
	} else {
		val, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, false
		}
		boundary = val
	}
	cmp := "$lt"
	if sortDir > 0 {
		cmp = "$gt"
	}
	return bson.M{"$or": bson.A{
		bson.M{sortField: boundary, "_id": bson.M{"$lt": lastID}},
		bson.M{sortField: bson.M{cmp: boundary}},
	}}, true
}
