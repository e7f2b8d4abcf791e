package server

import (
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/nutrilog/internal/backup"
	"github.com/julianstephens/nutrilog/internal/constants"
	"github.com/julianstephens/nutrilog/internal/errors"
	"github.com/julianstephens/nutrilog/internal/importer"
	"github.com/julianstephens/nutrilog/internal/models"
	"github.com/julianstephens/nutrilog/internal/nutrition"
)

// health returns the health status of the API
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": constants.AppName,
		"version": constants.Version,
	})
}

func (s *Server) listLibrary(c *gin.Context) {
	var (
		entries []models.LibraryEntry
		err     error
	)
	if q, ok := c.GetQuery("q"); ok {
		caseSensitive := c.Query("case_sensitive") == "true"
		entries, err = s.store.SearchLibraryEntries(q, !caseSensitive)
	} else {
		entries, err = s.store.ListLibraryEntries()
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": nonNil(entries), "count": len(entries)})
}

func (s *Server) getLibraryEntry(c *gin.Context) {
	entry, err := s.store.GetLibraryEntry(c.Param("name"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) putLibraryEntry(c *gin.Context) {
	var per100g models.Nutrients
	if err := c.ShouldBindJSON(&per100g); err != nil {
		abortWithError(c, errors.Invalid("body", "%v", err))
		return
	}
	if per100g.SchemaVersion == 0 {
		per100g.SchemaVersion = models.CurrentSchema
	}

	entry := models.LibraryEntry{FoodName: c.Param("name"), Per100g: per100g}
	if err := s.store.UpsertLibraryEntry(entry); err != nil {
		abortWithError(c, err)
		return
	}
	// Sugar is not stored for schema version 1
	entry.Per100g = entry.Per100g.Normalized()
	c.JSON(http.StatusOK, entry)
}

// importLibrary accepts the CSV as a multipart "file" field or as the raw body.
// Column overrides come from query parameters named like the config keys.
func (s *Server) importLibrary(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	cols, err := s.importColumns(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			abortWithError(c, err)
			return
		}
		if err != nil {
			abortWithError(c, errors.Invalid("file", "multipart upload needs a \"file\" field: %v", err))
			return
		}
		f, err := fh.Open()
		if err != nil {
			abortWithError(c, err)
			return
		}
		defer f.Close()
		body = f
	}

	s.backup(backup.ReasonImport)
	res, err := importer.Import(body, cols, s.store)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if res.Errors == nil {
		res.Errors = []string{}
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) importColumns(c *gin.Context) (importer.ColumnMap, error) {
	cols := s.columns
	overrides := []struct {
		key string
		dst *int
	}{
		{"name", &cols.Name},
		{"calories", &cols.Calories},
		{"fat", &cols.Fat},
		{"carbs", &cols.Carbs},
		{"sugar", &cols.Sugar},
		{"protein", &cols.Protein},
	}
	for _, o := range overrides {
		raw := c.Query(o.key)
		if raw == "" {
			continue
		}
		idx, err := importer.ParseColumn(raw)
		if err != nil {
			return importer.ColumnMap{}, err
		}
		*o.dst = idx
	}
	return cols, cols.Validate()
}

func (s *Server) listLog(c *gin.Context) {
	var (
		entries []models.LogEntry
		err     error
	)
	if date := c.Query("date"); date != "" {
		entries, err = s.store.GetLogEntriesByDate(date)
	} else {
		entries, err = s.store.GetAllLogEntries()
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": nonNil(entries), "count": len(entries)})
}

// appendLogRequest is either a manual entry (Nutrients) or a library serving
// (FromLibrary and Grams). Empty date means today, empty meal the configured default.
type appendLogRequest struct {
	Date        string            `json:"date"`
	MealType    string            `json:"meal_type"`
	FoodName    string            `json:"food_name"`
	Nutrients   *models.Nutrients `json:"nutrients"`
	FromLibrary string            `json:"from_library"`
	Grams       float64           `json:"grams"`
}

func (s *Server) appendLog(c *gin.Context) {
	var req appendLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.Invalid("body", "%v", err))
		return
	}

	draft, err := s.draftFrom(req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	entry, err := s.store.AppendLogEntry(draft)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) draftFrom(req appendLogRequest) (models.LogEntryDraft, error) {
	date := req.Date
	if date == "" {
		date = s.now().Format(constants.DateFormat)
	}
	mealName := req.MealType
	if mealName == "" {
		mealName = s.meal
	}
	meal, err := models.ParseMealType(mealName)
	if err != nil {
		return models.LogEntryDraft{}, err
	}

	if req.FromLibrary != "" {
		if req.Nutrients != nil {
			return models.LogEntryDraft{}, errors.Invalid("nutrients", "must be omitted with from_library")
		}
		entry, err := s.store.GetLibraryEntry(req.FromLibrary)
		if err != nil {
			return models.LogEntryDraft{}, err
		}
		return nutrition.ServingFromLibrary(entry, req.Grams, date, meal)
	}

	if req.Nutrients == nil {
		return models.LogEntryDraft{}, errors.Invalid("nutrients", "are required without from_library")
	}
	n := *req.Nutrients
	if n.SchemaVersion == 0 {
		n.SchemaVersion = models.CurrentSchema
	}
	return models.LogEntryDraft{
		Date:      date,
		MealType:  meal,
		FoodName:  strings.TrimSpace(req.FoodName),
		Nutrients: n,
	}, nil
}

func (s *Server) deleteLogEntry(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortWithError(c, errors.Invalid("id", "%q is not a log entry id", c.Param("id")))
		return
	}
	if err := s.store.DeleteLogEntry(id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteLogByDate(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		abortWithError(c, errors.Invalid("date", "query parameter is required"))
		return
	}
	if err := models.ValidateDate(date); err != nil {
		abortWithError(c, err)
		return
	}

	s.backup(backup.ReasonDeleteDay)
	n, err := s.store.DeleteLogEntriesByDate(date)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "deleted": n})
}

func (s *Server) deleteLatestLog(c *gin.Context) {
	entry, ok, err := s.store.DeleteMostRecentLogEntry()
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"deleted": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": entry})
}

func (s *Server) listDates(c *gin.Context) {
	dates, err := s.store.GetLogDates()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dates": nonNil(dates)})
}

func (s *Server) daySummary(c *gin.Context) {
	date := c.Param("date")
	if date == "today" {
		date = s.now().Format(constants.DateFormat)
	}
	if err := models.ValidateDate(date); err != nil {
		abortWithError(c, err)
		return
	}

	entries, err := s.store.GetLogEntriesByDate(date)
	if err != nil {
		abortWithError(c, err)
		return
	}
	summary := nutrition.Summarize(date, entries)
	if summary.Meals == nil {
		summary.Meals = []nutrition.MealTotal{}
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) lookupProduct(c *gin.Context) {
	if s.lookup == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "product lookup is disabled"})
		return
	}
	product, err := s.lookup.Lookup(c.Request.Context(), c.Param("upc"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
