package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/storage"
)

type listResponse struct {
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
	Jobs   []jobs.Record `json:"jobs"`
}

// listJobs handles GET /v1/jobs?search=&source=&company=&city=&region=&sector=
// &contract_type=&limit=&offset=. It returns 400 for invalid paging and 500
// when the store fails.
func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := s.jobs.Query(r.Context(), q)
	if err != nil {
		s.logger.Error("list jobs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	if page.Jobs == nil {
		page.Jobs = []jobs.Record{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Total:  page.Total,
		Limit:  q.Limit,
		Offset: q.Offset,
		Jobs:   page.Jobs,
	})
}

func parseQuery(r *http.Request) (storage.Query, error) {
	v := r.URL.Query()
	q := storage.Query{
		Search:       v.Get("search"),
		Source:       v.Get("source"),
		Company:      v.Get("company"),
		City:         v.Get("city"),
		Region:       v.Get("region"),
		Sector:       v.Get("sector"),
		ContractType: v.Get("contract_type"),
	}
	if q.Source != "" {
		src, err := jobs.ParseSource(q.Source)
		if err != nil {
			return storage.Query{}, err
		}
		q.Source = string(src)
	}
	limit, offset, err := parseLimitOffset(r, storage.DefaultLimit, storage.MaxLimit)
	if err != nil {
		return storage.Query{}, err
	}
	q.Limit, q.Offset = limit, offset
	q = q.Normalize()
	return q, q.Validate()
}

// parseLimitOffset rejects limits outside 1..maxLimit and negative offsets.
func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if limStr := strings.TrimSpace(q.Get("limit")); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 || val > maxLimit {
			return 0, 0, errors.New("limit must be between 1 and " + strconv.Itoa(maxLimit))
		}
		limit = val
	}
	offset := 0
	if offStr := strings.TrimSpace(q.Get("offset")); offStr != "" {
		val, err := strconv.Atoi(offStr)
		if err != nil || val < 0 {
			return 0, 0, errors.New("offset must be >= 0")
		}
		offset = val
	}
	return limit, offset, nil
}
