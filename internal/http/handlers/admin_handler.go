// Admin HTTP handlers.
//
// Operator endpoints over the quota ledger and the result cache:
//   - GET    /quota/{user_id}   (budget snapshot, never reserves)
//   - GET    /results           (list, paginated, ETag support)
//   - GET    /results/{vin}     (one cached result)
//   - DELETE /results/{vin}     (evict, next request fetches again)
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-vin-sticker-bot/internal/domain"
	"github.com/tbourn/go-vin-sticker-bot/internal/repo"
	"github.com/tbourn/go-vin-sticker-bot/internal/services"
	"github.com/tbourn/go-vin-sticker-bot/internal/utils"
)

// AdminService defines the operations consumed by the admin handlers.
// Implementations must be safe for concurrent use.
type AdminService interface {
	QuotaStatus(userID int64) (services.QuotaStatus, error)
	ListPage(ctx context.Context, page, pageSize int) ([]domain.ResultRecord, int64, error)
	Get(ctx context.Context, vin string) (*domain.ResultRecord, error)
	Evict(ctx context.Context, vin string) error
}

// Handlers groups the admin endpoints.
type Handlers struct {
	admin AdminService
}

// New constructs Handlers bound to admin.
func New(admin AdminService) *Handlers {
	return &Handlers{admin: admin}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListResultsResponse wraps a page of cached results.
type ListResultsResponse struct {
	Results    []domain.ResultRecord `json:"results"`
	Pagination Pagination            `json:"pagination"`
}

// clampPagination bounds page >= 1 and 1 <= page_size <= 100 (default 20).
func clampPagination(c *gin.Context) utils.Page {
	return utils.ParsePage(c.Query("page"), c.Query("page_size"))
}

// GetQuota godoc
// @ID          getQuota
// @Summary     Quota status of a user
// @Description Returns the daily limit, remaining requests and, when the user is at the limit, the time the next slot frees. Never reserves.
// @Tags        Quota
// @Produce     json
// @Security    ApiKeyAuth
// @Param       user_id  path  int  true  "Telegram user id"  minimum(1) example(123456789)
// @Success     200  {object}  services.QuotaStatus
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing API key"
// @Router      /quota/{user_id} [get]
func (h *Handlers) GetQuota(c *gin.Context) {
	uid, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidUserID, "user id must be a positive integer")
		return
	}
	st, err := h.admin.QuotaStatus(uid)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// ListResults godoc
// @ID          listResults
// @Summary     List cached results (paginated)
// @Description Returns cached VIN results, newest first. Supports weak ETag via If-None-Match. Only available on the SQLite backend.
// @Tags        Results
// @Produce     json
// @Security    ApiKeyAuth
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"results:3:1717243200\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ListResultsResponse
// @Header      200  {string} ETag "Weak ETag for current result set"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Failure     501  {object} handlers.ErrorResponse "Listing not supported by the backend"
// @Router      /results [get]
func (h *Handlers) ListResults(c *gin.Context) {
	ctx := c.Request.Context()
	pg := clampPagination(c)
	page, pageSize := pg.Number, pg.Size

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.admin.(*services.AdminService); ok && svc.Repo != nil {
		db = svc.DB
	}
	if db != nil {
		if count, maxTS, err := repo.ResultsStats(ctx, db); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"results:%d:%d:%d:%d"`, count, ts, page, pageSize)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.admin.ListPage(ctx, page, pageSize)
	if err != nil {
		failFor(c, err)
		return
	}

	totalPages := pg.TotalPages(total)
	ok(c, http.StatusOK, ListResultsResponse{
		Results: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetResult godoc
// @ID          getResult
// @Summary     Get the cached result for a VIN
// @Tags        Results
// @Produce     json
// @Security    ApiKeyAuth
// @Param       vin  path  string  true  "VIN (case-insensitive)"  example(ZARFANBN5K7612345)
// @Success     200  {object}  domain.ResultRecord
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid VIN"
// @Failure     404  {object}  handlers.ErrorResponse  "No cached result"
// @Failure     503  {object}  handlers.ErrorResponse  "Cache unavailable"
// @Router      /results/{vin} [get]
func (h *Handlers) GetResult(c *gin.Context) {
	rec, err := h.admin.Get(c.Request.Context(), c.Param("vin"))
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusOK, rec)
}

// DeleteResult godoc
// @ID          deleteResult
// @Summary     Evict the cached result for a VIN
// @Description Idempotent: evicting a VIN without a cached result also returns 204.
// @Tags        Results
// @Security    ApiKeyAuth
// @Param       vin  path  string  true  "VIN (case-insensitive)"  example(ZARFANBN5K7612345)
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid VIN"
// @Failure     503  {object}  handlers.ErrorResponse  "Cache unavailable"
// @Router      /results/{vin} [delete]
func (h *Handlers) DeleteResult(c *gin.Context) {
	if err := h.admin.Evict(c.Request.Context(), c.Param("vin")); err != nil {
		failFor(c, err)
		return
	}
	noContent(c)
}
