// Listener HTTP handlers.
//
//   - GET  /listeners/        page through listeners (ETag / If-None-Match)
//   - POST /listeners/create  register a phone number
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/quote-broadcaster/internal/http/middleware"
	"github.com/tbourn/quote-broadcaster/internal/services"
	"github.com/tbourn/quote-broadcaster/internal/utils"
)

// CreateListenerRequest is the JSON payload for POST /listeners/create.
type CreateListenerRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// pageParams reads page and page_size. Omitted values take the defaults;
// non-numeric or out-of-range values are an error.
func pageParams(c *gin.Context) (page, pageSize int, err error) {
	page, err = utils.ParseIntDefault(c.Query("page"), 1)
	if err != nil {
		return 0, 0, fmt.Errorf("page must be an integer")
	}
	pageSize, err = utils.ParseIntDefault(c.Query("page_size"), services.DefaultPageSize)
	if err != nil {
		return 0, 0, fmt.Errorf("page_size must be an integer")
	}
	if page < 1 {
		return 0, 0, fmt.Errorf("page must be >= 1")
	}
	if pageSize < 1 || pageSize > services.MaxPageSize {
		return 0, 0, fmt.Errorf("page_size must be between 1 and %d", services.MaxPageSize)
	}
	return page, pageSize, nil
}

// ListListeners godoc
// @ID          listListeners
// @Summary     List listeners
// @Description Returns one page of listeners ordered by ascending id.
// @Tags        Listeners
// @Produce     json
// @Param       api-key        header  string  true   "Store API key"
// @Param       If-None-Match  header  string  false  "ETag from a previous response"
// @Param       page           query   int     false  "1-based page"       minimum(1) default(1)
// @Param       page_size      query   int     false  "Records per page"   minimum(1) maximum(100) default(10)
// @Success     200  {object}  domain.PageResult     "Listener page"
// @Success     304  "Not modified"
// @Failure     401  {object}  handlers.ErrorResponse "Missing or invalid api-key"
// @Failure     422  {object}  handlers.ErrorResponse "Invalid page parameters"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /listeners/ [get]
//
// The weak ETag covers the collection state (count, max id) plus the page
// window, so an unchanged collection answers If-None-Match with 304.
func (h *Handlers) ListListeners(c *gin.Context) {
	ctx := c.Request.Context()

	page, pageSize, err := pageParams(c)
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, ErrCodeUnprocessable, err.Error())
		return
	}

	// Best effort: a stats failure only skips the conditional path.
	if count, maxID, err := h.listenerSvc.Stats(ctx); err == nil {
		etag := fmt.Sprintf(`W/"listeners:%d:%d:%d:%d"`, count, maxID, page, pageSize)
		if notModified(c, etag) {
			return
		}
	}

	res, err := h.listenerSvc.ListPage(ctx, page, pageSize)
	switch {
	case errors.Is(err, services.ErrInvalidPage):
		fail(c, http.StatusUnprocessableEntity, ErrCodeUnprocessable, err.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, res)
}

// CreateListener godoc
// @ID          createListener
// @Summary     Register a listener
// @Description Registers a phone number of 10 to 15 digits, stored exactly as given.
// @Tags        Listeners
// @Accept      json
// @Produce     json
// @Param       api-key  header  string                          true  "Store API key"
// @Param       body     body    handlers.CreateListenerRequest  true  "Listener payload"
// @Success     200  {object}  domain.Listener       "Registered listener"
// @Failure     400  {object}  handlers.ErrorResponse "Malformed JSON"
// @Failure     401  {object}  handlers.ErrorResponse "Missing or invalid api-key"
// @Failure     409  {object}  handlers.ErrorResponse "Number already registered"
// @Failure     422  {object}  handlers.ErrorResponse "Invalid phone number format"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /listeners/create [post]
func (h *Handlers) CreateListener(c *gin.Context) {
	var req CreateListenerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	l, err := h.listenerSvc.Submit(c.Request.Context(), req.PhoneNumber)
	switch {
	case errors.Is(err, services.ErrInvalidFormat):
		fail(c, http.StatusUnprocessableEntity, ErrCodeInvalidFormat, "phone_number must be 10 to 15 digits")
		return
	case errors.Is(err, services.ErrAlreadyExists):
		fail(c, http.StatusConflict, ErrCodeConflict, "listener already registered")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	middleware.LoggerFrom(c).Info().Uint("listener_id", l.ID).Msg("listener registered")
	ok(c, http.StatusOK, l)
}
