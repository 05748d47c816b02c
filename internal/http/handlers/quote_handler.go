// Quote HTTP handlers.
//
//   - GET  /quotes/random  one stored quote, 404 when the store is empty
//   - POST /quotes/create  store a new quote, 409 when its text is already stored
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/quote-broadcaster/internal/http/middleware"
	"github.com/tbourn/quote-broadcaster/internal/services"
)

// CreateQuoteRequest is the JSON payload for POST /quotes/create.
type CreateQuoteRequest struct {
	Text      string `json:"text"`
	Author    string `json:"author"`
	Reference string `json:"reference"`
}

// RandomQuote godoc
// @ID          randomQuote
// @Summary     Get a random quote
// @Description Returns one stored quote chosen uniformly at random, with its author.
// @Tags        Quotes
// @Produce     json
// @Param       api-key  header  string  true  "Store API key"
// @Success     200  {object}  domain.Quote          "Random quote"
// @Failure     401  {object}  handlers.ErrorResponse "Missing or invalid api-key"
// @Failure     404  {object}  handlers.ErrorResponse "Store is empty"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /quotes/random [get]
func (h *Handlers) RandomQuote(c *gin.Context) {
	q, err := h.quoteSvc.Random(c.Request.Context())
	switch {
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no quotes stored")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, q)
}

// CreateQuote godoc
// @ID          createQuote
// @Summary     Store a quote
// @Description Stores a quote unless its normalized text is already stored.
// @Description The author is created on first use.
// @Tags        Quotes
// @Accept      json
// @Produce     json
// @Param       api-key  header  string                       true  "Store API key"
// @Param       body     body    handlers.CreateQuoteRequest  true  "Quote payload"
// @Success     200  {object}  domain.Quote          "Stored quote"
// @Failure     400  {object}  handlers.ErrorResponse "Malformed JSON"
// @Failure     401  {object}  handlers.ErrorResponse "Missing or invalid api-key"
// @Failure     409  {object}  handlers.ErrorResponse "Quote already stored"
// @Failure     422  {object}  handlers.ErrorResponse "Empty text or author"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /quotes/create [post]
func (h *Handlers) CreateQuote(c *gin.Context) {
	var req CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	q, err := h.quoteSvc.Submit(c.Request.Context(), req.Text, req.Author, req.Reference)
	switch {
	case errors.Is(err, services.ErrAlreadyExists):
		fail(c, http.StatusConflict, ErrCodeConflict, "quote already exists")
		return
	case errors.Is(err, services.ErrEmptyText), errors.Is(err, services.ErrEmptyAuthor):
		fail(c, http.StatusUnprocessableEntity, ErrCodeUnprocessable, err.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	middleware.LoggerFrom(c).Info().
		Uint("quote_id", q.ID).
		Str("author", q.Author.Name).
		Msg("quote stored")
	ok(c, http.StatusOK, q)
}
