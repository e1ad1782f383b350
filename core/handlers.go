package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const uploadField = "calendar"

// multipartSlack covers the multipart framing around a maximum-size image.
const multipartSlack = 1 << 20

// CalendarGateway is the calendar collaborator behind the placeholder
// endpoints. It never has to reach a real calendar.
type CalendarGateway interface {
	AuthCodeURL(state string) string
	Prepare(ctx context.Context, events []CalendarEvent) (int, error)
}

type Handlers interface {
	AnalyzeCalendar(gctx *gin.Context)
	GetAnalysis(gctx *gin.Context)
	Health(gctx *gin.Context)
	Status(gctx *gin.Context)
	AuthGoogle(gctx *gin.Context)
	AuthCallback(gctx *gin.Context)
	AddEvents(gctx *gin.Context)
}

type BuildInfo struct {
	Version   string
	HasAPIKey bool
}

type handlers struct {
	analyzer Analyzer
	gateway  CalendarGateway
	info     BuildInfo
}

func NewHandlers(analyzer Analyzer, gateway CalendarGateway, info BuildInfo) Handlers {
	return &handlers{analyzer: analyzer, gateway: gateway, info: info}
}

func (h *handlers) AnalyzeCalendar(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	gctx.Request.Body = http.MaxBytesReader(gctx.Writer, gctx.Request.Body, MaxImageBytes+multipartSlack)

	// Multipart parts spilled to disk are removed before the response is sent.
	fileHeader, err := gctx.FormFile(uploadField)
	if form := gctx.Request.MultipartForm; form != nil {
		defer func() {
			rmErr := form.RemoveAll()
			if rmErr != nil {
				log.Ctx(ctx).Error().Err(rmErr).Msg("failed to remove staged upload")
			}
		}()
	}

	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			log.Ctx(ctx).Info().Err(err).Msg("upload too large")
			gctx.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, NewError(ErrImageTooLarge.Error()))

			return
		}

		log.Ctx(ctx).Info().Err(err).Msg("no image in request")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError(ErrNoImage.Error(), err))

		return
	}

	// Checks the declared size before reading anything
	if fileHeader.Size > MaxImageBytes {
		log.Ctx(ctx).Info().Int64("size", fileHeader.Size).Msg("upload too large")
		gctx.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, NewError(ErrImageTooLarge.Error()))

		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to open upload")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("failed to read image", err))

		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to read upload")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("failed to read image", err))

		return
	}

	err = CheckDeclaredType(fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		log.Ctx(ctx).Info().Str("file", fileHeader.Filename).Msg("upload is not an image")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError(err.Error()))

		return
	}

	log.Ctx(ctx).Info().Str("file", fileHeader.Filename).Int("size", len(data)).Msg("analyzing calendar image")

	result, err := h.analyzer.Analyze(ctx, Image{Data: data, FileName: fileHeader.Filename})
	if err != nil {
		status, body := errorResponse(err)
		gctx.AbortWithStatusJSON(status, body)

		return
	}

	gctx.JSON(http.StatusOK, result)
}

func errorResponse(err error) (int, *Error) {
	var perr *ParseError

	switch {
	case errors.As(err, &perr):
		return http.StatusUnprocessableEntity, NewError(ErrParseFailure.Error(), err).WithRawResponse(perr.Raw)
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway, NewError("failed to analyze calendar image", err)
	case errors.Is(err, ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, NewError(err.Error())
	case errors.Is(err, ErrNoImage), errors.Is(err, ErrNotImage):
		return http.StatusBadRequest, NewError(err.Error())
	default:
		return http.StatusInternalServerError, NewError("failed to analyze calendar image", err)
	}
}

func (h *handlers) GetAnalysis(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	id := gctx.Param("id")

	err := uuid.Validate(id)
	if err != nil {
		log.Ctx(ctx).Info().Str("id", id).Msg("invalid analysis id")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("parameter 'id' must be a uuid", err))

		return
	}

	analysis, err := h.analyzer.GetAnalysis(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAnalysisNotFound) {
			log.Ctx(ctx).Info().Str("id", id).Msg("analysis not found")
			gctx.AbortWithStatusJSON(http.StatusNotFound, NewError("analysis not found", err))

			return
		}

		log.Ctx(ctx).Error().Err(err).Msg("getting analysis failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("getting analysis failed", err))

		return
	}

	gctx.JSON(http.StatusOK, analysis)
}

func (h *handlers) Health(gctx *gin.Context) {
	gctx.JSON(http.StatusOK, gin.H{
		"status":          "OK",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"hasAnthropicKey": h.info.HasAPIKey,
	})
}

func (h *handlers) Status(gctx *gin.Context) {
	gctx.JSON(http.StatusOK, gin.H{
		"status":    "running",
		"message":   "Calendar Photo Converter server is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.info.Version,
	})
}

func (h *handlers) AuthGoogle(gctx *gin.Context) {
	state := uuid.NewString()

	gctx.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "open authUrl to grant calendar access",
		"authUrl": h.gateway.AuthCodeURL(state),
		"state":   state,
	})
}

func (h *handlers) AuthCallback(gctx *gin.Context) {
	code := "missing"
	if gctx.Query("code") != "" {
		code = "received"
	}

	gctx.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "OAuth callback processed",
		"code":    code,
	})
}

type addEventsRequest struct {
	Events []CalendarEvent `json:"events"`
}

func (h *handlers) AddEvents(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req addEventsRequest

	err := gctx.ShouldBindJSON(&req)
	if err != nil || req.Events == nil {
		log.Ctx(ctx).Info().Err(err).Msg("invalid events data")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("Invalid events data", err))

		return
	}

	for i, event := range req.Events {
		err = ValidateEvent(event)
		if err != nil {
			log.Ctx(ctx).Info().Err(err).Int("index", i).Msg("event validation failed")
			gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError(fmt.Sprintf("event %d validation failed", i), err))

			return
		}
	}

	added, err := h.gateway.Prepare(ctx, req.Events)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("preparing calendar events failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("preparing calendar events failed", err))

		return
	}

	gctx.JSON(http.StatusOK, gin.H{
		"status":       "success",
		"message":      fmt.Sprintf("Successfully added %d events to calendar", added),
		"events_added": added,
	})
}
