package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/Rutik-tetare29/Campushub-sub001/apps/api/echo/helpers"
	"github.com/Rutik-tetare29/Campushub-sub001/core"
	"github.com/Rutik-tetare29/Campushub-sub001/core/checkin"
	"github.com/Rutik-tetare29/Campushub-sub001/core/user"
)

const qrSize = 256 // px

type checkinApi struct {
	service  *checkin.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func RegisterCheckinAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *checkin.Service, usrSvc *user.Service, validate *validator.Validate) {
	api := checkinApi{service: svc, usrSvc: usrSvc, validate: validate}

	ag := g.Group("/attendance", jwt)

	// session registry; staff only
	sg := ag.Group("/sessions", helpers.StaffMiddleware())
	sg.POST("", api.sessionCreate)
	sg.GET("/:id", api.sessionRetrieve)
	sg.GET("/:id/qr", api.sessionQR)
	sg.DELETE("/:id", api.sessionEnd)

	// redemption; any authenticated user
	ag.POST("/scan", api.scan)

	// records
	ag.GET("/records", api.recordQuery)
	ag.POST("/records", api.recordCreate, helpers.StaffMiddleware())
}

// Handlers

func (api *checkinApi) sessionCreate(ctx echo.Context) error {
	data := new(checkin.NewSession)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	ctxUsr, err := helpers.GetContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	sess, err := api.service.CreateSession(ctx.Request().Context(), *data, ctxUsr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, newSessionResponse(sess))
}

func (api *checkinApi) sessionRetrieve(ctx echo.Context) error {
	sess, err := api.service.GetSessionByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newSessionResponse(sess))
}

// sessionQR renders the session token as a PNG for projection in class.
func (api *checkinApi) sessionQR(ctx echo.Context) error {
	sess, err := api.service.GetSessionByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	png, err := qrcode.Encode(sess.Token, qrcode.Medium, qrSize)
	if err != nil {
		return err
	}
	return ctx.Blob(http.StatusOK, "image/png", png)
}

func (api *checkinApi) sessionEnd(ctx echo.Context) error {
	ctxUsr, err := helpers.GetContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	if err := api.service.EndSession(ctx.Request().Context(), ctx.Param("id"), ctxUsr.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *checkinApi) scan(ctx echo.Context) error {
	data := new(ScanRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := helpers.GetContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	rec, err := api.service.Redeem(ctx.Request().Context(), data.Token, ctxUsr.ID, data.location())
	if err == checkin.ErrAlreadyCheckedIn {
		// idempotent outcome: report the committed record
		return ctx.JSON(http.StatusOK, ScanResponse{Record: rec, AlreadyCheckedIn: true})
	}
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, ScanResponse{Record: rec})
}

func (api *checkinApi) recordCreate(ctx echo.Context) error {
	data := new(checkin.NewRecord)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	ctxUsr, err := helpers.GetContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	rec, err := api.service.RecordManual(ctx.Request().Context(), *data, ctxUsr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *checkinApi) recordQuery(ctx echo.Context) error {
	filter := new(checkin.RecordFilter)
	if err := ctx.Bind(filter); err != nil {
		return err
	}

	ctxUsr, err := helpers.GetContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	// students only see their own records
	if !(ctxUsr.IsTeacher() || ctxUsr.IsAdmin()) {
		filter.StudentID = ctxUsr.ID
	}

	recs, err := api.service.FilterRecords(ctx.Request().Context(), *filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, recs)
}

type (
	// SessionResponse is a Session with its open state derived at read time,
	// so an expired session reads as closed even before any sweep flips
	// is_active.
	SessionResponse struct {
		checkin.Session
		Open bool `json:"open"`
	}

	ScanRequest struct {
		Token string   `json:"token" validate:"required"`
		Lat   *float64 `json:"lat" validate:"required_with=Lng,omitempty,latitude_deg"`
		Lng   *float64 `json:"lng" validate:"required_with=Lat,omitempty,longitude_deg"`
	}

	ScanResponse struct {
		Record           checkin.Record `json:"record"`
		AlreadyCheckedIn bool           `json:"already_checked_in,omitempty"`
	}
)

func newSessionResponse(sess checkin.Session) SessionResponse {
	return SessionResponse{Session: sess, Open: sess.Open(time.Now().UTC())}
}

func (sr *ScanRequest) Validate(validate *validator.Validate) error {
	sr.Token = core.CleanString(sr.Token)
	return validate.Struct(sr)
}

func (sr *ScanRequest) location() *checkin.Coordinate {
	if sr.Lat == nil || sr.Lng == nil {
		return nil
	}
	return &checkin.Coordinate{Lat: *sr.Lat, Lng: *sr.Lng}
}
