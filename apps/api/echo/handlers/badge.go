package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/Rutik-tetare29/Campushub-sub001/apps/api/echo/helpers"
	"github.com/Rutik-tetare29/Campushub-sub001/core"
	"github.com/Rutik-tetare29/Campushub-sub001/core/badge"
	"github.com/Rutik-tetare29/Campushub-sub001/core/user"
)

type badgeApi struct {
	service  *badge.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func RegisterBadgeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *badge.Service, usrSvc *user.Service, validate *validator.Validate) {
	api := badgeApi{service: svc, usrSvc: usrSvc, validate: validate}

	bg := g.Group("/badges")

	// gate scanners verify without a session token
	bg.POST("/verify", api.badgeVerify)

	ag := bg.Group("", jwt)
	ag.POST("", api.badgeIssue, helpers.AdminMiddleware())
	ag.POST("/batch", api.badgeIssueBatch, helpers.AdminMiddleware())
	ag.GET("/:personID", api.badgeRetrieve)
	ag.GET("/:personID/qr", api.badgeQR)
}

// Handlers

func (api *badgeApi) badgeIssue(ctx echo.Context) error {
	data := new(IssueBadgeRequest)
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

	b, err := api.service.Issue(ctx.Request().Context(), data.PersonID, ctxUsr.ID, data.validFor())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *badgeApi) badgeIssueBatch(ctx echo.Context) error {
	data := new(IssueBadgeBatchRequest)
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

	results := api.service.IssueBatch(ctx.Request().Context(), data.PersonIDs, ctxUsr.ID, data.validFor())
	resp := make([]BatchResultResponse, 0, len(results))
	for _, res := range results {
		r := BatchResultResponse{PersonID: res.PersonID, Badge: res.Badge}
		if res.Err != nil {
			r.Error = res.Err.Error()
		}
		resp = append(resp, r)
	}
	return ctx.JSON(http.StatusMultiStatus, resp)
}

func (api *badgeApi) badgeVerify(ctx echo.Context) error {
	data := new(VerifyBadgeRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	v, err := api.service.Verify(data.Token)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *badgeApi) badgeRetrieve(ctx echo.Context) error {
	b, err := api.getBadgeForContext(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, b)
}

// badgeQR renders the person's badge token as a printable PNG.
func (api *badgeApi) badgeQR(ctx echo.Context) error {
	b, err := api.getBadgeForContext(ctx)
	if err != nil {
		return err
	}

	png, err := qrcode.Encode(b.Token, qrcode.Medium, qrSize)
	if err != nil {
		return err
	}
	return ctx.Blob(http.StatusOK, "image/png", png)
}

// getBadgeForContext fetches the badge at :personID; non-admins only get
// their own.
func (api *badgeApi) getBadgeForContext(ctx echo.Context) (badge.Badge, error) {
	ctxUsr, err := helpers.GetContextUser(ctx, api.usrSvc)
	if err != nil {
		return badge.Badge{}, err
	}

	personID := ctx.Param("personID")
	if personID != ctxUsr.ID && !ctxUsr.IsAdmin() {
		return badge.Badge{}, helpers.ErrHttpForbidden
	}
	return api.service.GetByPersonID(ctx.Request().Context(), personID)
}

type (
	IssueBadgeRequest struct {
		PersonID  string `json:"person_id" validate:"required"`
		ValidDays int    `json:"valid_days" validate:"omitempty,min=1"`
	}

	IssueBadgeBatchRequest struct {
		PersonIDs []string `json:"person_ids" validate:"required,min=1"`
		ValidDays int      `json:"valid_days" validate:"omitempty,min=1"`
	}

	VerifyBadgeRequest struct {
		Token string `json:"token" validate:"required"`
	}

	BatchResultResponse struct {
		PersonID string       `json:"person_id"`
		Badge    *badge.Badge `json:"badge,omitempty"`
		Error    string       `json:"error,omitempty"`
	}
)

func (ir *IssueBadgeRequest) Validate(validate *validator.Validate) error {
	ir.PersonID = core.CleanString(ir.PersonID)
	return validate.Struct(ir)
}

func (ir IssueBadgeRequest) validFor() time.Duration {
	return time.Duration(ir.ValidDays) * 24 * time.Hour
}

func (ir *IssueBadgeBatchRequest) Validate(validate *validator.Validate) error {
	for i, pid := range ir.PersonIDs {
		ir.PersonIDs[i] = core.CleanString(pid)
	}
	return validate.Struct(ir)
}

func (ir IssueBadgeBatchRequest) validFor() time.Duration {
	return time.Duration(ir.ValidDays) * 24 * time.Hour
}

func (vr *VerifyBadgeRequest) Validate(validate *validator.Validate) error {
	vr.Token = core.CleanString(vr.Token)
	return validate.Struct(vr)
}
