package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rmarban/approvio/core/project"
	"github.com/rmarban/approvio/core/user"
)

type projectApi struct {
	svc    *project.Service
	usrSvc *user.Service
}

func registerProjectAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *project.Service, usrSvc *user.Service) {
	api := projectApi{svc: svc, usrSvc: usrSvc}

	pg := g.Group("/projects", jwt)
	pg.POST("", api.create)
	pg.GET("", api.query)
	pg.GET("/:id", api.retrieve)
	pg.GET("/:id/stages", api.stages)
	pg.GET("/:id/requirements", api.requirements)
	pg.POST("/:id/documents", api.uploadDocument)
	pg.PUT("/:id/requirements", api.reviewRequirement, adminMiddleware())
	pg.POST("/:id/stages/:stage/approve-all", api.approveStage, adminMiddleware())
	pg.PUT("/:id/stages/:stage", api.setStageStatus, adminMiddleware())
	pg.PUT("/:id/status", api.setStatus, adminMiddleware())

	dg := g.Group("/documents", jwt)
	dg.GET("/:id", api.downloadDocument)
	dg.DELETE("/:id", api.deleteDocument)
}

// canRead reports whether the user may see the project at all. Owners see
// their own; teachers and admins see everything.
func canRead(usr user.User, p project.Project) bool {
	return usr.IsAdmin() || usr.IsTeacher() || p.OwnerID == usr.ID
}

func (api *projectApi) getReadableProject(ctx echo.Context) (project.Project, user.User, error) {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return project.Project{}, user.User{}, errors.Wrap(err, "getting context user")
	}
	p, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return project.Project{}, user.User{}, err
	}
	if !canRead(usr, p) {
		return project.Project{}, user.User{}, errHttpForbidden
	}
	return p, usr, nil
}

// Handlers

func (api *projectApi) create(ctx echo.Context) error {
	var data project.NewProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProject")
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	p, err := api.svc.Create(ctx.Request().Context(), data, usr)
	if err != nil {
		return errors.Wrap(err, "creating project")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *projectApi) query(ctx echo.Context) error {
	filter := new(project.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []project.Project{})
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	// students only ever see their own projects
	if !usr.IsAdmin() && !usr.IsTeacher() {
		filter.OwnerID = usr.ID
	}

	projects, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying projects")
	}
	if projects == nil {
		projects = []project.Project{}
	}
	return ctx.JSON(http.StatusOK, projects)
}

func (api *projectApi) retrieve(ctx echo.Context) error {
	p, _, err := api.getReadableProject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *projectApi) stages(ctx echo.Context) error {
	p, _, err := api.getReadableProject(ctx)
	if err != nil {
		return err
	}
	records, err := api.svc.StageRecords(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "querying stage records")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *projectApi) requirements(ctx echo.Context) error {
	p, _, err := api.getReadableProject(ctx)
	if err != nil {
		return err
	}
	items, err := api.svc.ListRequirements(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "listing requirements")
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *projectApi) uploadDocument(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	fileHdr, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file")
	}
	file, err := fileHdr.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	in := project.UploadInput{
		ProjectID:     ctx.Param("id"),
		Stage:         project.Stage(ctx.FormValue("stage")),
		RequirementID: ctx.FormValue("requirement_id"),
		FileName:      fileHdr.Filename,
		ContentType:   fileHdr.Header.Get("Content-Type"),
		Size:          fileHdr.Size,
	}

	res, err := api.svc.UploadDocument(ctx.Request().Context(), in, file, usr)
	if err != nil {
		return errors.Wrap(err, "uploading document")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *projectApi) reviewRequirement(ctx echo.Context) error {
	var data project.ReviewInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewInput")
	}
	data.ProjectID = ctx.Param("id")

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	val, err := api.svc.SetRequirementStatus(ctx.Request().Context(), data, usr)
	if err != nil {
		return errors.Wrap(err, "reviewing requirement")
	}
	return ctx.JSON(http.StatusOK, val)
}

func (api *projectApi) approveStage(ctx echo.Context) error {
	var data struct {
		Comments string `json:"comments"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding comments")
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	stage := project.Stage(ctx.Param("stage"))
	if !stage.IsValid() {
		return errHttpNotFound
	}
	if err = api.svc.ApproveAllInStage(ctx.Request().Context(), ctx.Param("id"), stage, data.Comments, usr); err != nil {
		return errors.Wrap(err, "approving stage")
	}

	records, err := api.svc.StageRecords(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying stage records")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *projectApi) setStageStatus(ctx echo.Context) error {
	var data project.StageStatusInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StageStatusInput")
	}
	data.ProjectID = ctx.Param("id")
	data.Stage = project.Stage(ctx.Param("stage"))
	if !data.Stage.IsValid() {
		return errHttpNotFound
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rec, err := api.svc.SetStageStatus(ctx.Request().Context(), data, usr)
	if err != nil {
		return errors.Wrap(err, "setting stage status")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *projectApi) setStatus(ctx echo.Context) error {
	var data struct {
		Status project.ProjectStatus `json:"status"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding status")
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	p, err := api.svc.SetProjectStatus(ctx.Request().Context(), ctx.Param("id"), data.Status, usr)
	if err != nil {
		return errors.Wrap(err, "setting project status")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *projectApi) downloadDocument(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	doc, rc, err := api.svc.OpenDocument(ctx.Request().Context(), ctx.Param("id"), usr)
	if err != nil {
		return errors.Wrap(err, "opening document")
	}
	defer rc.Close()

	ct := doc.ContentType
	if ct == "" {
		ct = echo.MIMEOctetStream
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.OriginalName))
	return ctx.Stream(http.StatusOK, ct, rc)
}

func (api *projectApi) deleteDocument(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.DeleteDocument(ctx.Request().Context(), ctx.Param("id"), usr); err != nil {
		return errors.Wrap(err, "deleting document")
	}
	return ctx.NoContent(http.StatusNoContent)
}
