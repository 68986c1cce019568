package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/maktab/core/catalog"
)

type catalogApi struct {
	svc      catalog.Service
	validate *validator.Validate
}

func registerCatalogAPI(g *echo.Group, svc catalog.Service, validate *validator.Validate) {
	api := catalogApi{svc: svc, validate: validate}

	g.GET("/grades", api.queryGrades)
	g.POST("/grades", api.createGrade)
	g.GET("/grades/:id", api.retrieveGrade)
	g.PUT("/grades/:id", api.updateGrade)
	g.DELETE("/grades/:id", api.destroyGrade)

	// GET /subjects/:id lists the subjects of grade :id
	g.GET("/subjects", api.querySubjects)
	g.POST("/subjects", api.createSubject)
	g.GET("/subjects/:id", api.querySubjects)
	g.PUT("/subjects/:id", api.updateSubject)
	g.DELETE("/subjects/:id", api.destroySubject)
	g.GET("/subject/:id", api.retrieveSubject)
	g.GET("/subject/:id/grade", api.retrieveParentGrade)

	// GET /topics/:id lists the topics of subject :id
	g.POST("/topics", api.createTopic)
	g.GET("/topics/:id", api.queryTopics)
	g.PUT("/topics/:id", api.updateTopic)
	g.DELETE("/topics/:id", api.destroyTopic)
	g.GET("/topic/:id", api.retrieveTopic)
}

// Grades

func (api *catalogApi) queryGrades(ctx echo.Context) error {
	grades, err := api.svc.QueryGrades(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *catalogApi) createGrade(ctx echo.Context) error {
	var data catalog.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grade, err := api.svc.CreateGrade(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating grade")
	}
	return ctx.JSON(http.StatusCreated, grade)
}

func (api *catalogApi) retrieveGrade(ctx echo.Context) error {
	grade, err := api.svc.GetGrade(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting grade")
	}
	return ctx.JSON(http.StatusOK, grade)
}

func (api *catalogApi) updateGrade(ctx echo.Context) error {
	var data catalog.UpdateGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grade, err := api.svc.UpdateGrade(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating grade")
	}
	return ctx.JSON(http.StatusOK, grade)
}

func (api *catalogApi) destroyGrade(ctx echo.Context) error {
	if err := api.svc.DeleteGrade(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.JSON(http.StatusOK, successResponse{Success: true})
}

// Subjects

func (api *catalogApi) querySubjects(ctx echo.Context) error {
	subjects, err := api.svc.QuerySubjects(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *catalogApi) createSubject(ctx echo.Context) error {
	var data catalog.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	subject, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, subject)
}

func (api *catalogApi) retrieveSubject(ctx echo.Context) error {
	subject, err := api.svc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}
	return ctx.JSON(http.StatusOK, subject)
}

func (api *catalogApi) retrieveParentGrade(ctx echo.Context) error {
	grade, err := api.svc.ParentGrade(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting parent grade")
	}
	return ctx.JSON(http.StatusOK, grade)
}

func (api *catalogApi) updateSubject(ctx echo.Context) error {
	orig, err := api.svc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}

	var data catalog.UpdateSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	if err = data.Validate(orig, api.validate); err != nil {
		return err
	}

	subject, err := api.svc.UpdateSubject(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, subject)
}

func (api *catalogApi) destroySubject(ctx echo.Context) error {
	if err := api.svc.DeleteSubject(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.JSON(http.StatusOK, successResponse{Success: true})
}

// Topics

func (api *catalogApi) queryTopics(ctx echo.Context) error {
	filter := catalog.TopicFilter{SubjectID: ctx.Param("id"), Search: ctx.QueryParam("search")}
	topics, err := api.svc.QueryTopics(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying topics")
	}
	return ctx.JSON(http.StatusOK, topics)
}

func (api *catalogApi) createTopic(ctx echo.Context) error {
	var data catalog.NewTopic
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTopic")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	topic, err := api.svc.CreateTopic(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating topic")
	}
	return ctx.JSON(http.StatusCreated, topic)
}

func (api *catalogApi) retrieveTopic(ctx echo.Context) error {
	topic, err := api.svc.GetTopic(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting topic")
	}
	return ctx.JSON(http.StatusOK, topic)
}

func (api *catalogApi) updateTopic(ctx echo.Context) error {
	orig, err := api.svc.GetTopic(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting topic")
	}

	var data catalog.UpdateTopic
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTopic")
	}
	if err = data.Validate(orig, api.validate); err != nil {
		return err
	}

	topic, err := api.svc.UpdateTopic(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating topic")
	}
	return ctx.JSON(http.StatusOK, topic)
}

func (api *catalogApi) destroyTopic(ctx echo.Context) error {
	if err := api.svc.DeleteTopic(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting topic")
	}
	return ctx.JSON(http.StatusOK, successResponse{Success: true})
}
