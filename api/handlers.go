package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"tidyboard-api/domain"
	"tidyboard-api/organize"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, org Organizer, auth Authenticator, dedupe Deduper, notify Notifier, logger *log.Logger) {
	e.GET("/api/boards", getBoards(store, auth))
	e.GET("/api/tasks", getTasks(store, auth))
	e.GET("/api/agenda", getAgenda(store, auth))
	e.PATCH("/api/tasks/:id", patchTask(store, auth, notify))
	e.POST("/api/organize/suggestions", postOrganizeSuggestions(org, auth, logger))
	e.POST("/api/organize/apply", postOrganizeApply(org, auth, dedupe, logger))
	e.GET("/api/stream", streamTasks(store, auth))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func getBoards(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		boards, err := store.FetchBoards(ctx, userID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		if space := c.QueryParam("space"); space != "" {
			sp := domain.Space(space)
			if !sp.Valid() {
				return c.String(http.StatusBadRequest, "invalid space")
			}
			filtered := boards[:0]
			for _, b := range boards {
				if b.Space == sp {
					filtered = append(filtered, b)
				}
			}
			boards = filtered
		}
		boardIDs := make([]string, len(boards))
		for i, b := range boards {
			boardIDs[i] = b.ID
		}
		columns, err := store.FetchColumns(ctx, boardIDs)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		tasks, err := store.FetchTasks(ctx, userID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		counts := organize.OngoingTaskCounts(columns, tasks)
		byBoard := make(map[string][]domain.Column, len(boards))
		for _, col := range columns {
			col.TaskCount = counts[col.ID]
			byBoard[col.BoardID] = append(byBoard[col.BoardID], col)
		}
		resp := boardsResponse{Boards: make([]boardView, len(boards))}
		for i, b := range boards {
			resp.Boards[i] = boardView{Board: b, Columns: byBoard[b.ID]}
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func getTasks(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		tasks, err := store.FetchTasks(ctx, userID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		if boardID := c.QueryParam("boardId"); boardID != "" {
			filtered := tasks[:0]
			for _, t := range tasks {
				if t.BoardID == boardID {
					filtered = append(filtered, t)
				}
			}
			tasks = filtered
		}
		return c.JSON(http.StatusOK, tasksResponse{Tasks: tasks})
	}
}

// getAgenda lists tasks due within the requested horizon, overdue ones
// included. Tasks without a due date never show up on the agenda.
func getAgenda(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		days := 7
		if raw := strings.TrimSpace(c.QueryParam("days")); raw != "" {
			days, err = strconv.Atoi(raw)
			if err != nil || days <= 0 {
				return c.String(http.StatusBadRequest, "invalid days")
			}
		}

		tasks, err := store.FetchTasks(ctx, userID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		horizon := time.Now().AddDate(0, 0, days).Unix()
		agenda := []domain.Task{}
		for _, t := range tasks {
			if t.DueDate != nil && *t.DueDate <= horizon {
				agenda = append(agenda, t)
			}
		}
		return c.JSON(http.StatusOK, tasksResponse{Tasks: agenda})
	}
}

func patchTask(store Storage, auth Authenticator, notify Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		taskID := c.Param("id")
		if taskID == "" {
			return c.String(http.StatusBadRequest, "missing task id")
		}

		lr := io.LimitReader(c.Request().Body, patchRequestMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var patch domain.TaskPatch
		if err := dec.Decode(&patch); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if patch.Empty() {
			return c.String(http.StatusBadRequest, "empty patch")
		}
		if patch.Priority != nil && !patch.Priority.Valid() {
			return c.String(http.StatusBadRequest, "invalid priority")
		}

		if err := store.PatchTask(ctx, userID, taskID, patch); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to update task")
		}

		boardID := ""
		if patch.BoardID != nil {
			boardID = *patch.BoardID
		}
		ev := domain.TaskEvent{
			UserID:    userID,
			TaskID:    taskID,
			BoardID:   boardID,
			Type:      domain.EventTaskUpdated,
			Timestamp: nextTimestamp(),
		}
		if err := store.EnqueueTaskEvent(ctx, ev); err != nil {
			c.Logger().Warnf("enqueue task event failed: %v", err)
		}
		if notify != nil {
			notify.TaskUpdated(ctx, userID, taskID, boardID, "")
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func postOrganizeSuggestions(org Organizer, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newOrganizeRequestMetrics(ctx, logger)
		if spanCtx != nil {
			req := c.Request().WithContext(spanCtx)
			c.SetRequest(req)
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		lr := io.LimitReader(c.Request().Body, organizeRequestMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var req organize.GenerateRequest
		if decodeErr := dec.Decode(&req); decodeErr != nil {
			metrics.SetErrorStage("invalid_body")
			err = c.String(http.StatusBadRequest, "invalid body")
			return err
		}
		if !req.Space.Valid() {
			metrics.SetErrorStage("invalid_space")
			err = c.String(http.StatusBadRequest, "invalid space")
			return err
		}

		generateStart := time.Now()
		resp, genErr := org.Generate(ctx, userID, req)
		metrics.ObserveGenerate(time.Since(generateStart))
		if genErr != nil {
			metrics.SetErrorStage("generate")
			err = c.String(http.StatusInternalServerError, genErr.Error())
			return err
		}
		metrics.SetSuggestionsReturned(len(resp.Suggestions))
		metrics.SetTasksAnalyzed(resp.TotalTasksAnalyzed)

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, resp)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func postOrganizeApply(org Organizer, auth Authenticator, dedupe Deduper, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		lr := io.LimitReader(c.Request().Body, applyRequestMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var req applyRequest
		if err := dec.Decode(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if !req.Space.Valid() {
			return c.String(http.StatusBadRequest, "invalid space")
		}
		if len(req.Suggestions) == 0 {
			return c.String(http.StatusBadRequest, "no suggestions to apply")
		}
		if req.BatchID == "" {
			req.BatchID = uuid.NewString()
		}

		added, err := dedupe.Add(ctx, userID, req.BatchID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to record batch")
		}
		if !added {
			return c.String(http.StatusConflict, "batch already applied")
		}

		res := org.Apply(ctx, userID, req.Space, req.Suggestions)
		if res.Applied == 0 && res.Failed > 0 {
			// Nothing stuck, let the client retry with the same batch id.
			if remErr := dedupe.Remove(ctx, userID, req.BatchID); remErr != nil {
				logger.WithError(remErr).Warn("failed to release batch key")
			}
		}
		return c.JSON(http.StatusOK, applyResponse{BatchID: req.BatchID, BatchApplyResult: res})
	}
}
