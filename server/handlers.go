package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/jaganraajan/projects-board/domain"
)

const requestBodyMaxSize = 1 << 20 // 1 MiB

// Register wires up all tenant service routes on the provided Echo instance.
func Register(e *echo.Echo, store Store, auth Authenticator, issuer TokenIssuer, logger *log.Logger) {
	e.POST("/register", postRegister(store, logger))
	e.POST("/login", postLogin(store, issuer, logger))
	e.GET("/me", getMe(store, auth))

	e.GET("/tasks", getTasks(store, auth, logger))
	e.POST("/tasks", postTask(store, auth, logger))
	e.PATCH("/tasks/:id", patchTask(store, auth, logger))
	e.DELETE("/tasks/:id", deleteTask(store, auth, logger))

	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func decodeBody(c echo.Context, out any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	return dec.Decode(out)
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"company_name"`
}

func postRegister(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req registerRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" || !strings.Contains(req.Email, "@") {
			return c.String(http.StatusBadRequest, "invalid email")
		}
		if len(req.Password) < 8 {
			return c.String(http.StatusBadRequest, "password too short")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.WithField("email", req.Email).Error(err)
			return c.String(http.StatusInternalServerError, "failed to register")
		}

		account := domain.Account{Email: req.Email, CompanyName: strings.TrimSpace(req.CompanyName)}
		if err := store.InsertAccount(c.Request().Context(), account, string(hash)); err != nil {
			var conflict ConflictError
			if errors.As(err, &conflict) {
				return c.String(http.StatusConflict, "account already exists")
			}
			logger.WithField("email", req.Email).Error(err)
			return c.String(http.StatusInternalServerError, "failed to register")
		}
		return c.NoContent(http.StatusCreated)
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func postLogin(store Store, issuer TokenIssuer, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		account, hash, err := store.FetchAccount(c.Request().Context(), strings.TrimSpace(req.Email))
		if err != nil {
			var notFound NotFoundError
			if errors.As(err, &notFound) {
				return c.String(http.StatusUnauthorized, "invalid credentials")
			}
			logger.WithField("email", req.Email).Error(err)
			return c.String(http.StatusInternalServerError, "failed to log in")
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
			return c.String(http.StatusUnauthorized, "invalid credentials")
		}

		token, err := issuer.IssueToken(account.Email, account.CompanyName)
		if err != nil {
			logger.WithField("email", account.Email).Error(err)
			return c.String(http.StatusInternalServerError, "failed to issue token")
		}
		return c.JSON(http.StatusOK, loginResponse{Token: token})
	}
}

func getMe(store Store, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		email, err := auth.EmailFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		account, _, err := store.FetchAccount(c.Request().Context(), email)
		if err != nil {
			var notFound NotFoundError
			if errors.As(err, &notFound) {
				return c.String(http.StatusNotFound, "account not found")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, account)
	}
}

func getTasks(store Store, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		email, err := auth.EmailFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		tasks, err := store.ListTasks(c.Request().Context(), email)
		if err != nil {
			logger.WithField("email", email).Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

// taskEnvelope is the `{"task": …}` wrapper write requests carry.
type taskEnvelope struct {
	Task domain.Task `json:"task"`
}

func postTask(store Store, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		email, err := auth.EmailFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		var env taskEnvelope
		if err := decodeBody(c, &env); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		task := env.Task
		task.Normalize()
		if strings.TrimSpace(task.Title) == "" {
			return c.String(http.StatusBadRequest, "title is required")
		}
		if task.ID == "" {
			task.ID = uuid.NewString()
		}

		if err := store.InsertTask(c.Request().Context(), email, task); err != nil {
			var conflict ConflictError
			if errors.As(err, &conflict) {
				return c.String(http.StatusConflict, "task already exists")
			}
			logger.WithFields(log.Fields{"email": email, "task_id": task.ID}).Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusCreated, task)
	}
}

// patchEnvelope mirrors taskEnvelope for partial updates.
type patchEnvelope struct {
	Task domain.Patch `json:"task"`
}

func patchTask(store Store, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		email, err := auth.EmailFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		var env patchEnvelope
		if err := decodeBody(c, &env); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if env.Task.Empty() {
			return c.String(http.StatusBadRequest, "empty patch")
		}

		id := c.Param("id")
		task, err := store.UpdateTask(c.Request().Context(), email, id, env.Task)
		if err != nil {
			var notFound NotFoundError
			if errors.As(err, &notFound) {
				return c.String(http.StatusNotFound, "task not found")
			}
			logger.WithFields(log.Fields{"email": email, "task_id": id}).Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(store Store, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		email, err := auth.EmailFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		id := c.Param("id")
		if err := store.DeleteTask(c.Request().Context(), email, id); err != nil {
			var notFound NotFoundError
			if errors.As(err, &notFound) {
				return c.String(http.StatusNotFound, "task not found")
			}
			logger.WithFields(log.Fields{"email": email, "task_id": id}).Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.NoContent(http.StatusNoContent)
	}
}
