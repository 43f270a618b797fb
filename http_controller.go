package todoapi

import (
	"context"
	stderrors "errors"
	"regexp"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

var usernameFormat = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// APIController wires the auth core and the stores into the fiber app
type APIController struct {
	Logger   Logger
	Auther   *Auther
	Register *RegisterUserHandler
	Users    UserStore
	Todos    TodoStore
	Guard    OwnershipGuard
	Health   HealthChecker
	AppName  string
}

type APIControllerOption func(*APIController) *APIController

func NewAPIController(auther *Auther, register *RegisterUserHandler, users UserStore, todos TodoStore, opts ...APIControllerOption) *APIController {
	c := &APIController{
		Logger:   defLogger{},
		Auther:   auther,
		Register: register,
		Users:    users,
		Todos:    todos,
		Guard:    NewOwnershipGuard(),
		AppName:  "go-todo-api",
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	return c
}

func WithControllerLogger(logger Logger) APIControllerOption {
	return func(c *APIController) *APIController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithHealthChecker(checker HealthChecker) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Health = checker
		return c
	}
}

func WithAppName(name string) APIControllerOption {
	return func(c *APIController) *APIController {
		if name != "" {
			c.AppName = name
		}
		return c
	}
}

// RegisterRoutes mounts the v1 API. The protected handler runs before
// every route that requires a valid token.
func (a *APIController) RegisterRoutes(app *fiber.App, protected fiber.Handler) {
	v1 := app.Group("/v1")

	v1.Get("/health", a.HealthCheck)

	auth := v1.Group("/auth")
	auth.Post("/register", a.RegisterPost)
	auth.Post("/login", a.LoginPost)
	auth.Get("/me", protected, a.Me)

	todos := v1.Group("/todos", protected)
	todos.Post("/", a.TodoCreate)
	todos.Get("/", a.TodoList)
	todos.Get("/:id", a.TodoGet)
	todos.Patch("/:id", a.TodoUpdate)
	todos.Delete("/:id", a.TodoDelete)
}

// -- payloads ---------------------------------------------------------

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type RegisterRequest struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	FullName string `json:"full_name" form:"full_name"`
	Password string `json:"password" form:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(
			&r.Username,
			validation.Required,
			validation.Length(3, 100),
			validation.Match(usernameFormat).Error("must contain only letters, numbers, and underscores"),
		),
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

type TodoCreateRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Priority    string `json:"priority" form:"priority"`
}

func (r TodoCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Description, validation.Length(0, 1000)),
		validation.Field(&r.Priority, validation.In(PriorityLow, PriorityMedium, PriorityHigh)),
	)
}

type TodoUpdateRequest struct {
	Title       *string `json:"title" form:"title"`
	Description *string `json:"description" form:"description"`
	Completed   *bool   `json:"is_completed" form:"is_completed"`
	Priority    *string `json:"priority" form:"priority"`
}

func (r TodoUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(1, 255)),
		validation.Field(&r.Description, validation.Length(0, 1000)),
		validation.Field(&r.Priority, validation.In(PriorityLow, PriorityMedium, PriorityHigh)),
	)
}

type TodoListResponse struct {
	Todos    []*Todo `json:"todos"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// -- auth routes ------------------------------------------------------

// RegisterPost creates a new account and returns it with a 201
func (a *APIController) RegisterPost(c *fiber.Ctx) error {
	payload := RegisterRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return badRequestBody(err)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	user, err := a.Register.Execute(c.UserContext(), RegisterUserMessage{
		Email:    payload.Email,
		Username: payload.Username,
		FullName: payload.FullName,
		Password: payload.Password,
	})
	if err != nil {
		return err
	}

	a.Logger.Info("user registered", "user_id", user.ID.String(), "username", user.Username)

	return c.Status(fiber.StatusCreated).JSON(user)
}

// LoginPost verifies credentials and issues a bearer token
func (a *APIController) LoginPost(c *fiber.Ctx) error {
	payload := LoginRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return badRequestBody(err)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	token, err := a.Auther.Login(c.UserContext(), payload.Username, payload.Password)
	if err != nil {
		return err
	}

	return c.JSON(TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(a.Auther.TokenTTL().Seconds()),
	})
}

// Me returns the account behind the presented token
func (a *APIController) Me(c *fiber.Ctx) error {
	identity := a.currentIdentity(c)
	if identity == nil {
		return ErrMissingToken
	}

	user, err := a.Users.GetByIdentifier(c.UserContext(), identity.ID())
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			// account deleted while the token was still live
			return ErrTokenMalformed
		}
		return err
	}

	if !user.IsActive {
		return ErrAccountInactive
	}

	return c.JSON(user)
}

// -- todo routes ------------------------------------------------------

// TodoCreate persists a todo owned by the caller
func (a *APIController) TodoCreate(c *fiber.Ctx) error {
	identity, ownerID, err := a.requireOwnerID(c)
	if err != nil {
		return err
	}

	payload := TodoCreateRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return badRequestBody(err)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	todo := &Todo{
		Title:       payload.Title,
		Description: payload.Description,
		Priority:    payload.Priority,
		UserID:      ownerID,
	}

	created, err := a.Todos.Create(c.UserContext(), todo)
	if err != nil {
		return err
	}

	a.Logger.Debug("todo created", "todo_id", created.ID.String(), "user_id", identity.ID())

	return c.Status(fiber.StatusCreated).JSON(created)
}

// TodoList pages through the caller's todos
func (a *APIController) TodoList(c *fiber.Ctx) error {
	_, ownerID, err := a.requireOwnerID(c)
	if err != nil {
		return err
	}

	filter := TodoFilter{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", defaultTodoPageSize),
	}

	if err := validatePagination(filter.Page, filter.PageSize); err != nil {
		return err
	}

	if raw := c.Query("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			return validation.Errors{
				"completed": stderrors.New("must be a boolean"),
			}
		}
		filter.Completed = &completed
	}

	records, total, err := a.Todos.ListByOwner(c.UserContext(), ownerID, filter)
	if err != nil {
		return err
	}

	return c.JSON(TodoListResponse{
		Todos:    records,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

// TodoGet fetches a single owned todo
func (a *APIController) TodoGet(c *fiber.Ctx) error {
	identity, _, err := a.requireOwnerID(c)
	if err != nil {
		return err
	}

	todo, err := a.fetchOwnedTodo(c, identity)
	if err != nil {
		return err
	}

	return c.JSON(todo)
}

// TodoUpdate applies a partial update to an owned todo
func (a *APIController) TodoUpdate(c *fiber.Ctx) error {
	identity, _, err := a.requireOwnerID(c)
	if err != nil {
		return err
	}

	payload := TodoUpdateRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return badRequestBody(err)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	todo, err := a.fetchOwnedTodo(c, identity)
	if err != nil {
		return err
	}

	if payload.Title != nil {
		todo.Title = *payload.Title
	}
	if payload.Description != nil {
		todo.Description = *payload.Description
	}
	if payload.Completed != nil {
		todo.Completed = *payload.Completed
	}
	if payload.Priority != nil {
		todo.Priority = *payload.Priority
	}

	updated, err := a.Todos.Update(c.UserContext(), todo)
	if err != nil {
		return err
	}

	return c.JSON(updated)
}

// TodoDelete removes an owned todo
func (a *APIController) TodoDelete(c *fiber.Ctx) error {
	identity, _, err := a.requireOwnerID(c)
	if err != nil {
		return err
	}

	todo, err := a.fetchOwnedTodo(c, identity)
	if err != nil {
		return err
	}

	if err := a.Todos.DeleteByID(c.UserContext(), todo.ID); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// HealthCheck reports service and dependency status, always as a 200
// so orchestrators can read the body instead of retrying.
func (a *APIController) HealthCheck(c *fiber.Ctx) error {
	checks := map[string]string{}
	status := "healthy"

	if a.Health != nil {
		if err := a.Health.Ping(c.UserContext()); err != nil {
			a.Logger.Warn("health check dependency failure", "error", err)
			checks["database"] = "unhealthy"
			status = "degraded"
		} else {
			checks["database"] = "healthy"
		}
	}

	return c.JSON(HealthResponse{
		Status:    status,
		Service:   a.AppName,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}

// -- helpers ----------------------------------------------------------

func (a *APIController) currentIdentity(c *fiber.Ctx) Identity {
	if claims, ok := c.Locals(LocalIdentityKey).(AuthClaims); ok {
		return IdentityFromClaims(claims)
	}

	if identity, ok := IdentityFromContext(c.UserContext()); ok {
		return identity
	}

	return nil
}

func (a *APIController) requireOwnerID(c *fiber.Ctx) (Identity, uuid.UUID, error) {
	identity := a.currentIdentity(c)
	if identity == nil {
		return nil, uuid.Nil, ErrMissingToken
	}

	ownerID, err := uuid.Parse(identity.ID())
	if err != nil {
		return nil, uuid.Nil, ErrTokenMalformed
	}

	return identity, ownerID, nil
}

// fetchOwnedTodo loads the record then checks ownership, in that
// order: a missing todo is a 404 for everyone, an existing todo owned
// by someone else is a 403.
func (a *APIController) fetchOwnedTodo(c *fiber.Ctx, identity Identity) (*Todo, error) {
	id, err := parseRecordID(c.Params("id"))
	if err != nil {
		return nil, err
	}

	todo, err := a.Todos.GetByID(c.UserContext(), id)
	if err != nil {
		if goerrors.IsNotFound(err) || repository.IsRecordNotFound(err) {
			return nil, ErrTodoNotFound
		}
		return nil, err
	}

	if err := a.Guard.RequireOwner(identity, todo.UserID); err != nil {
		return nil, err
	}

	return todo, nil
}

func parseRecordID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, validation.Errors{
			"id": stderrors.New("must be a valid UUID"),
		}
	}
	return id, nil
}

func validatePagination(page, pageSize int) error {
	errs := validation.Errors{}
	if page < 1 {
		errs["page"] = stderrors.New("must be no less than 1")
	}
	if pageSize < 1 || pageSize > maxTodoPageSize {
		errs["page_size"] = stderrors.New("must be between 1 and 100")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func badRequestBody(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
		WithCode(goerrors.CodeBadRequest)
}
