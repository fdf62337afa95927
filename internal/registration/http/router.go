package http

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"

	"github.com/AlibekovAA/registration-board/internal/common/constants"
	commonerrors "github.com/AlibekovAA/registration-board/internal/common/errors"
	commonhttp "github.com/AlibekovAA/registration-board/internal/common/http"
	"github.com/AlibekovAA/registration-board/internal/common/jwtverify"
	"github.com/AlibekovAA/registration-board/internal/common/logger"
	"github.com/AlibekovAA/registration-board/internal/registration/websocket"
	"github.com/AlibekovAA/registration-board/internal/user/domain"
	"github.com/AlibekovAA/registration-board/internal/user/service"
)

//go:embed templates/index.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

type ControllerFactory func(sessionID string) websocket.Controller

type HandlerDeps struct {
	Users         service.Service
	Hub           *websocket.Hub
	NewController ControllerFactory
	Log           *logger.Logger
}

type HandlerConfig struct {
	APIKey         string
	JWTSecret      string
	RequestTimeout time.Duration
	Session        websocket.SessionConfig
}

type Handler struct {
	users         service.Service
	hub           *websocket.Hub
	newController ControllerFactory
	cfg           HandlerConfig
	upgrader      gorillaWS.Upgrader
	log           *logger.Logger
}

type userRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type pageData struct {
	APIKey         string
	NameMaxLength  int
	EmailMaxLength int
	Users          []userResponse
	Error          string
}

func NewHandler(deps HandlerDeps, cfg HandlerConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = constants.DefaultRegistryRequestTimeout
	}

	h := &Handler{
		users:         deps.Users,
		hub:           deps.Hub,
		newController: deps.NewController,
		cfg:           cfg,
		upgrader: gorillaWS.Upgrader{
			ReadBufferSize:  constants.WebSocketReadBufferSize,
			WriteBufferSize: constants.WebSocketWriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				host := r.Host
				if host == "" {
					host = r.URL.Host
				}
				return origin == "http://"+host || origin == "https://"+host
			},
		},
		log: deps.Log,
	}

	requireKey := jwtverify.Middleware(cfg.JWTSecret, deps.Log)
	timeout := commonhttp.WithTimeout(cfg.RequestTimeout)

	mux := http.NewServeMux()
	mux.HandleFunc("/", commonhttp.RequireMethod(http.MethodGet)(timeout(h.page)))
	mux.Handle("/ws/registration", requireKey(http.HandlerFunc(h.handleWebSocket)))
	mux.Handle("/api/users", requireKey(timeout(h.usersCollection)))
	mux.Handle("/api/users/", requireKey(commonhttp.RequireMethod(http.MethodDelete)(timeout(h.deleteUser))))

	return mux
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		commonhttp.WriteErrorEnvelope(w, http.StatusNotFound, commonhttp.CodeNotFound, "not found", nil, commonhttp.TraceIDFromContext(r.Context()))
		return
	}

	data := pageData{
		APIKey:         h.cfg.APIKey,
		NameMaxLength:  constants.UserNameMaxLength,
		EmailMaxLength: constants.UserEmailMaxLength,
	}

	users, err := h.users.List(r.Context())
	if err != nil {
		data.Error = "could not load registered users"
	} else {
		data.Users = toUserResponses(users)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{
			"action": "page_render_failed",
		}).Errorf("page render failed: %v", err)
	}
}

func (h *Handler) usersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listUsers(w, r)
	case http.MethodPost:
		h.createUser(w, r)
	default:
		commonhttp.WriteErrorEnvelope(w, http.StatusMethodNotAllowed, commonhttp.CodeMethodNotAllowed, "method not allowed", nil, "")
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.users.List(ctx)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	h.log.WithFields(ctx, logger.Fields{
		"results": len(users),
		"action":  "users_list_success",
	}).Debug("users list success")
	commonhttp.WriteJSON(w, http.StatusOK, toUserResponses(users))
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req userRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.WithFields(ctx, logger.Fields{
			"action": "users_create_invalid_json",
		}).Warnf("create user failed: invalid json: %v", err)
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json", nil, commonhttp.TraceIDFromContext(ctx))
		return
	}

	user, err := h.users.Register(ctx, service.RegisterInput{Name: req.Name, Email: req.Email})
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := commonhttp.ExtractIDFromPath(r.URL.Path, "/api/users/")
	if !ok {
		commonhttp.HandleError(w, r, commonerrors.ErrEmptyUUID, h.log)
		return
	}

	if err := h.users.Delete(ctx, id); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteNoContent(w)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.hub.Full() {
		commonhttp.HandleError(w, r, commonerrors.ErrTooManySessions, h.log)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithFields(ctx, logger.Fields{
			"action": "ws_upgrade_failed",
		}).Errorf("websocket upgrade failed: %v", err)
		return
	}

	sessionID := uuid.NewString()
	session := websocket.NewSession(sessionID, h.hub, conn, h.newController(sessionID), h.cfg.Session, h.log)
	if err := h.hub.Register(session); err != nil {
		h.log.WithFields(ctx, logger.Fields{
			"session_id": sessionID,
			"action":     "ws_register_rejected",
		}).Warnf("websocket session rejected: %v", err)
		session.Close()
		deadline := time.Now().Add(h.cfg.Session.WriteWait)
		_ = conn.WriteControl(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseTryAgainLater, "too many sessions"), deadline)
		conn.Close()
		return
	}

	session.Start()
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        string(u.ID),
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

func toUserResponses(users []domain.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

// ShutdownHook closes every live session; meant for the server's shutdown
// hooks.
func ShutdownHook(hub *websocket.Hub) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		hub.Shutdown(ctx)
		return nil
	}
}
