// Package webadmin serves the configuration tables over HTTPS for superusers.
package webadmin

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/zond/wizmud"
	"github.com/zond/wizmud/digest"
	"github.com/zond/wizmud/storage"
	"github.com/zond/wizmud/structs"
	"go.uber.org/zap"
)

type authUserKey struct{}

// AuthenticatedUser returns the user the request was authenticated as.
func AuthenticatedUser(ctx context.Context) (*structs.User, bool) {
	u, ok := ctx.Value(authUserKey{}).(*structs.User)
	return u, ok
}

// superusers lets only users whose player is a superuser authenticate.
type superusers struct {
	storage *storage.Storage
}

func (s superusers) GetHA1AndAuthContext(ctx context.Context, username string) (string, bool, context.Context, error) {
	user, err := s.storage.LoadUser(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil, nil
	} else if err != nil {
		return "", false, nil, err
	}
	player, err := s.storage.LoadPlayerByUser(ctx, user.Id)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil, nil
	} else if err != nil {
		return "", false, nil, err
	}
	if !player.Superuser || user.DigestHA1 == "" {
		return "", false, nil, nil
	}
	return user.DigestHA1, true, context.WithValue(ctx, authUserKey{}, user), nil
}

type Handler struct {
	storage *storage.Storage
	log     *zap.SugaredLogger
}

func New(s *storage.Storage, log *zap.SugaredLogger) *Handler {
	return &Handler{
		storage: s,
		log:     log,
	}
}

// Router returns the admin API with every route except /health behind
// digest authentication in realm.
func (h *Handler) Router(realm string) chi.Router {
	auth := digest.NewDigestAuth(realm, superusers{storage: h.storage}, h.log)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(h.logRequests)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return auth.Wrap(next)
		})
		r.Route("/aliases", func(r chi.Router) {
			r.Get("/", h.listAliases)
			r.Post("/", h.createAlias)
			r.Delete("/{id}", h.deleteAlias)
		})
		r.Route("/config", func(r chi.Router) {
			r.Get("/", h.listConfig)
			r.Get("/{key}", h.getConfig)
			r.Put("/{key}", h.setConfig)
			r.Delete("/{key}", h.deleteConfig)
		})
		r.Route("/screens", func(r chi.Router) {
			r.Get("/", h.listScreens)
			r.Post("/", h.createScreen)
			r.Put("/{id}/active", h.setScreenActive)
			r.Delete("/{id}", h.deleteScreen)
		})
	})
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusNotFound, "endpoint not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return router
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			h.log.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		}()
		next.ServeHTTP(ww, r)
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warnw("writing response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps storage errors to responses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr storage.ValidationError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &verr):
		h.writeError(w, http.StatusBadRequest, verr.Error())
	default:
		h.log.Errorw("admin request failed", "method", r.Method, "path", r.URL.Path, "error", err, "stack", wizmud.StackTrace(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (h *Handler) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) audit(r *http.Request, event string, table string, key string, value string) {
	caller := storage.SystemRef()
	if user, ok := AuthenticatedUser(r.Context()); ok {
		caller = storage.Ref(user.Id, user.Name)
	}
	h.storage.AuditLog(r.Context(), event, storage.AuditConfigChange{
		Caller: caller,
		Table:  table,
		Key:    key,
		Value:  value,
	})
}

func (h *Handler) listAliases(w http.ResponseWriter, r *http.Request) {
	aliases, err := h.storage.CommandAliases(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, aliases)
}

func (h *Handler) createAlias(w http.ResponseWriter, r *http.Request) {
	alias := &structs.CommandAlias{}
	if !h.decode(w, r, alias) {
		return
	}
	alias.Id = 0
	if err := h.storage.CreateCommandAlias(r.Context(), alias); err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, "ALIAS_SET", "command_aliases", alias.UserInput, alias.EquivCommand)
	h.writeJSON(w, http.StatusCreated, alias)
}

func (h *Handler) deleteAlias(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := h.storage.DeleteCommandAlias(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, "ALIAS_DELETE", "command_aliases", strconv.FormatInt(id, 10), "")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listConfig(w http.ResponseWriter, r *http.Request) {
	values, err := h.storage.ConfigValues(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, values)
}

func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	value, err := h.storage.ConfigValue(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, value)
}

type configBody struct {
	Value string `json:"conf_value"`
}

func (h *Handler) setConfig(w http.ResponseWriter, r *http.Request) {
	body := &configBody{}
	if !h.decode(w, r, body) {
		return
	}
	key := chi.URLParam(r, "key")
	value, err := h.storage.SetConfigValue(r.Context(), key, body.Value)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, "CONFIG_SET", "config_values", value.Key, value.Value)
	h.writeJSON(w, http.StatusOK, value)
}

func (h *Handler) deleteConfig(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.storage.DeleteConfigValue(r.Context(), key); err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, "CONFIG_DELETE", "config_values", key, "")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listScreens(w http.ResponseWriter, r *http.Request) {
	screens, err := h.storage.ConnectScreens(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, screens)
}

func (h *Handler) createScreen(w http.ResponseWriter, r *http.Request) {
	// Screens are active unless the body says otherwise.
	screen := &structs.ConnectScreen{IsActive: true}
	if !h.decode(w, r, screen) {
		return
	}
	screen.Id = 0
	if err := h.storage.CreateConnectScreen(r.Context(), screen); err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, "SCREEN_CREATE", "connect_screens", screen.Name, "")
	h.writeJSON(w, http.StatusCreated, screen)
}

type activeBody struct {
	Active bool `json:"is_active"`
}

func (h *Handler) setScreenActive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	body := &activeBody{}
	if !h.decode(w, r, body) {
		return
	}
	if err := h.storage.SetConnectScreenActive(r.Context(), id, body.Active); err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, "SCREEN_ACTIVE", "connect_screens", strconv.FormatInt(id, 10), strconv.FormatBool(body.Active))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteScreen(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := h.storage.DeleteConnectScreen(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, "SCREEN_DELETE", "connect_screens", strconv.FormatInt(id, 10), "")
	w.WriteHeader(http.StatusNoContent)
}
