package apiserver

import (
	goctx "context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/netrixframework/smtkit/context"
	"github.com/netrixframework/smtkit/log"
	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/types"
	"github.com/pkg/errors"
)

// DefaultAddr is the default address of the APIServer
const DefaultAddr = "0.0.0.0:7074"

// Factory opens a new solver session
type Factory[S smt.Sort, T smt.Term, F smt.UninterpretedFunction] func() (*smt.Session[S, T, F], error)

// hosted is a session together with the lock that serializes its requests
type hosted[S smt.Sort, T smt.Term, F smt.UninterpretedFunction] struct {
	lock    sync.Mutex
	session *smt.Session[S, T, F]
	created time.Time
}

// APIServer hosts solver sessions behind a JSON HTTP interface
type APIServer[S smt.Sort, T smt.Term, F smt.UninterpretedFunction] struct {
	router   *gin.Engine
	ctx      *context.RootContext
	factory  Factory[S, T, F]
	sessions *types.Map[string, *hosted[S, T, F]]

	server *http.Server
	addr   string

	*types.BaseService
}

// NewAPIServer instantiates APIServer
func NewAPIServer[S smt.Sort, T smt.Term, F smt.UninterpretedFunction](ctx *context.RootContext, factory Factory[S, T, F]) *APIServer[S, T, F] {
	server := &APIServer[S, T, F]{
		ctx:         ctx,
		factory:     factory,
		sessions:    types.NewMap[string, *hosted[S, T, F]](),
		addr:        ctx.Config.APIServerAddr,
		BaseService: types.NewBaseService("APIServer", ctx.Logger),
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(server.logMiddleware)

	router.GET("/ops", server.handleOps)
	router.GET("/sessions", server.handleSessions)
	router.POST("/sessions", server.handleCreate)

	session := router.Group("/sessions/:id")
	session.GET("", server.handleGet)
	session.DELETE("", server.handleDelete)
	session.POST("/sorts", server.handleDeclareSort)
	session.POST("/records", server.handleDeclareRecord)
	session.POST("/funs", server.handleDeclareFun)
	session.POST("/consts", server.handleDeclareConst)
	session.POST("/assert", server.handleAssert)
	session.POST("/push", server.handlePush)
	session.POST("/pop", server.handlePop)
	session.POST("/check", server.handleCheck)
	session.POST("/value", server.handleValue)

	server.router = router
	server.server = &http.Server{
		Addr:    server.addr,
		Handler: router,
	}
	return server
}

// Handler returns the router, e.g. for httptest
func (a *APIServer[S, T, F]) Handler() http.Handler {
	return a.router
}

func (a *APIServer[S, T, F]) logMiddleware(c *gin.Context) {
	start := time.Now()
	path := c.Request.URL.Path
	raw := c.Request.URL.RawQuery

	c.Next()

	end := time.Now()
	if raw != "" {
		path = path + "?" + raw
	}
	a.Logger.With(log.LogParams{
		"request":     a.ctx.Counter.Next(),
		"latency":     end.Sub(start).String(),
		"client_ip":   c.ClientIP(),
		"method":      c.Request.Method,
		"status_code": c.Writer.Status(),
		"error":       c.Errors.ByType(gin.ErrorTypePrivate).String(),
		"path":        path,
	}).Debug("Handled request")
}

// Start starts the APIServer and implements Service
func (a *APIServer[S, T, F]) Start() error {
	a.StartRunning()
	go func() {
		a.Logger.With(log.LogParams{
			"addr": a.addr,
		}).Info("API server starting!")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.With(log.LogParams{
				"addr": a.addr,
				"err":  err,
			}).Fatal("API server closed!")
		}
	}()
	return nil
}

// Stop shuts the HTTP server down and closes every hosted session. It
// implements Service
func (a *APIServer[S, T, F]) Stop() error {
	a.StopRunning()
	ctx, cancel := goctx.WithTimeout(goctx.Background(), 5*time.Second)
	defer cancel()
	err := a.server.Shutdown(ctx)
	if err != nil {
		a.Logger.Error("API server forcefully shutdown")
	}
	for id, h := range a.sessions.RemoveAll() {
		h.lock.Lock()
		if cerr := h.session.Close(); cerr != nil {
			a.Logger.With(log.LogParams{"session": id, "err": cerr}).Warn("Closing session failed")
		}
		h.lock.Unlock()
	}
	a.Logger.Info("API server stopped!")
	return err
}

func (a *APIServer[S, T, F]) open() (string, error) {
	s, err := a.factory()
	if err != nil {
		return "", smt.Classify(err, "opening session")
	}
	id := uuid.NewString()
	a.sessions.Add(id, &hosted[S, T, F]{session: s, created: time.Now()})
	a.Logger.With(log.LogParams{"session": id}).Debug("Opened session")
	return id, nil
}

// statusOf maps the error taxonomy onto HTTP status codes
func statusOf(err error) int {
	kind, _ := smt.KindOf(err)
	switch kind {
	case smt.APIError:
		return http.StatusBadRequest
	case smt.UnsupportedError:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func errorBody(err error) gin.H {
	kind, ok := smt.KindOf(err)
	if !ok {
		kind = smt.InternalError
	}
	return gin.H{"error": err.Error(), "kind": kind.String()}
}

// withSession runs fn on the session named in the path while holding its lock
func (a *APIServer[S, T, F]) withSession(c *gin.Context, fn func(*smt.Session[S, T, F]) (gin.H, error)) {
	h, ok := a.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session does not exist"})
		return
	}
	h.lock.Lock()
	resp, err := fn(h.session)
	h.lock.Unlock()
	if err != nil {
		c.JSON(statusOf(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}
