package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/netrixframework/smtkit/log"
	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/smt/ops"
)

func (srv *APIServer[S, T, F]) handleOps(c *gin.Context) {
	entries := make([]OpEntry, 0, len(ops.All()))
	for _, o := range ops.All() {
		info := o.Info()
		entries = append(entries, OpEntry{
			Name:    info.Name,
			Theory:  info.Theory.String(),
			MinArgs: info.MinArgs,
			MaxArgs: info.MaxArgs,
			Indices: info.Indices,
			Field:   info.NeedsField,
		})
	}
	sorts := make([]string, 0, len(ops.Sorts()))
	for _, s := range ops.Sorts() {
		sorts = append(sorts, s.Kind.String())
	}
	c.JSON(http.StatusOK, gin.H{
		"version": ops.Version,
		"sorts":   sorts,
		"ops":     entries,
	})
}

func (srv *APIServer[S, T, F]) handleSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": srv.sessions.Keys()})
}

func (srv *APIServer[S, T, F]) handleCreate(c *gin.Context) {
	id, err := srv.open()
	if err != nil {
		srv.Logger.With(log.LogParams{"error": err}).Info("Could not open session")
		c.JSON(statusOf(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (srv *APIServer[S, T, F]) handleDelete(c *gin.Context) {
	h, ok := srv.sessions.Take(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session does not exist"})
		return
	}
	h.lock.Lock()
	err := h.session.Close()
	h.lock.Unlock()
	if err != nil {
		c.JSON(statusOf(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (srv *APIServer[S, T, F]) handleGet(c *gin.Context) {
	srv.withSession(c, func(s *smt.Session[S, T, F]) (gin.H, error) {
		assertions := s.Assertions()
		texts := make([]string, len(assertions))
		for i, a := range assertions {
			texts[i] = render(a)
		}
		stats := s.Stats()
		return gin.H{
			"level":      s.Level(),
			"assertions": texts,
			"last":       s.LastResult().String(),
			"stats": gin.H{
				"checks":        stats.Checks,
				"sat":           stats.Sat,
				"unsat":         stats.Unsat,
				"unknown":       stats.Unknown,
				"check_time_ms": stats.CheckTime.Milliseconds(),
			},
		}, nil
	})
}

// bind decodes the request body, reporting malformed bodies as APIErrors
func bind(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return smt.APIErrorf("malformed request: %s", err)
	}
	return nil
}

func (srv *APIServer[S, T, F]) handleDeclareSort(c *gin.Context) {
	srv.withSession(c, func(s *smt.Session[S, T, F]) (gin.H, error) {
		var req DeclareSortRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		sort, err := s.DeclareSort(req.Name)
		if err != nil {
			return nil, err
		}
		return gin.H{"sort": render(sort)}, nil
	})
}

func (srv *APIServer[S, T, F]) handleDeclareRecord(c *gin.Context) {
	srv.withSession(c, func(s *smt.Session[S, T, F]) (gin.H, error) {
		var req DeclareRecordRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		names := make([]string, len(req.Fields))
		specs := make([]SortSpec, len(req.Fields))
		for i, f := range req.Fields {
			names[i], specs[i] = f.Name, f.Sort
		}
		sorts, err := resolveSorts(s, specs)
		if err != nil {
			return nil, err
		}
		sort, err := s.DeclareRecordSort(req.Name, names, sorts)
		if err != nil {
			return nil, err
		}
		return gin.H{"sort": render(sort)}, nil
	})
}

func (srv *APIServer[S, T, F]) handleDeclareFun(c *gin.Context) {
	srv.withSession(c, func(s *smt.Session[S, T, F]) (gin.H, error) {
		var req DeclareFunRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		args, err := resolveSorts(s, req.Args)
		if err != nil {
			return nil, err
		}
		ret, err := resolveSort(s, req.Ret)
		if err != nil {
			return nil, err
		}
		f, err := s.DeclareFun(req.Name, args, ret)
		if err != nil {
			return nil, err
		}
		name, err := f.Name()
		if err != nil {
			return nil, err
		}
		return gin.H{"fun": name}, nil
	})
}

func (srv *APIServer[S, T, F]) handleDeclareConst(c *gin.Context) {
	srv.withSession(c, func(s *smt.Session[S, T, F]) (gin.H, error) {
		var req DeclareConstRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		sort, err := resolveSort(s, req.Sort)
		if err != nil {
			return nil, err
		}
		t, err := s.DeclareConst(req.Name, sort)
		if err != nil {
			return nil, err
		}
		return gin.H{"term": render(t)}, nil
	})
}

func (srv *APIServer[S, T, F]) handleAssert(c *gin.Context) {
	srv.withSession(c, func(s *smt.Session[S, T, F]) (gin.H, error) {
		var req TermRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		t, err := resolveTerm(s, req.Term)
		if err != nil {
			return nil, err
		}
		if err := s.Assert(t); err != nil {
			return nil, err
		}
		return gin.H{"term": render(t), "level": s.Level()}, nil
	})
}

func (srv *APIServer[S, T, F]) handlePush(c *gin.Context) {
	srv.withSession(c, func(s *smt.Session[S, T, F]) (gin.H, error) {
		var req ScopeRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		if err := s.Push(req.N); err != nil {
			return nil, err
		}
		return gin.H{"level": s.Level()}, nil
	})
}

func (srv *APIServer[S, T, F]) handlePop(c *gin.Context) {
	srv.withSession(c, func(s *smt.Session[S, T, F]) (gin.H, error) {
		var req ScopeRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		if err := s.Pop(req.N); err != nil {
			return nil, err
		}
		return gin.H{"level": s.Level()}, nil
	})
}

func (srv *APIServer[S, T, F]) handleCheck(c *gin.Context) {
	srv.withSession(c, func(s *smt.Session[S, T, F]) (gin.H, error) {
		r := s.CheckSat()
		resp := gin.H{"result": r.String()}
		if r == smt.Unknown {
			resp["reason"] = s.ReasonUnknown()
		}
		return resp, nil
	})
}

func (srv *APIServer[S, T, F]) handleValue(c *gin.Context) {
	srv.withSession(c, func(s *smt.Session[S, T, F]) (gin.H, error) {
		var req TermRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		t, err := resolveTerm(s, req.Term)
		if err != nil {
			return nil, err
		}
		v, err := s.GetValue(t)
		if err != nil {
			return nil, err
		}
		return gin.H{"term": render(t), "value": render(v)}, nil
	})
}
