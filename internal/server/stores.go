package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/reflector/pkg/api"
	"github.com/kode4food/reflector/pkg/store"
)

type storeLookup func(env string) (store.Store, bool)

const (
	traceStoreName     = "trace store"
	flowStateStoreName = "flow state store"
)

func (s *Server) listEnvs(c *gin.Context) {
	c.JSON(http.StatusOK, s.envs)
}

func (s *Server) getTrace(c *gin.Context) {
	s.getRecord(c, s.registry.LookupTraceStore, traceStoreName,
		c.Param("traceId"))
}

func (s *Server) listTraces(c *gin.Context) {
	s.listRecords(c, s.registry.LookupTraceStore, traceStoreName)
}

func (s *Server) getFlowState(c *gin.Context) {
	s.getRecord(c, s.registry.LookupFlowStateStore, flowStateStoreName,
		c.Param("flowId"))
}

func (s *Server) listFlowStates(c *gin.Context) {
	s.listRecords(c, s.registry.LookupFlowStateStore, flowStateStoreName)
}

func (s *Server) getRecord(
	c *gin.Context, lookup storeLookup, name, id string,
) {
	rec, err := loadRecord(c.Request.Context(), lookup, name,
		c.Param("env"), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", rec)
}

func (s *Server) listRecords(c *gin.Context, lookup storeLookup, name string) {
	params, err := parseListParams(c)
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := listRecords(c.Request.Context(), lookup, name,
		c.Param("env"), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func loadRecord(
	ctx context.Context, lookup storeLookup, name, env, id string,
) (json.RawMessage, error) {
	st, err := resolveStore(lookup, name, env)
	if err != nil {
		return nil, err
	}
	rec, err := st.Load(ctx, id)
	if err != nil {
		return nil, internalError(err, "")
	}
	return rec, nil
}

func listRecords(
	ctx context.Context, lookup storeLookup, name, env string,
	params *api.ListParams,
) (*api.ListResult, error) {
	st, err := resolveStore(lookup, name, env)
	if err != nil {
		return nil, err
	}
	res, err := st.List(ctx, params)
	if err != nil {
		return nil, internalError(err, "")
	}
	return res, nil
}

func resolveStore(lookup storeLookup, name, env string) (store.Store, error) {
	st, ok := lookup(env)
	if !ok {
		return nil, failedPrecondition("%s %s not found", env, name)
	}
	return st, nil
}

// parseListParams reads limit and continuationToken from the query. Absent
// or empty parameters stay nil so the store applies its own defaults
func parseListParams(c *gin.Context) (*api.ListParams, error) {
	params := &api.ListParams{}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return nil, invalidArgument(
				fmt.Errorf("%w: %q", store.ErrInvalidLimit, raw),
			)
		}
		params.Limit = &limit
	}
	if token := c.Query("continuationToken"); token != "" {
		params.ContinuationToken = &token
	}
	return params, nil
}
