package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/Rorqualx/smoothscroll-go/internal/metrics"
	"github.com/Rorqualx/smoothscroll-go/internal/types"
)

type commandFunc func(h *Handler, ctx context.Context, req *types.Request) (*types.Response, error)

// commands maps every API command to its handler.
var commands = map[string]commandFunc{
	types.CmdSessionsCreate:  (*Handler).handleSessionCreate,
	types.CmdSessionsList:    (*Handler).handleSessionList,
	types.CmdSessionsDestroy: (*Handler).handleSessionDestroy,
	types.CmdScrollTo:        (*Handler).handleScrollTo,
	types.CmdScrollBy:        (*Handler).handleScrollBy,
	types.CmdScrollCancel:    (*Handler).handleScrollCancel,
	types.CmdScrollStatus:    (*Handler).handleScrollStatus,
}

// routeCommand validates req, runs its command and records request metrics.
func (h *Handler) routeCommand(ctx context.Context, req *types.Request) (*types.Response, error) {
	start := time.Now()

	cmd, ok := commands[req.Cmd]
	if !ok {
		metrics.RecordRequest("unknown", types.StatusError, time.Since(start))
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidCommand, req.Cmd)
	}
	if err := req.Validate(); err != nil {
		metrics.RecordRequest(req.Cmd, types.StatusError, time.Since(start))
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidRequest, err)
	}

	resp, err := cmd(h, ctx, req)

	status := types.StatusOK
	if err != nil {
		status = types.StatusError
	}
	metrics.RecordRequest(req.Cmd, status, time.Since(start))
	return resp, err
}
