package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/smoothscroll-go/internal/security"
	"github.com/Rorqualx/smoothscroll-go/internal/types"
)

// defaultOpenTimeout bounds sessions.create when maxTimeout is not set.
const defaultOpenTimeout = 60 * time.Second

// handleSessionCreate opens req.URL in a new session.
func (h *Handler) handleSessionCreate(ctx context.Context, req *types.Request) (*types.Response, error) {
	if req.URL == "" {
		return nil, types.ErrURLRequired
	}
	if err := security.ValidateURL(req.URL, h.config.AllowPrivateURLs); err != nil {
		log.Warn().Err(err).Str("url", security.RedactURL(req.URL)).Msg("URL validation failed")
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}

	id := req.Session
	if id == "" {
		generated, err := security.GenerateSessionID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate session ID: %w", err)
		}
		id = generated
	}
	if msg := security.ValidateSessionID(id); msg != "" {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidRequest, msg)
	}

	timeout := defaultOpenTimeout
	if req.MaxTimeout > 0 {
		timeout = time.Duration(req.MaxTimeout) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sess, err := h.sessions.Create(ctx, id, req.URL)
	if err != nil {
		return nil, err
	}

	return &types.Response{
		Message:  "Session created successfully",
		Session:  sess.ID,
		Sessions: []string{sess.ID},
	}, nil
}

// handleSessionList lists all open sessions.
func (h *Handler) handleSessionList(_ context.Context, _ *types.Request) (*types.Response, error) {
	return &types.Response{
		Message:  "Session list retrieved",
		Sessions: h.sessions.List(),
	}, nil
}

// handleSessionDestroy closes a session and its page.
func (h *Handler) handleSessionDestroy(_ context.Context, req *types.Request) (*types.Response, error) {
	if req.Session == "" {
		return nil, types.ErrSessionRequired
	}
	if err := h.sessions.Destroy(req.Session); err != nil {
		return nil, fmt.Errorf("failed to destroy session: %w", err)
	}
	return &types.Response{
		Message: "Session destroyed successfully",
		Session: req.Session,
	}, nil
}
