package bsky

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// SessionStore persists a session between runs. Load returns (nil, nil) when
// nothing has been stored yet.
type SessionStore interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// CreateSession logs in with an identifier (handle or DID) and an app password.
func (c *Client) CreateSession(ctx context.Context, identifier, password string) (*Session, error) {
	in := map[string]string{"identifier": identifier, "password": password}
	var s Session
	if err := c.postJSON(ctx, "com.atproto.server.createSession", in, authNone, &s); err != nil {
		return nil, err
	}
	c.setSession(&s)
	return &s, nil
}

// RefreshSession trades the refresh token of the current session for a new
// token pair.
func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	var s Session
	if err := c.postJSON(ctx, "com.atproto.server.refreshSession", nil, authRefresh, &s); err != nil {
		return nil, err
	}
	c.setSession(&s)
	return &s, nil
}

// Login resumes the stored session when its refresh token still works and
// falls back to a fresh login otherwise. The resulting session is written back
// to the store; a failed save is logged but does not fail the login.
func (c *Client) Login(ctx context.Context, store SessionStore, identifier, password string) (*Session, error) {
	if store != nil {
		stored, err := store.Load(ctx)
		if err != nil {
			c.logger.Warn("session_load_failed", zap.Error(err))
		}
		if stored != nil && stored.RefreshJwt != "" {
			c.setSession(stored)
			s, err := c.RefreshSession(ctx)
			if err == nil {
				c.logger.Info("session_resumed", zap.String("did", s.DID))
				c.save(ctx, store, s)
				return s, nil
			}
			c.logger.Info("session_refresh_failed", zap.Error(err))
			c.setSession(nil)
		}
	}

	s, err := c.CreateSession(ctx, identifier, password)
	if err != nil {
		return nil, fmt.Errorf("login %s: %w", identifier, err)
	}
	c.logger.Info("session_created", zap.String("did", s.DID), zap.String("handle", s.Handle))
	c.save(ctx, store, s)
	return s, nil
}

func (c *Client) save(ctx context.Context, store SessionStore, s *Session) {
	if store == nil {
		return
	}
	if err := store.Save(ctx, s); err != nil {
		c.logger.Warn("session_save_failed", zap.Error(err))
	}
}
