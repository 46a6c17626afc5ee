package session

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
)

// ErrEmptyToken is returned by every persister for an empty token.
var ErrEmptyToken = errors.New("empty session token")

// ResponsePersister writes the session cookie to an HTTP response. It is
// used when a flow completes inside a request handler.
type ResponsePersister struct {
	W      http.ResponseWriter
	Config CookieConfig
}

func (p ResponsePersister) PersistSession(_ context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	SetCookie(p.W, token, p.Config)
	return nil
}

// JarPersister stores the session cookie in a cookie jar for URL, the way a
// browser would after the server set it.
type JarPersister struct {
	Jar    http.CookieJar
	URL    *url.URL
	Config CookieConfig
}

func (p JarPersister) PersistSession(_ context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if p.Jar == nil || p.URL == nil {
		return errors.New("jar persister not configured")
	}
	p.Jar.SetCookies(p.URL, []*http.Cookie{NewCookie(token, p.Config)})
	return nil
}

// MemoryPersister keeps the last token in memory.
type MemoryPersister struct {
	mu    sync.Mutex
	token string
}

func (p *MemoryPersister) PersistSession(_ context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	p.mu.Lock()
	p.token = token
	p.mu.Unlock()
	return nil
}

// Token returns the last persisted token.
func (p *MemoryPersister) Token() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// Clear forgets the stored token.
func (p *MemoryPersister) Clear() {
	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()
}
