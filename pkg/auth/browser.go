package auth

import (
	"fmt"
	"io"
	"sync"

	"github.com/skratchdot/open-golang/open"
)

// BrowserOpener opens URLs in a browser.
type BrowserOpener interface {
	Open(url string) error
}

// SystemBrowserOpener opens URLs using the system default browser.
type SystemBrowserOpener struct{}

// Open opens a URL in the system default browser.
func (s *SystemBrowserOpener) Open(url string) error {
	return open.Run(url)
}

// MockBrowserOpener records opened URLs instead of launching a browser.
type MockBrowserOpener struct {
	mu         sync.Mutex
	OpenedURLs []string
	Err        error
}

// Open records the URL and returns the configured error.
func (m *MockBrowserOpener) Open(url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OpenedURLs = append(m.OpenedURLs, url)
	return m.Err
}

// GetOpenedURLs returns a copy of the opened URLs.
func (m *MockBrowserOpener) GetOpenedURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	urls := make([]string, len(m.OpenedURLs))
	copy(urls, m.OpenedURLs)
	return urls
}

// OpenAuthorization prints the authorization URL to w and tries to open it
// with opener. A failure to launch the browser is reported on w and returned;
// the URL is still usable manually.
func (m *Manager) OpenAuthorization(opener BrowserOpener, w io.Writer) (string, error) {
	url, ok := m.AuthorizationURL()
	if !ok {
		return "", ErrNotConfigured
	}

	_, _ = fmt.Fprintf(w, "\nOpening browser to:\n%s\n\n", url)

	if err := opener.Open(url); err != nil {
		_, _ = fmt.Fprintf(w, "Failed to open browser automatically.\n")
		_, _ = fmt.Fprintf(w, "Please visit the URL above manually.\n")
		return url, fmt.Errorf("failed to open browser: %w", err)
	}

	return url, nil
}
