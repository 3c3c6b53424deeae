package store

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const credentialsFileName = "credentials.json"

// Credentials describes one registered public client. There is no client
// secret: PKCE clients authenticate with possession of the code verifier.
type Credentials struct {
	// ClientID is the application id registered with the provider.
	ClientID string `json:"client_id"`
	// CallbackURL is the redirect URI registered for the application.
	CallbackURL string `json:"callback_url"`
	// Scopes are the scopes the application was registered for.
	Scopes []string `json:"scopes,omitempty"`
	// CreatedAt is when the credentials were added, UTC.
	CreatedAt time.Time `json:"created_at"`
}

// CredentialStore is a file-backed store of client credentials keyed by
// client id.
type CredentialStore struct {
	path string

	mu          sync.RWMutex
	credentials map[string]*Credentials
}

// NewCredentialStore opens (or initializes) the credential store in baseDir.
func NewCredentialStore(baseDir string) (*CredentialStore, error) {
	s := &CredentialStore{
		path:        filepath.Join(baseDir, credentialsFileName),
		credentials: make(map[string]*Credentials),
	}

	credentials := make(map[string]*Credentials)
	found, err := readJSONFile(s.path, &credentials)
	if err != nil {
		return nil, err
	}
	if found {
		s.credentials = credentials
	}
	return s, nil
}

// Add stores credentials. An existing client id is rejected unless force is
// set.
func (s *CredentialStore) Add(c *Credentials, force bool) error {
	if c.ClientID == "" {
		return fmt.Errorf("credentials have no client id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.credentials[c.ClientID]; exists && !force {
		return fmt.Errorf("credentials for client %s already exist (use force to replace)", c.ClientID)
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.credentials[c.ClientID] = c

	return writeJSONFileAtomic(s.path, s.credentials)
}

// Get returns the credentials for a client id, or found=false.
func (s *CredentialStore) Get(clientID string) (*Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.credentials[clientID]
	return c, ok
}

// List returns all stored credentials ordered by client id.
func (s *CredentialStore) List() []*Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*Credentials, 0, len(s.credentials))
	for _, c := range s.credentials {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ClientID < list[j].ClientID
	})
	return list
}

// Remove deletes credentials. Removing absent credentials is not an error.
func (s *CredentialStore) Remove(clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credentials[clientID]; !ok {
		return nil
	}

	delete(s.credentials, clientID)
	return writeJSONFileAtomic(s.path, s.credentials)
}

// Resolve picks the credentials to use: the explicit client id when given,
// the sole stored entry when there is exactly one, otherwise an error that
// tells the user to choose.
func (s *CredentialStore) Resolve(clientID string) (*Credentials, error) {
	if clientID != "" {
		c, ok := s.Get(clientID)
		if !ok {
			return nil, fmt.Errorf("no credentials stored for client %s", clientID)
		}
		return c, nil
	}

	list := s.List()
	switch len(list) {
	case 0:
		return nil, fmt.Errorf("no credentials stored; add one with 'esiauth credentials add'")
	case 1:
		return list[0], nil
	default:
		return nil, fmt.Errorf("multiple credentials stored; pick one with --client-id")
	}
}
