package store

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"esiauth/internal/token"
	"esiauth/pkg/logging"
)

const tokensFileName = "tokens.json"

// TokenStore is a file-backed store of character tokens, keyed by client id
// and character id. The in-memory mirror is guarded by a RWMutex; every
// mutation is persisted atomically before it returns. Tokens cross the
// store boundary as copies, so callers can mutate what they get back
// without reaching into the mirror. Implements sso.TokenSaver.
type TokenStore struct {
	path string

	mu     sync.RWMutex
	tokens map[string]map[int64]*token.CharacterToken
}

// NewTokenStore opens (or initializes) the token store in baseDir.
func NewTokenStore(baseDir string) (*TokenStore, error) {
	s := &TokenStore{
		path:   filepath.Join(baseDir, tokensFileName),
		tokens: make(map[string]map[int64]*token.CharacterToken),
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *TokenStore) Path() string {
	return s.path
}

func (s *TokenStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := make(map[string]map[int64]*token.CharacterToken)
	found, err := readJSONFile(s.path, &tokens)
	if err != nil {
		return err
	}
	if found {
		s.tokens = tokens
	}
	return nil
}

// Reload re-reads the backing file, picking up external changes.
func (s *TokenStore) Reload() error {
	return s.load()
}

// SaveToken stores the token under its client and character id.
func (s *TokenStore) SaveToken(t *token.CharacterToken) error {
	if t.ClientID == "" {
		return fmt.Errorf("token for character %d has no client id", t.CharacterID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byCharacter, ok := s.tokens[t.ClientID]
	if !ok {
		byCharacter = make(map[int64]*token.CharacterToken)
		s.tokens[t.ClientID] = byCharacter
	}
	byCharacter[t.CharacterID] = t.Clone()

	if err := writeJSONFileAtomic(s.path, s.tokens); err != nil {
		return err
	}

	logging.Info("Store", "SECURITY_AUDIT: persisted token for character %d (client %s)", t.CharacterID, t.ClientID)
	return nil
}

// GetToken returns a copy of the token for a character, or found=false.
func (s *TokenStore) GetToken(clientID string, characterID int64) (*token.CharacterToken, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[clientID][characterID]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// ListTokens returns copies of all tokens for a client, ordered by
// character name.
func (s *TokenStore) ListTokens(clientID string) []*token.CharacterToken {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make([]*token.CharacterToken, 0, len(s.tokens[clientID]))
	for _, t := range s.tokens[clientID] {
		tokens = append(tokens, t.Clone())
	}
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].CharacterName != tokens[j].CharacterName {
			return tokens[i].CharacterName < tokens[j].CharacterName
		}
		return tokens[i].CharacterID < tokens[j].CharacterID
	})
	return tokens
}

// ListAllTokens returns copies of every stored token across clients.
func (s *TokenStore) ListAllTokens() []*token.CharacterToken {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tokens []*token.CharacterToken
	for _, byCharacter := range s.tokens {
		for _, t := range byCharacter {
			tokens = append(tokens, t.Clone())
		}
	}
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].CharacterName != tokens[j].CharacterName {
			return tokens[i].CharacterName < tokens[j].CharacterName
		}
		return tokens[i].CharacterID < tokens[j].CharacterID
	})
	return tokens
}

// RemoveToken deletes a character's token. Removing an absent token is not
// an error.
func (s *TokenStore) RemoveToken(clientID string, characterID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byCharacter, ok := s.tokens[clientID]
	if !ok {
		return nil
	}
	if _, ok := byCharacter[characterID]; !ok {
		return nil
	}

	delete(byCharacter, characterID)
	if len(byCharacter) == 0 {
		delete(s.tokens, clientID)
	}

	if err := writeJSONFileAtomic(s.path, s.tokens); err != nil {
		return err
	}

	logging.Info("Store", "SECURITY_AUDIT: removed token for character %d (client %s)", characterID, clientID)
	return nil
}

// Clear removes every stored token.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = make(map[string]map[int64]*token.CharacterToken)
	if err := writeJSONFileAtomic(s.path, s.tokens); err != nil {
		return err
	}

	logging.Info("Store", "SECURITY_AUDIT: cleared token store")
	return nil
}
