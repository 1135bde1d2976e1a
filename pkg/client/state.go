package client

import (
	"sync"

	"github.com/mesahub/mesa-backend/pkg/types"
)

// State is the local mirror of the table broadcasts. Every envelope replaces
// its slice wholesale, so readers always see a complete recent snapshot and
// never a partial merge.
type State struct {
	mu              sync.RWMutex
	users           []types.User
	messages        []types.ChatMessage
	character       types.Character
	hasCharacter    bool
	npcs            []types.NPC
	sharedItems     []types.Item
	sharedAbilities []types.Ability
}

func newState() *State {
	return &State{}
}

func (s *State) setUsers(users []types.User) {
	s.mu.Lock()
	s.users = users
	s.mu.Unlock()
}

func (s *State) setMessages(msgs []types.ChatMessage) {
	s.mu.Lock()
	s.messages = msgs
	s.mu.Unlock()
}

func (s *State) setCharacter(ch types.Character) {
	s.mu.Lock()
	s.character = ch
	s.hasCharacter = true
	s.mu.Unlock()
}

func (s *State) setNPCs(npcs []types.NPC) {
	s.mu.Lock()
	s.npcs = npcs
	s.mu.Unlock()
}

func (s *State) setSharedItems(items []types.Item) {
	s.mu.Lock()
	s.sharedItems = items
	s.mu.Unlock()
}

func (s *State) setSharedAbilities(abilities []types.Ability) {
	s.mu.Lock()
	s.sharedAbilities = abilities
	s.mu.Unlock()
}

// Users returns the current roster.
func (s *State) Users() []types.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloned(s.users)
}

// Messages returns the chat history, oldest first.
func (s *State) Messages() []types.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloned(s.messages)
}

// Character returns the canonical sheet as last echoed by the server. The
// second return is false until the first character envelope arrives.
func (s *State) Character() (types.Character, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.character, s.hasCharacter
}

// NPCs returns the NPC roster. Non-master clients never receive one.
func (s *State) NPCs() []types.NPC {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloned(s.npcs)
}

// SharedItems returns the item catalog.
func (s *State) SharedItems() []types.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloned(s.sharedItems)
}

// SharedAbilities returns the ability catalog.
func (s *State) SharedAbilities() []types.Ability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloned(s.sharedAbilities)
}

// sharedItem looks a catalog entry up by id.
func (s *State) sharedItem(id string) (types.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.sharedItems {
		if it.ID == id {
			return it, true
		}
	}
	return types.Item{}, false
}

// sharedAbility looks a catalog entry up by id.
func (s *State) sharedAbility(id string) (types.Ability, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ab := range s.sharedAbilities {
		if ab.ID == id {
			return ab, true
		}
	}
	return types.Ability{}, false
}

func cloned[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
