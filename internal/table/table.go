// Package table runs the shared session: one goroutine owns the client
// registry and all store access, so every broadcast a client sees is
// serialized in a single order.
package table

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesahub/mesa-backend/internal/rules"
	"github.com/mesahub/mesa-backend/internal/store"
	"github.com/mesahub/mesa-backend/pkg/types"
)

type Msg interface{ isTableMsg() }

// Join registers a client. The table immediately pushes the full initial
// state onto Outbox: roster, transcript, the user's own sheet, both shared
// catalogs, and the NPC roster when the user is the master.
type Join struct {
	UserID string
	Outbox chan types.ServerMessage
}

// Leave deregisters one connection. Outbox identifies which one: a stale
// leave from a connection that was already replaced by a newer Join must not
// evict its successor.
type Leave struct {
	UserID string
	Outbox chan types.ServerMessage
}

// FromClient carries one decoded command from a connected client.
type FromClient struct {
	UserID string
	Msg    types.ClientMessage
}

// Broadcast requests let the HTTP layer trigger fan-out after REST mutations.
type BroadcastUsers struct{}
type BroadcastSharedItems struct{}
type BroadcastSharedAbilities struct{}
type BroadcastNPCs struct{ MasterID string }

// GetView reflects internal state without data races; test-only.
type GetView struct{ Reply chan View }

type Shutdown struct{}

func (Join) isTableMsg()                     {}
func (Leave) isTableMsg()                    {}
func (FromClient) isTableMsg()               {}
func (BroadcastUsers) isTableMsg()           {}
func (BroadcastSharedItems) isTableMsg()     {}
func (BroadcastSharedAbilities) isTableMsg() {}
func (BroadcastNPCs) isTableMsg()            {}
func (GetView) isTableMsg()                  {}
func (Shutdown) isTableMsg()                 {}

type View struct {
	NumClients int
}

type Table struct {
	inbox     chan Msg
	clients   map[string]chan types.ServerMessage
	store     store.Store
	log       *zap.Logger
	rng       *rand.Rand
	chatLimit int
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(parent context.Context, st store.Store, log *zap.Logger, chatLimit int) *Table {
	ctx, cancel := context.WithCancel(parent)
	t := &Table{
		inbox:     make(chan Msg, 64),
		clients:   make(map[string]chan types.ServerMessage),
		store:     st,
		log:       log,
		rng:       rules.NewRNG(),
		chatLimit: chatLimit,
		ctx:       ctx,
		cancel:    cancel,
	}
	go t.loop()
	return t
}

func (t *Table) Inbox() chan<- Msg { return t.inbox }

func (t *Table) loop() {
	for {
		select {
		case <-t.ctx.Done():
			t.shutdown()
			return

		case m := <-t.inbox:
			switch msg := m.(type) {
			case Join:
				// a rejoin replaces the previous connection; closing its
				// outbox lets that connection's writer drain and exit
				if old, ok := t.clients[msg.UserID]; ok {
					close(old)
				}
				t.clients[msg.UserID] = msg.Outbox
				t.pushInitialState(msg.UserID)

			case Leave:
				if cur, ok := t.clients[msg.UserID]; ok && cur == msg.Outbox {
					close(cur)
					delete(t.clients, msg.UserID)
					t.broadcastUsers()
				}

			case FromClient:
				t.handleCommand(msg.UserID, msg.Msg)

			case BroadcastUsers:
				t.broadcastUsers()

			case BroadcastSharedItems:
				t.broadcastSharedItems()

			case BroadcastSharedAbilities:
				t.broadcastSharedAbilities()

			case BroadcastNPCs:
				t.broadcastNPCs(msg.MasterID)

			case GetView:
				msg.Reply <- View{NumClients: len(t.clients)}

			case Shutdown:
				t.shutdown()
				return
			}
		}
	}
}

func (t *Table) shutdown() {
	for id, ch := range t.clients {
		close(ch)
		delete(t.clients, id)
	}
	t.cancel()
}

// sendTo is non-blocking: a client whose outbox is full gets dropped rather
// than stalling the loop for everyone else.
func (t *Table) sendTo(userID string, msg types.ServerMessage) {
	ch, ok := t.clients[userID]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		t.log.Warn("dropping slow client", zap.String("user_id", userID))
		close(ch)
		delete(t.clients, userID)
	}
}

func (t *Table) pushInitialState(userID string) {
	user, err := t.store.GetUser(t.ctx, userID)
	if err != nil {
		t.log.Warn("join for unknown user", zap.String("user_id", userID), zap.Error(err))
		return
	}

	t.sendUsersTo(userID, user.IsMaster)

	if msgs, err := t.store.GetMessages(t.ctx, t.chatLimit); err == nil {
		t.sendTo(userID, types.ServerMessage{Type: types.SliceMessages, Data: msgs})
	} else {
		t.log.Error("load messages", zap.Error(err))
	}

	if ch, err := t.store.GetCharacter(t.ctx, userID); err == nil {
		t.sendTo(userID, types.ServerMessage{Type: types.SliceCharacter, Data: ch})
	} else if err != store.ErrNotFound {
		t.log.Error("load character", zap.String("user_id", userID), zap.Error(err))
	}

	if items, err := t.store.GetSharedItems(t.ctx); err == nil {
		t.sendTo(userID, types.ServerMessage{Type: types.SliceSharedItems, Data: items})
	} else {
		t.log.Error("load shared items", zap.Error(err))
	}

	if abilities, err := t.store.GetSharedAbilities(t.ctx); err == nil {
		t.sendTo(userID, types.ServerMessage{Type: types.SliceSharedAbilities, Data: abilities})
	} else {
		t.log.Error("load shared abilities", zap.Error(err))
	}

	if user.IsMaster {
		t.broadcastNPCs(userID)
	}
}

// usersFor filters the roster for one recipient: non-masters only see their
// own character id.
func usersFor(users []types.User, recipientID string, recipientIsMaster bool) []types.User {
	out := make([]types.User, len(users))
	copy(out, users)
	if recipientIsMaster {
		return out
	}
	for i := range out {
		if out[i].ID != recipientID {
			out[i].CharacterID = ""
		}
	}
	return out
}

func (t *Table) sendUsersTo(userID string, isMaster bool) {
	users, err := t.store.GetUsers(t.ctx)
	if err != nil {
		t.log.Error("load users", zap.Error(err))
		return
	}
	t.sendTo(userID, types.ServerMessage{Type: types.SliceUsers, Data: usersFor(users, userID, isMaster)})
}

func (t *Table) broadcastUsers() {
	users, err := t.store.GetUsers(t.ctx)
	if err != nil {
		t.log.Error("load users", zap.Error(err))
		return
	}
	master := map[string]bool{}
	for _, u := range users {
		master[u.ID] = u.IsMaster
	}
	for id := range t.clients {
		t.sendTo(id, types.ServerMessage{Type: types.SliceUsers, Data: usersFor(users, id, master[id])})
	}
}

func (t *Table) broadcastMessages() {
	msgs, err := t.store.GetMessages(t.ctx, t.chatLimit)
	if err != nil {
		t.log.Error("load messages", zap.Error(err))
		return
	}
	for id := range t.clients {
		t.sendTo(id, types.ServerMessage{Type: types.SliceMessages, Data: msgs})
	}
}

func (t *Table) broadcastSharedItems() {
	items, err := t.store.GetSharedItems(t.ctx)
	if err != nil {
		t.log.Error("load shared items", zap.Error(err))
		return
	}
	for id := range t.clients {
		t.sendTo(id, types.ServerMessage{Type: types.SliceSharedItems, Data: items})
	}
}

func (t *Table) broadcastSharedAbilities() {
	abilities, err := t.store.GetSharedAbilities(t.ctx)
	if err != nil {
		t.log.Error("load shared abilities", zap.Error(err))
		return
	}
	for id := range t.clients {
		t.sendTo(id, types.ServerMessage{Type: types.SliceSharedAbilities, Data: abilities})
	}
}

func (t *Table) broadcastNPCs(masterID string) {
	npcs, err := t.store.GetNPCs(t.ctx, masterID)
	if err != nil {
		t.log.Error("load npcs", zap.Error(err))
		return
	}
	t.sendTo(masterID, types.ServerMessage{Type: types.SliceNPCs, Data: npcs})
}

func (t *Table) sendCharacter(userID string) {
	ch, err := t.store.GetCharacter(t.ctx, userID)
	if err != nil {
		t.log.Warn("load character", zap.String("user_id", userID), zap.Error(err))
		return
	}
	t.sendTo(userID, types.ServerMessage{Type: types.SliceCharacter, Data: ch})
}

func (t *Table) handleCommand(userID string, msg types.ClientMessage) {
	user, err := t.store.GetUser(t.ctx, userID)
	if err != nil {
		t.log.Warn("command from unknown user", zap.String("user_id", userID), zap.Error(err))
		return
	}

	switch msg.Type {
	case types.CmdMessage:
		t.handleChat(user, msg.Content)

	case types.CmdDiceRoll:
		t.handleDiceRoll(user, msg)

	case types.CmdUpdateCharacter:
		t.handleUpdateCharacter(user, msg.Data)

	case types.CmdUpdateHealth:
		if !user.IsMaster {
			t.log.Warn("update_health from non-master", zap.String("user_id", userID))
			return
		}
		if msg.UserID == "" || msg.HealthPoints == nil {
			return
		}
		if err := t.store.UpdateUserHealth(t.ctx, msg.UserID, *msg.HealthPoints); err != nil {
			t.log.Error("update health", zap.Error(err))
			return
		}
		t.broadcastUsers()
		t.sendCharacter(msg.UserID)

	case types.CmdAddSharedItem, types.CmdUpdateSharedItem, types.CmdDeleteSharedItem,
		types.CmdAddSharedAbility, types.CmdUpdateSharedAbility, types.CmdDeleteSharedAbility,
		types.CmdAddItemToCharacter, types.CmdAddAbilityToCharacter:
		if !user.IsMaster {
			t.log.Warn("master command from non-master",
				zap.String("user_id", userID), zap.String("type", msg.Type))
			return
		}
		t.handleMasterCommand(user, msg)

	default:
		t.log.Warn("unknown command type", zap.String("type", msg.Type))
	}
}

func (t *Table) handleChat(user types.User, content string) {
	if content == "" {
		return
	}
	err := t.store.CreateMessage(t.ctx, types.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Nickname:  user.Nickname,
		Content:   content,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.log.Error("create message", zap.Error(err))
		return
	}
	t.broadcastMessages()
}

func (t *Table) handleDiceRoll(user types.User, msg types.ClientMessage) {
	faces, err := rules.Faces(msg.DiceType, msg.CustomValue)
	if err != nil {
		// lenient like the rest of the channel: fall back to a d20
		faces = 20
	}
	result := rules.Roll(t.rng, faces)

	rollerID := user.ID
	rollerNickname := user.Nickname

	// the master may roll on behalf of another character or an NPC
	if msg.CharacterID != "" && msg.CharacterID != user.ID && user.IsMaster {
		if target, err := t.store.GetUser(t.ctx, msg.CharacterID); err == nil {
			rollerID = target.ID
			rollerNickname = target.Nickname
		} else if npcs, err := t.store.GetNPCs(t.ctx, user.ID); err == nil {
			for _, npc := range npcs {
				if npc.ID == msg.CharacterID {
					rollerNickname = npc.Nickname
					break
				}
			}
		}
	}

	if err := t.store.AddDiceResult(t.ctx, rollerID, result); err != nil {
		t.log.Error("record dice result", zap.Error(err))
	}

	err = t.store.CreateMessage(t.ctx, types.ChatMessage{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Nickname:   rollerNickname,
		Content:    fmt.Sprintf("%s rolled %s: %d", rollerNickname, msg.DiceType, result),
		Timestamp:  time.Now(),
		IsDiceRoll: true,
		DiceType:   msg.DiceType,
		DiceResult: result,
	})
	if err != nil {
		t.log.Error("create roll message", zap.Error(err))
		return
	}
	t.broadcastMessages()
	t.broadcastUsers()
}

func (t *Table) handleUpdateCharacter(user types.User, data *types.CharacterUpdate) {
	if data == nil {
		return
	}
	if err := store.ApplyCharacterUpdate(t.ctx, t.store, user.ID, *data); err != nil {
		t.log.Error("update character", zap.String("user_id", user.ID), zap.Error(err))
	}

	// canonical echo back to the editing client
	t.sendCharacter(user.ID)
	if data.HealthPoints != nil || data.MaxHealthPoints != nil {
		t.broadcastUsers()
	}
}

func (t *Table) handleMasterCommand(user types.User, msg types.ClientMessage) {
	switch msg.Type {
	case types.CmdAddSharedItem:
		if msg.Item == nil {
			return
		}
		item := *msg.Item
		if item.ID == "" {
			item.ID = "item-" + uuid.NewString()
		}
		if err := t.store.CreateSharedItem(t.ctx, user.ID, item); err != nil {
			t.log.Error("create shared item", zap.Error(err))
			return
		}
		t.broadcastSharedItems()

	case types.CmdUpdateSharedItem:
		if msg.Item == nil || msg.Item.ID == "" {
			return
		}
		if err := t.store.UpdateSharedItem(t.ctx, *msg.Item); err != nil {
			t.log.Error("update shared item", zap.Error(err))
			return
		}
		t.broadcastSharedItems()

	case types.CmdDeleteSharedItem:
		if msg.ItemID == "" {
			return
		}
		if err := t.store.DeleteSharedItem(t.ctx, msg.ItemID); err != nil {
			t.log.Error("delete shared item", zap.Error(err))
			return
		}
		t.broadcastSharedItems()

	case types.CmdAddSharedAbility:
		if msg.Ability == nil {
			return
		}
		ability := *msg.Ability
		if ability.ID == "" {
			ability.ID = "ability-" + uuid.NewString()
		}
		if err := t.store.CreateSharedAbility(t.ctx, user.ID, ability); err != nil {
			t.log.Error("create shared ability", zap.Error(err))
			return
		}
		t.broadcastSharedAbilities()

	case types.CmdUpdateSharedAbility:
		if msg.Ability == nil || msg.Ability.ID == "" {
			return
		}
		if err := t.store.UpdateSharedAbility(t.ctx, *msg.Ability); err != nil {
			t.log.Error("update shared ability", zap.Error(err))
			return
		}
		t.broadcastSharedAbilities()

	case types.CmdDeleteSharedAbility:
		if msg.AbilityID == "" {
			return
		}
		if err := t.store.DeleteSharedAbility(t.ctx, msg.AbilityID); err != nil {
			t.log.Error("delete shared ability", zap.Error(err))
			return
		}
		t.broadcastSharedAbilities()

	case types.CmdAddItemToCharacter:
		if msg.UserID == "" || msg.Item == nil {
			return
		}
		item := *msg.Item
		if item.Quantity <= 0 {
			item.Quantity = 1
		}
		if err := t.store.AddItemToCharacter(t.ctx, msg.UserID, item); err != nil {
			t.log.Error("add item to character", zap.Error(err))
			return
		}
		t.sendCharacter(msg.UserID)

	case types.CmdAddAbilityToCharacter:
		if msg.UserID == "" || msg.Ability == nil {
			return
		}
		if err := t.store.AddAbilityToCharacter(t.ctx, msg.UserID, *msg.Ability); err != nil {
			t.log.Error("add ability to character", zap.Error(err))
			return
		}
		t.sendCharacter(msg.UserID)
	}
}
