package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesahub/mesa-backend/internal/rules"
	"github.com/mesahub/mesa-backend/pkg/types"
)

// fakeConn is an in-memory transport standing in for the websocket.
type fakeConn struct {
	incoming  chan []byte
	sent      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan []byte, 16),
		sent:     make(chan []byte, 64),
		closed:   make(chan struct{}),
	}
}

func (f *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-f.incoming:
		return data, nil
	case <-f.closed:
		return nil, errors.New("transport closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeConn) Write(ctx context.Context, data []byte) error {
	select {
	case f.sent <- data:
		return nil
	case <-f.closed:
		return errors.New("transport closed")
	}
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func newConnected(t *testing.T) (*Client, *fakeConn) {
	t.Helper()
	c := New(nil)
	f := newFakeConn()
	c.start(f)
	t.Cleanup(func() { _ = c.Close() })
	return c, f
}

// push serializes one server envelope into the fake transport.
func push(t *testing.T, f *fakeConn, typ string, data any) {
	t.Helper()
	raw, err := json.Marshal(types.ServerMessage{Type: typ, Data: data})
	require.NoError(t, err)
	f.incoming <- raw
}

// recvSent waits for one outgoing command and decodes it.
func recvSent(t *testing.T, f *fakeConn, within time.Duration) types.ClientMessage {
	t.Helper()
	select {
	case raw := <-f.sent:
		var msg types.ClientMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(within):
		t.Fatalf("timed out waiting for an outgoing command")
		return types.ClientMessage{} // unreachable
	}
}

func recvNothing(t *testing.T, f *fakeConn, within time.Duration) {
	t.Helper()
	select {
	case raw := <-f.sent:
		t.Fatalf("expected no outgoing command, got %s", raw)
	case <-time.After(within):
	}
}

func TestDispatch_CharacterReplacesStoreAndWorkingCopy(t *testing.T) {
	c, f := newConnected(t)

	ch := types.Character{
		UserID:          "u1",
		Attributes:      types.DefaultAttributes(),
		Skills:          []types.Skill{{Name: "Stealth", Value: 3}},
		HealthPoints:    7,
		MaxHealthPoints: 12,
	}
	push(t, f, types.SliceCharacter, ch)

	require.Eventually(t, func() bool {
		_, ok := c.State().Character()
		return ok
	}, time.Second, 5*time.Millisecond)

	got, _ := c.State().Character()
	assert.Equal(t, 7, got.HealthPoints)
	require.Len(t, got.Skills, 1)
	assert.Equal(t, "Stealth", got.Skills[0].Name)

	// reconciliation is total replacement: the working copy follows the echo
	working := c.Editor().Working()
	assert.Equal(t, got, working)
}

func TestDispatch_RosterTotalReplacement(t *testing.T) {
	c, f := newConnected(t)

	push(t, f, types.SliceUsers, []types.User{{ID: "u1"}, {ID: "u2"}})
	require.Eventually(t, func() bool { return len(c.State().Users()) == 2 },
		time.Second, 5*time.Millisecond)

	// an empty roster envelope empties the mirror, it does not merge
	push(t, f, types.SliceUsers, []types.User{})
	require.Eventually(t, func() bool { return len(c.State().Users()) == 0 },
		time.Second, 5*time.Millisecond)
}

func TestDispatch_MalformedEnvelopeDropped(t *testing.T) {
	c, f := newConnected(t)

	f.incoming <- []byte("{not json")
	f.incoming <- []byte(`{"type":"users","data":"not a list"}`)
	push(t, f, types.SliceUsers, []types.User{{ID: "u1"}})

	// the stream survives both bad frames
	require.Eventually(t, func() bool { return len(c.State().Users()) == 1 },
		time.Second, 5*time.Millisecond)
}

func TestSendMessage_TrimsAndDropsEmpty(t *testing.T) {
	c, f := newConnected(t)

	c.SendMessage("   ")
	recvNothing(t, f, 50*time.Millisecond)

	c.SendMessage("  hello  ")
	msg := recvSent(t, f, time.Second)
	assert.Equal(t, types.CmdMessage, msg.Type)
	assert.Equal(t, "hello", msg.Content)
}

func TestRollDice_LocalValidation(t *testing.T) {
	c, f := newConnected(t)

	err := c.RollDice(rules.DiceCustom, 0, "")
	assert.ErrorIs(t, err, rules.ErrInvalidFaces)
	err = c.RollDice("d7", 0, "")
	assert.ErrorIs(t, err, rules.ErrUnknownDice)
	recvNothing(t, f, 50*time.Millisecond)

	require.NoError(t, c.RollDice("d6", 0, ""))
	msg := recvSent(t, f, time.Second)
	assert.Equal(t, types.CmdDiceRoll, msg.Type)
	assert.Equal(t, "d6", msg.DiceType)

	require.NoError(t, c.RollDice(rules.DiceCustom, 37, "target-1"))
	msg = recvSent(t, f, time.Second)
	assert.Equal(t, 37, msg.CustomValue)
	assert.Equal(t, "target-1", msg.CharacterID)
}

func TestEditor_HealthEditsClampLocally(t *testing.T) {
	c, _ := newConnected(t)
	c.Editor().reset(types.Character{HealthPoints: 10, MaxHealthPoints: 10})

	c.Editor().SetHealth(-5)
	assert.Equal(t, 0, c.Editor().Working().HealthPoints)

	c.Editor().SetHealth(99)
	assert.Equal(t, 10, c.Editor().Working().HealthPoints)

	c.Editor().SetMaxHealth(4)
	w := c.Editor().Working()
	assert.Equal(t, 4, w.MaxHealthPoints)
	assert.Equal(t, 4, w.HealthPoints)
}

func TestEditor_HealthEditsIgnoredUntilFirstEcho(t *testing.T) {
	c, f := newConnected(t)
	c.HealthDebounce = 25 * time.Millisecond

	// no character envelope yet: the copy is unseeded and edits must not
	// clamp against the zero-valued maximum or commit anything
	c.Editor().SetHealth(5)
	c.Editor().AdjustHealth(-2)
	c.Editor().SetMaxHealth(3)
	recvNothing(t, f, 4*c.HealthDebounce)
	assert.Equal(t, 0, c.Editor().Working().MaxHealthPoints)

	c.Editor().reset(types.Character{HealthPoints: 10, MaxHealthPoints: 10})
	c.Editor().SetHealth(6)
	msg := recvSent(t, f, time.Second)
	require.NotNil(t, msg.Data)
	require.NotNil(t, msg.Data.HealthPoints)
	assert.Equal(t, 6, *msg.Data.HealthPoints)
}

func TestEditor_DebounceCoalescesHealthEdits(t *testing.T) {
	c, f := newConnected(t)
	c.HealthDebounce = 25 * time.Millisecond
	c.Editor().reset(types.Character{HealthPoints: 10, MaxHealthPoints: 10})

	for i := 0; i < 5; i++ {
		c.Editor().AdjustHealth(-1)
	}

	// one command, carrying the final value
	msg := recvSent(t, f, time.Second)
	assert.Equal(t, types.CmdUpdateCharacter, msg.Type)
	require.NotNil(t, msg.Data)
	require.NotNil(t, msg.Data.HealthPoints)
	assert.Equal(t, 5, *msg.Data.HealthPoints)
	require.NotNil(t, msg.Data.MaxHealthPoints)
	assert.Equal(t, 10, *msg.Data.MaxHealthPoints)
	// only the health pair travels; no other section rides along
	assert.Nil(t, msg.Data.Attributes)
	assert.Nil(t, msg.Data.Skills)

	recvNothing(t, f, 4*c.HealthDebounce)
}

func TestEditor_EditsArePendingUntilCommit(t *testing.T) {
	c, f := newConnected(t)
	c.Editor().reset(types.Character{
		Attributes:      types.DefaultAttributes(),
		HealthPoints:    10,
		MaxHealthPoints: 10,
	})

	attrs := types.DefaultAttributes()
	attrs.Strength = 18
	c.Editor().SetAttributes(attrs)
	c.Editor().SetSkills([]types.Skill{{Name: "Stealth", Value: 3}})
	recvNothing(t, f, 50*time.Millisecond)

	c.Editor().Commit()
	msg := recvSent(t, f, time.Second)
	assert.Equal(t, types.CmdUpdateCharacter, msg.Type)
	require.NotNil(t, msg.Data)
	require.NotNil(t, msg.Data.Attributes)
	assert.Equal(t, 18, msg.Data.Attributes.Strength)
	require.Len(t, msg.Data.Skills, 1)
	// a full commit carries every section, empty ones included
	assert.NotNil(t, msg.Data.Inventory)
	assert.NotNil(t, msg.Data.Abilities)
	assert.NotNil(t, msg.Data.Currency)
}

func TestAttach_MakesIndependentCopies(t *testing.T) {
	c, f := newConnected(t)
	c.State().setSharedItems([]types.Item{
		{ID: "item-1", Name: "Rope", IsPublic: true},
	})

	require.NoError(t, c.AddItemToCharacter("u1", "item-1"))
	require.NoError(t, c.AddItemToCharacter("u1", "item-1"))

	first := recvSent(t, f, time.Second)
	second := recvSent(t, f, time.Second)
	require.NotNil(t, first.Item)
	require.NotNil(t, second.Item)

	// two attaches of the same entry produce two distinct copies
	assert.NotEqual(t, first.Item.ID, second.Item.ID)
	assert.Equal(t, 1, first.Item.Quantity)
	assert.Equal(t, "Rope", first.Item.Name)
	assert.NotEqual(t, "item-1", first.Item.ID)

	// the catalog entry itself is untouched
	items := c.State().SharedItems()
	require.Len(t, items, 1)
	assert.Equal(t, "item-1", items[0].ID)

	err := c.AddItemToCharacter("u1", "ghost")
	assert.Error(t, err)
	recvNothing(t, f, 50*time.Millisecond)
}

func TestAttach_AbilityFromCatalog(t *testing.T) {
	c, f := newConnected(t)
	c.State().setSharedAbilities([]types.Ability{
		{ID: "ability-1", Name: "Smite", Cost: "2 mana"},
	})

	require.NoError(t, c.AddAbilityToCharacter("u1", "ability-1"))
	msg := recvSent(t, f, time.Second)
	assert.Equal(t, types.CmdAddAbilityToCharacter, msg.Type)
	assert.Equal(t, "u1", msg.UserID)
	require.NotNil(t, msg.Ability)
	assert.Equal(t, "Smite", msg.Ability.Name)
	assert.NotEqual(t, "ability-1", msg.Ability.ID)
}

func TestSharedItemCreation_StampsProvisionalID(t *testing.T) {
	c, f := newConnected(t)

	c.AddSharedItem(types.Item{Name: "Torch"})
	msg := recvSent(t, f, time.Second)
	require.NotNil(t, msg.Item)
	assert.Regexp(t, `^item-\d+$`, msg.Item.ID)
	assert.False(t, msg.Item.CreatedAt.IsZero())

	c.AddSharedAbility(types.Ability{Name: "Smite"})
	msg = recvSent(t, f, time.Second)
	require.NotNil(t, msg.Ability)
	assert.Regexp(t, `^ability-\d+$`, msg.Ability.ID)
}

func TestDisconnected_SendsAreSilentNoOps(t *testing.T) {
	c := New(nil)

	// never connected: nothing panics, nothing is sent
	c.SendMessage("hello")
	assert.NoError(t, c.RollDice("d20", 0, ""))
	c.AddSharedItem(types.Item{Name: "Torch"})
	c.UpdateHealth("u1", 5)

	// validation still runs locally
	assert.ErrorIs(t, c.RollDice(rules.DiceCustom, 0, ""), rules.ErrInvalidFaces)
}

func TestReadFailure_MarksDisconnected(t *testing.T) {
	c, f := newConnected(t)
	require.True(t, c.Connected())

	_ = f.Close()
	require.Eventually(t, func() bool { return !c.Connected() },
		time.Second, 5*time.Millisecond)

	// state stays readable and sends degrade to no-ops
	c.SendMessage("anyone there?")
	_ = c.State().Users()
}

func TestRedial_ClosesPreviousConn(t *testing.T) {
	c := New(nil)
	t.Cleanup(func() { _ = c.Close() })

	first := newFakeConn()
	c.start(first)
	second := newFakeConn()
	c.start(second)

	assert.True(t, first.isClosed())
	assert.False(t, second.isClosed())
	require.True(t, c.Connected())

	// commands flow over the new transport
	c.SendMessage("still here")
	msg := recvSent(t, second, time.Second)
	assert.Equal(t, "still here", msg.Content)
}
