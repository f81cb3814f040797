package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// Sync consumes the change events of one table
type Sync interface {
	Table() string
	Apply(change *domain.Change) error
}

// Loader is a Sync that can repopulate itself with a full fetch
type Loader interface {
	Load(ctx context.Context, api *API, accessToken string) error
}

// Collection is a local, change-fed copy of the viewer's rows of one table.
// Inserts bump the unread counter; updates and resets recount it from the rows.
type Collection[T any] struct {
	table    string
	viewer   string
	idOf     func(*T) string
	isUnread func(*T, string) bool
	accept   func(*T) bool

	mu       sync.RWMutex
	items    []T
	unread   int
	onChange []func()
}

// NewCollection creates an empty collection for viewer
func NewCollection[T any](table, viewer string, idOf func(*T) string, isUnread func(item *T, viewer string) bool) *Collection[T] {
	return &Collection[T]{
		table:    table,
		viewer:   viewer,
		idOf:     idOf,
		isUnread: isUnread,
	}
}

// Table returns the change feed table the collection follows
func (c *Collection[T]) Table() string {
	return c.table
}

// Viewer returns the user the unread count is computed for
func (c *Collection[T]) Viewer() string {
	return c.viewer
}

// OnChange registers fn to run after every mutation
func (c *Collection[T]) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = append(c.onChange, fn)
	c.mu.Unlock()
}

// Apply decodes the change record and inserts or updates it
func (c *Collection[T]) Apply(change *domain.Change) error {
	if change.Table != c.table {
		return nil
	}
	var item T
	if err := json.Unmarshal(change.Record, &item); err != nil {
		return fmt.Errorf("failed to decode %s record: %w", c.table, err)
	}
	if c.accept != nil && !c.accept(&item) {
		return nil
	}

	switch change.Type {
	case domain.ChangeInsert:
		c.Insert(item)
	case domain.ChangeUpdate:
		c.Update(item)
	}
	return nil
}

// Insert prepends item and increments unread if it is unread for the viewer
func (c *Collection[T]) Insert(item T) {
	c.mu.Lock()
	c.items = append([]T{item}, c.items...)
	if c.isUnread(&item, c.viewer) {
		c.unread++
	}
	hooks := c.onChange
	c.mu.Unlock()
	notify(hooks)
}

// Update replaces the entry with the same id and recounts unread.
// It reports false when no entry matched.
func (c *Collection[T]) Update(item T) bool {
	id := c.idOf(&item)
	c.mu.Lock()
	found := false
	for i := range c.items {
		if c.idOf(&c.items[i]) == id {
			c.items[i] = item
			found = true
			break
		}
	}
	if !found {
		c.mu.Unlock()
		return false
	}
	c.recount()
	hooks := c.onChange
	c.mu.Unlock()
	notify(hooks)
	return true
}

// Reset replaces every entry after a full fetch
func (c *Collection[T]) Reset(items []T) {
	c.mu.Lock()
	c.items = make([]T, 0, len(items))
	for _, item := range items {
		if c.accept == nil || c.accept(&item) {
			c.items = append(c.items, item)
		}
	}
	c.recount()
	hooks := c.onChange
	c.mu.Unlock()
	notify(hooks)
}

// Items returns a copy of the entries, newest first
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of entries
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Unread returns the number of entries unread by the viewer
func (c *Collection[T]) Unread() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.unread
}

// caller holds c.mu
func (c *Collection[T]) recount() {
	n := 0
	for i := range c.items {
		if c.isUnread(&c.items[i], c.viewer) {
			n++
		}
	}
	c.unread = n
}

func notify(hooks []func()) {
	for _, fn := range hooks {
		fn()
	}
}

// ConversationSync follows the viewer's conversations
type ConversationSync struct {
	*Collection[domain.Conversation]
}

// NewConversationSync creates a conversation sync for viewer
func NewConversationSync(viewer string) *ConversationSync {
	return &ConversationSync{NewCollection(domain.TableConversations, viewer,
		func(c *domain.Conversation) string { return c.ID },
		func(c *domain.Conversation, viewer string) bool {
			return !c.IsRead && c.LastSenderID != "" && c.LastSenderID != viewer
		},
	)}
}

func (s *ConversationSync) Load(ctx context.Context, api *API, accessToken string) error {
	convs, err := api.Conversations(ctx, accessToken)
	if err != nil {
		return err
	}
	s.Reset(convs)
	return nil
}

// MessageSync follows the messages of one conversation
type MessageSync struct {
	*Collection[domain.Message]
	conversationID string
}

// NewMessageSync creates a message sync for one conversation seen by viewer
func NewMessageSync(viewer, conversationID string) *MessageSync {
	c := NewCollection(domain.TableMessages, viewer,
		func(m *domain.Message) string { return m.ID },
		func(m *domain.Message, viewer string) bool {
			return !m.IsRead && m.SenderID != viewer
		},
	)
	c.accept = func(m *domain.Message) bool { return m.ConversationID == conversationID }
	return &MessageSync{Collection: c, conversationID: conversationID}
}

// ConversationID returns the followed conversation
func (s *MessageSync) ConversationID() string {
	return s.conversationID
}

func (s *MessageSync) Load(ctx context.Context, api *API, accessToken string) error {
	msgs, err := api.Messages(ctx, accessToken, s.conversationID)
	if err != nil {
		return err
	}
	// the server lists messages oldest first
	reversed := make([]domain.Message, len(msgs))
	for i := range msgs {
		reversed[len(msgs)-1-i] = msgs[i]
	}
	s.Reset(reversed)
	return nil
}

// NotificationSync follows the viewer's notifications
type NotificationSync struct {
	*Collection[domain.Notification]
}

// NewNotificationSync creates a notification sync for viewer
func NewNotificationSync(viewer string) *NotificationSync {
	return &NotificationSync{NewCollection(domain.TableNotifications, viewer,
		func(n *domain.Notification) string { return n.ID },
		func(n *domain.Notification, viewer string) bool {
			return !n.IsRead && n.ActorID != viewer
		},
	)}
}

func (s *NotificationSync) Load(ctx context.Context, api *API, accessToken string) error {
	notifications, err := api.Notifications(ctx, accessToken)
	if err != nil {
		return err
	}
	s.Reset(notifications)
	return nil
}
